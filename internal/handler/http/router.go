package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/santahate/czesci/internal/auth"
	"github.com/santahate/czesci/internal/service"
	"github.com/santahate/czesci/pkg/health"
	"github.com/santahate/czesci/pkg/middleware"
)

// NewRouter creates a chi router with all identity service routes registered.
func NewRouter(
	registrationService *service.RegistrationService,
	loginService *service.LoginService,
	phoneService *service.PhoneService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("identity"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.AccountID,
			Email:  claims.Email,
		}, nil
	}

	registrationHandler := NewRegistrationHandler(registrationService, logger)
	authHandler := NewAuthHandler(loginService, logger)
	phoneHandler := NewPhoneHandler(phoneService, logger)

	// Registration flow (steps 1 and 2 are public, step 3 requires the
	// tokens issued by step 2)
	r.Route("/api/v1/registration", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", registrationHandler.Begin)
		r.Post("/verify", registrationHandler.Verify)
		r.Post("/resend", registrationHandler.Resend)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Post("/profile", registrationHandler.CompleteProfile)
		})
	})

	// Auth endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	// Account and phone registry endpoints (auth required)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/me", authHandler.Me)

		r.Get("/me/phones", phoneHandler.List)
		r.Post("/me/phones", phoneHandler.Add)
		r.Post("/me/phones/{id}/verify", phoneHandler.Verify)
		r.Post("/me/phones/{id}/resend", phoneHandler.Resend)
		r.Delete("/me/phones/{id}", phoneHandler.Deactivate)
	})

	return r
}
