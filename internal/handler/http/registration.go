package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/santahate/czesci/internal/service"
	"github.com/santahate/czesci/pkg/httputil"
	"github.com/santahate/czesci/pkg/middleware"
	"github.com/santahate/czesci/pkg/validator"
)

// RegistrationHandler handles HTTP requests for the multi-step registration
// flow.
type RegistrationHandler struct {
	service *service.RegistrationService
	logger  *slog.Logger
}

// NewRegistrationHandler creates a new registration HTTP handler.
func NewRegistrationHandler(svc *service.RegistrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// BeginRegistrationRequest is the JSON request body for step 1.
type BeginRegistrationRequest struct {
	FirstName       string `json:"first_name" validate:"required,min=1,max=100"`
	LastName        string `json:"last_name" validate:"required,min=1,max=100"`
	Phone           string `json:"phone" validate:"required,phone_e164"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	Role            string `json:"role" validate:"required,oneof=buyer seller"`
	AcceptTerms     bool   `json:"accept_terms"`
	AcceptPrivacy   bool   `json:"accept_privacy"`
	ConfirmAge      bool   `json:"confirm_age"`
	AcceptMarketing bool   `json:"accept_marketing"`
}

// VerifyOTPRequest is the JSON request body for step 2.
type VerifyOTPRequest struct {
	RegistrationID string `json:"registration_id" validate:"required,uuid4"`
	Code           string `json:"code" validate:"required,len=6,numeric"`
}

// ResendOTPRequest is the JSON request body for requesting a fresh code.
type ResendOTPRequest struct {
	RegistrationID string `json:"registration_id" validate:"required,uuid4"`
}

// CompanyRequest carries the legal data for a seller registration.
type CompanyRequest struct {
	LegalName          string `json:"legal_name" validate:"required,min=1,max=300"`
	LegalForm          string `json:"legal_form" validate:"required,oneof=sole_trader private_limited joint_stock"`
	AddressLine1       string `json:"address_line1" validate:"required,min=1,max=500"`
	AddressLine2       string `json:"address_line2" validate:"omitempty,max=500"`
	City               string `json:"city" validate:"required,min=1,max=100"`
	PostalCode         string `json:"postal_code" validate:"required,min=1,max=20"`
	CountryCode        string `json:"country_code" validate:"required,len=2"`
	NIP                string `json:"nip" validate:"required,len=10,numeric"`
	REGON              string `json:"regon" validate:"omitempty,len=9,numeric"`
	KRS                string `json:"krs" validate:"omitempty,len=10,numeric"`
	VATPayer           bool   `json:"vat_payer"`
	IBAN               string `json:"iban" validate:"omitempty,max=34"`
	SWIFT              string `json:"swift" validate:"omitempty,max=11"`
	InvoiceDisplayName string `json:"invoice_display_name" validate:"omitempty,max=300"`
}

// CompleteProfileRequest is the JSON request body for step 3. Buyer and
// seller fields are mutually exclusive; the server decides which set applies
// from the pending registration's role.
type CompleteProfileRequest struct {
	RegistrationID string `json:"registration_id" validate:"required,uuid4"`

	DeliveryAddress string `json:"delivery_address" validate:"omitempty,max=500"`

	BusinessName    string          `json:"business_name" validate:"omitempty,max=300"`
	BusinessAddress string          `json:"business_address" validate:"omitempty,max=500"`
	Company         *CompanyRequest `json:"company" validate:"omitempty"`
}

// --- Handlers ---

// Begin handles POST /api/v1/registration
func (h *RegistrationHandler) Begin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req BeginRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.BeginInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Role:            req.Role,
		AcceptTerms:     req.AcceptTerms,
		AcceptPrivacy:   req.AcceptPrivacy,
		ConfirmAge:      req.ConfirmAge,
		AcceptMarketing: req.AcceptMarketing,
		SourceIP:        clientIP(r),
	}

	result, err := h.service.Begin(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// Verify handles POST /api/v1/registration/verify
func (h *RegistrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.VerifyOTP(r.Context(), req.RegistrationID, req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Resend handles POST /api/v1/registration/resend
func (h *RegistrationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ResendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ResendOTP(r.Context(), req.RegistrationID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "a new verification code has been sent"},
	})
}

// CompleteProfile handles POST /api/v1/registration/profile
func (h *RegistrationHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())
	if accountID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req CompleteProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.CompleteProfileInput{
		RegistrationID:  req.RegistrationID,
		DeliveryAddress: req.DeliveryAddress,
		BusinessName:    req.BusinessName,
		BusinessAddress: req.BusinessAddress,
	}
	if req.Company != nil {
		input.Company = &service.CompanyInput{
			LegalName:          req.Company.LegalName,
			LegalForm:          req.Company.LegalForm,
			AddressLine1:       req.Company.AddressLine1,
			AddressLine2:       req.Company.AddressLine2,
			City:               req.Company.City,
			PostalCode:         req.Company.PostalCode,
			CountryCode:        req.Company.CountryCode,
			NIP:                req.Company.NIP,
			REGON:              req.Company.REGON,
			KRS:                req.Company.KRS,
			VATPayer:           req.Company.VATPayer,
			IBAN:               req.Company.IBAN,
			SWIFT:              req.Company.SWIFT,
			InvoiceDisplayName: req.Company.InvoiceDisplayName,
		}
	}

	result, err := h.service.CompleteProfile(r.Context(), accountID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// clientIP extracts the originating client address, preferring the first
// X-Forwarded-For hop set by the edge proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
