package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/santahate/czesci/internal/service"
	"github.com/santahate/czesci/pkg/httputil"
	"github.com/santahate/czesci/pkg/middleware"
	"github.com/santahate/czesci/pkg/validator"
)

// PhoneHandler handles HTTP requests for the settings-page phone registry.
type PhoneHandler struct {
	service *service.PhoneService
	logger  *slog.Logger
}

// NewPhoneHandler creates a new phone HTTP handler.
func NewPhoneHandler(svc *service.PhoneService, logger *slog.Logger) *PhoneHandler {
	return &PhoneHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// AddPhoneRequest is the JSON request body for adding a number.
type AddPhoneRequest struct {
	Number string `json:"number" validate:"required,phone_e164"`
	Kind   string `json:"kind" validate:"required,oneof=buyer seller"`
}

// VerifyPhoneRequest is the JSON request body for verifying a number.
type VerifyPhoneRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// --- Handlers ---

// List handles GET /api/v1/users/me/phones
func (h *PhoneHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())
	if accountID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	phones, err := h.service.List(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: phones})
}

// Add handles POST /api/v1/users/me/phones
func (h *PhoneHandler) Add(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())
	if accountID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req AddPhoneRequest
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

	phone, err := h.service.Add(r.Context(), accountID, service.AddPhoneInput{
		Number: req.Number,
		Kind:   req.Kind,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: phone})
}

// Verify handles POST /api/v1/users/me/phones/{id}/verify
func (h *PhoneHandler) Verify(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())
	if accountID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	phoneID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req VerifyPhoneRequest
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

	if err := h.service.Verify(r.Context(), accountID, phoneID.String(), req.Code); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"id": phoneID.String(), "status": "verified"},
	})
}

// Resend handles POST /api/v1/users/me/phones/{id}/resend
func (h *PhoneHandler) Resend(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())
	if accountID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	phoneID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.ResendChallenge(r.Context(), accountID, phoneID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "a new verification code has been sent"},
	})
}

// Deactivate handles DELETE /api/v1/users/me/phones/{id}
func (h *PhoneHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.UserIDFromContext(r.Context())
	if accountID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	phoneID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), accountID, phoneID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"id": phoneID.String(), "status": "deactivated"},
	})
}
