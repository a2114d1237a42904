package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-email-relay/internal/application/email"
	"github.com/go-email-relay/internal/application/verification"
	"github.com/go-email-relay/internal/domain"
	"github.com/go-email-relay/internal/pkg/validate"
)

const maxBodyBytes = 64 << 10

type sendVerificationRequest struct {
	Email    string `json:"email" validate:"required,email"`
	UserName string `json:"userName"`
}

type verifyCodeRequest struct {
	Email string            `json:"email" validate:"required,email"`
	Code  domain.FlexString `json:"code" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type sendInvoiceRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	InvoiceData *domain.Invoice `json:"invoiceData" validate:"required"`
}

type sendSimpleRequest struct {
	Email    string            `json:"email" validate:"required,email"`
	Code     domain.FlexString `json:"code" validate:"required"`
	UserName string            `json:"userName"`
}

// EmailHandler serves the /api/email routes.
type EmailHandler struct {
	emails        email.Service
	verifications verification.Service
}

func NewEmailHandler(emails email.Service, verifications verification.Service) *EmailHandler {
	return &EmailHandler{emails: emails, verifications: verifications}
}

func (h *EmailHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	var body sendVerificationRequest
	if !decode(w, r, &body) {
		return
	}
	if err := h.emails.SendVerification(r.Context(), body.Email, body.UserName); err != nil {
		writeServiceError(w, r, err, "failed to send verification email, try again")
		return
	}
	writeOK(w, "verification code sent")
}

func (h *EmailHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var body verifyCodeRequest
	if !decode(w, r, &body) {
		return
	}
	err := h.verifications.Validate(r.Context(), body.Email, string(body.Code))
	var incorrect *domain.IncorrectCodeError
	switch {
	case err == nil:
		writeOK(w, "email verified")
	case errors.As(err, &incorrect):
		remaining := incorrect.Remaining
		writeJSON(w, http.StatusBadRequest, MessageEnvelope{
			Message:           fmt.Sprintf("incorrect code, %d attempts remaining", remaining),
			RemainingAttempts: &remaining,
		})
	case errors.Is(err, domain.ErrNotFoundOrExpired):
		writeError(w, http.StatusBadRequest, "code expired or not found")
	case errors.Is(err, domain.ErrTooManyAttempts):
		writeError(w, http.StatusBadRequest, "too many attempts, request a new code")
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusBadRequest, "code expired")
	default:
		writeServiceError(w, r, err, "")
	}
}

func (h *EmailHandler) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var body passwordResetRequest
	if !decode(w, r, &body) {
		return
	}
	if err := h.emails.SendPasswordReset(r.Context(), body.Email); err != nil {
		writeServiceError(w, r, err, "failed to send password reset email, try again")
		return
	}
	writeOK(w, "password reset link sent")
}

func (h *EmailHandler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	var body sendInvoiceRequest
	if !decode(w, r, &body) {
		return
	}
	if err := h.emails.SendInvoice(r.Context(), body.Email, *body.InvoiceData); err != nil {
		writeServiceError(w, r, err, "failed to send invoice, try again")
		return
	}
	writeOK(w, "invoice sent")
}

func (h *EmailHandler) SendSimple(w http.ResponseWriter, r *http.Request) {
	var body sendSimpleRequest
	if !decode(w, r, &body) {
		return
	}
	if err := h.emails.SendSimple(r.Context(), body.Email, body.UserName, string(body.Code)); err != nil {
		writeServiceError(w, r, err, "failed to send email")
		return
	}
	writeOK(w, "email sent")
}

// decode reads and validates a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeServiceError maps service errors to HTTP statuses. deliveryMsg is the
// client-facing message used when the email provider rejected the send.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, deliveryMsg string) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusBadRequest, "email not found")
	case errors.Is(err, domain.ErrDeliveryFailed) && deliveryMsg != "":
		writeError(w, http.StatusBadGateway, deliveryMsg)
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
