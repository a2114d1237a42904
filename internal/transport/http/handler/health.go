package handler

import (
	"net/http"
	"time"
)

const apiVersion = "1.0.0"

// HealthHandler serves the service info and health endpoints.
type HealthHandler struct {
	appName string
	now     func() time.Time
}

func NewHealthHandler(appName string) *HealthHandler {
	return &HealthHandler{appName: appName, now: time.Now}
}

func (h *HealthHandler) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, InfoEnvelope{
		Success: true,
		Message: h.appName + " email API is running",
		Version: apiVersion,
		Endpoints: map[string]string{
			"POST /api/email/send-verification":   "send a verification code",
			"POST /api/email/verify-code":         "validate a verification code",
			"POST /api/email/send-password-reset": "send a password reset link",
			"POST /api/email/send-invoice":        "send an invoice",
			"POST /api/email/send-simple":         "relay a caller-supplied code",
			"GET /api/email/health":               "health check",
			"GET /metrics":                        "prometheus metrics",
		},
	})
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthEnvelope{
		Success:   true,
		Message:   "email API is healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}
