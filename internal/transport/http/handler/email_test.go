package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-email-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockEmailSvc struct{ mock.Mock }

func (m *mockEmailSvc) SendVerification(ctx context.Context, email, userName string) error {
	return m.Called(ctx, email, userName).Error(0)
}

func (m *mockEmailSvc) SendPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockEmailSvc) SendInvoice(ctx context.Context, email string, inv domain.Invoice) error {
	return m.Called(ctx, email, inv).Error(0)
}

func (m *mockEmailSvc) SendSimple(ctx context.Context, email, userName, code string) error {
	return m.Called(ctx, email, userName, code).Error(0)
}

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) Issue(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockVerificationSvc) Validate(ctx context.Context, key, submitted string) error {
	return m.Called(ctx, key, submitted).Error(0)
}

// --- helpers ---

func post(t *testing.T, h http.HandlerFunc, body string) (*httptest.ResponseRecorder, MessageEnvelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)

	var env MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return rr, env
}

func newHandler() (*EmailHandler, *mockEmailSvc, *mockVerificationSvc) {
	es := &mockEmailSvc{}
	vs := &mockVerificationSvc{}
	return NewEmailHandler(es, vs), es, vs
}

// --- send-verification ---

func TestSendVerification_OK(t *testing.T) {
	h, es, _ := newHandler()
	es.On("SendVerification", mock.Anything, "ana@example.com", "Ana").Return(nil)

	rr, env := post(t, h.SendVerification, `{"email":"ana@example.com","userName":"Ana"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	es.AssertExpectations(t)
}

func TestSendVerification_InvalidEmail(t *testing.T) {
	h, es, _ := newHandler()

	rr, env := post(t, h.SendVerification, `{"email":"not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "email must be a valid email address")
	es.AssertNotCalled(t, "SendVerification", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendVerification_MalformedBody(t *testing.T) {
	h, _, _ := newHandler()
	rr, env := post(t, h.SendVerification, `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid request body", env.Message)
}

func TestSendVerification_DeliveryFailed(t *testing.T) {
	h, es, _ := newHandler()
	es.On("SendVerification", mock.Anything, "ana@example.com", "").
		Return(fmt.Errorf("send: %w: %w", domain.ErrDeliveryFailed, errors.New("provider 500")))

	rr, env := post(t, h.SendVerification, `{"email":"ana@example.com"}`)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.False(t, env.Success)
}

// --- verify-code ---

func TestVerifyCode_Outcomes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		success bool
		message string
	}{
		{"success", nil, http.StatusOK, true, "email verified"},
		{"not found", domain.ErrNotFoundOrExpired, http.StatusBadRequest, false, "code expired or not found"},
		{"too many", domain.ErrTooManyAttempts, http.StatusBadRequest, false, "too many attempts, request a new code"},
		{"expired", domain.ErrExpired, http.StatusBadRequest, false, "code expired"},
		{"store down", errors.New("redis: connection refused"), http.StatusInternalServerError, false, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _, vs := newHandler()
			vs.On("Validate", mock.Anything, "ana@example.com", "482913").Return(tc.err)

			rr, env := post(t, h.VerifyCode, `{"email":"ana@example.com","code":"482913"}`)

			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.success, env.Success)
			assert.Equal(t, tc.message, env.Message)
			assert.Nil(t, env.RemainingAttempts)
		})
	}
}

func TestVerifyCode_IncorrectReportsRemaining(t *testing.T) {
	h, _, vs := newHandler()
	vs.On("Validate", mock.Anything, "ana@example.com", "000000").Return(&domain.IncorrectCodeError{Remaining: 2})

	rr, env := post(t, h.VerifyCode, `{"email":"ana@example.com","code":"000000"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.RemainingAttempts)
	assert.Equal(t, 2, *env.RemainingAttempts)
	assert.Contains(t, env.Message, "2 attempts remaining")
}

func TestVerifyCode_NumericCode(t *testing.T) {
	h, _, vs := newHandler()
	vs.On("Validate", mock.Anything, "ana@example.com", "482913").Return(nil)

	rr, _ := post(t, h.VerifyCode, `{"email":"ana@example.com","code":482913}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	vs.AssertExpectations(t)
}

func TestVerifyCode_MissingCode(t *testing.T) {
	h, _, _ := newHandler()
	rr, env := post(t, h.VerifyCode, `{"email":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "code is required", env.Message)
}

// --- password reset ---

func TestSendPasswordReset_Mapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"sent", nil, http.StatusOK},
		{"unknown email", fmt.Errorf("email: %w", domain.ErrNotFound), http.StatusBadRequest},
		{"backend down", fmt.Errorf("lookup: %w", domain.ErrUpstream), http.StatusInternalServerError},
		{"provider down", fmt.Errorf("send: %w", domain.ErrDeliveryFailed), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, es, _ := newHandler()
			es.On("SendPasswordReset", mock.Anything, "ana@example.com").Return(tc.err)

			rr, _ := post(t, h.SendPasswordReset, `{"email":"ana@example.com"}`)

			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestSendPasswordReset_UnknownEmailMessage(t *testing.T) {
	h, es, _ := newHandler()
	es.On("SendPasswordReset", mock.Anything, "x@example.com").Return(domain.ErrNotFound)

	_, env := post(t, h.SendPasswordReset, `{"email":"x@example.com"}`)

	assert.Equal(t, "email not found", env.Message)
}

// --- invoice ---

func TestSendInvoice_OK(t *testing.T) {
	h, es, _ := newHandler()
	inv := domain.Invoice{Number: "NF-1", Amount: "99.9", CustomerName: "Bob"}
	es.On("SendInvoice", mock.Anything, "bob@example.com", inv).Return(nil)

	rr, env := post(t, h.SendInvoice, `{"email":"bob@example.com","invoiceData":{"number":"NF-1","amount":99.9,"customerName":"Bob"}}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	es.AssertExpectations(t)
}

func TestSendInvoice_RequiresInvoiceData(t *testing.T) {
	h, _, _ := newHandler()

	rr, env := post(t, h.SendInvoice, `{"email":"bob@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invoiceData is required", env.Message)

	rr, env = post(t, h.SendInvoice, `{"email":"bob@example.com","invoiceData":{"number":"NF-1"}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invoiceData.amount is required", env.Message)
}

func TestSendInvoice_RejectsLineBreaksInNumber(t *testing.T) {
	h, es, _ := newHandler()

	rr, env := post(t, h.SendInvoice, `{"email":"bob@example.com","invoiceData":{"number":"1\r\nBcc: victim@evil.com","amount":"10"}}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invoiceData.number must not contain line breaks", env.Message)
	es.AssertNotCalled(t, "SendInvoice", mock.Anything, mock.Anything, mock.Anything)
}

// --- simple ---

func TestSendSimple_OK(t *testing.T) {
	h, es, _ := newHandler()
	es.On("SendSimple", mock.Anything, "ana@example.com", "", "123456").Return(nil)

	rr, env := post(t, h.SendSimple, `{"email":"ana@example.com","code":123456}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "email sent", env.Message)
}

func TestSendSimple_RequiresCode(t *testing.T) {
	h, es, _ := newHandler()
	rr, _ := post(t, h.SendSimple, `{"email":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	es.AssertNotCalled(t, "SendSimple", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- health ---

func TestHealth(t *testing.T) {
	h := NewHealthHandler("Sistema TCC")
	h.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/api/email/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var env HealthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Equal(t, "2026-10-18T09:00:00Z", env.Timestamp)
}

func TestInfo_ListsEndpoints(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler("Sistema TCC").Info(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	var env InfoEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Contains(t, env.Message, "Sistema TCC")
	assert.Contains(t, env.Endpoints, "POST /api/email/verify-code")
}
