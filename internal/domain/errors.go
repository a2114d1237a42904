package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")

	// Verification outcomes. All are expected, user-facing results of a validation.
	ErrNotFoundOrExpired = errors.New("code expired or not found")
	ErrTooManyAttempts   = errors.New("too many attempts, request a new code")
	ErrExpired           = errors.New("code expired")
	ErrIncorrectCode     = errors.New("incorrect code")

	// ErrDeliveryFailed marks an email-provider failure.
	ErrDeliveryFailed = errors.New("email delivery failed")
	// ErrUpstream marks a failure talking to the user directory backend.
	ErrUpstream = errors.New("upstream service unavailable")
)

// IncorrectCodeError reports a wrong code together with the attempts left
// before the pending verification is discarded.
type IncorrectCodeError struct {
	Remaining int
}

func (e *IncorrectCodeError) Error() string {
	return fmt.Sprintf("incorrect code, %d attempts remaining", e.Remaining)
}

func (e *IncorrectCodeError) Unwrap() error { return ErrIncorrectCode }
