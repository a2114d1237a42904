package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-email-relay/internal/domain"
	"github.com/go-email-relay/internal/pkg/code"
)

// Store holds at most one pending verification per key.
// Get must treat records older than the TTL as absent (domain.ErrNotFound).
type Store interface {
	Put(ctx context.Context, key, code string) error
	Get(ctx context.Context, key string) (*domain.PendingVerification, error)
	// RecordFailedAttempt returns the updated attempt count and deletes the
	// record once it reaches the configured maximum.
	RecordFailedAttempt(ctx context.Context, key string) (int, error)
	Remove(ctx context.Context, key string) error
}

// Recorder receives lifecycle events for metrics.
type Recorder interface {
	CodeIssued()
	ValidationOutcome(outcome string)
}

// Service issues and validates one-time verification codes.
type Service interface {
	// Issue generates a fresh code for key, replacing any pending one, and
	// returns it for out-of-band delivery.
	Issue(ctx context.Context, key string) (string, error)
	// Validate returns nil on success, or one of domain.ErrNotFoundOrExpired,
	// domain.ErrTooManyAttempts, domain.ErrExpired, *domain.IncorrectCodeError.
	Validate(ctx context.Context, key, submitted string) error
}

// ServiceDeps holds the dependencies required to build a Service.
type ServiceDeps struct {
	Store       Store
	Generator   code.Generator
	Metrics     Recorder // optional
	TTL         time.Duration
	MaxAttempts int
	Now         func() time.Time // defaults to time.Now
}

type service struct {
	store       Store
	generator   code.Generator
	metrics     Recorder
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	locks       *keyedMutex
}

func NewService(d ServiceDeps) Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:       d.Store,
		generator:   d.Generator,
		metrics:     d.Metrics,
		ttl:         d.TTL,
		maxAttempts: d.MaxAttempts,
		now:         now,
		locks:       newKeyedMutex(),
	}
}

// NormalizeKey canonicalises an email address used as a verification key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *service) Issue(ctx context.Context, key string) (string, error) {
	key = NormalizeKey(key)
	if key == "" {
		return "", fmt.Errorf("verification key required: %w", domain.ErrBadRequest)
	}
	unlock := s.locks.Lock(key)
	defer unlock()

	c, err := s.generator.Generate()
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, key, c); err != nil {
		return "", fmt.Errorf("store verification: %w", err)
	}
	if s.metrics != nil {
		s.metrics.CodeIssued()
	}
	slog.InfoContext(ctx, "verification code issued", "key", key, "ttl", s.ttl)
	return c, nil
}

func (s *service) Validate(ctx context.Context, key, submitted string) error {
	key = NormalizeKey(key)
	unlock := s.locks.Lock(key)
	defer unlock()

	err := s.validate(ctx, key, strings.TrimSpace(submitted))
	if s.metrics != nil {
		s.metrics.ValidationOutcome(Outcome(err))
	}
	return err
}

func (s *service) validate(ctx context.Context, key, submitted string) error {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFoundOrExpired
	}
	if err != nil {
		return fmt.Errorf("load verification: %w", err)
	}

	if v.Attempts >= s.maxAttempts {
		s.remove(ctx, key)
		return domain.ErrTooManyAttempts
	}
	if v.Expired(s.now(), s.ttl) {
		s.remove(ctx, key)
		return domain.ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(submitted)) == 1 {
		s.remove(ctx, key)
		slog.InfoContext(ctx, "verification succeeded", "key", key)
		return nil
	}

	attempts, err := s.store.RecordFailedAttempt(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFoundOrExpired
	}
	if err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	if attempts >= s.maxAttempts {
		slog.InfoContext(ctx, "verification attempts exhausted", "key", key)
		return domain.ErrTooManyAttempts
	}
	return &domain.IncorrectCodeError{Remaining: s.maxAttempts - attempts}
}

func (s *service) remove(ctx context.Context, key string) {
	if err := s.store.Remove(ctx, key); err != nil {
		slog.Warn("failed to delete verification record", "key", key, "err", err)
	}
}

// Outcome maps a Validate result to a short label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNotFoundOrExpired):
		return "not_found_or_expired"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrIncorrectCode):
		return "incorrect_code"
	default:
		return "error"
	}
}
