package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-email-relay/internal/domain"
)

// VerificationStore keeps pending verifications in process memory.
// State is lost on restart and is not shared between instances.
//
// Expiry is enforced lazily on Get; each record additionally schedules a
// one-shot sweep at issuedAt+TTL that is cancelled when the record is
// removed or replaced first.
type VerificationStore struct {
	mu          sync.Mutex
	records     map[string]*entry
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

type entry struct {
	v     domain.PendingVerification
	sweep *time.Timer
}

// Option configures a VerificationStore.
type Option func(*VerificationStore)

// WithClock overrides the time source used for issuedAt and lazy expiry.
// Sweep timers always run on the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *VerificationStore) { s.now = now }
}

func NewVerificationStore(ttl time.Duration, maxAttempts int, opts ...Option) *VerificationStore {
	s := &VerificationStore{
		records:     make(map[string]*entry),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *VerificationStore) Put(_ context.Context, key, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(key)
	e := &entry{v: domain.PendingVerification{
		Key:      key,
		Code:     code,
		IssuedAt: s.now(),
	}}
	e.sweep = time.AfterFunc(s.ttl, func() { s.sweep(key, e) })
	s.records[key] = e
	return nil
}

// Get returns a copy of the live record for key. Expired records are
// dropped and reported as not found.
func (s *VerificationStore) Get(_ context.Context, key string) (*domain.PendingVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("verification %q: %w", key, domain.ErrNotFound)
	}
	if e.v.Expired(s.now(), s.ttl) {
		s.deleteLocked(key)
		return nil, fmt.Errorf("verification %q expired: %w", key, domain.ErrNotFound)
	}
	v := e.v
	return &v, nil
}

// RecordFailedAttempt increments the attempt counter and returns the new
// value. The record is deleted once the counter reaches the maximum.
func (s *VerificationStore) RecordFailedAttempt(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[key]
	if !ok || e.v.Expired(s.now(), s.ttl) {
		s.deleteLocked(key)
		return 0, fmt.Errorf("verification %q: %w", key, domain.ErrNotFound)
	}
	e.v.Attempts++
	attempts := e.v.Attempts
	if attempts >= s.maxAttempts {
		s.deleteLocked(key)
	}
	return attempts, nil
}

func (s *VerificationStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(key)
	return nil
}

// Len reports the number of physically present records, expired or not.
func (s *VerificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close cancels all pending sweeps and drops every record.
func (s *VerificationStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.records {
		s.deleteLocked(key)
	}
}

func (s *VerificationStore) deleteLocked(key string) {
	if e, ok := s.records[key]; ok {
		e.sweep.Stop()
		delete(s.records, key)
	}
}

// sweep removes key only if it still holds the entry that scheduled it;
// a replacement issued in the meantime owns its own timer.
func (s *VerificationStore) sweep(key string, scheduled *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.records[key]; ok && cur == scheduled {
		delete(s.records, key)
	}
}
