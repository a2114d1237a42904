package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-email-relay/internal/domain"
	"github.com/redis/go-redis/v9"
)

// recordFailedAttemptScript increments attempts on an existing record and
// deletes it once the maximum is reached. Returns -1 when the key is absent.
var recordFailedAttemptScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local n = redis.call("HINCRBY", KEYS[1], "attempts", 1)
if n >= tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
end
return n
`)

// VerificationStore keeps pending verifications in Redis hashes
// (fields code, issued_at in unix ms, attempts) with PEXPIRE as the sweep.
type VerificationStore struct {
	client      redis.UniversalClient
	prefix      string
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewVerificationStore(client redis.UniversalClient, prefix string, ttl time.Duration, maxAttempts int) *VerificationStore {
	if prefix == "" {
		prefix = "verification"
	}
	return &VerificationStore{
		client:      client,
		prefix:      prefix,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *VerificationStore) redisKey(key string) string {
	return s.prefix + ":" + key
}

func (s *VerificationStore) Put(ctx context.Context, key, code string) error {
	rk := s.redisKey(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rk)
		pipe.HSet(ctx, rk,
			"code", code,
			"issued_at", s.now().UnixMilli(),
			"attempts", 0,
		)
		pipe.PExpire(ctx, rk, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put verification: %w", err)
	}
	return nil
}

func (s *VerificationStore) Get(ctx context.Context, key string) (*domain.PendingVerification, error) {
	rk := s.redisKey(key)
	fields, err := s.client.HGetAll(ctx, rk).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get verification: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("verification %q: %w", key, domain.ErrNotFound)
	}
	issuedMs, err := strconv.ParseInt(fields["issued_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse issued_at: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("parse attempts: %w", err)
	}
	v := &domain.PendingVerification{
		Key:      key,
		Code:     fields["code"],
		IssuedAt: time.UnixMilli(issuedMs),
		Attempts: attempts,
	}
	if v.Expired(s.now(), s.ttl) {
		if err := s.client.Del(ctx, rk).Err(); err != nil {
			slog.WarnContext(ctx, "failed to delete expired verification", "key", key, "err", err)
		}
		return nil, fmt.Errorf("verification %q expired: %w", key, domain.ErrNotFound)
	}
	return v, nil
}

func (s *VerificationStore) RecordFailedAttempt(ctx context.Context, key string) (int, error) {
	n, err := recordFailedAttemptScript.Run(ctx, s.client, []string{s.redisKey(key)}, s.maxAttempts).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("verification %q: %w", key, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("redis record failed attempt: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("verification %q: %w", key, domain.ErrNotFound)
	}
	return n, nil
}

func (s *VerificationStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.redisKey(key)).Err()
}
