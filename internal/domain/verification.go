package domain

import "time"

// PendingVerification is the outstanding code issued for a key (an email address).
// At most one exists per key; issuing again replaces it.
type PendingVerification struct {
	Key      string    `json:"key"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
	Attempts int       `json:"attempts"`
}

// Expired reports whether ttl has elapsed since issuance. A record is dead
// from issuedAt+ttl onwards, the same instant the sweep fires.
func (v *PendingVerification) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(v.IssuedAt.Add(ttl))
}
