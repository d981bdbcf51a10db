package domain

import "time"

// RateLimitRecord is the persisted sliding window for one requester key.
// Timestamps older than the window are pruned on every write; ExpiresAt lets
// the storage layer discard abandoned records without consulting the logic.
type RateLimitRecord struct {
	Key        string
	Timestamps []time.Time
	ExpiresAt  time.Time
}

// RateLimitDecision is the outcome of one checkAndRecord evaluation.
// ResetAt is only meaningful when Allowed is false: the instant the oldest
// in-window request falls out of the window.
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}
