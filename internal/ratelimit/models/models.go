package models

import (
	"time"
)

// EndpointClass groups endpoints that share a limit.
type EndpointClass string

const (
	// ClassIntake covers submitting and processing verifications.
	ClassIntake EndpointClass = "intake"
	// ClassRead covers status and listing reads.
	ClassRead EndpointClass = "read"
)

// Limit is the request budget of a class over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult is the outcome of one check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, set when denied
}

// Key builds the bucket key for a caller and class.
func Key(class EndpointClass, caller string) string {
	return "rl:" + string(class) + ":" + caller
}
