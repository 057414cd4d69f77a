package timer

import "time"

// RetryPolicy drives re-attempts of a failed remote session creation.
// Attempt n (1-based) is delayed by Delays[n-1]; past the cap the session
// stays local-only.
type RetryPolicy struct {
	MaxAttempts int
	Delays      []time.Duration
}

// DefaultRetryPolicy retries three times at 15s, 30s and 45s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delays:      []time.Duration{15 * time.Second, 30 * time.Second, 45 * time.Second},
	}
}

// Delay returns the wait before the given 1-based attempt, or false when the
// policy is exhausted.
func (p RetryPolicy) Delay(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > p.MaxAttempts || len(p.Delays) == 0 {
		return 0, false
	}
	if attempt > len(p.Delays) {
		return p.Delays[len(p.Delays)-1], true
	}
	return p.Delays[attempt-1], true
}
