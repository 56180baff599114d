package hydration

import "time"

// RetryDelay returns the backoff delay before the next hydration attempt.
// The schedule is durable state (next_retry_at on the row), not an in-memory
// timer, so it survives process restarts.
//
//	attempt 1 -> 1 hour
//	attempt 2 -> 6 hours
//	attempt 3+ -> 24 hours (capped)
func RetryDelay(attempt int) time.Duration {
	switch {
	case attempt <= 1:
		return time.Hour
	case attempt == 2:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}
