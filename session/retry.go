package session

import (
	"math/rand/v2"
	"time"
)

// DefaultRetries is the number of attempts a fresh strategy permits.
const DefaultRetries = 3

// jitter returns a uniform value in [0, 1). Overridable in tests.
var jitter = rand.Float64

// RetryStrategy schedules request retries, controlling both the number and
// frequency of attempts. Implementations are immutable values: consuming a
// retry yields a new strategy and leaves the receiver untouched, so one
// strategy can serve as the template for many concurrent logical requests.
type RetryStrategy interface {
	// SleepDuration returns the backoff to wait before the next attempt.
	// The second return is false when no wait is scheduled.
	SleepDuration() (time.Duration, bool)
	// ShouldRetryOnFailure reports whether another retry is permitted.
	ShouldRetryOnFailure() bool
	// ConsumeAvailableRetry returns a strategy with one fewer retry.
	ConsumeAvailableRetry() RetryStrategy
}

// FiniteRetryStrategy permits a fixed number of attempts with a short,
// front-loaded backoff: the first retry waits under two seconds, the last
// between two and four. Transient failures get a little room to clear
// while the total wall-clock cost stays bounded.
type FiniteRetryStrategy struct {
	remaining int
}

var _ RetryStrategy = FiniteRetryStrategy{}

// NewFiniteRetryStrategy creates a strategy permitting the given number of
// attempts.
func NewFiniteRetryStrategy(retries int) FiniteRetryStrategy {
	return FiniteRetryStrategy{remaining: retries}
}

// SleepDuration reports the backoff for the upcoming retry. No wait is
// scheduled while more than three retries remain, nor once the strategy is
// down to its final attempt.
func (s FiniteRetryStrategy) SleepDuration() (time.Duration, bool) {
	if s.remaining > 3 || s.remaining <= 1 {
		return 0, false
	}
	base := 2 * time.Second
	if s.remaining == 3 {
		base = 0
	}
	return base + time.Duration(jitter()*2*float64(time.Second)), true
}

// ShouldRetryOnFailure reports whether the strategy will allow another retry.
func (s FiniteRetryStrategy) ShouldRetryOnFailure() bool {
	return s.remaining > 1
}

// ConsumeAvailableRetry allows one fewer retry.
func (s FiniteRetryStrategy) ConsumeAvailableRetry() RetryStrategy {
	return FiniteRetryStrategy{remaining: s.remaining - 1}
}
