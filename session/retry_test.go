package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withJitter(t *testing.T, value float64) {
	t.Helper()
	original := jitter
	jitter = func() float64 { return value }
	t.Cleanup(func() { jitter = original })
}

func TestSleepDurationSchedule(t *testing.T) {
	withJitter(t, 0.5)

	tests := []struct {
		name      string
		remaining int
		want      time.Duration
		scheduled bool
	}{
		{"plenty of retries left", 5, 0, false},
		{"four remaining", 4, 0, false},
		{"three remaining", 3, time.Second, true},
		{"two remaining", 2, 3 * time.Second, true},
		{"one remaining", 1, 0, false},
		{"exhausted", 0, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			delay, ok := NewFiniteRetryStrategy(tc.remaining).SleepDuration()
			assert.Equal(t, tc.scheduled, ok)
			assert.Equal(t, tc.want, delay)
		})
	}
}

func TestSleepDurationJitterRange(t *testing.T) {
	withJitter(t, 0)
	delay, ok := NewFiniteRetryStrategy(3).SleepDuration()
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), delay)

	withJitter(t, 0.999)
	delay, ok = NewFiniteRetryStrategy(2).SleepDuration()
	assert.True(t, ok)
	assert.Less(t, delay, 4*time.Second)
	assert.GreaterOrEqual(t, delay, 2*time.Second)
}

func TestShouldRetryOnFailure(t *testing.T) {
	assert.True(t, NewFiniteRetryStrategy(3).ShouldRetryOnFailure())
	assert.True(t, NewFiniteRetryStrategy(2).ShouldRetryOnFailure())
	assert.False(t, NewFiniteRetryStrategy(1).ShouldRetryOnFailure())
	assert.False(t, NewFiniteRetryStrategy(0).ShouldRetryOnFailure())
}

func TestConsumeAvailableRetryIsImmutable(t *testing.T) {
	original := NewFiniteRetryStrategy(3)

	first := original.ConsumeAvailableRetry()
	second := original.ConsumeAvailableRetry()

	// The receiver is untouched and both children are independent.
	assert.Equal(t, FiniteRetryStrategy{remaining: 3}, original)
	assert.Equal(t, FiniteRetryStrategy{remaining: 2}, first)
	assert.Equal(t, FiniteRetryStrategy{remaining: 2}, second)
}

func TestConsumeChainTerminates(t *testing.T) {
	var state RetryStrategy = NewFiniteRetryStrategy(DefaultRetries)
	steps := 0
	for state.ShouldRetryOnFailure() {
		state = state.ConsumeAvailableRetry()
		steps++
	}
	assert.Equal(t, 2, steps)
}
