// Package ratelimit paces outgoing API calls. The limiter reads the
// server's x-ratelimit-* response headers and delays subsequent calls so
// the quota window is spread evenly instead of exhausted in bursts. An
// optional local requests-per-second floor guards against tight loops even
// before the first response headers arrive.
package ratelimit

import (
	"context"
	nethttp "net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/redditcore/logger"
	"github.com/gaborage/redditcore/transport"
)

// HeaderFunc supplies per-call headers (typically authorization) just
// before the call is performed, after any throttling delay has elapsed.
type HeaderFunc func(ctx context.Context) (nethttp.Header, error)

// RequestFunc performs the actual network attempt.
type RequestFunc func(ctx context.Context, method, url string, opts transport.RequestOptions) (*transport.Response, error)

// Limiter gates outgoing calls. Implementations must be safe for
// concurrent use by multiple logical requests.
type Limiter interface {
	Call(ctx context.Context, headers HeaderFunc, do RequestFunc, method, url string, opts transport.RequestOptions) (*transport.Response, error)
}

// HeaderLimiter is a process-wide Limiter driven by the server's
// rate-limit response headers.
type HeaderLimiter struct {
	mu            sync.Mutex
	seen          bool
	remaining     float64
	used          int
	nextRequestAt time.Time
	resetAt       time.Time

	floor *rate.Limiter
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// Option configures a HeaderLimiter during construction.
type Option func(*HeaderLimiter)

// WithFloor adds a local requests-per-second cap applied before the
// header-driven delay.
func WithFloor(rps float64, burst int) Option {
	return func(l *HeaderLimiter) {
		l.floor = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger attaches a logger for throttle debug output.
func WithLogger(log logger.Logger) Option {
	return func(l *HeaderLimiter) {
		l.log = log
	}
}

// New creates a HeaderLimiter.
func New(opts ...Option) *HeaderLimiter {
	l := &HeaderLimiter{
		log:   logger.Nop(),
		now:   time.Now,
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Call performs one network attempt after applying throttling. Headers are
// obtained after the delay so a token refreshed mid-wait is not stale by
// the time the call goes out.
func (l *HeaderLimiter) Call(ctx context.Context, headers HeaderFunc, do RequestFunc, method, url string, opts transport.RequestOptions) (*transport.Response, error) {
	if l.floor != nil {
		if err := l.floor.Wait(ctx); err != nil {
			return nil, err
		}
	}
	l.delay()

	extra, err := headers(ctx)
	if err != nil {
		return nil, err
	}
	opts.Headers = mergeHeaders(opts.Headers, extra)

	resp, err := do(ctx, method, url, opts)
	if err != nil {
		return nil, err
	}
	l.update(resp.Headers)
	return resp, nil
}

// delay blocks until the next request is permitted.
func (l *HeaderLimiter) delay() {
	l.mu.Lock()
	wait := l.nextRequestAt.Sub(l.now())
	l.mu.Unlock()

	if wait <= 0 {
		return
	}
	l.log.Debug().
		Float64("seconds", wait.Seconds()).
		Msg("Sleeping prior to call")
	l.sleep(wait)
}

// update adjusts the throttle state from the server's response headers.
// Responses without rate-limit headers still count against the window.
func (l *HeaderLimiter) update(headers nethttp.Header) {
	l.mu.Lock()
	defer l.mu.Unlock()

	remainingHeader := headers.Get("x-ratelimit-remaining")
	if remainingHeader == "" {
		if l.seen {
			l.remaining--
			l.used++
		}
		return
	}

	remaining, errRemaining := strconv.ParseFloat(remainingHeader, 64)
	used, errUsed := strconv.Atoi(headers.Get("x-ratelimit-used"))
	secondsToReset, errReset := strconv.Atoi(headers.Get("x-ratelimit-reset"))
	if errRemaining != nil || errUsed != nil || errReset != nil {
		l.log.Warn().
			Str("remaining", remainingHeader).
			Str("used", headers.Get("x-ratelimit-used")).
			Str("reset", headers.Get("x-ratelimit-reset")).
			Msg("Ignoring unparsable rate limit headers")
		return
	}

	now := l.now()
	prevSeen, prevRemaining := l.seen, l.remaining

	l.seen = true
	l.remaining = remaining
	l.used = used
	l.resetAt = now.Add(time.Duration(secondsToReset) * time.Second)

	if l.remaining <= 0 {
		l.nextRequestAt = l.resetAt
		return
	}

	// Other clients sharing the quota show up as a faster-than-expected
	// drop in the remaining count; pace proportionally harder for them.
	estimatedClients := 1.0
	if prevSeen && prevRemaining > l.remaining {
		estimatedClients = prevRemaining - l.remaining
	}

	pace := time.Duration(estimatedClients * float64(secondsToReset) / l.remaining * float64(time.Second))
	next := now.Add(pace)
	if next.After(l.resetAt) {
		next = l.resetAt
	}
	l.nextRequestAt = next
}

// Remaining reports the last-seen remaining quota, or false before any
// rate-limit headers have been observed.
func (l *HeaderLimiter) Remaining() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining, l.seen
}

// Used reports the last-seen used quota.
func (l *HeaderLimiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

func mergeHeaders(base, extra nethttp.Header) nethttp.Header {
	merged := nethttp.Header{}
	for key, values := range base {
		merged[key] = append([]string(nil), values...)
	}
	for key, values := range extra {
		for _, value := range values {
			merged.Set(key, value)
		}
	}
	return merged
}
