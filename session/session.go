// Package session orchestrates one logical API request end to end:
// parameter normalization, the retry loop, transparent token refresh on
// 401, rate-limit gating, and translation of HTTP statuses into the typed
// error taxonomy. A Session is safe for concurrent use; the shared
// authorizer and rate limiter guard their own state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	nethttp "net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gaborage/redditcore/auth"
	"github.com/gaborage/redditcore/logger"
	"github.com/gaborage/redditcore/ratelimit"
	"github.com/gaborage/redditcore/trace"
	"github.com/gaborage/redditcore/transport"
)

// retryStatuses are transient server-side conditions retried while
// attempts remain. They overlap with the server-error mapping: once
// retries are exhausted the same status surfaces as a ServerError.
var retryStatuses = map[int]bool{
	nethttp.StatusInternalServerError: true,
	nethttp.StatusBadGateway:          true,
	nethttp.StatusServiceUnavailable:  true,
	nethttp.StatusGatewayTimeout:      true,
	nethttp.StatusRequestTimeout:      true,
	statusCloudflareUnknown:           true,
	statusCloudflareTimeout:           true,
}

// successStatuses are the only statuses expected to carry a decodable
// result. Anything else reaching final classification is a contract
// violation.
var successStatuses = map[int]bool{
	nethttp.StatusOK:       true,
	nethttp.StatusCreated:  true,
	nethttp.StatusAccepted: true,
}

// Request is the immutable set of inputs for one logical HTTP request. At
// most one of Data, Body, Files, and JSON should describe the payload.
type Request struct {
	Method string
	Path   string
	// Params are query parameters; the reserved raw_json key is always
	// injected.
	Params map[string]string
	// Data is a form-encoded body; it is serialized as key-sorted pairs
	// with the reserved api_type key injected.
	Data map[string]any
	// Body is a raw payload that bypasses form normalization entirely.
	Body []byte
	// Files describe a multipart upload.
	Files []transport.FileField
	// JSON is a JSON body; the reserved api_type key is injected.
	JSON map[string]any
	// Timeout bounds each network attempt, not the whole retry sequence.
	Timeout time.Duration
}

// normalizedRequest is the wire-ready form threaded unchanged through
// every retry attempt.
type normalizedRequest struct {
	method string
	url    string
	opts   transport.RequestOptions
}

// Session is the low-level connection interface to the API.
type Session struct {
	authorizer auth.Authorizer
	requestor  *transport.Requestor
	limiter    ratelimit.Limiter
	retry      RetryStrategy
	log        logger.Logger
	sleep      func(time.Duration)
}

// Option configures a Session during construction.
type Option func(*Session)

// WithLimiter replaces the process-wide rate limiter.
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(s *Session) {
		s.limiter = limiter
	}
}

// WithRetryStrategy replaces the retry strategy template used for each
// logical request.
func WithRetryStrategy(strategy RetryStrategy) Option {
	return func(s *Session) {
		s.retry = strategy
	}
}

// WithLogger attaches a logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// New creates a Session around the given authorizer and requestor. A nil
// collaborator is a configuration error, raised here and never retried.
func New(authorizer auth.Authorizer, requestor *transport.Requestor, opts ...Option) (*Session, error) {
	if authorizer == nil {
		return nil, NewConfigurationError("invalid authorizer: nil")
	}
	if requestor == nil {
		return nil, NewConfigurationError("invalid requestor: nil")
	}

	s := &Session{
		authorizer: authorizer,
		requestor:  requestor,
		retry:      NewFiniteRetryStrategy(DefaultRetries),
		log:        logger.Nop(),
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(ratelimit.WithLogger(s.log))
	}
	return s, nil
}

// Close releases the underlying connection resources.
func (s *Session) Close() {
	s.requestor.Close()
}

// Request performs one logical API request, retrying transient failures
// and refreshing the access token as needed. It returns the decoded JSON
// body, "" for an empty body, or nil for a no-content response. Caller
// maps are never mutated.
func (s *Session) Request(ctx context.Context, req *Request) (any, error) {
	if req == nil {
		return nil, NewConfigurationError("request cannot be nil")
	}
	if req.Method == "" || req.Path == "" {
		return nil, NewConfigurationError("request method and path are required")
	}

	norm, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	ctx = trace.WithRequestID(ctx, trace.EnsureRequestID(ctx))
	log := s.log.WithFields(map[string]any{
		"request_id": trace.EnsureRequestID(ctx),
		"method":     norm.method,
		"url":        norm.url,
	})
	log.Debug().Interface("params", norm.opts.Params).Msg("Fetching")

	return s.requestWithRetries(ctx, log, norm)
}

// requestWithRetries runs the attempt loop, carrying an immutable retry
// strategy snapshot per iteration. Attempts are strictly sequential.
func (s *Session) requestWithRetries(ctx context.Context, log logger.Logger, norm normalizedRequest) (any, error) {
	state := s.retry

	for {
		resp, savedCause, err := s.makeAttempt(ctx, state, norm)
		if err != nil {
			return nil, err
		}

		if savedCause != nil {
			state = s.backoff(log, state, fmt.Sprintf("%T", savedCause.Cause()))
			continue
		}

		doRetry := false
		if resp.StatusCode == nethttp.StatusUnauthorized {
			s.authorizer.ClearAccessToken()
			if _, ok := s.authorizer.(auth.Refresher); ok {
				doRetry = true
			}
		}

		if state.ShouldRetryOnFailure() && (doRetry || retryStatuses[resp.StatusCode]) {
			state = s.backoff(log, state, fmt.Sprintf("%d", resp.StatusCode))
			continue
		}

		return s.classify(resp)
	}
}

// makeAttempt performs one network attempt through the rate limiter. A
// transient transport fault with retries remaining is returned as a saved
// cause; everything else fatal is returned as err.
func (s *Session) makeAttempt(ctx context.Context, state RetryStrategy, norm normalizedRequest) (*transport.Response, *transport.RequestError, error) {
	resp, err := s.limiter.Call(ctx, s.authHeaders, s.requestor.Request, norm.method, norm.url, norm.opts)
	if err != nil {
		var reqErr *transport.RequestError
		if errors.As(err, &reqErr) && state.ShouldRetryOnFailure() && transport.IsTransient(reqErr.Cause()) {
			return nil, reqErr, nil
		}
		return nil, nil, err
	}
	return resp, nil, nil
}

// backoff logs the retry cause, sleeps per the strategy, and consumes one
// retry. The first attempt never reaches here, so it never sleeps.
func (s *Session) backoff(log logger.Logger, state RetryStrategy, cause string) RetryStrategy {
	log.Warn().Str("cause", cause).Msg("Retrying request")
	if delay, ok := state.SleepDuration(); ok {
		log.Debug().Dur("delay", delay).Msg("Sleeping prior to retry")
		s.sleep(delay)
	}
	return state.ConsumeAvailableRetry()
}

// classify translates a terminal response into the caller-visible outcome.
func (s *Session) classify(resp *transport.Response) (any, error) {
	if construct, ok := statusErrors[resp.StatusCode]; ok {
		return nil, construct(resp)
	}
	if resp.StatusCode == nethttp.StatusNoContent {
		return nil, nil
	}
	if !successStatuses[resp.StatusCode] {
		return nil, &InvariantError{StatusCode: resp.StatusCode}
	}

	if len(resp.Body) == 0 {
		return "", nil
	}
	var decoded any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, NewBadJSONError(resp, err)
	}
	return decoded, nil
}

// authHeaders supplies the authorization header for one attempt,
// refreshing the token first when it is invalid and the authorizer
// supports refreshing.
func (s *Session) authHeaders(ctx context.Context) (nethttp.Header, error) {
	if !s.authorizer.IsValid() {
		if refresher, ok := s.authorizer.(auth.Refresher); ok {
			if err := refresher.Refresh(ctx); err != nil {
				return nil, err
			}
		} else if s.authorizer.AccessToken() == "" {
			return nil, NewConfigurationError("access token is missing and the authorizer cannot refresh")
		}
	}

	headers := nethttp.Header{}
	headers.Set("Authorization", "bearer "+s.authorizer.AccessToken())
	if id, ok := trace.IDFromContext(ctx); ok {
		headers.Set(trace.HeaderXRequestID, id)
	}
	return headers, nil
}

// normalize builds the wire-ready request. Caller-supplied maps are copied
// before the reserved keys are injected.
func (s *Session) normalize(req *Request) (normalizedRequest, error) {
	params := maps.Clone(req.Params)
	if params == nil {
		params = map[string]string{}
	}
	params["raw_json"] = "1"

	var fields []transport.FormField
	if req.Data != nil {
		data := maps.Clone(req.Data)
		data["api_type"] = "json"
		for _, key := range slices.Sorted(maps.Keys(data)) {
			fields = append(fields, transport.FormField{Key: key, Value: fmt.Sprint(data[key])})
		}
	}

	var jsonBody map[string]any
	if req.JSON != nil {
		jsonBody = maps.Clone(req.JSON)
		jsonBody["api_type"] = "json"
	}

	target, err := url.JoinPath(s.requestor.BaseURL(), req.Path)
	if err != nil {
		return normalizedRequest{}, NewConfigurationError(fmt.Sprintf("invalid request path %q: %v", req.Path, err))
	}

	return normalizedRequest{
		method: req.Method,
		url:    target,
		opts: transport.RequestOptions{
			Params:  params,
			Fields:  fields,
			JSON:    jsonBody,
			Files:   req.Files,
			RawBody: req.Body,
			Timeout: req.Timeout,
		},
	}, nil
}
