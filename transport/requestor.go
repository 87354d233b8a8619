// Package transport performs the actual network calls for the library. It
// wraps net/http behind a Requestor that never follows redirects, applies
// per-attempt timeouts, and surfaces every wire-level fault as a
// RequestError carrying the original cause.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/gaborage/redditcore/logger"
)

// ErrInvalidUserAgent is returned when the configured user agent is missing
// or too short to identify the client to the API.
var ErrInvalidUserAgent = errors.New("user agent must be a descriptive string of more than 7 characters")

// Requestor issues HTTP requests on behalf of the session layer.
type Requestor struct {
	httpClient *nethttp.Client
	userAgent  string
	baseURL    string
	tokenURL   string
	log        logger.Logger
}

// Option configures a Requestor during construction.
type Option func(*Requestor)

// WithHTTPClient replaces the underlying *http.Client. The client's
// redirect policy is still overridden so redirects are never followed.
func WithHTTPClient(client *nethttp.Client) Option {
	return func(r *Requestor) {
		r.httpClient = client
	}
}

// WithBaseURL overrides the authenticated API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(r *Requestor) {
		r.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithTokenURL overrides the token-management endpoint.
func WithTokenURL(tokenURL string) Option {
	return func(r *Requestor) {
		r.tokenURL = strings.TrimSuffix(tokenURL, "/")
	}
}

// WithLogger attaches a logger for wire-level debug output.
func WithLogger(log logger.Logger) Option {
	return func(r *Requestor) {
		r.log = log
	}
}

// New creates a Requestor identified by userAgent. The user agent is
// required by the API's terms and must be descriptive.
func New(userAgent string, opts ...Option) (*Requestor, error) {
	if len(strings.TrimSpace(userAgent)) <= 7 {
		return nil, fmt.Errorf("%w (got %q)", ErrInvalidUserAgent, userAgent)
	}

	r := &Requestor{
		userAgent: userAgent,
		baseURL:   DefaultBaseURL,
		tokenURL:  DefaultTokenURL,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.httpClient == nil {
		r.httpClient = &nethttp.Client{}
	}
	// Redirect handling belongs to the classification layer, never to the
	// wire layer.
	r.httpClient.CheckRedirect = func(_ *nethttp.Request, _ []*nethttp.Request) error {
		return nethttp.ErrUseLastResponse
	}

	return r, nil
}

// BaseURL returns the endpoint request paths are resolved against.
func (r *Requestor) BaseURL() string {
	return r.baseURL
}

// TokenURL returns the token-management endpoint.
func (r *Requestor) TokenURL() string {
	return r.tokenURL
}

// UserAgent returns the configured client identification string.
func (r *Requestor) UserAgent() string {
	return r.userAgent
}

// Request performs one network attempt. Every wire-level fault, including a
// body read that fails midway, is returned as a *RequestError whose cause
// is reachable via errors.Is/As.
func (r *Requestor) Request(ctx context.Context, method, rawURL string, opts RequestOptions) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := r.buildRequest(ctx, method, rawURL, opts)
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("method", method).
		Str("url", req.URL.String()).
		Msg("Performing request")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, NewRequestError("request execution failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewRequestError("failed to read response body", err)
	}

	r.log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("Received response")

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// Close releases the underlying connection resources.
func (r *Requestor) Close() {
	r.httpClient.CloseIdleConnections()
}

func (r *Requestor) buildRequest(ctx context.Context, method, rawURL string, opts RequestOptions) (*nethttp.Request, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewRequestError("invalid request URL", err)
	}
	if len(opts.Params) > 0 {
		query := target.Query()
		for key, value := range opts.Params {
			query.Set(key, value)
		}
		target.RawQuery = query.Encode()
	}

	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, NewRequestError("failed to create request", err)
	}

	req.Header.Set("User-Agent", r.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range opts.Headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	return req, nil
}

// encodeBody renders at most one structured body form. Form fields are
// serialized in slice order so the caller controls the wire ordering.
func encodeBody(opts RequestOptions) (io.Reader, string, error) {
	switch {
	case len(opts.Files) > 0:
		return encodeMultipart(opts)
	case len(opts.Fields) > 0:
		return strings.NewReader(encodeFields(opts.Fields)), "application/x-www-form-urlencoded", nil
	case opts.JSON != nil:
		encoded, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, "", NewRequestError("failed to encode JSON body", err)
		}
		return bytes.NewReader(encoded), "application/json", nil
	case opts.RawBody != nil:
		return bytes.NewReader(opts.RawBody), "", nil
	default:
		return nil, "", nil
	}
}

func encodeFields(fields []FormField) string {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(field.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(field.Value))
	}
	return b.String()
}

func encodeMultipart(opts RequestOptions) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, field := range opts.Fields {
		if err := writer.WriteField(field.Key, field.Value); err != nil {
			return nil, "", NewRequestError("failed to encode multipart field", err)
		}
	}
	for _, file := range opts.Files {
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, "", NewRequestError("failed to create multipart file", err)
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return nil, "", NewRequestError("failed to copy multipart file", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", NewRequestError("failed to finalize multipart body", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
