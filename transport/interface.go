package transport

import (
	"io"
	nethttp "net/http"
	"time"
)

const (
	// DefaultBaseURL is the authenticated API endpoint requests are
	// resolved against.
	DefaultBaseURL = "https://oauth.reddit.com"

	// DefaultTokenURL is the unauthenticated endpoint used for token
	// management.
	DefaultTokenURL = "https://www.reddit.com"

	// DefaultTimeout is the default per-attempt request timeout.
	DefaultTimeout = 16 * time.Second
)

// FormField is one key/value pair of a form-encoded body. Fields are
// serialized in slice order, so callers control the wire ordering.
type FormField struct {
	Key   string
	Value string
}

// FileField describes one part of a multipart upload.
type FileField struct {
	FieldName string
	FileName  string
	Reader    io.Reader
}

// RequestOptions carries everything beyond method and URL needed for one
// network attempt. At most one of Fields, JSON, Files, and RawBody should
// be set.
type RequestOptions struct {
	Headers nethttp.Header
	Params  map[string]string
	Fields  []FormField
	JSON    map[string]any
	Files   []FileField
	RawBody []byte
	Timeout time.Duration
}

// Response is the materialized result of one network attempt. The body is
// fully read and the connection released before it is returned.
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	Body       []byte
}
