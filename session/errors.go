package session

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/gaborage/redditcore/transport"
)

// ClientError is the common surface of every typed error raised by the
// session layer.
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error.
type ErrorType string

const (
	ConfigurationError       ErrorType = "configuration"
	BadRequestError          ErrorType = "bad_request"
	ForbiddenError           ErrorType = "forbidden"
	InsufficientScopeError   ErrorType = "insufficient_scope"
	InvalidTokenError        ErrorType = "invalid_token"
	NotFoundError            ErrorType = "not_found"
	RedirectError            ErrorType = "redirect"
	ConflictError            ErrorType = "conflict"
	TooLargeError            ErrorType = "too_large"
	URITooLongError          ErrorType = "uri_too_long"
	SpecialError             ErrorType = "special"
	TooManyRequestsError     ErrorType = "too_many_requests"
	UnavailableForLegalError ErrorType = "unavailable_for_legal_reasons"
	ServerErrorType          ErrorType = "server_error"
	BadJSONError             ErrorType = "bad_json"
)

// configurationError reports invalid wiring detected before any network
// activity. It is never retried.
type configurationError struct {
	message string
}

func (e *configurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.message)
}

func (e *configurationError) Type() ErrorType {
	return ConfigurationError
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) ClientError {
	return &configurationError{message: message}
}

// ResponseError is a terminal, typed outcome derived from an HTTP
// response. The triggering response stays attached for inspection.
type ResponseError struct {
	errorType ErrorType
	response  *transport.Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s error (status: %d)", e.errorType, e.response.StatusCode)
}

// Type returns the error category.
func (e *ResponseError) Type() ErrorType {
	return e.errorType
}

// StatusCode returns the HTTP status that produced the error.
func (e *ResponseError) StatusCode() int {
	return e.response.StatusCode
}

// Headers returns the response headers.
func (e *ResponseError) Headers() nethttp.Header {
	return e.response.Headers
}

// Body returns the raw response body.
func (e *ResponseError) Body() []byte {
	return e.response.Body
}

// Location returns the redirect target for redirect errors, "" otherwise.
func (e *ResponseError) Location() string {
	return e.response.Headers.Get("Location")
}

// NewResponseError creates a typed error from a response.
func NewResponseError(errorType ErrorType, response *transport.Response) *ResponseError {
	return &ResponseError{errorType: errorType, response: response}
}

// badJSONError reports a success-status response whose body is not valid
// JSON, which means the API contract was broken mid-flight.
type badJSONError struct {
	response *transport.Response
	cause    error
}

func (e *badJSONError) Error() string {
	return fmt.Sprintf("bad JSON error: %d-byte body is not valid JSON: %v", len(e.response.Body), e.cause)
}

func (e *badJSONError) Type() ErrorType {
	return BadJSONError
}

func (e *badJSONError) Unwrap() error {
	return e.cause
}

// NewBadJSONError creates a malformed-payload error.
func NewBadJSONError(response *transport.Response, cause error) ClientError {
	return &badJSONError{response: response, cause: cause}
}

// InvariantError signals a response status outside every anticipated set.
// It is deliberately not part of the ClientError taxonomy: it marks an API
// contract change, not a recoverable condition.
type InvariantError struct {
	StatusCode int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// statusErrors maps terminal statuses to their error constructors. Kept as
// a table so the classification stays exhaustive and testable.
var statusErrors = map[int]func(*transport.Response) error{
	nethttp.StatusMovedPermanently:           redirectError,
	nethttp.StatusFound:                      redirectError,
	nethttp.StatusBadRequest:                 responseError(BadRequestError),
	nethttp.StatusUnauthorized:               authorizationError,
	nethttp.StatusForbidden:                  authorizationError,
	nethttp.StatusNotFound:                   responseError(NotFoundError),
	nethttp.StatusConflict:                   responseError(ConflictError),
	nethttp.StatusRequestEntityTooLarge:      responseError(TooLargeError),
	nethttp.StatusRequestURITooLong:          responseError(URITooLongError),
	nethttp.StatusUnsupportedMediaType:       responseError(SpecialError),
	statusTooManyRequests:                    responseError(TooManyRequestsError),
	nethttp.StatusUnavailableForLegalReasons: responseError(UnavailableForLegalError),
	nethttp.StatusInternalServerError:        responseError(ServerErrorType),
	nethttp.StatusBadGateway:                 responseError(ServerErrorType),
	nethttp.StatusServiceUnavailable:         responseError(ServerErrorType),
	nethttp.StatusGatewayTimeout:             responseError(ServerErrorType),
	statusCloudflareUnknown:                  responseError(ServerErrorType),
	statusCloudflareTimeout:                  responseError(ServerErrorType),
}

const (
	// statusTooManyRequests is the API's non-standard enhance-your-calm
	// status used instead of 429.
	statusTooManyRequests = 420

	// Cloudflare-specific statuses not named by net/http.
	statusCloudflareUnknown = 520
	statusCloudflareTimeout = 522
)

func responseError(errorType ErrorType) func(*transport.Response) error {
	return func(response *transport.Response) error {
		return NewResponseError(errorType, response)
	}
}

func redirectError(response *transport.Response) error {
	return NewResponseError(RedirectError, response)
}

// authorizationError distinguishes the 401/403 family using the
// www-authenticate challenge when the server provides one.
func authorizationError(response *transport.Response) error {
	if challenge := response.Headers.Get("www-authenticate"); challenge != "" {
		cleaned := strings.ReplaceAll(challenge, `"`, "")
		if idx := strings.LastIndex(cleaned, "="); idx >= 0 {
			switch cleaned[idx+1:] {
			case "insufficient_scope":
				return NewResponseError(InsufficientScopeError, response)
			case "invalid_token":
				return NewResponseError(InvalidTokenError, response)
			}
		}
	}
	if response.StatusCode == nethttp.StatusForbidden {
		return NewResponseError(ForbiddenError, response)
	}
	return NewResponseError(InvalidTokenError, response)
}

// IsErrorType checks if an error is of a specific type.
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}
