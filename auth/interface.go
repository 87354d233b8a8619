// Package auth supplies bearer tokens to the session layer. It defines the
// authorizer contract the session consumes plus two token holders: a static
// one for pre-obtained tokens and a refreshable one that delegates renewal
// to a caller-supplied callback. OAuth grant flows themselves (code
// exchange, device flow, password grant) are deliberately outside this
// package; the callback keeps them in the caller's hands.
package auth

import "context"

// Authorizer supplies the bearer token attached to API requests.
// Implementations must be safe for concurrent use: one authorizer is
// typically shared by every in-flight logical request.
type Authorizer interface {
	// IsValid reports whether the held access token can still be used.
	IsValid() bool
	// AccessToken returns the current bearer token value, or "" when no
	// token is held.
	AccessToken() string
	// ClearAccessToken drops the held token, forcing a refresh (when
	// supported) before the next authenticated call.
	ClearAccessToken()
}

// Refresher is the optional capability of renewing an expired token. The
// session type-asserts for it; authorizers without it surface authorization
// failures to the caller instead of retrying.
type Refresher interface {
	Refresh(ctx context.Context) error
}
