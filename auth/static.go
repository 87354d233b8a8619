package auth

import "sync"

// StaticAuthorizer holds a pre-obtained access token. It cannot refresh:
// once the token is cleared or rejected by the API the caller must build a
// new authorizer.
type StaticAuthorizer struct {
	mu    sync.Mutex
	token string
}

var _ Authorizer = (*StaticAuthorizer)(nil)

// NewStatic creates an authorizer around an existing access token.
func NewStatic(token string) *StaticAuthorizer {
	return &StaticAuthorizer{token: token}
}

// IsValid reports whether a token is held.
func (a *StaticAuthorizer) IsValid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token != ""
}

// AccessToken returns the held token value.
func (a *StaticAuthorizer) AccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// ClearAccessToken drops the held token.
func (a *StaticAuthorizer) ClearAccessToken() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
}
