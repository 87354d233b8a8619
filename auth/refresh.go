package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// expirySlack is subtracted from the reported token lifetime so a token is
// treated as expired slightly before the server would reject it.
const expirySlack = 10 * time.Second

// ErrNilRefreshFunc is returned when a RefreshAuthorizer is constructed
// without a refresh callback.
var ErrNilRefreshFunc = errors.New("refresh callback must not be nil")

// Token is the result of one token renewal.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
	Scopes      []string
}

// RefreshFunc obtains a new access token. The grant flow behind it
// (refresh-token exchange, client credentials, anything else) is the
// caller's business.
type RefreshFunc func(ctx context.Context) (*Token, error)

// RefreshAuthorizer holds an access token that can be renewed through a
// RefreshFunc. Concurrent refreshes collapse into a single callback
// invocation.
type RefreshAuthorizer struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	scopes    []string

	refresh RefreshFunc
	group   singleflight.Group
	now     func() time.Time
}

var (
	_ Authorizer = (*RefreshAuthorizer)(nil)
	_ Refresher  = (*RefreshAuthorizer)(nil)
)

// NewRefreshable creates an authorizer that renews its token via fn.
func NewRefreshable(fn RefreshFunc) (*RefreshAuthorizer, error) {
	if fn == nil {
		return nil, ErrNilRefreshFunc
	}
	return &RefreshAuthorizer{
		refresh: fn,
		now:     time.Now,
	}, nil
}

// IsValid reports whether a non-expired token is held.
func (a *RefreshAuthorizer) IsValid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token != "" && a.now().Before(a.expiresAt)
}

// AccessToken returns the held token value.
func (a *RefreshAuthorizer) AccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// ClearAccessToken drops the held token. The next authenticated call will
// trigger a refresh.
func (a *RefreshAuthorizer) ClearAccessToken() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	a.expiresAt = time.Time{}
}

// Scopes returns the scopes granted with the current token.
func (a *RefreshAuthorizer) Scopes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.scopes...)
}

// Refresh renews the access token. Concurrent callers share one callback
// invocation and its outcome.
func (a *RefreshAuthorizer) Refresh(ctx context.Context) error {
	_, err, _ := a.group.Do("refresh", func() (any, error) {
		token, err := a.refresh(ctx)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		a.token = token.AccessToken
		a.expiresAt = a.now().Add(token.ExpiresIn - expirySlack)
		a.scopes = append([]string(nil), token.Scopes...)
		return nil, nil
	})
	return err
}
