package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAuthorizer(t *testing.T) {
	a := NewStatic("token-value")

	assert.True(t, a.IsValid())
	assert.Equal(t, "token-value", a.AccessToken())

	a.ClearAccessToken()
	assert.False(t, a.IsValid())
	assert.Empty(t, a.AccessToken())
}

func TestStaticAuthorizerEmptyTokenInvalid(t *testing.T) {
	assert.False(t, NewStatic("").IsValid())
}

func TestNewRefreshableRequiresCallback(t *testing.T) {
	_, err := NewRefreshable(nil)
	assert.ErrorIs(t, err, ErrNilRefreshFunc)
}

func TestRefreshAuthorizerLifecycle(t *testing.T) {
	a, err := NewRefreshable(func(context.Context) (*Token, error) {
		return &Token{
			AccessToken: "fresh-token",
			ExpiresIn:   time.Hour,
			Scopes:      []string{"read", "identity"},
		}, nil
	})
	require.NoError(t, err)

	assert.False(t, a.IsValid())
	assert.Empty(t, a.AccessToken())

	require.NoError(t, a.Refresh(context.Background()))
	assert.True(t, a.IsValid())
	assert.Equal(t, "fresh-token", a.AccessToken())
	assert.Equal(t, []string{"read", "identity"}, a.Scopes())

	a.ClearAccessToken()
	assert.False(t, a.IsValid())
	assert.Empty(t, a.AccessToken())
}

func TestRefreshAuthorizerExpiry(t *testing.T) {
	current := time.Unix(1000, 0)
	a, err := NewRefreshable(func(context.Context) (*Token, error) {
		return &Token{AccessToken: "tok", ExpiresIn: time.Minute}, nil
	})
	require.NoError(t, err)
	a.now = func() time.Time { return current }

	require.NoError(t, a.Refresh(context.Background()))
	assert.True(t, a.IsValid())

	// Still valid just before the slack-adjusted expiry.
	current = time.Unix(1000, 0).Add(time.Minute - expirySlack - time.Second)
	assert.True(t, a.IsValid())

	// Expired once the slack window is reached.
	current = time.Unix(1000, 0).Add(time.Minute - expirySlack)
	assert.False(t, a.IsValid())
}

func TestRefreshAuthorizerPropagatesError(t *testing.T) {
	a, err := NewRefreshable(func(context.Context) (*Token, error) {
		return nil, assert.AnError
	})
	require.NoError(t, err)

	assert.ErrorIs(t, a.Refresh(context.Background()), assert.AnError)
	assert.False(t, a.IsValid())
}

func TestRefreshAuthorizerDeduplicatesConcurrentRefreshes(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	a, err := NewRefreshable(func(context.Context) (*Token, error) {
		calls.Add(1)
		<-release
		return &Token{AccessToken: "tok", ExpiresIn: time.Hour}, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Refresh(context.Background()))
		}()
	}

	// Give the goroutines time to pile onto the in-flight refresh.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "tok", a.AccessToken())
}
