package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/redditcore/transport"
)

const validDoc = `
client:
  user_agent: "redditcore:test (by /u/gaborage)"
`

func TestLoadFromBytesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "redditcore:test (by /u/gaborage)", cfg.Client.UserAgent)
	assert.Equal(t, transport.DefaultBaseURL, cfg.Client.BaseURL)
	assert.Equal(t, transport.DefaultTokenURL, cfg.Client.TokenURL)
	assert.Equal(t, transport.DefaultTimeout, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Client.Retries)
	assert.Zero(t, cfg.Client.RateFloor)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoadFromBytesOverrides(t *testing.T) {
	doc := `
client:
  user_agent: "redditcore:test (by /u/gaborage)"
  base_url: "https://example.com/api"
  timeout: 5s
  retries: 5
  rate_floor: 1.5
  rate_burst: 3
log:
  level: debug
  pretty: true
`
	cfg, err := LoadFromBytes([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/api", cfg.Client.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 5, cfg.Client.Retries)
	assert.Equal(t, 1.5, cfg.Client.RateFloor)
	assert.Equal(t, 3, cfg.Client.RateBurst)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadFromBytesMissingUserAgent(t *testing.T) {
	_, err := LoadFromBytes([]byte("log:\n  level: info\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UserAgent")
}

func TestLoadFromBytesInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"short user agent", "client:\n  user_agent: tiny\n"},
		{"bad base url", validDoc + "  base_url: not-a-url\n"},
		{"zero retries", validDoc + "  retries: 0\n"},
		{"negative rate floor", validDoc + "  rate_floor: -1\n"},
		{"unknown log level", validDoc + "log:\n  level: loud\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redditcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redditcore:test (by /u/gaborage)", cfg.Client.UserAgent)
}

func TestLoadMissingFileFallsBackToDefaultsAndEnv(t *testing.T) {
	t.Setenv("REDDITCORE_CLIENT_USER_AGENT", "redditcore:env (by /u/gaborage)")
	t.Setenv("REDDITCORE_CLIENT_RETRIES", "4")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "redditcore:env (by /u/gaborage)", cfg.Client.UserAgent)
	assert.Equal(t, 4, cfg.Client.Retries)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redditcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc+"  retries: 2\n"), 0o600))

	t.Setenv("REDDITCORE_CLIENT_RETRIES", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Client.Retries)
}

func TestLoadReadsAccessToken(t *testing.T) {
	t.Setenv("REDDITCORE_AUTH_ACCESS_TOKEN", "token-from-env")

	cfg, err := loadWithEnvOnly(t)
	require.NoError(t, err)
	assert.Equal(t, "token-from-env", cfg.Auth.AccessToken)
}

// loadWithEnvOnly loads configuration with a valid user agent plus
// whatever the test put in the environment.
func loadWithEnvOnly(t *testing.T) (*Config, error) {
	t.Helper()
	t.Setenv("REDDITCORE_CLIENT_USER_AGENT", "redditcore:env (by /u/gaborage)")
	return Load("")
}
