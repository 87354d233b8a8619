package config

import "time"

// Config is the full client configuration tree.
type Config struct {
	Client ClientConfig `koanf:"client"`
	Auth   AuthConfig   `koanf:"auth"`
	Log    LogConfig    `koanf:"log"`
}

// ClientConfig configures the transport and retry behavior.
type ClientConfig struct {
	// UserAgent identifies the client to the API; required by the API's
	// terms and must be descriptive.
	UserAgent string `koanf:"user_agent" validate:"required,min=8"`
	// BaseURL is the authenticated API endpoint.
	BaseURL string `koanf:"base_url" validate:"required,url"`
	// TokenURL is the token-management endpoint.
	TokenURL string `koanf:"token_url" validate:"required,url"`
	// Timeout bounds each network attempt.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// Retries is the number of attempts per logical request.
	Retries int `koanf:"retries" validate:"gte=1"`
	// RateFloor caps local request pacing in requests per second;
	// zero disables the floor and leaves pacing to the server headers.
	RateFloor float64 `koanf:"rate_floor" validate:"gte=0"`
	// RateBurst is the burst size for the local pacing floor.
	RateBurst int `koanf:"rate_burst" validate:"gte=0"`
}

// AuthConfig carries a pre-obtained access token for static authorization.
type AuthConfig struct {
	AccessToken string `koanf:"access_token"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}
