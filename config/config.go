// Package config loads client configuration from defaults, an optional
// YAML file, and environment variables, in increasing priority order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gaborage/redditcore/transport"
)

// envPrefix namespaces the environment variables read by Load, e.g.
// REDDITCORE_CLIENT_USER_AGENT maps to client.user_agent.
const envPrefix = "REDDITCORE_"

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty and the file exists), and environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "_", ".")
			// user.agent and friends use underscores in their final
			// segment; map the known two-word keys back.
			key = restoreCompoundKeys(key)
			return key, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finish(k)
}

// LoadFromBytes builds the configuration from defaults overlaid with the
// given YAML document. Intended for embedding and tests.
func LoadFromBytes(doc []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(doc), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config document: %w", err)
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.base_url":   transport.DefaultBaseURL,
		"client.token_url":  transport.DefaultTokenURL,
		"client.timeout":    transport.DefaultTimeout.String(),
		"client.retries":    3,
		"client.rate_floor": 0.0,
		"client.rate_burst": 1,

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// compoundKeys are config keys whose final segment contains an underscore,
// which the flat env-var transform would otherwise split.
var compoundKeys = []string{
	"client.user_agent",
	"client.base_url",
	"client.token_url",
	"client.rate_floor",
	"client.rate_burst",
	"auth.access_token",
}

func restoreCompoundKeys(key string) string {
	for _, compound := range compoundKeys {
		if strings.ReplaceAll(compound, "_", ".") == key {
			return compound
		}
	}
	return key
}
