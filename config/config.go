// Package config provides YAML configuration parsing for the linkpoll
// command line tools.
//
// This package enables running the listener as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	endpoint: https://backend.example.com/poll
//	api_key: ${ANNAI_API_KEY:-}
//	ping_interval: 10s
//	webhook_interval: 60s
//
//	validation:
//	  allowed_domains: [secret.annai.ai]
//	  require_password: true
//
//	links:
//	  - name: deploy-alerts
//	    url: https://secret.annai.ai/link/abc123def456ghi789?password=hunter2
//	  - url: ${RELAY_LINK_URL}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annai-ai/linkpoll"
)

// Config is the root configuration structure for the linkpoll tools.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Endpoint is the polling backend URL the client talks to. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Endpoint string `yaml:"endpoint"`

	// APIKey is the bearer credential sent with every poll request.
	// Values support environment variable substitution.
	APIKey string `yaml:"api_key"`

	// PingInterval is the base polling cadence for ping links.
	// Accepts duration strings like "10s", "1m", "500ms".
	// Defaults to 10s.
	PingInterval Duration `yaml:"ping_interval"`

	// WebhookInterval is the base polling cadence for webhook links.
	// Defaults to 60s.
	WebhookInterval Duration `yaml:"webhook_interval"`

	// Debug enables per-cycle debug logging.
	Debug bool `yaml:"debug"`

	// Validation restricts which link URLs the listener accepts.
	Validation ValidationConfig `yaml:"validation"`

	// Links are the link URLs to listen on.
	Links []LinkConfig `yaml:"links"`
}

// ValidationConfig is the link acceptance policy.
type ValidationConfig struct {
	// AllowedDomains, when non-empty, restricts links to the given hosts.
	AllowedDomains []string `yaml:"allowed_domains"`

	// AllowedLinkKinds, when non-empty, restricts links to the given
	// kinds: "ping" or "webhook".
	AllowedLinkKinds []string `yaml:"allowed_link_kinds"`

	// RequirePassword rejects links without a password query parameter.
	RequirePassword bool `yaml:"require_password"`
}

// LinkConfig defines a single link to listen on.
type LinkConfig struct {
	// Name is an optional display name used in log lines and output.
	// Names must be unique when set.
	Name string `yaml:"name"`

	// URL is the full link URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in Endpoint, APIKey, and link URL
// values. Defaults are applied for PingInterval (10s) and WebhookInterval
// (60s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.PingInterval == 0 {
		cfg.PingInterval = Duration(10 * time.Second)
	}
	if cfg.WebhookInterval == 0 {
		cfg.WebhookInterval = Duration(60 * time.Second)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	expanded, err := expandEnvVars(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	c.Endpoint = expanded

	parsedURL, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https, got %q", parsedURL.Scheme)
	}

	expanded, err = expandEnvVars(c.APIKey)
	if err != nil {
		return fmt.Errorf("api_key: %w", err)
	}
	c.APIKey = expanded

	if c.PingInterval.Duration() < time.Second {
		return fmt.Errorf("ping_interval must be at least 1s, got %s", c.PingInterval.Duration())
	}
	if c.WebhookInterval.Duration() < time.Second {
		return fmt.Errorf("webhook_interval must be at least 1s, got %s", c.WebhookInterval.Duration())
	}

	for _, kind := range c.Validation.AllowedLinkKinds {
		if _, err := kindFromString(kind); err != nil {
			return fmt.Errorf("validation.allowed_link_kinds: %w", err)
		}
	}

	if len(c.Links) == 0 {
		return errors.New("at least one link must be defined")
	}

	seenNames := make(map[string]struct{}, len(c.Links))
	for i := range c.Links {
		l := &c.Links[i]

		if l.URL == "" {
			return fmt.Errorf("links[%d]: url is required", i)
		}
		expanded, err := expandEnvVars(l.URL)
		if err != nil {
			return fmt.Errorf("links[%d]: url: %w", i, err)
		}
		l.URL = expanded

		// duplicate URLs are allowed; the same link may be listened on
		// more than once
		if d := linkpoll.ParseLink(l.URL); !d.Valid {
			return fmt.Errorf("links[%d] (%s): not a valid link URL", i, l.DisplayName(i))
		}

		if l.Name != "" {
			if _, exists := seenNames[l.Name]; exists {
				return fmt.Errorf("links[%d]: duplicate name %q", i, l.Name)
			}
			seenNames[l.Name] = struct{}{}
		}
	}

	return nil
}

// DisplayName returns the link's name, or a positional fallback for log and
// error output.
func (l LinkConfig) DisplayName(i int) string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("link-%d", i)
}

// kindFromString maps a configured kind string to a [linkpoll.LinkKind].
func kindFromString(s string) (linkpoll.LinkKind, error) {
	switch s {
	case "ping":
		return linkpoll.KindPing, nil
	case "webhook":
		return linkpoll.KindWebhook, nil
	default:
		return "", fmt.Errorf("unknown link kind %q (expected 'ping' or 'webhook')", s)
	}
}
