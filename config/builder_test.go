package config

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/annai-ai/linkpoll"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildOptions_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(`
endpoint: https://backend.example.com/poll
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error: %v", err)
	}

	client, err := linkpoll.New(cfg.Endpoint, opts...)
	if err != nil {
		t.Fatalf("New() with built options error: %v", err)
	}
	if client.PingInterval() != 10*time.Second {
		t.Errorf("PingInterval = %v, want 10s", client.PingInterval())
	}
	if client.WebhookInterval() != 60*time.Second {
		t.Errorf("WebhookInterval = %v, want 60s", client.WebhookInterval())
	}
}

func TestBuildOptions_FullPolicy(t *testing.T) {
	cfg, err := Parse([]byte(`
endpoint: http://127.0.0.1:9/poll
api_key: sk-test
ping_interval: 2s
webhook_interval: 90s
debug: true

validation:
  allowed_domains: [secret.annai.ai]
  require_password: true

links:
  - url: https://secret.annai.ai/link/abc123def456ghi789?password=pw
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error: %v", err)
	}
	opts = append(opts, linkpoll.WithLogger(quietLogger()))

	client, err := linkpoll.New(cfg.Endpoint, opts...)
	if err != nil {
		t.Fatalf("New() with built options error: %v", err)
	}
	defer client.StopAll()

	if client.PingInterval() != 2*time.Second {
		t.Errorf("PingInterval = %v, want 2s", client.PingInterval())
	}
	if client.WebhookInterval() != 90*time.Second {
		t.Errorf("WebhookInterval = %v, want 90s", client.WebhookInterval())
	}

	// the policy from the config is live on the client
	_, err = client.StartListening("https://evil.example.com/link/abc123def456ghi789?password=pw", linkpoll.Callbacks{})
	if !errors.Is(err, linkpoll.ErrInvalidLink) {
		t.Errorf("disallowed domain error = %v, want ErrInvalidLink", err)
	}
	_, err = client.StartListening("https://secret.annai.ai/link/abc123def456ghi789", linkpoll.Callbacks{})
	if !errors.Is(err, linkpoll.ErrInvalidLink) {
		t.Errorf("passwordless link error = %v, want ErrInvalidLink", err)
	}
}

func TestBuildOptions_KindPolicy(t *testing.T) {
	cfg, err := Parse([]byte(`
endpoint: http://127.0.0.1:9/poll
validation:
  allowed_link_kinds: [webhook]
links:
  - url: https://secret.annai.ai/link/` + strings.Repeat("w", 32) + `
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error: %v", err)
	}
	opts = append(opts, linkpoll.WithLogger(quietLogger()))

	client, err := linkpoll.New(cfg.Endpoint, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer client.StopAll()

	// ping links are shut out
	_, err = client.StartListening("https://secret.annai.ai/link/abc123def456ghi789", linkpoll.Callbacks{})
	if !errors.Is(err, linkpoll.ErrInvalidLink) {
		t.Errorf("ping link error = %v, want ErrInvalidLink", err)
	}
}

func TestBuildOptions_UnknownKind(t *testing.T) {
	cfg := &Config{
		Endpoint:   "https://backend.example.com/poll",
		Validation: ValidationConfig{AllowedLinkKinds: []string{"smoke-signal"}},
	}

	if _, err := BuildOptions(cfg); err == nil {
		t.Fatal("BuildOptions() accepted an unknown link kind")
	}
}
