package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
endpoint: https://backend.example.com/poll
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.Endpoint != "https://backend.example.com/poll" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.PingInterval.Duration() != 10*time.Second {
		t.Errorf("PingInterval = %v, want default 10s", cfg.PingInterval.Duration())
	}
	if cfg.WebhookInterval.Duration() != 60*time.Second {
		t.Errorf("WebhookInterval = %v, want default 60s", cfg.WebhookInterval.Duration())
	}
	if cfg.Debug {
		t.Error("Debug = true, want default false")
	}
	if len(cfg.Links) != 1 {
		t.Fatalf("len(Links) = %d, want 1", len(cfg.Links))
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
endpoint: http://localhost:8080/poll
api_key: sk-test
ping_interval: 5s
webhook_interval: 2m
debug: true

validation:
  allowed_domains: [secret.annai.ai, links.annai.ai]
  allowed_link_kinds: [ping, webhook]
  require_password: true

links:
  - name: deploy-alerts
    url: https://secret.annai.ai/link/abc123def456ghi789?password=hunter2
  - name: build-feed
    url: https://links.annai.ai/link/abcdefghij0123456789abcdefghij?password=x
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.PingInterval.Duration() != 5*time.Second {
		t.Errorf("PingInterval = %v, want 5s", cfg.PingInterval.Duration())
	}
	if cfg.WebhookInterval.Duration() != 2*time.Minute {
		t.Errorf("WebhookInterval = %v, want 2m", cfg.WebhookInterval.Duration())
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if len(cfg.Validation.AllowedDomains) != 2 {
		t.Errorf("AllowedDomains = %v", cfg.Validation.AllowedDomains)
	}
	if !cfg.Validation.RequirePassword {
		t.Error("RequirePassword = false, want true")
	}
	if cfg.Links[0].Name != "deploy-alerts" {
		t.Errorf("Links[0].Name = %q", cfg.Links[0].Name)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing endpoint",
			yaml: `
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`,
			wantErr: "endpoint is required",
		},
		{
			name: "bad endpoint scheme",
			yaml: `
endpoint: ftp://backend.example.com/poll
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`,
			wantErr: "scheme must be http or https",
		},
		{
			name: "no links",
			yaml: `
endpoint: https://backend.example.com/poll
`,
			wantErr: "at least one link",
		},
		{
			name: "link missing url",
			yaml: `
endpoint: https://backend.example.com/poll
links:
  - name: broken
`,
			wantErr: "links[0]: url is required",
		},
		{
			name: "invalid link url",
			yaml: `
endpoint: https://backend.example.com/poll
links:
  - url: https://secret.annai.ai/link/short
`,
			wantErr: "not a valid link URL",
		},
		{
			name: "duplicate names",
			yaml: `
endpoint: https://backend.example.com/poll
links:
  - name: twin
    url: https://secret.annai.ai/link/abc123def456ghi789
  - name: twin
    url: https://secret.annai.ai/link/abc123def456ghi780
`,
			wantErr: `duplicate name "twin"`,
		},
		{
			name: "unknown link kind",
			yaml: `
endpoint: https://backend.example.com/poll
validation:
  allowed_link_kinds: [carrier-pigeon]
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`,
			wantErr: "unknown link kind",
		},
		{
			name: "ping interval too low",
			yaml: `
endpoint: https://backend.example.com/poll
ping_interval: 500ms
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`,
			wantErr: "ping_interval must be at least 1s",
		},
		{
			name: "webhook interval too low",
			yaml: `
endpoint: https://backend.example.com/poll
webhook_interval: 250ms
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`,
			wantErr: "webhook_interval must be at least 1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() did not return an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_DuplicateURLsAllowed(t *testing.T) {
	yaml := `
endpoint: https://backend.example.com/poll
links:
  - name: primary
    url: https://secret.annai.ai/link/abc123def456ghi789
  - name: shadow
    url: https://secret.annai.ai/link/abc123def456ghi789
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() rejected duplicate link URLs: %v", err)
	}
	if len(cfg.Links) != 2 {
		t.Errorf("len(Links) = %d, want 2", len(cfg.Links))
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("LINKPOLL_TEST_ENDPOINT", "https://backend.example.com/poll")
	t.Setenv("LINKPOLL_TEST_KEY", "sk-from-env")
	t.Setenv("LINKPOLL_TEST_TOKEN", "abc123def456ghi789")

	yaml := `
endpoint: ${LINKPOLL_TEST_ENDPOINT}
api_key: ${LINKPOLL_TEST_KEY}
links:
  - url: https://secret.annai.ai/link/${LINKPOLL_TEST_TOKEN}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.Endpoint != "https://backend.example.com/poll" {
		t.Errorf("Endpoint = %q, want the env value", cfg.Endpoint)
	}
	if cfg.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want the env value", cfg.APIKey)
	}
	if cfg.Links[0].URL != "https://secret.annai.ai/link/abc123def456ghi789" {
		t.Errorf("Links[0].URL = %q, want the expanded URL", cfg.Links[0].URL)
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
endpoint: ${LINKPOLL_UNSET_ENDPOINT:-https://backend.example.com/poll}
api_key: ${LINKPOLL_UNSET_KEY:-}
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.Endpoint != "https://backend.example.com/poll" {
		t.Errorf("Endpoint = %q, want the default value", cfg.Endpoint)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty from ${VAR:-}", cfg.APIKey)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
endpoint: https://backend.example.com/poll
links:
  - url: ${LINKPOLL_DEFINITELY_UNSET_VAR}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() did not return an error for a missing variable")
	}
	if !strings.Contains(err.Error(), "LINKPOLL_DEFINITELY_UNSET_VAR") {
		t.Errorf("error = %q, want it to name the missing variable", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("endpoint: [unclosed")); err == nil {
		t.Fatal("Parse() did not return an error for invalid YAML")
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	yaml := `
endpoint: https://backend.example.com/poll
ping_interval: banana
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() did not return an error for an invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %q, want an invalid duration error", err)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "10s", want: 10 * time.Second},
		{input: "1m30s", want: 90 * time.Second},
		{input: "150ms", want: 150 * time.Millisecond},
		{input: "banana", wantErr: true},
		{input: "10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out struct {
				D Duration `yaml:"d"`
			}
			err := yaml.Unmarshal([]byte("d: "+tt.input), &out)
			if tt.wantErr {
				if err == nil {
					t.Errorf("unmarshal %q did not return an error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal %q error: %v", tt.input, err)
			}
			if out.D.Duration() != tt.want {
				t.Errorf("Duration = %v, want %v", out.D.Duration(), tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkpoll.yaml")
	content := `
endpoint: https://backend.example.com/poll
links:
  - url: https://secret.annai.ai/link/abc123def456ghi789
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Endpoint != "https://backend.example.com/poll" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "no-such-file.yaml"))
	if err == nil {
		t.Fatal("Load() did not return an error for a missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %q, want a read failure", err)
	}
}
