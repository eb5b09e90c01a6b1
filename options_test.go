package linkpoll

import (
	"net/http"
	"testing"
	"time"
)

// TestNew_RequiresEndpoint verifies construction fails without a polling
// endpoint.
func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Fatal("New(\"\") did not return an error")
	}
}

// TestNew_RejectsMalformedEndpoint verifies endpoint URLs are validated at
// construction time.
func TestNew_RejectsMalformedEndpoint(t *testing.T) {
	bad := []string{
		"://missing-scheme",
		"ftp://backend.example.com/poll",
		"backend.example.com/poll",
		"https://",
	}
	for _, endpoint := range bad {
		if _, err := New(endpoint); err == nil {
			t.Errorf("New(%q) did not return an error", endpoint)
		}
	}
}

// TestNew_Defaults verifies the documented defaults when no options are
// given.
func TestNew_Defaults(t *testing.T) {
	client, err := New("https://backend.example.com/poll")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if got := client.Endpoint(); got != "https://backend.example.com/poll" {
		t.Errorf("Endpoint() = %q, want the constructor argument", got)
	}
	if got := client.PingInterval(); got != 10*time.Second {
		t.Errorf("PingInterval() = %v, want 10s", got)
	}
	if got := client.WebhookInterval(); got != 60*time.Second {
		t.Errorf("WebhookInterval() = %v, want 60s", got)
	}
	if client.IsListening() {
		t.Error("IsListening() = true for a fresh client")
	}
}

// TestNew_AppliesIntervalOverrides verifies custom cadences are respected.
func TestNew_AppliesIntervalOverrides(t *testing.T) {
	client, err := New("https://backend.example.com/poll",
		WithPingInterval(2*time.Second),
		WithWebhookInterval(90*time.Second),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if got := client.PingInterval(); got != 2*time.Second {
		t.Errorf("PingInterval() = %v, want 2s", got)
	}
	if got := client.WebhookInterval(); got != 90*time.Second {
		t.Errorf("WebhookInterval() = %v, want 90s", got)
	}
}

// TestNew_IntervalFloor verifies sub-second cadences are rejected and the
// one second floor itself is accepted.
func TestNew_IntervalFloor(t *testing.T) {
	if _, err := New("https://backend.example.com/poll", WithPingInterval(500*time.Millisecond)); err == nil {
		t.Error("WithPingInterval(500ms) was accepted")
	}
	if _, err := New("https://backend.example.com/poll", WithWebhookInterval(999*time.Millisecond)); err == nil {
		t.Error("WithWebhookInterval(999ms) was accepted")
	}
	if _, err := New("https://backend.example.com/poll", WithPingInterval(time.Second)); err != nil {
		t.Errorf("WithPingInterval(1s) rejected: %v", err)
	}
}

// TestNew_RejectsNilLogger verifies WithLogger validates its argument.
func TestNew_RejectsNilLogger(t *testing.T) {
	if _, err := New("https://backend.example.com/poll", WithLogger(nil)); err == nil {
		t.Error("WithLogger(nil) was accepted")
	}
}

// TestNew_RejectsNilHTTPClient verifies WithHTTPClient validates its
// argument.
func TestNew_RejectsNilHTTPClient(t *testing.T) {
	if _, err := New("https://backend.example.com/poll", WithHTTPClient(nil)); err == nil {
		t.Error("WithHTTPClient(nil) was accepted")
	}
	if _, err := New("https://backend.example.com/poll", WithHTTPClient(http.DefaultClient)); err != nil {
		t.Errorf("WithHTTPClient(http.DefaultClient) rejected: %v", err)
	}
}

// TestNew_ValidatesPolicyOptions verifies the allow-list options reject
// empty and unknown values.
func TestNew_ValidatesPolicyOptions(t *testing.T) {
	if _, err := New("https://backend.example.com/poll", WithAllowedDomains()); err == nil {
		t.Error("WithAllowedDomains() with no domains was accepted")
	}
	if _, err := New("https://backend.example.com/poll", WithAllowedLinkKinds()); err == nil {
		t.Error("WithAllowedLinkKinds() with no kinds was accepted")
	}
	if _, err := New("https://backend.example.com/poll", WithAllowedLinkKinds(LinkKind("carrier-pigeon"))); err == nil {
		t.Error("unknown link kind was accepted")
	}
	if _, err := New("https://backend.example.com/poll", WithAllowedLinkKinds(KindPing, KindWebhook)); err != nil {
		t.Errorf("valid link kinds rejected: %v", err)
	}
}

// TestNew_NilErrorHandlerIgnored verifies a nil error handler is treated as
// absent rather than failing construction.
func TestNew_NilErrorHandlerIgnored(t *testing.T) {
	if _, err := New("https://backend.example.com/poll", WithErrorHandler(nil)); err != nil {
		t.Errorf("WithErrorHandler(nil) rejected: %v", err)
	}
}
