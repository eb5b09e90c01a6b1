package linkpoll

import (
	"strings"
	"testing"
)

// TestParseLink covers the accepted and rejected link URL shapes.
func TestParseLink(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantValid   bool
		wantToken   string
		wantKind    LinkKind
		wantDomain  string
		wantHasPass bool
		wantPass    string
		wantHasEnc  bool
		wantEncKey  string
	}{
		{
			name:       "ping link",
			url:        "https://secret.annai.ai/link/abc123def456ghi789",
			wantValid:  true,
			wantToken:  "abc123def456ghi789",
			wantKind:   KindPing,
			wantDomain: "secret.annai.ai",
		},
		{
			name:       "webhook link",
			url:        "https://secret.annai.ai/link/abcdefghij0123456789abcdefghij",
			wantValid:  true,
			wantToken:  "abcdefghij0123456789abcdefghij",
			wantKind:   KindWebhook,
			wantDomain: "secret.annai.ai",
		},
		{
			name:        "password query",
			url:         "https://secret.annai.ai/link/abc123def456ghi789?password=hunter2",
			wantValid:   true,
			wantToken:   "abc123def456ghi789",
			wantKind:    KindPing,
			wantDomain:  "secret.annai.ai",
			wantHasPass: true,
			wantPass:    "hunter2",
		},
		{
			name:       "encryption key fragment",
			url:        "https://secret.annai.ai/link/abc123def456ghi789#a1b2c3d4",
			wantValid:  true,
			wantToken:  "abc123def456ghi789",
			wantKind:   KindPing,
			wantDomain: "secret.annai.ai",
			wantHasEnc: true,
			wantEncKey: "a1b2c3d4",
		},
		{
			name:        "password and fragment together",
			url:         "https://secret.annai.ai/link/abc123def456ghi789?password=pw#key",
			wantValid:   true,
			wantToken:   "abc123def456ghi789",
			wantKind:    KindPing,
			wantDomain:  "secret.annai.ai",
			wantHasPass: true,
			wantPass:    "pw",
			wantHasEnc:  true,
			wantEncKey:  "key",
		},
		{
			name:       "http scheme",
			url:        "http://links.example.com/link/tok_en-123456",
			wantValid:  true,
			wantToken:  "tok_en-123456",
			wantKind:   KindPing,
			wantDomain: "links.example.com",
		},
		{
			name:       "host with port",
			url:        "https://secret.annai.ai:8443/link/abc123def456ghi789",
			wantValid:  true,
			wantToken:  "abc123def456ghi789",
			wantKind:   KindPing,
			wantDomain: "secret.annai.ai",
		},
		{
			name:      "empty password value is no password",
			url:       "https://secret.annai.ai/link/abc123def456ghi789?password=",
			wantValid: true, wantToken: "abc123def456ghi789", wantKind: KindPing, wantDomain: "secret.annai.ai",
		},
		{name: "empty string", url: ""},
		{name: "not a url", url: "::::"},
		{name: "wrong scheme", url: "ftp://secret.annai.ai/link/abc123def456ghi789"},
		{name: "no scheme", url: "secret.annai.ai/link/abc123def456ghi789"},
		{name: "host without dot", url: "https://localhost/link/abc123def456ghi789"},
		{name: "missing host", url: "https:///link/abc123def456ghi789"},
		{name: "token too short", url: "https://secret.annai.ai/link/short123456"},
		{name: "token too long", url: "https://secret.annai.ai/link/" + strings.Repeat("a", 65)},
		{name: "token with bad characters", url: "https://secret.annai.ai/link/abc123def456!789"},
		{name: "wrong path", url: "https://secret.annai.ai/links/abc123def456ghi789"},
		{name: "trailing slash", url: "https://secret.annai.ai/link/abc123def456ghi789/"},
		{name: "no path", url: "https://secret.annai.ai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseLink(tt.url)

			if d.Valid != tt.wantValid {
				t.Fatalf("ParseLink(%q).Valid = %v, want %v", tt.url, d.Valid, tt.wantValid)
			}
			if !tt.wantValid {
				if d != (Descriptor{}) {
					t.Errorf("invalid descriptor carries data: %+v", d)
				}
				return
			}
			if d.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", d.Token, tt.wantToken)
			}
			if d.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", d.Kind, tt.wantKind)
			}
			if d.Domain != tt.wantDomain {
				t.Errorf("Domain = %q, want %q", d.Domain, tt.wantDomain)
			}
			if d.HasPassword != tt.wantHasPass {
				t.Errorf("HasPassword = %v, want %v", d.HasPassword, tt.wantHasPass)
			}
			if d.Password != tt.wantPass {
				t.Errorf("Password = %q, want %q", d.Password, tt.wantPass)
			}
			if d.HasEncryption != tt.wantHasEnc {
				t.Errorf("HasEncryption = %v, want %v", d.HasEncryption, tt.wantHasEnc)
			}
			if d.EncryptionKey != tt.wantEncKey {
				t.Errorf("EncryptionKey = %q, want %q", d.EncryptionKey, tt.wantEncKey)
			}
		})
	}
}

// TestParseLink_KindBoundary pins the token length where the inferred kind
// flips from ping to webhook.
func TestParseLink_KindBoundary(t *testing.T) {
	ping := ParseLink("https://secret.annai.ai/link/" + strings.Repeat("a", 24))
	if !ping.Valid || ping.Kind != KindPing {
		t.Errorf("24 character token: Valid = %v, Kind = %q, want valid ping", ping.Valid, ping.Kind)
	}

	webhook := ParseLink("https://secret.annai.ai/link/" + strings.Repeat("a", 25))
	if !webhook.Valid || webhook.Kind != KindWebhook {
		t.Errorf("25 character token: Valid = %v, Kind = %q, want valid webhook", webhook.Valid, webhook.Kind)
	}
}

// TestParseLink_NeverPanics feeds hostile input; the only requirement is no
// panic and an invalid descriptor.
func TestParseLink_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"%%%",
		"https://",
		"https://secret.annai.ai/link/",
		"https://secret.annai.ai/link",
		"\x00\x01\x02",
		strings.Repeat("https://a.b/link/", 1000),
		"javascript:alert(1)",
		"https://a.b/link/" + strings.Repeat("-", 65) + "?password=#",
	}

	for _, in := range inputs {
		if d := ParseLink(in); d.Valid {
			t.Errorf("ParseLink(%q).Valid = true, want false", in)
		}
	}
}

// TestRedactToken verifies tokens are cut to a short prefix, with short
// tokens passed through whole.
func TestRedactToken(t *testing.T) {
	if got := redactToken("abc123def456ghi789"); got != "abc123de..." {
		t.Errorf("redactToken() = %q, want %q", got, "abc123de...")
	}
	if got := redactToken("short"); got != "short" {
		t.Errorf("redactToken() = %q, want %q", got, "short")
	}
}
