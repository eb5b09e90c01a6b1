package linkpoll

import (
	"net/url"
	"regexp"
	"strings"
)

// linkPathPattern matches the path of a link URL: /link/<token> with a 12 to
// 64 character token drawn from the URL-safe alphabet.
var linkPathPattern = regexp.MustCompile(`^/link/([A-Za-z0-9_-]{12,64})$`)

// pingTokenMaxLen separates ping tokens from webhook tokens. The kind is
// inferred from token length alone; backends do not confirm it.
const pingTokenMaxLen = 24

// Descriptor is the parsed, validated form of a link URL.
//
// A Descriptor with Valid set to false carries no other information; all
// remaining fields are zero. A valid Descriptor is immutable input for one
// listener: the token and kind go on the wire, the password accompanies
// poll requests when present, and the encryption key stays client-side
// (payload decryption is the application's concern, never the SDK's).
type Descriptor struct {
	// Valid reports whether the URL parsed as a link at all.
	Valid bool

	// Token is the opaque link identifier from the URL path.
	Token string

	// Kind is the channel kind inferred from the token length.
	Kind LinkKind

	// HasPassword reports whether the URL carried a password query
	// parameter.
	HasPassword bool

	// HasEncryption reports whether the URL carried a key fragment.
	HasEncryption bool

	// Domain is the host the link was minted on.
	Domain string

	// Password is the password query parameter value, when present.
	Password string

	// EncryptionKey is the URL fragment, when present. It never leaves the
	// client.
	EncryptionKey string
}

// ParseLink parses a link URL of the form
//
//	https://<host>/link/<token>[?password=<pw>][#<key>]
//
// into a [Descriptor]. Malformed input of any shape yields a Descriptor with
// Valid set to false; ParseLink never panics and never returns an error.
//
// The host must contain a dot, the scheme must be http or https, and the
// token must be 12 to 64 characters of [A-Za-z0-9_-]. Tokens up to 24
// characters parse as ping links, longer ones as webhook links.
func ParseLink(rawURL string) Descriptor {
	if rawURL == "" {
		return Descriptor{}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Descriptor{}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Descriptor{}
	}

	host := u.Hostname()
	if host == "" || !strings.Contains(host, ".") {
		return Descriptor{}
	}

	m := linkPathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return Descriptor{}
	}
	token := m[1]

	d := Descriptor{
		Valid:  true,
		Token:  token,
		Kind:   kindForToken(token),
		Domain: host,
	}
	if pw := u.Query().Get("password"); pw != "" {
		d.HasPassword = true
		d.Password = pw
	}
	if u.Fragment != "" {
		d.HasEncryption = true
		d.EncryptionKey = u.Fragment
	}
	return d
}

// kindForToken infers the channel kind from the token length.
func kindForToken(token string) LinkKind {
	if len(token) <= pingTokenMaxLen {
		return KindPing
	}
	return KindWebhook
}

// redactToken shortens a token to a recognizable prefix for statuses and
// logs. Full tokens appear only on the wire.
func redactToken(token string) string {
	const visible = 8
	if len(token) <= visible {
		return token
	}
	return token[:visible] + "..."
}
