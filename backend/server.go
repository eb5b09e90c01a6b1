package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/annai-ai/linkpoll/protocol"
)

const (
	// shutdownTimeout bounds the graceful drain of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// maxRequestBodySize caps request bodies to protect against oversized
	// or malicious inputs.
	maxRequestBodySize = 1 << 20 // 1MB

	// Minted token lengths. The lengths keep clients' kind inference
	// consistent with the stored kind: tokens up to 24 characters read as
	// ping links.
	pingTokenLen    = 16
	webhookTokenLen = 32
)

// CreateLinkRequest is the body of POST /links.
type CreateLinkRequest struct {
	// Kind selects the channel kind of the minted link. Required.
	Kind protocol.LinkKind `json:"kind"`

	// Token, when set, is used verbatim instead of a generated one. It
	// must be 12 to 64 URL-safe characters and its length must agree
	// with the kind, so clients reading the link URL infer the same
	// kind the backend stores.
	Token string `json:"token,omitempty"`

	// Password, when set, must accompany every poll for this link.
	Password string `json:"password,omitempty"`

	// TTLSeconds, when positive, expires the link that many seconds after
	// minting.
	TTLSeconds int64 `json:"ttlSeconds,omitempty"`

	// MaxDeliveries, when positive, caps how many payloads the link hands
	// out.
	MaxDeliveries int `json:"maxDeliveries,omitempty"`

	// SuggestedPollMs, when positive, is forwarded to polling clients as
	// the suggested next poll interval.
	SuggestedPollMs int64 `json:"suggestedPollMs,omitempty"`
}

// Server handles HTTP requests for the reference link backend.
//
// Server provides the poll endpoint the client SDK talks to, plus a small
// management API for minting and feeding links:
//   - POST /poll: Answer one poll request
//   - POST /links: Mint a new link
//   - GET /links/{token}: Inspect a link
//   - DELETE /links/{token}: Tombstone a link
//   - POST /links/{token}/events: Queue a payload for delivery
//   - GET /healthz: Liveness probe
//
// When constructed with an API key, every route except /healthz requires a
// matching Authorization bearer header.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      Store
	port       int
	apiKey     string
	logger     *slog.Logger
	httpServer *http.Server

	addr string
	done chan struct{}
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store implementation for link records
//   - port: TCP port to listen on (0 picks a free port)
//   - apiKey: bearer credential required on all routes except /healthz
//     (empty disables authentication)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st Store, port int, apiKey string, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		port:   port,
		apiKey: apiKey,
		logger: logger,
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler: s.routes(),
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listener's address once [Server.Start] has succeeded.
// Useful with port 0, where the kernel picks the port.
func (s *Server) Addr() string {
	return s.addr
}

// Wait blocks until the server has finished its graceful shutdown. It only
// returns after the context passed to [Server.Start] is cancelled.
func (s *Server) Wait() {
	<-s.done
}

// routes builds the request mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/poll", s.handlePoll)
	mux.HandleFunc("/links", s.handleLinks)
	mux.HandleFunc("/links/", s.handleLink)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// authorized checks the Authorization header against the configured key.
func (s *Server) authorized(r *http.Request) bool {
	return s.apiKey == "" || r.Header.Get("Authorization") == "Bearer "+s.apiKey
}

// handlePoll answers one poll exchange.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req protocol.PollRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	res := s.store.Poll(req)
	s.logger.Debug("poll answered",
		"token", redact(req.Token),
		"client_id", req.ClientID,
		"state", res.LinkState.String(),
		"content", res.HasNewContent,
	)
	s.writeJSON(w, http.StatusOK, res)
}

// handleLinks mints new links.
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Kind.Valid() {
		http.Error(w, "Unknown link kind", http.StatusBadRequest)
		return
	}

	token := req.Token
	if token == "" {
		token = newToken(req.Kind)
	} else if !tokenFits(token, req.Kind) {
		http.Error(w, "Token must be 12-64 URL-safe characters sized for the kind", http.StatusBadRequest)
		return
	}

	link := Link{
		Token:           token,
		Kind:            req.Kind,
		Password:        req.Password,
		CreatedAt:       time.Now(),
		MaxDeliveries:   req.MaxDeliveries,
		SuggestedPollMs: req.SuggestedPollMs,
	}
	if req.TTLSeconds > 0 {
		link.ExpiresAt = link.CreatedAt.Add(time.Duration(req.TTLSeconds) * time.Second)
	}

	info, err := s.store.CreateLink(link)
	if err != nil {
		if errors.Is(err, ErrDuplicateToken) {
			http.Error(w, "Token already exists", http.StatusConflict)
			return
		}
		s.logger.Error("failed to create link", "error", err)
		http.Error(w, "Failed to create link", http.StatusInternalServerError)
		return
	}

	s.logger.Info("link minted",
		"token", redact(info.Token),
		"kind", info.Kind.String(),
		"max_deliveries", info.MaxDeliveries,
	)
	s.writeJSON(w, http.StatusCreated, info)
}

// handleLink dispatches the /links/{token} subtree: link inspection,
// deletion, and event publishing.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/links/")

	if token, ok := strings.CutSuffix(rest, "/events"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handlePublish(w, r, token)
		return
	}

	token := rest
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, ok := s.store.Info(token)
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.writeJSON(w, http.StatusOK, info)

	case http.MethodDelete:
		if !s.store.DeleteLink(token) {
			http.NotFound(w, r)
			return
		}
		s.logger.Info("link deleted", "token", redact(token))
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePublish queues a payload carried in the request body.
//
// The body is stored verbatim as the payload data and must be valid JSON so
// poll responses remain well-formed. Delivery metadata is captured from the
// request: the source query parameter, the User-Agent header, and the
// remote address.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request, token string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		http.Error(w, "Body must be valid JSON", http.StatusBadRequest)
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "api"
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}

	payload := protocol.Payload{
		ChannelKind:  s.linkKind(token),
		ProducedAtMs: time.Now().UnixMilli(),
		Data:         json.RawMessage(body),
		Metadata: &protocol.PayloadMeta{
			Source:    source,
			UserAgent: r.UserAgent(),
			IPAddress: ip,
		},
	}

	pending, err := s.store.Publish(token, payload)
	if err != nil {
		if errors.Is(err, ErrUnknownLink) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("failed to publish payload", "error", err)
		http.Error(w, "Failed to publish payload", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("payload queued",
		"token", redact(token),
		"source", source,
		"pending", pending,
	)
	s.writeJSON(w, http.StatusAccepted, map[string]int{"pending": pending})
}

// handleHealth reports liveness. Unauthenticated so probes stay simple.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// linkKind reads the stored kind for a token, defaulting to ping when the
// token is unknown. Publish rejects unknown tokens later either way.
func (s *Server) linkKind(token string) protocol.LinkKind {
	if info, ok := s.store.Info(token); ok {
		return info.Kind
	}
	return protocol.KindPing
}

// writeJSON encodes a response body, logging encode failures.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// newToken mints a fresh random token sized for the link kind.
func newToken(kind protocol.LinkKind) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "") +
		strings.ReplaceAll(uuid.NewString(), "-", "")
	if kind == protocol.KindWebhook {
		return raw[:webhookTokenLen]
	}
	return raw[:pingTokenLen]
}

// tokenPattern matches the URL-safe token alphabet shared with clients.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{12,64}$`)

// tokenFits reports whether a caller-supplied token is well formed and
// whether its length agrees with the kind. Clients infer the kind from
// the token length alone, so a 30-character ping token would poll on
// the wrong schedule.
func tokenFits(token string, kind protocol.LinkKind) bool {
	if !tokenPattern.MatchString(token) {
		return false
	}
	if len(token) <= 24 {
		return kind == protocol.KindPing
	}
	return kind == protocol.KindWebhook
}

// redact cuts a token to a short prefix for log lines.
func redact(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}

// LinkURL renders the shareable URL for a link minted on the given host.
func LinkURL(host string, link Link) string {
	u := url.URL{Scheme: "https", Host: host, Path: "/link/" + link.Token}
	if link.Password != "" {
		u.RawQuery = "password=" + url.QueryEscape(link.Password)
	}
	return u.String()
}
