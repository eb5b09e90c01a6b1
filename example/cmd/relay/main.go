// Relay payloads from links to a websocket gateway.
//
// Listens on one or more links through the SDK and forwards every payload
// as a JSON text frame. The gateway connection dials with backoff and
// re-dials after a failed write, so a gateway restart only delays frames.
//
// Usage:
//
//	go run ./example/cmd/relay \
//	  -endpoint http://localhost:8080/poll \
//	  -gateway ws://localhost:9000/ingest \
//	  https://secret.annai.ai/link/abc123def456ghi789
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/gorilla/websocket"

	"github.com/annai-ai/linkpoll"
)

// relayMessage is the frame format forwarded to the gateway.
type relayMessage struct {
	Token        string          `json:"token"`
	Kind         string          `json:"kind"`
	ProducedAtMs int64           `json:"producedAtMs"`
	ReceivedAtMs int64           `json:"receivedAtMs"`
	Data         json.RawMessage `json:"data"`
}

// gateway manages the websocket connection to the downstream consumer.
type gateway struct {
	url    string
	token  string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func newGateway(url, token string, logger *slog.Logger) *gateway {
	return &gateway{url: url, token: token, logger: logger}
}

// send forwards one message, dialing the gateway first if needed. A failed
// write drops the connection so the next send re-dials.
func (g *gateway) send(ctx context.Context, msg relayMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		if err := g.dial(ctx); err != nil {
			return err
		}
	}
	if err := g.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = g.conn.Close()
		g.conn = nil
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// dial connects to the gateway with backoff. Callers must hold mu.
func (g *gateway) dial(ctx context.Context) error {
	header := http.Header{}
	if g.token != "" {
		header.Set("Authorization", "Bearer "+g.token)
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	err := retry.Do(
		func() error {
			conn, _, err := dialer.DialContext(ctx, g.url, header)
			if err != nil {
				return fmt.Errorf("dial gateway: %w", err)
			}
			g.conn = conn
			return nil
		},
		retry.Attempts(8),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Info("retrying gateway dial", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}

	g.logger.Info("connected to gateway", "url", g.url)
	return nil
}

func (g *gateway) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		_ = g.conn.Close()
		g.conn = nil
	}
}

func main() {
	var (
		endpoint     = flag.String("endpoint", "", "poll endpoint URL (required)")
		gatewayURL   = flag.String("gateway", "", "websocket gateway URL (required)")
		gatewayToken = flag.String("gateway-token", "", "bearer token for the gateway")
		apiKey       = flag.String("api-key", "", "bearer token for the poll endpoint")
	)
	flag.Parse()

	links := flag.Args()
	if *endpoint == "" || *gatewayURL == "" || len(links) == 0 {
		fmt.Fprintln(os.Stderr, "relay: -endpoint, -gateway, and at least one link URL are required")
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := newGateway(*gatewayURL, *gatewayToken, logger)
	defer gw.close()

	opts := []linkpoll.Option{linkpoll.WithLogger(logger)}
	if *apiKey != "" {
		opts = append(opts, linkpoll.WithAPIKey(*apiKey))
	}
	client, err := linkpoll.New(*endpoint, opts...)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.StopAll()

	callbacks := linkpoll.Callbacks{
		OnPayload: func(p linkpoll.Payload, d linkpoll.Descriptor) {
			msg := relayMessage{
				Token:        d.Token,
				Kind:         d.Kind.String(),
				ProducedAtMs: p.ProducedAtMs,
				ReceivedAtMs: time.Now().UnixMilli(),
				Data:         p.Data,
			}
			if err := gw.send(ctx, msg); err != nil {
				logger.Error("failed to relay payload",
					"link", shortToken(d.Token),
					"error", err,
				)
				return
			}
			logger.Info("payload relayed", "link", shortToken(d.Token), "kind", d.Kind.String())
		},
		OnStatusChange: func(state linkpoll.LinkState, d linkpoll.Descriptor) {
			logger.Info("link state changed", "link", shortToken(d.Token), "state", state.String())
		},
		OnError: func(err error, d linkpoll.Descriptor) {
			logger.Warn("poll error", "link", shortToken(d.Token), "error", err)
		},
	}

	for _, raw := range links {
		id, err := client.StartListening(raw, callbacks)
		if err != nil {
			logger.Error("failed to start listener", "url", raw, "error", err)
			os.Exit(1)
		}
		logger.Info("listening", "listener_id", id)
	}

	// run until interrupted or every link reaches a terminal state
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			client.StopAll()
			return
		case <-ticker.C:
			if !client.IsListening() {
				logger.Info("all links reached a terminal state")
				return
			}
		}
	}
}

// shortToken cuts a token to a prefix for log lines.
func shortToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
