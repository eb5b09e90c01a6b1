// Self-contained linkpoll demo.
//
// Runs an in-memory backend, mints a ping link and a password-protected
// webhook link, starts an SDK client listening on both, and feeds scripted
// events through the backend so payloads stream to the terminal.
//
// Usage:
//
//	go run ./example
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annai-ai/linkpoll"
	"github.com/annai-ai/linkpoll/backend"
	"github.com/annai-ai/linkpoll/protocol"
)

// The host in a link URL only identifies the link. Polling always goes to
// the client's endpoint, so the demo can hand out URLs on a host that does
// not resolve anywhere.
const linkHost = "links.demo.annai.ai"

func main() {
	// keep backend/SDK logs out of the demo output
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// in-process backend on a free port (see the backend package)
	store := backend.NewMemoryStore()
	srv := backend.NewServer(store, 0, "", logger)
	if err := srv.Start(ctx); err != nil {
		slog.Error("failed to start backend", "error", err)
		os.Exit(1)
	}

	_, port, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		slog.Error("failed to parse backend address", "addr", srv.Addr(), "error", err)
		os.Exit(1)
	}
	endpoint := "http://" + net.JoinHostPort("localhost", port) + "/poll"

	// mint one link of each kind; the webhook link requires a password,
	// which rides along in the URL and is echoed back on every poll
	ping, err := store.CreateLink(backend.Link{
		Token: "demo-ping-4f21a8c0",
		Kind:  protocol.KindPing,
	})
	if err != nil {
		slog.Error("failed to mint ping link", "error", err)
		os.Exit(1)
	}
	webhook, err := store.CreateLink(backend.Link{
		Token:    "demo-webhook-4f21a8c0-00aa55ff",
		Kind:     protocol.KindWebhook,
		Password: "swordfish",
	})
	if err != nil {
		slog.Error("failed to mint webhook link", "error", err)
		os.Exit(1)
	}

	pingURL := backend.LinkURL(linkHost, ping.Link)
	webhookURL := backend.LinkURL(linkHost, webhook.Link)

	// SDK client with fast intervals so the demo feels live
	client, err := linkpoll.New(endpoint,
		linkpoll.WithPingInterval(2*time.Second),
		linkpoll.WithWebhookInterval(5*time.Second),
		linkpoll.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.StopAll()

	callbacks := linkpoll.Callbacks{
		OnPayload: func(p linkpoll.Payload, d linkpoll.Descriptor) {
			fmt.Printf("  %s  %-7s  %s\n", time.Now().Format("15:04:05"), d.Kind, p.Data)
		},
		OnStatusChange: func(state linkpoll.LinkState, d linkpoll.Descriptor) {
			fmt.Printf("  %s  %-7s  link is %s\n", time.Now().Format("15:04:05"), d.Kind, state)
		},
		OnError: func(err error, d linkpoll.Descriptor) {
			fmt.Printf("  %s  %-7s  error: %v\n", time.Now().Format("15:04:05"), d.Kind, err)
		},
	}

	if _, err := client.StartListening(pingURL, callbacks); err != nil {
		slog.Error("failed to start ping listener", "error", err)
		os.Exit(1)
	}
	if _, err := client.StartListening(webhookURL, callbacks); err != nil {
		slog.Error("failed to start webhook listener", "error", err)
		os.Exit(1)
	}

	// scripted feed: an event every 3 seconds, every third one on the webhook
	go func() {
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		seq := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				seq++
				token, kind := ping.Token, protocol.KindPing
				if seq%3 == 0 {
					token, kind = webhook.Token, protocol.KindWebhook
				}
				data, _ := json.Marshal(map[string]any{"seq": seq, "source": "demo-feed"})
				_, err := store.Publish(token, protocol.Payload{
					ChannelKind:  kind,
					ProducedAtMs: time.Now().UnixMilli(),
					Data:         data,
				})
				if err != nil {
					slog.Error("failed to publish event", "error", err)
				}
			}
		}
	}()

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   linkpoll demo                                       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   In-memory backend + SDK client in one process.      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Links:                                              ║")
	fmt.Println("  ║   • ping     polled every 2s                          ║")
	fmt.Println("  ║   • webhook  polled every 5s, password protected      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   A scripted feed publishes an event every 3s.        ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  backend   %s\n", endpoint)
	fmt.Printf("  ping      %s\n", pingURL)
	fmt.Printf("  webhook   %s\n", webhookURL)
	fmt.Println()

	<-ctx.Done()
	client.StopAll()
	srv.Wait()
	fmt.Println("\n  demo stopped")
}
