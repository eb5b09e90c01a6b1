// Inject events into a link on a linkpoll backend.
//
// Posts JSON events to /links/{token}/events with retry and backoff, so a
// backend restart mid-feed does not drop events.
//
// Usage:
//
//	go run ./cmd/linkpoll serve --port 8080
//	go run ./example/cmd/feed -server http://localhost:8080 -token <token> -count 10
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "backend base URL")
		token    = flag.String("token", "", "link token to publish to (required)")
		apiKey   = flag.String("api-key", "", "bearer token for the backend")
		count    = flag.Int("count", 10, "number of events to send")
		interval = flag.Duration("interval", 2*time.Second, "delay between events")
		source   = flag.String("source", "feed", "source label recorded on each event")
	)
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "feed: -token is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventsURL := fmt.Sprintf("%s/links/%s/events?source=%s",
		strings.TrimSuffix(*server, "/"), *token, url.QueryEscape(*source))
	client := &http.Client{Timeout: 10 * time.Second}

	for seq := 1; seq <= *count; seq++ {
		event, _ := json.Marshal(map[string]any{
			"seq":    seq,
			"source": *source,
			"sentAt": time.Now().Format(time.RFC3339),
		})

		pending, err := postEvent(ctx, client, eventsURL, *apiKey, event, logger)
		if err != nil {
			logger.Error("giving up on event", "seq", seq, "error", err)
			os.Exit(1)
		}
		logger.Info("event sent", "seq", seq, "pending", pending)

		if seq < *count {
			select {
			case <-ctx.Done():
				logger.Info("interrupted", "sent", seq, "planned", *count)
				return
			case <-time.After(*interval):
			}
		}
	}

	logger.Info("feed complete", "sent", *count)
}

// postEvent delivers one event, retrying transient failures with backoff.
// Returns the link's pending queue depth as reported by the backend.
func postEvent(ctx context.Context, client *http.Client, eventsURL, apiKey string, event []byte, logger *slog.Logger) (int, error) {
	var pending int

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, eventsURL, bytes.NewReader(event))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			if apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+apiKey)
			}

			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("post event: %w", err)
			}
			defer resp.Body.Close()

			// 4xx means the request itself is wrong, retrying won't help
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Unrecoverable(fmt.Errorf("backend rejected event: %s", resp.Status))
			}
			if resp.StatusCode != http.StatusAccepted {
				return fmt.Errorf("unexpected status: %s", resp.Status)
			}

			var body struct {
				Pending int `json:"pending"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			pending = body.Pending
			return nil
		},
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("retrying event", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("after retries: %w", err)
	}
	return pending, nil
}
