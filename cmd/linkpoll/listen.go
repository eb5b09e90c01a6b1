package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/annai-ai/linkpoll"
	"github.com/annai-ai/linkpoll/config"
)

// statusLogInterval is how often listener snapshots are logged at debug
// level while listening.
const statusLogInterval = 30 * time.Second

// payloadLine is the JSON object printed to stdout for each delivered
// payload.
type payloadLine struct {
	Link         string          `json:"link"`
	Kind         string          `json:"kind"`
	ProducedAtMs int64           `json:"producedAtMs"`
	ReceivedAtMs int64           `json:"receivedAtMs"`
	Source       string          `json:"source,omitempty"`
	Data         json.RawMessage `json:"data"`
}

// listenCmd polls the configured links and prints payloads.
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen on the configured links",
	Long: `Listen on every link in the configuration file.

Each delivered payload is printed to stdout as one JSON line; log output
goes to stderr. The command runs until interrupted (Ctrl+C), until it
receives SIGTERM, or until every link has reached a terminal state.

Example:
  linkpoll listen -c config.yaml
  linkpoll listen --config /etc/linkpoll/config.yaml | jq .data`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = listenCmd.MarkFlagRequired("config")
}

func runListen(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Debug)
	logger.Info("config loaded",
		"endpoint", cfg.Endpoint,
		"links", len(cfg.Links),
	)

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build client options: %w", err)
	}
	opts = append(opts, linkpoll.WithLogger(logger))

	client, err := linkpoll.New(cfg.Endpoint, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.StopAll()

	// one encoder shared by every listener callback
	var outMu sync.Mutex
	out := json.NewEncoder(os.Stdout)

	for i, l := range cfg.Links {
		name := l.DisplayName(i)

		id, err := client.StartListening(l.URL, linkpoll.Callbacks{
			OnPayload: func(p linkpoll.Payload, d linkpoll.Descriptor) {
				line := payloadLine{
					Link:         name,
					Kind:         p.ChannelKind.String(),
					ProducedAtMs: p.ProducedAtMs,
					ReceivedAtMs: time.Now().UnixMilli(),
					Data:         p.Data,
				}
				if p.Metadata != nil {
					line.Source = p.Metadata.Source
				}

				outMu.Lock()
				defer outMu.Unlock()
				if err := out.Encode(line); err != nil {
					logger.Error("failed to write payload", "link", name, "error", err)
				}
			},
			OnStatusChange: func(s linkpoll.LinkState, d linkpoll.Descriptor) {
				logger.Info("link state changed", "link", name, "state", s.String())
			},
			OnError: func(err error, d linkpoll.Descriptor) {
				logger.Warn("listener error", "link", name, "error", err)
			},
		})
		if err != nil {
			return fmt.Errorf("failed to start listening on %s: %w", name, err)
		}
		logger.Info("listening", "link", name, "listener_id", id)
	}

	// run until a signal arrives or every link has terminated
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	liveness := time.NewTicker(time.Second)
	defer liveness.Stop()
	statuses := time.NewTicker(statusLogInterval)
	defer statuses.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			client.StopAll()
			logger.Info("shutdown complete")
			return nil

		case <-liveness.C:
			if !client.IsListening() {
				logger.Info("all links reached a terminal state")
				return nil
			}

		case <-statuses.C:
			for _, st := range client.ListenerStatuses() {
				logger.Debug("listener status",
					"listener_id", st.ID,
					"token", st.Token,
					"kind", st.Kind.String(),
					"interval", st.Interval.String(),
					"empty_cycles", st.EmptyCycles,
				)
			}
		}
	}
}
