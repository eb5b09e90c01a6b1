package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/annai-ai/linkpoll/backend"
)

// serveCmd starts an in-memory backend server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an in-memory backend server",
	Long: `Start an in-memory backend server for local development and testing.

The server will:
  - Accept poll requests from linkpoll clients on POST /poll
  - Mint links on POST /links and accept payloads on POST /links/{token}/events
  - Report link details on GET /links/{token}

Links and payloads live in memory only and are lost on restart. The server
runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  linkpoll serve --port 8080
  linkpoll serve --port 8080 --api-key sk-local-dev`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "port to listen on")
	serveCmd.Flags().String("api-key", "", "require this bearer token on API requests")
	serveCmd.Flags().Bool("debug", false, "enable debug logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	apiKey, _ := cmd.Flags().GetString("api-key")
	debug, _ := cmd.Flags().GetBool("debug")

	logger := newLogger(debug)

	store := backend.NewMemoryStore()
	srv := backend.NewServer(store, port, apiKey, logger)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("backend listening",
		"addr", srv.Addr(),
		"auth", apiKey != "",
	)

	// log every accepted payload as it is queued
	deliveries := store.Subscribe()
	go func() {
		for d := range deliveries {
			logger.Info("payload queued",
				"token", redact(d.Token),
				"kind", d.Kind.String(),
				"pending", d.Pending,
			)
		}
	}()

	// block until signal, then wait for graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down")
	srv.Wait()
	store.Unsubscribe(deliveries)
	logger.Info("shutdown complete")
	return nil
}
