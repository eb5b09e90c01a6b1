// Package main is the entry point for the linkpoll CLI.
//
// The SDK can be embedded as a library or driven from this standalone
// binary with YAML configuration.
//
// Usage:
//
//	linkpoll listen -c config.yaml      # Poll configured links, print payloads
//	linkpoll validate -c config.yaml    # Validate configuration
//	linkpoll validate <link-url> ...    # Inspect link URLs
//	linkpoll serve --port 8080          # Run the reference backend
//	linkpoll version                    # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "linkpoll",
	Short: "Listen on annai links from the command line",
	Long: `linkpoll polls a backend for payloads arriving on annai links and
prints each payload as a JSON line on stdout.

Quick start:
  1. Create a config file (linkpoll.yaml)
  2. Run: linkpoll listen -c linkpoll.yaml
  3. Pipe stdout into your tooling

Example config:
  endpoint: https://backend.example.com/poll
  api_key: ${ANNAI_API_KEY:-}
  links:
    - name: deploy-alerts
      url: https://secret.annai.ai/link/abc123def456ghi789`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use. Logs go to stderr so stdout
// stays reserved for payload output.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this linkpoll binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("linkpoll %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
