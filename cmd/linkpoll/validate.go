package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/annai-ai/linkpoll"
	"github.com/annai-ai/linkpoll/config"
)

// validateCmd validates a config file or individual link URLs.
var validateCmd = &cobra.Command{
	Use:   "validate [link-url...]",
	Short: "Validate a config file or link URLs",
	Long: `Validate a linkpoll configuration file, or inspect link URLs given
as arguments, without polling anything.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks. When
link URLs are given as arguments, each one is parsed and its descriptor
printed instead.

Exit codes:
  0 - Config (or every link URL) is valid
  1 - Invalid input (error details printed to stderr)

Example:
  linkpoll validate -c config.yaml
  linkpoll validate https://secret.annai.ai/link/abc123def456ghi789`,
	Args: cobra.ArbitraryArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return validateLinkURLs(args)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return fmt.Errorf("provide a config file with --config or link URLs as arguments")
	}
	return validateConfigFile(configFile)
}

// validateConfigFile loads and validates a YAML configuration file.
func validateConfigFile(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	pings, webhooks := 0, 0
	for _, l := range cfg.Links {
		if linkpoll.ParseLink(l.URL).Kind == linkpoll.KindWebhook {
			webhooks++
		} else {
			pings++
		}
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Endpoint:         %s\n", cfg.Endpoint)
	fmt.Printf("  Ping interval:    %s\n", cfg.PingInterval.Duration())
	fmt.Printf("  Webhook interval: %s\n", cfg.WebhookInterval.Duration())
	fmt.Printf("  Links:            %d (%d ping, %d webhook)\n", len(cfg.Links), pings, webhooks)

	return nil
}

// validateLinkURLs parses each URL and prints its descriptor.
func validateLinkURLs(urls []string) error {
	invalid := 0

	for _, raw := range urls {
		d := linkpoll.ParseLink(raw)
		fmt.Printf("%s\n", raw)
		if !d.Valid {
			fmt.Printf("  Valid: no\n")
			invalid++
			continue
		}

		fmt.Printf("  Valid:      yes\n")
		fmt.Printf("  Kind:       %s\n", d.Kind)
		fmt.Printf("  Domain:     %s\n", d.Domain)
		fmt.Printf("  Token:      %s (%d chars)\n", redact(d.Token), len(d.Token))
		fmt.Printf("  Password:   %s\n", yesNo(d.HasPassword))
		fmt.Printf("  Encryption: %s\n", yesNo(d.HasEncryption))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d link URLs invalid", invalid, len(urls))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// redact cuts a token to a short prefix so valid tokens never land whole in
// terminal scrollback.
func redact(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
