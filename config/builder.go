package config

import (
	"github.com/annai-ai/linkpoll"
)

// BuildOptions converts parsed configuration into SDK client options.
//
// The returned options carry the full configuration surface: credential,
// cadences, debug mode, and the link acceptance policy. Pass them to
// [linkpoll.New] together with cfg.Endpoint:
//
//	opts, err := config.BuildOptions(cfg)
//	if err != nil {
//	    return err
//	}
//	client, err := linkpoll.New(cfg.Endpoint, opts...)
func BuildOptions(cfg *Config) ([]linkpoll.Option, error) {
	var opts []linkpoll.Option

	if cfg.APIKey != "" {
		opts = append(opts, linkpoll.WithAPIKey(cfg.APIKey))
	}
	if cfg.PingInterval != 0 {
		opts = append(opts, linkpoll.WithPingInterval(cfg.PingInterval.Duration()))
	}
	if cfg.WebhookInterval != 0 {
		opts = append(opts, linkpoll.WithWebhookInterval(cfg.WebhookInterval.Duration()))
	}
	if cfg.Debug {
		opts = append(opts, linkpoll.WithDebug(true))
	}

	if len(cfg.Validation.AllowedDomains) > 0 {
		opts = append(opts, linkpoll.WithAllowedDomains(cfg.Validation.AllowedDomains...))
	}
	if len(cfg.Validation.AllowedLinkKinds) > 0 {
		kinds := make([]linkpoll.LinkKind, 0, len(cfg.Validation.AllowedLinkKinds))
		for _, s := range cfg.Validation.AllowedLinkKinds {
			kind, err := kindFromString(s)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, kind)
		}
		opts = append(opts, linkpoll.WithAllowedLinkKinds(kinds...))
	}
	if cfg.Validation.RequirePassword {
		opts = append(opts, linkpoll.WithRequirePassword(true))
	}

	return opts, nil
}
