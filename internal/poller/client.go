package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/annai-ai/linkpoll/protocol"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion when many
// listeners share one polling endpoint
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults

	// defaultRequestTimeout bounds one poll exchange. The poll loop itself
	// imposes no timeout; the transport owns it.
	defaultRequestTimeout = 30 * time.Second
)

// Client speaks the poll wire contract against a single polling endpoint.
//
// Every listener of one registry shares the same Client, so connection
// pooling is tuned for many small, repeated POSTs to one host. Response
// bodies are limited to 1MB.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a poll [Client] for the given endpoint.
//
// When apiKey is non-empty it is presented as a bearer credential on every
// request. When httpClient is nil a pooled default with a 30 second timeout
// is used; callers supplying their own client also supply their own timeout
// policy.
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false, // explicitly enable connection reuse
			},
		}
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Poll performs one poll exchange: POST the request as JSON, decode the
// result from any 2xx response.
//
// Non-2xx statuses, network failures, and malformed bodies are all returned
// as errors; the caller treats every error the same way, as an empty cycle.
func (c *Client) Poll(ctx context.Context, pollReq protocol.PollRequest) (protocol.PollResult, error) {
	body, err := json.Marshal(pollReq)
	if err != nil {
		return protocol.PollResult{}, fmt.Errorf("marshal poll request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return protocol.PollResult{}, fmt.Errorf("create poll request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return protocol.PollResult{}, fmt.Errorf("poll request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return protocol.PollResult{}, fmt.Errorf("read poll response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return protocol.PollResult{}, fmt.Errorf("poll endpoint returned status %d: %s", resp.StatusCode, bodySnippet(data))
	}

	var result protocol.PollResult
	if err := json.Unmarshal(data, &result); err != nil {
		return protocol.PollResult{}, fmt.Errorf("decode poll response: %w", err)
	}

	return result, nil
}

// bodySnippet trims an error body down to something loggable.
func bodySnippet(data []byte) string {
	const maxSnippet = 256
	s := strings.TrimSpace(string(data))
	if len(s) > maxSnippet {
		s = s[:maxSnippet] + "..."
	}
	return s
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close the client remains usable but new
// connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
