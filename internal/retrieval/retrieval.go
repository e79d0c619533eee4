// Package retrieval fetches supporting documents and worked examples from the
// remote retrieval backend. The backend is best-effort: every failure is
// absorbed into an empty result so a prompt can always be rendered.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
)

// Retriever fetches reference material for a request.
type Retriever interface {
	// Documents returns up to topK documentation snippets relevant to query.
	Documents(ctx context.Context, query string, topK int) []string

	// Examples returns up to topK worked examples of the given type
	// ("model", "code" or "toolbox") relevant to query.
	Examples(ctx context.Context, query string, topK int, exampleType string) []string
}

// Client talks to the remote retrieval backend over HTTP.
type Client struct {
	baseURL string
	version string
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a retrieval client from configuration.
func NewClient(cfg config.RetrievalConfig, log *logging.Logger) *Client {
	timeout := 15 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		version: cfg.Version,
		http:    &http.Client{Timeout: timeout},
		log:     log.Sub("retrieval"),
	}
}

type retrievalRequest struct {
	Version     string `json:"version"`
	Query       string `json:"query"`
	TopK        int    `json:"topK"`
	ExampleType string `json:"exampleType,omitempty"`
}

// Documents returns up to topK documentation snippets for query.
// Failures are logged and absorbed into an empty result.
func (c *Client) Documents(ctx context.Context, query string, topK int) []string {
	return c.retrieve(ctx, "/retrieve_document/", retrievalRequest{
		Version: c.version,
		Query:   query,
		TopK:    topK,
	})
}

// Examples returns up to topK worked examples of exampleType for query.
// Failures are logged and absorbed into an empty result.
func (c *Client) Examples(ctx context.Context, query string, topK int, exampleType string) []string {
	return c.retrieve(ctx, "/retrieve_example/", retrievalRequest{
		Version:     c.version,
		Query:       query,
		TopK:        topK,
		ExampleType: exampleType,
	})
}

func (c *Client) retrieve(ctx context.Context, path string, req retrievalRequest) []string {
	results, err := c.post(ctx, path, req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Str("query", req.Query).Msg("retrieval failed, continuing without results")
		return nil
	}
	return results
}

func (c *Client) post(ctx context.Context, path string, req retrievalRequest) ([]string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	return decodeResults(resp.Body)
}

// decodeResults accepts either a flat array of snippets or an array of
// string groups, which are joined per group.
func decodeResults(r io.Reader) ([]string, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	results := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" {
				results = append(results, s)
			}
			continue
		}

		var group []string
		if err := json.Unmarshal(item, &group); err == nil {
			joined := strings.TrimSpace(strings.Join(group, "\n"))
			if joined != "" {
				results = append(results, joined)
			}
			continue
		}

		return nil, fmt.Errorf("unexpected result element %s", string(item))
	}
	return results, nil
}
