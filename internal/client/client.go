// Package client provides an HTTP client for the oracle server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grandline/oracle/internal/metrics"
	"github.com/grandline/oracle/internal/models"
)

// Client talks to a running oracle server over its REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. If baseURL is empty, uses the ORACLE_SERVER_URL env
// var or defaults to localhost:8480. Timeout can be configured via
// ORACLE_CLIENT_TIMEOUT (default 2m to cover slow generations).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("ORACLE_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8480"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 2 * time.Minute
	if t := os.Getenv("ORACLE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the server's error body.
type apiError struct {
	Error      string `json:"error"`
	UpgradeURL string `json:"upgrade_url,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.RetryAfter > 0 {
				return fmt.Errorf("server error (%s): %s, retry after %ds", resp.Status, apiErr.Error, apiErr.RetryAfter)
			}
			return fmt.Errorf("server error (%s): %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Ask submits a question and returns the generated answer with citations.
func (c *Client) Ask(ctx context.Context, question, tier string) (*models.Answer, error) {
	var answer models.Answer
	err := c.do(ctx, http.MethodPost, "/api/ask", map[string]string{
		"question": question,
		"tier":     tier,
	}, &answer)
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// SearchResult is the search endpoint response.
type SearchResult struct {
	Panels     []models.Panel    `json:"panels"`
	SBSEntries []models.SBSEntry `json:"sbs_entries"`
	PanelCount int               `json:"panel_count"`
	SBSCount   int               `json:"sbs_count"`
}

// Search runs a corpus query without answer generation.
func (c *Client) Search(ctx context.Context, query, method string, limit int) (*SearchResult, error) {
	var result SearchResult
	err := c.do(ctx, http.MethodPost, "/api/search", map[string]any{
		"query":  query,
		"method": method,
		"limit":  limit,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats returns the server's in-memory runtime statistics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Health reports whether the server responds on its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// streamFrame mirrors the server's streaming wire shape.
type streamFrame struct {
	Type       string            `json:"type"`
	Token      string            `json:"token,omitempty"`
	Citations  []models.Citation `json:"citations,omitempty"`
	Model      string            `json:"model,omitempty"`
	Error      string            `json:"error,omitempty"`
	UpgradeURL string            `json:"upgrade_url,omitempty"`
}

// AskStream submits a question over WebSocket and invokes onToken for each
// answer token. The returned answer carries the citations from the final
// frame; its Text is the concatenation of the streamed tokens.
func (c *Client) AskStream(ctx context.Context, question, tier string, onToken func(token string) error) (*models.Answer, error) {
	wsURL := c.baseURL + "/api/ask/stream"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Close the socket when the context ends so blocked reads unblock.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(map[string]string{"question": question, "tier": tier}); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var text strings.Builder
	for {
		var frame streamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}

		switch frame.Type {
		case "token":
			text.WriteString(frame.Token)
			if err := onToken(frame.Token); err != nil {
				return nil, err
			}
		case "done":
			return &models.Answer{
				Question:  question,
				Text:      text.String(),
				Citations: frame.Citations,
				Model:     frame.Model,
				Timestamp: time.Now().UTC(),
			}, nil
		case "error":
			if frame.UpgradeURL != "" {
				return nil, fmt.Errorf("stream error: %s (upgrade: %s)", frame.Error, frame.UpgradeURL)
			}
			return nil, fmt.Errorf("stream error: %s", frame.Error)
		default:
			// Ignore unknown frame types
			continue
		}
	}
}
