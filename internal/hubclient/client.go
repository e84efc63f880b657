// Package hubclient is the HTTP client the CLI and TUI use to talk to a
// running Hub daemon's control plane (spec §6.1).
package hubclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gophpeek/mlxhub/internal/hub"
	"github.com/gophpeek/mlxhub/internal/logger"
)

// Client connects to a running Hub daemon via its control plane, trying a
// Unix socket before falling back to TCP (teacher's APIClient auto-detect
// pattern, internal/tui/client.go).
type Client struct {
	baseURL string
	socket  string
	auth    string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://127.0.0.1:8080"). If
// socketPath is non-empty and reachable, requests are routed over the Unix
// socket instead.
func New(baseURL, auth, socketPath string) *Client {
	c := &Client{baseURL: baseURL, auth: auth}

	if socketPath != "" && trySocket(socketPath) {
		c.socket = socketPath
		c.http = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return net.Dial("unix", socketPath)
				},
			},
		}
		return c
	}

	c.http = &http.Client{Timeout: 10 * time.Second}
	return c
}

func trySocket(path string) bool {
	conn, err := net.DialTimeout("unix", path, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) url(path string) string {
	if c.socket != "" {
		return "http://unix" + path
	}
	return c.baseURL + path
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to hub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &detail) == nil && detail.Detail != "" {
			return fmt.Errorf("hub error (status %d): %s", resp.StatusCode, detail.Detail)
		}
		return fmt.Errorf("hub error (status %d): %s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Status fetches the full status payload (GET /hub/status).
func (c *Client) Status(ctx context.Context) (*hub.Status, error) {
	var status hub.Status
	if err := c.do(ctx, http.MethodGet, "/hub/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reload triggers a config reload (POST /hub/reload).
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/hub/reload", nil, nil)
}

// Shutdown requests daemon shutdown (POST /hub/shutdown).
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/hub/shutdown", nil, nil)
}

// StartModel starts a model (POST /hub/models/{name}/start).
func (c *Client) StartModel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/hub/models/"+name+"/start", nil, nil)
}

// StopModel stops a model (POST /hub/models/{name}/stop).
func (c *Client) StopModel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/hub/models/"+name+"/stop", nil, nil)
}

// LoadModel is the JIT-load equivalent of StartModel.
func (c *Client) LoadModel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/hub/models/"+name+"/load", nil, nil)
}

// UnloadModel is the JIT-unload equivalent of StopModel.
func (c *Client) UnloadModel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/hub/models/"+name+"/unload", nil, nil)
}

// StopAllModels stops every model in the catalog (POST /hub/models/stop-all).
func (c *Client) StopAllModels(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/hub/models/stop-all", nil, nil)
}

// Logs fetches the last n supervisor log entries for a model
// (GET /hub/models/{name}/logs).
func (c *Client) Logs(ctx context.Context, name string, n int) ([]logger.LogEntry, error) {
	path := fmt.Sprintf("/hub/models/%s/logs?n=%d", name, n)
	var payload struct {
		Entries []logger.LogEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Entries, nil
}
