package devicebox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medibox-api/internal/config"
)

// Result is the normalized outcome of a device call. Transport errors,
// timeouts and non-2xx responses never escape this package as raw errors;
// callers only ever see Success plus a human-readable message.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SyncMedicine is one medicine entry in the sync payload. The field names
// are part of the sketch's wire contract and must stay camelCase.
type SyncMedicine struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Times   []string `json:"times"`
	Message string   `json:"message"`
}

// SyncRequest is the body of POST /sync.
type SyncRequest struct {
	BoxID     string         `json:"boxId"`
	Medicines []SyncMedicine `json:"medicines"`
}

type syncResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type healthResponse struct {
	BoxID string `json:"boxId"`
}

// Client talks to the companion microcontroller sketch over plain HTTP.
// It is stateless; the target IP is supplied per call.
type Client struct {
	httpClient    *http.Client
	healthTimeout time.Duration
	syncTimeout   time.Duration
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		// Per-call deadlines come from context; the shared client carries no
		// global timeout so the sync call can run longer than a health check.
		httpClient:    &http.Client{},
		healthTimeout: cfg.DeviceHealthTimeout,
		syncTimeout:   cfg.DeviceSyncTimeout,
	}
}

// Health probes GET /health. A reachable device answering 200 is healthy;
// the optional boxId in the response is folded into the message.
func (c *Client) Health(ctx context.Context, ip string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, ip, "/health", nil)
	if err != nil {
		return failure("health check failed", err)
	}
	var hr healthResponse
	if json.Unmarshal(body, &hr) == nil && hr.BoxID != "" {
		return Result{Success: true, Message: fmt.Sprintf("box %s is reachable", hr.BoxID)}
	}
	return Result{Success: true, Message: "device is reachable"}
}

// Sync pushes the box's medicine schedule to the device via POST /sync.
func (c *Client) Sync(ctx context.Context, ip string, req SyncRequest) Result {
	ctx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return failure("sync failed", err)
	}
	body, err := c.do(ctx, http.MethodPost, ip, "/sync", payload)
	if err != nil {
		return failure("sync failed", err)
	}
	var sr syncResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return failure("sync failed", fmt.Errorf("malformed device response"))
	}
	if sr.Status != "success" {
		msg := sr.Message
		if msg == "" {
			msg = "device rejected sync"
		}
		return Result{Success: false, Message: msg}
	}
	msg := sr.Message
	if msg == "" {
		msg = "schedule synced"
	}
	return Result{Success: true, Message: msg}
}

// Status fetches GET /status and passes the device's JSON through untouched.
func (c *Client) Status(ctx context.Context, ip string) (json.RawMessage, Result) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, ip, "/status", nil)
	if err != nil {
		return nil, failure("status check failed", err)
	}
	if !json.Valid(body) {
		return nil, failure("status check failed", fmt.Errorf("malformed device response"))
	}
	return json.RawMessage(body), Result{Success: true, Message: "ok"}
}

// Disconnect posts /disconnect best-effort. An unreachable device is treated
// as already disconnected, so this always reports success.
func (c *Client) Disconnect(ctx context.Context, ip string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	if _, err := c.do(ctx, http.MethodPost, ip, "/disconnect", nil); err != nil {
		return Result{Success: true, Message: "device unreachable, marked disconnected"}
	}
	return Result{Success: true, Message: "device disconnected"}
}

func (c *Client) do(ctx context.Context, method, ip, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://"+ip+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("device responded %d", resp.StatusCode)
	}
	return data, nil
}

func failure(prefix string, err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Success: false, Message: prefix + ": device timed out"}
	}
	return Result{Success: false, Message: prefix + ": " + err.Error()}
}
