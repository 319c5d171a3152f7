// Package backend calls the membership website's JSON-RPC endpoints.
// It is the only place that knows the wire shape of the website answers.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// ErrNotFound is returned when the website answers 404 for an endpoint.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the website cannot be reached or answers
// with an unexpected status.
var ErrUnavailable = errors.New("website unavailable")

// RPCError is a logical failure reported by the website, either through the
// JSON-RPC error member or through a success=false answer.
type RPCError struct {
	Code    int
	Name    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("rpc error %d (%s): %s", e.Code, e.Name, e.Message)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	SessionCookie string
	HTTPClient    *http.Client

	// ProbeAttempts and ProbeDelay drive the startup check in NewClient.
	ProbeAttempts int
	ProbeDelay    time.Duration
}

// Client is a JSON-RPC client bound to one website and, optionally, to one
// browser session.
type Client struct {
	baseURL    string
	http       *http.Client
	cookieName string
	session    string
	ids        *atomic.Int64
}

// New builds a Client without contacting the website.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	cookie := opts.SessionCookie
	if cookie == "" {
		cookie = "session_id"
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       hc,
		cookieName: cookie,
		ids:        new(atomic.Int64),
	}
}

// NewClient builds a Client and checks that the website answers.
// It retries a few times to accommodate the website starting up.
func NewClient(ctx context.Context, opts Options, log *slog.Logger) (*Client, error) {
	c := New(opts)

	attempts := opts.ProbeAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := opts.ProbeDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = c.Ping(ctx); err == nil {
			return c, nil
		}
		log.Warn("website probe failed", "attempt", attempt, "of", attempts, "err", err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("connect to website: %w", err)
}

// WithSession returns a copy of the client that forwards the given website
// session cookie. An empty value yields an anonymous client.
func (c *Client) WithSession(value string) *Client {
	cp := *c
	cp.session = value
	return &cp
}

// Ping checks that the website answers JSON-RPC calls.
func (c *Client) Ping(ctx context.Context) error {
	var info json.RawMessage
	return c.call(ctx, "/web/webclient/version_info", struct{}{}, &info)
}

// ─── JSON-RPC envelope ────────────────────────────────────────────────────────

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"data"`
	} `json:"error"`
}

// call performs one JSON-RPC round trip and decodes the result into dst.
func (c *Client) call(ctx context.Context, path string, params, dst any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      c.ids.Add(1),
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.session})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s: %w: status %d", path, ErrUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var env rpcResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s envelope: %w", path, err)
	}
	if env.Error != nil {
		msg := env.Error.Data.Message
		if msg == "" {
			msg = env.Error.Message
		}
		return &RPCError{Code: env.Error.Code, Name: env.Error.Data.Name, Message: msg}
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, dst); err != nil {
		return fmt.Errorf("decode %s result: %w", path, err)
	}
	return nil
}
