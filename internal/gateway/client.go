package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Invoker sends named actions to the radio backend.
// This interface is implemented by *Client and can be used for testing.
type Invoker interface {
	Invoke(ctx context.Context, action string, payload any) (Result, error)
}

// Ensure Client implements Invoker at compile time.
var _ Invoker = (*Client)(nil)

// Result is the decoded JSON object returned by the backend for an action.
type Result map[string]any

// OK reports whether the result carries a truthy "ok" field.
func (r Result) OK() bool {
	ok, _ := r["ok"].(bool)
	return ok
}

// Client posts actions to the radio backend over HTTP.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultBackendBind = "127.0.0.1:7488"
	defaultUserAgent   = "carradio/0.1"
	requestTimeout     = 5 * time.Second
	maxResponseBytes   = 1 << 20
)

// NewClient builds a Client for the backend at backend (host:port or URL).
// Actions are posted to <backend>/<resource>/<action>; an empty resource posts
// directly under the backend root, which matches NUI-style https://<resource>/ hosts.
func NewClient(backend, resource string) (*Client, error) {
	base, err := parseBaseURL(backend, resource)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the resolved action root.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// Invoke posts payload as JSON to the named action and returns the decoded
// response. Payloads for the known actions are checked against their request
// shape whatever Go type carries them; a failing payload is returned as
// *InputError without touching the network.
func (c *Client) Invoke(ctx context.Context, action string, payload any) (Result, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, &InputError{Field: "action", Prompt: "action name is required"}
	}
	body, err := encodePayload(action, payload)
	if err != nil {
		return nil, err
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: action})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CallError{Action: action, Kind: KindTransport, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &CallError{Action: action, Kind: KindTransport, Message: "read response: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		callErr := &CallError{
			Action:  action,
			Kind:    KindBackend,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("HTTP error %d", resp.StatusCode),
		}
		var errBody map[string]any
		if json.Unmarshal(data, &errBody) == nil && errBody != nil {
			callErr.Body = errBody
		}
		return nil, callErr
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil || result == nil {
		return emptyResult(), nil
	}
	return result, nil
}

func emptyResult() Result {
	return Result{"ok": true, "response": "empty"}
}

func parseBaseURL(backend, resource string) (*url.URL, error) {
	trimmed := strings.TrimSpace(backend)
	if trimmed == "" {
		trimmed = defaultBackendBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend %q: %w", backend, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse backend %q: missing host", backend)
	}
	path := "/"
	if res := strings.Trim(strings.TrimSpace(resource), "/"); res != "" {
		path = "/" + res + "/"
	}
	u.Path = path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
