// Package gateway talks to the agent gateway's configuration RPC endpoint.
//
// Requests are JSON envelopes {"method", "params"} posted over HTTP; the
// gateway answers {"result"} or {"error": {"message", "code"}}. A non-2xx
// status and a present error field are both failures, and every failure is
// returned as an *Error carrying a Kind.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/docker/model-switcher/pkg/httpclient"
)

const (
	MethodConfigGet   = "config.get"
	MethodConfigPatch = "config.patch"

	DefaultTimeout = 10 * time.Second

	maxResponseSize = 4 << 20
)

type request struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

// Client calls the gateway. It holds no state between calls.
type Client struct {
	url     string
	token   string
	timeout time.Duration
	http    *http.Client
}

type Opt func(*Client)

func WithToken(token string) Opt {
	return func(c *Client) {
		c.token = token
	}
}

func WithTimeout(timeout time.Duration) Opt {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithHTTPClient(hc *http.Client) Opt {
	return func(c *Client) {
		c.http = hc
	}
}

func NewClient(url string, opts ...Opt) *Client {
	c := &Client{
		url:     url,
		timeout: DefaultTimeout,
		http:    httpclient.NewHttpClient(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one RPC round trip bounded by the client timeout.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(request{Method: method, Params: params})
	if err != nil {
		return nil, &Error{Method: method, Kind: KindTransient, Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Method: method, Kind: KindTransient, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("Gateway call failed", "method", method, "duration", time.Since(start), "error", err)
		return nil, &Error{Method: method, Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &Error{Method: method, Kind: KindTransient, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	slog.Debug("Gateway call", "method", method, "status", resp.StatusCode, "duration", time.Since(start))

	var envelope response
	decodeErr := json.Unmarshal(data, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := &Error{Method: method, StatusCode: resp.StatusCode}
		if decodeErr == nil && envelope.Error != nil {
			gwErr.Message = envelope.Error.Message
			gwErr.Code = envelope.Error.Code
		} else {
			gwErr.Message = http.StatusText(resp.StatusCode)
		}
		gwErr.Kind = classify(resp.StatusCode, gwErr.Code, gwErr.Message)
		return nil, gwErr
	}

	if decodeErr != nil {
		return nil, &Error{Method: method, Kind: KindTransient, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", decodeErr)}
	}
	if envelope.Error != nil {
		return nil, &Error{
			Method:     method,
			Kind:       classify(resp.StatusCode, envelope.Error.Code, envelope.Error.Message),
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}

	return envelope.Result, nil
}

// GetConfig returns the gateway's current configuration object.
func (c *Client) GetConfig(ctx context.Context) (json.RawMessage, error) {
	result, err := c.Call(ctx, MethodConfigGet, nil)
	if err != nil {
		return nil, err
	}

	// Some gateway versions wrap the document as {"config": {...}, "hash": "..."}.
	if wrapped := gjson.GetBytes(result, "config"); wrapped.IsObject() {
		return json.RawMessage(wrapped.Raw), nil
	}
	if !gjson.ValidBytes(result) || !gjson.ParseBytes(result).IsObject() {
		return nil, &Error{Method: MethodConfigGet, Kind: KindTransient, Message: "result is not a configuration object"}
	}
	return result, nil
}

// PatchConfig merges patch into the gateway configuration.
func (c *Client) PatchConfig(ctx context.Context, patch any) error {
	_, err := c.Call(ctx, MethodConfigPatch, patch)
	return err
}
