// Package gateway holds the HTTP clients for the two remote APIs the
// companion is a thin client over.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for outgoing requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

const maxBodyBytes = 1 << 20

// Client issues JSON requests against one base URL
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

type request struct {
	op       string
	method   string
	path     string
	query    url.Values
	bearer   string // overrides the token source when set
	body     interface{}
	fallback string // message when neither backend nor transport gives one
}

// do sends req and decodes a 2xx body into out (when out is non-nil)
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var payload io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return &Error{Kind: KindTransport, Op: req.op, Message: req.fallback, Err: err}
		}
		payload = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, payload)
	if err != nil {
		return &Error{Kind: KindTransport, Op: req.op, Message: req.fallback, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	bearer := req.bearer
	if bearer == "" && c.tokens != nil {
		bearer = c.tokens.Token()
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = req.fallback
		}
		return &Error{Kind: KindTransport, Op: req.op, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindTransport, Op: req.op, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := KindServer
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = KindAuthRejected
		}
		msg := backendMessage(body)
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		}
		return &Error{Kind: kind, Op: req.op, StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		if out != nil {
			return &Error{Kind: KindMalformed, Op: req.op, StatusCode: resp.StatusCode, Message: req.fallback}
		}
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindMalformed, Op: req.op, StatusCode: resp.StatusCode, Message: req.fallback, Err: err}
	}
	return nil
}
