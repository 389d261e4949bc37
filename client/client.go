// Package client implements a typed HTTP client for the upstream indexer's
// six endpoint families: owner sync (SSE), beef, chaintracks, ordfs, the
// bsv21 overlay, and arcade broadcast. Every indexer call goes through
// doRequest, which turns non-2xx responses into *HTTPError.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout matches the indexer's own default request timeout.
const DefaultTimeout = 30 * time.Second

// Client is the shared transport for every indexer endpoint family below.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New builds a Client against baseURL with DefaultTimeout. Pass a *Client
// with a custom HTTPClient to override timeout or transport behavior.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{Status: resp.StatusCode, Message: string(body)}
	}
	return resp, nil
}

// get issues a GET to path (relative to BaseURL) and returns the response
// body in full. The caller owns closing nothing; the body is drained here.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newGet(ctx, path)
	if err != nil {
		return nil, err
	}
	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readAll(resp)
}

func (c *Client) newGet(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	return req, nil
}

func readAll(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	return body, nil
}
