package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

// Client is the REST-style ZTNet API client. One instance is built per
// resolved configuration; the sticky active-base index and the one-shot
// banner flag live on the instance so state never leaks across invocations.
type Client struct {
	bases         []BaseCandidate
	activeBase    atomic.Int32
	warnedAutofix atomic.Bool
	token         string
	dryRun        bool
	retry         *retryablehttp.Client
	ui            UI
}

// New builds a client for the given base URL. The URL is normalized and
// expanded into base candidates once, here; token may be empty when only
// unauthenticated calls will be made.
func New(baseURL, token string, timeout time.Duration, retries int, dryRun bool, ui UI) (*Client, error) {
	bases, err := buildBaseCandidates(baseURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		bases:  bases,
		token:  token,
		dryRun: dryRun,
		retry:  newRetryClient(timeout, retries),
		ui:     ui,
	}, nil
}

// BuildURL resolves a request path against the currently active base.
// Absolute http(s) paths are returned as-is.
func (c *Client) BuildURL(path string) (*url.URL, error) {
	return buildURLForBase(c.bases, int(c.activeBase.Load()), path, true)
}

// Bases exposes the candidate list for diagnostics.
func (c *Client) Bases() []BaseCandidate {
	return c.bases
}

// RequestJSON issues a request expecting a JSON response and returns the
// decoded value. The call goes through the base-fallback orchestrator: a
// 404/405 or undecodable body triggers a one-time probe of the alternate
// base candidates.
func (c *Client) RequestJSON(ctx context.Context, method, path string, body any, header http.Header, includeAuth bool) (any, error) {
	path = strings.TrimSpace(path)

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, cliutil.InvalidArgumentf("invalid request body: %v", err)
		}
	}

	if c.dryRun {
		u, err := c.BuildURL(path)
		if err != nil {
			return nil, err
		}
		token := ""
		if includeAuth {
			token = c.token
		}
		printDryRun(method, u, token, header, bodyBytes)
		return nil, cliutil.ErrDryRunPrinted
	}

	return withBaseFallback(
		c.bases, &c.activeBase, path, true, shouldTryBaseFallback,
		func(u *url.URL) (any, error) {
			return c.requestJSONWithURL(ctx, method, u, bodyBytes, header, includeAuth)
		},
		func(idx int) {
			maybeWarnAutofix(c.ui, &c.warnedAutofix, c.bases, idx)
		},
	)
}

// RequestBytes issues a request and returns the raw response body, for
// endpoints that do not speak JSON (file downloads, planet blobs).
func (c *Client) RequestBytes(ctx context.Context, method, path string, body []byte, header http.Header, includeAuth bool, contentType string) ([]byte, error) {
	path = strings.TrimSpace(path)

	if c.dryRun {
		u, err := c.BuildURL(path)
		if err != nil {
			return nil, err
		}
		token := ""
		if includeAuth {
			token = c.token
		}
		printDryRun(method, u, token, header, body)
		return nil, cliutil.ErrDryRunPrinted
	}

	return withBaseFallback(
		c.bases, &c.activeBase, path, true, shouldTryBaseFallback,
		func(u *url.URL) ([]byte, error) {
			return c.requestBytesWithURL(ctx, method, u, body, header, includeAuth, contentType)
		},
		func(idx int) {
			maybeWarnAutofix(c.ui, &c.warnedAutofix, c.bases, idx)
		},
	)
}

func (c *Client) requestJSONWithURL(ctx context.Context, method string, u *url.URL, body []byte, header http.Header, includeAuth bool) (any, error) {
	data, err := c.execute(ctx, method, u, body, header, includeAuth, "application/json", "application/json")
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, &cliutil.DecodeError{Err: err}
	}
	return value, nil
}

func (c *Client) requestBytesWithURL(ctx context.Context, method string, u *url.URL, body []byte, header http.Header, includeAuth bool, contentType string) ([]byte, error) {
	return c.execute(ctx, method, u, body, header, includeAuth, "*/*", contentType)
}

// execute performs one request against one concrete URL, with the retry
// policy of the underlying executor. It classifies the final outcome into
// the CLI error taxonomy.
func (c *Client) execute(ctx context.Context, method string, u *url.URL, body []byte, header http.Header, includeAuth bool, accept, contentType string) ([]byte, error) {
	token := ""
	if includeAuth {
		if c.token == "" {
			return nil, &cliutil.MissingConfigError{Field: "token"}
		}
		token = c.token
	}

	var rawBody any
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), rawBody)
	if err != nil {
		return nil, cliutil.InvalidArgumentf("invalid request: %v", err)
	}

	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Accept", accept)
	if token != "" {
		req.Header.Set(authHeader, token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		if resp != nil {
			drainBody(resp)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	data := drainBody(resp)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		// Still 429 after the whole retry budget.
		return nil, &cliutil.RateLimitedError{}
	default:
		return nil, &cliutil.HTTPStatusError{
			Status:  resp.StatusCode,
			Message: "request failed",
			Body:    string(data),
		}
	}
}
