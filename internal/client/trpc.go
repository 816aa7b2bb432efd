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

// TRPCClient speaks the batched tRPC envelope the ZTNet web UI uses. It
// shares the base-fallback mechanics of the REST client; only the envelope
// parsing differs. Authentication is cookie-based (NextAuth session).
type TRPCClient struct {
	bases         []BaseCandidate
	activeBase    atomic.Int32
	warnedAutofix atomic.Bool
	cookie        string
	dryRun        bool
	retry         *retryablehttp.Client
	ui            UI
}

// NewTRPC builds a tRPC client for the given base URL.
func NewTRPC(baseURL string, timeout time.Duration, retries int, dryRun bool, ui UI) (*TRPCClient, error) {
	bases, err := buildBaseCandidates(baseURL)
	if err != nil {
		return nil, err
	}

	return &TRPCClient{
		bases:  bases,
		dryRun: dryRun,
		retry:  newRetryClient(timeout, retries),
		ui:     ui,
	}, nil
}

// WithCookie sets the Cookie header sent with every call.
func (c *TRPCClient) WithCookie(cookie string) *TRPCClient {
	c.cookie = cookie
	return c
}

// Call invokes one tRPC procedure with the given input. The input is wrapped
// in a single-entry batch envelope and the success payload is unwrapped from
// result.data.json. An UNAUTHORIZED error code or HTTP 401 surfaces as a
// session-required error so callers can prompt for a fresh login.
func (c *TRPCClient) Call(ctx context.Context, procedure string, input any) (any, error) {
	path := "api/trpc/" + strings.TrimSpace(procedure) + "?batch=1"

	bodyBytes, err := json.Marshal(map[string]any{"0": map[string]any{"json": input}})
	if err != nil {
		return nil, cliutil.InvalidArgumentf("invalid procedure input: %v", err)
	}

	header := make(http.Header)
	header.Set("Accept", "application/json")
	header.Set("Content-Type", "application/json")
	if c.cookie != "" {
		header.Set("Cookie", c.cookie)
	}

	if c.dryRun {
		u, err := buildURLForBase(c.bases, int(c.activeBase.Load()), path, false)
		if err != nil {
			return nil, err
		}
		printDryRun(http.MethodPost, u, "", header, bodyBytes)
		return nil, cliutil.ErrDryRunPrinted
	}

	return withBaseFallback(
		c.bases, &c.activeBase, path, false, shouldTryBaseFallback,
		func(u *url.URL) (any, error) {
			return c.callWithURL(ctx, u, header, bodyBytes)
		},
		func(idx int) {
			maybeWarnAutofix(c.ui, &c.warnedAutofix, c.bases, idx)
		},
	)
}

func (c *TRPCClient) callWithURL(ctx context.Context, u *url.URL, header http.Header, body []byte) (any, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, cliutil.InvalidArgumentf("invalid request: %v", err)
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		if resp != nil {
			drainBody(resp)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	data := drainBody(resp)
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &cliutil.RateLimitedError{}
	}
	return parseTRPCResponse(resp.StatusCode, data)
}

func parseTRPCResponse(status int, body []byte) (any, error) {
	if status == http.StatusUnauthorized {
		return nil, &cliutil.SessionRequiredError{}
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, &cliutil.DecodeError{Err: err}
	}

	return parseTRPCEnvelope(status, value)
}

func parseTRPCEnvelope(httpStatus int, value any) (any, error) {
	item := value
	if items, ok := value.([]any); ok {
		if len(items) == 0 {
			return nil, &cliutil.HTTPStatusError{Status: httpStatus, Message: "empty tRPC response"}
		}
		item = items[0]
	}

	obj, ok := item.(map[string]any)
	if !ok {
		return item, nil
	}

	if errValue, ok := obj["error"]; ok {
		return nil, trpcError(httpStatus, errValue)
	}

	result, ok := obj["result"].(map[string]any)
	if !ok {
		return obj, nil
	}

	data, ok := result["data"]
	if !ok {
		return nil, nil
	}
	if dataObj, ok := data.(map[string]any); ok {
		if jsonValue, ok := dataObj["json"]; ok {
			return jsonValue, nil
		}
	}
	return data, nil
}

func trpcError(httpStatus int, errValue any) error {
	message := "tRPC error"
	code := ""
	status := httpStatus

	if errObj, ok := errValue.(map[string]any); ok {
		if m, ok := errObj["message"].(string); ok && m != "" {
			message = m
		}
		if dataObj, ok := errObj["data"].(map[string]any); ok {
			if c, ok := dataObj["code"].(string); ok {
				code = c
			}
			if s, ok := dataObj["httpStatus"].(float64); ok && s > 0 {
				status = int(s)
			}
		}
	}

	if code == "UNAUTHORIZED" || status == http.StatusUnauthorized {
		return &cliutil.SessionRequiredError{}
	}

	body, _ := json.Marshal(errValue)
	return &cliutil.HTTPStatusError{
		Status:  status,
		Message: message,
		Body:    string(body),
	}
}

// NextAuthCookie assembles the Cookie header value from stored session and
// device cookies. ZTNet deployments vary in whether the session cookie
// carries the __Secure- prefix, so both names are sent. Returns "" when no
// session is stored.
func NextAuthCookie(session, device string) string {
	session = strings.TrimSpace(session)
	if session == "" {
		return ""
	}

	parts := []string{
		"next-auth.session-token=" + session,
		"__Secure-next-auth.session-token=" + session,
	}
	if device = strings.TrimSpace(device); device != "" {
		parts = append(parts, "next-auth.did-token="+device)
	}
	return strings.Join(parts, "; ")
}

// RequireNextAuthCookie is NextAuthCookie for operations that cannot proceed
// without a session.
func RequireNextAuthCookie(session, device string) (string, error) {
	cookie := NextAuthCookie(session, device)
	if cookie == "" {
		return "", &cliutil.SessionRequiredError{}
	}
	return cookie, nil
}
