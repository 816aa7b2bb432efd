package client

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const (
	authHeader = "x-ztnet-auth"

	retryWaitMin = 200 * time.Millisecond
	retryWaitMax = 5 * time.Second
)

// newRetryClient builds the retrying HTTP executor: up to retries+1 attempts
// per request, exponential backoff from 200ms doubling to a 5s cap, with the
// server's Retry-After honored on 429. The passthrough error handler makes
// the final response available so an exhausted 429 can be classified as rate
// limiting rather than a generic failure.
func newRetryClient(timeout time.Duration, retries int) *retryablehttp.Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = retries
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	rc.Logger = nil
	rc.CheckRetry = checkRetry
	rc.Backoff = retryBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// checkRetry marks transport-level failures, 5xx and 429 as transient. All
// other 4xx responses and successes are final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

func retryBackoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			return d
		}
	}

	wait := min << uint(attemptNum)
	if wait <= 0 || wait > max {
		wait = max
	}
	return wait
}

func parseRetryAfter(value string) (time.Duration, bool) {
	secs, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// drainBody reads and closes a response body, tolerating read failures: the
// status classification matters more than a partially lost body.
func drainBody(resp *http.Response) []byte {
	if resp == nil || resp.Body == nil {
		return nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	return data
}
