// Package client implements the HTTP engine of the CLI: API base candidate
// management with sticky fallback, retrying request execution, and the
// REST and tRPC transports built on top of it.
package client

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/host"
)

// BaseCandidate is one API base URL the client may talk to. Display is the
// human-readable form used in diagnostics; URL is pre-normalized for
// relative joining (query/fragment cleared, exactly one trailing slash).
type BaseCandidate struct {
	Display string
	URL     *url.URL
}

// buildBaseCandidates normalizes the configured host and expands it into the
// ordered candidate list. Constructed once per client instance, immutable
// afterwards.
func buildBaseCandidates(baseURL string) ([]BaseCandidate, error) {
	normalized, err := host.Normalize(baseURL)
	if err != nil {
		return nil, err
	}

	candidates := host.BaseCandidates(normalized)
	if len(candidates) == 0 {
		return nil, cliutil.InvalidArgumentf("host cannot be empty")
	}

	bases := make([]BaseCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		u, err := url.Parse(candidate)
		if err != nil {
			return nil, cliutil.InvalidArgumentf("invalid host url: %v", err)
		}
		normalizeBaseForJoin(u)
		bases = append(bases, BaseCandidate{Display: candidate, URL: u})
	}

	return bases, nil
}

// normalizeBaseForJoin prepares a base URL so that joining a leading-slash-
// stripped relative path appends to the base path instead of replacing it:
// joining "v1/x" onto ".../api/" yields ".../api/v1/x".
func normalizeBaseForJoin(u *url.URL) {
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
}

func joinRelative(base *url.URL, path string) (*url.URL, error) {
	relative := strings.TrimLeft(strings.TrimSpace(path), "/")
	u, err := base.Parse(relative)
	if err != nil {
		return nil, cliutil.InvalidArgumentf("invalid request path %q: %v", path, err)
	}
	return u, nil
}

func isAbsolutePath(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// buildURLForBase resolves a request path against the candidate at baseIdx.
// When allowAbsolute is set, a path that is itself an absolute http(s) URL
// bypasses the base entirely.
func buildURLForBase(bases []BaseCandidate, baseIdx int, path string, allowAbsolute bool) (*url.URL, error) {
	path = strings.TrimSpace(path)
	if allowAbsolute && isAbsolutePath(path) {
		u, err := url.Parse(path)
		if err != nil {
			return nil, cliutil.InvalidArgumentf("invalid request url %q: %v", path, err)
		}
		return u, nil
	}

	if baseIdx < 0 || baseIdx >= len(bases) {
		return nil, cliutil.InvalidArgumentf("invalid internal host base index")
	}
	return joinRelative(bases[baseIdx].URL, path)
}

// shouldTryBaseFallback is the single predicate deciding whether an error
// pattern suggests the request went to the wrong API base: 404, 405, or a
// body that failed to decode as JSON. Both the REST and tRPC transports use
// it unchanged. Anything else is final and must not trigger alternates.
func shouldTryBaseFallback(err error) bool {
	var httpStatus *cliutil.HTTPStatusError
	if errors.As(err, &httpStatus) {
		return httpStatus.Status == http.StatusNotFound || httpStatus.Status == http.StatusMethodNotAllowed
	}
	var decode *cliutil.DecodeError
	return errors.As(err, &decode)
}

// withBaseFallback runs one logical call through the sticky-base state
// machine. It attempts the currently active base; when the outcome matches
// shouldTry and the path was not absolute, it walks the remaining candidates
// in order. The first alternate that succeeds becomes the new active base
// (last-write-wins under races) and onSwitch fires with its index. When no
// alternate succeeds, the original error is returned: the configured base is
// the failure the user can act on.
func withBaseFallback[T any](
	bases []BaseCandidate,
	activeBase *atomic.Int32,
	path string,
	allowAbsolute bool,
	shouldTry func(error) bool,
	attempt func(u *url.URL) (T, error),
	onSwitch func(idx int),
) (T, error) {
	var zero T

	path = strings.TrimSpace(path)
	absolute := allowAbsolute && isAbsolutePath(path)

	baseIdx := int(activeBase.Load())
	u, err := buildURLForBase(bases, baseIdx, path, allowAbsolute)
	if err != nil {
		return zero, err
	}

	value, err := attempt(u)
	if absolute || len(bases) < 2 {
		return value, err
	}
	if err == nil || !shouldTry(err) {
		return value, err
	}

	for idx := range bases {
		if idx == baseIdx {
			continue
		}

		altURL, buildErr := buildURLForBase(bases, idx, path, allowAbsolute)
		if buildErr != nil {
			return zero, buildErr
		}
		if altValue, altErr := attempt(altURL); altErr == nil {
			activeBase.Store(int32(idx))
			onSwitch(idx)
			return altValue, nil
		}
	}

	return zero, err
}
