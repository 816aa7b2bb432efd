// Package host normalizes user-supplied ZTNet host strings and derives the
// canonical keys and API base candidates the rest of the CLI works with.
//
// Users write the same instance many ways: "localhost:3000",
// "HTTPS://Example.com/", "https://example.com:443". Everything that stores
// or compares hosts goes through Normalize and CanonicalKey so that all of
// those spellings collapse to one value.
package host

import (
	"net/url"
	"strings"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

// Normalize parses a raw host string into a normalized absolute URL.
//
// A missing scheme is inferred: http for loopback hosts (localhost, ::1,
// 0.0.0.0, 127.*), https otherwise. The result has a lowercased scheme and
// host, no query, no fragment and no trailing slash. Normalize is idempotent:
// Normalize(Normalize(x)) == Normalize(x) for any accepted input.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", cliutil.InvalidArgumentf("host cannot be empty")
	}

	withScheme := trimmed
	if !strings.Contains(trimmed, "://") {
		withScheme = inferDefaultScheme(trimmed) + "://" + trimmed
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return "", cliutil.InvalidArgumentf("invalid host url: %v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", cliutil.InvalidArgumentf("invalid host url: unsupported scheme '%s' (expected http or https)", scheme)
	}

	if u.Hostname() == "" {
		return "", cliutil.InvalidArgumentf("invalid host url: missing hostname")
	}

	if u.User != nil {
		return "", cliutil.InvalidArgumentf("invalid host url: must not include credentials")
	}

	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""

	out := u.String()
	out = strings.TrimRight(out, "/")
	return out, nil
}

// CanonicalKey reduces a host reference to its comparison key of the form
// scheme://host[:port]. The host is lowercased, IPv6 hosts stay bracketed and
// the port is omitted when it equals the scheme's default (80 for http, 443
// for https). Two references to the same origin always yield the same key.
//
// The input does not need to be normalized already; it is re-normalized
// internally.
func CanonicalKey(raw string) (string, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return "", cliutil.InvalidArgumentf("invalid host url: %v", err)
	}

	hostname := strings.ToLower(u.Hostname())
	if strings.Contains(hostname, ":") {
		hostname = "[" + hostname + "]"
	}

	key := u.Scheme + "://" + hostname
	if port := u.Port(); port != "" && port != defaultPort(u.Scheme) {
		key += ":" + port
	}
	return key, nil
}

// CanonicalKeyOK is the variant of CanonicalKey for optionally-absent stored
// values: it reports false instead of an error when the value is empty or
// unparseable.
func CanonicalKeyOK(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	key, err := CanonicalKey(raw)
	if err != nil {
		return "", false
	}
	return key, true
}

// BaseCandidates derives the ordered list of API base URLs to try for one
// normalized host. Index 0 is the configured base itself. ZTNet instances are
// reachable either at their origin or behind an /api path prefix, so the
// second candidate strips a trailing /api segment when present and appends
// one otherwise. The result never contains duplicates.
func BaseCandidates(base string) []string {
	base = strings.TrimRight(base, "/")

	out := make([]string, 0, 2)
	if base != "" {
		out = append(out, base)
	}

	if stripped, ok := strings.CutSuffix(base, "/api"); ok {
		if stripped != "" && !contains(out, stripped) {
			out = append(out, stripped)
		}
	} else if candidate := base + "/api"; !contains(out, candidate) {
		out = append(out, candidate)
	}

	return out
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func inferDefaultScheme(raw string) string {
	beforeSlash, _, _ := strings.Cut(raw, "/")

	hostPart := beforeSlash
	if rest, ok := strings.CutPrefix(beforeSlash, "["); ok {
		if end := strings.Index(rest, "]"); end >= 0 {
			hostPart = rest[:end]
		}
	} else {
		hostPart, _, _ = strings.Cut(beforeSlash, ":")
	}

	hostLower := strings.ToLower(hostPart)
	if hostLower == "localhost" || hostLower == "::1" || hostLower == "0.0.0.0" || strings.HasPrefix(hostLower, "127.") {
		return "http"
	}
	return "https"
}
