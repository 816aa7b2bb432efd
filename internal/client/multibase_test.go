package client

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

func TestBuildBaseCandidates(t *testing.T) {
	bases, err := buildBaseCandidates("https://example.com")
	require.NoError(t, err)
	require.Len(t, bases, 2)
	assert.Equal(t, "https://example.com", bases[0].Display)
	assert.Equal(t, "https://example.com/api", bases[1].Display)

	bases, err = buildBaseCandidates("https://example.com/api/")
	require.NoError(t, err)
	require.Len(t, bases, 2)
	assert.Equal(t, "https://example.com/api", bases[0].Display)
	assert.Equal(t, "https://example.com", bases[1].Display)
}

func TestBuildURLForBaseJoins(t *testing.T) {
	bases, err := buildBaseCandidates("https://example.com/api")
	require.NoError(t, err)

	u, err := buildURLForBase(bases, 0, "/api/trpc/foo?batch=1", false)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/api/trpc/foo?batch=1", u.String())

	u, err = buildURLForBase(bases, 1, "api/v1/network", false)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/v1/network", u.String())
}

func TestBuildURLForBaseAbsolute(t *testing.T) {
	bases, err := buildBaseCandidates("https://example.com")
	require.NoError(t, err)

	u, err := buildURLForBase(bases, 0, "https://elsewhere.example.com/x", true)
	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere.example.com/x", u.String())

	_, err = buildURLForBase(bases, 5, "api/v1/network", false)
	assert.Error(t, err, "out-of-range base index")
}

func TestShouldTryBaseFallback(t *testing.T) {
	assert.True(t, shouldTryBaseFallback(&cliutil.HTTPStatusError{Status: http.StatusNotFound}))
	assert.True(t, shouldTryBaseFallback(&cliutil.HTTPStatusError{Status: http.StatusMethodNotAllowed}))
	assert.True(t, shouldTryBaseFallback(&cliutil.DecodeError{}))

	assert.False(t, shouldTryBaseFallback(&cliutil.HTTPStatusError{Status: http.StatusUnauthorized}))
	assert.False(t, shouldTryBaseFallback(&cliutil.HTTPStatusError{Status: http.StatusInternalServerError}))
	assert.False(t, shouldTryBaseFallback(&cliutil.RateLimitedError{}))
	assert.False(t, shouldTryBaseFallback(&cliutil.SessionRequiredError{}))
}
