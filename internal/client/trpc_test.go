package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

func TestTRPCCallWrapsInputAndUnwrapsResult(t *testing.T) {
	var gotPath, gotQuery, gotCookie string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotCookie = r.Header.Get("Cookie")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`[{"result":{"data":{"json":[{"id":"org-1","orgName":"Acme"}]}}}]`))
	}))
	defer srv.Close()

	trpc, err := NewTRPC(srv.URL, 5*time.Second, 0, false, testUI())
	require.NoError(t, err)
	trpc.WithCookie("next-auth.session-token=abc")

	value, err := trpc.Call(context.Background(), "org.getOrgUsers", map[string]any{"organizationId": "org-1"})
	require.NoError(t, err)

	assert.Equal(t, "/api/trpc/org.getOrgUsers", gotPath)
	assert.Equal(t, "batch=1", gotQuery)
	assert.Equal(t, "next-auth.session-token=abc", gotCookie)

	var envelope map[string]map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	assert.Equal(t, map[string]any{"organizationId": "org-1"}, envelope["0"]["json"])

	assert.Equal(t, []any{map[string]any{"id": "org-1", "orgName": "Acme"}}, value)
}

func TestTRPCCallUnauthorizedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"error":{"message":"UNAUTHORIZED","data":{"code":"UNAUTHORIZED","httpStatus":401}}}]`))
	}))
	defer srv.Close()

	trpc, err := NewTRPC(srv.URL, 5*time.Second, 0, false, testUI())
	require.NoError(t, err)

	_, err = trpc.Call(context.Background(), "admin.getUsers", nil)
	var sessionRequired *cliutil.SessionRequiredError
	assert.ErrorAs(t, err, &sessionRequired)
}

func TestTRPCCallHTTP401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	trpc, err := NewTRPC(srv.URL, 5*time.Second, 0, false, testUI())
	require.NoError(t, err)

	_, err = trpc.Call(context.Background(), "admin.getUsers", nil)
	var sessionRequired *cliutil.SessionRequiredError
	assert.ErrorAs(t, err, &sessionRequired)
}

func TestParseTRPCEnvelope(t *testing.T) {
	t.Run("unwraps result data json", func(t *testing.T) {
		value, err := parseTRPCEnvelope(200, []any{
			map[string]any{"result": map[string]any{"data": map[string]any{"json": "payload"}}},
		})
		require.NoError(t, err)
		assert.Equal(t, "payload", value)
	})

	t.Run("data without json wrapper passes through", func(t *testing.T) {
		value, err := parseTRPCEnvelope(200, []any{
			map[string]any{"result": map[string]any{"data": "plain"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "plain", value)
	})

	t.Run("empty batch is an error", func(t *testing.T) {
		_, err := parseTRPCEnvelope(200, []any{})
		var statusErr *cliutil.HTTPStatusError
		assert.ErrorAs(t, err, &statusErr)
	})

	t.Run("error envelope carries message and status", func(t *testing.T) {
		_, err := parseTRPCEnvelope(200, []any{
			map[string]any{"error": map[string]any{
				"message": "conflict",
				"data":    map[string]any{"code": "CONFLICT", "httpStatus": float64(409)},
			}},
		})
		var statusErr *cliutil.HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 409, statusErr.Status)
		assert.Equal(t, "conflict", statusErr.Message)
	})
}

func TestTRPCInvalidJSONTriggersFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/trpc/network.getUserNetworks":
			w.Write([]byte(`<html>not json</html>`))
		case "/api/api/trpc/network.getUserNetworks":
			w.Write([]byte(`[{"result":{"data":{"json":[]}}}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	trpc, err := NewTRPC(srv.URL, 5*time.Second, 0, false, testUI())
	require.NoError(t, err)

	value, err := trpc.Call(context.Background(), "network.getUserNetworks", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, value)
}

func TestNextAuthCookie(t *testing.T) {
	assert.Equal(t, "", NextAuthCookie("", "device"))

	cookie := NextAuthCookie("sess", "")
	assert.Equal(t, "next-auth.session-token=sess; __Secure-next-auth.session-token=sess", cookie)

	cookie = NextAuthCookie("sess", "dev")
	assert.Contains(t, cookie, "next-auth.did-token=dev")
}

func TestRequireNextAuthCookie(t *testing.T) {
	_, err := RequireNextAuthCookie("", "")
	var sessionRequired *cliutil.SessionRequiredError
	assert.ErrorAs(t, err, &sessionRequired)

	cookie, err := RequireNextAuthCookie("sess", "")
	require.NoError(t, err)
	assert.NotEmpty(t, cookie)
}
