package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microloan/internal/presentation/rest"
)

func serve(t *testing.T, checks map[string]rest.Check, path string) (int, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	rest.NewHealthHandler("microloand", checks, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("liveness ignores dependencies", func(t *testing.T) {
		code, body := serve(t, map[string]rest.Check{"postgres": down}, "/healthz")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "microloand", body["service"])
	})

	t.Run("ready when every check passes", func(t *testing.T) {
		code, body := serve(t, map[string]rest.Check{"postgres": ok}, "/readyz")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("unavailable when a check fails", func(t *testing.T) {
		code, body := serve(t, map[string]rest.Check{"postgres": down, "ledger": ok}, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "connection refused", checks["postgres"])
		assert.Equal(t, "ok", checks["ledger"])
	})
}
