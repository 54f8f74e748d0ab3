package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, code int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/health"
}

func TestProbe_OK(t *testing.T) {
	url := serve(t, http.StatusOK, `{"status":"ok","version":"1.0.0","services":{"database":{"status":"ok"}}}`)
	report, err := probe(context.Background(), http.DefaultClient, url)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", report.Version)
}

func TestProbe_DatabaseDown(t *testing.T) {
	url := serve(t, http.StatusServiceUnavailable, `{"status":"error","services":{"database":{"status":"error","error":"connection refused"}}}`)
	_, err := probe(context.Background(), http.DefaultClient, url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestProbe_UnreadableBody(t *testing.T) {
	url := serve(t, http.StatusBadGateway, `<html>bad gateway</html>`)
	_, err := probe(context.Background(), http.DefaultClient, url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
