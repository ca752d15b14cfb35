package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runProvision(t *testing.T, portal string, args ...string) (string, error) {
	t.Helper()
	cmd := newProvisionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--portal", portal}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestProvisionCommandPostsForm(t *testing.T) {
	var got url.Values
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/provision", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	t.Setenv(passwordEnv, "ab!cd")
	out, err := runProvision(t, portal.URL, "--ssid", "My Home", "--device-id", "dev-01")
	require.NoError(t, err)

	assert.Equal(t, "My Home", got.Get("ssid"))
	assert.Equal(t, "ab!cd", got.Get("password"))
	assert.Equal(t, "dev-01", got.Get("device_id"))
	assert.False(t, got.Has("api_key"))
	assert.Contains(t, out, "My Home")
}

func TestProvisionCommandReportsPortalError(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Device already provisioned", http.StatusConflict)
	}))
	defer portal.Close()

	t.Setenv(passwordEnv, "pw")
	_, err := runProvision(t, portal.URL, "--ssid", "Net", "--device-id", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "Device already provisioned")
}

func TestProvisionCommandRequiresFields(t *testing.T) {
	t.Setenv(passwordEnv, "pw")
	_, err := runProvision(t, "http://127.0.0.1:1", "--device-id", "d")
	assert.ErrorContains(t, err, "--ssid")

	_, err = runProvision(t, "http://127.0.0.1:1", "--ssid", "Net")
	assert.ErrorContains(t, err, "--device-id")

	t.Setenv(passwordEnv, "")
	_, err = runProvision(t, "http://127.0.0.1:1", "--ssid", "Net", "--device-id", "d")
	assert.ErrorContains(t, err, passwordEnv)
}

func TestProvisionCommandInitializesLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})))

	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	t.Setenv(passwordEnv, "ab!cd")
	_, err := runProvision(t, portal.URL, "--ssid", "My Home", "--device-id", "dev-01")
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelInfo))
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelDebug))
}
