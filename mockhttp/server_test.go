// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mockhttp_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensormesh/gatewaykit/mockhttp"
)

func startServer(t *testing.T, cfg mockhttp.Config) *mockhttp.Server {
	t.Helper()

	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	srv := mockhttp.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Listen(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	return srv
}

// TestAddrDuringStartup hammers Addr while Listen is still binding; the
// race detector flags any unsynchronized access to the listener field.
func TestAddrDuringStartup(t *testing.T) {
	srv := mockhttp.New(mockhttp.Config{
		Addr:   "127.0.0.1:0",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Listen(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, time.Microsecond)
	assert.NotEmpty(t, srv.Addr())
}

func TestRecordsRequests(t *testing.T) {
	srv := startServer(t, mockhttp.Config{})

	resp, err := http.Post("http://"+srv.Addr()+"/export/alarms", "application/json", strings.NewReader(`{"bd":101}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/export/alarms", reqs[0].Path)
	assert.Equal(t, `{"bd":101}`, reqs[0].Body)
	assert.Equal(t, "application/json", reqs[0].Headers.Get("Content-Type"))
}

func TestConfiguredStatusAndBody(t *testing.T) {
	srv := startServer(t, mockhttp.Config{Status: http.StatusAccepted, Body: `{"queued":true}`})

	resp, err := http.Get("http://" + srv.Addr() + "/anything")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"queued":true}`, string(body))
}

func TestFailureMode(t *testing.T) {
	srv := startServer(t, mockhttp.Config{})

	srv.SetFailing(true)
	resp, err := http.Get("http://" + srv.Addr() + "/export")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv.SetFailing(false)
	resp, err = http.Get("http://" + srv.Addr() + "/export")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Failed deliveries are still recorded; that is the point.
	assert.Len(t, srv.Requests(), 2)
}

func TestClear(t *testing.T) {
	srv := startServer(t, mockhttp.Config{})

	resp, err := http.Get("http://" + srv.Addr() + "/one")
	require.NoError(t, err)
	resp.Body.Close()
	require.Len(t, srv.Requests(), 1)

	srv.Clear()
	assert.Empty(t, srv.Requests())
}

func TestHealthIsNotRecorded(t *testing.T) {
	srv := startServer(t, mockhttp.Config{})

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
	assert.Empty(t, srv.Requests())
}
