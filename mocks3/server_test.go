// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks3_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensormesh/gatewaykit/mocks3"
)

func startServer(t *testing.T) *mocks3.Server {
	t.Helper()

	srv := mocks3.New(mocks3.Config{
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

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	return srv
}

func put(t *testing.T, url, contentType, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

// TestAddrDuringStartup hammers Addr while Listen is still binding; the
// race detector flags any unsynchronized access to the listener field.
func TestAddrDuringStartup(t *testing.T) {
	srv := mocks3.New(mocks3.Config{
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

func TestPutGetRoundTrip(t *testing.T) {
	srv := startServer(t)

	resp := put(t, "http://"+srv.Addr()+"/exports/alarms/2026-08-25.json", "application/json", `{"bd":101}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))
	assert.NotEmpty(t, resp.Header.Get("x-amz-request-id"))

	got, err := http.Get("http://" + srv.Addr() + "/exports/alarms/2026-08-25.json")
	require.NoError(t, err)
	defer got.Body.Close()

	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	body, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"bd":101}`, string(body))
	assert.Equal(t, resp.Header.Get("ETag"), got.Header.Get("ETag"))
}

func TestGetMissingKeyReturnsNoSuchKey(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/exports/missing.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<Code>NoSuchKey</Code>")
	assert.Contains(t, string(body), "<Key>missing.json</Key>")
}

func TestListBucket(t *testing.T) {
	srv := startServer(t)

	put(t, "http://"+srv.Addr()+"/exports/b.json", "application/json", "{}")
	put(t, "http://"+srv.Addr()+"/exports/a.json", "application/json", "{}")

	resp, err := http.Get("http://" + srv.Addr() + "/exports")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "<Name>exports</Name>")
	assert.Contains(t, string(body), "<KeyCount>2</KeyCount>")
	// Listing is sorted by key.
	assert.Less(t,
		bytes.Index(body, []byte("<Key>a.json</Key>")),
		bytes.Index(body, []byte("<Key>b.json</Key>")))
}

func TestDelete(t *testing.T) {
	srv := startServer(t)

	put(t, "http://"+srv.Addr()+"/exports/gone.json", "application/json", "{}")

	req, err := http.NewRequest(http.MethodDelete, "http://"+srv.Addr()+"/exports/gone.json", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := http.Get("http://" + srv.Addr() + "/exports/gone.json")
	require.NoError(t, err)
	got.Body.Close()
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
}

func TestHead(t *testing.T) {
	srv := startServer(t)

	put(t, "http://"+srv.Addr()+"/exports/head.json", "application/json", `{"x":1}`)

	resp, err := http.Head("http://" + srv.Addr() + "/exports/head.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "7", resp.Header.Get("Content-Length"))
}

func TestUploadsAreRecordedInOrder(t *testing.T) {
	srv := startServer(t)

	put(t, "http://"+srv.Addr()+"/exports/first.json", "application/json", "1")
	put(t, "http://"+srv.Addr()+"/exports/second.json", "application/json", "22")

	uploads := srv.Uploads()
	require.Len(t, uploads, 2)
	assert.Equal(t, "first.json", uploads[0].Key)
	assert.Equal(t, "second.json", uploads[1].Key)
	assert.Equal(t, 2, uploads[1].Size)
	assert.Equal(t, "exports", uploads[0].Bucket)

	objs := srv.Objects("exports")
	require.Len(t, objs, 2)

	srv.Clear()
	assert.Empty(t, srv.Uploads())
	assert.Empty(t, srv.Objects("exports"))
}
