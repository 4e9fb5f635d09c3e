package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

func testLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: buf})
}

func TestCloseWithLogReportsFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	CloseWithLog(ctx, testLogger(buf), "redis", func() error { return errors.New("already closed") })

	require.Contains(t, buf.String(), `"resource":"redis"`)
	require.Contains(t, buf.String(), "already closed")
}

func TestCloseWithLogQuietOnSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	CloseWithLog(context.Background(), testLogger(buf), "db", func() error { return nil })
	require.Empty(t, buf.String())
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, testLogger(&bytes.Buffer{}), srv, time.Second) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeReturnsListenError(t *testing.T) {
	srv := &http.Server{Addr: "256.0.0.1:bad", ReadHeaderTimeout: time.Second}
	require.Error(t, Serve(context.Background(), testLogger(&bytes.Buffer{}), srv, time.Second))
}
