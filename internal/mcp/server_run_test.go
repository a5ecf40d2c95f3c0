package mcp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freePort reserves and releases a local TCP port
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServer_Run_ServerMode(t *testing.T) {
	server, _ := newTestServer(t)
	server.config.Mode = "server"
	server.config.Host = "127.0.0.1"
	server.config.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	sseURL := fmt.Sprintf("http://%s/sse", server.config.Address())
	require.Eventually(t, func() bool {
		reqCtx, reqCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer reqCancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sseURL, nil)
		if err != nil {
			return false
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK &&
			resp.Header.Get("Content-Type") == "text/event-stream"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestServer_Run_ServerModeAddressInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	server, _ := newTestServer(t)
	server.config.Mode = "server"
	server.config.Host = "127.0.0.1"
	server.config.Port = l.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to serve SSE")
}
