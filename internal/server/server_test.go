package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(handler, 0, DefaultConfig())
	require.NoError(t, srv.Serve(ln))

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	_, open := <-srv.Errors()
	assert.False(t, open)
}

func TestServer_StartFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := New(http.NotFoundHandler(), port, DefaultConfig())
	srv.srv.Addr = ln.Addr().String()

	assert.Error(t, srv.Start())
}

func TestNew_AppliesConfig(t *testing.T) {
	srv := New(http.NotFoundHandler(), 8081, Config{ReadTimeout: time.Second, WriteTimeout: 2 * time.Second, IdleTimeout: 3 * time.Second})

	assert.Equal(t, ":8081", srv.srv.Addr)
	assert.Equal(t, time.Second, srv.srv.ReadTimeout)
	assert.Equal(t, 2*time.Second, srv.srv.WriteTimeout)
	assert.Equal(t, 3*time.Second, srv.srv.IdleTimeout)
}
