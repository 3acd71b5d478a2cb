package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokemate/internal/config"
	"brokemate/internal/core"
	"brokemate/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestOpenSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := OpenSessionStore(ctx, &config.Config{SessionBackend: "memory", SessionTTL: time.Hour})
		require.NoError(t, err)
		defer store.Close()

		id, err := store.Create(ctx, 4)
		require.NoError(t, err)
		userID, ok, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(4), userID)
		assert.NoError(t, store.Ping(ctx))
		assert.NoError(t, store.Close(), "close stops the sweep and may be repeated")
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := OpenSessionStore(ctx, &config.Config{SessionBackend: "redis", RedisAddr: mr.Addr(), SessionTTL: time.Hour})
		require.NoError(t, err)
		defer store.Close()

		id, err := store.Create(ctx, 9)
		require.NoError(t, err)
		assert.True(t, mr.Exists("session:"+id))
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := OpenSessionStore(ctx, &config.Config{SessionBackend: "etcd"})
		assert.Error(t, err)
	})
}

func TestNewCategorizerDisabled(t *testing.T) {
	c := NewCategorizer(&config.Config{ClassifierEnabled: false}, testLogger())
	assert.False(t, c.Enabled())
	assert.Equal(t, core.DefaultCategory, c.Categorize(context.Background(), "coffee"))

	c = NewCategorizer(&config.Config{ClassifierEnabled: true}, testLogger())
	assert.False(t, c.Enabled(), "no URL means no classifier")
}

func TestConnectAMQPDisabled(t *testing.T) {
	assert.Nil(t, ConnectAMQP(&config.Config{}, testLogger()))
}

type fakeServer struct {
	stop     chan struct{}
	serveErr error
	shutdown int
}

func (s *fakeServer) ListenAndServe() error {
	if s.serveErr != nil {
		return s.serveErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	s.shutdown++
	close(s.stop)
	return nil
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, testLogger(), srv) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Equal(t, 1, srv.shutdown)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReturnsServeError(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{}), serveErr: errors.New("address in use")}

	err := Run(context.Background(), testLogger(), srv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
}
