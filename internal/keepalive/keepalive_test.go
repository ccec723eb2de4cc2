package keepalive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/repository"
	"github.com/nacionmx/unified-bot/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newService(t *testing.T, url string, store repository.HeartbeatStore) *Service {
	t.Helper()
	log := zerolog.Nop()
	s := New(config.KeepAliveConfig{
		Enabled:      true,
		URL:          url,
		Interval:     time.Hour,
		DatabasePing: true,
	}, store, &log)
	s.client = &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	return s
}

func TestPing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "nacionmx-keepalive", r.UserAgent())
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	store := testutil.NewHeartbeats()

	s := newService(t, srv.URL, store)
	require.NoError(t, s.Ping(context.Background()))

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, store.Pings())
	assert.Equal(t, 1, store.KeepAlives())
	row, ok := store.Row(repository.KeepAliveRowID)
	require.True(t, ok)
	assert.Equal(t, "keep_alive", *row.Status)
}

func TestPingFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	store := testutil.NewHeartbeats()
	store.SetErr(errors.New("connection reset"))

	s := newService(t, srv.URL, store)
	err := s.Ping(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, err.Error(), s.Status().LastError)

	store.SetErr(nil)
	s.cfg.URL = ""
	require.NoError(t, s.Ping(context.Background()))
	assert.Empty(t, s.Status().LastError)
	assert.Equal(t, 2, s.Status().Pings)
}

func TestPingWithoutDatabase(t *testing.T) {
	s := newService(t, "", nil)
	require.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, 1, s.Status().Pings)
	assert.Empty(t, s.Status().LastError)
}

func TestStartPingsImmediately(t *testing.T) {
	store := testutil.NewHeartbeats()
	s := newService(t, "", store)

	require.NoError(t, s.Start(context.Background()))
	status := s.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.Pings)
	assert.WithinDuration(t, time.Now().Add(time.Hour), status.NextPing, time.Minute)

	s.Stop()
	assert.False(t, s.Status().Running)
	s.Stop()
}
