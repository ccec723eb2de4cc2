// Package keepalive pings the public URL of the service and the database on
// a schedule so neither the hosting platform nor the hosted Postgres idles
// the deployment.
package keepalive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/repository"
)

const pingTimeout = 30 * time.Second

// Status is what /status and the CLI report about the pinger.
type Status struct {
	Running   bool      `json:"running"`
	Pings     int       `json:"pings"`
	LastPing  time.Time `json:"lastPing,omitempty"`
	NextPing  time.Time `json:"nextPing,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

type Service struct {
	cfg    config.KeepAliveConfig
	store  repository.HeartbeatStore
	logger *zerolog.Logger
	client *http.Client
	now    func() time.Time

	cron  *cron.Cron
	entry cron.EntryID

	mu        sync.Mutex
	running   bool
	pings     int
	lastPing  time.Time
	lastError string
}

// New builds the pinger. store may be nil, which disables the database ping.
func New(cfg config.KeepAliveConfig, store repository.HeartbeatStore, logger *zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		logger: logger,
		client: &http.Client{Timeout: pingTimeout},
		now:    time.Now,
	}
}

// Start pings once and schedules the next pings every Interval.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})))
	entry, err := c.AddFunc("@every "+s.cfg.Interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		_ = s.Ping(ctx)
	})
	if err != nil {
		return errors.Wrap(err, "scheduling keep-alive")
	}

	if err := s.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("initial keep-alive ping failed")
	}

	c.Start()

	s.mu.Lock()
	s.cron, s.entry = c, entry
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Str("url", s.cfg.URL).
		Bool("database_ping", s.store != nil && s.cfg.DatabasePing).
		Dur("interval", s.cfg.Interval).
		Msg("keep-alive started")
	return nil
}

// Stop cancels future pings and waits for a running one to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("keep-alive stopped")
}

// Ping runs one HTTP and one database ping. Both are attempted; the returned
// error joins whichever failed.
func (s *Service) Ping(ctx context.Context) error {
	var httpErr, dbErr error
	if s.cfg.URL != "" {
		httpErr = s.pingURL(ctx)
	}
	if s.store != nil && s.cfg.DatabasePing {
		dbErr = s.pingDatabase(ctx)
	}

	err := joinErrors(httpErr, dbErr)

	s.mu.Lock()
	s.pings++
	s.lastPing = s.now()
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("keep-alive ping failed")
		return err
	}
	s.logger.Debug().Msg("keep-alive ping ok")
	return nil
}

func (s *Service) pingURL(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return errors.Wrap(err, "building keep-alive request")
	}
	req.Header.Set("User-Agent", "nacionmx-keepalive")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "http ping")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("http ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *Service) pingDatabase(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return errors.Wrap(err, "database ping")
	}
	if err := s.store.KeepAlive(ctx, repository.KeepAliveRowID, s.now()); err != nil {
		return errors.Wrap(err, "database keep-alive row")
	}
	return nil
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:   s.running,
		Pings:     s.pings,
		LastPing:  s.lastPing,
		LastError: s.lastError,
	}
	if s.running && s.cron != nil {
		status.NextPing = s.cron.Entry(s.entry).Next
	}
	return status
}

func joinErrors(a, b error) error {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return fmt.Errorf("%w; %w", a, b)
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
