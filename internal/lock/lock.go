// Package lock keeps a single bot process connected to Discord at a time.
//
// The lock is a row in bot_heartbeats. The holder refreshes its heartbeat on
// an interval; a row whose heartbeat is older than StaleAfter may be taken
// over by any instance. The lock is best effort: when the database cannot be
// reached the process starts anyway.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/repository"
)

const (
	acquireAttempts = 3
	callTimeout     = 10 * time.Second

	breakerThreshold = 5
	breakerReset     = 5 * time.Minute
)

// Status is a snapshot of the lock for health endpoints and the CLI.
type Status struct {
	InstanceID    string    `json:"instanceId"`
	Held          bool      `json:"held"`
	FailOpen      bool      `json:"failOpen"`
	BreakerOpen   bool      `json:"breakerOpen"`
	Failures      int       `json:"consecutiveFailures"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

type Lock struct {
	store      repository.HeartbeatStore
	cfg        config.LockConfig
	instanceID string
	logger     *zerolog.Logger

	now          func() time.Time
	retryInitial time.Duration
	retryMax     time.Duration

	mu          sync.Mutex
	held        bool
	failOpen    bool
	failures    int
	breakerOpen bool
	lastSuccess time.Time

	stop     chan struct{}
	done     chan struct{}
	lost     chan struct{}
	lostOnce sync.Once
}

func New(store repository.HeartbeatStore, cfg config.LockConfig, instanceID string, logger *zerolog.Logger) *Lock {
	return &Lock{
		store:        store,
		cfg:          cfg,
		instanceID:   instanceID,
		logger:       logger,
		now:          time.Now,
		retryInitial: time.Second,
		retryMax:     10 * time.Second,
		lost:         make(chan struct{}),
	}
}

func (l *Lock) InstanceID() string {
	return l.instanceID
}

// Lost is closed when another instance takes the row over while we hold it.
func (l *Lock) Lost() <-chan struct{} {
	return l.lost
}

// Acquire tries to take the lock and, on success, starts the heartbeat.
// It returns false only when another live instance holds the row. Database
// failures that survive the retries count as acquired.
func (l *Lock) Acquire(ctx context.Context) bool {
	claimed, err := l.claim(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		l.logger.Warn().Err(err).Str("instance_id", l.instanceID).
			Msg("could not reach heartbeat store, starting without the lock")
		l.mu.Lock()
		l.failOpen = true
		l.mu.Unlock()
		return true
	}
	if !claimed {
		return false
	}

	l.mu.Lock()
	l.held = true
	l.lastSuccess = l.now()
	l.mu.Unlock()

	l.startHeartbeat()
	l.logger.Info().Str("instance_id", l.instanceID).Str("key", l.cfg.Key).Msg("lock acquired")
	return true
}

// AcquireWithWait retries Acquire up to WaitAttempts times, WaitInterval
// apart, while another instance holds the lock. When the wait runs out it
// starts anyway. It returns false only if ctx ends first.
func (l *Lock) AcquireWithWait(ctx context.Context) bool {
	for attempt := 0; ; attempt++ {
		if l.Acquire(ctx) {
			return true
		}
		if attempt >= l.cfg.WaitAttempts {
			break
		}
		l.logger.Info().
			Int("attempt", attempt+1).
			Int("max_attempts", l.cfg.WaitAttempts).
			Dur("wait", l.cfg.WaitInterval).
			Msg("another instance holds the lock, waiting")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(l.cfg.WaitInterval):
		}
	}

	if ctx.Err() != nil {
		return false
	}
	l.logger.Warn().Str("instance_id", l.instanceID).Msg("lock still held by another instance, force starting")
	l.mu.Lock()
	l.failOpen = true
	l.mu.Unlock()
	return true
}

func (l *Lock) claim(ctx context.Context) (bool, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.retryInitial
	policy.MaxInterval = l.retryMax

	return backoff.Retry(ctx, func() (bool, error) {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		now := l.now()
		ok, err := l.store.TryClaim(callCtx, l.cfg.Key, l.instanceID, now, now.Add(-l.cfg.StaleAfter))
		if err != nil {
			return false, errors.Wrap(err, "claiming heartbeat row")
		}
		return ok, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(acquireAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.logger.Warn().Err(err).Dur("retry_in", next).Msg("heartbeat claim failed, retrying")
		}),
	)
}

func (l *Lock) startHeartbeat() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		return
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.heartbeatLoop(l.stop, l.done)
}

func (l *Lock) heartbeatLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !l.beat(context.Background()) {
				return
			}
		}
	}
}

// beat refreshes the heartbeat once. It returns false when the row now
// belongs to another instance and heartbeating should stop.
func (l *Lock) beat(ctx context.Context) bool {
	now := l.now()

	l.mu.Lock()
	if l.breakerOpen {
		if now.Sub(l.lastSuccess) < breakerReset {
			l.mu.Unlock()
			return true
		}
		l.breakerOpen = false
		l.failures = 0
		l.logger.Info().Msg("heartbeat circuit breaker reset")
	}
	l.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	ours, err := l.store.Touch(callCtx, l.cfg.Key, l.instanceID, now)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.failures++
		event := l.logger.Warn().Err(err).Int("consecutive_failures", l.failures)
		if l.failures >= breakerThreshold && !l.breakerOpen {
			l.breakerOpen = true
			event.Msg("heartbeat failing, circuit breaker open")
		} else {
			event.Msg("heartbeat failed")
		}
		return true
	}

	if !ours {
		l.held = false
		l.logger.Error().Str("instance_id", l.instanceID).Msg("lock taken over by another instance")
		l.lostOnce.Do(func() { close(l.lost) })
		return false
	}

	l.failures = 0
	l.lastSuccess = now
	return true
}

// Release stops the heartbeat and frees the row for the next instance.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	stop, done := l.stop, l.done
	held := l.held
	l.stop, l.done = nil, nil
	l.held = false
	l.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if !held {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := l.store.Release(callCtx, l.cfg.Key, l.instanceID); err != nil {
		return errors.Wrap(err, "releasing lock")
	}
	l.logger.Info().Str("instance_id", l.instanceID).Msg("lock released")
	return nil
}

func (l *Lock) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		InstanceID:    l.instanceID,
		Held:          l.held,
		FailOpen:      l.failOpen,
		BreakerOpen:   l.breakerOpen,
		Failures:      l.failures,
		LastHeartbeat: l.lastSuccess,
	}
}

// Clear expires the lock row whoever holds it, so the next process starts
// without waiting. Used by the heartbeat clear command.
func Clear(ctx context.Context, store repository.HeartbeatStore, key string) error {
	if err := store.Clear(ctx, key); err != nil {
		return errors.Wrap(err, "clearing heartbeat")
	}
	return nil
}
