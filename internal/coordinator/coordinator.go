// Package coordinator keeps the store in step with Flair: it polls on a
// fixed interval and runs debounced refreshes after commands.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flairbridge/internal/clock"
	"flairbridge/internal/flair"
	"flairbridge/internal/model"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultDebounce     = 2 * time.Second
)

// ErrAlreadyStarted is returned by Start on a running coordinator.
var ErrAlreadyStarted = errors.New("coordinator already started")

// Options tune the poll schedule.
type Options struct {
	PollInterval time.Duration
	Debounce     time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	return o
}

// Coordinator owns the only path that replaces the cached snapshot.
type Coordinator struct {
	fetcher flair.Fetcher
	store   *model.Store
	clock   clock.Clock
	logger  *zap.Logger
	opts    Options
	metrics *Metrics

	// refreshMu serializes fetch and replace so snapshots land in order.
	refreshMu sync.Mutex

	mu          sync.Mutex
	listeners   []func()
	debounce    clock.Timer
	runCtx      context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	lastSuccess time.Time
	lastErr     error
}

// New creates a coordinator. A nil clock uses the real clock.
func New(fetcher flair.Fetcher, store *model.Store, clk clock.Clock, opts Options, logger *zap.Logger) *Coordinator {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Coordinator{
		fetcher: fetcher,
		store:   store,
		clock:   clk,
		logger:  logger.Named("coordinator"),
		opts:    opts.withDefaults(),
		metrics: newMetrics(),
		runCtx:  context.Background(),
	}
}

// Metrics exposes the poll metrics.
func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

// AddListener registers fn to run after every successful refresh.
func (c *Coordinator) AddListener(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Refresh fetches every structure and replaces the cache.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := c.clock.Now()
	snap, err := c.fetcher.Fetch(ctx)
	c.metrics.duration.Observe(c.clock.Now().Sub(start).Seconds())

	if err != nil {
		c.metrics.refreshes.WithLabelValues("error").Inc()
		c.metrics.success.Set(0)
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return fmt.Errorf("refresh failed: %w", err)
	}

	c.store.Replace(snap)

	now := c.clock.Now()
	c.metrics.refreshes.WithLabelValues("success").Inc()
	c.metrics.success.Set(1)
	c.metrics.lastSuccess.Set(float64(now.Unix()))

	c.mu.Lock()
	c.lastSuccess = now
	c.lastErr = nil
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()

	c.logger.Debug("Refreshed Flair state", zap.Int("structures", len(snap.Structures)))

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// RequestRefresh schedules a refresh after the debounce window. Requests
// inside the window push it out and share one fetch.
func (c *Coordinator) RequestRefresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.debounce != nil && c.debounce.Stop() {
		c.debounce.Reset(c.opts.Debounce)
		c.logger.Debug("Coalesced refresh request")
		return
	}
	c.debounce = c.clock.AfterFunc(c.opts.Debounce, c.debouncedRefresh)
}

func (c *Coordinator) debouncedRefresh() {
	c.mu.Lock()
	ctx := c.runCtx
	c.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("Requested refresh failed", zap.Error(err))
	}
}

// Start runs the first refresh synchronously, then polls until Stop or
// until ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.mu.Unlock()

	c.logger.Info("Starting coordinator",
		zap.Duration("poll_interval", c.opts.PollInterval),
		zap.Duration("debounce", c.opts.Debounce))

	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	ticker := c.clock.NewTicker(c.opts.PollInterval)
	done := make(chan struct{})

	c.mu.Lock()
	c.runCtx = runCtx
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, ticker, done)

	c.logger.Info("Coordinator started")
	return nil
}

func (c *Coordinator) run(ctx context.Context, ticker clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("Scheduled refresh failed", zap.Error(err))
			}
		}
	}
}

// Stop ends polling and drops any pending requested refresh.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	c.mu.Lock()
	c.cancel = nil
	c.done = nil
	c.runCtx = context.Background()
	c.mu.Unlock()

	c.logger.Info("Coordinator stopped")
}

// Healthy reports whether the most recent refresh succeeded.
func (c *Coordinator) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr == nil && !c.lastSuccess.IsZero()
}

// LastSuccess returns the time of the last successful refresh.
func (c *Coordinator) LastSuccess() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSuccess
}
