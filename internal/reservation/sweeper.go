package reservation

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically reclaims abandoned holds by running the engine's
// CleanupExpired on a fixed interval. It runs independently of request
// handling and tolerates being invoked more often than necessary.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	ticker   *time.Ticker
	stop     chan struct{}
	done     chan struct{}
}

// DefaultSweepInterval is used when configuration does not override it.
const DefaultSweepInterval = 5 * time.Minute

// NewSweeper creates a sweeper; non-positive intervals fall back to the
// default.
func NewSweeper(engine *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		slog.Warn("Invalid sweep interval, using default",
			"configured", interval.String(),
			"default", DefaultSweepInterval.String())
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.ticker = time.NewTicker(s.interval)
	go s.run(ctx)

	slog.Info("Expiry sweeper started", "interval", s.interval.String())
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-s.ticker.C:
			s.sweep(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	count, err := s.engine.CleanupExpired(ctx)
	if err != nil {
		// The next tick retries; an expired hold reclaimed late blocks
		// nothing because confirm checks expires_at itself.
		slog.Error("Expiry sweep failed", "error", err)
		return
	}

	slog.Debug("Expiry sweep completed",
		"reclaimed", count,
		"duration", time.Since(start).String())
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stop)
	<-s.done

	slog.Info("Expiry sweeper stopped")
}
