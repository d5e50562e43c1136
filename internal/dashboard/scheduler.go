package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/ep9io/ax206dash/internal/model"
	"github.com/ep9io/ax206dash/internal/render"
)

// State is the scheduler's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateActive
	StateRecovering
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateRecovering:
		return "recovering"
	case StateShuttingDown:
		return "shutting down"
	default:
		return "unknown"
	}
}

// SchedulerOptions are the scheduler's tuning knobs, all validated by config.
type SchedulerOptions struct {
	Tick           time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// LogEvery throttles connect-failure logging while the panel stays
	// absent: first failure at warn, then one line per LogEvery attempts.
	LogEvery    int
	Backlight   int
	Orientation int
}

// Scheduler drives the tick cycle: read snapshot, render, upload. It owns the
// device session exclusively and recovers from device loss by reopening with
// bounded exponential backoff.
type Scheduler struct {
	logger *slog.Logger
	open   Opener
	rend   *render.Renderer
	store  *model.Store
	opts   SchedulerOptions

	state    State
	dev      Device
	prev     *render.Frame
	backoff  time.Duration
	failures int
	sizeWarn bool
}

func NewScheduler(open Opener, rend *render.Renderer, store *model.Store, opts SchedulerOptions, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger,
		open:    open,
		rend:    rend,
		store:   store,
		opts:    opts,
		state:   StateDisconnected,
		backoff: opts.BackoffInitial,
	}
}

// State reports the current scheduler state. The scheduler runs on a single
// goroutine; State is not synchronized.
func (s *Scheduler) State() State { return s.state }

// Run loops until the context is cancelled, then closes the session.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.shutdown()
	for {
		if ctx.Err() != nil {
			s.state = StateShuttingDown
			return nil
		}
		switch s.state {
		case StateDisconnected, StateRecovering:
			s.closeSession()
			s.state = StateConnecting
		case StateConnecting:
			s.connect(ctx)
		case StateActive:
			s.runActive(ctx)
		}
	}
}

func (s *Scheduler) connect(ctx context.Context) {
	dev, err := s.open(ctx)
	if err != nil {
		s.backoffAfterFailure(ctx, "device connect failed", err)
		return
	}

	// A device that opens but rejects its settings counts as a failed
	// attempt; without the backoff this would spin on the bus.
	if err := dev.SetBacklight(ctx, s.opts.Backlight); err != nil {
		dev.Close()
		s.backoffAfterFailure(ctx, "set backlight failed", err)
		return
	}
	if err := dev.SetOrientation(ctx, s.opts.Orientation); err != nil {
		dev.Close()
		s.backoffAfterFailure(ctx, "set orientation failed", err)
		return
	}

	w, h := dev.Size()
	s.logger.Info("device connected", "width", w, "height", h, "attempts", s.failures+1)
	s.dev = dev
	s.prev = nil
	s.failures = 0
	s.backoff = s.opts.BackoffInitial
	s.sizeWarn = false
	s.state = StateActive
}

// backoffAfterFailure records one failed connect attempt: throttled warn,
// sleep the current backoff, then double it toward the cap.
func (s *Scheduler) backoffAfterFailure(ctx context.Context, msg string, err error) {
	s.failures++
	if s.failures == 1 || s.failures%s.opts.LogEvery == 0 {
		s.logger.Warn(msg, "attempt", s.failures, "retry_in", s.backoff, "error", err)
	}
	s.sleep(ctx, s.backoff)
	s.backoff *= 2
	if s.backoff > s.opts.BackoffMax {
		s.backoff = s.opts.BackoffMax
	}
}

func (s *Scheduler) runActive(ctx context.Context) {
	// First frame right away, then on the tick.
	if err := s.cycle(ctx); err != nil {
		s.handleUploadError(err)
		return
	}

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.state = StateShuttingDown
			return
		case <-ticker.C:
			if err := s.cycle(ctx); err != nil {
				s.handleUploadError(err)
				return
			}
			// A cycle that overran the interval leaves a tick queued in
			// the channel; drop it so stale frames are skipped, not
			// backlogged.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// cycle renders the freshest snapshot and uploads the changed region.
func (s *Scheduler) cycle(ctx context.Context) error {
	snap := s.store.Load()
	frame := s.rend.Render(snap, time.Now())

	s.warnOnSizeMismatch(frame)

	var err error
	if rect, changed := render.DiffRect(s.prev, frame); s.prev == nil {
		err = s.dev.UploadFrame(ctx, frame)
	} else if changed {
		err = s.dev.UploadRegion(ctx, frame, rect)
	}
	if err != nil {
		return err
	}
	s.prev = frame
	return nil
}

func (s *Scheduler) handleUploadError(err error) {
	s.logger.Error("frame upload failed, reconnecting", "error", err)
	s.state = StateRecovering
}

func (s *Scheduler) warnOnSizeMismatch(frame *render.Frame) {
	if s.sizeWarn {
		return
	}
	w, h := s.dev.Size()
	b := frame.Bounds()
	if b.Dx() != w || b.Dy() != h {
		s.logger.Warn("canvas does not match panel, frames will be rescaled",
			"canvas_width", b.Dx(), "canvas_height", b.Dy(), "panel_width", w, "panel_height", h)
		s.sizeWarn = true
	}
}

// RunOnce performs a single connect/render/upload and closes the session.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	dev, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.SetBacklight(ctx, s.opts.Backlight); err != nil {
		return err
	}
	if err := dev.SetOrientation(ctx, s.opts.Orientation); err != nil {
		return err
	}
	frame := s.rend.Render(s.store.Load(), time.Now())
	return dev.UploadFrame(ctx, frame)
}

func (s *Scheduler) closeSession() {
	if s.dev == nil {
		return
	}
	if err := s.dev.Close(); err != nil {
		s.logger.Debug("session close failed", "error", err)
	}
	s.dev = nil
	s.prev = nil
}

func (s *Scheduler) shutdown() {
	s.state = StateShuttingDown
	s.closeSession()
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
