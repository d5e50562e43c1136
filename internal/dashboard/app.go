// Package dashboard wires the collector, renderer and device transport into
// the periodic cycle and owns process lifecycle: signals, graceful shutdown,
// reconnect policy.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ep9io/ax206dash/internal/ax206"
	"github.com/ep9io/ax206dash/internal/config"
	"github.com/ep9io/ax206dash/internal/layout"
	"github.com/ep9io/ax206dash/internal/metrics"
	"github.com/ep9io/ax206dash/internal/model"
	"github.com/ep9io/ax206dash/internal/render"
)

const shutdownGrace = 10 * time.Second

// Options adjust App behavior beyond the config file (CLI flags).
type Options struct {
	// SimulatePath, when set, renders to this PNG file instead of hardware.
	SimulatePath string
	// Once runs a single collect/render/upload cycle and exits.
	Once bool
}

type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	opts      Options
	collector *metrics.Collector
	scheduler *Scheduler
}

func New(cfg *config.Config, opts Options, logger *slog.Logger) (*App, error) {
	store := model.NewStore()
	src := metrics.NewSystemSource(cfg.Metrics)
	collector := metrics.NewCollector(src, store, cfg.Metrics.Interval, cfg.Metrics.HistoryDepth, logger)

	// Layout errors are fatal before any device I/O is attempted.
	m, err := layout.Load(cfg, src.Fields())
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}
	rend, err := render.New(m)
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	open, err := buildOpener(cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	scheduler := NewScheduler(open, rend, store, SchedulerOptions{
		Tick:           cfg.Tick,
		BackoffInitial: cfg.Reconnect.Initial,
		BackoffMax:     cfg.Reconnect.Max,
		LogEvery:       cfg.Reconnect.LogEvery,
		Backlight:      cfg.Device.Backlight,
		Orientation:    cfg.Device.OrientationTurns(),
	}, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		opts:      opts,
		collector: collector,
		scheduler: scheduler,
	}, nil
}

func buildOpener(cfg *config.Config, opts Options, logger *slog.Logger) (Opener, error) {
	if opts.SimulatePath != "" {
		dev := newFileDevice(opts.SimulatePath, cfg.Canvas.Width, cfg.Canvas.Height)
		return func(context.Context) (Device, error) { return dev, nil }, nil
	}
	sel, err := ax206.ParseSelector(cfg.Device.Selector)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (Device, error) {
		return ax206.Open(ctx, sel, logger)
	}, nil
}

// Run drives the dashboard until a signal or fatal error. A second signal or
// an expired grace timer forces shutdown.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting ax206dash",
		"tick", a.cfg.Tick, "canvas", fmt.Sprintf("%dx%d", a.cfg.Canvas.Width, a.cfg.Canvas.Height))

	if a.opts.Once {
		return a.runOnce(ctx)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received", "signal", sig.String())
		cancelRun()

		graceTimer := time.NewTimer(shutdownGrace)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("shutdown grace expired, forcing shutdown")
			runErr = context.DeadlineExceeded
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("ax206dash stopped")
	return nil
}

func (a *App) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.collector.Run(gctx)
	})
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runOnce polls metrics twice (rates need a delta), renders a single frame
// and uploads it.
func (a *App) runOnce(ctx context.Context) error {
	a.collector.CollectOnce(ctx)
	a.sleepBriefly(ctx)
	a.collector.CollectOnce(ctx)
	return a.scheduler.RunOnce(ctx)
}

func (a *App) sleepBriefly(ctx context.Context) {
	t := time.NewTimer(500 * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// BuildLogger builds the process logger from config.
func BuildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}
