package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/1broseidon/flurry/internal/platform"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *zerolog.Logger
}

// Reconciler periodically lists the window manager's client windows and
// hands the result to the UI loop, which drops bindings whose windows
// vanished without a DestroyNotify.
type Reconciler struct {
	interval time.Duration
	lister   platform.WindowLister
	out      chan<- []platform.WindowID
	trigger  chan struct{}
	logger   *zerolog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, lister platform.WindowLister, out chan<- []platform.WindowID) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Reconciler{
		interval: interval,
		lister:   lister,
		out:      out,
		trigger:  make(chan struct{}, 1),
		logger:   cfg.Logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("Reconciler started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		case <-r.trigger:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Msg("Reconciler panic recovered")
		}
	}()

	alive, err := r.lister.ClientWindows()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Reconciler failed to list windows")
		return
	}

	select {
	case r.out <- alive:
	case <-ctx.Done():
	}
}

// ReconcileNow asks Run for an immediate pass. It never blocks; requests
// made while one is already queued are merged.
func (r *Reconciler) ReconcileNow() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}
