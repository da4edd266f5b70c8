// Package daemon runs the UI loop that owns every overlay binding.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/ipc"
	"github.com/1broseidon/flurry/internal/logger"
	"github.com/1broseidon/flurry/internal/overlay"
	"github.com/1broseidon/flurry/internal/platform"
	"github.com/1broseidon/flurry/internal/snow"
)

// ErrEventLoopStopped is returned by Run when the X event loop ends on its
// own, usually because the display connection was lost.
var ErrEventLoopStopped = errors.New("daemon: X event loop stopped")

// ErrNotRunning is returned by Status when the loop does not answer.
var ErrNotRunning = errors.New("daemon: loop not running")

// statusTimeout bounds how long an IPC status query waits for the loop.
const statusTimeout = 2 * time.Second

// EventLoop is the X event dispatcher. Callbacks run between a receive on
// before and a receive on after.
type EventLoop interface {
	MainPing() (before, after, quit chan struct{})
	Quit()
}

// Options wires the daemon to its collaborators.
type Options struct {
	Events   EventLoop
	Source   platform.WindowLifecycleSource
	Surfaces platform.SurfaceFactory
	Lister   platform.WindowLister
	Config   *config.Provider
	Notifier platform.Notifier

	ReconcileInterval time.Duration
	// LogLevel, when set, pins the log level and the config file's logLevel
	// is ignored.
	LogLevel string
	// SocketPath overrides the IPC socket location.
	SocketPath string
	DisableIPC bool
}

// Daemon serializes X events, frame ticks, posted work, config changes, IPC
// queries and reconciler results on one goroutine.
type Daemon struct {
	opts    Options
	log     *zerolog.Logger
	started time.Time

	calls         chan func()
	configChanged chan config.Snapshot
	reconciled    chan []platform.WindowID

	// queue holds work posted from the loop itself; it runs after the
	// current step.
	queue      []func()
	sync       *overlay.Synchronizer
	clock      *FrameClock
	reconciler *Reconciler
}

// New creates a daemon. Nothing runs until Run.
func New(opts Options) *Daemon {
	d := &Daemon{
		opts:          opts,
		log:           logger.WithComponent("daemon"),
		calls:         make(chan func()),
		configChanged: make(chan config.Snapshot, 1),
		reconciled:    make(chan []platform.WindowID, 1),
	}
	if opts.Lister != nil {
		d.reconciler = NewReconciler(ReconcilerConfig{
			Interval: opts.ReconcileInterval,
			Logger:   logger.WithComponent("reconciler"),
		}, opts.Lister, d.reconciled)
	}
	return d
}

// Run starts the window watcher, the IPC server and the reconciler, then
// runs the UI loop until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()
	d.clock = NewFrameClock(snow.TickInterval)
	defer d.clock.Stop()

	d.sync = overlay.New(overlay.Options{
		Config:    d.opts.Config,
		Surfaces:  d.opts.Surfaces,
		NewTicker: d.clock.NewTicker,
		Post:      func(fn func()) { d.queue = append(d.queue, fn) },
		Notifier:  d.opts.Notifier,
	})
	defer d.sync.Stop()

	d.opts.Config.OnChange(d.publishConfig)

	d.opts.Source.Subscribe(func(ev platform.WindowEvent) {
		if err := d.sync.HandleEvent(ev); err != nil {
			d.log.Debug().Err(err).Str("event", ev.Kind.String()).Msg("Event dropped")
		}
	})
	// The source is started before the event loop so its initial scan does
	// not race with X callbacks.
	if err := d.opts.Source.Start(); err != nil {
		return fmt.Errorf("failed to start window watcher: %w", err)
	}
	defer d.opts.Source.Stop()

	if !d.opts.DisableIPC {
		srv, err := d.newIPCServer()
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if d.reconciler != nil {
		go d.reconciler.Run(runCtx)
	}

	before, after, quit := d.opts.Events.MainPing()
	cfg := d.opts.Config.Snapshot()
	d.applyLogLevel(cfg)
	d.log.Info().
		Str("target", cfg.TargetTitle).
		Str("config", d.opts.Config.Path()).
		Msg("Daemon started")

	for {
		select {
		case <-before:
			<-after
		case now := <-d.clock.C():
			d.sync.Tick(now)
		case fn := <-d.calls:
			fn()
		case snap := <-d.configChanged:
			d.applyConfig(snap)
		case alive := <-d.reconciled:
			if dropped := d.sync.Reconcile(alive); len(dropped) > 0 {
				d.log.Info().Int("dropped", len(dropped)).Msg("Reconciler released orphaned overlays")
			}
		case <-quit:
			return ErrEventLoopStopped
		case <-ctx.Done():
			d.log.Info().Msg("Daemon shutting down")
			d.opts.Events.Quit()
			return nil
		}
		d.drainQueue()
	}
}

func (d *Daemon) drainQueue() {
	for len(d.queue) > 0 {
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		fn()
	}
}

// publishConfig hands a new snapshot to the loop, replacing any snapshot the
// loop has not picked up yet.
func (d *Daemon) publishConfig(s config.Snapshot) {
	for {
		select {
		case d.configChanged <- s:
			return
		default:
		}
		select {
		case <-d.configChanged:
		default:
		}
	}
}

func (d *Daemon) applyConfig(s config.Snapshot) {
	d.applyLogLevel(s)
	d.sync.ApplyConfig(s)
	d.log.Info().
		Int("density", s.Density).
		Float64("speed", s.Speed).
		Float64("size", s.Size).
		Msg("Configuration applied")
}

func (d *Daemon) applyLogLevel(s config.Snapshot) {
	if d.opts.LogLevel != "" {
		logger.SetLevel(d.opts.LogLevel)
		return
	}
	logger.SetLevel(s.LogLevel)
}

func (d *Daemon) newIPCServer() (*ipc.Server, error) {
	if d.opts.SocketPath != "" {
		return ipc.NewServerAt(d.opts.SocketPath, d), nil
	}
	return ipc.NewServer(d)
}

// Reload re-reads the configuration file and requests an orphan sweep. The
// loop applies both results.
func (d *Daemon) Reload() error {
	err := d.opts.Config.Reload()
	if d.reconciler != nil {
		d.reconciler.ReconcileNow()
	}
	return err
}

// Status collects binding state on the loop goroutine.
func (d *Daemon) Status() (*ipc.StatusData, error) {
	reply := make(chan *ipc.StatusData, 1)
	collect := func() {
		reply <- d.status()
	}

	timeout := time.NewTimer(statusTimeout)
	defer timeout.Stop()

	select {
	case d.calls <- collect:
	case <-timeout.C:
		return nil, ErrNotRunning
	}
	select {
	case s := <-reply:
		return s, nil
	case <-timeout.C:
		return nil, ErrNotRunning
	}
}

func (d *Daemon) status() *ipc.StatusData {
	now := time.Now()
	bindings := d.sync.Status()
	infos := make([]ipc.BindingInfo, 0, len(bindings))
	for _, b := range bindings {
		infos = append(infos, ipc.BindingInfo{
			WindowID:     uint32(b.Window),
			Title:        b.Title,
			Class:        b.Class,
			State:        b.State.String(),
			X:            b.Bounds.X,
			Y:            b.Bounds.Y,
			Width:        b.Bounds.Width,
			Height:       b.Bounds.Height,
			Flakes:       b.Flakes,
			Showing:      b.Showing,
			Active:       b.Active,
			Iconified:    b.Iconified,
			BoundSeconds: int64(now.Sub(b.Since).Seconds()),
		})
	}
	return &ipc.StatusData{
		UptimeSeconds: int64(now.Sub(d.started).Seconds()),
		DaemonRunning: true,
		ConfigPath:    d.opts.Config.Path(),
		Config:        d.opts.Config.Snapshot(),
		Bindings:      infos,
	}
}
