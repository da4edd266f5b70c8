// Package overlay binds snow overlays to target windows and keeps each
// overlay's geometry and visibility in step with its target.
package overlay

import (
	"fmt"
	"image"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/1broseidon/flurry/internal/asset"
	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/logger"
	"github.com/1broseidon/flurry/internal/platform"
	"github.com/1broseidon/flurry/internal/render"
	"github.com/1broseidon/flurry/internal/snow"
)

// ConfigSource provides the current configuration.
type ConfigSource interface {
	Snapshot() config.Snapshot
}

// Options wires a Synchronizer to its collaborators. Config, Surfaces,
// NewTicker and Post are required.
type Options struct {
	Config   ConfigSource
	Surfaces platform.SurfaceFactory
	// NewTicker creates the tick source of a new binding.
	NewTicker func(platform.WindowID) platform.Ticker
	// Post queues work to run later on the UI goroutine.
	Post     func(func())
	Notifier platform.Notifier

	// LoadSprite defaults to asset.LoadOrDefault.
	LoadSprite func(path string) (image.Image, error)
	// NewSimulation defaults to snow.New.
	NewSimulation func() *snow.Simulation
	// Now defaults to time.Now.
	Now func() time.Time
}

type binding struct {
	id      platform.WindowID
	title   string
	class   string
	surface platform.Surface
	ticker  platform.Ticker
	sim     *snow.Simulation
	frame   *image.RGBA
	state   State
	bounds  platform.Rect
	since   time.Time

	showing   bool
	active    bool
	iconified bool
}

// BindingStatus is a point-in-time view of one binding.
type BindingStatus struct {
	Window    platform.WindowID
	Title     string
	Class     string
	State     State
	Bounds    platform.Rect
	Flakes    int
	Showing   bool
	Active    bool
	Iconified bool
	Since     time.Time
}

// Synchronizer owns every overlay binding. It is not safe for concurrent use;
// all methods run on the UI goroutine.
type Synchronizer struct {
	opts Options
	log  *zerolog.Logger

	bindings map[platform.WindowID]*binding
	// focused is the last window reported active, tracked or not.
	focused platform.WindowID

	sprite     image.Image
	spritePath string
	cfg        config.Snapshot
	stopped    bool
}

// New creates a Synchronizer and loads the configured sprite.
func New(opts Options) *Synchronizer {
	if opts.LoadSprite == nil {
		opts.LoadSprite = asset.LoadOrDefault
	}
	if opts.NewSimulation == nil {
		opts.NewSimulation = func() *snow.Simulation { return snow.New() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Synchronizer{
		opts:     opts,
		log:      logger.WithComponent("overlay"),
		bindings: make(map[platform.WindowID]*binding),
		cfg:      opts.Config.Snapshot(),
	}
	s.loadSprite(s.cfg.IconPath)
	return s
}

// Sprite returns the sprite currently drawn for every flake.
func (s *Synchronizer) Sprite() image.Image {
	return s.sprite
}

func (s *Synchronizer) loadSprite(path string) {
	img, err := s.opts.LoadSprite(path)
	s.sprite = img
	s.spritePath = path
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Using built-in snow sprite")
		if s.opts.Notifier != nil {
			s.opts.Notifier.Notify("flurry", fmt.Sprintf("Could not load snow icon %s; using the built-in flake.", path))
		}
		return
	}
	s.log.Debug().Str("path", path).Msg("Snow sprite loaded")
}

// ApplyConfig reacts to a configuration change: the sprite is reloaded when
// its path changed and every binding is re-evaluated. Spawn parameters are
// picked up by the next batch on their own.
func (s *Synchronizer) ApplyConfig(cfg config.Snapshot) {
	if s.stopped {
		return
	}
	prev := s.cfg
	s.cfg = cfg
	if cfg.IconPath != s.spritePath {
		s.loadSprite(cfg.IconPath)
	}
	if cfg.HideOnDeactivate != prev.HideOnDeactivate {
		for _, b := range s.bindings {
			s.evaluate(b)
		}
	}
}

func (s *Synchronizer) matches(ev platform.WindowEvent) bool {
	if ev.Title != s.cfg.TargetTitle {
		return false
	}
	return s.cfg.TargetClass == "" || strings.EqualFold(ev.Class, s.cfg.TargetClass)
}

// HandleEvent applies one window lifecycle event. Events for windows without
// a binding are ignored unless they create one.
func (s *Synchronizer) HandleEvent(ev platform.WindowEvent) error {
	if s.stopped {
		return ErrStopped
	}

	switch ev.Kind {
	case platform.EventActivated, platform.EventDeiconified:
		s.focused = ev.Window
	case platform.EventDeactivated:
		if s.focused == ev.Window {
			s.focused = 0
		}
	}

	b, ok := s.bindings[ev.Window]
	if !ok {
		if ev.Kind == platform.EventShown && s.matches(ev) {
			s.bind(ev)
		}
		return nil
	}

	switch ev.Kind {
	case platform.EventOpened, platform.EventShown:
		b.showing = true
		s.updateIdentity(b, ev)
		s.moveTo(b, ev.Bounds)
	case platform.EventHidden:
		b.showing = false
	case platform.EventClosed:
		s.unbind(b, "closed")
		return nil
	case platform.EventActivated:
		b.active = true
	case platform.EventDeactivated:
		b.active = false
	case platform.EventIconified:
		b.iconified = true
	case platform.EventDeiconified:
		// Restoring a window also focuses it.
		b.iconified = false
		b.active = true
	case platform.EventMoved, platform.EventResized:
		s.moveTo(b, ev.Bounds)
		return nil
	}
	s.evaluate(b)
	return nil
}

func (s *Synchronizer) updateIdentity(b *binding, ev platform.WindowEvent) {
	if ev.Title != "" {
		b.title = ev.Title
	}
	if ev.Class != "" {
		b.class = ev.Class
	}
}

func (s *Synchronizer) bind(ev platform.WindowEvent) {
	surface, err := s.opts.Surfaces.NewSurface(ev.Window, ev.Bounds)
	if err != nil {
		s.log.Warn().Err(err).Uint32("window", uint32(ev.Window)).Msg("Failed to create overlay surface")
		return
	}

	b := &binding{
		id:      ev.Window,
		title:   ev.Title,
		class:   ev.Class,
		surface: surface,
		ticker:  s.opts.NewTicker(ev.Window),
		sim:     s.opts.NewSimulation(),
		state:   StateHidden,
		bounds:  ev.Bounds,
		since:   s.opts.Now(),
		showing: true,
		active:  s.focused == ev.Window,
	}
	s.bindings[ev.Window] = b

	s.log.Info().
		Uint32("window", uint32(ev.Window)).
		Str("title", ev.Title).
		Str("class", ev.Class).
		Msg("Target window bound")

	s.evaluate(b)
}

func (s *Synchronizer) unbind(b *binding, reason string) {
	b.ticker.Stop()
	b.surface.Dispose()
	b.sim.Reset()
	b.frame = nil
	b.state = StateUntracked
	delete(s.bindings, b.id)

	s.log.Info().
		Uint32("window", uint32(b.id)).
		Str("reason", reason).
		Msg("Target window released")
}

func (s *Synchronizer) moveTo(b *binding, bounds platform.Rect) {
	if bounds.Empty() || bounds == b.bounds {
		return
	}
	b.bounds = bounds
	if err := b.surface.SetBounds(bounds); err != nil {
		s.log.Debug().Err(err).Uint32("window", uint32(b.id)).Msg("Failed to move overlay")
	}
}

// evaluate moves b between Hidden and Animating according to its flags.
func (s *Synchronizer) evaluate(b *binding) {
	switch b.state {
	case StateHidden:
		if b.showing && b.active && !b.iconified {
			s.startAnimating(b)
		}
	case StateAnimating:
		if !b.showing || b.iconified || (s.cfg.HideOnDeactivate && !b.active) {
			s.stopAnimating(b)
		}
	}
}

func (s *Synchronizer) startAnimating(b *binding) {
	if err := b.surface.SetBounds(b.bounds); err != nil {
		s.log.Debug().Err(err).Uint32("window", uint32(b.id)).Msg("Failed to move overlay")
	}
	if err := b.surface.Show(); err != nil {
		s.log.Debug().Err(err).Uint32("window", uint32(b.id)).Msg("Failed to show overlay")
	}
	// Flakes kept from before a hide resume instead, so quick iconify and
	// restore cycles do not pile batches on top of each other.
	if b.sim.Len() == 0 && !b.sim.Pending() {
		b.sim.SpawnBatch(b.bounds.Width, s.opts.Config.Snapshot())
	}
	b.ticker.Start()
	b.state = StateAnimating

	s.log.Debug().Uint32("window", uint32(b.id)).Msg("Overlay animating")
}

func (s *Synchronizer) stopAnimating(b *binding) {
	b.ticker.Stop()
	if err := b.surface.Hide(); err != nil {
		s.log.Debug().Err(err).Uint32("window", uint32(b.id)).Msg("Failed to hide overlay")
	}
	b.state = StateHidden

	s.log.Debug().Uint32("window", uint32(b.id)).Msg("Overlay hidden")
}

// Tick advances and repaints every binding whose tick source is running. A
// requested respawn is posted to run after the current tick.
func (s *Synchronizer) Tick(now time.Time) {
	if s.stopped {
		return
	}
	for _, b := range s.bindings {
		if b.state != StateAnimating || !b.ticker.Running() {
			continue
		}

		if b.sim.Tick(now) {
			id := b.id
			s.opts.Post(func() { s.completeSpawn(id) })
		}

		b.frame = render.Frame(b.frame, b.bounds.Width, b.bounds.Height)
		render.Draw(b.frame, b.sim.Flakes(), s.sprite)
		if err := b.surface.Present(b.frame); err != nil {
			s.log.Debug().Err(err).Uint32("window", uint32(b.id)).Msg("Failed to present frame")
		}
	}
}

func (s *Synchronizer) completeSpawn(id platform.WindowID) {
	b, ok := s.bindings[id]
	if !ok || s.stopped {
		return
	}
	n := b.sim.CompleteSpawn(b.bounds.Width, s.opts.Config.Snapshot())
	s.log.Trace().Uint32("window", uint32(id)).Int("flakes", n).Msg("Batch spawned")
}

// Reconcile drops bindings whose windows are not in alive and returns the
// dropped window ids.
func (s *Synchronizer) Reconcile(alive []platform.WindowID) []platform.WindowID {
	if s.stopped {
		return nil
	}
	present := make(map[platform.WindowID]bool, len(alive))
	for _, id := range alive {
		present[id] = true
	}

	var dropped []platform.WindowID
	for id, b := range s.bindings {
		if !present[id] {
			s.unbind(b, "orphaned")
			dropped = append(dropped, id)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	return dropped
}

// State returns the state of the window's binding.
func (s *Synchronizer) State(id platform.WindowID) State {
	if b, ok := s.bindings[id]; ok {
		return b.state
	}
	return StateUntracked
}

// Len returns the number of bindings.
func (s *Synchronizer) Len() int {
	return len(s.bindings)
}

// Status describes every binding, ordered by window id.
func (s *Synchronizer) Status() []BindingStatus {
	out := make([]BindingStatus, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, BindingStatus{
			Window:    b.id,
			Title:     b.title,
			Class:     b.class,
			State:     b.state,
			Bounds:    b.bounds,
			Flakes:    b.sim.Len(),
			Showing:   b.showing,
			Active:    b.active,
			Iconified: b.iconified,
			Since:     b.since,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window < out[j].Window })
	return out
}

// Stop releases every binding. Later events return ErrStopped.
func (s *Synchronizer) Stop() {
	if s.stopped {
		return
	}
	for _, b := range s.bindings {
		s.unbind(b, "shutdown")
	}
	s.stopped = true
}
