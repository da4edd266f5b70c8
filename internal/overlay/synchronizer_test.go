package overlay

import (
	"errors"
	"image"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/1broseidon/flurry/internal/asset"
	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/platform"
	"github.com/1broseidon/flurry/internal/snow"
)

const target = platform.WindowID(0x2a00007)

var targetBounds = platform.Rect{X: 100, Y: 80, Width: 640, Height: 480}

type fakeConfig struct{ snap config.Snapshot }

func (c *fakeConfig) Snapshot() config.Snapshot { return c.snap }

type fakeSurface struct {
	target   platform.WindowID
	bounds   []platform.Rect
	visible  bool
	shows    int
	hides    int
	presents int
	disposed bool
}

func (f *fakeSurface) SetBounds(r platform.Rect) error { f.bounds = append(f.bounds, r); return nil }
func (f *fakeSurface) Show() error { f.visible = true; f.shows++; return nil }
func (f *fakeSurface) Hide() error { f.visible = false; f.hides++; return nil }
func (f *fakeSurface) Present(*image.RGBA) error { f.presents++; return nil }
func (f *fakeSurface) Dispose() { f.disposed = true; f.visible = false }

func (f *fakeSurface) lastBounds() platform.Rect {
	if len(f.bounds) == 0 {
		return platform.Rect{}
	}
	return f.bounds[len(f.bounds)-1]
}

type fakeFactory struct {
	surfaces map[platform.WindowID]*fakeSurface
	created  int
	err      error
}

func (f *fakeFactory) NewSurface(target platform.WindowID, bounds platform.Rect) (platform.Surface, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeSurface{target: target, bounds: []platform.Rect{bounds}}
	f.surfaces[target] = s
	f.created++
	return s, nil
}

type fakeTicker struct {
	running bool
	starts  int
	stops   int
}

func (t *fakeTicker) Start() {
	if !t.running {
		t.starts++
	}
	t.running = true
}

func (t *fakeTicker) Stop() {
	if t.running {
		t.stops++
	}
	t.running = false
}

func (t *fakeTicker) Running() bool { return t.running }

type fakeNotifier struct{ messages []string }

func (n *fakeNotifier) Notify(title, message string) { n.messages = append(n.messages, message) }

type harness struct {
	sync     *Synchronizer
	cfg      *fakeConfig
	surfaces *fakeFactory
	tickers  map[platform.WindowID]*fakeTicker
	notifier *fakeNotifier
	posted   []func()
	now      time.Time
}

func newHarness(t *testing.T, mutate func(*config.Snapshot)) *harness {
	t.Helper()
	snap := config.Defaults()
	if mutate != nil {
		mutate(&snap)
	}
	h := &harness{
		cfg:      &fakeConfig{snap: snap},
		surfaces: &fakeFactory{surfaces: map[platform.WindowID]*fakeSurface{}},
		tickers:  map[platform.WindowID]*fakeTicker{},
		notifier: &fakeNotifier{},
		now:      time.Date(2025, 12, 24, 20, 0, 0, 0, time.UTC),
	}
	seed := uint64(1)
	h.sync = New(Options{
		Config:   h.cfg,
		Surfaces: h.surfaces,
		NewTicker: func(id platform.WindowID) platform.Ticker {
			tk := &fakeTicker{}
			h.tickers[id] = tk
			return tk
		},
		Post:     func(fn func()) { h.posted = append(h.posted, fn) },
		Notifier: h.notifier,
		NewSimulation: func() *snow.Simulation {
			seed++
			return snow.New(
				snow.WithRand(rand.New(rand.NewPCG(seed, seed))),
				snow.WithClock(func() time.Time { return h.now }),
			)
		},
		Now: func() time.Time { return h.now },
	})
	return h
}

func (h *harness) send(t *testing.T, kind platform.EventKind, id platform.WindowID, bounds platform.Rect) {
	t.Helper()
	err := h.sync.HandleEvent(platform.WindowEvent{
		Kind:   kind,
		Window: id,
		Title:  h.cfg.snap.TargetTitle,
		Bounds: bounds,
	})
	if err != nil {
		t.Fatalf("HandleEvent(%s): %v", kind, err)
	}
}

func (h *harness) runPosted() {
	queue := h.posted
	h.posted = nil
	for _, fn := range queue {
		fn()
	}
}

// bringUp drives the target through open, show and focus.
func (h *harness) bringUp(t *testing.T) {
	t.Helper()
	h.send(t, platform.EventOpened, target, targetBounds)
	h.send(t, platform.EventShown, target, targetBounds)
	h.send(t, platform.EventActivated, target, targetBounds)
	if got := h.sync.State(target); got != StateAnimating {
		t.Fatalf("state after bring-up = %s, want animating", got)
	}
}

func TestShownMatchingWindowCreatesHiddenBinding(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, platform.EventShown, target, targetBounds)

	if got := h.sync.State(target); got != StateHidden {
		t.Fatalf("state = %s, want hidden until activated", got)
	}
	if h.surfaces.created != 1 {
		t.Fatalf("surfaces created = %d, want 1", h.surfaces.created)
	}
	if h.surfaces.surfaces[target].visible {
		t.Fatalf("surface must stay unmapped while hidden")
	}
}

func TestNonMatchingWindowIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	err := h.sync.HandleEvent(platform.WindowEvent{Kind: platform.EventShown, Window: 7, Title: "Terminal", Bounds: targetBounds})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if h.sync.Len() != 0 || h.surfaces.created != 0 {
		t.Fatalf("non-matching window must not be bound")
	}
}

func TestTargetClassFilter(t *testing.T) {
	h := newHarness(t, func(s *config.Snapshot) { s.TargetClass = "SaltPlayer" })

	ev := platform.WindowEvent{Kind: platform.EventShown, Window: target, Title: h.cfg.snap.TargetTitle, Class: "Firefox", Bounds: targetBounds}
	h.sync.HandleEvent(ev)
	if h.sync.Len() != 0 {
		t.Fatalf("class mismatch must not bind")
	}

	ev.Class = "saltplayer"
	h.sync.HandleEvent(ev)
	if h.sync.State(target) != StateHidden {
		t.Fatalf("case-insensitive class match should bind")
	}
}

func TestActivationStartsAnimation(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)

	s := h.surfaces.surfaces[target]
	if !s.visible {
		t.Fatalf("surface should be shown while animating")
	}
	if s.lastBounds() != targetBounds {
		t.Fatalf("surface bounds = %+v, want %+v", s.lastBounds(), targetBounds)
	}
	if !h.tickers[target].running {
		t.Fatalf("tick source should be running")
	}
	if st := h.sync.Status(); len(st) != 1 || st[0].Flakes < 20 || st[0].Flakes > 25 {
		t.Fatalf("expected an initial batch of 20..25 flakes, status = %+v", st)
	}
}

func TestActivatedBeforeShownIsRemembered(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, platform.EventOpened, target, targetBounds)
	h.send(t, platform.EventActivated, target, targetBounds)
	h.send(t, platform.EventShown, target, targetBounds)

	if got := h.sync.State(target); got != StateAnimating {
		t.Fatalf("state = %s, want animating", got)
	}
}

func TestMoveAndResizeMirrorBounds(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)
	s := h.surfaces.surfaces[target]

	moved := platform.Rect{X: 300, Y: 200, Width: 640, Height: 480}
	h.send(t, platform.EventMoved, target, moved)
	if s.lastBounds() != moved {
		t.Fatalf("after move bounds = %+v, want %+v", s.lastBounds(), moved)
	}

	resized := platform.Rect{X: 300, Y: 200, Width: 1024, Height: 700}
	h.send(t, platform.EventResized, target, resized)
	if s.lastBounds() != resized {
		t.Fatalf("after resize bounds = %+v, want %+v", s.lastBounds(), resized)
	}

	h.sync.Tick(h.now)
	if st := h.sync.Status()[0]; st.Bounds != resized {
		t.Fatalf("status bounds = %+v, want %+v", st.Bounds, resized)
	}
}

func TestMoveWhileHiddenStillTracksBounds(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, platform.EventShown, target, targetBounds)

	moved := platform.Rect{X: 10, Y: 10, Width: 500, Height: 400}
	h.send(t, platform.EventMoved, target, moved)
	if got := h.surfaces.surfaces[target].lastBounds(); got != moved {
		t.Fatalf("hidden overlay bounds = %+v, want %+v", got, moved)
	}
}

func TestIconifyStopsTicksAndHides(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)
	s := h.surfaces.surfaces[target]
	tk := h.tickers[target]

	h.send(t, platform.EventIconified, target, platform.Rect{})
	if h.sync.State(target) != StateHidden {
		t.Fatalf("state = %s, want hidden after iconify", h.sync.State(target))
	}
	if tk.running || s.visible {
		t.Fatalf("iconify must stop ticks (running=%v) and hide (visible=%v)", tk.running, s.visible)
	}

	presents := s.presents
	h.sync.Tick(h.now.Add(time.Second))
	if s.presents != presents {
		t.Fatalf("hidden overlay was repainted")
	}
}

func TestDeiconifyRestoresAnimation(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)
	h.send(t, platform.EventIconified, target, platform.Rect{})
	h.send(t, platform.EventDeactivated, target, platform.Rect{})

	h.send(t, platform.EventDeiconified, target, platform.Rect{})
	if h.sync.State(target) != StateAnimating {
		t.Fatalf("state = %s, want animating after restore", h.sync.State(target))
	}
	if tk := h.tickers[target]; !tk.running || tk.starts != 2 {
		t.Fatalf("ticker running=%v starts=%d, want running after second start", tk.running, tk.starts)
	}
}

func TestHiddenEventHidesAndShownRestores(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)

	h.send(t, platform.EventHidden, target, platform.Rect{})
	if h.sync.State(target) != StateHidden {
		t.Fatalf("state = %s, want hidden", h.sync.State(target))
	}
	h.send(t, platform.EventShown, target, targetBounds)
	if h.sync.State(target) != StateAnimating {
		t.Fatalf("state = %s, want animating", h.sync.State(target))
	}
}

func TestDeactivate(t *testing.T) {
	tests := []struct {
		name string
		hide bool
		want State
	}{
		{"keeps animating by default", false, StateAnimating},
		{"hides when configured", true, StateHidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(s *config.Snapshot) { s.HideOnDeactivate = tt.hide })
			h.bringUp(t)
			h.send(t, platform.EventDeactivated, target, platform.Rect{})
			if got := h.sync.State(target); got != tt.want {
				t.Fatalf("state = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCloseRemovesBindingAndDisposes(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)
	s := h.surfaces.surfaces[target]

	h.send(t, platform.EventClosed, target, platform.Rect{})
	if h.sync.Len() != 0 || h.sync.State(target) != StateUntracked {
		t.Fatalf("binding survived close")
	}
	if !s.disposed || h.tickers[target].running {
		t.Fatalf("close must dispose the surface and stop the ticker")
	}

	// Late events for the closed window are no-ops.
	h.send(t, platform.EventMoved, target, targetBounds)
	h.send(t, platform.EventClosed, target, platform.Rect{})
	if h.surfaces.created != 1 {
		t.Fatalf("late events recreated a surface")
	}
}

func TestTickPaintsAndPostsRespawn(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)
	s := h.surfaces.surfaces[target]

	// Let the first batch fall fully onto the overlay.
	for i := 0; i < 100 && len(h.posted) == 0; i++ {
		h.now = h.now.Add(snow.TickInterval)
		h.sync.Tick(h.now)
	}
	if len(h.posted) != 1 {
		t.Fatalf("posted tasks = %d, want exactly one respawn", len(h.posted))
	}
	if s.presents == 0 {
		t.Fatalf("no frame was presented")
	}

	before := h.sync.Status()[0].Flakes
	h.sync.Tick(h.now.Add(snow.TickInterval))
	if len(h.posted) != 1 {
		t.Fatalf("a second respawn was posted while one was pending")
	}
	h.runPosted()
	if after := h.sync.Status()[0].Flakes; after < before+20 {
		t.Fatalf("flakes after respawn = %d, want at least %d", after, before+20)
	}
}

func TestPostedSpawnForClosedWindowIsDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)
	for i := 0; i < 100 && len(h.posted) == 0; i++ {
		h.now = h.now.Add(snow.TickInterval)
		h.sync.Tick(h.now)
	}
	h.send(t, platform.EventClosed, target, platform.Rect{})
	h.runPosted()
	if h.sync.Len() != 0 {
		t.Fatalf("posted spawn resurrected a binding")
	}
}

func TestReconcileDropsOrphans(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)

	if dropped := h.sync.Reconcile([]platform.WindowID{target, 99}); len(dropped) != 0 {
		t.Fatalf("live binding dropped: %v", dropped)
	}
	dropped := h.sync.Reconcile([]platform.WindowID{99})
	if len(dropped) != 1 || dropped[0] != target {
		t.Fatalf("dropped = %v, want [%d]", dropped, target)
	}
	if !h.surfaces.surfaces[target].disposed {
		t.Fatalf("orphaned surface was not disposed")
	}
}

func TestStopDisposesAllAndRejectsEvents(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)
	h.sync.Stop()

	if !h.surfaces.surfaces[target].disposed {
		t.Fatalf("Stop did not dispose the surface")
	}
	err := h.sync.HandleEvent(platform.WindowEvent{Kind: platform.EventShown, Window: target, Title: h.cfg.snap.TargetTitle})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("HandleEvent after Stop = %v, want ErrStopped", err)
	}
	h.sync.Stop()
}

func TestSurfaceFailureLeavesWindowUntracked(t *testing.T) {
	h := newHarness(t, nil)
	h.surfaces.err = errors.New("no visual")
	h.send(t, platform.EventShown, target, targetBounds)
	if h.sync.Len() != 0 {
		t.Fatalf("binding created without a surface")
	}

	h.surfaces.err = nil
	h.send(t, platform.EventShown, target, targetBounds)
	if h.sync.State(target) != StateHidden {
		t.Fatalf("a later Shown should retry binding")
	}
}

func TestMissingIconFallsBackAndNotifies(t *testing.T) {
	h := newHarness(t, func(s *config.Snapshot) { s.IconPath = "/nonexistent/snow.png" })

	if h.sync.Sprite() != asset.Default() {
		t.Fatalf("expected the built-in sprite")
	}
	if len(h.notifier.messages) != 1 {
		t.Fatalf("notifications = %v, want one", h.notifier.messages)
	}
	// Startup continues normally.
	h.bringUp(t)
}

func TestApplyConfigReloadsSpriteAndReevaluates(t *testing.T) {
	h := newHarness(t, nil)
	h.bringUp(t)
	h.send(t, platform.EventDeactivated, target, platform.Rect{})

	next := h.cfg.snap
	next.HideOnDeactivate = true
	next.IconPath = "/nonexistent/other.png"
	h.cfg.snap = next
	h.sync.ApplyConfig(next)

	if h.sync.State(target) != StateHidden {
		t.Fatalf("enabling hide-on-deactivate should hide an unfocused overlay")
	}
	if len(h.notifier.messages) != 1 {
		t.Fatalf("changed icon path should be reloaded once, notifications = %v", h.notifier.messages)
	}

	h.sync.ApplyConfig(next)
	if len(h.notifier.messages) != 1 {
		t.Fatalf("unchanged icon path was reloaded again")
	}
}
