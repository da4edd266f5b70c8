package daemon

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/platform"
)

type fakeLoop struct {
	before, after, quit chan struct{}
	quitCalled          bool
}

func newFakeLoop() *fakeLoop {
	return &fakeLoop{
		before: make(chan struct{}),
		after:  make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

func (l *fakeLoop) MainPing() (before, after, quit chan struct{}) {
	return l.before, l.after, l.quit
}

func (l *fakeLoop) Quit() { l.quitCalled = true }

// dispatch runs fn the way X callbacks run: while the UI loop is parked
// between the before and after pings.
func (l *fakeLoop) dispatch(fn func()) {
	l.before <- struct{}{}
	fn()
	l.after <- struct{}{}
}

type fakeSource struct {
	subs    []func(platform.WindowEvent)
	started bool
	stopped bool
}

func (s *fakeSource) Subscribe(fn func(platform.WindowEvent)) { s.subs = append(s.subs, fn) }
func (s *fakeSource) Start() error { s.started = true; return nil }
func (s *fakeSource) Stop() { s.stopped = true }

func (s *fakeSource) emit(ev platform.WindowEvent) {
	for _, fn := range s.subs {
		fn(ev)
	}
}

type fakeSurface struct {
	presents int
	disposed bool
}

func (f *fakeSurface) SetBounds(platform.Rect) error { return nil }
func (f *fakeSurface) Show() error { return nil }
func (f *fakeSurface) Hide() error { return nil }
func (f *fakeSurface) Present(*image.RGBA) error { f.presents++; return nil }
func (f *fakeSurface) Dispose() { f.disposed = true }

type fakeSurfaces struct{ last *fakeSurface }

func (f *fakeSurfaces) NewSurface(platform.WindowID, platform.Rect) (platform.Surface, error) {
	f.last = &fakeSurface{}
	return f.last, nil
}

type fakeLister struct {
	mu    sync.Mutex
	alive []platform.WindowID
}

func (l *fakeLister) ClientWindows() ([]platform.WindowID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]platform.WindowID(nil), l.alive...), nil
}

func (l *fakeLister) set(ids ...platform.WindowID) {
	l.mu.Lock()
	l.alive = ids
	l.mu.Unlock()
}

type fixture struct {
	d        *Daemon
	loop     *fakeLoop
	source   *fakeSource
	surfaces *fakeSurfaces
	lister   *fakeLister
	cancel   context.CancelFunc
	done     chan error
}

func startDaemon(t *testing.T) *fixture {
	t.Helper()
	return startDaemonEvery(t, 20*time.Millisecond)
}

func startDaemonEvery(t *testing.T, reconcile time.Duration) *fixture {
	t.Helper()
	provider, err := config.NewProvider(filepath.Join(t.TempDir(), config.FileName))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	f := &fixture{
		loop:     newFakeLoop(),
		source:   &fakeSource{},
		surfaces: &fakeSurfaces{},
		lister:   &fakeLister{alive: []platform.WindowID{win}},
		done:     make(chan error, 1),
	}
	f.d = New(Options{
		Events:            f.loop,
		Source:            f.source,
		Surfaces:          f.surfaces,
		Lister:            f.lister,
		Config:            provider,
		ReconcileInterval: reconcile,
		DisableIPC:        true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { f.done <- f.d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	return f
}

const win = platform.WindowID(0x3c00004)

var bounds = platform.Rect{X: 50, Y: 60, Width: 800, Height: 600}

func (f *fixture) bringUp() {
	f.loop.dispatch(func() {
		for _, kind := range []platform.EventKind{platform.EventOpened, platform.EventShown, platform.EventActivated} {
			f.source.emit(platform.WindowEvent{Kind: kind, Window: win, Title: config.DefaultTargetTitle, Bounds: bounds})
		}
	})
}

func TestDaemon_BindsTargetAndAnimates(t *testing.T) {
	f := startDaemon(t)
	f.bringUp()

	status, err := f.d.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Bindings) != 1 {
		t.Fatalf("bindings = %+v, want one", status.Bindings)
	}
	b := status.Bindings[0]
	if b.State != "animating" || b.Width != 800 || b.Height != 600 || b.Flakes < 20 {
		t.Fatalf("unexpected binding: %+v", b)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var presents int
		f.loop.dispatch(func() { presents = f.surfaces.last.presents })
		if presents > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no frame presented while animating")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemon_ReconcilerDropsVanishedWindow(t *testing.T) {
	f := startDaemon(t)
	f.bringUp()

	f.lister.set()
	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := f.d.Status()
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if len(status.Bindings) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("orphaned binding was never dropped")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemon_ReloadSweepsVanishedWindow(t *testing.T) {
	f := startDaemonEvery(t, time.Hour)
	f.bringUp()

	f.lister.set()
	if err := f.d.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := f.d.Status()
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if len(status.Bindings) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reload did not sweep the orphaned binding")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemon_ShutdownDisposesOverlays(t *testing.T) {
	f := startDaemon(t)
	f.bringUp()

	f.cancel()
	if err := <-f.done; err != nil {
		t.Fatalf("Run returned %v, want nil on cancel", err)
	}
	f.done <- nil // let the cleanup drain succeed

	if !f.surfaces.last.disposed {
		t.Fatalf("overlay surface was not disposed on shutdown")
	}
	if !f.source.stopped || !f.loop.quitCalled {
		t.Fatalf("shutdown left source running=%v or event loop running=%v", !f.source.stopped, !f.loop.quitCalled)
	}
}

func TestDaemon_EventLoopExitIsReported(t *testing.T) {
	f := startDaemon(t)
	f.loop.quit <- struct{}{}

	err := <-f.done
	f.done <- err
	if !errors.Is(err, ErrEventLoopStopped) {
		t.Fatalf("Run returned %v, want ErrEventLoopStopped", err)
	}
}

func TestDaemon_StatusWithoutLoop(t *testing.T) {
	provider, err := config.NewProvider(filepath.Join(t.TempDir(), config.FileName))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	d := New(Options{Config: provider})
	if _, err := d.Status(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Status without Run = %v, want ErrNotRunning", err)
	}
}
