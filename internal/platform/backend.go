package platform

import "image"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID     WindowID
	Class  string
	Title  string
	Bounds Rect
}

// WindowLifecycleSource delivers lifecycle events for top-level client
// windows. Subscribers are called on the UI goroutine.
type WindowLifecycleSource interface {
	Subscribe(fn func(WindowEvent))
	Start() error
	Stop()
}

// WindowLister lists the client windows the window manager currently knows
// about. It may be called from any goroutine.
type WindowLister interface {
	ClientWindows() ([]WindowID, error)
}

// Surface is a transparent, click-through window drawn over a target window.
// All methods are idempotent and tolerate the target having vanished.
type Surface interface {
	SetBounds(bounds Rect) error
	Show() error
	Hide() error
	Present(frame *image.RGBA) error
	Dispose()
}

// SurfaceFactory creates overlay surfaces.
type SurfaceFactory interface {
	NewSurface(target WindowID, bounds Rect) (Surface, error)
}

// Ticker is a start/stop switch for a periodic frame callback. Start and Stop
// are idempotent.
type Ticker interface {
	Start()
	Stop()
	Running() bool
}
