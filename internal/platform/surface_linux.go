//go:build linux

package platform

import (
	"image"

	"github.com/1broseidon/flurry/internal/x11"
)

// x11Surface adapts an x11.OverlayWindow to Surface.
type x11Surface struct {
	win *x11.OverlayWindow
}

// NewSurface creates an unmapped overlay window covering bounds.
func (b *LinuxBackend) NewSurface(target WindowID, bounds Rect) (Surface, error) {
	win, err := b.conn.NewOverlayWindow(bounds.X, bounds.Y, bounds.Width, bounds.Height)
	if err != nil {
		return nil, err
	}
	b.log.Debug().
		Uint32("target", uint32(target)).
		Uint32("overlay", uint32(win.Window)).
		Msg("Overlay surface created")
	return &x11Surface{win: win}, nil
}

func (s *x11Surface) SetBounds(bounds Rect) error {
	s.win.MoveResize(bounds.X, bounds.Y, bounds.Width, bounds.Height)
	return nil
}

func (s *x11Surface) Show() error {
	s.win.Map()
	return nil
}

func (s *x11Surface) Hide() error {
	s.win.Unmap()
	return nil
}

func (s *x11Surface) Present(frame *image.RGBA) error {
	s.win.PutRGBA(frame)
	return nil
}

func (s *x11Surface) Dispose() {
	s.win.Destroy()
}
