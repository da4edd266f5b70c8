package x11

import (
	"errors"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// ErrNoARGBVisual is returned when the screen has no 32-bit visual to create
// a translucent overlay with.
var ErrNoARGBVisual = errors.New("x11: no 32-bit TrueColor visual")

// putImageHeader is the fixed size of a PutImage request in bytes.
const putImageHeader = 24

// OverlayWindow is an override-redirect, 32-bit, input-transparent window
// stacked above everything else. Map, Unmap and Destroy are idempotent.
type OverlayWindow struct {
	conn *Connection

	Window   xproto.Window
	colormap xproto.Colormap
	gc       xproto.Gcontext

	x, y          int
	width, height int

	buf     []byte
	created bool
	mapped  bool
}

// NewOverlayWindow creates an unmapped overlay with the given geometry.
func (c *Connection) NewOverlayWindow(x, y, width, height int) (*OverlayWindow, error) {
	if c.argb == nil {
		return nil, ErrNoARGBVisual
	}
	conn := c.XUtil.Conn()
	width, height = clampSize(width), clampSize(height)

	cmap, err := xproto.NewColormapId(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate colormap id: %w", err)
	}
	if err := xproto.CreateColormapChecked(conn, xproto.ColormapAllocNone, cmap, c.Root, c.argb.id).Check(); err != nil {
		return nil, fmt.Errorf("failed to create colormap: %w", err)
	}

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		xproto.FreeColormap(conn, cmap)
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}

	// A 32-bit window on a root of another depth needs its own colormap and
	// an explicit border pixel, or CreateWindow fails with BadMatch.
	err = xproto.CreateWindowChecked(
		conn,
		c.argb.depth,
		wid,
		c.Root,
		int16(x), int16(y),
		uint16(width), uint16(height),
		0,
		xproto.WindowClassInputOutput,
		c.argb.id,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwOverrideRedirect|xproto.CwColormap,
		// Value list order follows the bit positions of the mask (low to high).
		[]uint32{0, 0, 1, uint32(cmap)},
	).Check()
	if err != nil {
		xproto.FreeColormap(conn, cmap)
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		xproto.DestroyWindow(conn, wid)
		xproto.FreeColormap(conn, cmap)
		return nil, fmt.Errorf("failed to allocate gc id: %w", err)
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(wid), 0, nil).Check(); err != nil {
		xproto.DestroyWindow(conn, wid)
		xproto.FreeColormap(conn, cmap)
		return nil, fmt.Errorf("failed to create gc: %w", err)
	}

	o := &OverlayWindow{
		conn:     c,
		Window:   wid,
		colormap: cmap,
		gc:       gc,
		x:        x,
		y:        y,
		width:    width,
		height:   height,
		created:  true,
	}
	o.makeClickThrough()
	return o, nil
}

// makeClickThrough sets an empty input region so pointer events fall through
// to the window underneath.
func (o *OverlayWindow) makeClickThrough() {
	if !o.conn.xfixes {
		return
	}
	conn := o.conn.XUtil.Conn()
	region, err := xfixes.NewRegionId(conn)
	if err != nil {
		return
	}
	xfixes.CreateRegion(conn, region, []xproto.Rectangle{})
	xfixes.SetWindowShapeRegion(conn, o.Window, shape.SkInput, 0, 0, region)
	xfixes.DestroyRegion(conn, region)
}

// MoveResize updates geometry and keeps the overlay on top.
func (o *OverlayWindow) MoveResize(x, y, width, height int) {
	if !o.created {
		return
	}
	width, height = clampSize(width), clampSize(height)
	o.x, o.y, o.width, o.height = x, y, width, height

	xproto.ConfigureWindow(
		o.conn.XUtil.Conn(),
		o.Window,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|xproto.ConfigWindowStackMode,
		[]uint32{
			uint32(x),
			uint32(y),
			uint32(width),
			uint32(height),
			xproto.StackModeAbove, // Keep on top
		},
	)
}

// Map shows the overlay.
func (o *OverlayWindow) Map() {
	if !o.created || o.mapped {
		return
	}
	conn := o.conn.XUtil.Conn()
	xproto.MapWindow(conn, o.Window)
	xproto.ConfigureWindow(conn, o.Window, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
	o.mapped = true
}

// Unmap hides the overlay without destroying it.
func (o *OverlayWindow) Unmap() {
	if !o.created || !o.mapped {
		return
	}
	xproto.UnmapWindow(o.conn.XUtil.Conn(), o.Window)
	o.mapped = false
}

// Mapped reports whether the overlay is currently mapped.
func (o *OverlayWindow) Mapped() bool {
	return o.mapped
}

// Destroy releases the window and its resources.
func (o *OverlayWindow) Destroy() {
	if !o.created {
		return
	}
	conn := o.conn.XUtil.Conn()
	xproto.FreeGC(conn, o.gc)
	xproto.DestroyWindow(conn, o.Window)
	xproto.FreeColormap(conn, o.colormap)

	o.Window = 0
	o.buf = nil
	o.created = false
	o.mapped = false
}

// PutRGBA uploads a premultiplied RGBA frame, clipped to the window size.
// The frame is sent in row strips that fit the server's request limit.
func (o *OverlayWindow) PutRGBA(img *image.RGBA) {
	if !o.created || !o.mapped {
		return
	}
	b := img.Bounds()
	w := min(b.Dx(), o.width)
	h := min(b.Dy(), o.height)
	if w <= 0 || h <= 0 {
		return
	}

	stride := w * 4
	maxBytes := int(o.conn.XUtil.Setup().MaximumRequestLength)*4 - putImageHeader
	rowsPerStrip := max(1, maxBytes/stride)

	if need := stride * min(rowsPerStrip, h); cap(o.buf) < need {
		o.buf = make([]byte, need)
	}

	conn := o.conn.XUtil.Conn()
	for y0 := 0; y0 < h; y0 += rowsPerStrip {
		rows := min(rowsPerStrip, h-y0)
		data := o.buf[:stride*rows]
		encodeBGRA(data, img, b.Min.X, b.Min.Y+y0, w, rows)
		xproto.PutImage(
			conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(o.Window),
			o.gc,
			uint16(w), uint16(rows),
			0, int16(y0),
			0,
			o.conn.argb.depth,
			data,
		)
	}
}

// encodeBGRA converts rows of img into the byte order of a little-endian
// 32-bit TrueColor visual.
func encodeBGRA(dst []byte, img *image.RGBA, x0, y0, w, rows int) {
	for r := 0; r < rows; r++ {
		src := img.Pix[img.PixOffset(x0, y0+r):]
		out := dst[r*w*4:]
		for i := 0; i < w*4; i += 4 {
			out[i] = src[i+2]
			out[i+1] = src[i+1]
			out[i+2] = src[i]
			out[i+3] = src[i+3]
		}
	}
}

func clampSize(v int) int {
	if v < 1 {
		return 1
	}
	if v > 0xffff {
		return 0xffff
	}
	return v
}
