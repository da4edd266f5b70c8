package x11

import (
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/flurry/internal/logger"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	argb   *argbVisual
	xfixes bool
}

type argbVisual struct {
	id    xproto.Visualid
	depth byte
}

// NewConnection establishes a connection to the X11 server and initializes
// the extensions the overlay needs.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	log := logger.WithComponent("x11")

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
		argb:  findARGBVisual(xu.Screen()),
	}
	if c.argb == nil {
		log.Warn().Msg("No 32-bit TrueColor visual; overlays will not be transparent")
	}

	// XFixes input regions make the overlay click-through.
	if err := xfixes.Init(xu.Conn()); err != nil {
		log.Warn().Err(err).Msg("XFixes unavailable; overlays will intercept input")
	} else if _, err := xfixes.QueryVersion(xu.Conn(), 5, 0).Reply(); err != nil {
		log.Warn().Err(err).Msg("XFixes version query failed")
	} else {
		c.xfixes = true
	}

	return c, nil
}

// MainPing runs the X event loop on its own goroutine. Every batch of X
// callbacks runs between a receive on before and a receive on after, so a
// select loop that waits for after once before fires owns the callbacks.
func (c *Connection) MainPing() (before, after, quit chan struct{}) {
	return xevent.MainPing(c.XUtil)
}

// Quit stops the event loop started by MainPing.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// SupportsTransparency reports whether ARGB overlay windows can be created.
func (c *Connection) SupportsTransparency() bool {
	return c.argb != nil
}

func findARGBVisual(screen *xproto.ScreenInfo) *argbVisual {
	for _, d := range screen.AllowedDepths {
		if d.Depth != 32 {
			continue
		}
		for _, v := range d.Visuals {
			if v.Class == xproto.VisualClassTrueColor {
				return &argbVisual{id: v.VisualId, depth: d.Depth}
			}
		}
	}
	return nil
}
