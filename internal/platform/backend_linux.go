//go:build linux

package platform

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/rs/zerolog"

	"github.com/1broseidon/flurry/internal/logger"
	"github.com/1broseidon/flurry/internal/x11"
)

// client is the last known state of one tracked client window.
type client struct {
	title     string
	class     string
	bounds    Rect
	viewable  bool
	iconified bool
}

// LinuxBackend turns X11 and EWMH notifications into WindowEvents. Except for
// ClientWindows, it must only be used from the goroutine that owns the X
// event loop.
type LinuxBackend struct {
	conn *x11.Connection
	log  *zerolog.Logger

	subscribers []func(WindowEvent)
	clients     map[xproto.Window]*client
	active      xproto.Window
	started     bool
}

var (
	_ WindowLifecycleSource = (*LinuxBackend)(nil)
	_ WindowLister          = (*LinuxBackend)(nil)
	_ SurfaceFactory        = (*LinuxBackend)(nil)
)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{
		conn:    conn,
		log:     logger.WithComponent("x11"),
		clients: make(map[xproto.Window]*client),
	}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// Connection returns the underlying X11 connection.
func (b *LinuxBackend) Connection() *x11.Connection {
	return b.conn
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Subscribe registers fn for every subsequent event.
func (b *LinuxBackend) Subscribe(fn func(WindowEvent)) {
	b.subscribers = append(b.subscribers, fn)
}

// Start listens on the root window for client list and focus changes, then
// adopts the windows that are already open.
func (b *LinuxBackend) Start() error {
	if b.started {
		return nil
	}
	xu := b.conn.XUtil

	root := xwindow.New(xu, b.conn.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange); err != nil {
		return fmt.Errorf("failed to listen on root window: %w", err)
	}
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		switch b.atomName(ev.Atom) {
		case "_NET_CLIENT_LIST":
			b.syncClientList()
		case "_NET_ACTIVE_WINDOW":
			b.syncActive()
		}
	}).Connect(xu, b.conn.Root)

	b.started = true
	b.syncClientList()
	b.syncActive()

	b.log.Info().Int("clients", len(b.clients)).Msg("Window watcher started")
	return nil
}

// Stop detaches every callback and forgets all tracked windows. No Closed
// events are emitted.
func (b *LinuxBackend) Stop() {
	if !b.started {
		return
	}
	xu := b.conn.XUtil
	for win := range b.clients {
		xevent.Detach(xu, win)
	}
	xevent.Detach(xu, b.conn.Root)
	clear(b.clients)
	b.active = 0
	b.started = false
}

// ClientWindows returns the current _NET_CLIENT_LIST.
func (b *LinuxBackend) ClientWindows() ([]WindowID, error) {
	wins, err := b.conn.ClientList()
	if err != nil {
		return nil, err
	}
	ids := make([]WindowID, len(wins))
	for i, w := range wins {
		ids[i] = WindowID(w)
	}
	return ids, nil
}

func (b *LinuxBackend) emit(kind EventKind, win xproto.Window, c *client) {
	ev := WindowEvent{Kind: kind, Window: WindowID(win)}
	if c != nil {
		ev.Title = c.title
		ev.Class = c.class
		ev.Bounds = c.bounds
	}
	b.log.Debug().
		Str("event", kind.String()).
		Uint32("window", uint32(win)).
		Str("title", ev.Title).
		Msg("Window event")
	for _, fn := range b.subscribers {
		fn(ev)
	}
}

func (b *LinuxBackend) syncClientList() {
	wins, err := b.conn.ClientList()
	if err != nil {
		b.log.Debug().Err(err).Msg("Failed to read client list")
		return
	}

	present := make(map[xproto.Window]bool, len(wins))
	for _, win := range wins {
		present[win] = true
		if _, ok := b.clients[win]; !ok {
			b.track(win)
		}
	}
	for win, c := range b.clients {
		if !present[win] {
			b.untrack(win, c)
		}
	}
}

func (b *LinuxBackend) syncActive() {
	active, err := b.conn.GetActiveWindow()
	if err != nil {
		active = 0
	}
	if active == b.active {
		return
	}
	prev := b.active
	b.active = active

	if c, ok := b.clients[prev]; ok {
		b.emit(EventDeactivated, prev, c)
	}
	if c, ok := b.clients[active]; ok {
		b.emit(EventActivated, active, c)
	}
}

// track starts following win and reports it as opened, then shown or
// iconified according to its current state, then activated if it already
// holds focus.
func (b *LinuxBackend) track(win xproto.Window) {
	xu := b.conn.XUtil
	if err := xwindow.New(xu, win).Listen(xproto.EventMaskStructureNotify, xproto.EventMaskPropertyChange); err != nil {
		b.log.Debug().Err(err).Uint32("window", uint32(win)).Msg("Failed to listen on client")
		return
	}

	c := &client{
		title:     b.conn.WindowTitle(win),
		class:     b.conn.WindowClass(win),
		viewable:  b.conn.IsViewable(win),
		iconified: b.conn.IsIconified(win),
	}
	c.bounds, _ = b.geometry(win)
	b.clients[win] = c

	xevent.MapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MapNotifyEvent) {
		b.onMap(win)
	}).Connect(xu, win)
	xevent.UnmapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
		b.onUnmap(win)
	}).Connect(xu, win)
	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		if c, ok := b.clients[win]; ok {
			b.untrack(win, c)
		}
	}).Connect(xu, win)
	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		b.onConfigure(win)
	}).Connect(xu, win)
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		b.onProperty(win, b.atomName(ev.Atom))
	}).Connect(xu, win)

	for _, kind := range adoptionEvents(c.viewable, c.iconified, win == b.active) {
		b.emit(kind, win, c)
	}
}

func (b *LinuxBackend) untrack(win xproto.Window, c *client) {
	xevent.Detach(b.conn.XUtil, win)
	delete(b.clients, win)
	if b.active == win {
		b.active = 0
	}
	b.emit(EventClosed, win, c)
}

func (b *LinuxBackend) onMap(win xproto.Window) {
	c, ok := b.clients[win]
	if !ok || c.viewable {
		return
	}
	c.viewable = true
	if r, ok := b.geometry(win); ok {
		c.bounds = r
	}
	b.emit(EventShown, win, c)
}

func (b *LinuxBackend) onUnmap(win xproto.Window) {
	c, ok := b.clients[win]
	if !ok || !c.viewable {
		return
	}
	c.viewable = false
	b.emit(EventHidden, win, c)
}

func (b *LinuxBackend) onConfigure(win xproto.Window) {
	c, ok := b.clients[win]
	if !ok {
		return
	}
	r, ok := b.geometry(win)
	if !ok || r == c.bounds {
		return
	}
	prev := c.bounds
	c.bounds = r
	if r.Width != prev.Width || r.Height != prev.Height {
		b.emit(EventResized, win, c)
	} else {
		b.emit(EventMoved, win, c)
	}
}

func (b *LinuxBackend) onProperty(win xproto.Window, atom string) {
	c, ok := b.clients[win]
	if !ok {
		return
	}

	switch atom {
	case "_NET_WM_STATE":
		iconified := b.conn.IsIconified(win)
		if iconified == c.iconified {
			return
		}
		c.iconified = iconified
		if iconified {
			b.emit(EventIconified, win, c)
		} else {
			b.emit(EventDeiconified, win, c)
		}
	case "_NET_WM_NAME", "WM_NAME":
		title := b.conn.WindowTitle(win)
		if title == c.title {
			return
		}
		c.title = title
		// Applications often set their title after mapping; a repeated
		// Shown lets the new title be matched.
		if c.viewable && !c.iconified {
			b.emit(EventShown, win, c)
		}
	case "WM_CLASS":
		c.class = b.conn.WindowClass(win)
	}
}

func (b *LinuxBackend) geometry(win xproto.Window) (Rect, bool) {
	x, y, w, h, err := b.conn.WindowGeometry(win)
	if err != nil {
		b.log.Debug().Err(err).Uint32("window", uint32(win)).Msg("Failed to read window geometry")
		return Rect{}, false
	}
	return Rect{X: x, Y: y, Width: w, Height: h}, true
}

func (b *LinuxBackend) atomName(atom xproto.Atom) string {
	name, err := xprop.AtomName(b.conn.XUtil, atom)
	if err != nil {
		return ""
	}
	return name
}
