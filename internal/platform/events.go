package platform

import "fmt"

// EventKind identifies a window lifecycle transition.
type EventKind int

const (
	EventOpened EventKind = iota
	EventShown
	EventHidden
	EventClosed
	EventActivated
	EventDeactivated
	EventIconified
	EventDeiconified
	EventMoved
	EventResized
)

var eventKindNames = [...]string{
	EventOpened:      "opened",
	EventShown:       "shown",
	EventHidden:      "hidden",
	EventClosed:      "closed",
	EventActivated:   "activated",
	EventDeactivated: "deactivated",
	EventIconified:   "iconified",
	EventDeiconified: "deiconified",
	EventMoved:       "moved",
	EventResized:     "resized",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// WindowEvent is one lifecycle notification. Title, Class and Bounds carry
// the latest values known when the event was produced.
type WindowEvent struct {
	Kind   EventKind
	Window WindowID
	Title  string
	Class  string
	Bounds Rect
}

// adoptionEvents lists the events reported when a window already on screen
// starts being tracked. The active window may have been announced before it
// joined the client list, so activation is replayed last.
func adoptionEvents(viewable, iconified, active bool) []EventKind {
	kinds := []EventKind{EventOpened}
	switch {
	case iconified:
		kinds = append(kinds, EventIconified)
	case viewable:
		kinds = append(kinds, EventShown)
	}
	if active {
		kinds = append(kinds, EventActivated)
	}
	return kinds
}
