package overlay

import (
	"errors"
	"fmt"
)

// ErrStopped is returned for events delivered after Stop.
var ErrStopped = errors.New("overlay: synchronizer stopped")

// State is the lifecycle state of one target window.
type State int

const (
	// StateUntracked means no binding exists for the window.
	StateUntracked State = iota
	// StateHidden means a binding exists but the overlay is unmapped and not
	// ticking.
	StateHidden
	// StateAnimating means the overlay is mapped over the target and ticking.
	StateAnimating
)

func (s State) String() string {
	switch s {
	case StateUntracked:
		return "untracked"
	case StateHidden:
		return "hidden"
	case StateAnimating:
		return "animating"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
