package platform

import (
	"github.com/ncruces/zenity"

	"github.com/1broseidon/flurry/internal/logger"
)

// Notifier reports non-fatal problems to the user.
type Notifier interface {
	Notify(title, message string)
}

// DesktopNotifier shows desktop notifications. Notify never blocks the
// caller.
type DesktopNotifier struct{}

func (DesktopNotifier) Notify(title, message string) {
	go func() {
		if err := zenity.Notify(message, zenity.Title(title), zenity.WarningIcon); err != nil {
			logger.WithComponent("notify").Debug().Err(err).Msg("Desktop notification failed")
		}
	}()
}
