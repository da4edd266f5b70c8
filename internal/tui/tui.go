// Package tui implements the interactive flurry dashboard and the settings
// form shared with `flurry config edit`.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/flurry/internal/config"
)

// Run starts the dashboard and blocks until the user quits. It polls the
// daemon through client once per second.
func Run(provider *config.Provider, client StatusClient) error {
	if err := requireTTY(); err != nil {
		return err
	}

	p := tea.NewProgram(newModel(provider, client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func requireTTY() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	return nil
}
