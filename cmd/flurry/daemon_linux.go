//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/daemon"
	"github.com/1broseidon/flurry/internal/logger"
	"github.com/1broseidon/flurry/internal/platform"
)

func startDaemon(ctx context.Context, provider *config.Provider, logLevel string) error {
	log := logger.WithComponent("daemon")

	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		return err
	}
	defer backend.Disconnect()

	conn := backend.Connection()
	if !conn.SupportsTransparency() {
		log.Warn().Msg("No 32-bit ARGB visual; overlays cannot be created until a compositing visual is available")
	}

	d := daemon.New(daemon.Options{
		Events:   conn,
		Source:   backend,
		Surfaces: backend,
		Lister:   backend,
		Config:   provider,
		Notifier: platform.DesktopNotifier{},
		LogLevel: logLevel,
	})

	err = d.Run(ctx)
	if errors.Is(err, daemon.ErrEventLoopStopped) {
		return fmt.Errorf("lost connection to the X server: %w", err)
	}
	return err
}
