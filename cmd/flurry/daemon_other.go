//go:build !linux

package main

import (
	"context"
	"errors"

	"github.com/1broseidon/flurry/internal/config"
)

func startDaemon(ctx context.Context, provider *config.Provider, logLevel string) error {
	return errors.New("the flurry daemon requires Linux with an X11 display")
}
