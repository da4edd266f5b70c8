package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/flurry/internal/ipc"
	"github.com/1broseidon/flurry/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the snow overlay daemon (foreground)",
	Long: `Run the snow overlay daemon in the foreground.

The daemon watches for the target window, keeps a transparent overlay on top
of it while it is visible, and serves status and reload requests on a unix
socket. The config file is watched and changes apply to the next spawn batch.`,
	Example: `  # Start with the default config
  flurry daemon

  # Start with debug logging
  flurry daemon --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := ipc.NewClient().Ping(); err == nil {
		return fmt.Errorf("daemon is already running")
	}

	provider, err := loadProvider()
	if err != nil {
		return err
	}
	log := logger.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := provider.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("Config file watching disabled")
	}

	level := ""
	if logLevelFromFlag() {
		level = viper.GetString("log_level")
	}
	return startDaemon(ctx, provider, level)
}
