package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/logger"
)

// exitCode is returned by main after a successful Execute. Commands with
// tri-state results (check) set it.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "flurry",
	Short: "Falling-snow overlay for a target application window",
	Long: `flurry draws animated falling snow on a transparent, click-through overlay
that follows a single target application window on X11.

The overlay tracks the window's position and size, stops animating while the
window is minimized or hidden, and picks up configuration changes live.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := viper.GetString("log_level")
		if level == "" {
			level = "info"
		}
		logger.Init(level, viper.GetBool("pretty"))
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is $XDG_CONFIG_HOME/flurry/"+config.FileName+")")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "force human-readable console logs")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.SetEnvPrefix("flurry")
	viper.AutomaticEnv()
}

// loadProvider opens the config file named by --config, or the default one.
func loadProvider() (*config.Provider, error) {
	p, err := config.NewProvider(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return p, nil
}

// logLevelFromFlag reports whether --log-level (or FLURRY_LOG_LEVEL) was
// given, in which case it overrides the level stored in the config file.
func logLevelFromFlag() bool {
	return viper.GetString("log_level") != ""
}
