package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage flurry configuration",
	Long:  `View and change the snow configuration (` + config.FileName + `).`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Example: `  # Show configuration as YAML (default)
  flurry config show

  # Show configuration as JSON
  flurry config show --format json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:     "get KEY",
	Short:   "Get a configuration value",
	Example: `  flurry config get snowDensity`,
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Validate and persist a configuration value. A running daemon picks the
change up from the file watcher.

Keys: ` + strings.Join(config.Keys, ", "),
	Example: `  flurry config set snowDensity 35
  flurry config set snowIconPath ~/Pictures/flake.png
  flurry config set hideOnDeactivate true`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration interactively",
	Args:  cobra.NoArgs,
	RunE:  runConfigEdit,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	provider, err := loadProvider()
	if err != nil {
		return err
	}
	cfg := provider.Snapshot()

	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	provider, err := loadProvider()
	if err != nil {
		return err
	}
	v, ok := provider.Snapshot().Value(args[0])
	if !ok {
		return fmt.Errorf("unknown configuration key: %s (valid: %s)", args[0], strings.Join(config.Keys, ", "))
	}
	fmt.Println(v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	provider, err := loadProvider()
	if err != nil {
		return err
	}
	if err := provider.Set(args[0], args[1]); err != nil {
		return err
	}
	v, _ := provider.Snapshot().Value(args[0])
	fmt.Printf("Configuration updated: %s = %v\n", args[0], v)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	provider, err := loadProvider()
	if err != nil {
		return err
	}
	fmt.Println(provider.Path())
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	provider, err := loadProvider()
	if err != nil {
		return err
	}
	saved, err := tui.EditConfig(provider)
	if err != nil {
		return err
	}
	if !saved {
		fmt.Println("No changes saved")
		return nil
	}
	fmt.Printf("Configuration saved to %s\n", provider.Path())
	return nil
}
