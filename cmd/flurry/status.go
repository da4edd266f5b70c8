package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/1broseidon/flurry/internal/ipc"
	"github.com/1broseidon/flurry/internal/tui"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Query the running daemon over IPC and show the tracked windows.`,
	Example: `  flurry status
  flurry status --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask the daemon to re-read its config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ipc.NewClient().Reload(); err != nil {
			return fmt.Errorf("reload failed (is the daemon running?): %w", err)
		}
		fmt.Println("Configuration reloaded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reloadCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print raw status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		if statusJSON {
			return err
		}
		fmt.Println(tui.RenderStatusBar(nil, 60))
		return fmt.Errorf("daemon not reachable: %w", err)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Println(lipgloss.JoinVertical(lipgloss.Left,
		tui.RenderStatusBar(status, 80),
		"",
		tui.RenderConfig(status),
		"",
		tui.RenderBindings(status.Bindings),
	))
	return nil
}
