package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/flurry/internal/asset"
	"github.com/1broseidon/flurry/internal/probe"
)

var checkName string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the target application is running and the icon exists",
	Long: `Look for the target application among running processes and report
whether the snow icon asset exists.

Exit status is 0 when the process is running, 1 when it is not, and 2 when the
process list could not be read.`,
	Example: `  flurry check
  flurry check --name "Other Player"`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkName, "name", "", "process name to look for (default: the configured target title)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	provider, err := loadProvider()
	if err != nil {
		return err
	}
	cfg := provider.Snapshot()

	name := strings.TrimSpace(checkName)
	if name == "" {
		name = cfg.TargetTitle
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	checker := &probe.Checker{}
	res := checker.Check(ctx, name)
	fmt.Printf("process %q: %s\n", name, res)
	if checker.Err != nil {
		fmt.Fprintf(os.Stderr, "  %v\n", checker.Err)
	}

	icon := asset.ResolvePath(cfg.IconPath)
	if asset.Exists(icon) {
		fmt.Printf("icon %s: present\n", icon)
	} else {
		fmt.Printf("icon %s: missing (the built-in flake is used)\n", icon)
	}

	exitCode = res.ExitCode()
	return nil
}
