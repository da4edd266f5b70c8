package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/flurry/internal/ipc"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("250"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	stateStyles = map[string]lipgloss.Style{
		"animating": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"hidden":    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"untracked": lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
)

// RenderStatusBar renders the daemon connection line.
func RenderStatusBar(status *ipc.StatusData, width int) string {
	var line string
	if status != nil && status.DaemonRunning {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{
			dot + " daemon running",
			"up " + (time.Duration(status.UptimeSeconds) * time.Second).String(),
			fmt.Sprintf("%d window(s)", len(status.Bindings)),
		}
		line = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		line = dot + " daemon not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(line)
}

// RenderConfig renders the active configuration as aligned key/value rows.
func RenderConfig(status *ipc.StatusData) string {
	if status == nil {
		return ""
	}
	cfg := status.Config
	icon := cfg.IconPath
	if icon == "" {
		icon = mutedStyle.Render("(built-in)")
	}
	class := cfg.TargetClass
	if class == "" {
		class = mutedStyle.Render("(any)")
	}

	rows := [][2]string{
		{"config", status.ConfigPath},
		{"target", fmt.Sprintf("%q", cfg.TargetTitle)},
		{"class", class},
		{"density", fmt.Sprintf("%d", cfg.Density)},
		{"speed", fmt.Sprintf("%g", cfg.Speed)},
		{"size", fmt.Sprintf("%g", cfg.Size)},
		{"icon", icon},
		{"hide on blur", fmt.Sprintf("%t", cfg.HideOnDeactivate)},
	}

	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(headerStyle.Render(fmt.Sprintf("%-13s", r[0])))
		sb.WriteString(r[1])
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderBindings renders one row per tracked window.
func RenderBindings(bindings []ipc.BindingInfo) string {
	if len(bindings) == 0 {
		return mutedStyle.Render("No target window is being tracked.")
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-10s %-22s %6s  %s", "WINDOW", "STATE", "BOUNDS", "FLAKES", "FLAGS")))
	for _, b := range bindings {
		state := b.State
		if st, ok := stateStyles[state]; ok {
			state = st.Render(fmt.Sprintf("%-10s", state))
		} else {
			state = fmt.Sprintf("%-10s", state)
		}
		bounds := fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.X, b.Y)
		sb.WriteByte('\n')
		sb.WriteString(fmt.Sprintf("0x%-8x %s %-22s %6d  %s", b.WindowID, state, bounds, b.Flakes, bindingFlags(b)))
	}
	return sb.String()
}

func bindingFlags(b ipc.BindingInfo) string {
	var flags []string
	if b.Showing {
		flags = append(flags, "showing")
	}
	if b.Active {
		flags = append(flags, "active")
	}
	if b.Iconified {
		flags = append(flags, "iconified")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func renderHelpBar(width int, editing bool) string {
	help := "r: reload  e: edit settings  q/ctrl-c: quit"
	if editing {
		help = "enter: next/submit  esc: cancel  ctrl-c: quit"
	}
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
