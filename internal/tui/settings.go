package tui

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/1broseidon/flurry/internal/config"
)

// Settings holds form-bound values for the editable configuration keys.
// Numbers are kept as strings for huh and parsed on apply.
type Settings struct {
	IconPath         string
	Density          string
	Speed            string
	Size             string
	TargetTitle      string
	TargetClass      string
	HideOnDeactivate bool
	LogLevel         string
}

// SettingsFrom fills a Settings from a snapshot.
func SettingsFrom(s config.Snapshot) *Settings {
	return &Settings{
		IconPath:         s.IconPath,
		Density:          strconv.Itoa(s.Density),
		Speed:            strconv.FormatFloat(s.Speed, 'f', -1, 64),
		Size:             strconv.FormatFloat(s.Size, 'f', -1, 64),
		TargetTitle:      s.TargetTitle,
		TargetClass:      s.TargetClass,
		HideOnDeactivate: s.HideOnDeactivate,
		LogLevel:         s.LogLevel,
	}
}

// Apply returns base with every form value applied and validated.
func (st *Settings) Apply(base config.Snapshot) (config.Snapshot, error) {
	fields := []struct{ key, raw string }{
		{config.KeyIconPath, st.IconPath},
		{config.KeyDensity, st.Density},
		{config.KeySpeed, st.Speed},
		{config.KeySize, st.Size},
		{config.KeyTargetTitle, st.TargetTitle},
		{config.KeyTargetClass, st.TargetClass},
		{config.KeyHideOnDeactivate, strconv.FormatBool(st.HideOnDeactivate)},
		{config.KeyLogLevel, st.LogLevel},
	}

	next := base
	for _, f := range fields {
		var err error
		if next, err = next.With(f.key, f.raw); err != nil {
			return base, err
		}
	}
	return next, nil
}

// validator checks one field against the current base snapshot.
func validator(base config.Snapshot, key string) func(string) error {
	return func(raw string) error {
		_, err := base.With(key, raw)
		return err
	}
}

// NewForm builds the settings form bound to st.
func NewForm(st *Settings, base config.Snapshot, width int) *huh.Form {
	if width < 40 {
		width = 40
	}

	levelOpts := []huh.Option[string]{
		huh.NewOption("debug", "debug"),
		huh.NewOption("info", "info"),
		huh.NewOption("warn", "warn"),
		huh.NewOption("error", "error"),
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key(config.KeyDensity).
				Title("Density").
				Description("Base flakes per batch (a random 0-5 is added)").
				Value(&st.Density).
				Validate(validator(base, config.KeyDensity)),

			huh.NewInput().
				Key(config.KeySpeed).
				Title("Speed").
				Description("Base fall speed in px/s (a random 0-60 is added)").
				Value(&st.Speed).
				Validate(validator(base, config.KeySpeed)),

			huh.NewInput().
				Key(config.KeySize).
				Title("Size").
				Description("Multiplier applied to every flake scale").
				Value(&st.Size).
				Validate(validator(base, config.KeySize)),

			huh.NewInput().
				Key(config.KeyIconPath).
				Title("Icon Path").
				Description("Sprite image; empty uses the built-in flake").
				Value(&st.IconPath),
		),
		huh.NewGroup(
			huh.NewInput().
				Key(config.KeyTargetTitle).
				Title("Target Title").
				Description("Exact window title to overlay").
				Value(&st.TargetTitle).
				Validate(validator(base, config.KeyTargetTitle)),

			huh.NewInput().
				Key(config.KeyTargetClass).
				Title("Target Class").
				Description("Optional WM_CLASS filter (case-insensitive)").
				Value(&st.TargetClass),

			huh.NewConfirm().
				Key(config.KeyHideOnDeactivate).
				Title("Hide when the window loses focus").
				Value(&st.HideOnDeactivate),

			huh.NewSelect[string]().
				Key(config.KeyLogLevel).
				Title("Log Level").
				Options(levelOpts...).
				Value(&st.LogLevel),
		),
	).WithWidth(width).WithShowHelp(true).WithShowErrors(true)
}

// EditConfig runs the settings form standalone and saves the result through
// provider. It returns false when the user aborted.
func EditConfig(provider *config.Provider) (bool, error) {
	if err := requireTTY(); err != nil {
		return false, err
	}

	base := provider.Snapshot()
	st := SettingsFrom(base)
	form := NewForm(st, base, 72)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}

	next, err := st.Apply(base)
	if err != nil {
		return false, err
	}
	if err := provider.Update(next); err != nil {
		return false, fmt.Errorf("failed to save config: %w", err)
	}
	return true, nil
}
