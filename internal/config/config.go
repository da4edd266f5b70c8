package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Persisted keys. The camelCase spelling is kept so existing snow_config.json
// files stay readable.
const (
	KeyIconPath         = "snowIconPath"
	KeyDensity          = "snowDensity"
	KeySpeed            = "snowSpeed"
	KeySize             = "snowSize"
	KeyTargetTitle      = "targetTitle"
	KeyTargetClass      = "targetClass"
	KeyHideOnDeactivate = "hideOnDeactivate"
	KeyLogLevel         = "logLevel"
)

// FileName is the configuration file name inside the config directory.
const FileName = "snow_config.json"

// DefaultTargetTitle is the window title the overlay attaches to.
const DefaultTargetTitle = "Salt Player for Windows"

// Keys lists every supported key in display order.
var Keys = []string{
	KeyIconPath,
	KeyDensity,
	KeySpeed,
	KeySize,
	KeyTargetTitle,
	KeyTargetClass,
	KeyHideOnDeactivate,
	KeyLogLevel,
}

// Snapshot is an immutable view of the configuration. Consumers read it once
// per batch spawn, so a change only affects flakes spawned afterwards.
type Snapshot struct {
	IconPath         string  `json:"snowIconPath" yaml:"snowIconPath"`
	Density          int     `json:"snowDensity" yaml:"snowDensity"`
	Speed            float64 `json:"snowSpeed" yaml:"snowSpeed"`
	Size             float64 `json:"snowSize" yaml:"snowSize"`
	TargetTitle      string  `json:"targetTitle" yaml:"targetTitle"`
	TargetClass      string  `json:"targetClass,omitempty" yaml:"targetClass,omitempty"`
	HideOnDeactivate bool    `json:"hideOnDeactivate" yaml:"hideOnDeactivate"`
	LogLevel         string  `json:"logLevel" yaml:"logLevel"`
}

// Defaults returns the built-in configuration.
func Defaults() Snapshot {
	return Snapshot{
		IconPath:    "",
		Density:     20,
		Speed:       60,
		Size:        1.0,
		TargetTitle: DefaultTargetTitle,
		LogLevel:    "info",
	}
}

// DefaultPath returns ~/.config/flurry/snow_config.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "flurry", FileName), nil
}

// Validate reports the first invalid field.
func (s Snapshot) Validate() error {
	if s.Density < 0 {
		return &ValidationError{Key: KeyDensity, Err: fmt.Errorf("must be >= 0")}
	}
	if s.Speed < 0 {
		return &ValidationError{Key: KeySpeed, Err: fmt.Errorf("must be >= 0")}
	}
	if s.Size <= 0 {
		return &ValidationError{Key: KeySize, Err: fmt.Errorf("must be > 0")}
	}
	if strings.TrimSpace(s.TargetTitle) == "" {
		return &ValidationError{Key: KeyTargetTitle, Err: fmt.Errorf("must not be empty")}
	}
	switch strings.ToLower(s.LogLevel) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Key: KeyLogLevel, Err: fmt.Errorf("must be one of: trace, debug, info, warn, error")}
	}
	return nil
}

// normalize replaces out-of-range values read from disk with defaults so a
// hand-edited file never stops the overlay.
func (s Snapshot) normalize() Snapshot {
	def := Defaults()
	if s.Density < 0 {
		s.Density = 0
	}
	if s.Speed < 0 {
		s.Speed = 0
	}
	if s.Size <= 0 {
		s.Size = def.Size
	}
	if strings.TrimSpace(s.TargetTitle) == "" {
		s.TargetTitle = def.TargetTitle
	}
	if s.LogLevel == "" {
		s.LogLevel = def.LogLevel
	}
	return s
}

// Value returns the field stored under key.
func (s Snapshot) Value(key string) (any, bool) {
	switch canonicalKey(key) {
	case KeyIconPath:
		return s.IconPath, true
	case KeyDensity:
		return s.Density, true
	case KeySpeed:
		return s.Speed, true
	case KeySize:
		return s.Size, true
	case KeyTargetTitle:
		return s.TargetTitle, true
	case KeyTargetClass:
		return s.TargetClass, true
	case KeyHideOnDeactivate:
		return s.HideOnDeactivate, true
	case KeyLogLevel:
		return s.LogLevel, true
	}
	return nil, false
}

// With returns a copy of s with key parsed from raw.
func (s Snapshot) With(key, raw string) (Snapshot, error) {
	raw = strings.TrimSpace(raw)
	switch canonicalKey(key) {
	case KeyIconPath:
		s.IconPath = raw
	case KeyDensity:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return s, &ValidationError{Key: KeyDensity, Err: fmt.Errorf("invalid integer %q", raw)}
		}
		s.Density = n
	case KeySpeed:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return s, &ValidationError{Key: KeySpeed, Err: fmt.Errorf("invalid number %q", raw)}
		}
		s.Speed = f
	case KeySize:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return s, &ValidationError{Key: KeySize, Err: fmt.Errorf("invalid number %q", raw)}
		}
		s.Size = f
	case KeyTargetTitle:
		s.TargetTitle = raw
	case KeyTargetClass:
		s.TargetClass = raw
	case KeyHideOnDeactivate:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return s, &ValidationError{Key: KeyHideOnDeactivate, Err: fmt.Errorf("invalid boolean %q (use true or false)", raw)}
		}
		s.HideOnDeactivate = b
	case KeyLogLevel:
		s.LogLevel = strings.ToLower(raw)
	default:
		return s, &ValidationError{Key: key, Err: fmt.Errorf("unknown key")}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// canonicalKey maps any casing of a known key to its persisted spelling.
func canonicalKey(key string) string {
	for _, k := range Keys {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}
