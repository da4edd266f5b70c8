package mcp

import (
	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/ipc"
)

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	DaemonRunning bool              `json:"daemon_running"`
	Error         string            `json:"error,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds,omitempty"`
	Bindings      []ipc.BindingInfo `json:"bindings"`
}

// GetConfigInput is the input for the get_config tool.
type GetConfigInput struct {
	Key string `json:"key,omitempty" jsonschema:"Optional single key to read (e.g. snowDensity). Omit to return the whole configuration."`
}

// GetConfigOutput is the output for the get_config tool.
type GetConfigOutput struct {
	Path   string          `json:"path"`
	Config config.Snapshot `json:"config"`
	Key    string          `json:"key,omitempty"`
	Value  any             `json:"value,omitempty"`
}

// SetConfigInput is the input for the set_config tool.
type SetConfigInput struct {
	Key   string `json:"key" jsonschema:"required,Configuration key: snowIconPath, snowDensity, snowSpeed, snowSize, targetTitle, targetClass, hideOnDeactivate or logLevel"`
	Value string `json:"value" jsonschema:"required,New value as text; numbers and booleans are parsed"`
}

// SetConfigOutput is the output for the set_config tool.
type SetConfigOutput struct {
	Path   string          `json:"path"`
	Config config.Snapshot `json:"config"`
}

// CheckProcessInput is the input for the check_process tool.
type CheckProcessInput struct {
	Name string `json:"name,omitempty" jsonschema:"Process name to look for (default: the configured target title)"`
}

// CheckProcessOutput is the output for the check_process tool.
type CheckProcessOutput struct {
	Name       string `json:"name"`
	Result     string `json:"result"`
	Running    bool   `json:"running"`
	Error      string `json:"error,omitempty"`
	IconPath   string `json:"icon_path"`
	IconExists bool   `json:"icon_exists"`
}

// ReloadInput is the input for the reload tool.
type ReloadInput struct{}

// ReloadOutput is the output for the reload tool.
type ReloadOutput struct {
	Reloaded bool   `json:"reloaded"`
	Target   string `json:"target"` // "daemon" or "local"
}
