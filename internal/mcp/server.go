// Package mcp exposes the flurry daemon and its configuration as MCP tools
// over stdio.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/ipc"
	"github.com/1broseidon/flurry/internal/logger"
	"github.com/1broseidon/flurry/internal/probe"
)

const (
	ServerName    = "flurry"
	ServerVersion = "0.1.0"
)

// DaemonClient is the part of the IPC client the tools use.
type DaemonClient interface {
	Reload() error
	GetStatus() (*ipc.StatusData, error)
}

// Server is the MCP server for inspecting and tuning flurry.
type Server struct {
	mcpServer *mcpsdk.Server
	provider  *config.Provider
	daemon    DaemonClient
	log       *zerolog.Logger

	// runProcess lists processes for check_process; nil runs ps.
	runProcess probe.Runner
}

// NewServer creates a server backed by the given config provider. A nil
// daemon talks to the default IPC socket.
func NewServer(provider *config.Provider, daemon DaemonClient) *Server {
	if daemon == nil {
		daemon = ipc.NewClient()
	}

	s := &Server{
		provider: provider,
		daemon:   daemon,
		log:      logger.WithComponent("mcp"),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run serves on the stdio transport, blocking until ctx is done or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Str("config", s.provider.Path()).Msg("MCP server starting on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report whether the flurry daemon is running, its uptime, and every window it is tracking with its overlay state, bounds and live flake count.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_config",
		Description: "Read the snow configuration (snow_config.json). Pass key to read a single value.",
	}, s.handleGetConfig)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_config",
		Description: "Validate and persist a single configuration value. A running daemon picks the change up on its next spawn batch.",
	}, s.handleSetConfig)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "check_process",
		Description: "Check whether a process is running (default: the configured target title) and whether the snow icon asset exists on disk.",
	}, s.handleCheckProcess)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload",
		Description: "Re-read the configuration file. Goes through the daemon when it is running, otherwise reloads locally.",
	}, s.handleReload)
}
