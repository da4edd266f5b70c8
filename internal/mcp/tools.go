package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/flurry/internal/asset"
	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/ipc"
	"github.com/1broseidon/flurry/internal/probe"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		// A stopped daemon is a normal answer, not a tool failure.
		s.log.Debug().Err(err).Msg("get_status: daemon unreachable")
		return nil, GetStatusOutput{
			DaemonRunning: false,
			Error:         err.Error(),
			Bindings:      []ipc.BindingInfo{},
		}, nil
	}

	bindings := status.Bindings
	if bindings == nil {
		bindings = []ipc.BindingInfo{}
	}
	return nil, GetStatusOutput{
		DaemonRunning: status.DaemonRunning,
		UptimeSeconds: status.UptimeSeconds,
		Bindings:      bindings,
	}, nil
}

func (s *Server) handleGetConfig(_ context.Context, _ *mcpsdk.CallToolRequest, args GetConfigInput) (*mcpsdk.CallToolResult, GetConfigOutput, error) {
	out := GetConfigOutput{
		Path:   s.provider.Path(),
		Config: s.provider.Snapshot(),
	}

	key := strings.TrimSpace(args.Key)
	if key == "" {
		return nil, out, nil
	}
	v, ok := out.Config.Value(key)
	if !ok {
		return nil, GetConfigOutput{}, fmt.Errorf("unknown configuration key %q", key)
	}
	out.Key = key
	out.Value = v
	return nil, out, nil
}

func (s *Server) handleSetConfig(_ context.Context, _ *mcpsdk.CallToolRequest, args SetConfigInput) (*mcpsdk.CallToolResult, SetConfigOutput, error) {
	key := strings.TrimSpace(args.Key)
	if key == "" {
		return nil, SetConfigOutput{}, fmt.Errorf("key is required")
	}

	if err := s.provider.Set(key, args.Value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("set_config rejected")
		return nil, SetConfigOutput{}, err
	}
	s.log.Info().Str("key", key).Str("value", args.Value).Msg("Config updated")

	return nil, SetConfigOutput{
		Path:   s.provider.Path(),
		Config: s.provider.Snapshot(),
	}, nil
}

func (s *Server) handleCheckProcess(ctx context.Context, _ *mcpsdk.CallToolRequest, args CheckProcessInput) (*mcpsdk.CallToolResult, CheckProcessOutput, error) {
	cfg := s.provider.Snapshot()

	name := strings.TrimSpace(args.Name)
	if name == "" {
		name = cfg.TargetTitle
	}

	checker := &probe.Checker{Run: s.runProcess}
	res := checker.Check(ctx, name)
	out := CheckProcessOutput{
		Name:    name,
		Result:  res.String(),
		Running: res == probe.Running,
	}
	if checker.Err != nil {
		out.Error = checker.Err.Error()
	}

	out.IconPath = asset.ResolvePath(cfg.IconPath)
	out.IconExists = asset.Exists(out.IconPath)
	return nil, out, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadInput) (*mcpsdk.CallToolResult, ReloadOutput, error) {
	err := s.daemon.Reload()
	if err == nil {
		return nil, ReloadOutput{Reloaded: true, Target: "daemon"}, nil
	}
	s.log.Debug().Err(err).Msg("reload: daemon unreachable, reloading locally")

	if err := s.provider.Reload(); err != nil {
		var readErr *config.ReadError
		if !errors.As(err, &readErr) {
			return nil, ReloadOutput{}, err
		}
		// Defaults were restored and written back; still a completed reload.
		s.log.Warn().Err(err).Msg("reload: config unreadable, defaults restored")
	}
	return nil, ReloadOutput{Reloaded: true, Target: "local"}, nil
}
