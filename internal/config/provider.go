package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/viper"

	"github.com/1broseidon/flurry/internal/logger"
)

// Provider owns the persisted configuration file and publishes the current
// Snapshot. Snapshot reads are lock-free; writers serialize on mu.
type Provider struct {
	path string

	mu        sync.Mutex
	listeners []func(Snapshot)

	current atomic.Pointer[Snapshot]
}

// NewProvider loads the configuration at path, or at DefaultPath when path is
// empty. A missing or corrupt file is replaced with defaults and is not an
// error.
func NewProvider(path string) (*Provider, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	p := &Provider{path: path}
	def := Defaults()
	p.current.Store(&def)

	if err := p.Reload(); err != nil {
		var readErr *ReadError
		if !errors.As(err, &readErr) {
			return nil, err
		}
	}
	return p, nil
}

// Path returns the backing file path.
func (p *Provider) Path() string {
	return p.path
}

// Snapshot returns the current configuration.
func (p *Provider) Snapshot() Snapshot {
	return *p.current.Load()
}

// Get returns the value stored under key, or def for an unknown key.
func (p *Provider) Get(key string, def any) any {
	if v, ok := p.Snapshot().Value(key); ok {
		return v
	}
	return def
}

// OnChange registers fn to be called after every reload or update. fn runs on
// the goroutine that triggered the change.
func (p *Provider) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Reload re-reads the file. When the file is missing or corrupt, defaults are
// published and written back, and a *ReadError is returned for reporting.
func (p *Provider) Reload() error {
	log := logger.WithComponent("config")

	p.mu.Lock()
	snap, readErr := p.read()
	var retErr error
	if readErr != nil {
		log.Warn().Err(readErr).Str("path", p.path).Msg("Config unreadable, restoring defaults")
		snap = Defaults()
		if err := p.write(snap); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to write default config: %w", err)
		}
		retErr = readErr
	}
	p.current.Store(&snap)
	listeners := append([]func(Snapshot){}, p.listeners...)
	p.mu.Unlock()

	log.Debug().
		Str("path", p.path).
		Int("density", snap.Density).
		Float64("speed", snap.Speed).
		Float64("size", snap.Size).
		Str("icon", snap.IconPath).
		Msg("Config loaded")

	for _, fn := range listeners {
		fn(snap)
	}
	return retErr
}

// Set parses raw for key, validates, persists and publishes the result.
func (p *Provider) Set(key, raw string) error {
	next, err := p.Snapshot().With(key, raw)
	if err != nil {
		return err
	}
	return p.Update(next)
}

// Update validates s, persists it and publishes it.
func (p *Provider) Update(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	if err := p.write(s); err != nil {
		p.mu.Unlock()
		return err
	}
	p.current.Store(&s)
	listeners := append([]func(Snapshot){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
	return nil
}

// Save writes the current snapshot to disk.
func (p *Provider) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(p.Snapshot())
}

func (p *Provider) read() (Snapshot, error) {
	def := Defaults()

	v := viper.New()
	v.SetConfigFile(p.path)
	v.SetConfigType("json")
	v.SetDefault(KeyIconPath, def.IconPath)
	v.SetDefault(KeyDensity, def.Density)
	v.SetDefault(KeySpeed, def.Speed)
	v.SetDefault(KeySize, def.Size)
	v.SetDefault(KeyTargetTitle, def.TargetTitle)
	v.SetDefault(KeyTargetClass, def.TargetClass)
	v.SetDefault(KeyHideOnDeactivate, def.HideOnDeactivate)
	v.SetDefault(KeyLogLevel, def.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		return def, &ReadError{Path: p.path, Err: err}
	}

	s := Snapshot{
		IconPath:         v.GetString(KeyIconPath),
		Density:          v.GetInt(KeyDensity),
		Speed:            v.GetFloat64(KeySpeed),
		Size:             v.GetFloat64(KeySize),
		TargetTitle:      v.GetString(KeyTargetTitle),
		TargetClass:      v.GetString(KeyTargetClass),
		HideOnDeactivate: v.GetBool(KeyHideOnDeactivate),
		LogLevel:         v.GetString(KeyLogLevel),
	}
	return s.normalize(), nil
}

// write replaces the file atomically so the watcher never observes a
// half-written document.
func (p *Provider) write(s Snapshot) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
