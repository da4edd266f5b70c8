package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults_Validate(t *testing.T) {
	def := Defaults()
	if err := def.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if def.Density != 20 || def.Speed != 60 || def.Size != 1.0 || def.IconPath != "" {
		t.Fatalf("unexpected defaults: %+v", def)
	}
	if def.TargetTitle != DefaultTargetTitle {
		t.Fatalf("target title = %q, want %q", def.TargetTitle, DefaultTargetTitle)
	}
	if def.HideOnDeactivate {
		t.Fatalf("hide on deactivate must default to false")
	}
}

func TestNewProvider_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flurry", FileName)

	p, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if got := p.Snapshot(); got != Defaults() {
		t.Fatalf("snapshot = %+v, want defaults", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected defaults to be written back: %v", err)
	}
	var onDisk map[string]any
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("written config is not JSON: %v", err)
	}
	if _, ok := onDisk[KeyDensity]; !ok {
		t.Fatalf("written config missing %q: %s", KeyDensity, data)
	}
}

func TestReload_CorruptFileRevertsToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`{"snowDensity": 5}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if got := p.Snapshot().Density; got != 5 {
		t.Fatalf("density = %d, want 5", got)
	}

	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err = p.Reload()
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
	if got := p.Snapshot(); got != Defaults() {
		t.Fatalf("snapshot = %+v, want defaults after corrupt read", got)
	}

	if err := p.Reload(); err != nil {
		t.Fatalf("expected written-back defaults to parse, got %v", err)
	}
}

func TestSetThenReload_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	p, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	tests := []struct {
		key  string
		raw  string
		want any
	}{
		{KeyIconPath, "/tmp/flake.png", "/tmp/flake.png"},
		{KeyDensity, "35", 35},
		{KeySpeed, "80.5", 80.5},
		{KeySize, "1.5", 1.5},
		{KeyTargetTitle, "Other Player", "Other Player"},
		{KeyTargetClass, "SaltPlayer", "SaltPlayer"},
		{KeyHideOnDeactivate, "true", true},
		{KeyLogLevel, "debug", "debug"},
	}
	for _, tt := range tests {
		if err := p.Set(tt.key, tt.raw); err != nil {
			t.Fatalf("Set(%s, %s): %v", tt.key, tt.raw, err)
		}
	}

	reloaded, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider (reload): %v", err)
	}
	for _, tt := range tests {
		if got := reloaded.Get(tt.key, nil); got != tt.want {
			t.Fatalf("Get(%s) = %v (%T), want %v (%T)", tt.key, got, got, tt.want, tt.want)
		}
	}
}

func TestSet_RejectsInvalidValues(t *testing.T) {
	p, err := NewProvider(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	tests := []struct {
		key string
		raw string
	}{
		{KeyDensity, "-1"},
		{KeyDensity, "many"},
		{KeySize, "0"},
		{KeySpeed, "fast"},
		{KeyHideOnDeactivate, "maybe"},
		{KeyTargetTitle, "  "},
		{KeyLogLevel, "loud"},
		{"bogus", "1"},
	}
	for _, tt := range tests {
		err := p.Set(tt.key, tt.raw)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Set(%s, %q) = %v, want *ValidationError", tt.key, tt.raw, err)
		}
	}
	if got := p.Snapshot(); got != Defaults() {
		t.Fatalf("rejected sets must not change snapshot, got %+v", got)
	}
}

func TestGet_UnknownKeyReturnsDefault(t *testing.T) {
	p, err := NewProvider(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if got := p.Get("nope", "fallback"); got != "fallback" {
		t.Fatalf("Get(nope) = %v, want fallback", got)
	}
	if got := p.Get("SNOWDENSITY", 0); got != 20 {
		t.Fatalf("Get is expected to be case-insensitive, got %v", got)
	}
}

func TestReload_NormalizesOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	data := `{"snowDensity": -4, "snowSpeed": -1, "snowSize": 0, "targetTitle": ""}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	got := p.Snapshot()
	if got.Density != 0 || got.Speed != 0 || got.Size != 1.0 || got.TargetTitle != DefaultTargetTitle {
		t.Fatalf("unexpected normalized snapshot: %+v", got)
	}
}

func TestOnChange_CalledOnUpdate(t *testing.T) {
	p, err := NewProvider(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	var seen []Snapshot
	p.OnChange(func(s Snapshot) { seen = append(seen, s) })

	if err := p.Set(KeyDensity, "7"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(seen) != 1 || seen[0].Density != 7 {
		t.Fatalf("listener calls = %+v, want one with density 7", seen)
	}
}

func TestWatch_ReloadsOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	p, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	changed := make(chan Snapshot, 8)
	p.OnChange(func(s Snapshot) { changed <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"snowDensity": 42}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-changed:
			if s.Density == 42 {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for reload, snapshot = %+v", p.Snapshot())
		}
	}
}
