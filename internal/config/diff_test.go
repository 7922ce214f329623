package config_test

import (
	"testing"

	"github.com/Gasburger/BrainBox/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Detect: config.DetectConfig{WindowSize: 500, Increment: 50},
	}
	d := config.Diff(cfg, cfg)
	if !d.Empty() {
		t.Errorf("expected empty diff for identical configs, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.DetectChanged {
		t.Error("expected DetectChanged=false")
	}
}

func TestDiff_DetectChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Detect: config.DetectConfig{WindowSize: 500}}
	new := &config.Config{Detect: config.DetectConfig{WindowSize: 500, ThresholdCrossings: 150}}

	d := config.Diff(old, new)
	if !d.DetectChanged {
		t.Error("expected DetectChanged=true")
	}
	if d.NewDetect.ThresholdCrossings != 150 {
		t.Errorf("NewDetect.ThresholdCrossings: got %d, want 150", d.NewDetect.ThresholdCrossings)
	}
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false")
	}
	if d.Empty() {
		t.Error("expected non-empty diff")
	}
}

func TestDiff_RestartOnlyFieldsIgnored(t *testing.T) {
	t.Parallel()
	old := &config.Config{Postgres: config.PostgresConfig{DSN: "postgres://a/db"}}
	new := &config.Config{Postgres: config.PostgresConfig{DSN: "postgres://b/db"}}

	if d := config.Diff(old, new); !d.Empty() {
		t.Errorf("DSN changes are not hot-reloadable, expected empty diff, got %+v", d)
	}
}
