package daemon

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tracker.NumParticles != 1000 {
		t.Errorf("Tracker.NumParticles = %d, want %d", cfg.Tracker.NumParticles, 1000)
	}
	if cfg.Security.WhitelistCapacity != 50 {
		t.Errorf("Security.WhitelistCapacity = %d, want %d", cfg.Security.WhitelistCapacity, 50)
	}
	if cfg.Energy.GradientFloor != -2.5 || cfg.Energy.GradientCeiling != 8.0 {
		t.Errorf("Energy gradient caps = [%v, %v], want [-2.5, 8.0]", cfg.Energy.GradientFloor, cfg.Energy.GradientCeiling)
	}
	if cfg.Energy.VentilationGradient != -5.0 {
		t.Errorf("Energy.VentilationGradient = %v, want -5.0", cfg.Energy.VentilationGradient)
	}
	if cfg.Health.IsolationContamination != 0.1 {
		t.Errorf("Health.IsolationContamination = %v, want 0.1", cfg.Health.IsolationContamination)
	}
	if cfg.Telemetry.Enabled {
		t.Errorf("Telemetry.Enabled = true, want false by default")
	}
}

func TestSecuritySequenceLengthClamp(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Security.MinSequenceLength != 10 {
		t.Errorf("Security.MinSequenceLength = %d, want 10", cfg.Security.MinSequenceLength)
	}
	if cfg.Security.MaxSequenceLength != 50 {
		t.Errorf("Security.MaxSequenceLength = %d, want 50", cfg.Security.MaxSequenceLength)
	}
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("COGNI_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Tracker.NumParticles != DefaultConfig().Tracker.NumParticles {
		t.Errorf("LoadConfig without a file should return defaults")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("COGNI_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Node.Label = "test-node"
	cfg.Tracker.NumParticles = 42

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Node.Label != "test-node" {
		t.Errorf("Node.Label = %q, want %q", loaded.Node.Label, "test-node")
	}
	if loaded.Tracker.NumParticles != 42 {
		t.Errorf("Tracker.NumParticles = %d, want 42", loaded.Tracker.NumParticles)
	}
}
