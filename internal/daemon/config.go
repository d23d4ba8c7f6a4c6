// Package daemon manages the cogni-living daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Node      NodeConfig      `toml:"node"`
	Data      DataConfig      `toml:"data"`
	Tracker   TrackerConfig   `toml:"tracker"`
	Security  SecurityConfig  `toml:"security"`
	Energy    EnergyConfig    `toml:"energy"`
	Health    HealthConfig    `toml:"health"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// NodeConfig identifies this instance in log lines only — this daemon is
// single-tenant and has no network identity.
type NodeConfig struct {
	Label string `toml:"label"`
}

// DataConfig controls where engine state is persisted.
type DataConfig struct {
	Dir                string `toml:"dir"`
	TrackerPersistEvery string `toml:"tracker_persist_every"`
}

// TrackerConfig controls the particle filter.
type TrackerConfig struct {
	NumParticles int `toml:"num_particles"`
}

// SecurityConfig controls the sequence autoencoder and whitelist overlay.
type SecurityConfig struct {
	DefaultThreshold   float64 `toml:"default_threshold"`
	WhitelistCapacity  int     `toml:"whitelist_capacity"`
	MinSequenceLength  int     `toml:"min_sequence_length"`
	MaxSequenceLength  int     `toml:"max_sequence_length"`
}

// EnergyConfig controls the thermodynamic brain and its physics caps.
type EnergyConfig struct {
	GradientFloor       float64  `toml:"gradient_floor"`
	GradientCeiling     float64  `toml:"gradient_ceiling"`
	VentilationGradient float64  `toml:"ventilation_gradient"`
	ValvePercent        float64  `toml:"valve_percent"`
	SolarSensitiveRooms []string `toml:"solar_sensitive_rooms"`
	DefaultTarget       float64  `toml:"default_target"`
}

// HealthConfig controls the activity baseline and heatmap rules.
type HealthConfig struct {
	IsolationContamination float64 `toml:"isolation_contamination"`
	NightHighActivityRatio float64 `toml:"night_high_activity_ratio"`
	MorningLowActivityRatio float64 `toml:"morning_low_activity_ratio"`
	DayLowActivityRatio     float64 `toml:"day_low_activity_ratio"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// TelemetryConfig controls the optional observability HTTP listener. This
// never carries the command transport, which stays stdio (spec §5-6).
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Node: NodeConfig{
			Label: "cogni-living",
		},
		Data: DataConfig{
			Dir:                 resolveDataDir(),
			TrackerPersistEvery: "60s",
		},
		Tracker: TrackerConfig{
			NumParticles: 1000,
		},
		Security: SecurityConfig{
			DefaultThreshold:  0.05,
			WhitelistCapacity: 50,
			MinSequenceLength: 10,
			MaxSequenceLength: 50,
		},
		Energy: EnergyConfig{
			GradientFloor:       -2.5,
			GradientCeiling:     8.0,
			VentilationGradient: -5.0,
			ValvePercent:        5.0,
			SolarSensitiveRooms: nil,
			DefaultTarget:       21.0,
		},
		Health: HealthConfig{
			IsolationContamination:  0.1,
			NightHighActivityRatio:  2.0,
			MorningLowActivityRatio: 0.3,
			DayLowActivityRatio:     0.2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9090,
		},
	}
}

// LoadConfig reads config from $COGNI_HOME/config.toml, falling back to
// defaults when the file doesn't exist.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(cogniHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config to $COGNI_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(cogniHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// resolveDataDir implements spec §6: $IOBROKER_DATA/cogni-living if
// writable, else a directory next to the executable.
func resolveDataDir() string {
	if env := os.Getenv("IOBROKER_DATA"); env != "" {
		dir := filepath.Join(env, "cogni-living")
		if dirWritable(dir) {
			return dir
		}
	}

	exe, err := os.Executable()
	if err == nil {
		dir := filepath.Join(filepath.Dir(exe), "cogni-living-data")
		if dirWritable(dir) {
			return dir
		}
	}

	return filepath.Join(cogniHome(), "data")
}

func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(dir, ".write_probe")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// cogniHome returns the directory holding the daemon's own config file —
// distinct from the Data directory, which holds engine state.
func cogniHome() string {
	if env := os.Getenv("COGNI_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cogni-living")
}

// CogniHome is exported for use by other packages.
func CogniHome() string {
	return cogniHome()
}
