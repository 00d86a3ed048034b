// Package config loads the optional TOML run configuration for the
// compiler/VM toolchain: execution limits, debugger behavior, display
// preferences, and trace output.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the toolchain's run configuration, one section per concern.
type Config struct {
	Execution ExecutionConfig `toml:"execution"`
	Debugger  DebuggerConfig  `toml:"debugger"`
	Display   DisplayConfig   `toml:"display"`
	Trace     TraceConfig     `toml:"trace"`
}

// ExecutionConfig bounds and instruments a VM run.
type ExecutionConfig struct {
	MaxInstructions uint64 `toml:"max_instructions"`
	EnableTrace     bool   `toml:"enable_trace"`
	EnableCoverage  bool   `toml:"enable_coverage"`
}

// DebuggerConfig tunes the interactive debugger.
type DebuggerConfig struct {
	HistorySize int  `toml:"history_size"`
	ShowSource  bool `toml:"show_source"`
}

// DisplayConfig controls how values are rendered.
type DisplayConfig struct {
	ColorOutput  bool   `toml:"color_output"`
	NumberFormat string `toml:"number_format"` // hex, dec, both
}

// TraceConfig controls execution-trace output.
type TraceConfig struct {
	OutputFile string `toml:"output_file"`
	MaxEntries int    `toml:"max_entries"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Execution: ExecutionConfig{MaxInstructions: 10_000_000},
		Debugger:  DebuggerConfig{HistorySize: 1000, ShowSource: true},
		Display:   DisplayConfig{ColorOutput: true, NumberFormat: "hex"},
		Trace:     TraceConfig{OutputFile: "trace.log", MaxEntries: 100_000},
	}
}

// GetConfigPath returns the per-user config file path, falling back to the
// working directory when the platform config dir is unavailable.
func GetConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	dir := filepath.Join(base, "gridvm")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file, merging it over
// the defaults. A missing file is not an error: the defaults are used.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes the configuration to path as TOML, creating parent
// directories as needed.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
