package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
)

// Entrypoint configures container startup.
type Entrypoint struct {
	Download StepConfig `toml:"download"`
	Server   StepConfig `toml:"server"`
}

// StepConfig is an external command run by the entrypoint.
type StepConfig struct {
	Command []string `toml:"command"`
	// TimeoutSec bounds the step. Zero means no timeout.
	TimeoutSec float64 `toml:"timeout_sec"`
}

// Timeout returns the step timeout as a duration.
func (s StepConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec * float64(time.Second))
}

// DefaultEntrypoint returns an Entrypoint with default values.
func DefaultEntrypoint() Entrypoint {
	return Entrypoint{
		Download: StepConfig{Command: []string{"python3", "download_models.py"}},
		Server:   StepConfig{Command: []string{"python3", "server.py"}},
	}
}

// LoadEntrypoint loads name from fsys. A missing file yields the defaults.
func LoadEntrypoint(fsys fs.FS, name string) (Entrypoint, error) {
	cfg := DefaultEntrypoint()

	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", name, err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", name, err)
	}

	if len(cfg.Download.Command) == 0 || cfg.Download.Command[0] == "" {
		return cfg, fmt.Errorf("%s: download.command must not be empty", name)
	}
	if len(cfg.Server.Command) == 0 || cfg.Server.Command[0] == "" {
		return cfg, fmt.Errorf("%s: server.command must not be empty", name)
	}
	if cfg.Download.TimeoutSec < 0 {
		return cfg, fmt.Errorf("%s: download.timeout_sec must not be negative", name)
	}
	return cfg, nil
}
