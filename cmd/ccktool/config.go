package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/bkio/crosscloudkit/memory"
	"github.com/bkio/crosscloudkit/monitor"
)

// toolConfig is the demo wiring config, loadable from either TOML or YAML
// depending on the file extension.
type toolConfig struct {
	FileServiceDir string         `toml:"file_service_dir" yaml:"fileServiceDir"`
	Memory         memory.Config  `toml:"memory" yaml:"memory"`
	Monitor        monitor.Config `toml:"monitor" yaml:"monitor"`
}

func (c *toolConfig) setDefaults() error {
	if c.FileServiceDir == "" {
		c.FileServiceDir = filepath.Join(os.TempDir(), "ccktool-files")
	}
	c.Memory.SetDefaults()
	if c.Memory.CleanupInterval <= 0 {
		c.Memory.CleanupInterval = 30 * time.Second
	}
	return c.Monitor.SetDefaults()
}

// loadConfig reads path, dispatching on extension to pick a decoder. A
// missing path yields an all-defaults config rather than an error, so the
// demo runs with zero setup.
func loadConfig(path string) (*toolConfig, error) {
	cfg := &toolConfig{}
	if path == "" {
		if err := cfg.setDefaults(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(raw), cfg); err != nil {
			return nil, fmt.Errorf("decode toml config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q (want .toml, .yaml, or .yml)", ext)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}
