// Package config loads the per-project settings of the language server.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the settings file looked up in the project root
const FileName = ".noolang-lsp.toml"

// Duration is a time.Duration read from a TOML string such as "300ms"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds the language server settings
type Config struct {
	Tool        ToolConfig        `toml:"tool"`
	Index       IndexConfig       `toml:"index"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Log         LogConfig         `toml:"log"`
}

// ToolConfig describes how the noolang tool is invoked
type ToolConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Timeout Duration `toml:"timeout"`
}

// IndexConfig controls the workspace symbol index
type IndexConfig struct {
	Enabled    bool     `toml:"enabled"`
	Extensions []string `toml:"extensions"`
	Workers    int      `toml:"workers"`
}

type DiagnosticsConfig struct {
	Enabled  bool     `toml:"enabled"`
	Debounce Duration `toml:"debounce"`
}

type LogConfig struct {
	Verbose bool `toml:"verbose"`
	// File receives the log output instead of stderr when set
	File string `toml:"file"`
}

// NewDefaultConfig creates a Config struct with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Tool: ToolConfig{
			Command: "node",
			Args:    []string{"dist/cli.js"},
			Timeout: Duration{5 * time.Second},
		},
		Index: IndexConfig{
			Enabled:    true,
			Extensions: []string{".noo"},
			Workers:    4,
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:  true,
			Debounce: Duration{300 * time.Millisecond},
		},
	}
}

// Load reads FileName from root on top of the defaults. A missing file is not
// an error.
func Load(root string) (*Config, error) {
	return LoadFile(filepath.Join(root, FileName))
}

// LoadFile reads the settings file at path on top of the defaults
func LoadFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to check config file %s: %w", path, err)
	}

	metadata, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return NewDefaultConfig(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		log.Printf("Config file %s: unrecognized keys: %v", path, undecoded)
	}

	cfg.validate()
	return cfg, nil
}

// validate checks config values and resets invalid ones to defaults.
func (c *Config) validate() {
	defaults := NewDefaultConfig()

	if strings.TrimSpace(c.Tool.Command) == "" {
		c.Tool.Command = defaults.Tool.Command
		c.Tool.Args = defaults.Tool.Args
	}
	if c.Tool.Timeout.Duration <= 0 {
		c.Tool.Timeout = defaults.Tool.Timeout
	}

	if c.Index.Workers <= 0 {
		c.Index.Workers = defaults.Index.Workers
	}

	extensions := make([]string, 0, len(c.Index.Extensions))
	for _, ext := range c.Index.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions = append(extensions, ext)
	}
	if len(extensions) == 0 {
		extensions = defaults.Index.Extensions
	}
	c.Index.Extensions = extensions

	if c.Diagnostics.Debounce.Duration < 0 {
		c.Diagnostics.Debounce = defaults.Diagnostics.Debounce
	}
}

// ResolveArgs makes relative tool arguments that name existing files relative
// to root, so the tool can be started from any working directory
func (c *Config) ResolveArgs(root string) []string {
	args := make([]string, len(c.Tool.Args))
	for i, arg := range c.Tool.Args {
		args[i] = arg
		if strings.HasPrefix(arg, "-") || filepath.IsAbs(arg) {
			continue
		}
		candidate := filepath.Join(root, arg)
		if _, err := os.Stat(candidate); err == nil {
			args[i] = candidate
		}
	}
	return args
}
