// Package manager contains the helpers behind the ssh-fast companion CLI:
// settings, marker-line listing, diagnostics, benchmarks and the host picker.
package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ssh-connect-fast/pkg/fastpath"
)

// Config represents the optional YAML settings for ssh-fast. The trampoline
// itself never reads this file.
//
// Example YAML:
//
// ssh_config: ~/.ssh/config
// color: auto
// bench:
//   runs: 5
//   command: [true]
//   timeout_ms: 15000
// pick:
//   max_results: 20
type Config struct {
	// SSHConfig overrides the ssh config inspected by list/check/pick.
	// Empty means $HOME/.ssh/config, the file the trampoline pins.
	SSHConfig string `yaml:"ssh_config,omitempty"`

	// Color is one of: "" | auto | always | never.
	Color string `yaml:"color,omitempty"`

	Bench BenchConfig `yaml:"bench,omitempty"`
	Pick  PickConfig  `yaml:"pick,omitempty"`
}

// BenchConfig controls `ssh-fast bench`.
type BenchConfig struct {
	// Runs is the number of connections per variant. Defaults to 3.
	Runs int `yaml:"runs,omitempty"`

	// Command is the remote command run on each connection. Defaults to ["true"].
	Command []string `yaml:"command,omitempty"`

	// TimeoutMS bounds a single connection. Defaults to 15000.
	TimeoutMS int `yaml:"timeout_ms,omitempty"`
}

// PickConfig controls `ssh-fast pick`.
type PickConfig struct {
	MaxResults int `yaml:"max_results,omitempty"`
}

const (
	defaultBenchRuns      = 3
	defaultBenchTimeoutMS = 15000
	defaultPickMaxResults = 20
)

// ErrConfigNotFound is returned when no settings file can be located.
var ErrConfigNotFound = errors.New("config not found")

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig discovers and loads the YAML settings.
// If explicitPath is empty, it searches common locations in order:
// 1. $SSH_CONNECT_FAST_SETTINGS
// 2. $XDG_CONFIG_HOME/ssh-connect-fast/settings.yaml
// 3. ~/.config/ssh-connect-fast/settings.yaml
//
// Returns the parsed Config (defaults applied) and the path that was used.
func LoadConfig(explicitPath string) (*Config, string, error) {
	candidates := ConfigPathCandidates(explicitPath)
	var lastErr error
	for _, p := range candidates {
		p = expandPath(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			lastErr = err
			continue
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, p, fmt.Errorf("parse yaml %s: %w", p, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, p, fmt.Errorf("invalid config %s: %w", p, err)
		}
		cfg.applyDefaults()
		return &cfg, p, nil
	}
	if lastErr == nil || (explicitPath == "" && errors.Is(lastErr, os.ErrNotExist)) {
		lastErr = ErrConfigNotFound
	}
	return nil, "", lastErr
}

// ConfigPathCandidates returns possible settings file paths, in priority order.
// If explicitPath is provided, it is the only candidate.
func ConfigPathCandidates(explicitPath string) []string {
	if explicitPath != "" {
		return []string{explicitPath}
	}
	var out []string
	if env := os.Getenv("SSH_CONNECT_FAST_SETTINGS"); env != "" {
		out = append(out, env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "ssh-connect-fast", "settings.yaml"))
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		out = append(out, filepath.Join(home, ".config", "ssh-connect-fast", "settings.yaml"))
	}
	return out
}

// Validate performs basic sanity checks on the settings.
//
// - color must be one of: "" | auto | always | never
// - bench.runs and bench.timeout_ms must be >= 0
// - bench.command entries must be non-empty
// - pick.max_results must be >= 0
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Color)) {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("color: invalid value %q (expected: auto|always|never)", c.Color)
	}
	if c.Bench.Runs < 0 {
		return fmt.Errorf("bench.runs: must be >= 0")
	}
	if c.Bench.TimeoutMS < 0 {
		return fmt.Errorf("bench.timeout_ms: must be >= 0")
	}
	for i, a := range c.Bench.Command {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("bench.command[%d]: empty argument", i)
		}
	}
	if c.Pick.MaxResults < 0 {
		return fmt.Errorf("pick.max_results: must be >= 0")
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))
	if c.Color == "" {
		c.Color = "auto"
	}
	if c.Bench.Runs == 0 {
		c.Bench.Runs = defaultBenchRuns
	}
	if len(c.Bench.Command) == 0 {
		c.Bench.Command = []string{"true"}
	}
	if c.Bench.TimeoutMS == 0 {
		c.Bench.TimeoutMS = defaultBenchTimeoutMS
	}
	if c.Pick.MaxResults == 0 {
		c.Pick.MaxResults = defaultPickMaxResults
	}
}

// BenchTimeout returns bench.timeout_ms as a duration.
func (c *Config) BenchTimeout() time.Duration {
	return time.Duration(c.Bench.TimeoutMS) * time.Millisecond
}

// SSHConfigPath returns the ssh config file to inspect: the ssh_config
// setting if present, else the file the trampoline would pin for env.
func (c *Config) SSHConfigPath(env fastpath.Env) (string, error) {
	if p := expandPath(strings.TrimSpace(c.SSHConfig)); p != "" {
		return p, nil
	}
	p, ok := fastpath.DefaultConfigFile(env)
	if !ok {
		return "", errors.New("cannot locate ssh config: HOME is unset or too long")
	}
	return p, nil
}

// expandPath expands leading "~" and environment variables in a path.
// If the input is empty, returns "".
func expandPath(p string) string {
	if p == "" {
		return ""
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		home, _ := os.UserHomeDir()
		if home != "" {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
			// Note: "~user" not handled to avoid userdb lookups.
		}
	}
	return p
}
