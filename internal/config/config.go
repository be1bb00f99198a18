// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the halo command configuration from flags,
// HALO_ environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration of the halo command.
type Config struct {
	// Ranks is the number of in-process ranks.
	Ranks int `mapstructure:"ranks"`
	// Entries is the length of the decomposed index range.
	Entries int `mapstructure:"entries"`
	// BufferSize is the message buffer capacity in elements.
	BufferSize int `mapstructure:"buffer_size"`
	// Variable selects the variable-size discipline.
	Variable bool `mapstructure:"variable"`
	// EmptyRank leaves the last rank out of the decomposition.
	EmptyRank bool `mapstructure:"empty_rank"`
	// Rounds is the number of forward/backward pairs.
	Rounds int `mapstructure:"rounds"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Ranks:      4,
		Entries:    100000,
		BufferSize: 6,
		EmptyRank:  true,
		Rounds:     1,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration. Flags that were set override the
// environment, which overrides the file at path, which overrides the
// defaults. Environment variables use the prefix HALO and `.`/`-` are
// replaced with `_`, e.g. HALO_LOG_LEVEL=debug.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HALO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("ranks", cfg.Ranks)
	v.SetDefault("entries", cfg.Entries)
	v.SetDefault("buffer_size", cfg.BufferSize)
	v.SetDefault("variable", cfg.Variable)
	v.SetDefault("empty_rank", cfg.EmptyRank)
	v.SetDefault("rounds", cfg.Rounds)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.development", cfg.Log.Development)

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path == "" {
		path = os.Getenv("HALO_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagKeys maps configuration keys to command-line flag names.
var flagKeys = map[string]string{
	"ranks":       "ranks",
	"entries":     "entries",
	"buffer_size": "buffer-size",
	"variable":    "variable",
	"empty_rank":  "empty-rank",
	"rounds":      "rounds",
	"log.level":   "log-level",
	"log.format":  "log-format",
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	if c.Ranks < 1 {
		return fmt.Errorf("ranks must be at least 1, got %d", c.Ranks)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d", c.Rounds)
	}
	if c.Entries < 2*c.Ranks {
		return fmt.Errorf("entries %d too small for %d ranks", c.Entries, c.Ranks)
	}
	return nil
}
