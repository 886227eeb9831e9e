// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads hostwarden settings from defaults, hostwarden.yaml,
// HOSTWARDEN_* environment variables and command-line flags, in increasing
// order of precedence.
package config // import "github.com/hostwarden/hostwarden/internal/config"

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// KeyAnnotation on a flag names the config key the flag overrides.
const KeyAnnotation = "hostwarden_config_key"

// Config is the full settings document.
type Config struct {
	StateDir string        `mapstructure:"state_dir" yaml:"state_dir" json:"state_dir"`
	Language string        `mapstructure:"language" yaml:"language" json:"language"`
	Output   string        `mapstructure:"output" yaml:"output" json:"output"`
	Owner    OwnerConfig   `mapstructure:"owner" yaml:"owner" json:"owner"`
	Audit    AuditConfig   `mapstructure:"audit" yaml:"audit" json:"audit"`
	Actions  ActionsConfig `mapstructure:"actions" yaml:"actions" json:"actions"`
}

type OwnerConfig struct {
	// TokenTTL is a Go duration ("5m") or a number of seconds.
	TokenTTL string `mapstructure:"token_ttl" yaml:"token_ttl" json:"token_ttl"`
}

type AuditConfig struct {
	// Backend is file, sqlite, postgres or mysql.
	Backend string `mapstructure:"backend" yaml:"backend" json:"backend"`
	DSN     string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
}

type ActionsConfig struct {
	StartupFolders     []string `mapstructure:"startup_folders" yaml:"startup_folders" json:"startup_folders"`
	TaskDisableCommand string   `mapstructure:"task_disable_command" yaml:"task_disable_command" json:"task_disable_command"`
	ServiceStopCommand string   `mapstructure:"service_stop_command" yaml:"service_stop_command" json:"service_stop_command"`
}

// Defaults returns the built-in values for every key.
func Defaults() map[string]any {
	return map[string]any{
		"state_dir":                    ".hostwarden",
		"language":                     "en",
		"output":                       "json",
		"owner.token_ttl":              "5m",
		"audit.backend":                "file",
		"audit.dsn":                    "",
		"actions.startup_folders":      []string{},
		"actions.task_disable_command": "",
		"actions.service_stop_command": "",
	}
}

// TTL parses Owner.TokenTTL.
func (c Config) TTL() (time.Duration, error) {
	return ParseTTL(c.Owner.TokenTTL)
}

// maxTTLSeconds is the largest whole-second count a time.Duration can hold.
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// ParseTTL accepts a Go duration or a plain number of seconds.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > maxTTLSeconds || n < -maxTTLSeconds {
			return 0, fmt.Errorf("invalid token ttl %q: out of range", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid token ttl %q: %w", s, err)
	}
	return d, nil
}

// SnapshotsDir, StateFilesDir and AuditDir are the runtime subdirectories.
func (c Config) SnapshotsDir() string  { return filepath.Join(c.StateDir, "snapshots") }
func (c Config) StateFilesDir() string { return filepath.Join(c.StateDir, "state") }
func (c Config) AuditDir() string      { return filepath.Join(c.StateDir, "audit") }

// GetConfigPath returns the user or system-wide hostwarden.yaml location.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Hostwarden")
		default:
			configDir = "/etc/hostwarden"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "hostwarden")
	}
	return filepath.Join(configDir, "hostwarden.yaml"), nil
}

// BindKey marks flag as the command-line override for key.
func BindKey(flags *pflag.FlagSet, flag, key string) {
	_ = flags.SetAnnotation(flag, KeyAnnotation, []string{key})
}

// LoadConfig resolves T from defaults, the config file, the environment and
// the flags of cmd. A missing config file is not an error.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("hostwarden")
	v.SetConfigType("yaml")
	if explicitPath != nil && *explicitPath != "" {
		v.SetConfigFile(*explicitPath)
	}
	if p, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(p))
	}
	if p, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(p))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("could not read config: %w", err)
		}
	}

	v.SetEnvPrefix("hostwarden")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			keys, ok := f.Annotations[KeyAnnotation]
			if !ok || len(keys) == 0 || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(keys[0], f)
		})
		if bindErr != nil {
			return c, bindErr
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("could not decode config: %w", err)
	}
	return c, nil
}

// WriteConfigFile writes c as YAML to the user or system config path and
// returns that path.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	// The audit DSN may carry credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
