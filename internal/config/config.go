// Package config handles configuration loading and defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultTaskFile   = "tasks.csv"
	DefaultSchemaFile = "tasks.schema.json"
	DefaultLogDir     = "~/.tasklist"
	DefaultHistory    = true
)

// Config holds the full configuration for tasklist.
type Config struct {
	// TaskFile is the path of the persisted comma-delimited task file.
	TaskFile string `toml:"task_file"`

	// SchemaFile is the JSON Schema used to validate JSON imports.
	SchemaFile string `toml:"schema_file"`

	// LogDir is the base directory for mutation history logs.
	LogDir string `toml:"log_dir"`

	// History enables the mutation history log.
	History bool `toml:"history"`

	// WorkDir is the directory paths are resolved against (computed).
	WorkDir string `toml:"-"`
}

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.tasklist/tasklist.toml)
// 3. Project config file (tasklist.toml or .tasklist.toml in the working directory)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
	}

	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.TaskFile = DefaultTaskFile
	cfg.SchemaFile = DefaultSchemaFile
	cfg.LogDir = DefaultLogDir
	cfg.History = DefaultHistory
}

func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// findUserConfigFile returns the user-level config file path, or "" if
// none exists.
func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".tasklist", "tasklist.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// findProjectConfigFile returns the project-level config file path, or
// "" if none exists. tasklist.toml wins over .tasklist.toml.
func findProjectConfigFile() string {
	for _, name := range []string{"tasklist.toml", ".tasklist.toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// loadFromEnv overrides config from TASKLIST_* environment variables.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TASKLIST_FILE"); v != "" {
		cfg.TaskFile = v
	}
	if v := os.Getenv("TASKLIST_SCHEMA"); v != "" {
		cfg.SchemaFile = v
	}
	if v := os.Getenv("TASKLIST_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("TASKLIST_HISTORY"); v != "" {
		cfg.History = boolFromString(v)
	}
}

// parseFlags registers config flags on fs with the current values as
// defaults and parses args, so flags override everything below them.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	taskFile := fs.String("file", cfg.TaskFile, "Task file path")
	schemaFile := fs.String("schema", cfg.SchemaFile, "JSON Schema file for imports")
	logDir := fs.String("log-dir", cfg.LogDir, "History log base directory")
	history := fs.Bool("history", cfg.History, "Record mutation history")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.TaskFile = *taskFile
	cfg.SchemaFile = *schemaFile
	cfg.LogDir = *logDir
	cfg.History = *history
	return nil
}

// finalizeConfig computes derived values and expands the home prefix.
func finalizeConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	cfg.WorkDir = wd

	cfg.LogDir = expandHome(cfg.LogDir)
	return nil
}

// expandHome replaces a leading ~ with the user home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func boolFromString(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
