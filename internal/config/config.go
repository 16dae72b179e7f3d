// Package config loads corpusdb's in-process configuration. Per the spec,
// exactly one environment variable is externally meaningful (the database
// path); everything else is an optional on-disk override with built-in
// defaults, loaded once at startup via viper.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvDBPath = "CORPUSDB_DB_PATH"

	defaultDBPath         = ".corpusdb/index.db"
	defaultFileSizeCapMiB = 1
	defaultContextLines   = 3
	defaultTier           = "core"
	defaultTipTTLSeconds  = 300
)

// Config is loaded once at CLI/server startup and threaded through every
// component via constructor injection; there is no package-level global.
type Config struct {
	// DBPath is the sole environment-driven setting (CORPUSDB_DB_PATH).
	DBPath string

	// FileSizeCapBytes is file_size_cap_mib in bytes (§4.6 step 1). No
	// indexing entry point passes it to the pipeline, which applies its
	// own 1 MiB cap.
	FileSizeCapBytes int64

	// IgnoreDirs lists project-specific directories to ignore. No indexing
	// entry point passes it to the pipeline, which uses only its closed
	// ignore set and skips dot-directories.
	IgnoreDirs []string

	// DefaultContextLines is the snippet output default (§4.7.1), 1-10.
	DefaultContextLines int

	// DefaultTier gates the tool surface when a caller doesn't specify one (§6).
	DefaultTier string

	// TipTTLSeconds is loaded from tip_ttl_seconds (§4.7.4). No component
	// reads it; tip suppression works from the RecentTips list a search
	// caller passes in.
	TipTTLSeconds int
}

// Load reads CORPUSDB_DB_PATH plus an optional TOML config file (corpusdb.toml,
// searched in the working directory) via viper, falling back to built-in
// defaults for everything not set.
func Load(workDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("corpusdb")
	v.SetConfigType("toml")
	v.AddConfigPath(workDir)

	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("file_size_cap_mib", defaultFileSizeCapMiB)
	v.SetDefault("ignore_dirs", []string{})
	v.SetDefault("default_context_lines", defaultContextLines)
	v.SetDefault("default_tier", defaultTier)
	v.SetDefault("tip_ttl_seconds", defaultTipTTLSeconds)

	if err := v.BindEnv("db_path", EnvDBPath); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	dbPath := v.GetString("db_path")
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workDir, dbPath)
	}

	ignoreDirs := normalizeDirs(v.GetStringSlice("ignore_dirs"))
	yamlIgnore, err := loadYAMLIgnoreOverride(workDir)
	if err != nil {
		return nil, err
	}
	ignoreDirs = append(ignoreDirs, yamlIgnore...)

	return &Config{
		DBPath:              dbPath,
		FileSizeCapBytes:    v.GetInt64("file_size_cap_mib") * 1024 * 1024,
		IgnoreDirs:          normalizeDirs(ignoreDirs),
		DefaultContextLines: clamp(v.GetInt("default_context_lines"), 1, 10),
		DefaultTier:         v.GetString("default_tier"),
		TipTTLSeconds:       v.GetInt("tip_ttl_seconds"),
	}, nil
}

// yamlOverride is the shape of the optional .corpusdb.yml file: a
// lightweight, project-committed companion to corpusdb.toml for the one
// setting most worth overriding per-project without touching the main
// config (§4.6 step 1's ignore set).
type yamlOverride struct {
	IgnoreDirs []string `yaml:"ignore_dirs"`
}

// loadYAMLIgnoreOverride reads .corpusdb.yml from workDir if present. Its
// ignore_dirs list is additive to corpusdb.toml's, not a replacement, so
// a team can commit one to source control alongside a personal
// corpusdb.toml that isn't.
func loadYAMLIgnoreOverride(workDir string) ([]string, error) {
	path := filepath.Join(workDir, ".corpusdb.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var override yamlOverride
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, err
	}
	return override.IgnoreDirs, nil
}

func normalizeDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.Trim(d, "/")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
