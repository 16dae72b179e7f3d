package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

var initForce bool

// tomlConfig mirrors internal/config.Config's on-disk shape. viper reads it
// back at load time; init writes it directly so the generated file carries
// comments-free, stable field ordering rather than whatever viper would dump.
type tomlConfig struct {
	DBPath              string    `toml:"db_path"`
	FileSizeCapMiB      int       `toml:"file_size_cap_mib"`
	IgnoreDirs          []string  `toml:"ignore_dirs"`
	DefaultContextLines int       `toml:"default_context_lines"`
	DefaultTier         string    `toml:"default_tier"`
	TipTTLSeconds       int       `toml:"tip_ttl_seconds"`
	CreatedAt           time.Time `toml:"created_at"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default corpusdb.toml in the current directory",
	Long: `Creates corpusdb.toml with built-in defaults so the file can be
edited in place. Safe to run in an already-initialized directory: without
--force the existing file is left untouched; with --force it is overwritten.

Example usage:
  cdb init
  cdb init --force`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing corpusdb.toml")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	path := filepath.Join(cwd, "corpusdb.toml")

	if _, statErr := os.Stat(path); statErr == nil && !initForce {
		fmt.Println("corpusdb.toml already exists.")
		fmt.Println("Run 'cdb init --force' to overwrite it.")
		return nil
	}

	cfg := tomlConfig{
		DBPath:              ".corpusdb/index.db",
		FileSizeCapMiB:      1,
		IgnoreDirs:          []string{},
		DefaultContextLines: 3,
		DefaultTier:         "core",
		TipTTLSeconds:       300,
		CreatedAt:           time.Now(),
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create corpusdb.toml: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("write corpusdb.toml: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}
