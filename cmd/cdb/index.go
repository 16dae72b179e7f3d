package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpusdb/corpusdb/internal/autoindex"
	"github.com/corpusdb/corpusdb/internal/config"
	"github.com/corpusdb/corpusdb/internal/indexpipeline"
	"github.com/corpusdb/corpusdb/internal/logging"
	"github.com/corpusdb/corpusdb/internal/storage"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository's source tree",
	Long: `Discovers, parses, resolves, and persists every source file under
path (default: current directory) into the local store.

Example usage:
  cdb index .
  cdb index ~/src/myproject`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.InfoLevel})
	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	gate := autoindex.NewGate(db, indexpipeline.New(db, logger))
	result, err := gate.EnsureIndexed(context.Background(), "", path)
	if err != nil {
		return err
	}
	if result.WasIndexed {
		fmt.Println(result.Message)
		return nil
	}
	fmt.Printf("indexed %d files, %d symbols, %d references (%d resolved) in %dms\n",
		result.Stats.FilesIndexed, result.Stats.SymbolsExtracted,
		result.Stats.ReferencesFound, result.Stats.ReferencesResolved, result.Stats.DurationMS)
	return nil
}
