package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpusdb/corpusdb/internal/config"
	"github.com/corpusdb/corpusdb/internal/logging"
	"github.com/corpusdb/corpusdb/internal/storage"
)

var statsTables = []string{
	"repositories", "indexed_files", "indexed_symbols", "indexed_references",
	"decisions", "failures", "insights",
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts for every indexed entity",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	for _, table := range statsTables {
		n, err := storage.CountRows(db, table)
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %d\n", table, n)
	}
	return nil
}
