package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpusdb/corpusdb/internal/config"
	"github.com/corpusdb/corpusdb/internal/logging"
	"github.com/corpusdb/corpusdb/internal/query"
	"github.com/corpusdb/corpusdb/internal/storage"
)

var (
	searchScope  []string
	searchOutput string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search code, symbols, decisions, patterns, and failures",
	Long: `Runs a unified search across the requested scopes and prints the
result as JSON.

Example usage:
  cdb search "parseConfig"
  cdb search "retry loop" --scope code,symbols --output snippet`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringSliceVar(&searchScope, "scope", nil, "Scopes to search: code, symbols, decisions, patterns, failures")
	searchCmd.Flags().StringVar(&searchOutput, "output", "full", "Output projection: full, paths, compact, snippet")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results per scope")
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	var scopes []query.Scope
	for _, s := range searchScope {
		scopes = append(scopes, query.Scope(s))
	}

	engine := query.NewEngine(db)
	result, err := engine.Search(query.Request{
		Query:        args[0],
		Scopes:       scopes,
		Limit:        searchLimit,
		Output:       query.Output(searchOutput),
		ContextLines: cfg.DefaultContextLines,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
