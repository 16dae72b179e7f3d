package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpusdb/corpusdb/internal/config"
	"github.com/corpusdb/corpusdb/internal/logging"
	"github.com/corpusdb/corpusdb/internal/storage"
	"github.com/corpusdb/corpusdb/internal/tier"
	"github.com/corpusdb/corpusdb/internal/toolhost"
)

var serveTierName string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON-RPC stdio tool server",
	Long: `Start the tool dispatcher that exposes search, dependency traversal,
usage resolution, and (at higher tiers) sync and memory tools over a
JSON-RPC 2.0 stdio protocol.

Example usage:
  cdb serve --tier memory

This command is typically invoked by MCP clients, not directly by users.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveTierName, "tier", "", "Tool tier: core, default, memory (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tierName := serveTierName
	if tierName == "" {
		tierName = cfg.DefaultTier
	}

	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.InfoLevel})
	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	server := toolhost.NewServer(db, logger, tier.Parse(tierName))
	return server.Serve()
}
