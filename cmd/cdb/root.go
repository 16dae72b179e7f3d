package main

import (
	"github.com/spf13/cobra"
)

const cliVersion = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "cdb",
	Short:   "corpusdb - local-first code intelligence engine",
	Version: cliVersion,
	Long: `corpusdb indexes a repository's source tree into a local SQLite
store and serves unified search, dependency traversal, usage resolution,
and project-memory (decisions/failures/insights) over a JSON-RPC stdio
tool protocol.`,
}

func init() {
	rootCmd.SetVersionTemplate("corpusdb version {{.Version}}\n")
}
