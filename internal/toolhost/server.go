package toolhost

import (
	"bufio"
	"io"
	"os"

	"github.com/corpusdb/corpusdb/internal/autoindex"
	"github.com/corpusdb/corpusdb/internal/indexpipeline"
	"github.com/corpusdb/corpusdb/internal/logging"
	"github.com/corpusdb/corpusdb/internal/query"
	"github.com/corpusdb/corpusdb/internal/storage"
	"github.com/corpusdb/corpusdb/internal/tier"
)

// ToolHandler answers one tool call; params is the decoded JSON object
// from tools/call, result is marshalled back verbatim (§4.8).
type ToolHandler func(params map[string]interface{}) (interface{}, error)

// Tool is one entry in the advertised tool surface (§6).
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Server hosts the JSON-RPC stdio tool surface (§4.8).
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *logging.Logger

	db       *storage.DB
	engine   *query.Engine
	pipeline *indexpipeline.Pipeline
	gate     *autoindex.Gate
	tier     tier.Tier

	tools map[string]ToolHandler
	defs  []Tool
}

// NewServer wires a Server from its dependencies and registers the tool
// set allowed at t.
func NewServer(db *storage.DB, logger *logging.Logger, t tier.Tier) *Server {
	pipeline := indexpipeline.New(db, logger)
	s := &Server{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		logger:   logger,
		db:       db,
		engine:   query.NewEngine(db),
		pipeline: pipeline,
		gate:     autoindex.NewGate(db, pipeline),
		tier:     t,
		tools:    make(map[string]ToolHandler),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTool(def Tool, handler ToolHandler) {
	if !s.tier.Allows(def.Name) {
		return
	}
	s.defs = append(s.defs, def)
	s.tools[def.Name] = handler
}
