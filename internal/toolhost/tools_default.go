package toolhost

import (
	"github.com/corpusdb/corpusdb/internal/sync"
)

func (s *Server) registerTools() {
	s.registerCoreTools()
	s.registerDefaultTools()
	s.registerMemoryTools()
}

func (s *Server) registerDefaultTools() {
	s.registerTool(Tool{
		Name:        "kota_sync_export",
		Description: "Dump every entity table to newline-delimited JSON for offline transfer",
		InputSchema: objectSchema(map[string]interface{}{
			"dir":      map[string]interface{}{"type": "string"},
			"force":    map[string]interface{}{"type": "boolean", "default": false},
			"compress": map[string]interface{}{"type": "boolean", "default": false, "description": "zstd-compress each table file"},
		}, "dir"),
	}, s.toolSyncExport)

	s.registerTool(Tool{
		Name:        "kota_sync_import",
		Description: "Load every entity table from a prior kota_sync_export dump",
		InputSchema: objectSchema(map[string]interface{}{
			"dir": map[string]interface{}{"type": "string"},
		}, "dir"),
	}, s.toolSyncImport)
}

func (s *Server) toolSyncExport(params map[string]interface{}) (interface{}, error) {
	dir, err := requiredStringParam(params, "dir")
	if err != nil {
		return nil, err
	}
	force := boolParam(params, "force", false)
	if boolParam(params, "compress", false) {
		return sync.ExportCompressed(s.db, dir, force)
	}
	return sync.Export(s.db, dir, force)
}

func (s *Server) toolSyncImport(params map[string]interface{}) (interface{}, error) {
	dir, err := requiredStringParam(params, "dir")
	if err != nil {
		return nil, err
	}
	return sync.Import(s.db, dir)
}
