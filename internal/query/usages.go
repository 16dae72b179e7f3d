package query

import (
	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
	"github.com/corpusdb/corpusdb/internal/storage"
)

// Usage is one reference to a symbol (§4.7.3).
type Usage struct {
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	UsageType  string `json:"usage_type"`
	TargetFile string `json:"target_file,omitempty"`
}

// UsagesResult is the find_usages response (§4.7.3).
type UsagesResult struct {
	Symbol          string   `json:"symbol"`
	Kind            string   `json:"kind,omitempty"`
	DefinedIn       []string `json:"defined_in"`
	Usages          []Usage  `json:"usages"`
	TotalUsages     int      `json:"total_usages"`
	FilesWithUsages int      `json:"files_with_usages"`
}

// UsagesRequest is the validated input to FindUsages.
type UsagesRequest struct {
	RepositoryID       string
	Symbol             string
	File               string
	IncludeTests       bool
	IncludeDefinitions bool
}

// FindUsages implements §4.7.3: definitions come from indexed_symbols by
// name, usages come from indexed_references by symbol_name, with
// definition spans excluded unless IncludeDefinitions is set.
func (e *Engine) FindUsages(req UsagesRequest) (UsagesResult, error) {
	if req.Symbol == "" {
		return UsagesResult{}, cdberrors.NewValidationError("symbol", "symbol must not be empty")
	}

	symbols, err := storage.ListSymbolsByName(e.db, req.RepositoryID, req.Symbol)
	if err != nil {
		return UsagesResult{}, err
	}

	result := UsagesResult{Symbol: req.Symbol}
	var spans []definitionSpan
	for _, s := range symbols {
		f, err := storage.GetFileByID(e.db, s.FileID)
		if err != nil {
			return UsagesResult{}, err
		}
		if f == nil {
			continue
		}
		if req.File != "" && f.Path != req.File {
			continue
		}
		result.DefinedIn = append(result.DefinedIn, f.Path)
		spans = append(spans, definitionSpan{file: f.Path, start: s.LineStart, end: s.LineEnd})
		if result.Kind == "" {
			result.Kind = s.Kind
		}
	}

	refs, err := storage.ReferencesBySymbolName(e.db, req.RepositoryID, req.Symbol)
	if err != nil {
		return UsagesResult{}, err
	}

	filesWithUsages := map[string]bool{}
	for _, r := range refs {
		f, err := storage.GetFileByID(e.db, r.FileID)
		if err != nil {
			return UsagesResult{}, err
		}
		if f == nil {
			continue
		}
		if !req.IncludeTests && IsTestPath(f.Path) {
			continue
		}
		if !req.IncludeDefinitions && withinAnySpan(spans, f.Path, r.LineNumber) {
			continue
		}

		u := Usage{File: f.Path, Line: r.LineNumber, Column: r.ColumnNumber, UsageType: r.ReferenceType}
		switch {
		case r.TargetFilePath.Valid:
			u.TargetFile = r.TargetFilePath.String
		case r.TargetSymbolID.Valid:
			if targetFile, err := e.targetFileForSymbol(r.TargetSymbolID.String); err == nil {
				u.TargetFile = targetFile
			}
		}
		result.Usages = append(result.Usages, u)
		filesWithUsages[f.Path] = true
	}

	result.TotalUsages = len(result.Usages)
	result.FilesWithUsages = len(filesWithUsages)
	return result, nil
}

// targetFileForSymbol resolves a call/type-reference usage's resolved
// target_symbol_id back to the file that declares it, since those
// reference classes carry only target_symbol_id, never target_file_path
// (§4.5, §4.7.3).
func (e *Engine) targetFileForSymbol(symbolID string) (string, error) {
	s, err := storage.GetSymbolByID(e.db, symbolID)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	f, err := storage.GetFileByID(e.db, s.FileID)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", nil
	}
	return f.Path, nil
}

type definitionSpan struct {
	file  string
	start int
	end   int
}

func withinAnySpan(spans []definitionSpan, file string, line int) bool {
	for _, s := range spans {
		if s.file == file && line >= s.start && line <= s.end {
			return true
		}
	}
	return false
}
