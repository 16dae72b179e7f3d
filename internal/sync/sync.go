// Package sync implements the kota_sync_export/kota_sync_import tools
// (§6): entity-by-entity JSONL dumps and loads, one file per table, for
// offline transfer between two stores.
package sync

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
	"github.com/corpusdb/corpusdb/internal/storage"
)

// Manifest holds per-table row counts (§6). Export writes it alongside the
// per-table JSONL files; Import does not read it and returns its own
// counts of the rows it loaded.
type Manifest struct {
	Tables map[string]int `json:"tables"`
}

const manifestFile = "manifest.json"

// zstdSuffix marks a compressed export. Import auto-detects it per table,
// so a compressed export and a plain one can be told apart without
// consulting the manifest.
const zstdSuffix = ".zst"

var tableBaseNames = []string{
	"repositories", "indexed_files", "indexed_symbols",
	"indexed_references", "decisions", "failures", "insights",
}

// Export writes every entity table to dir as newline-delimited JSON, one
// file per table, optionally zstd-compressed. If dir already contains an
// export and force is false, Export refuses to overwrite it.
func Export(db *storage.DB, dir string, force bool) (Manifest, error) {
	return export(db, dir, force, false)
}

// ExportCompressed is Export with every table file zstd-compressed, for
// transfers where on-disk or network size matters more than being able
// to `cat` the dump directly.
func ExportCompressed(db *storage.DB, dir string, force bool) (Manifest, error) {
	return export(db, dir, force, true)
}

func export(db *storage.DB, dir string, force, compress bool) (Manifest, error) {
	if !force {
		if _, err := os.Stat(filepath.Join(dir, manifestFile)); err == nil {
			return Manifest{}, cdberrors.NewConflictError("export_dir", "export already exists at "+dir+"; pass force to overwrite")
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, cdberrors.WrapInternal("create export dir", err)
	}

	manifest := Manifest{Tables: map[string]int{}}

	repos, err := storage.ListAllRepositories(db)
	if err != nil {
		return Manifest{}, err
	}
	if err := writeJSONL(dir, "repositories", compress, len(repos), func(i int) interface{} { return repos[i] }); err != nil {
		return Manifest{}, err
	}
	manifest.Tables["repositories"] = len(repos)

	files, err := storage.ListAllFilesForExport(db)
	if err != nil {
		return Manifest{}, err
	}
	if err := writeJSONL(dir, "indexed_files", compress, len(files), func(i int) interface{} { return files[i] }); err != nil {
		return Manifest{}, err
	}
	manifest.Tables["indexed_files"] = len(files)

	symbols, err := storage.ListAllSymbolsForExport(db)
	if err != nil {
		return Manifest{}, err
	}
	if err := writeJSONL(dir, "indexed_symbols", compress, len(symbols), func(i int) interface{} { return symbols[i] }); err != nil {
		return Manifest{}, err
	}
	manifest.Tables["indexed_symbols"] = len(symbols)

	refs, err := storage.ListAllReferencesForExport(db)
	if err != nil {
		return Manifest{}, err
	}
	if err := writeJSONL(dir, "indexed_references", compress, len(refs), func(i int) interface{} { return refs[i] }); err != nil {
		return Manifest{}, err
	}
	manifest.Tables["indexed_references"] = len(refs)

	decisions, err := storage.ListAllDecisions(db)
	if err != nil {
		return Manifest{}, err
	}
	if err := writeJSONL(dir, "decisions", compress, len(decisions), func(i int) interface{} { return decisions[i] }); err != nil {
		return Manifest{}, err
	}
	manifest.Tables["decisions"] = len(decisions)

	failures, err := storage.ListAllFailures(db)
	if err != nil {
		return Manifest{}, err
	}
	if err := writeJSONL(dir, "failures", compress, len(failures), func(i int) interface{} { return failures[i] }); err != nil {
		return Manifest{}, err
	}
	manifest.Tables["failures"] = len(failures)

	insights, err := storage.ListAllInsights(db)
	if err != nil {
		return Manifest{}, err
	}
	if err := writeJSONL(dir, "insights", compress, len(insights), func(i int) interface{} { return insights[i] }); err != nil {
		return Manifest{}, err
	}
	manifest.Tables["insights"] = len(insights)

	if err := writeManifest(dir, manifest); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

func writeJSONL(dir, base string, compress bool, n int, at func(int) interface{}) error {
	name := base + ".jsonl"
	if compress {
		name += zstdSuffix
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return cdberrors.WrapInternal("create "+name, err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return cdberrors.WrapInternal("create zstd writer for "+name, err)
		}
		defer zw.Close()
		w = zw
	}

	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if err := enc.Encode(at(i)); err != nil {
			return cdberrors.WrapInternal("encode "+name, err)
		}
	}
	return nil
}

// resolveTableFile finds whichever of base.jsonl or base.jsonl.zst exists
// in dir, so Import works against either a plain or compressed export
// without needing to be told which.
func resolveTableFile(dir, base string) (string, error) {
	plain := base + ".jsonl"
	if _, err := os.Stat(filepath.Join(dir, plain)); err == nil {
		return plain, nil
	}
	compressed := plain + zstdSuffix
	if _, err := os.Stat(filepath.Join(dir, compressed)); err == nil {
		return compressed, nil
	}
	return "", cdberrors.NewNotFoundError("import_file", filepath.Join(dir, plain))
}

func writeManifest(dir string, m Manifest) error {
	f, err := os.Create(filepath.Join(dir, manifestFile))
	if err != nil {
		return cdberrors.WrapInternal("write manifest", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(m)
}

// Import loads every table from dir back into db inside one transaction;
// a malformed record in any file aborts the whole import at the first
// bad line, leaving db untouched (§6).
func Import(db *storage.DB, dir string) (Manifest, error) {
	for _, base := range tableBaseNames {
		if _, err := resolveTableFile(dir, base); err != nil {
			return Manifest{}, err
		}
	}

	manifest := Manifest{Tables: map[string]int{}}
	err := db.WithTx(func(tx *sql.Tx) error {
		n, err := importRepositories(tx, dir)
		if err != nil {
			return err
		}
		manifest.Tables["repositories"] = n

		n, err = importFiles(tx, dir)
		if err != nil {
			return err
		}
		manifest.Tables["indexed_files"] = n

		n, err = importSymbols(tx, dir)
		if err != nil {
			return err
		}
		manifest.Tables["indexed_symbols"] = n

		n, err = importReferences(tx, dir)
		if err != nil {
			return err
		}
		manifest.Tables["indexed_references"] = n

		n, err = importDecisions(tx, dir)
		if err != nil {
			return err
		}
		manifest.Tables["decisions"] = n

		n, err = importFailures(tx, dir)
		if err != nil {
			return err
		}
		manifest.Tables["failures"] = n

		n, err = importInsights(tx, dir)
		if err != nil {
			return err
		}
		manifest.Tables["insights"] = n

		return nil
	})
	if err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

func eachLine(dir, base string, decode func(line []byte) error) (int, error) {
	name, err := resolveTableFile(dir, base)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return 0, cdberrors.WrapInternal("open "+name, err)
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(name) == zstdSuffix {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return 0, cdberrors.WrapInternal("open zstd reader for "+name, err)
		}
		defer zr.Close()
		r = zr
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := decode(line); err != nil {
			return n, cdberrors.NewParseError(name, fmt.Sprintf("malformed record at line %d", n+1), err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, cdberrors.WrapInternal("read "+name, err)
	}
	return n, nil
}

func importRepositories(tx *sql.Tx, dir string) (int, error) {
	return eachLine(dir, "repositories", func(line []byte) error {
		r := &storage.Repository{}
		if err := json.Unmarshal(line, r); err != nil {
			return err
		}
		return storage.InsertRepositoryRaw(tx, r)
	})
}

func importFiles(tx *sql.Tx, dir string) (int, error) {
	return eachLine(dir, "indexed_files", func(line []byte) error {
		f := &storage.IndexedFile{}
		if err := json.Unmarshal(line, f); err != nil {
			return err
		}
		return storage.InsertFile(tx, f)
	})
}

func importSymbols(tx *sql.Tx, dir string) (int, error) {
	return eachLine(dir, "indexed_symbols", func(line []byte) error {
		s := &storage.IndexedSymbol{}
		if err := json.Unmarshal(line, s); err != nil {
			return err
		}
		return storage.InsertSymbol(tx, s)
	})
}

func importReferences(tx *sql.Tx, dir string) (int, error) {
	return eachLine(dir, "indexed_references", func(line []byte) error {
		r := &storage.IndexedReference{}
		if err := json.Unmarshal(line, r); err != nil {
			return err
		}
		return storage.InsertReference(tx, r)
	})
}

func importDecisions(tx *sql.Tx, dir string) (int, error) {
	return eachLine(dir, "decisions", func(line []byte) error {
		d := &storage.Decision{}
		if err := json.Unmarshal(line, d); err != nil {
			return err
		}
		return storage.InsertDecisionRaw(tx, d)
	})
}

func importFailures(tx *sql.Tx, dir string) (int, error) {
	return eachLine(dir, "failures", func(line []byte) error {
		f := &storage.Failure{}
		if err := json.Unmarshal(line, f); err != nil {
			return err
		}
		return storage.InsertFailureRaw(tx, f)
	})
}

func importInsights(tx *sql.Tx, dir string) (int, error) {
	return eachLine(dir, "insights", func(line []byte) error {
		ins := &storage.Insight{}
		if err := json.Unmarshal(line, ins); err != nil {
			return err
		}
		return storage.InsertInsightRaw(tx, ins)
	})
}
