package modwalk

import (
	"os"
	"path/filepath"

	"cratefiles/pkg/catalog"
	"cratefiles/pkg/errors"
)

// Walker resolves target file sets. A Walker is stateless across calls and
// safe for concurrent use; each TargetFiles invocation keeps its own visited
// set and touches the filesystem read-only.
type Walker struct {
	cfg Config
}

func New(cfg Config) *Walker {
	return &Walker{cfg: cfg}
}

// TargetFiles returns every source file compiled into the target, starting
// with the entry file, in first-discovery depth-first order with no
// duplicates. Any unresolvable or unparsable declaration aborts the whole
// walk; a partial list is never returned.
func (w *Walker) TargetFiles(target catalog.Target) ([]string, error) {
	entry, err := filepath.Abs(target.EntryPath)
	if err != nil {
		entry = target.EntryPath
	}
	entry = filepath.Clean(entry)

	info, statErr := os.Stat(entry)
	if statErr != nil {
		return nil, errors.Wrap(statErr, errors.CodeNotFound, "target entry file does not exist").
			WithContext(errors.CtxPath, entry).
			WithContext(errors.CtxTarget, target.String())
	}
	if info.IsDir() {
		return nil, errors.New(errors.CodeNotFound, "target entry path is a directory").
			WithContext(errors.CtxPath, entry).
			WithContext(errors.CtxTarget, target.String())
	}

	visited := map[string]bool{entry: true}
	files := []string{entry}
	if err := w.walkFile(entry, entry, visited, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (w *Walker) walkFile(rootPath, path string, visited map[string]bool, acc *[]string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeNotFound, "read source file").
			WithContext(errors.CtxPath, path)
	}

	modules, err := extractModules(path, source, w.cfg)
	if err != nil {
		return err
	}

	for _, m := range modules {
		resolved, err := m.resolve(rootPath, path)
		if err != nil {
			return err
		}
		if abs, absErr := filepath.Abs(resolved); absErr == nil {
			resolved = abs
		}
		resolved = filepath.Clean(resolved)

		// Re-declared modules resolve to an already visited file; skip them
		// instead of walking the same subtree again.
		if visited[resolved] {
			continue
		}
		visited[resolved] = true
		*acc = append(*acc, resolved)

		if err := w.walkFile(rootPath, resolved, visited, acc); err != nil {
			return err
		}
	}
	return nil
}
