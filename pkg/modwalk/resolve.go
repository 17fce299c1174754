package modwalk

import (
	"os"
	"path/filepath"
	"strings"

	"cratefiles/pkg/errors"
)

// resolve maps a file-backed module declaration to its backing file.
//
// Resolution layers, in priority order: an explicit #[path] override (taken
// relative to the declaring file's directory when it sits on a top-level
// declaration, appended to the accumulated base otherwise), then the sibling
// convention `<name>.rs`, then the directory convention `<name>/mod.rs`.
func (m module) resolve(rootPath, sourcePath string) (string, error) {
	sourceDir := filepath.Dir(sourcePath)
	base := baseResolutionPath(rootPath, sourcePath)

	head := m.parts[:len(m.parts)-1]
	final := m.parts[len(m.parts)-1]

	// Enclosing inline modules shift the base directory.
	for i, comp := range head {
		switch {
		case comp.hasOverride && i == 0:
			// A top-level module with a path attribute resolves relative
			// to the source file, regardless of mod.rs conventions.
			base = filepath.Join(sourceDir, filepath.FromSlash(comp.override))
		case comp.hasOverride:
			base = filepath.Join(base, filepath.FromSlash(comp.override))
		default:
			base = filepath.Join(base, comp.name)
		}
	}

	if final.hasOverride {
		candidate := filepath.Join(base, filepath.FromSlash(final.override))
		if len(head) == 0 {
			candidate = filepath.Join(sourceDir, filepath.FromSlash(final.override))
		}
		if fileExists(candidate) {
			return candidate, nil
		}
		return "", m.unresolved()
	}

	candidate := filepath.Join(base, final.name+".rs")
	if fileExists(candidate) {
		return candidate, nil
	}

	candidate = filepath.Join(base, final.name, "mod.rs")
	if fileExists(candidate) {
		return candidate, nil
	}

	return "", m.unresolved()
}

// baseResolutionPath picks the directory submodule lookups start from. For
// crate roots and mod.rs files that is the file's own directory; any other
// file owns the subdirectory named after its stem (2018 module layout).
func baseResolutionPath(rootPath, sourcePath string) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	dir := filepath.Dir(sourcePath)
	if sourcePath == rootPath || stem == "mod" {
		return dir
	}
	return filepath.Join(dir, stem)
}

func (m module) unresolved() error {
	names := make([]string, len(m.parts))
	for i, comp := range m.parts {
		names[i] = comp.name
	}
	return errors.New(errors.CodeUnresolvedModule, "could not find module").
		WithContext(errors.CtxModule, strings.Join(names, "::")).
		WithContext(errors.CtxPath, m.decl.File).
		WithContext(errors.CtxLine, m.decl.Line)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
