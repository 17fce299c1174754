// Package catalog builds the list of compilation targets a cargo workspace
// defines, one Target per (package, kind, name) triple.
package catalog

import (
	"path/filepath"
)

type Kind int

const (
	KindLibrary Kind = iota
	KindBinary
	KindTest
	KindExample
	KindBenchmark
	KindBuildScript
)

var kindNames = map[Kind]string{
	KindLibrary:     "lib",
	KindBinary:      "bin",
	KindTest:        "test",
	KindExample:     "example",
	KindBenchmark:   "bench",
	KindBuildScript: "build-script",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// kindFromCargo maps cargo's kind strings onto our Kind. Every library
// flavor (rlib, dylib, proc-macro, ...) compiles from one entry file the
// same way, so they all collapse into KindLibrary.
func kindFromCargo(kinds []string) (Kind, bool) {
	if len(kinds) == 0 {
		return 0, false
	}
	switch kinds[0] {
	case "lib", "rlib", "dylib", "cdylib", "staticlib", "proc-macro":
		return KindLibrary, true
	case "bin":
		return KindBinary, true
	case "test":
		return KindTest, true
	case "example":
		return KindExample, true
	case "bench":
		return KindBenchmark, true
	case "custom-build":
		return KindBuildScript, true
	}
	return 0, false
}

// Target identifies one compilation unit. EntryPath is the unique walk root
// for the module graph walker; it is always a file, never a directory.
// Targets are constructed once per GetTargets call and never mutated.
type Target struct {
	Package   string
	Name      string
	Kind      Kind
	EntryPath string
	Edition   string
}

func (t Target) String() string {
	return t.Package + "/" + t.Name + " (" + t.Kind.String() + ")"
}

func absClean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}
