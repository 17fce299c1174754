// Package modwalk resolves the exact source file set of one cargo target by
// walking the `mod` declaration graph from the target's entry file. The walk
// is structural: files are parsed with tree-sitter-rust, never text-matched.
package modwalk

// Config controls how conditional-compilation gates are evaluated and how
// declarations the walker cannot expand may be resolved out-of-band.
// The zero value disables every feature; use DefaultConfig for the default
// build configuration.
type Config struct {
	// DefaultFeatures mirrors cargo's default-features switch. When true,
	// a feature gate naming a feature we were not told about is treated as
	// possibly-on and the gated subtree is kept.
	DefaultFeatures bool

	// Features holds the enabled feature names for `feature = "..."` gates.
	Features []string

	// Flags holds bare cfg idents (e.g. custom --cfg flags) considered set.
	Flags []string

	// Resolver, when non-nil, is consulted for module declarations whose
	// backing file is not statically determinable (cfg_attr-driven path
	// overrides). Returning ok=false leaves the declaration unresolved and
	// the walk fails with UNSUPPORTED_CONSTRUCT.
	Resolver func(decl ModDecl) (path string, ok bool)
}

func DefaultConfig() Config {
	return Config{DefaultFeatures: true}
}

func (c Config) featureSet() map[string]bool {
	return toSet(c.Features)
}

func (c Config) flagSet() map[string]bool {
	return toSet(c.Flags)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// ModDecl describes one module declaration site, as handed to Resolver
// hooks and carried in error context.
type ModDecl struct {
	Name string
	File string
	Line int
}

// pathComponent is one element of the declaration chain leading to a
// file-backed module: the declared name plus any #[path] override.
type pathComponent struct {
	name        string
	override    string
	hasOverride bool
}

// module is a file-backed declaration to resolve: the chain of enclosing
// inline modules plus the declaration itself.
type module struct {
	parts []pathComponent
	decl  ModDecl
}
