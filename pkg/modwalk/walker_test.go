package modwalk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratefiles/pkg/catalog"
	"cratefiles/pkg/errors"
)

// writeCrate materializes a crate layout in a temp dir. Keys are
// slash-separated relative paths, values are file contents.
func writeCrate(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func libTarget(dir string) catalog.Target {
	return catalog.Target{
		Package:   "demo",
		Name:      "demo",
		Kind:      catalog.KindLibrary,
		EntryPath: filepath.Join(dir, "src", "lib.rs"),
	}
}

// relative flattens walk output back to slash paths for assertions.
func relative(t *testing.T, dir string, files []string) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, file := range files {
		rel, err := filepath.Rel(dir, file)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestSiblingModule(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "mod foo;\n",
		"src/foo.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/foo.rs"}, relative(t, dir, files))
}

func TestDirectoryConvention(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs":     "mod foo;\n",
		"src/foo/mod.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/foo/mod.rs"}, relative(t, dir, files))
}

func TestSiblingBeatsDirectory(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs":     "mod foo;\n",
		"src/foo.rs":     "",
		"src/foo/mod.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/foo.rs"}, relative(t, dir, files))
}

func TestPathOverrideWins(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs":   "#[path = \"other.rs\"]\nmod foo;\n",
		"src/foo.rs":   "",
		"src/other.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/other.rs"}, relative(t, dir, files))
}

func TestInlineModulesContributeNoFile(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs":     "mod foo {\n    mod bar;\n}\n",
		"src/foo/bar.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/foo/bar.rs"}, relative(t, dir, files))
}

func TestPathOverrideOnInlineParent(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs":     "#[path = \"abc\"]\nmod thread {\n    #[path = \"tls.rs\"]\n    mod data;\n}\n",
		"src/abc/tls.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/abc/tls.rs"}, relative(t, dir, files))
}

func TestNestedNonModRsLayout(t *testing.T) {
	// 2018 layout: a.rs owns the a/ subdirectory.
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "mod a;\n",
		"src/a.rs":   "mod b;\n",
		"src/a/b.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/a.rs", "src/a/b.rs"}, relative(t, dir, files))
}

func TestModRsChain(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs":                  "mod test;\nmod whatever;\n",
		"src/whatever.rs":             "",
		"src/test/mod.rs":             "mod cat;\n",
		"src/test/cat.rs":             "",
		"src/test/not_in_the_crate.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"src/lib.rs", "src/test/mod.rs", "src/test/cat.rs", "src/whatever.rs"},
		relative(t, dir, files))
}

func TestDuplicateDeclarationVisitedOnce(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "mod foo;\nmod foo;\n",
		"src/foo.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/foo.rs"}, relative(t, dir, files))
}

func TestIdempotence(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs":  "mod a;\nmod b;\n",
		"src/a.rs":    "mod deep;\n",
		"src/a/deep.rs": "",
		"src/b.rs":    "",
	})

	w := New(DefaultConfig())
	first, err := w.TargetFiles(libTarget(dir))
	require.NoError(t, err)
	second, err := w.TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUnresolvedModuleFailsLoudly(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "mod foo;\n",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.Error(t, err)
	assert.Nil(t, files)
	assert.True(t, errors.IsCode(err, errors.CodeUnresolvedModule))

	var de *errors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "foo", de.Context[errors.CtxModule])
}

func TestMissingEntryFile(t *testing.T) {
	dir := t.TempDir()
	_, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSyntaxErrorAborts(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "mod foo {\n",
	})

	_, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParseError))
}

func TestCfgExcludedSubtree(t *testing.T) {
	// gone.rs does not exist; the gate must exclude the declaration before
	// resolution runs.
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "#[cfg(any())]\nmod gone;\nmod real;\n",
		"src/real.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/real.rs"}, relative(t, dir, files))
}

func TestFeatureGate(t *testing.T) {
	layout := map[string]string{
		"src/lib.rs":   "#[cfg(feature = \"extra\")]\nmod extra;\n",
		"src/extra.rs": "",
	}

	t.Run("default configuration keeps unknown features", func(t *testing.T) {
		dir := writeCrate(t, layout)
		files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})

	t.Run("no default features drops unlisted features", func(t *testing.T) {
		dir := writeCrate(t, layout)
		files, err := New(Config{}).TargetFiles(libTarget(dir))
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("enabled feature is kept", func(t *testing.T) {
		dir := writeCrate(t, layout)
		files, err := New(Config{Features: []string{"extra"}}).TargetFiles(libTarget(dir))
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})
}

func TestUnknownPlatformGateKept(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "#[cfg(target_os = \"windows\")]\nmod win;\n",
		"src/win.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestTestGateExcluded(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs":        "#[cfg(test)]\nmod test_utils;\n",
		"src/test_utils.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Len(t, files, 1)

	// An explicit flag re-includes it.
	files, err = New(Config{DefaultFeatures: true, Flags: []string{"test"}}).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestCfgAttrPathIsUnsupported(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "#[cfg_attr(feature = \"alt\", path = \"alt.rs\")]\nmod m;\n",
		"src/m.rs":   "",
		"src/alt.rs": "",
	})

	_, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeUnsupportedConstruct))

	var de *errors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "m", de.Context[errors.CtxModule])
}

func TestCfgAttrPathWithFalsePredicateIgnored(t *testing.T) {
	// `test` is definitively off for normal builds, so the attribute never
	// expands and the declaration resolves by the sibling convention.
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "#[cfg_attr(test, path = \"alt.rs\")]\nmod m;\n",
		"src/m.rs":   "",
		"src/alt.rs": "",
	})

	files, err := New(DefaultConfig()).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/m.rs"}, relative(t, dir, files))
}

func TestCfgAttrPathWithDisabledFeatureIgnored(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "#[cfg_attr(feature = \"alt\", path = \"alt.rs\")]\nmod m;\n",
		"src/m.rs":   "",
		"src/alt.rs": "",
	})

	// Without default features the unlisted feature is definitively off.
	cfg := Config{DefaultFeatures: false}
	files, err := New(cfg).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/m.rs"}, relative(t, dir, files))
}

func TestResolverHookHandlesCfgAttr(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"src/lib.rs": "#[cfg_attr(feature = \"alt\", path = \"alt.rs\")]\nmod m;\n",
		"src/m.rs":   "",
	})

	cfg := DefaultConfig()
	cfg.Resolver = func(decl ModDecl) (string, bool) {
		return decl.Name + ".rs", true
	}

	files, err := New(cfg).TargetFiles(libTarget(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "src/m.rs"}, relative(t, dir, files))
}
