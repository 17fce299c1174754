package cargo

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"cratefiles/pkg/errors"
)

// ManifestSource is a descriptor fallback for environments without a cargo
// binary. It parses Cargo.toml directly and applies cargo's target
// autodiscovery conventions (src/lib.rs, src/main.rs, src/bin, tests,
// examples, benches, build.rs) plus any explicit target sections.
type ManifestSource struct{}

type manifestFile struct {
	Package      *manifestPackage          `toml:"package"`
	Workspace    *manifestWorkspace        `toml:"workspace"`
	Lib          *manifestTarget           `toml:"lib"`
	Bin          []manifestTarget          `toml:"bin"`
	Test         []manifestTarget          `toml:"test"`
	Example      []manifestTarget          `toml:"example"`
	Bench        []manifestTarget          `toml:"bench"`
	Dependencies map[string]toml.Primitive `toml:"dependencies"`
}

type manifestPackage struct {
	Name    string `toml:"name"`
	Edition string `toml:"edition"`
	Build   string `toml:"build"`
}

type manifestWorkspace struct {
	Members []string `toml:"members"`
}

type manifestTarget struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type manifestDependency struct {
	Path string `toml:"path"`
}

func (s *ManifestSource) Query(ctx context.Context, manifestPath string) (*Metadata, error) {
	if manifestPath == "" {
		manifestPath = "Cargo.toml"
	}
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMetadataError, "resolve manifest path")
	}

	root, file, err := loadManifest(abs)
	if err != nil {
		return nil, err
	}

	md := &Metadata{WorkspaceRoot: filepath.Dir(abs)}

	if file.Workspace != nil {
		for _, member := range file.Workspace.Members {
			dirs, globErr := filepath.Glob(filepath.Join(filepath.Dir(abs), filepath.FromSlash(member)))
			if globErr != nil || len(dirs) == 0 {
				continue
			}
			for _, dir := range dirs {
				memberManifest := filepath.Join(dir, "Cargo.toml")
				memberRoot, memberFile, memberErr := loadManifest(memberManifest)
				if memberErr != nil {
					return nil, memberErr
				}
				if memberFile.Package == nil {
					continue
				}
				md.Packages = append(md.Packages, buildPackage(memberManifest, memberRoot, memberFile))
			}
		}
	}

	if file.Package != nil {
		md.Packages = append(md.Packages, buildPackage(abs, root, file))
	}

	return md, nil
}

func loadManifest(path string) (string, *manifestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CodeMetadataError, "read manifest").WithContext(errors.CtxPath, path)
	}

	var file manifestFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return "", nil, errors.Wrap(err, errors.CodeMetadataError, "parse manifest").WithContext(errors.CtxPath, path)
	}

	return filepath.Dir(path), &file, nil
}

func buildPackage(manifestPath, dir string, file *manifestFile) Package {
	pkg := Package{
		Name:         file.Package.Name,
		ManifestPath: manifestPath,
		Edition:      editionOrDefault(file.Package.Edition),
	}

	crateName := strings.ReplaceAll(file.Package.Name, "-", "_")

	// Library target.
	libPath := filepath.Join(dir, "src", "lib.rs")
	libName := crateName
	if file.Lib != nil {
		if file.Lib.Path != "" {
			libPath = filepath.Join(dir, filepath.FromSlash(file.Lib.Path))
		}
		if file.Lib.Name != "" {
			libName = file.Lib.Name
		}
	}
	if fileExists(libPath) {
		pkg.Targets = append(pkg.Targets, Target{
			Name:    libName,
			Kind:    []string{"lib"},
			SrcPath: libPath,
			Edition: pkg.Edition,
		})
	}

	pkg.Targets = append(pkg.Targets, discoverBinaries(dir, file, pkg)...)
	pkg.Targets = append(pkg.Targets, discoverDirTargets(dir, "tests", "test", pkg.Edition, file.Test)...)
	pkg.Targets = append(pkg.Targets, discoverDirTargets(dir, "examples", "example", pkg.Edition, file.Example)...)
	pkg.Targets = append(pkg.Targets, discoverDirTargets(dir, "benches", "bench", pkg.Edition, file.Bench)...)

	buildScript := filepath.Join(dir, "build.rs")
	if file.Package.Build != "" {
		buildScript = filepath.Join(dir, filepath.FromSlash(file.Package.Build))
	}
	if fileExists(buildScript) {
		pkg.Targets = append(pkg.Targets, Target{
			Name:    "build-script-build",
			Kind:    []string{"custom-build"},
			SrcPath: buildScript,
			Edition: pkg.Edition,
		})
	}

	pkg.Dependencies = decodeLocalDependencies(dir, file.Dependencies)
	return pkg
}

func discoverBinaries(dir string, file *manifestFile, pkg Package) []Target {
	var targets []Target
	claimed := make(map[string]bool)

	for _, bin := range file.Bin {
		src := ""
		switch {
		case bin.Path != "":
			src = filepath.Join(dir, filepath.FromSlash(bin.Path))
		case fileExists(filepath.Join(dir, "src", "bin", bin.Name+".rs")):
			src = filepath.Join(dir, "src", "bin", bin.Name+".rs")
		case fileExists(filepath.Join(dir, "src", "bin", bin.Name, "main.rs")):
			src = filepath.Join(dir, "src", "bin", bin.Name, "main.rs")
		case fileExists(filepath.Join(dir, "src", "main.rs")):
			src = filepath.Join(dir, "src", "main.rs")
		}
		if src == "" || !fileExists(src) {
			continue
		}
		claimed[src] = true
		targets = append(targets, Target{Name: bin.Name, Kind: []string{"bin"}, SrcPath: src, Edition: pkg.Edition})
	}

	mainSrc := filepath.Join(dir, "src", "main.rs")
	if fileExists(mainSrc) && !claimed[mainSrc] {
		targets = append(targets, Target{Name: pkg.Name, Kind: []string{"bin"}, SrcPath: mainSrc, Edition: pkg.Edition})
	}

	binDir := filepath.Join(dir, "src", "bin")
	for _, t := range autodiscover(binDir, pkg.Edition, "bin") {
		if !claimed[t.SrcPath] {
			targets = append(targets, t)
		}
	}

	return targets
}

func discoverDirTargets(dir, sub, kind, edition string, explicit []manifestTarget) []Target {
	var targets []Target
	claimed := make(map[string]bool)

	for _, t := range explicit {
		if t.Path == "" {
			continue
		}
		src := filepath.Join(dir, filepath.FromSlash(t.Path))
		if !fileExists(src) {
			continue
		}
		claimed[src] = true
		targets = append(targets, Target{Name: t.Name, Kind: []string{kind}, SrcPath: src, Edition: edition})
	}

	for _, t := range autodiscover(filepath.Join(dir, sub), edition, kind) {
		if !claimed[t.SrcPath] {
			targets = append(targets, t)
		}
	}

	return targets
}

// autodiscover finds <dir>/<name>.rs and <dir>/<name>/main.rs targets.
func autodiscover(dir, edition, kind string) []Target {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var targets []Target
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			main := filepath.Join(dir, name, "main.rs")
			if fileExists(main) {
				targets = append(targets, Target{Name: name, Kind: []string{kind}, SrcPath: main, Edition: edition})
			}
			continue
		}
		if !strings.HasSuffix(name, ".rs") {
			continue
		}
		targets = append(targets, Target{
			Name:    strings.TrimSuffix(name, ".rs"),
			Kind:    []string{kind},
			SrcPath: filepath.Join(dir, name),
			Edition: edition,
		})
	}
	return targets
}

func decodeLocalDependencies(dir string, deps map[string]toml.Primitive) []Dependency {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Dependency
	for _, name := range names {
		prim := deps[name]
		var spec manifestDependency
		// String requirements ("1.0") fail to decode into a table; those
		// are registry deps and carry no path.
		if err := toml.PrimitiveDecode(prim, &spec); err != nil || spec.Path == "" {
			continue
		}
		out = append(out, Dependency{
			Name: name,
			Path: filepath.Join(dir, filepath.FromSlash(spec.Path)),
		})
	}
	return out
}

func editionOrDefault(edition string) string {
	if edition == "" {
		return "2015"
	}
	return edition
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
