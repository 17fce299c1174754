package catalog

import (
	"context"
	"os"
	"path/filepath"

	"cratefiles/pkg/cargo"
	"cratefiles/pkg/errors"
)

// GetTargets enumerates every target declared anywhere in the workspace at
// workspaceRoot ("" means the current working directory). Local path
// dependencies whose manifests are not workspace members are queried too,
// so crates sitting next to the workspace still contribute their targets.
//
// Result order follows the descriptor's package enumeration order, then its
// per-package target order; no extra sorting is applied.
func GetTargets(ctx context.Context, workspaceRoot string, src cargo.Source) ([]Target, error) {
	manifestPath := ""
	if workspaceRoot != "" {
		info, err := os.Stat(workspaceRoot)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeNotFound, "workspace root does not exist").
				WithContext(errors.CtxPath, workspaceRoot)
		}
		manifestPath = workspaceRoot
		if info.IsDir() {
			manifestPath = filepath.Join(workspaceRoot, "Cargo.toml")
		}
	}

	b := &builder{
		src:         src,
		seenTargets: make(map[string]bool),
		visitedDeps: make(map[string]bool),
	}
	if err := b.collect(ctx, manifestPath); err != nil {
		return nil, err
	}

	if len(b.targets) == 0 {
		return nil, errors.New(errors.CodeMetadataError, "no targets were found").
			WithContext(errors.CtxPath, workspaceRoot)
	}
	return b.targets, nil
}

type builder struct {
	src     cargo.Source
	targets []Target

	// seenTargets dedupes across recursive descriptor queries, keyed by
	// entry path plus kind (a lib and its build script may share a dir).
	seenTargets map[string]bool
	visitedDeps map[string]bool
}

func (b *builder) collect(ctx context.Context, manifestPath string) error {
	md, err := b.src.Query(ctx, manifestPath)
	if err != nil {
		return err
	}
	if md == nil || len(md.Packages) == 0 {
		return errors.New(errors.CodeMetadataError, "descriptor reported no packages").
			WithContext(errors.CtxPath, manifestPath)
	}

	memberManifests := make(map[string]bool, len(md.Packages))
	for _, pkg := range md.Packages {
		memberManifests[absClean(pkg.ManifestPath)] = true
	}

	for _, pkg := range md.Packages {
		b.addPackage(pkg)

		// Local path dependencies, available in metadata since cargo 1.51.
		for _, dep := range pkg.Dependencies {
			if dep.Path == "" || b.visitedDeps[dep.Name] {
				continue
			}
			depManifest := filepath.Join(dep.Path, "Cargo.toml")
			if _, statErr := os.Stat(depManifest); statErr != nil {
				continue
			}
			if memberManifests[absClean(depManifest)] {
				continue
			}
			b.visitedDeps[dep.Name] = true
			if err := b.collect(ctx, depManifest); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *builder) addPackage(pkg cargo.Package) {
	for _, raw := range pkg.Targets {
		kind, ok := kindFromCargo(raw.Kind)
		if !ok {
			continue
		}
		entry := absClean(raw.SrcPath)
		key := entry + "\x00" + kind.String()
		if b.seenTargets[key] {
			continue
		}
		b.seenTargets[key] = true

		edition := raw.Edition
		if edition == "" {
			edition = pkg.Edition
		}
		b.targets = append(b.targets, Target{
			Package:   pkg.Name,
			Name:      raw.Name,
			Kind:      kind,
			EntryPath: entry,
			Edition:   edition,
		})
	}
}
