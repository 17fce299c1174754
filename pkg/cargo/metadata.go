// Package cargo queries the build-graph descriptor for a workspace: the
// structured package/target listing that `cargo metadata` emits. The Source
// interface is the only seam the rest of the tool depends on, so tests and
// cargo-less environments can substitute their own descriptor.
package cargo

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"strings"

	"cratefiles/pkg/errors"
)

// Metadata is the projection of `cargo metadata --format-version 1` that the
// catalog builder consumes.
type Metadata struct {
	Packages      []Package `json:"packages"`
	WorkspaceRoot string    `json:"workspace_root"`
}

type Package struct {
	Name         string       `json:"name"`
	ManifestPath string       `json:"manifest_path"`
	Edition      string       `json:"edition"`
	Targets      []Target     `json:"targets"`
	Dependencies []Dependency `json:"dependencies"`
}

// Target is a raw descriptor target. Kind holds cargo's kind strings
// ("lib", "bin", "test", "example", "bench", "custom-build", ...).
type Target struct {
	Name    string   `json:"name"`
	Kind    []string `json:"kind"`
	SrcPath string   `json:"src_path"`
	Edition string   `json:"edition"`
}

type Dependency struct {
	Name string `json:"name"`
	// Path is set for local path dependencies only.
	Path string `json:"path"`
}

// Source answers one descriptor query per call. manifestPath may be empty,
// in which case the current working directory's manifest is used.
type Source interface {
	Query(ctx context.Context, manifestPath string) (*Metadata, error)
}

// CommandSource shells out to the cargo binary.
type CommandSource struct {
	// Cargo overrides the binary name; defaults to "cargo".
	Cargo string
}

func (s *CommandSource) binary() string {
	if s.Cargo != "" {
		return s.Cargo
	}
	return "cargo"
}

func (s *CommandSource) Query(ctx context.Context, manifestPath string) (*Metadata, error) {
	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	if manifestPath != "" {
		args = append(args, "--manifest-path", manifestPath)
	}

	// Try offline first; fall back to a networked query, since crates with
	// an unfetched lockfile make --offline fail spuriously.
	out, err := s.run(ctx, append(args, "--offline"))
	if err != nil {
		slog.Debug("offline metadata query failed, retrying online", "error", err)
		out, err = s.run(ctx, args)
		if err != nil {
			return nil, err
		}
	}

	return decodeMetadata(out)
}

func (s *CommandSource) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "cargo metadata failed"
		}
		return nil, errors.Wrap(err, errors.CodeMetadataError, msg)
	}
	return stdout.Bytes(), nil
}

func decodeMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, errors.Wrap(err, errors.CodeMetadataError, "malformed metadata output")
	}
	return &md, nil
}
