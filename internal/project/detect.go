// Package project maps a working directory to a deterministic database
// location. Discovery walks upward looking for version-control or
// build-manifest markers; an existing .intent-engine directory
// short-circuits the walk. Detection is read-only and runs over an
// abstract filesystem so it stays testable.
package project

import (
	"errors"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// DotDir is the per-project state directory.
	DotDir = ".intent-engine"

	// DBFileName is the primary database file inside DotDir.
	DBFileName = "project.db"
)

// ErrNoProject is returned when read-only commands run outside any
// initialized project.
var ErrNoProject = errors.New("no project found")

// Marker identifies which root marker matched during discovery.
type Marker string

const (
	MarkerIntentEngine Marker = DotDir
	MarkerGit          Marker = ".git"
	MarkerMercurial    Marker = ".hg"
	MarkerNode         Marker = "package.json"
	MarkerRust         Marker = "Cargo.toml"
	MarkerPython       Marker = "pyproject.toml"
	MarkerGo           Marker = "go.mod"
	MarkerMaven        Marker = "pom.xml"
	MarkerGradle       Marker = "build.gradle"
	MarkerNone         Marker = ""
)

// markers is the priority-ordered list checked at each directory level.
var markers = []Marker{
	MarkerGit,
	MarkerMercurial,
	MarkerNode,
	MarkerRust,
	MarkerPython,
	MarkerGo,
	MarkerMaven,
	MarkerGradle,
}

// Context describes a resolved project root.
type Context struct {
	// RootPath is the absolute directory holding (or due to hold) DotDir.
	RootPath string

	// Marker is the marker that anchored the root.
	Marker Marker

	// Fallback is set when no marker was found and the walk fell back
	// to the starting directory.
	Fallback bool
}

// DBPath returns the database file location for this root.
func (c *Context) DBPath() string {
	return filepath.Join(c.RootPath, DotDir, DBFileName)
}

// Discover resolves the project root for write commands. It walks
// upward from startPath; an .intent-engine directory anywhere on the
// path wins outright, otherwise the first level carrying any marker
// does. Without a match it falls back to startPath with Fallback set,
// so the caller can warn.
func Discover(fs afero.Fs, startPath string) (*Context, error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return nil, err
	}

	ctx, err := Find(fs, absPath)
	if err == nil {
		return ctx, nil
	}
	if !errors.Is(err, ErrNoProject) {
		return nil, err
	}

	current := absPath
	for {
		for _, m := range markers {
			if hasEntry(fs, current, string(m)) {
				return &Context{RootPath: current, Marker: m}, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return &Context{RootPath: absPath, Marker: MarkerNone, Fallback: true}, nil
}

// Find resolves the project root for read-only commands: only an
// existing .intent-engine directory counts. Returns ErrNoProject when
// the walk reaches the filesystem root without one.
func Find(fs afero.Fs, startPath string) (*Context, error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return nil, err
	}

	current := absPath
	for {
		if hasDir(fs, current, DotDir) {
			return &Context{RootPath: current, Marker: MarkerIntentEngine}, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil, ErrNoProject
		}
		current = parent
	}
}

// EnsureLayout creates the .intent-engine directory under the root.
func EnsureLayout(fs afero.Fs, root string) (string, error) {
	dir := filepath.Join(root, DotDir)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func hasDir(fs afero.Fs, dir, name string) bool {
	info, err := fs.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}

func hasEntry(fs afero.Fs, dir, name string) bool {
	_, err := fs.Stat(filepath.Join(dir, name))
	return err == nil
}
