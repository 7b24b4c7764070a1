// Package config resolves where Intent-Engine state lives for one CLI
// invocation: project context, database path, and the optional per
// project config file.
package config

import (
	"errors"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/project"
)

const (
	// EnvPrefix namespaces environment variables: IE_DATABASE_PATH,
	// IE_SESSION_ID, and flag mirrors like IE_VERBOSE and IE_FORMAT.
	EnvPrefix = "IE"

	// envDatabasePath forces a specific database file, bypassing discovery.
	envDatabasePath = "IE_DATABASE_PATH"

	// envSessionID is an opaque tag test harnesses use to isolate state.
	// It has no semantic effect; it is echoed back in JSON output.
	envSessionID = "IE_SESSION_ID"
)

// ErrProjectContextNotSet fails fast when a caller asks for paths
// before CLI init resolved the project.
var ErrProjectContextNotSet = errors.New("project context not initialized")

var (
	projectContext   *project.Context
	projectContextMu sync.RWMutex
)

// SetProjectContext records the resolved project for this invocation.
func SetProjectContext(ctx *project.Context) {
	projectContextMu.Lock()
	defer projectContextMu.Unlock()
	projectContext = ctx
}

// ProjectContext returns the resolved project context.
func ProjectContext() (*project.Context, error) {
	projectContextMu.RLock()
	defer projectContextMu.RUnlock()
	if projectContext == nil {
		return nil, ErrProjectContextNotSet
	}
	return projectContext, nil
}

// LoadEnv loads a .env file when present, then binds IE_* variables.
// Missing .env files are fine.
func LoadEnv() {
	_ = godotenv.Load()
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
}

// DatabaseOverride returns the forced database path from
// IE_DATABASE_PATH, or "" when discovery should run.
func DatabaseOverride() string {
	return os.Getenv(envDatabasePath)
}

// SessionID returns the opaque session tag, or "".
func SessionID() string {
	return os.Getenv(envSessionID)
}

// Resolution is the outcome of binding an invocation to a database.
type Resolution struct {
	DBPath  string
	Root    string // empty when IE_DATABASE_PATH overrode discovery
	Marker  project.Marker
	Warning string // non-fatal discovery warning for stderr
}

// ResolveForWrite binds a write command to its database: the override
// wins, otherwise marker discovery from cwd, falling back to cwd itself
// with a warning.
func ResolveForWrite(fs afero.Fs, cwd string) (*Resolution, error) {
	if override := DatabaseOverride(); override != "" {
		return &Resolution{DBPath: override}, nil
	}

	ctx, err := project.Discover(fs, cwd)
	if err != nil {
		return nil, err
	}
	SetProjectContext(ctx)

	res := &Resolution{DBPath: ctx.DBPath(), Root: ctx.RootPath, Marker: ctx.Marker}
	if ctx.Fallback {
		res.Warning = "no project marker found; using the current directory as project root"
	}
	return res, nil
}

// ResolveForRead binds a read-only command to its database. Without an
// override, only an existing project counts.
func ResolveForRead(fs afero.Fs, cwd string) (*Resolution, error) {
	if override := DatabaseOverride(); override != "" {
		return &Resolution{DBPath: override}, nil
	}

	ctx, err := project.Find(fs, cwd)
	if err != nil {
		if errors.Is(err, project.ErrNoProject) {
			return nil, intent.E(intent.TagNotAProject,
				"not inside an Intent-Engine project; run a write command (plan, log, init) first")
		}
		return nil, err
	}
	SetProjectContext(ctx)
	return &Resolution{DBPath: ctx.DBPath(), Root: ctx.RootPath, Marker: ctx.Marker}, nil
}
