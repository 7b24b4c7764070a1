package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/wayfind/intent-engine/internal/config"
	"github.com/wayfind/intent-engine/internal/engine"
	"github.com/wayfind/intent-engine/internal/logger"
	"github.com/wayfind/intent-engine/internal/store"
)

// cmdContext returns a context cancelled on SIGINT/SIGTERM, so an
// in-flight transaction rolls back instead of half-committing. The
// caller must defer the stop func to release the signal registration.
func cmdContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// jsonOutput reports whether --format json (or the config default) is active.
func jsonOutput() bool {
	return viper.GetString("format") == "json"
}

// printJSON writes a value to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openEngine binds the invocation to its database and returns the
// engine plus a cleanup func. Write commands run discovery with lazy
// init; read commands require an existing project.
func openEngine(write bool) (*engine.Engine, func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve working directory: %w", err)
	}

	fs := afero.NewOsFs()
	var res *config.Resolution
	if write {
		res, err = config.ResolveForWrite(fs, cwd)
	} else {
		res, err = config.ResolveForRead(fs, cwd)
	}
	if err != nil {
		return nil, nil, err
	}
	if res.Warning != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", res.Warning)
	}

	applyFileConfig(res)
	logger.SetBasePath(filepath.Dir(res.DBPath))

	s, err := store.Open(res.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(s), func() { _ = s.Close() }, nil
}

// applyFileConfig folds .intent-engine/config.yaml defaults into viper.
// Explicit flags win over the file; the file wins over built-ins.
func applyFileConfig(res *config.Resolution) {
	if res.Root == "" {
		return
	}
	cfg, err := config.LoadFileConfig(res.Root)
	if err != nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Warning: could not read project config: %v\n", err)
		}
		return
	}
	if cfg.Format != "" && !rootCmd.PersistentFlags().Lookup("format").Changed {
		viper.Set("format", cfg.Format)
	}
	// The bound flag's registered default shadows viper defaults, so the
	// file value must be Set explicitly while the flag is untouched.
	if cfg.IncludeEvents > 0 && !statusCmd.Flags().Lookup("include-events").Changed {
		viper.Set("include_events", cfg.IncludeEvents)
	}
}
