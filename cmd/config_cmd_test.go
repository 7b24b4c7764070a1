package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind/intent-engine/internal/config"
)

func chdirTempProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	t.Chdir(root)
	return root
}

func TestConfigSetAndShow(t *testing.T) {
	root := chdirTempProject(t)

	require.NoError(t, runConfigSet("format", "json"))
	require.NoError(t, runConfigSet("include_events", "9"))

	cfg, err := config.LoadFileConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 9, cfg.IncludeEvents)

	require.NoError(t, runConfigShow())
}

func TestConfigSetRejectsBadValues(t *testing.T) {
	chdirTempProject(t)

	assert.Error(t, runConfigSet("format", "xml"))
	assert.Error(t, runConfigSet("include_events", "zero"))
	assert.Error(t, runConfigSet("include_events", "-3"))
	assert.Error(t, runConfigSet("color", "on"))
}

func TestConfigRequiresProjectRoot(t *testing.T) {
	chdirTempProject(t)
	t.Setenv("IE_DATABASE_PATH", filepath.Join(t.TempDir(), "forced.db"))

	err := runConfigSet("format", "json")
	require.Error(t, err)
}
