package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind/intent-engine/internal/intent"
)

func TestExpandFileTokens(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "feature.md")
	require.NoError(t, os.WriteFile(specPath, []byte("## Goal\nShip it"), 0o644))

	req, err := intent.ParsePlanRequest([]byte(`{"tasks":[{"name":"A","spec":"@file(` + specPath + `)"}]}`))
	require.NoError(t, err)

	require.NoError(t, expandFileTokens(req))
	require.NotNil(t, req.Tasks[0].Spec)
	assert.Equal(t, "## Goal\nShip it", *req.Tasks[0].Spec)
}

func TestExpandFileTokensInline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.txt")
	require.NoError(t, os.WriteFile(path, []byte("MIDDLE"), 0o644))

	req, err := intent.ParsePlanRequest([]byte(`{"tasks":[{"name":"A","spec":"before @file(` + path + `) after"}]}`))
	require.NoError(t, err)

	require.NoError(t, expandFileTokens(req))
	assert.Equal(t, "before MIDDLE after", *req.Tasks[0].Spec)
}

func TestExpandFileTokensMissingFile(t *testing.T) {
	req, err := intent.ParsePlanRequest([]byte(`{"tasks":[{"name":"A","spec":"@file(/does/not/exist.md)"}]}`))
	require.NoError(t, err)

	err = expandFileTokens(req)
	require.Error(t, err)
	assert.Equal(t, intent.TagFileRead, intent.TagOf(err))
}

func TestExpandFileTokensNested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "child.md")
	require.NoError(t, os.WriteFile(path, []byte("child spec"), 0o644))

	req, err := intent.ParsePlanRequest([]byte(`{"tasks":[{"name":"P","children":[{"name":"C","spec":"@file(` + path + `)"}]}]}`))
	require.NoError(t, err)

	require.NoError(t, expandFileTokens(req))
	assert.Equal(t, "child spec", *req.Tasks[0].Children[0].Spec)
}

func TestExpandStringWithoutTokens(t *testing.T) {
	out, err := expandString("plain text")
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}
