package hostutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalo-lang/thalo/workspace"
)

func TestDetectFindsExplicitThaloRootMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".thalo-root"), nil, 0o644))
	sub := filepath.Join(root, "notes", "daily")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	note := filepath.Join(sub, "today.thalo")
	require.NoError(t, os.WriteFile(note, nil, 0o644))

	d := NewDetector()
	got, err := d.Detect(note)
	require.NoError(t, err)
	assert.Equal(t, KindThaloRoot, got.Kind)
	assert.Equal(t, root, got.Path)
	assert.Equal(t, "notes/daily/today.thalo", got.RelativePath)
}

func TestDetectFallsBackToGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	note := filepath.Join(root, "docs", "today.thalo")
	require.NoError(t, os.MkdirAll(filepath.Dir(note), 0o755))
	require.NoError(t, os.WriteFile(note, nil, 0o644))

	d := NewDetector()
	got, err := d.Detect(note)
	require.NoError(t, err)
	assert.Equal(t, KindGit, got.Kind)
	assert.Equal(t, root, got.Path)
}

func TestDetectReturnsUnknownWhenNoMarkerFound(t *testing.T) {
	root := t.TempDir()
	note := filepath.Join(root, "today.thalo")
	require.NoError(t, os.WriteFile(note, nil, 0o644))

	d := &Detector{markers: []string{".does-not-exist-marker"}}
	got, err := d.Detect(note)
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, got.Kind)
}

func TestLoadVaultAddsThaloAndMarkdownDocuments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.thalo"),
		[]byte("2026-01-01T00:00 create note \"First\" ^n1\n"), 0o644))
	sub := filepath.Join(root, "journal")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.md"),
		[]byte("# Journal\n\n```thalo\n2026-01-02T00:00 create note \"Second\" ^n2\n```\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("not thalo"), 0o644))

	ws := workspace.New()
	result, err := LoadVault(context.Background(), ws, root)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Loaded, 2)

	entries := ws.AllInstanceEntries()
	assert.Len(t, entries, 2)
}
