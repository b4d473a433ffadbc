package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/fragment"
	"github.com/thalo-lang/thalo/parser"
	"github.com/thalo-lang/thalo/workspace"
)

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws := workspace.New()
	src := []byte(
		"2026-01-01T09:00 create opinion \"Go is great\" #coding\n" +
			"  confidence: \"high\"\n" +
			"2026-01-02T09:00 create opinion \"Go is fine\" #coding\n" +
			"  confidence: \"low\"\n" +
			"2026-01-03T09:00 create opinion \"Rust is great\" #systems\n" +
			"  confidence: \"high\"\n",
	)
	_, err := ws.AddDocument("opinions.thalo", src, parser.FileTypeThalo)
	require.NoError(t, err)
	return ws
}

func queryFrom(t *testing.T, text string) ast.Query {
	t.Helper()
	result := fragment.Parse(text, fragment.StartQuery)
	require.True(t, result.Valid, "expected %q to parse as a valid query", text)
	return *result.Query
}

func TestExecuteFiltersByEntityAndTag(t *testing.T) {
	ws := newTestWorkspace(t)
	q := queryFrom(t, "opinion where #coding")
	entries := Execute(ws, q)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "opinion", e.Instance.EntityName)
		assert.Contains(t, e.Instance.Header.Tags, "coding")
	}
}

func TestExecuteANDsConditionsWithinOneQuery(t *testing.T) {
	ws := newTestWorkspace(t)
	q := queryFrom(t, `opinion where #coding and confidence = "high"`)
	entries := Execute(ws, q)
	require.Len(t, entries, 1)
	assert.Equal(t, "Go is great", entries[0].Instance.Header.Title)
}

func TestExecuteAnyORsAcrossQueries(t *testing.T) {
	ws := newTestWorkspace(t)
	coding := queryFrom(t, "opinion where #coding")
	systems := queryFrom(t, "opinion where #systems")
	entries := ExecuteAny(ws, []ast.Query{coding, systems})
	assert.Len(t, entries, 3)
}

func TestExecuteResultsAreSortedByTimestamp(t *testing.T) {
	ws := newTestWorkspace(t)
	q := queryFrom(t, "opinion where #coding")
	entries := Execute(ws, q)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Instance.Header.Timestamp < entries[1].Instance.Header.Timestamp)
}
