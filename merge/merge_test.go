package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/cst"
)

const fixture = `
-- base.thalo --
2026-01-01T00:00 create note "Draft" ^n1
  status: "open"
-- ours.thalo --
2026-01-01T00:00 create note "Draft" ^n1
  status: "closed"
-- theirs.thalo --
2026-01-01T00:00 create note "Draft" ^n1
  status: "archived"
`

func entriesFromArchive(t *testing.T, name string) []ast.Entry {
	ar := txtar.Parse([]byte(fixture))
	for _, f := range ar.Files {
		if f.Name == name {
			tree := cst.NewParser().Parse(f.Data)
			return ast.Extract(tree, f.Data).Entries
		}
	}
	t.Fatalf("fixture file %s not found", name)
	return nil
}

func TestMergeConflictingMetadataUpdate(t *testing.T) {
	base := entriesFromArchive(t, "base.thalo")
	ours := entriesFromArchive(t, "ours.thalo")
	theirs := entriesFromArchive(t, "theirs.thalo")

	result := Merge(base, ours, theirs)
	require.Len(t, result.Entries, 1)
	assert.True(t, result.Entries[0].Conflict)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, ConflictConcurrentMetadataUpdate, result.Conflicts[0].Kind)

	rendered := Format(result, MarkerStyleGit)
	assert.Contains(t, rendered, "<<<<<<< ours")
	assert.Contains(t, rendered, "status: \"closed\"")
	assert.Contains(t, rendered, "status: \"archived\"")
	assert.Contains(t, rendered, ">>>>>>> theirs")
}

func TestMergeCleanNonConflictingChange(t *testing.T) {
	base := entriesFromArchive(t, "base.thalo")
	ours := entriesFromArchive(t, "ours.thalo")

	result := Merge(base, ours, base)
	require.Len(t, result.Entries, 1)
	assert.False(t, result.Entries[0].Conflict)
	assert.Equal(t, "closed", result.Entries[0].Resolved.Instance.Metadata[0].Value.Quoted)
}
