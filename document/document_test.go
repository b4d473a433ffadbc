package document

import (
	"testing"

	"github.com/sourcegraph/go-lsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalo-lang/thalo/parser"
)

func TestNewParsesPlainThaloFile(t *testing.T) {
	src := []byte("2026-01-01T00:00 create note \"Draft\" ^n1\n  status: \"open\"\n")
	d := New("note.thalo", src, parser.FileTypeThalo)
	require.Len(t, d.Blocks, 1)
	require.Len(t, d.Blocks[0].File.Entries, 1)
	assert.Equal(t, "note", d.Blocks[0].File.Entries[0].Instance.EntityName)
}

func TestNewParsesMarkdownWithEmbeddedBlocks(t *testing.T) {
	src := []byte("# Notes\n\n```thalo\n2026-01-01T00:00 create note \"Draft\" ^n1\n```\n\nsome prose\n")
	d := New("notes.md", src, parser.FileTypeMarkdown)
	require.Len(t, d.Blocks, 1)
	require.Len(t, d.Blocks[0].File.Entries, 1)
}

func TestApplyEditWithinBlockInteriorReparsesOnlyThatBlock(t *testing.T) {
	src := []byte("# Notes\n\n```thalo\n2026-01-01T00:00 create note \"Draft\" ^n1\n  status: \"open\"\n```\n")
	d := New("notes.md", src, parser.FileTypeMarkdown)
	require.Len(t, d.Blocks, 1)

	// Replace "open" with "closed" on the status line (line 4, 0-indexed).
	d.ApplyEdit(lsp.Range{
		Start: lsp.Position{Line: 4, Character: 11},
		End:   lsp.Position{Line: 4, Character: 15},
	}, "closed")

	require.Len(t, d.Blocks, 1)
	require.Len(t, d.Blocks[0].File.Entries, 1)
	meta := d.Blocks[0].File.Entries[0].Instance.Metadata
	require.Len(t, meta, 1)
	assert.Equal(t, "closed", meta[0].Value.Quoted)
}

func TestApplyEditAcrossFenceBoundaryForcesFullReparse(t *testing.T) {
	src := []byte("# Notes\n\n```thalo\n2026-01-01T00:00 create note \"Draft\" ^n1\n```\n")
	d := New("notes.md", src, parser.FileTypeMarkdown)
	require.Len(t, d.Blocks, 1)

	// Edit the closing fence line itself.
	d.ApplyEdit(lsp.Range{
		Start: lsp.Position{Line: 4, Character: 0},
		End:   lsp.Position{Line: 4, Character: 3},
	}, "```")

	require.Len(t, d.Blocks, 1)
	require.Len(t, d.Blocks[0].File.Entries, 1)
}

func TestReplaceContentReparsesFromScratch(t *testing.T) {
	d := New("note.thalo", []byte("2026-01-01T00:00 create note \"Draft\" ^n1\n"), parser.FileTypeThalo)
	require.Len(t, d.Blocks[0].File.Entries, 1)

	d.ReplaceContent([]byte("2026-02-01T00:00 create note \"Second\" ^n2\n2026-02-02T00:00 create note \"Third\" ^n3\n"))
	require.Len(t, d.Blocks, 1)
	assert.Len(t, d.Blocks[0].File.Entries, 2)
}
