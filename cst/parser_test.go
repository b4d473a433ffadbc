package cst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataEntry(t *testing.T) {
	src := []byte("2026-01-05T09:00 create person \"Ada Lovelace\" ^ada #contact\n" +
		"  role: \"mathematician\"\n" +
		"  born: 1815-12-10\n" +
		"\n" +
		"  First paragraph of content.\n" +
		"\n" +
		"  Second paragraph.\n")

	tree := NewParser().Parse(src)
	root := tree.RootNode()
	require.Equal(t, "source_file", root.Type())
	require.Equal(t, 1, root.NamedChildCount())

	entry := root.NamedChild(0)
	assert.Equal(t, "data_entry", entry.Type())
	assert.False(t, entry.HasError())

	header := entry.ChildByFieldName("header")
	require.NotNil(t, header)
	assert.Equal(t, "2026-01-05T09:00", header.ChildByFieldName("timestamp").Content(src))
	assert.Equal(t, "person", header.ChildByFieldName("argument").Content(src))
	assert.Equal(t, "\"Ada Lovelace\"", header.ChildByFieldName("title").Content(src))
	assert.Equal(t, "^ada", header.ChildByFieldName("link").Content(src))

	var tagCount int
	for i := 0; i < header.ChildCount(); i++ {
		if header.Child(i).Type() == "tag" {
			tagCount++
		}
	}
	assert.Equal(t, 1, tagCount)

	content := entry.ChildByFieldName("content")
	require.NotNil(t, content)
	assert.Contains(t, content.Content(src), "Second paragraph")
}

func TestParseSchemaEntry(t *testing.T) {
	src := []byte("2026-01-01T00:00 define-entity person\n" +
		"  # Metadata\n" +
		"    role: string\n" +
		"    born?: datetime\n" +
		"  # Sections\n" +
		"    biography\n")

	tree := NewParser().Parse(src)
	entry := tree.RootNode().NamedChild(0)
	assert.Equal(t, "schema_entry", entry.Type())

	var blocks []*Node
	for i := 0; i < entry.ChildCount(); i++ {
		c := entry.Child(i)
		if c.Type() == "metadata_block" || c.Type() == "sections_block" {
			blocks = append(blocks, c)
		}
	}
	require.Len(t, blocks, 2)
	assert.Equal(t, "metadata_block", blocks[0].Type())
	assert.Equal(t, 2, blocks[0].NamedChildCount())

	roleDef := blocks[0].NamedChild(0)
	assert.Equal(t, "role", roleDef.ChildByFieldName("name").Content(src))
	assert.Equal(t, "primitive_type", roleDef.ChildByFieldName("type").Type())
}

func TestUnknownTypePropagates(t *testing.T) {
	src := []byte("2026-01-01T00:00 define-entity widget\n" +
		"  # Metadata\n" +
		"    size: bogus[]\n")

	tree := NewParser().Parse(src)
	entry := tree.RootNode().NamedChild(0)
	block := entry.NamedChild(1)
	def := block.NamedChild(0)
	typeNode := def.ChildByFieldName("type")
	assert.True(t, typeNode.IsError())
}

func TestErrorRecoveryAtTopLevel(t *testing.T) {
	src := []byte("this is not a valid header\n" +
		"2026-01-01T00:00 create note\n")

	tree := NewParser().Parse(src)
	root := tree.RootNode()
	require.Equal(t, 2, root.NamedChildCount())
	assert.True(t, root.NamedChild(0).IsError())
	assert.Equal(t, "data_entry", root.NamedChild(1).Type())
}

func TestLineIndexOffsetRoundTrip(t *testing.T) {
	src := []byte("abc\ndefg\nhi")
	li := NewLineIndex(src)
	assert.Equal(t, 3, li.LineCount())
	p := li.OffsetToPosition(6)
	assert.Equal(t, Point{Row: 1, Column: 2}, p)
	assert.Equal(t, uint32(6), li.PositionToOffset(p))
}
