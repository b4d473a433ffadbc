package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalo-lang/thalo/cst"
)

func TestExtractInstanceEntry(t *testing.T) {
	src := []byte("2026-02-01T08:30 create book \"Gödel, Escher, Bach\" ^geb #reading\n" +
		"  author: \"Douglas Hofstadter\"\n" +
		"  rating: 5\n" +
		"  related: [^ada, ^turing]\n" +
		"\n" +
		"  Dense but rewarding.\n")

	f := Extract(cst.NewParser().Parse(src), src)
	require.Len(t, f.Entries, 1)
	require.Empty(t, f.Errors)

	e := f.Entries[0]
	require.Equal(t, KindInstance, e.Kind)
	inst := e.Instance
	assert.Equal(t, "book", inst.EntityName)
	assert.Equal(t, "Gödel, Escher, Bach", inst.Header.Title)
	assert.Equal(t, "geb", inst.Header.Link)
	assert.Equal(t, []string{"reading"}, inst.Header.Tags)
	require.Len(t, inst.Metadata, 3)
	assert.Equal(t, "author", inst.Metadata[0].Key)
	assert.Equal(t, ValueQuoted, inst.Metadata[0].Value.Kind)
	assert.Equal(t, ValueNumber, inst.Metadata[1].Value.Kind)
	assert.Equal(t, ValueArray, inst.Metadata[2].Value.Kind)
	require.Len(t, inst.Metadata[2].Value.Elements, 2)
	assert.True(t, inst.HasContent)
	assert.Contains(t, inst.Content, "Dense but rewarding")
}

func TestExtractSchemaEntryWithUnknownType(t *testing.T) {
	src := []byte("2026-01-01T00:00 define-entity widget\n" +
		"  # Metadata\n" +
		"    size: number\n" +
		"    color: mystery\n")

	f := Extract(cst.NewParser().Parse(src), src)
	require.Len(t, f.Entries, 1)
	sch := f.Entries[0].Schema
	require.Len(t, sch.Blocks, 1)
	fields := sch.Blocks[0].Fields
	require.Len(t, fields, 2)
	assert.Equal(t, TypePrimitive, fields[0].Type.Kind)
	assert.Equal(t, TypeSyntaxError, fields[1].Type.Kind)
}
