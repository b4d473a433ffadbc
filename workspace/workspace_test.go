package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalo-lang/thalo/parser"
)

func TestAddDocumentBuildsRegistryAndLinkIndex(t *testing.T) {
	ws := New()

	schemaSrc := []byte("2026-01-01T00:00 define-entity person\n" +
		"  # Metadata\n" +
		"    role: string\n")
	_, err := ws.AddDocument("schema.thalo", schemaSrc, parser.FileTypeThalo)
	require.NoError(t, err)

	dataSrc := []byte("2026-01-05T09:00 create person \"Ada\" ^ada\n" +
		"  role: \"mathematician\"\n")
	_, err = ws.AddDocument("data.thalo", dataSrc, parser.FileTypeThalo)
	require.NoError(t, err)

	reg := ws.SchemaRegistry()
	require.NotNil(t, reg)
	person := reg.Resolve("person")
	require.NotNil(t, person)
	assert.Contains(t, person.Fields, "role")

	def, uri, ok := ws.FindDefinition("ada")
	require.True(t, ok)
	assert.Equal(t, "data.thalo", uri)
	assert.Equal(t, "person", def.Instance.EntityName)
}
