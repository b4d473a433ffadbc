package parser

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFenceScannerIsContentTypeAgnostic proves the line-oriented fence
// scanner only cares about the ```thalo language tag, not what's inside the
// fence: a ```go block in the same document is left alone for a real
// tree-sitter grammar to parse, and the ```thalo block is still found.
func TestFenceScannerIsContentTypeAgnostic(t *testing.T) {
	doc := []byte("# Notes\n\n" +
		"```go\n" +
		"package main\n\n" +
		"func main() {}\n" +
		"```\n\n" +
		"```thalo\n" +
		"2026-03-01T10:00 create idea \"Fence scanning\"\n" +
		"  status: \"draft\"\n" +
		"```\n")

	blocks := ScanMarkdownBlocks(doc)
	require.Len(t, blocks, 1)
	assert.Contains(t, string(blocks[0].Source), "create idea")

	goSrc := []byte("package main\n\nfunc main() {}\n")
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(golang.GetLanguage())
	tree, err := sitterParser.ParseCtx(context.Background(), nil, goSrc)
	require.NoError(t, err)
	require.Equal(t, "source_file", tree.RootNode().Type())
	assert.False(t, tree.RootNode().HasError())
}
