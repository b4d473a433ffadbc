// Package document holds one open file's parsed state: its source bytes,
// line index, and the one-or-many Thalo blocks within it, plus the edit
// application logic that decides between a full reparse, a single-block
// incremental reparse, or a pure offset shift. Grounded on upbound/up's
// internal/xpls updateContent/updateChanges content-patch-by-range pattern.
package document

import (
	"github.com/sourcegraph/go-lsp"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/cst"
	"github.com/thalo-lang/thalo/parser"
	"github.com/thalo-lang/thalo/sourcemap"
)

// Block is one parsed Thalo span inside a Document, with its own tree,
// source bytes, source map, and extracted AST.
type Block struct {
	Tree      *cst.Tree
	Source    []byte
	SourceMap sourcemap.Map
	File      *ast.File
}

// Document is one open file.
type Document struct {
	URI      string
	FileType parser.FileType
	Source   []byte
	LineIndex *cst.LineIndex
	Blocks   []Block
}

// New parses a freshly opened file.
func New(uri string, content []byte, hint parser.FileType) *Document {
	d := &Document{URI: uri, Source: content, FileType: parser.DetectFileType(uri, content, hint)}
	d.reparseAll()
	return d
}

func (d *Document) reparseAll() {
	d.LineIndex = cst.NewLineIndex(d.Source)
	d.Blocks = nil
	if d.FileType == parser.FileTypeMarkdown {
		for _, pb := range parser.ParseMarkdown(d.Source) {
			d.Blocks = append(d.Blocks, Block{Tree: pb.Tree, Source: pb.Source, SourceMap: pb.SourceMap, File: ast.Extract(pb.Tree, pb.Source)})
		}
		return
	}
	tree, sm := parser.Parse(d.Source)
	d.Blocks = append(d.Blocks, Block{Tree: tree, Source: d.Source, SourceMap: sm, File: ast.Extract(tree, d.Source)})
}

// ApplyEdit applies a single text replacement given as an LSP range plus
// replacement text. If the edit's range overlaps a fenced-block boundary
// (entering, leaving, adding, or removing a ```thalo fence), the whole
// document is reparsed; otherwise only the containing block is reparsed in
// place. Pure Markdown prose edits outside any Thalo block only shift
// subsequent blocks' source maps.
func (d *Document) ApplyEdit(rng lsp.Range, newText string) {
	edit := cst.ComputeEdit(d.LineIndex, rng.Start.Line, rng.Start.Character, rng.End.Line, rng.End.Character, newText)
	newSource := splice(d.Source, edit.StartIndex, edit.OldEndIndex, newText)

	if d.FileType != parser.FileTypeMarkdown {
		d.Source = newSource
		d.reparseAll()
		return
	}

	block, blockIdx := d.blockContaining(edit.StartIndex)
	if crossesFenceBoundary(d.Source, edit) {
		d.Source = newSource
		d.reparseAll()
		return
	}

	d.Source = newSource
	if block == nil {
		blocks := parser.ScanMarkdownBlocks(d.Source)
		if len(blocks) != len(d.Blocks) {
			d.reparseAll()
			return
		}
		d.LineIndex = cst.NewLineIndex(d.Source)
		for i := range blocks {
			d.Blocks[i].SourceMap = blocks[i].SourceMap
		}
		return
	}
	d.reparseBlock(blockIdx, edit)
}

// reparseBlock re-parses the block at idx in isolation and shifts every
// later block's source map by the edit's line/byte delta, avoiding a full
// document reparse for edits confined to one fenced block's interior.
func (d *Document) reparseBlock(idx int, edit cst.EditRange) {
	blocks := parser.ScanMarkdownBlocks(d.Source)
	if len(blocks) != len(d.Blocks) {
		d.reparseAll()
		return
	}
	b := blocks[idx]
	tree := cst.NewParser().Parse(b.Source)
	d.Blocks[idx] = Block{Tree: tree, Source: b.Source, SourceMap: b.SourceMap, File: ast.Extract(tree, b.Source)}
	d.LineIndex = cst.NewLineIndex(d.Source)
	for i := idx + 1; i < len(blocks) && i < len(d.Blocks); i++ {
		d.Blocks[i].SourceMap = blocks[i].SourceMap
	}
}

func (d *Document) blockContaining(offset uint32) (*Block, int) {
	for i := range d.Blocks {
		start := d.Blocks[i].SourceMap.CharOffset
		end := start + uint32(len(d.Blocks[i].Source))
		if offset >= start && offset <= end {
			return &d.Blocks[i], i
		}
	}
	return nil, -1
}

// crossesFenceBoundary reports whether the edit range touches a fence
// delimiter line, conservatively forcing a full reparse whenever a ``` line
// is itself being edited.
func crossesFenceBoundary(newSource []byte, edit cst.EditRange) bool {
	li := cst.NewLineIndex(newSource)
	for row := edit.StartPosition.Row; row <= edit.NewEndPosition.Row && int(row) < li.LineCount(); row++ {
		start, end := li.GetLineStart(int(row)), li.GetLineEnd(int(row))
		line := string(newSource[start:end])
		if len(line) >= 3 && line[:3] == "```" {
			return true
		}
	}
	return false
}

// ReplaceContent replaces the document's entire contents and reparses from
// scratch (used for didChange notifications carrying a full-text sync, or
// for reverting to an on-disk version).
func (d *Document) ReplaceContent(content []byte) {
	d.Source = content
	d.reparseAll()
}

func splice(src []byte, start, end uint32, newText string) []byte {
	out := make([]byte, 0, int(start)+len(newText)+len(src)-int(end))
	out = append(out, src[:start]...)
	out = append(out, []byte(newText)...)
	out = append(out, src[end:]...)
	return out
}
