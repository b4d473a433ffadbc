// Package parser is the parse driver: it decides whether a
// file is pure Thalo or Markdown-with-embedded-Thalo-blocks, scans fenced
// blocks out of Markdown, and drives cst.Parser over each block.
package parser

import (
	"strings"

	"github.com/thalo-lang/thalo/cst"
	"github.com/thalo-lang/thalo/sourcemap"
)

// FileType names how a document's bytes should be split into Thalo blocks.
type FileType int

const (
	// FileTypeUnknown means no type was given; DetectFileType then falls
	// back to the filename suffix and, failing that, content sniffing.
	FileTypeUnknown FileType = iota
	FileTypeThalo
	FileTypeMarkdown
)

// DetectFileType resolves a file's type using, in order: an explicit
// caller-supplied hint, the filename suffix, then content sniffing
// (explicit language wins, otherwise infer from what's on disk).
func DetectFileType(filename string, content []byte, hint FileType) FileType {
	if hint != FileTypeUnknown {
		return hint
	}
	switch {
	case strings.HasSuffix(filename, ".thalo"):
		return FileTypeThalo
	case strings.HasSuffix(filename, ".md"), strings.HasSuffix(filename, ".markdown"):
		return FileTypeMarkdown
	}
	return sniffContent(content)
}

func sniffContent(content []byte) FileType {
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			return FileTypeMarkdown
		}
		return FileTypeThalo
	}
	return FileTypeThalo
}

// Block is one ```thalo fenced block scanned out of a Markdown document:
// its inner source and the source map placing it within the file.
type Block struct {
	Source    []byte
	SourceMap sourcemap.Map
}

// Parse parses a pure-Thalo file into a single block and its tree.
func Parse(content []byte) (*cst.Tree, sourcemap.Map) {
	return cst.NewParser().Parse(content), sourcemap.Identity()
}

// ParseIncremental re-parses a pure-Thalo file, taking the previous tree as
// a hint (see cst.Parser.ParseIncremental).
func ParseIncremental(content []byte, old *cst.Tree) (*cst.Tree, sourcemap.Map) {
	return cst.NewParser().ParseIncremental(content, old), sourcemap.Identity()
}

// ScanMarkdownBlocks extracts every ```thalo ... ``` fenced block from a
// Markdown document using a line-oriented scan (not a regex with unbounded
// lookbehind, which cannot safely bound fence-matching across an arbitrarily
// large document).
func ScanMarkdownBlocks(content []byte) []Block {
	lines := strings.Split(string(content), "\n")
	var blocks []Block
	lineStart := 0
	offset := 0
	for lineStart < len(lines) {
		line := lines[lineStart]
		fenceIndent := strings.TrimSpace(line)
		if strings.HasPrefix(fenceIndent, "```") && isThaloFence(fenceIndent) {
			bodyStartLine := lineStart + 1
			bodyLineOffset := offset + len(line) + 1
			end := bodyStartLine
			bodyOffset := bodyLineOffset
			var bodyLines []string
			for end < len(lines) && strings.TrimSpace(lines[end]) != "```" {
				bodyLines = append(bodyLines, lines[end])
				bodyOffset += len(lines[end]) + 1
				end++
			}
			body := strings.Join(bodyLines, "\n")
			if len(bodyLines) > 0 {
				body += "\n"
			}
			blocks = append(blocks, Block{
				Source:    []byte(body),
				SourceMap: sourcemap.New(uint32(bodyLineOffset), uint32(bodyStartLine), 0, len(bodyLines)),
			})
			if end < len(lines) {
				end++ // consume closing fence
			}
			for k := lineStart; k < end && k < len(lines); k++ {
				offset += len(lines[k]) + 1
			}
			lineStart = end
			continue
		}
		offset += len(line) + 1
		lineStart++
	}
	return blocks
}

func isThaloFence(fenceLine string) bool {
	lang := strings.TrimSpace(strings.TrimPrefix(fenceLine, "```"))
	return lang == "thalo"
}

// ParseMarkdown parses every thalo-fenced block in a Markdown document.
func ParseMarkdown(content []byte) []ParsedBlock {
	blocks := ScanMarkdownBlocks(content)
	out := make([]ParsedBlock, len(blocks))
	p := cst.NewParser()
	for i, b := range blocks {
		out[i] = ParsedBlock{Tree: p.Parse(b.Source), Source: b.Source, SourceMap: b.SourceMap}
	}
	return out
}

// ParsedBlock bundles one Markdown-embedded block's tree, source bytes, and
// source map.
type ParsedBlock struct {
	Tree      *cst.Tree
	Source    []byte
	SourceMap sourcemap.Map
}
