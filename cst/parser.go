package cst

// Parser produces a Tree from Thalo source. It holds no mutable state
// across calls; a single Parser value is safe to reuse sequentially (but,
// like a real tree-sitter Parser, is not safe for concurrent use).
type Parser struct{}

// NewParser returns a ready-to-use Parser.
func NewParser() *Parser { return &Parser{} }

// Parse builds a fresh tree from src.
func (p *Parser) Parse(src []byte) *Tree {
	li := NewLineIndex(src)
	b := &builder{src: src, li: li}
	return &Tree{root: b.parseSourceFile()}
}

// ParseIncremental re-parses src, taking old as a hint. The hand-written
// parser does not reuse old's subtrees (see DESIGN.md's "dropped
// dependency" note) but accepts old to keep the same call shape callers use
// against a real tree-sitter grammar; old may be nil.
func (p *Parser) ParseIncremental(src []byte, old *Tree) *Tree {
	return p.Parse(src)
}

type builder struct {
	src []byte
	li  *LineIndex
}

func (b *builder) lineText(line int) string {
	start := b.li.GetLineStart(line)
	end := b.li.GetLineEnd(line)
	return string(b.src[start:end])
}

func (b *builder) parseSourceFile() *Node {
	total := uint32(len(b.src))
	root := newSpan("source_file", 0, total, b.li)
	nLines := b.li.LineCount()
	line := 0
	for line < nLines {
		text := b.lineText(line)
		if isBlank(text) {
			line++
			continue
		}
		if leadingSpaces(text) == 0 {
			if _, ok := scanTimestamp(text, 0); ok {
				entry, next := b.parseEntry(line)
				root.AddChild("", entry)
				line = next
				continue
			}
		}
		next := b.topLevelErrorEnd(line)
		root.AddChild("", b.wrapErrorLines(line, next))
		line = next
	}
	return root
}

// topLevelErrorEnd scans forward from an unrecognized top-level line until
// the next line that looks like a valid entry header (timestamp at column
// 0), or EOF.
func (b *builder) topLevelErrorEnd(line int) int {
	n := b.li.LineCount()
	line++
	for line < n {
		text := b.lineText(line)
		if leadingSpaces(text) == 0 && !isBlank(text) {
			if _, ok := scanTimestamp(text, 0); ok {
				return line
			}
		}
		line++
	}
	return n
}

// bodyEnd returns the exclusive end line of the body belonging to a header
// on headerLine: all subsequent lines that are blank or indented, stopping
// at the next line with zero indentation and non-blank content, or EOF.
func (b *builder) bodyEnd(headerLine int) int {
	n := b.li.LineCount()
	line := headerLine + 1
	for line < n {
		text := b.lineText(line)
		if isBlank(text) {
			line++
			continue
		}
		if leadingSpaces(text) == 0 {
			break
		}
		line++
	}
	return line
}

func (b *builder) parseEntry(headerLine int) (*Node, int) {
	header, kind, ok := b.parseHeader(headerLine)
	end := b.bodyEnd(headerLine)
	if !ok {
		errNode := b.wrapErrorLines(headerLine, end)
		errNode.AddChild("header", header)
		return errNode, end
	}
	entry := newSpan(kind, header.StartByte(), b.li.GetLineEnd(end-1), b.li)
	entry.AddChild("header", header)
	switch kind {
	case "schema_entry":
		b.parseSchemaBlocks(headerLine+1, end, entry)
	case "actualize_entry":
		b.parseMetadataAndContent(headerLine+1, end, entry, false)
	default: // data_entry, synthesis_entry
		b.parseMetadataAndContent(headerLine+1, end, entry, true)
	}
	return entry, end
}
