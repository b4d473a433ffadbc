package cst

import "strings"

const schemaBlockIndent = 2
const schemaDefIndent = 4

var schemaBlockKinds = map[string]string{
	"Metadata":        "metadata_block",
	"Sections":        "sections_block",
	"Remove Metadata": "remove_metadata_block",
	"Remove Sections": "remove_sections_block",
}

// parseSchemaBlocks consumes the body lines [start,end) of a define-entity
// or alter-entity entry, producing one schema_block child per "  # Name"
// heading.
func (b *builder) parseSchemaBlocks(start, end int, entry *Node) int {
	line := start
	for line < end {
		text := b.lineText(line)
		if isBlank(text) {
			line++
			continue
		}
		name, ok := matchBlockHeading(text)
		if !ok {
			entry.AddChild("", b.wrapErrorLines(line, line+1))
			line++
			continue
		}
		kind, known := schemaBlockKinds[name]
		lineStart := b.li.GetLineStart(line)
		headEnd := b.li.GetLineEnd(line)
		if !known {
			kind = ErrorNodeType
		}
		defStart := line + 1
		defEnd := defStart
		for defEnd < end {
			t := b.lineText(defEnd)
			if isBlank(t) {
				defEnd++
				continue
			}
			if leadingSpaces(t) < schemaDefIndent {
				break
			}
			defEnd++
		}
		blockEndByte := headEnd
		if defEnd > defStart {
			blockEndByte = b.li.GetLineEnd(defEnd - 1)
		}
		block := newSpan(kind, lineStart, blockEndByte, b.li)
		switch name {
		case "Metadata":
			b.parseFieldDefs(defStart, defEnd, block)
		case "Sections":
			b.parseSectionDefs(defStart, defEnd, block)
		case "Remove Metadata", "Remove Sections":
			b.parseNameDefs(defStart, defEnd, block)
		}
		entry.AddChild("", block)
		line = defEnd
	}
	return end
}

func matchBlockHeading(text string) (name string, ok bool) {
	if leadingSpaces(text) != schemaBlockIndent {
		return "", false
	}
	rest := text[schemaBlockIndent:]
	if !strings.HasPrefix(rest, "# ") {
		return "", false
	}
	return strings.TrimRight(rest[2:], " \t\r"), true
}

// parseFieldDefs parses "name: type", "name?: type", optional "= default"
// and "-- description" suffixes, one per line.
func (b *builder) parseFieldDefs(start, end int, block *Node) {
	for line := start; line < end; line++ {
		text := b.lineText(line)
		if isBlank(text) {
			continue
		}
		lineStart := b.li.GetLineStart(line)
		i := leadingSpaces(text)
		nameStart := i
		i = scanIdent(text, i)
		nameEnd := i
		optional := false
		if i < len(text) && text[i] == '?' {
			optional = true
			i++
		}
		def := newSpan("field_def", lineStart+uint32(nameStart), b.li.GetLineEnd(line), b.li)
		def.AddChild("name", newSpan("identifier", lineStart+uint32(nameStart), lineStart+uint32(nameEnd), b.li))
		if optional {
			def.AddChild("", newAnon("optional_marker", lineStart+uint32(nameEnd), lineStart+uint32(nameEnd+1), b.li))
		}
		if i < len(text) && text[i] == ':' {
			i = scanSpaces(text, i+1)
			typeEnd := findSuffix(text, i, "=", "--")
			typeNode := parseTypeExpression(text, i, typeEnd, lineStart, b.li)
			def.AddChild("type", typeNode)
			i = typeEnd
		}
		i = scanSpaces(text, i)
		if strings.HasPrefix(text[min(i, len(text)):], "=") {
			i = scanSpaces(text, i+1)
			valEnd := findSuffix(text, i, "--", "")
			valText := text
			if valEnd >= i {
				valText = text[:valEnd]
			}
			def.AddChild("default", parseValue(valText, i, lineStart, b.li))
			i = valEnd
		}
		if d := strings.Index(text[min(i, len(text)):], "--"); d >= 0 {
			descStart := i + d + 2
			descStart = scanSpaces(text, descStart)
			def.AddChild("description", newSpan("quoted_value", lineStart+uint32(descStart), b.li.GetLineEnd(line), b.li))
		}
		block.AddChild("", def)
	}
}

// parseSectionDefs parses "name" / "name?" with optional "-- description".
func (b *builder) parseSectionDefs(start, end int, block *Node) {
	for line := start; line < end; line++ {
		text := b.lineText(line)
		if isBlank(text) {
			continue
		}
		lineStart := b.li.GetLineStart(line)
		i := leadingSpaces(text)
		nameStart := i
		i = scanIdent(text, i)
		nameEnd := i
		optional := false
		if i < len(text) && text[i] == '?' {
			optional = true
			i++
		}
		def := newSpan("section_def", lineStart+uint32(nameStart), b.li.GetLineEnd(line), b.li)
		def.AddChild("name", newSpan("identifier", lineStart+uint32(nameStart), lineStart+uint32(nameEnd), b.li))
		if optional {
			def.AddChild("", newAnon("optional_marker", lineStart+uint32(nameEnd), lineStart+uint32(nameEnd+1), b.li))
		}
		if d := strings.Index(text[min(i, len(text)):], "--"); d >= 0 {
			descStart := i + d + 2
			descStart = scanSpaces(text, descStart)
			def.AddChild("description", newSpan("quoted_value", lineStart+uint32(descStart), b.li.GetLineEnd(line), b.li))
		}
		block.AddChild("", def)
	}
}

// parseNameDefs parses bare "name" lines used by the Remove Metadata /
// Remove Sections blocks.
func (b *builder) parseNameDefs(start, end int, block *Node) {
	for line := start; line < end; line++ {
		text := b.lineText(line)
		if isBlank(text) {
			continue
		}
		lineStart := b.li.GetLineStart(line)
		i := leadingSpaces(text)
		nameEnd := scanIdent(text, i)
		block.AddChild("", newSpan("identifier", lineStart+uint32(i), lineStart+uint32(nameEnd), b.li))
	}
}

// findSuffix returns the index of the first occurrence of sep1 (or sep2, if
// non-empty) at or after i, or the trimmed line length if neither occurs.
func findSuffix(text string, i int, sep1, sep2 string) int {
	trimmed := strings.TrimRight(text, " \t\r")
	end := len(trimmed)
	best := end
	if idx := strings.Index(text[min(i, len(text)):], sep1); idx >= 0 {
		cand := i + idx
		if cand < best {
			best = cand
		}
	}
	if sep2 != "" {
		if idx := strings.Index(text[min(i, len(text)):], sep2); idx >= 0 {
			cand := i + idx
			if cand < best {
				best = cand
			}
		}
	}
	for best > i && text[best-1] == ' ' {
		best--
	}
	return best
}

// wrapErrorLines wraps the byte range of lines [start,end) in an ERROR node.
func (b *builder) wrapErrorLines(start, end int) *Node {
	s := b.li.GetLineStart(start)
	e := b.li.GetLineEnd(end - 1)
	return newError(s, e, b.li)
}
