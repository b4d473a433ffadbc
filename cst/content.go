package cst

const metadataIndent = 2

// parseMetadataAndContent consumes the body lines [start,end) of a
// data_entry/synthesis_entry/actualize_entry: metadata_field* followed by
// an optional content block. Metadata lines are recognized by shape
// ("  name: value"); the first line that doesn't match ends the metadata
// phase. actualize_entry bodies never carry content,
// so allowContent lets the caller suppress that phase.
func (b *builder) parseMetadataAndContent(start, end int, entry *Node, allowContent bool) {
	line := start
	for line < end {
		text := b.lineText(line)
		if isBlank(text) {
			line++
			continue
		}
		key, ok := matchMetadataKey(text)
		if !ok {
			break
		}
		lineStart := b.li.GetLineStart(line)
		i := metadataIndent
		keyEnd := i + len(key)
		field := newSpan("metadata_field", lineStart+uint32(i), b.li.GetLineEnd(line), b.li)
		field.AddChild("key", newSpan("identifier", lineStart+uint32(i), lineStart+uint32(keyEnd), b.li))
		colon := keyEnd
		valStart := scanSpaces(text, colon+1)
		field.AddChild("value", parseValue(text, valStart, lineStart, b.li))
		entry.AddChild("", field)
		line++
	}
	if !allowContent || line >= end {
		if line < end {
			entry.AddChild("", b.wrapErrorLines(line, end))
		}
		return
	}
	// Trim trailing blank lines from the content span.
	contentEnd := end
	for contentEnd > line && isBlank(b.lineText(contentEnd-1)) {
		contentEnd--
	}
	if contentEnd <= line {
		return
	}
	s := b.li.GetLineStart(line)
	e := b.li.GetLineEnd(contentEnd - 1)
	entry.AddChild("content", newSpan("content", s, e, b.li))
}

// matchMetadataKey recognizes a "  key: value" line and returns the key
// text. Indentation must be exactly metadataIndent spaces and the key must
// look like an identifier immediately followed by ':'.
func matchMetadataKey(text string) (string, bool) {
	if leadingSpaces(text) != metadataIndent {
		return "", false
	}
	rest := text[metadataIndent:]
	if rest == "" || !isIdentStart(rest[0]) {
		return "", false
	}
	end := scanIdent(rest, 0)
	if end >= len(rest) || rest[end] != ':' {
		return "", false
	}
	return rest[:end], true
}
