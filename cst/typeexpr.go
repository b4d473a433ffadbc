package cst

import "strings"

var primitiveTypes = map[string]bool{
	"string": true, "datetime": true, "date-range": true, "link": true, "number": true, "boolean": true,
}

// parseTypeExpression parses a type expression occupying text[i:end]
// (union := array ("|" array)*; array := primitive|literal ("[]")?) and
// returns the resulting node. Unknown primitive names produce an
// ERROR node, which propagates through any enclosing
// array_type/union_type the same way a tree-sitter ERROR node propagates to
// its parent.
func parseTypeExpression(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	parts := splitTopLevel(text[i:end], '|')
	if len(parts) == 1 {
		return parseArrayType(text, i, end, absBase, li)
	}
	n := newSpan("union_type", absBase+uint32(i), absBase+uint32(end), li)
	offset := i
	for _, part := range parts {
		child := parseArrayType(text, offset, offset+len(part), absBase, li)
		n.AddChild("", child)
		if child.IsError() {
			return propagateTypeError(child, absBase+uint32(i), absBase+uint32(end), li)
		}
		offset += len(part) + 1 // +1 for the '|' separator
	}
	return n
}

func parseArrayType(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	trimmed := strings.TrimSpace(text[i:end])
	lead := i + (len(text[i:end]) - len(strings.TrimLeft(text[i:end], " ")))
	base := trimmed
	isArray := strings.HasSuffix(base, "[]")
	elemText := base
	if isArray {
		elemText = strings.TrimSuffix(base, "[]")
	}
	elemEnd := lead + len(elemText)
	elem := parsePrimitiveOrLiteral(text, lead, elemEnd, absBase, li)
	if !isArray {
		return elem
	}
	n := newSpan("array_type", absBase+uint32(i), absBase+uint32(end), li)
	n.AddChild("element", elem)
	if elem.IsError() {
		return propagateTypeError(elem, absBase+uint32(i), absBase+uint32(end), li)
	}
	return n
}

func parsePrimitiveOrLiteral(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	if i < end && text[i] == '"' {
		closeAt := scanQuoted(text, i)
		if closeAt == -1 || closeAt != end {
			return newError(absBase+uint32(i), absBase+uint32(end), li)
		}
		return newSpan("literal_type", absBase+uint32(i), absBase+uint32(end), li)
	}
	name := text[i:end]
	if !primitiveTypes[name] {
		return newError(absBase+uint32(i), absBase+uint32(end), li)
	}
	return newSpan("primitive_type", absBase+uint32(i), absBase+uint32(end), li)
}

// propagateTypeError wraps a nested ERROR node so the enclosing
// array_type/union_type resolves to the same kind of unparseable node,
// matching the "unknown_type propagates through the whole expression"
// invariant.
func propagateTypeError(inner *Node, start, end uint32, li *LineIndex) *Node {
	n := newError(start, end, li)
	n.AddChild("cause", inner)
	return n
}

// splitTopLevel splits s on sep, ignoring separators inside double-quoted
// literals (so a literal type such as "a|b" stays one part). Brackets are
// not tracked.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
