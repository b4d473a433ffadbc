package cst

import "strings"

var directiveKinds = map[string]string{
	"create":              "data_entry",
	"update":               "data_entry",
	"define-entity":        "schema_entry",
	"alter-entity":         "schema_entry",
	"define-synthesis":     "synthesis_entry",
	"actualize-synthesis":  "actualize_entry",
}

// argumentIsLink reports whether the directive's argument token is a link
// (^id) rather than a bare identifier.
func argumentIsLink(directive string) bool {
	return directive == "define-synthesis" || directive == "actualize-synthesis"
}

// parseHeader parses the header line starting at line (already known to
// begin with a timestamp at column 0) and returns the header node plus the
// entry kind the directive selects. ok is false if the directive word is
// not recognized, in which case the caller wraps the whole line as an
// ERROR region.
func (b *builder) parseHeader(line int) (header *Node, entryKind string, ok bool) {
	text := b.lineText(line)
	lineStart := b.li.GetLineStart(line)

	tsEnd, _ := scanTimestamp(text, 0)
	headerEnd := uint32(len(strings.TrimRight(text, " \t\r")))
	header = newSpan("header", lineStart, lineStart+headerEnd, b.li)
	header.AddChild("timestamp", newSpan("timestamp", lineStart, lineStart+uint32(tsEnd), b.li))

	cursor := scanSpaces(text, tsEnd)
	if cursor == tsEnd {
		return header, "", false
	}
	dirStart := cursor
	cursor = scanIdent(text, cursor)
	directive := text[dirStart:cursor]
	kind, known := directiveKinds[directive]
	if !known {
		return header, "", false
	}
	header.AddChild("directive", newAnon("directive", lineStart+uint32(dirStart), lineStart+uint32(cursor), b.li))

	cursor = scanSpaces(text, cursor)

	// argument (optional for create/update/define-entity/alter-entity;
	// mandatory link for the synthesis directives)
	if cursor < len(text) && text[cursor] != '"' && text[cursor] != '#' {
		if argumentIsLink(directive) {
			if cursor < len(text) && text[cursor] == '^' {
				argEnd := scanIdent(text, cursor+1)
				header.AddChild("argument", newSpan("link_value", lineStart+uint32(cursor), lineStart+uint32(argEnd), b.li))
				cursor = scanSpaces(text, argEnd)
			}
		} else if cursor < len(text) && text[cursor] != '^' && isIdentStart(text[cursor]) {
			argEnd := scanIdent(text, cursor)
			header.AddChild("argument", newSpan("identifier", lineStart+uint32(cursor), lineStart+uint32(argEnd), b.li))
			cursor = scanSpaces(text, argEnd)
		}
	}

	// remaining tokens: title, explicit link, tags, in any order
	for cursor < len(text) {
		switch text[cursor] {
		case '"':
			qEnd := scanQuoted(text, cursor)
			if qEnd == -1 {
				qEnd = len(text)
			}
			header.AddChild("title", newSpan("quoted_value", lineStart+uint32(cursor), lineStart+uint32(qEnd), b.li))
			cursor = scanSpaces(text, qEnd)
		case '^':
			lEnd := scanIdent(text, cursor+1)
			header.AddChild("link", newSpan("link_value", lineStart+uint32(cursor), lineStart+uint32(lEnd), b.li))
			cursor = scanSpaces(text, lEnd)
		case '#':
			tEnd := scanIdent(text, cursor+1)
			header.AddChild("", newSpan("tag", lineStart+uint32(cursor), lineStart+uint32(tEnd), b.li))
			cursor = scanSpaces(text, tEnd)
		default:
			// Unrecognized trailing token: fold the remainder into an ERROR
			// child so the rest of the header (already parsed) stays usable.
			header.AddChild("", newError(lineStart+uint32(cursor), lineStart+headerEnd, b.li))
			return header, kind, true
		}
	}
	return header, kind, true
}
