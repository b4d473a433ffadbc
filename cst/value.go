package cst

import "strings"

// parseValue parses a single metadata value occupying the remainder of a
// line (text[i:]) and returns the value node (values never span lines).
// absBase is the absolute
// byte offset of text[0] in the source, used to produce node offsets.
func parseValue(text string, i int, absBase uint32, li *LineIndex) *Node {
	i = scanSpaces(text, i)
	raw := strings.TrimRight(text[i:], " \t")
	if raw == "" {
		start := absBase + uint32(i)
		return newLeaf("quoted_value", start, start, li)
	}
	end := len(strings.TrimRight(text, " \t"))
	return classifyValue(text, i, end, absBase, li)
}

func parseArrayElement(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	trimmedEnd := i
	for k := end; k > i; k-- {
		if text[k-1] != ' ' {
			trimmedEnd = k
			break
		}
	}
	return classifyValue(text, i, trimmedEnd, absBase, li)
}

func classifyValue(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	switch {
	case i < len(text) && text[i] == '[':
		return parseValueArray(text, i, end, absBase, li)
	case i < len(text) && text[i] == '"':
		return parseQuotedValue(text, i, absBase, li)
	case i < len(text) && text[i] == '^':
		return parseLinkValue(text, i, end, absBase, li)
	case looksLikeQuery(text[i:end]):
		return parseQueryValue(text, i, end, absBase, li)
	case looksLikeDateRange(text[i:end]):
		return newSpan("date_range", absBase+uint32(i), absBase+uint32(end), li)
	default:
		if tsEnd, ok := scanTimestamp(text, i); ok && tsEnd == end {
			return parseDatetimeValue(text, i, end, absBase, li)
		}
		if numEnd, ok := scanNumber(text, i); ok && numEnd == end {
			return newSpan("number_value", absBase+uint32(i), absBase+uint32(end), li)
		}
		// Lenient fallback: unrecognized shapes default to a QuotedValue
		// carrying the raw text.
		return newSpan("quoted_value", absBase+uint32(i), absBase+uint32(end), li)
	}
}

func parseQuotedValue(text string, i int, absBase uint32, li *LineIndex) *Node {
	end := scanQuoted(text, i)
	if end == -1 {
		end = len(text)
	}
	return newSpan("quoted_value", absBase+uint32(i), absBase+uint32(end), li)
}

func parseLinkValue(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	j := scanIdent(text, i+1)
	if j > end {
		j = end
	}
	return newSpan("link_value", absBase+uint32(i), absBase+uint32(j), li)
}

func parseDatetimeValue(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	n := newSpan("datetime_value", absBase+uint32(i), absBase+uint32(end), li)
	datePart := text[i:min(i+10, end)]
	n.AddChild("date", newSpan("date", absBase+uint32(i), absBase+uint32(i+len(datePart)), li))
	if end > i+11 {
		timeStart := i + 11
		timeEnd := timeStart
		for timeEnd < end && (isDigit(text[timeEnd]) || text[timeEnd] == ':') {
			timeEnd++
		}
		if timeEnd > timeStart {
			n.AddChild("time", newSpan("time", absBase+uint32(timeStart), absBase+uint32(timeEnd), li))
		}
		if timeEnd < end {
			n.AddChild("tz", newSpan("tz", absBase+uint32(timeEnd), absBase+uint32(end), li))
		}
	}
	return n
}

func parseValueArray(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	n := newSpan("value_array", absBase+uint32(i), absBase+uint32(end), li)
	j := i + 1
	for j < end {
		j = scanSpaces(text, j)
		if j < end && text[j] == ']' {
			j++
			break
		}
		if j < end && text[j] == ',' {
			j++
			continue
		}
		elemStart := j
		elemEnd := j
		depth := 0
		for elemEnd < end {
			c := text[elemEnd]
			if c == '[' {
				depth++
			} else if c == ']' {
				if depth == 0 {
					break
				}
				depth--
			} else if c == ',' && depth == 0 {
				break
			}
			elemEnd++
		}
		n.AddChild("", parseArrayElement(text, elemStart, elemEnd, absBase, li))
		j = elemEnd
	}
	return n
}

func parseQueryValue(text string, i, end int, absBase uint32, li *LineIndex) *Node {
	n := newSpan("query_value", absBase+uint32(i), absBase+uint32(end), li)
	entIdent := scanIdent(text, i)
	n.AddChild("entity", newSpan("identifier", absBase+uint32(i), absBase+uint32(entIdent), li))
	rest := strings.TrimLeft(text[entIdent:end], " ")
	whereIdx := strings.Index(rest, "where")
	if whereIdx < 0 {
		return n
	}
	condStart := entIdent + (len(text[entIdent:end]) - len(rest)) + whereIdx + len("where")
	condStart = scanSpaces(text, condStart)
	if condStart < end {
		n.AddChild("conditions", newSpan("query_conditions", absBase+uint32(condStart), absBase+uint32(end), li))
	}
	return n
}

func looksLikeQuery(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	j := scanIdent(s, 0)
	rest := strings.TrimLeft(s[j:], " ")
	return strings.HasPrefix(rest, "where ") || rest == "where"
}

func looksLikeDateRange(s string) bool {
	idx := strings.Index(s, "..")
	if idx <= 0 {
		return false
	}
	if _, ok := scanTimestamp(s, 0); !ok {
		return false
	}
	if _, ok := scanTimestamp(s, idx+2); !ok {
		return false
	}
	return true
}

func scanNumber(s string, i int) (int, bool) {
	start := i
	if i < len(s) && s[i] == '-' {
		i++
	}
	digitsStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == digitsStart {
		return start, false
	}
	if i < len(s) && s[i] == '.' {
		i++
		fracStart := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == fracStart {
			return start, false
		}
	}
	return i, true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
