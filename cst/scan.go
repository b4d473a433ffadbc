package cst

// Low-level rune-class helpers shared by the header, value, and type
// expression scanners. Thalo source is restricted to ASCII identifiers and
// punctuation, so byte-level scanning is sufficient.

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentChar(b byte) bool {
	return isIdentStart(b) || isDigit(b) || b == '-'
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return false
		}
	}
	return true
}

// scanIdent scans an identifier (ident_chars) starting at i and returns the
// end index.
func scanIdent(s string, i int) int {
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	return i
}

// scanSpaces consumes zero or more ' ' characters starting at i and returns
// the index of the first non-space byte.
func scanSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

// scanQuoted scans a `"..."` title/string literal starting at the opening
// quote (s[i] == '"') and returns the index one past the closing quote, or
// -1 if unterminated.
func scanQuoted(s string, i int) int {
	if i >= len(s) || s[i] != '"' {
		return -1
	}
	j := i + 1
	for j < len(s) && s[j] != '"' && s[j] != '\n' {
		j++
	}
	if j >= len(s) || s[j] != '"' {
		return -1
	}
	return j + 1
}

// scanTimestamp attempts to match a YYYY-MM-DDTHH:MM(:SS)?(Z|±HH:MM)?
// timestamp starting at i and returns the end index and whether it matched
// at least the mandatory YYYY-MM-DDTHH:MM portion.
func scanTimestamp(s string, i int) (end int, ok bool) {
	start := i
	need := func(n int) bool { return i+n <= len(s) }
	digits := func(n int) bool {
		if !need(n) {
			return false
		}
		for k := 0; k < n; k++ {
			if !isDigit(s[i+k]) {
				return false
			}
		}
		return true
	}
	if !digits(4) {
		return start, false
	}
	i += 4
	if i >= len(s) || s[i] != '-' {
		return start, false
	}
	i++
	if !digits(2) {
		return start, false
	}
	i += 2
	if i >= len(s) || s[i] != '-' {
		return start, false
	}
	i++
	if !digits(2) {
		return start, false
	}
	i += 2
	if i >= len(s) || s[i] != 'T' {
		return start, false
	}
	i++
	if !digits(2) {
		return start, false
	}
	i += 2
	if i >= len(s) || s[i] != ':' {
		return start, false
	}
	i++
	if !digits(2) {
		return start, false
	}
	i += 2

	// optional :SS
	if i+2 < len(s) && s[i] == ':' && digits2At(s, i+1) {
		i += 3
	}
	// optional Z or ±HH:MM
	if i < len(s) && s[i] == 'Z' {
		i++
	} else if i < len(s) && (s[i] == '+' || s[i] == '-') {
		if j := i + 1; j+4 < len(s)+1 && digits2At(s, j) && j+2 < len(s) && s[j+2] == ':' && digits2At(s, j+3) {
			i = j + 5
		}
	}
	return i, true
}

func digits2At(s string, i int) bool {
	return i+1 < len(s) && isDigit(s[i]) && isDigit(s[i+1])
}
