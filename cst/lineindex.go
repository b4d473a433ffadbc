package cst

import "sort"

// LineIndex precomputes line-start offsets for O(log n) offset<->position
// conversion (spec component C1). Positions are zero-based (row, column);
// out-of-range inputs clamp to the nearest valid position.
type LineIndex struct {
	source     []byte
	lineStarts []uint32
}

// NewLineIndex scans source once for newline bytes and builds the index.
func NewLineIndex(source []byte) *LineIndex {
	starts := []uint32{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return &LineIndex{source: source, lineStarts: starts}
}

// LineCount returns the number of lines (always >= 1).
func (li *LineIndex) LineCount() int { return len(li.lineStarts) }

// GetLineStart returns the byte offset of the first character of line.
func (li *LineIndex) GetLineStart(line int) uint32 {
	if line < 0 {
		line = 0
	}
	if line >= len(li.lineStarts) {
		line = len(li.lineStarts) - 1
	}
	return li.lineStarts[line]
}

// GetLineEnd returns the byte offset just past the last character of line,
// excluding the trailing newline.
func (li *LineIndex) GetLineEnd(line int) uint32 {
	start := li.GetLineStart(line)
	if line+1 < len(li.lineStarts) {
		end := li.lineStarts[line+1]
		if end > start && li.source[end-1] == '\n' {
			return end - 1
		}
		return end
	}
	return uint32(len(li.source))
}

// OffsetToPosition converts a byte offset into a (row, column) position.
func (li *LineIndex) OffsetToPosition(offset uint32) Point {
	if offset > uint32(len(li.source)) {
		offset = uint32(len(li.source))
	}
	// Find the last line whose start is <= offset.
	row := sort.Search(len(li.lineStarts), func(i int) bool {
		return li.lineStarts[i] > offset
	}) - 1
	if row < 0 {
		row = 0
	}
	col := offset - li.lineStarts[row]
	return Point{Row: uint32(row), Column: col}
}

// PositionToOffset converts a (row, column) position into a byte offset.
func (li *LineIndex) PositionToOffset(p Point) uint32 {
	row := int(p.Row)
	if row < 0 {
		row = 0
	}
	if row >= len(li.lineStarts) {
		row = len(li.lineStarts) - 1
	}
	start := li.lineStarts[row]
	end := li.GetLineEnd(row)
	offset := start + p.Column
	if offset > end {
		offset = end
	}
	return offset
}

// EditRange is the byte/point range a text edit affects, shaped for
// feeding directly into an incremental parse.
type EditRange struct {
	StartIndex    uint32
	OldEndIndex   uint32
	NewEndIndex   uint32
	StartPosition Point
	OldEndPosition Point
	NewEndPosition Point
}

// ComputeEdit translates a (startLine,startCol)-(endLine,endCol) replacement
// range plus the replacement text into byte-offset edit coordinates. The
// new end position is computed by scanning newText for newlines.
func ComputeEdit(li *LineIndex, startLine, startCol, endLine, endCol int, newText string) EditRange {
	startPos := Point{Row: uint32(startLine), Column: uint32(startCol)}
	oldEndPos := Point{Row: uint32(endLine), Column: uint32(endCol)}
	startIndex := li.PositionToOffset(startPos)
	oldEndIndex := li.PositionToOffset(oldEndPos)
	if oldEndIndex < startIndex {
		oldEndIndex = startIndex
	}

	newEndIndex := startIndex + uint32(len(newText))
	newEndPos := startPos
	lastNL := -1
	row := startPos.Row
	for i, b := range []byte(newText) {
		if b == '\n' {
			row++
			lastNL = i
		}
	}
	if lastNL == -1 {
		newEndPos = Point{Row: row, Column: startPos.Column + uint32(len(newText))}
	} else {
		newEndPos = Point{Row: row, Column: uint32(len(newText) - lastNL - 1)}
	}

	return EditRange{
		StartIndex:     startIndex,
		OldEndIndex:    oldEndIndex,
		NewEndIndex:    newEndIndex,
		StartPosition:  startPos,
		OldEndPosition: oldEndPos,
		NewEndPosition: newEndPos,
	}
}
