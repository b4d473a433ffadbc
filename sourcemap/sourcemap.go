// Package sourcemap translates locations produced while parsing an embedded
// block (a fenced ```thalo block inside a Markdown document, or any future
// non-top-level source) back into file-absolute line/column/offset
// coordinates.
package sourcemap

import "github.com/thalo-lang/thalo/cst"

// Map carries the shift from block-relative to file-absolute coordinates.
// A Map is immutable once constructed; a new one is built whenever a block's
// position within its host file changes.
type Map struct {
	CharOffset   uint32
	LineOffset   uint32
	ColumnOffset uint32
	LineCount    int
}

// Identity returns a Map representing a block that already occupies the
// whole file (a standalone .thalo file, for example), where block-relative
// coordinates are already file-absolute.
func Identity() Map {
	return Map{}
}

// New builds a Map for a block beginning at file-absolute charOffset,
// line/column lineOffset/columnOffset, and spanning lineCount lines.
func New(charOffset, lineOffset, columnOffset uint32, lineCount int) Map {
	return Map{CharOffset: charOffset, LineOffset: lineOffset, ColumnOffset: columnOffset, LineCount: lineCount}
}

// ToFilePoint translates a block-relative point into a file-absolute one.
// Only the first line of the block picks up the column offset: subsequent
// lines of the block start at column 0 of their own file line, so their
// column is used unshifted.
func (m Map) ToFilePoint(p cst.Point) cst.Point {
	row := p.Row + m.LineOffset
	col := p.Column
	if p.Row == 0 {
		col += m.ColumnOffset
	}
	return cst.Point{Row: row, Column: col}
}

// ToFileOffset translates a block-relative byte offset into a file-absolute
// one.
func (m Map) ToFileOffset(offset uint32) uint32 {
	return offset + m.CharOffset
}

// Location is a resolved file-absolute span, ready to surface in a
// diagnostic or a findDefinition/findReferences result.
type Location struct {
	StartPoint cst.Point
	EndPoint   cst.Point
	StartByte  uint32
	EndByte    uint32
}

// ToFileLocation resolves a block-relative [start,end) node span into a
// file-absolute Location.
func (m Map) ToFileLocation(start, end uint32, startPoint, endPoint cst.Point) Location {
	return Location{
		StartPoint: m.ToFilePoint(startPoint),
		EndPoint:   m.ToFilePoint(endPoint),
		StartByte:  m.ToFileOffset(start),
		EndByte:    m.ToFileOffset(end),
	}
}
