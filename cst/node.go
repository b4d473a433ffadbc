// Package cst implements a concrete syntax tree for Thalo source that
// mirrors the node contract go-tree-sitter exposes for real grammars:
// byte-ranged nodes with named children, field names, and an incremental
// edit vocabulary. See DESIGN.md for why Thalo has a hand-written parser
// instead of a compiled tree-sitter grammar.
package cst

// Point is a (row, column) position, zero-based, matching tree-sitter's
// convention.
type Point struct {
	Row    uint32
	Column uint32
}

// Before reports whether p comes strictly before o.
func (p Point) Before(o Point) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Column < o.Column
}

// EditInput describes a single text edit in byte-offset and point form,
// shaped like go-tree-sitter's EditInput so callers migrating from a real
// grammar see the same vocabulary.
type EditInput struct {
	StartIndex  uint32
	OldEndIndex uint32
	NewEndIndex uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// ErrorNodeType is the type name used for unparseable spans, matching
// tree-sitter's own "ERROR" node convention.
const ErrorNodeType = "ERROR"

// Node is one concrete-syntax node. Nodes are owned by a Tree and never
// outlive it; callers needing a value that outlives the tree must copy the
// fields they need (typically via Content).
type Node struct {
	kind       string
	startByte  uint32
	endByte    uint32
	startPoint Point
	endPoint   Point
	named      bool
	missing    bool
	children   []*Node
	fields     map[string]int // field name -> index into children
}

// NewNode constructs a node. Exported for the parser package and for tests
// that build synthetic trees.
func NewNode(kind string, named bool, start, end uint32, startPt, endPt Point) *Node {
	return &Node{kind: kind, named: named, startByte: start, endByte: end, startPoint: startPt, endPoint: endPt}
}

// Type returns the grammar rule name (or token literal) this node
// represents.
func (n *Node) Type() string { return n.kind }

// StartByte returns the byte offset of the node's first byte.
func (n *Node) StartByte() uint32 { return n.startByte }

// EndByte returns the byte offset one past the node's last byte.
func (n *Node) EndByte() uint32 { return n.endByte }

// StartPoint returns the node's starting row/column.
func (n *Node) StartPoint() Point { return n.startPoint }

// EndPoint returns the node's ending row/column.
func (n *Node) EndPoint() Point { return n.endPoint }

// IsNamed reports whether this is a named rule node as opposed to an
// anonymous token (e.g. ":" or "^").
func (n *Node) IsNamed() bool { return n.named }

// IsMissing reports whether the node was synthesized to recover from a
// parse error (absent from the source).
func (n *Node) IsMissing() bool { return n.missing }

// IsError reports whether this node itself is an ERROR node (an
// unparseable span); HasError also looks at descendants.
func (n *Node) IsError() bool { return n.kind == ErrorNodeType }

// HasError reports whether this node or any descendant is an ERROR node.
func (n *Node) HasError() bool {
	if n.IsError() {
		return true
	}
	for _, c := range n.children {
		if c.HasError() {
			return true
		}
	}
	return false
}

// Content returns the substring of src this node spans.
func (n *Node) Content(src []byte) string {
	if int(n.endByte) > len(src) || n.startByte > n.endByte {
		return ""
	}
	return string(src[n.startByte:n.endByte])
}

// ChildCount returns the number of direct children (named and anonymous).
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the i-th direct child, or nil if out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// NamedChildCount returns the number of named children.
func (n *Node) NamedChildCount() int {
	count := 0
	for _, c := range n.children {
		if c.named {
			count++
		}
	}
	return count
}

// NamedChild returns the i-th named child, or nil if out of range.
func (n *Node) NamedChild(i int) *Node {
	idx := 0
	for _, c := range n.children {
		if !c.named {
			continue
		}
		if idx == i {
			return c
		}
		idx++
	}
	return nil
}

// ChildByFieldName returns the child registered under the given field
// name, or nil if the grammar rule did not assign one.
func (n *Node) ChildByFieldName(name string) *Node {
	if n.fields == nil {
		return nil
	}
	idx, ok := n.fields[name]
	if !ok {
		return nil
	}
	return n.Child(idx)
}

// AddChild appends a child node, optionally registering it under a field
// name. Exported for the parser package building trees incrementally.
func (n *Node) AddChild(field string, child *Node) {
	n.children = append(n.children, child)
	if field != "" {
		if n.fields == nil {
			n.fields = map[string]int{}
		}
		n.fields[field] = len(n.children) - 1
	}
}

// SetMissing marks the node as a synthesized error-recovery placeholder.
func (n *Node) SetMissing() { n.missing = true }

// Walk performs a depth-first pre-order traversal, invoking fn for every
// node including n itself. Traversal stops early if fn returns false.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		Walk(c, fn)
	}
}

// Tree is a parsed concrete syntax tree over a fixed source buffer.
type Tree struct {
	root *Node
}

// RootNode returns the tree's root node (always kind "source_file").
func (t *Tree) RootNode() *Node { return t.root }

// Edit adjusts byte offsets and points of every node after the edit point
// to account for a text change, following tree-sitter's edit semantics.
// Because this parser does not reuse partial subtrees across edits (see
// DESIGN.md), Edit exists so callers that pass an "old tree" through the
// same call shape used against real tree-sitter grammars get consistent
// bookkeeping; the subsequent Parse call always produces a fresh tree from
// the edited source.
func (t *Tree) Edit(e EditInput) {
	if t == nil || t.root == nil {
		return
	}
	shiftNode(t.root, e)
}

func shiftNode(n *Node, e EditInput) {
	delta := int64(e.NewEndIndex) - int64(e.OldEndIndex)
	if n.startByte >= e.OldEndIndex {
		n.startByte = uint32(int64(n.startByte) + delta)
		n.startPoint = shiftPoint(n.startPoint, e)
	} else if n.startByte >= e.StartIndex {
		n.startByte = e.NewEndIndex
		n.startPoint = e.NewEndPoint
	}
	if n.endByte >= e.OldEndIndex {
		n.endByte = uint32(int64(n.endByte) + delta)
		n.endPoint = shiftPoint(n.endPoint, e)
	} else if n.endByte >= e.StartIndex {
		n.endByte = e.NewEndIndex
		n.endPoint = e.NewEndPoint
	}
	for _, c := range n.children {
		shiftNode(c, e)
	}
}

func shiftPoint(p Point, e EditInput) Point {
	if p.Row != e.OldEndPoint.Row {
		rowDelta := int64(e.NewEndPoint.Row) - int64(e.OldEndPoint.Row)
		return Point{Row: uint32(int64(p.Row) + rowDelta), Column: p.Column}
	}
	colDelta := int64(e.NewEndPoint.Column) - int64(e.OldEndPoint.Column)
	return Point{Row: e.NewEndPoint.Row, Column: uint32(int64(p.Column) + colDelta)}
}
