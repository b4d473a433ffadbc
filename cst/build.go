package cst

// newSpan builds a named node covering [start,end) in absolute byte offsets,
// deriving points from li. Children are attached by the caller via AddChild.
func newSpan(kind string, start, end uint32, li *LineIndex) *Node {
	return NewNode(kind, true, start, end, li.OffsetToPosition(start), li.OffsetToPosition(end))
}

// newLeaf is newSpan for zero-width or token nodes; kept as a separate name
// so call sites read as "this is a leaf/token" at a glance.
func newLeaf(kind string, start, end uint32, li *LineIndex) *Node {
	return newSpan(kind, start, end, li)
}

// newAnon builds an anonymous token node (punctuation, keywords) that is not
// counted by NamedChildCount.
func newAnon(kind string, start, end uint32, li *LineIndex) *Node {
	return NewNode(kind, false, start, end, li.OffsetToPosition(start), li.OffsetToPosition(end))
}

// newError builds an ERROR node spanning [start,end).
func newError(start, end uint32, li *LineIndex) *Node {
	return newSpan(ErrorNodeType, start, end, li)
}
