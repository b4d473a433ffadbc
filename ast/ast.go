// Package ast defines Thalo's typed abstract syntax tree and the extractor
// that walks a cst.Tree into it.
package ast

import "github.com/thalo-lang/thalo/cst"

// Location is a block-relative span plus its row/column points, carried
// alongside every AST node so diagnostics and the merge driver can point
// back at source text without re-walking the concrete tree.
type Location struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint cst.Point
	EndPoint   cst.Point
}

func locOf(n *cst.Node) Location {
	return Location{StartByte: n.StartByte(), EndByte: n.EndByte(), StartPoint: n.StartPoint(), EndPoint: n.EndPoint()}
}

// EntryKind discriminates the four entry shapes the grammar admits.
type EntryKind int

const (
	KindInstance EntryKind = iota
	KindSchema
	KindSynthesis
	KindActualize
)

// Entry is the sum type over the four top-level entry kinds. Exactly one of
// Instance/Schema/Synthesis/Actualize is non-nil, selected by Kind.
type Entry struct {
	Kind      EntryKind
	Location  Location
	Instance  *InstanceEntry
	Schema    *SchemaEntry
	Synthesis *SynthesisEntry
	Actualize *ActualizeEntry
}

// Header fields common to every entry.
type Header struct {
	Timestamp string
	Title     string
	Link      string // explicit ^linkId, empty if absent
	Tags      []string
}

// InstanceEntry is a `create`/`update` entry.
type InstanceEntry struct {
	Header     Header
	Update     bool // true for `update`, false for `create`
	EntityName string
	Metadata   []MetadataField
	Content    string
	HasContent bool
}

// SchemaEntry is a `define-entity`/`alter-entity` entry.
type SchemaEntry struct {
	Header     Header
	Alter      bool // true for `alter-entity`, false for `define-entity`
	EntityName string
	Blocks     []SchemaBlock
}

// SynthesisEntry is a `define-synthesis` entry.
type SynthesisEntry struct {
	Header   Header
	LinkID   string
	Metadata []MetadataField
	Content  string
}

// ActualizeEntry is an `actualize-synthesis` entry.
type ActualizeEntry struct {
	Header   Header
	Target   string // the synthesis definition's ^linkId
	Metadata []MetadataField
}

// MetadataField is one "key: value" line.
type MetadataField struct {
	Key      string
	Value    MetadataValue
	Location Location
}

// MetadataValueKind discriminates MetadataValue's sum type.
type MetadataValueKind int

const (
	ValueQuoted MetadataValueKind = iota
	ValueLink
	ValueDatetime
	ValueDateRange
	ValueNumber
	ValueArray
	ValueQuery
)

// MetadataValue is the sum type over the seven metadata value shapes the
// grammar admits. Raw always carries the unparsed source text; the typed fields
// below are populated according to Kind.
type MetadataValue struct {
	Kind     MetadataValueKind
	Raw      string
	Location Location

	Quoted   string // unquoted text, ValueQuoted
	Link     string // ValueLink
	Date     string // ValueDatetime / first half of ValueDateRange
	Time     string // ValueDatetime, empty if time-of-day omitted
	TZ       string // ValueDatetime, empty if omitted
	RangeEnd string // ValueDateRange
	Number   string // ValueNumber, decimal text form
	Elements []MetadataValue
	Query    *Query
}

// Query is the parsed form of a ValueQuery metadata value, also reused as
// the body of a query/* fragment and top-level query execution.
type Query struct {
	Entity     string
	Conditions []Condition
}

// Condition is one clause of a query's `where` clause. Field is empty for
// has-tag and link, which carry no field name.
type Condition struct {
	Field string
	Op    string // "=", "has-tag", "links-to", "link"
	Value string
}

// TypeExpressionKind discriminates TypeExpression's sum type.
type TypeExpressionKind int

const (
	TypePrimitive TypeExpressionKind = iota
	TypeLiteral
	TypeArray
	TypeUnion
	TypeSyntaxError
)

// TypeExpression is the sum type over primitive/literal/array/union type
// shapes, plus the unknown_type syntax-error sentinel that propagates
// through any enclosing array/union.
type TypeExpression struct {
	Kind     TypeExpressionKind
	Location Location

	Primitive string // TypePrimitive: "string" | "datetime" | "date-range" | "link" | "number" | "boolean"
	Literal   string // TypeLiteral: the literal string value
	Element   *TypeExpression // TypeArray
	Members   []TypeExpression // TypeUnion
}

// SchemaBlock is one `# Metadata` / `# Sections` / `# Remove Metadata` /
// `# Remove Sections` block inside a schema entry.
type SchemaBlock struct {
	Kind     string // "metadata" | "sections" | "remove_metadata" | "remove_sections"
	Fields   []FieldDef
	Sections []SectionDef
	Removed  []string
	Location Location
}

// FieldDef is one metadata field definition inside a `# Metadata` block.
type FieldDef struct {
	Name        string
	Optional    bool
	Type        TypeExpression
	Default     *MetadataValue
	Description string
	Location    Location
}

// SectionDef is one content-section requirement inside a `# Sections`
// block.
type SectionDef struct {
	Name        string
	Optional    bool
	Description string
	Location    Location
}

// SyntaxErrorNode records a concrete-tree ERROR span that the extractor
// could not turn into any typed entry or value.
type SyntaxErrorNode struct {
	Location Location
	Text     string
}
