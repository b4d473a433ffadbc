package ast

import (
	"strconv"
	"strings"

	"github.com/thalo-lang/thalo/cst"
)

// File is the extracted AST for one parsed block (a whole .thalo file, or
// one fenced block inside Markdown): the top-level entries in source order
// plus any top-level ERROR spans the parser could not recover into an
// entry.
type File struct {
	Entries []Entry
	Errors  []SyntaxErrorNode
}

// Extract walks tree's root (expected type "source_file") into a File.
// src must be the exact byte buffer the tree was parsed from.
func Extract(tree *cst.Tree, src []byte) *File {
	root := tree.RootNode()
	f := &File{}
	for i := 0; i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child.IsError() {
			f.Errors = append(f.Errors, SyntaxErrorNode{Location: locOf(child), Text: child.Content(src)})
			continue
		}
		if entry, ok := extractEntry(child, src); ok {
			f.Entries = append(f.Entries, entry)
		}
	}
	return f
}

func extractEntry(n *cst.Node, src []byte) (Entry, bool) {
	header := extractHeader(n.ChildByFieldName("header"), src)
	switch n.Type() {
	case "data_entry":
		directive := n.ChildByFieldName("header").ChildByFieldName("directive").Content(src)
		inst := &InstanceEntry{
			Header:     header,
			Update:     directive == "update",
			EntityName: textOrEmpty(n.ChildByFieldName("header").ChildByFieldName("argument"), src),
		}
		inst.Metadata, inst.Content, inst.HasContent = extractMetadataAndContent(n, src)
		return Entry{Kind: KindInstance, Location: locOf(n), Instance: inst}, true
	case "schema_entry":
		directive := n.ChildByFieldName("header").ChildByFieldName("directive").Content(src)
		sch := &SchemaEntry{
			Header:     header,
			Alter:      directive == "alter-entity",
			EntityName: textOrEmpty(n.ChildByFieldName("header").ChildByFieldName("argument"), src),
		}
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			switch c.Type() {
			case "metadata_block", "sections_block", "remove_metadata_block", "remove_sections_block":
				sch.Blocks = append(sch.Blocks, extractSchemaBlock(c, src))
			}
		}
		return Entry{Kind: KindSchema, Location: locOf(n), Schema: sch}, true
	case "synthesis_entry":
		syn := &SynthesisEntry{
			Header: header,
			LinkID: strings.TrimPrefix(textOrEmpty(n.ChildByFieldName("header").ChildByFieldName("argument"), src), "^"),
		}
		syn.Metadata, syn.Content, _ = extractMetadataAndContent(n, src)
		return Entry{Kind: KindSynthesis, Location: locOf(n), Synthesis: syn}, true
	case "actualize_entry":
		act := &ActualizeEntry{
			Header: header,
			Target: strings.TrimPrefix(textOrEmpty(n.ChildByFieldName("header").ChildByFieldName("argument"), src), "^"),
		}
		act.Metadata, _, _ = extractMetadataAndContent(n, src)
		return Entry{Kind: KindActualize, Location: locOf(n), Actualize: act}, true
	default:
		return Entry{}, false
	}
}

func extractHeader(h *cst.Node, src []byte) Header {
	header := Header{}
	if h == nil {
		return header
	}
	header.Timestamp = textOrEmpty(h.ChildByFieldName("timestamp"), src)
	header.Title = unquote(textOrEmpty(h.ChildByFieldName("title"), src))
	header.Link = strings.TrimPrefix(textOrEmpty(h.ChildByFieldName("link"), src), "^")
	for i := 0; i < h.ChildCount(); i++ {
		c := h.Child(i)
		if c.Type() == "tag" {
			header.Tags = append(header.Tags, strings.TrimPrefix(c.Content(src), "#"))
		}
	}
	return header
}

func extractMetadataAndContent(n *cst.Node, src []byte) (fields []MetadataField, content string, hasContent bool) {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "metadata_field":
			fields = append(fields, MetadataField{
				Key:      textOrEmpty(c.ChildByFieldName("key"), src),
				Value:    extractValue(c.ChildByFieldName("value"), src),
				Location: locOf(c),
			})
		case "content":
			content = c.Content(src)
			hasContent = true
		}
	}
	return fields, content, hasContent
}

func extractValue(v *cst.Node, src []byte) MetadataValue {
	if v == nil {
		return MetadataValue{Kind: ValueQuoted}
	}
	raw := v.Content(src)
	base := MetadataValue{Raw: raw, Location: locOf(v)}
	switch v.Type() {
	case "quoted_value":
		base.Kind = ValueQuoted
		base.Quoted = unquote(raw)
	case "link_value":
		base.Kind = ValueLink
		base.Link = strings.TrimPrefix(raw, "^")
	case "datetime_value":
		base.Kind = ValueDatetime
		if d := v.ChildByFieldName("date"); d != nil {
			base.Date = d.Content(src)
		}
		if t := v.ChildByFieldName("time"); t != nil {
			base.Time = t.Content(src)
		}
		if tz := v.ChildByFieldName("tz"); tz != nil {
			base.TZ = tz.Content(src)
		}
	case "date_range":
		base.Kind = ValueDateRange
		if idx := strings.Index(raw, ".."); idx >= 0 {
			base.Date = raw[:idx]
			base.RangeEnd = raw[idx+2:]
		}
	case "number_value":
		base.Kind = ValueNumber
		base.Number = raw
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			base.Kind = ValueQuoted
			base.Quoted = raw
		}
	case "value_array":
		base.Kind = ValueArray
		for i := 0; i < v.NamedChildCount(); i++ {
			base.Elements = append(base.Elements, extractValue(v.NamedChild(i), src))
		}
	case "query_value":
		base.Kind = ValueQuery
		q := &Query{Entity: textOrEmpty(v.ChildByFieldName("entity"), src)}
		if condNode := v.ChildByFieldName("conditions"); condNode != nil {
			q.Conditions = parseConditions(condNode.Content(src))
		}
		base.Query = q
	default:
		base.Kind = ValueQuoted
		base.Quoted = raw
	}
	return base
}

func extractSchemaBlock(b *cst.Node, src []byte) SchemaBlock {
	block := SchemaBlock{Location: locOf(b)}
	switch b.Type() {
	case "metadata_block":
		block.Kind = "metadata"
		for i := 0; i < b.NamedChildCount(); i++ {
			block.Fields = append(block.Fields, extractFieldDef(b.NamedChild(i), src))
		}
	case "sections_block":
		block.Kind = "sections"
		for i := 0; i < b.NamedChildCount(); i++ {
			block.Sections = append(block.Sections, extractSectionDef(b.NamedChild(i), src))
		}
	case "remove_metadata_block":
		block.Kind = "remove_metadata"
		for i := 0; i < b.NamedChildCount(); i++ {
			block.Removed = append(block.Removed, b.NamedChild(i).Content(src))
		}
	case "remove_sections_block":
		block.Kind = "remove_sections"
		for i := 0; i < b.NamedChildCount(); i++ {
			block.Removed = append(block.Removed, b.NamedChild(i).Content(src))
		}
	}
	return block
}

func extractFieldDef(d *cst.Node, src []byte) FieldDef {
	fd := FieldDef{Location: locOf(d)}
	fd.Name = textOrEmpty(d.ChildByFieldName("name"), src)
	fd.Optional = hasAnonChild(d, "optional_marker")
	if t := d.ChildByFieldName("type"); t != nil {
		te := extractTypeExpression(t, src)
		fd.Type = te
	} else {
		fd.Type = TypeExpression{Kind: TypeSyntaxError, Location: locOf(d)}
	}
	if dv := d.ChildByFieldName("default"); dv != nil {
		v := extractValue(dv, src)
		fd.Default = &v
	}
	if desc := d.ChildByFieldName("description"); desc != nil {
		fd.Description = unquote(desc.Content(src))
	}
	return fd
}

func extractSectionDef(d *cst.Node, src []byte) SectionDef {
	sd := SectionDef{Location: locOf(d)}
	sd.Name = textOrEmpty(d.ChildByFieldName("name"), src)
	sd.Optional = hasAnonChild(d, "optional_marker")
	if desc := d.ChildByFieldName("description"); desc != nil {
		sd.Description = unquote(desc.Content(src))
	}
	return sd
}

func extractTypeExpression(t *cst.Node, src []byte) TypeExpression {
	switch t.Type() {
	case "primitive_type":
		return TypeExpression{Kind: TypePrimitive, Primitive: t.Content(src), Location: locOf(t)}
	case "literal_type":
		return TypeExpression{Kind: TypeLiteral, Literal: unquote(t.Content(src)), Location: locOf(t)}
	case "array_type":
		elem := extractTypeExpression(t.ChildByFieldName("element"), src)
		return TypeExpression{Kind: TypeArray, Element: &elem, Location: locOf(t)}
	case "union_type":
		te := TypeExpression{Kind: TypeUnion, Location: locOf(t)}
		for i := 0; i < t.NamedChildCount(); i++ {
			te.Members = append(te.Members, extractTypeExpression(t.NamedChild(i), src))
		}
		return te
	default: // ERROR ("unknown_type")
		return TypeExpression{Kind: TypeSyntaxError, Location: locOf(t)}
	}
}

func hasAnonChild(n *cst.Node, kind string) bool {
	for i := 0; i < n.ChildCount(); i++ {
		if n.Child(i).Type() == kind {
			return true
		}
	}
	return false
}

func textOrEmpty(n *cst.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseConditions splits a query's "where" clause on "and" and parses each
// clause into a Condition: "#tag" is a has-tag condition, "^id" is a bare
// link condition (matches the entry's own explicit link id or any
// link-valued metadata referencing id), "field links-to value" is a
// links-to condition (value's leading ^ is stripped), and anything else is
// treated as "field = value".
func parseConditions(raw string) []Condition {
	clauses := strings.Split(raw, " and ")
	conditions := make([]Condition, 0, len(clauses))
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if strings.HasPrefix(clause, "#") {
			conditions = append(conditions, Condition{Op: "has-tag", Value: strings.TrimSpace(clause[1:])})
			continue
		}
		if strings.HasPrefix(clause, "^") {
			conditions = append(conditions, Condition{Op: "link", Value: strings.TrimPrefix(clause, "^")})
			continue
		}
		if idx := strings.Index(clause, "links-to"); idx >= 0 {
			field := strings.TrimSpace(clause[:idx])
			value := strings.TrimSpace(clause[idx+len("links-to"):])
			conditions = append(conditions, Condition{Field: field, Op: "links-to", Value: strings.TrimPrefix(value, "^")})
			continue
		}
		if idx := strings.Index(clause, "="); idx >= 0 {
			field := strings.TrimSpace(clause[:idx])
			value := strings.TrimSpace(clause[idx+1:])
			conditions = append(conditions, Condition{Field: field, Op: "=", Value: unquote(value)})
			continue
		}
		conditions = append(conditions, Condition{Field: clause, Op: "="})
	}
	return conditions
}
