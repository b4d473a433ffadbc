package merge

import (
	"fmt"
	"strings"

	"github.com/thalo-lang/thalo/ast"
)

// MarkerStyle selects the conflict-marker vocabulary used when rendering
// unresolved conflicts back to text.
type MarkerStyle int

const (
	MarkerStyleGit MarkerStyle = iota
	MarkerStyleDiff3
)

// Format renders a MergeResult back into Thalo source text: cleanly
// resolved entries render as themselves, and conflicted entries render
// with conflict markers wrapping the "ours" and "theirs" renditions (plus
// "base" under MarkerStyleDiff3), matching how `git merge` and `diff3`
// present a textual conflict.
func Format(result MergeResult, style MarkerStyle) string {
	var b strings.Builder
	for _, me := range result.Entries {
		if !me.Conflict {
			if me.Resolved != nil {
				b.WriteString(renderEntry(*me.Resolved))
				b.WriteString("\n")
			}
			continue
		}
		writeConflictMarkers(&b, me, style)
	}
	return b.String()
}

func writeConflictMarkers(b *strings.Builder, me MergedEntry, style MarkerStyle) {
	b.WriteString("<<<<<<< ours\n")
	if me.Ours != nil {
		b.WriteString(renderEntry(*me.Ours))
	}
	if style == MarkerStyleDiff3 {
		b.WriteString("||||||| base\n")
		if me.Base != nil {
			b.WriteString(renderEntry(*me.Base))
		}
	}
	b.WriteString("=======\n")
	if me.Theirs != nil {
		b.WriteString(renderEntry(*me.Theirs))
	}
	b.WriteString(">>>>>>> theirs\n")
}

// renderEntry reconstructs source text for an entry from its typed fields.
// This is not guaranteed byte-identical to the original source (formatting
// choices like value spacing are not preserved across the AST boundary),
// but is a valid re-parseable rendition.
func renderEntry(e ast.Entry) string {
	switch e.Kind {
	case ast.KindInstance:
		return renderInstance(e.Instance)
	case ast.KindSchema:
		return renderSchema(e.Schema)
	case ast.KindSynthesis:
		return renderSynthesis(e.Synthesis)
	case ast.KindActualize:
		return renderActualize(e.Actualize)
	}
	return ""
}

func renderHeader(b *strings.Builder, h ast.Header, directive, argument string) {
	fmt.Fprintf(b, "%s %s", h.Timestamp, directive)
	if argument != "" {
		fmt.Fprintf(b, " %s", argument)
	}
	if h.Title != "" {
		fmt.Fprintf(b, " %q", h.Title)
	}
	if h.Link != "" {
		fmt.Fprintf(b, " ^%s", h.Link)
	}
	for _, tag := range h.Tags {
		fmt.Fprintf(b, " #%s", tag)
	}
	b.WriteString("\n")
}

func renderValue(v ast.MetadataValue) string {
	switch v.Kind {
	case ast.ValueQuoted:
		return fmt.Sprintf("%q", v.Quoted)
	case ast.ValueLink:
		return "^" + v.Link
	case ast.ValueNumber:
		return v.Number
	case ast.ValueArray:
		parts := make([]string, len(v.Elements))
		for i, el := range v.Elements {
			parts[i] = renderValue(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		if v.Raw != "" {
			return v.Raw
		}
		return fmt.Sprintf("%q", v.Quoted)
	}
}

func renderMetadata(b *strings.Builder, fields []ast.MetadataField) {
	for _, f := range fields {
		fmt.Fprintf(b, "  %s: %s\n", f.Key, renderValue(f.Value))
	}
}

func renderInstance(e *ast.InstanceEntry) string {
	var b strings.Builder
	directive := "create"
	if e.Update {
		directive = "update"
	}
	renderHeader(&b, e.Header, directive, e.EntityName)
	renderMetadata(&b, e.Metadata)
	if e.HasContent {
		b.WriteString("\n")
		b.WriteString(e.Content)
		if !strings.HasSuffix(e.Content, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderSynthesis(e *ast.SynthesisEntry) string {
	var b strings.Builder
	renderHeader(&b, e.Header, "define-synthesis", "^"+e.LinkID)
	renderMetadata(&b, e.Metadata)
	if e.Content != "" {
		b.WriteString("\n")
		b.WriteString(e.Content)
	}
	return b.String()
}

func renderActualize(e *ast.ActualizeEntry) string {
	var b strings.Builder
	renderHeader(&b, e.Header, "actualize-synthesis", "^"+e.Target)
	renderMetadata(&b, e.Metadata)
	return b.String()
}

func renderSchema(e *ast.SchemaEntry) string {
	var b strings.Builder
	directive := "define-entity"
	if e.Alter {
		directive = "alter-entity"
	}
	renderHeader(&b, e.Header, directive, e.EntityName)
	for _, blk := range e.Blocks {
		renderSchemaBlock(&b, blk)
	}
	return b.String()
}

func renderSchemaBlock(b *strings.Builder, blk ast.SchemaBlock) {
	switch blk.Kind {
	case "metadata":
		b.WriteString("  # Metadata\n")
		for _, f := range blk.Fields {
			renderFieldDef(b, f)
		}
	case "sections":
		b.WriteString("  # Sections\n")
		for _, s := range blk.Sections {
			renderSectionDef(b, s)
		}
	case "remove_metadata":
		b.WriteString("  # Remove Metadata\n")
		for _, name := range blk.Removed {
			fmt.Fprintf(b, "    %s\n", name)
		}
	case "remove_sections":
		b.WriteString("  # Remove Sections\n")
		for _, name := range blk.Removed {
			fmt.Fprintf(b, "    %s\n", name)
		}
	}
}

func renderFieldDef(b *strings.Builder, f ast.FieldDef) {
	fmt.Fprintf(b, "    %s", f.Name)
	if f.Optional {
		b.WriteString("?")
	}
	fmt.Fprintf(b, ": %s", renderTypeExpression(f.Type))
	if f.Default != nil {
		fmt.Fprintf(b, " = %s", renderValue(*f.Default))
	}
	if f.Description != "" {
		fmt.Fprintf(b, " -- %s", f.Description)
	}
	b.WriteString("\n")
}

func renderSectionDef(b *strings.Builder, s ast.SectionDef) {
	fmt.Fprintf(b, "    %s", s.Name)
	if s.Optional {
		b.WriteString("?")
	}
	if s.Description != "" {
		fmt.Fprintf(b, " -- %s", s.Description)
	}
	b.WriteString("\n")
}

func renderTypeExpression(t ast.TypeExpression) string {
	switch t.Kind {
	case ast.TypePrimitive:
		return t.Primitive
	case ast.TypeLiteral:
		return fmt.Sprintf("%q", t.Literal)
	case ast.TypeArray:
		return renderTypeExpression(*t.Element) + "[]"
	case ast.TypeUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = renderTypeExpression(m)
		}
		return strings.Join(parts, " | ")
	}
	return "unknown"
}
