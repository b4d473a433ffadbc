// Package fragment parses an isolated start symbol (a query, a type
// expression, or a metadata value) outside the context of a full entry,
// for editor features like hovering over a field default or validating a
// query string in isolation.
package fragment

import (
	"strings"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/cst"
)

// StartSymbol selects which grammar rule ParseFragment re-enters at.
type StartSymbol int

const (
	StartQuery StartSymbol = iota
	StartTypeExpression
	StartMetadataValue
)

// Result is the outcome of parsing one fragment.
type Result struct {
	Valid  bool
	Query  *ast.Query
	Type   *ast.TypeExpression
	Value  *ast.MetadataValue
	Errors []string
}

// Parse parses text as the given start symbol. cst does not export
// parseValue/parseTypeExpression directly since they take line-relative
// cursors, so Parse reaches them by embedding text in a synthetic one-entry
// source and extracting the parsed value, type or query back out.
func Parse(text string, start StartSymbol) Result {
	trimmed := strings.TrimRight(text, " \t\r\n")
	if trimmed == "" {
		return Result{Valid: false, Errors: []string{"empty fragment"}}
	}
	switch start {
	case StartMetadataValue:
		return parseValueFragment(trimmed)
	case StartTypeExpression:
		return parseTypeFragment(trimmed)
	case StartQuery:
		return parseQueryFragment(trimmed)
	}
	return Result{Valid: false, Errors: []string{"unknown start symbol"}}
}

func parseValueFragment(text string) Result {
	// Reuse the metadata-value grammar by embedding the fragment as a
	// single entry's lone metadata field and extracting it back out.
	src := []byte("2000-01-01T00:00 create _fragment\n  v: " + text + "\n")
	tree := cst.NewParser().Parse(src)
	f := ast.Extract(tree, src)
	if len(f.Entries) != 1 || len(f.Entries[0].Instance.Metadata) != 1 {
		return Result{Valid: false, Errors: []string{"could not parse metadata value"}}
	}
	v := f.Entries[0].Instance.Metadata[0].Value
	return Result{Valid: true, Value: &v}
}

func parseTypeFragment(text string) Result {
	src := []byte("2000-01-01T00:00 define-entity _fragment\n  # Metadata\n    v: " + text + "\n")
	tree := cst.NewParser().Parse(src)
	f := ast.Extract(tree, src)
	if len(f.Entries) != 1 || len(f.Entries[0].Schema.Blocks) != 1 || len(f.Entries[0].Schema.Blocks[0].Fields) != 1 {
		return Result{Valid: false, Errors: []string{"could not parse type expression"}}
	}
	te := f.Entries[0].Schema.Blocks[0].Fields[0].Type
	if te.Kind == ast.TypeSyntaxError {
		return Result{Valid: false, Type: &te, Errors: []string{"unknown type"}}
	}
	return Result{Valid: true, Type: &te}
}

func parseQueryFragment(text string) Result {
	src := []byte("2000-01-01T00:00 create _fragment\n  v: " + text + "\n")
	tree := cst.NewParser().Parse(src)
	f := ast.Extract(tree, src)
	if len(f.Entries) != 1 || len(f.Entries[0].Instance.Metadata) != 1 {
		return Result{Valid: false, Errors: []string{"could not parse query"}}
	}
	v := f.Entries[0].Instance.Metadata[0].Value
	if v.Kind != ast.ValueQuery || v.Query == nil {
		return Result{Valid: false, Errors: []string{"not a query"}}
	}
	return Result{Valid: true, Query: v.Query}
}
