// Package query executes a parsed ast.Query (or a set of them, OR'd
// together) against a workspace snapshot's instance entries.
package query

import (
	"sort"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/internal/ident"
	"github.com/thalo-lang/thalo/workspace"
)

// Execute runs a single query over ws and returns matching instance
// entries, sorted by timestamp and deduplicated by (timestamp, identity).
func Execute(ws *workspace.Workspace, q ast.Query) []ast.Entry {
	return ExecuteAny(ws, []ast.Query{q})
}

// ExecuteAny runs every query in qs and returns the union of matches (OR
// across queries, AND within one query's conditions), sorted by timestamp
// and deduplicated.
func ExecuteAny(ws *workspace.Workspace, qs []ast.Query) []ast.Entry {
	snap := ws.Snapshot()
	seen := map[string]bool{}
	var out []ast.Entry
	for _, e := range snap.Entries {
		if e.Kind != ast.KindInstance {
			continue
		}
		for _, q := range qs {
			if matches(e, q) {
				key := e.Instance.Header.Timestamp + "|" + string(ident.Of(e))
				if !seen[key] {
					seen[key] = true
					out = append(out, e)
				}
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ident.ParseTimestamp(ident.Timestamp(out[i])).Before(ident.ParseTimestamp(ident.Timestamp(out[j])))
	})
	return out
}

func matches(e ast.Entry, q ast.Query) bool {
	if q.Entity != "" && e.Instance.EntityName != q.Entity {
		return false
	}
	for _, cond := range q.Conditions {
		if !matchesCondition(e, cond) {
			return false
		}
	}
	return true
}

func matchesCondition(e ast.Entry, cond ast.Condition) bool {
	switch cond.Op {
	case "has-tag":
		for _, tag := range e.Instance.Header.Tags {
			if tag == cond.Value {
				return true
			}
		}
		return false
	case "links-to", "link":
		return referencesLink(e, cond.Value)
	default: // "="
		for _, f := range e.Instance.Metadata {
			if f.Key == cond.Field {
				return valueEquals(f.Value, cond.Value)
			}
		}
		return false
	}
}

// referencesLink reports whether e's own explicit link id equals linkID, or
// any of its metadata values is a link reference to linkID.
func referencesLink(e ast.Entry, linkID string) bool {
	if e.Instance.Header.Link == linkID {
		return true
	}
	for _, f := range e.Instance.Metadata {
		if valueReferencesLink(f.Value, linkID) {
			return true
		}
	}
	return false
}

func valueReferencesLink(v ast.MetadataValue, linkID string) bool {
	if v.Kind == ast.ValueLink && v.Link == linkID {
		return true
	}
	for _, el := range v.Elements {
		if valueReferencesLink(el, linkID) {
			return true
		}
	}
	return false
}

func valueEquals(v ast.MetadataValue, want string) bool {
	switch v.Kind {
	case ast.ValueQuoted:
		return v.Quoted == want
	case ast.ValueLink:
		return v.Link == want
	case ast.ValueNumber:
		return v.Number == want
	default:
		return v.Raw == want
	}
}
