// Package merge implements the three-way structural merge driver: entries
// are matched by identity (see internal/ident) rather than by line
// position, so reordering entries across files never produces a spurious
// conflict.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/minio/highwayhash"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/internal/ident"
	"github.com/thalo-lang/thalo/parser"
)

var fingerprintKey = make([]byte, 32)

// ConflictKind discriminates the six conflict shapes the merge driver can report.
type ConflictKind string

const (
	ConflictDuplicateLinkID          ConflictKind = "duplicate-link-id"
	ConflictConcurrentTitleChange    ConflictKind = "concurrent-title-change"
	ConflictConcurrentMetadataUpdate ConflictKind = "concurrent-metadata-update"
	ConflictConcurrentContentEdit    ConflictKind = "concurrent-content-edit"
	ConflictIncompatibleSchemaChange ConflictKind = "incompatible-schema-change"
	// ConflictParseError is reported by MergeText when base, ours, or
	// theirs contains an unrecoverable syntax error; the structural merge
	// is skipped entirely in favor of a textual conflict.
	ConflictParseError ConflictKind = "parse-error"
)

// Conflict is one merge conflict, carrying the three entry generations
// involved (any of which may be nil: Base is nil for entries added after
// the common ancestor).
type Conflict struct {
	Kind     ConflictKind
	Identity ident.Ref
	Message  string
	Base     *ast.Entry
	Ours     *ast.Entry
	Theirs   *ast.Entry
}

// MergedEntry is one identity's resolution: either Resolved is set (a clean
// merge or a side that won outright), or Conflict is true and callers
// should render markers from Ours/Theirs via Format.
type MergedEntry struct {
	Identity ident.Ref
	Base     *ast.Entry
	Ours     *ast.Entry
	Theirs   *ast.Entry
	Resolved *ast.Entry
	Conflict bool
}

// MergeResult is the outcome of a three-way merge.
type MergeResult struct {
	Entries   []MergedEntry
	Conflicts []Conflict
	// Success is true exactly when the merge produced zero conflicts.
	Success bool
	// Content is the rendered merge output (clean entries plus conflict
	// markers for anything unresolved), populated by MergeText. Callers
	// working directly with Merge can produce it themselves via Format.
	Content string
	Stats   Stats
}

// Stats summarizes how a merge's identities were resolved.
type Stats struct {
	TotalEntries int
	OursOnly     int
	TheirsOnly   int
	Common       int
	AutoMerged   int
	Conflicts    int
}

// Merge computes a three-way structural merge of base/ours/theirs, each a
// flat list of entries (typically workspace.Snapshot().Entries for the
// respective git blob).
func Merge(base, ours, theirs []ast.Entry) MergeResult {
	baseByID := indexByIdentity(base)
	oursByID := indexByIdentity(ours)
	theirsByID := indexByIdentity(theirs)

	ids := unionIDs(baseByID, oursByID, theirsByID)
	result := MergeResult{}

	for _, id := range ids {
		b, hasB := baseByID[id]
		o, hasO := oursByID[id]
		t, hasT := theirsByID[id]
		me := MergedEntry{Identity: id}
		if hasB {
			bv := b
			me.Base = &bv
		}
		if hasO {
			ov := o
			me.Ours = &ov
		}
		if hasT {
			tv := t
			me.Theirs = &tv
		}

		switch {
		case hasO && hasT && !hasB:
			// Both sides independently added this identity.
			result.Stats.Common++
			if canonical(o) == canonical(t) {
				me.Resolved = me.Ours
				result.Stats.AutoMerged++
			} else {
				me.Conflict = true
				kind := classify(nil, &o, &t)
				if strings.HasPrefix(string(id), "link:") {
					// two new entries claiming the same explicit ^id
					kind = ConflictDuplicateLinkID
				}
				result.Conflicts = append(result.Conflicts, Conflict{Kind: kind, Identity: id, Message: "both sides added this entry with conflicting content", Ours: me.Ours, Theirs: me.Theirs})
			}
		case hasO && hasT && hasB:
			result.Stats.Common++
			if canonical(o) == canonical(b) {
				me.Resolved = me.Theirs
				result.Stats.AutoMerged++
			} else if canonical(t) == canonical(b) {
				me.Resolved = me.Ours
				result.Stats.AutoMerged++
			} else if canonical(o) == canonical(t) {
				me.Resolved = me.Ours
				result.Stats.AutoMerged++
			} else {
				me.Conflict = true
				result.Conflicts = append(result.Conflicts, Conflict{Kind: classify(&b, &o, &t), Identity: id, Message: "both sides modified this entry", Base: me.Base, Ours: me.Ours, Theirs: me.Theirs})
			}
		case hasO && hasB && !hasT:
			result.Stats.Common++
			if canonical(o) == canonical(b) {
				// theirs deleted it cleanly, ours didn't change it
				result.Stats.AutoMerged++
			} else {
				me.Conflict = true
				result.Conflicts = append(result.Conflicts, Conflict{Kind: ConflictConcurrentContentEdit, Identity: id, Message: "theirs deleted an entry ours modified", Base: me.Base, Ours: me.Ours})
			}
		case hasT && hasB && !hasO:
			result.Stats.Common++
			if canonical(t) == canonical(b) {
				// ours deleted it cleanly
				result.Stats.AutoMerged++
			} else {
				me.Conflict = true
				result.Conflicts = append(result.Conflicts, Conflict{Kind: ConflictConcurrentContentEdit, Identity: id, Message: "ours deleted an entry theirs modified", Base: me.Base, Theirs: me.Theirs})
			}
		case hasO && !hasB && !hasT:
			me.Resolved = me.Ours
			result.Stats.OursOnly++
		case hasT && !hasB && !hasO:
			me.Resolved = me.Theirs
			result.Stats.TheirsOnly++
		default:
			// present only in base: removed by both sides, drop silently.
			continue
		}
		result.Entries = append(result.Entries, me)
	}

	result.Conflicts = append(result.Conflicts, detectDuplicateLinkIDs(ours, theirs)...)

	sort.Slice(result.Entries, func(i, j int) bool {
		return result.Entries[i].Identity < result.Entries[j].Identity
	})
	result.Stats.Conflicts = len(result.Conflicts)
	result.Stats.TotalEntries = result.Stats.OursOnly + result.Stats.TheirsOnly + result.Stats.Common
	result.Success = len(result.Conflicts) == 0
	return result
}

// MergeText parses base/ours/theirs raw source text and merges them. If any
// of the three fails to parse cleanly (an unrecoverable top-level syntax
// error), the structural merge is skipped in favor of a single
// parse-error conflict and textual conflict markers wrapping the raw
// inputs, per the fall-back-to-textual-conflict contract.
func MergeText(base, ours, theirs []byte, style MarkerStyle) MergeResult {
	baseEntries, baseOK := parseEntries(base)
	oursEntries, oursOK := parseEntries(ours)
	theirsEntries, theirsOK := parseEntries(theirs)
	if !baseOK || !oursOK || !theirsOK {
		return parseErrorResult(base, ours, theirs, style)
	}

	result := Merge(baseEntries, oursEntries, theirsEntries)
	result.Content = Format(result, style)
	return result
}

// parseEntries extracts every entry from content, reporting ok=false if any
// block contains a top-level syntax error the parser could not recover
// into an entry.
func parseEntries(content []byte) (entries []ast.Entry, ok bool) {
	ok = true
	if parser.DetectFileType("", content, parser.FileTypeUnknown) == parser.FileTypeMarkdown {
		for _, pb := range parser.ParseMarkdown(content) {
			f := ast.Extract(pb.Tree, pb.Source)
			if len(f.Errors) > 0 {
				ok = false
			}
			entries = append(entries, f.Entries...)
		}
		return entries, ok
	}
	tree, _ := parser.Parse(content)
	f := ast.Extract(tree, content)
	return f.Entries, len(f.Errors) == 0
}

func parseErrorResult(base, ours, theirs []byte, style MarkerStyle) MergeResult {
	var b strings.Builder
	b.WriteString("<<<<<<< ours\n")
	writeTextBlock(&b, ours)
	if style == MarkerStyleDiff3 {
		b.WriteString("||||||| base\n")
		writeTextBlock(&b, base)
	}
	b.WriteString("=======\n")
	writeTextBlock(&b, theirs)
	b.WriteString(">>>>>>> theirs\n")

	conflict := Conflict{Kind: ConflictParseError, Message: "base, ours, or theirs failed to parse cleanly; falling back to textual conflict output"}
	return MergeResult{
		Conflicts: []Conflict{conflict},
		Success:   false,
		Content:   b.String(),
		Stats:     Stats{TotalEntries: 0, Conflicts: 1},
	}
}

func writeTextBlock(b *strings.Builder, content []byte) {
	b.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.WriteString("\n")
	}
}

func indexByIdentity(entries []ast.Entry) map[ident.Ref]ast.Entry {
	m := make(map[ident.Ref]ast.Entry, len(entries))
	for _, e := range entries {
		m[ident.Of(e)] = e
	}
	return m
}

func unionIDs(maps ...map[ident.Ref]ast.Entry) []ident.Ref {
	seen := map[ident.Ref]bool{}
	var out []ident.Ref
	for _, m := range maps {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// classify inspects which part of two entry generations differs to label
// the conflict kind. Schema entries always classify as
// incompatible-schema-change; instance/synthesis entries are inspected
// field by field.
func classify(base, a, b *ast.Entry) ConflictKind {
	ref := a
	if ref == nil {
		ref = b
	}
	if ref.Kind == ast.KindSchema {
		return ConflictIncompatibleSchemaChange
	}
	titleA, titleB := headerTitle(a), headerTitle(b)
	if a != nil && b != nil && titleA != titleB {
		return ConflictConcurrentTitleChange
	}
	contentA, contentB := entryContent(a), entryContent(b)
	if contentA != contentB {
		return ConflictConcurrentContentEdit
	}
	return ConflictConcurrentMetadataUpdate
}

func headerTitle(e *ast.Entry) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ast.KindInstance:
		return e.Instance.Header.Title
	case ast.KindSchema:
		return e.Schema.Header.Title
	case ast.KindSynthesis:
		return e.Synthesis.Header.Title
	case ast.KindActualize:
		return e.Actualize.Header.Title
	}
	return ""
}

func entryContent(e *ast.Entry) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ast.KindInstance:
		return e.Instance.Content
	case ast.KindSynthesis:
		return e.Synthesis.Content
	}
	return ""
}

// detectDuplicateLinkIDs flags the case where ours and theirs each
// independently introduced a *new* explicit link id that collides with an
// id the other side also newly introduced for a *different* identity (two
// unrelated new entries racing to claim the same ^id).
func detectDuplicateLinkIDs(ours, theirs []ast.Entry) []Conflict {
	oursLinks := explicitLinks(ours)
	theirsLinks := explicitLinks(theirs)
	var out []Conflict
	for link, oe := range oursLinks {
		if te, ok := theirsLinks[link]; ok && ident.Of(oe) != ident.Of(te) {
			out = append(out, Conflict{
				Kind:    ConflictDuplicateLinkID,
				Message: fmt.Sprintf("both sides assigned ^%s to different entries", link),
				Ours:    &oe,
				Theirs:  &te,
			})
		}
	}
	return out
}

func explicitLinks(entries []ast.Entry) map[string]ast.Entry {
	m := map[string]ast.Entry{}
	for _, e := range entries {
		link := ""
		switch e.Kind {
		case ast.KindInstance:
			link = e.Instance.Header.Link
		case ast.KindSchema:
			link = e.Schema.Header.Link
		case ast.KindSynthesis:
			link = e.Synthesis.LinkID
		}
		if link != "" {
			m[link] = e
		}
	}
	return m
}

// canonical renders an entry's semantically meaningful fields (excluding
// source location) into a deterministic string, used both for equality
// checks during merge and as the input to conflict fingerprinting.
func canonical(e ast.Entry) string {
	var b strings.Builder
	switch e.Kind {
	case ast.KindInstance:
		fmt.Fprintf(&b, "instance|%s|%s|%s|%v|", e.Instance.EntityName, e.Instance.Header.Title, e.Instance.Header.Link, e.Instance.Header.Tags)
		writeMetadata(&b, e.Instance.Metadata)
		fmt.Fprintf(&b, "|content=%s", e.Instance.Content)
	case ast.KindSchema:
		fmt.Fprintf(&b, "schema|%s|alter=%v|", e.Schema.EntityName, e.Schema.Alter)
		for _, blk := range e.Schema.Blocks {
			fmt.Fprintf(&b, "block=%s;", blk.Kind)
			for _, f := range blk.Fields {
				fmt.Fprintf(&b, "field=%s:%v:%s;", f.Name, f.Optional, typeKey(f.Type))
			}
			for _, s := range blk.Sections {
				fmt.Fprintf(&b, "section=%s:%v;", s.Name, s.Optional)
			}
			for _, r := range blk.Removed {
				fmt.Fprintf(&b, "removed=%s;", r)
			}
		}
	case ast.KindSynthesis:
		fmt.Fprintf(&b, "synthesis|%s|", e.Synthesis.LinkID)
		writeMetadata(&b, e.Synthesis.Metadata)
		fmt.Fprintf(&b, "|content=%s", e.Synthesis.Content)
	case ast.KindActualize:
		fmt.Fprintf(&b, "actualize|%s|", e.Actualize.Target)
		writeMetadata(&b, e.Actualize.Metadata)
	}
	return b.String()
}

func writeMetadata(b *strings.Builder, fields []ast.MetadataField) {
	sorted := append([]ast.MetadataField(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	for _, f := range sorted {
		fmt.Fprintf(b, "%s=%s;", f.Key, f.Value.Raw)
	}
}

func typeKey(t ast.TypeExpression) string {
	switch t.Kind {
	case ast.TypePrimitive:
		return "prim:" + t.Primitive
	case ast.TypeLiteral:
		return "lit:" + t.Literal
	case ast.TypeArray:
		return "array:" + typeKey(*t.Element)
	case ast.TypeUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = typeKey(m)
		}
		return "union:" + strings.Join(parts, "|")
	}
	return "error"
}

// Fingerprint returns a stable hash of an entry's canonical form, so a
// caller can tell whether two entry generations (or the same conflict seen
// across merge re-runs) are identical.
func Fingerprint(e ast.Entry) string {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return ""
	}
	h.Write([]byte(canonical(e)))
	return fmt.Sprintf("%x", h.Sum(nil))
}
