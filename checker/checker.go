// Package checker runs the rule-based static checks over a workspace
// snapshot and produces diagnostics. Rules are independent capability
// values over a pre-bucketed index, generalized from an
// AnalyzerPlugin/AnnotationHook hook pattern.
package checker

import (
	"fmt"
	"sort"

	"github.com/sourcegraph/go-lsp"
	"gopkg.in/yaml.v3"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/internal/ident"
	"github.com/thalo-lang/thalo/workspace"
)

// Severity is a diagnostic's reported level. "off" disables a rule
// entirely.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityOff     Severity = "off"
)

// Diagnostic is one finding surfaced by a rule.
type Diagnostic struct {
	RuleID   string
	Severity Severity
	Message  string
	URI      string
	Range    lsp.Range
}

// Config selects severities per rule id, loaded from YAML
// (`rules: {rule-id: severity}`); a rule absent from Config keeps its
// DefaultSeverity.
type Config struct {
	Rules map[string]Severity `yaml:"rules"`
}

// LoadConfig parses a YAML document into a Config.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) severityFor(ruleID string, def Severity) Severity {
	if s, ok := c.Rules[ruleID]; ok {
		return s
	}
	return def
}

// timestampKey scopes the duplicate-timestamp rule to entries of the same
// kind in the same file, since only those can collide under the ordering
// used for alter-entity/actualize resolution.
type timestampKey struct {
	uri       string
	kind      ast.EntryKind
	timestamp string
}

// index buckets a workspace snapshot's entries once so every rule can do
// O(1) lookups instead of re-scanning all entries, mirroring a
// fieldMap/methodMap pre-indexing idiom.
type index struct {
	snapshot      workspace.Snapshot
	instances     []ast.Entry
	synthesisDefs []ast.Entry
	actualizes    []ast.Entry
	byLinkID      map[string][]ast.Entry
	byTimestamp   map[timestampKey][]ast.Entry
}

func buildIndex(snap workspace.Snapshot) *index {
	idx := &index{snapshot: snap, byLinkID: map[string][]ast.Entry{}, byTimestamp: map[timestampKey][]ast.Entry{}}
	for _, e := range snap.Entries {
		switch e.Kind {
		case ast.KindInstance:
			idx.instances = append(idx.instances, e)
			if e.Instance.Header.Link != "" {
				idx.byLinkID[e.Instance.Header.Link] = append(idx.byLinkID[e.Instance.Header.Link], e)
			} else {
				idx.bucketTimestamp(e, e.Instance.Header.Timestamp)
			}
		case ast.KindSynthesis:
			idx.synthesisDefs = append(idx.synthesisDefs, e)
			if e.Synthesis.LinkID != "" {
				idx.byLinkID[e.Synthesis.LinkID] = append(idx.byLinkID[e.Synthesis.LinkID], e)
			}
			// synthesis entries always carry link-based identity (LinkID is
			// mandatory), so they're exempt from duplicate-timestamp.
		case ast.KindActualize:
			idx.actualizes = append(idx.actualizes, e)
			// actualize entries identify via Target, also exempt.
		case ast.KindSchema:
			if e.Schema.Header.Link != "" {
				idx.byLinkID[e.Schema.Header.Link] = append(idx.byLinkID[e.Schema.Header.Link], e)
			} else {
				idx.bucketTimestamp(e, e.Schema.Header.Timestamp)
			}
		}
	}
	return idx
}

func (idx *index) bucketTimestamp(e ast.Entry, timestamp string) {
	key := timestampKey{uri: idx.snapshot.Files[e], kind: e.Kind, timestamp: timestamp}
	idx.byTimestamp[key] = append(idx.byTimestamp[key], e)
}

// Rule is one independent check over a pre-built index.
type Rule struct {
	ID              string
	DefaultSeverity Severity
	Apply           func(idx *index, sev Severity) []Diagnostic
}

// Rules is the full built-in rule set, including the two supplemented
// rules (empty-content-section, stale-alter-entity) beyond the required
// set.
var Rules = []Rule{
	{ID: "unknown-entity", DefaultSeverity: SeverityError, Apply: checkUnknownEntity},
	{ID: "missing-required-field", DefaultSeverity: SeverityError, Apply: checkMissingRequiredField},
	{ID: "unknown-field", DefaultSeverity: SeverityWarning, Apply: checkUnknownField},
	{ID: "invalid-field-type", DefaultSeverity: SeverityError, Apply: checkInvalidFieldType},
	{ID: "missing-required-section", DefaultSeverity: SeverityError, Apply: checkMissingRequiredSection},
	{ID: "unresolved-link", DefaultSeverity: SeverityError, Apply: checkUnresolvedLink},
	{ID: "duplicate-link-id", DefaultSeverity: SeverityError, Apply: checkDuplicateLinkID},
	{ID: "duplicate-timestamp", DefaultSeverity: SeverityWarning, Apply: checkDuplicateTimestamp},
	{ID: "duplicate-entity-definition", DefaultSeverity: SeverityWarning, Apply: checkDuplicateEntityDefinition},
	{ID: "unresolved-synthesis-target", DefaultSeverity: SeverityError, Apply: checkUnresolvedSynthesisTarget},
	{ID: "unknown-query-entity", DefaultSeverity: SeverityError, Apply: checkQueryEntityExists},
	{ID: "unknown-query-condition-field", DefaultSeverity: SeverityWarning, Apply: checkQueryConditionFields},
	{ID: "empty-content-section", DefaultSeverity: SeverityWarning, Apply: checkEmptyContentSection},
	{ID: "stale-alter-entity", DefaultSeverity: SeverityWarning, Apply: checkStaleAlterEntity},
}

// Check runs every non-"off" rule over the workspace's current snapshot.
func Check(ws *workspace.Workspace, cfg Config) []Diagnostic {
	snap := ws.Snapshot()
	idx := buildIndex(snap)
	var out []Diagnostic
	for _, r := range Rules {
		sev := cfg.severityFor(r.ID, r.DefaultSeverity)
		if sev == SeverityOff {
			continue
		}
		out = append(out, r.Apply(idx, sev)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].URI != out[j].URI {
			return out[i].URI < out[j].URI
		}
		return out[i].Range.Start.Line < out[j].Range.Start.Line
	})
	return out
}

func diag(ruleID string, sev Severity, msg string, loc ast.Location) Diagnostic {
	return Diagnostic{
		RuleID:   ruleID,
		Severity: sev,
		Message:  msg,
		Range: lsp.Range{
			Start: lsp.Position{Line: int(loc.StartPoint.Row), Character: int(loc.StartPoint.Column)},
			End:   lsp.Position{Line: int(loc.EndPoint.Row), Character: int(loc.EndPoint.Column)},
		},
	}
}

// diagFor is diag plus the uri of the document owner came from, looked up
// via the index's file map. loc may be owner's own Location or a nested
// field/value Location; every rule should use this instead of diag so
// Diagnostic.URI is never left blank.
func diagFor(idx *index, ruleID string, sev Severity, msg string, loc ast.Location, owner ast.Entry) Diagnostic {
	d := diag(ruleID, sev, msg, loc)
	d.URI = idx.snapshot.Files[owner]
	return d
}

func checkUnknownEntity(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.instances {
		if idx.snapshot.Registry == nil || idx.snapshot.Registry.Resolve(e.Instance.EntityName) == nil {
			out = append(out, diagFor(idx, "unknown-entity", sev, fmt.Sprintf("unknown entity %q", e.Instance.EntityName), e.Location, e))
		}
	}
	return out
}

func checkMissingRequiredField(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.instances {
		ent := idx.snapshot.Registry.Resolve(e.Instance.EntityName)
		if ent == nil {
			continue
		}
		present := map[string]bool{}
		for _, f := range e.Instance.Metadata {
			present[f.Key] = true
		}
		for _, name := range ent.FieldOrder {
			field := ent.Fields[name]
			if !field.Optional && field.Default == nil && !present[name] {
				out = append(out, diagFor(idx, "missing-required-field", sev, fmt.Sprintf("missing required field %q", name), e.Location, e))
			}
		}
	}
	return out
}

func checkUnknownField(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.instances {
		ent := idx.snapshot.Registry.Resolve(e.Instance.EntityName)
		if ent == nil {
			continue
		}
		for _, f := range e.Instance.Metadata {
			if _, ok := ent.Fields[f.Key]; !ok {
				out = append(out, diagFor(idx, "unknown-field", sev, fmt.Sprintf("unknown field %q on entity %q", f.Key, e.Instance.EntityName), f.Location, e))
			}
		}
	}
	return out
}

func checkInvalidFieldType(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.instances {
		ent := idx.snapshot.Registry.Resolve(e.Instance.EntityName)
		if ent == nil {
			continue
		}
		for _, f := range e.Instance.Metadata {
			field, ok := ent.Fields[f.Key]
			if !ok {
				continue
			}
			if !valueMatchesType(f.Value, field.Type) {
				out = append(out, diagFor(idx, "invalid-field-type", sev, fmt.Sprintf("field %q does not match its declared type", f.Key), f.Location, e))
			}
		}
	}
	return out
}

func valueMatchesType(v ast.MetadataValue, t ast.TypeExpression) bool {
	switch t.Kind {
	case ast.TypeSyntaxError:
		return true // already reported via the schema entry itself
	case ast.TypePrimitive:
		return valueMatchesPrimitive(v, t.Primitive)
	case ast.TypeLiteral:
		return v.Kind == ast.ValueQuoted && v.Quoted == t.Literal
	case ast.TypeArray:
		if v.Kind != ast.ValueArray {
			return false
		}
		for _, el := range v.Elements {
			if !valueMatchesType(el, *t.Element) {
				return false // mixed-type arrays are rejected (Open Question decision)
			}
		}
		return true
	case ast.TypeUnion:
		for _, m := range t.Members {
			if valueMatchesType(v, m) {
				return true
			}
		}
		return false
	}
	return true
}

func valueMatchesPrimitive(v ast.MetadataValue, primitive string) bool {
	switch primitive {
	case "string":
		return v.Kind == ast.ValueQuoted
	case "number":
		return v.Kind == ast.ValueNumber
	case "link":
		return v.Kind == ast.ValueLink
	case "datetime":
		return v.Kind == ast.ValueDatetime
	case "date-range":
		return v.Kind == ast.ValueDateRange
	case "boolean":
		return v.Kind == ast.ValueQuoted && (v.Quoted == "true" || v.Quoted == "false")
	}
	return false
}

func checkMissingRequiredSection(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.instances {
		ent := idx.snapshot.Registry.Resolve(e.Instance.EntityName)
		if ent == nil {
			continue
		}
		for _, name := range ent.SectionOrder {
			section := ent.Sections[name]
			if section.Optional {
				continue
			}
			if !e.Instance.HasContent {
				out = append(out, diagFor(idx, "missing-required-section", sev, fmt.Sprintf("missing required section %q", name), e.Location, e))
			}
		}
	}
	return out
}

func checkUnresolvedLink(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.instances {
		check := func(v ast.MetadataValue) {
			if v.Kind == ast.ValueLink {
				if len(idx.byLinkID[v.Link]) == 0 {
					out = append(out, diagFor(idx, "unresolved-link", sev, fmt.Sprintf("unresolved link ^%s", v.Link), v.Location, e))
				}
			}
			for _, el := range v.Elements {
				if el.Kind == ast.ValueLink && len(idx.byLinkID[el.Link]) == 0 {
					out = append(out, diagFor(idx, "unresolved-link", sev, fmt.Sprintf("unresolved link ^%s", el.Link), el.Location, e))
				}
			}
		}
		for _, f := range e.Instance.Metadata {
			check(f.Value)
		}
	}
	return out
}

func checkDuplicateLinkID(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for linkID, entries := range idx.byLinkID {
		if len(entries) > 1 {
			for _, e := range entries {
				out = append(out, diagFor(idx, "duplicate-link-id", sev, fmt.Sprintf("duplicate link id ^%s", linkID), e.Location, e))
			}
		}
	}
	return out
}

func checkDuplicateTimestamp(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for key, entries := range idx.byTimestamp {
		if key.timestamp != "" && len(entries) > 1 {
			for _, e := range entries {
				out = append(out, diagFor(idx, "duplicate-timestamp", sev, fmt.Sprintf("duplicate timestamp %s", key.timestamp), e.Location, e))
			}
		}
	}
	return out
}

func checkDuplicateEntityDefinition(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	if idx.snapshot.Registry == nil {
		return out
	}
	for _, dup := range idx.snapshot.Registry.Duplicates() {
		out = append(out, Diagnostic{
			RuleID:   "duplicate-entity-definition",
			Severity: sev,
			Message:  fmt.Sprintf("entity %q is already defined at %s:%d", dup.EntityName, dup.First.File, dup.First.ByteOffset),
			URI:      dup.Duplicate.File,
		})
	}
	return out
}

func checkUnresolvedSynthesisTarget(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.actualizes {
		if len(idx.byLinkID[e.Actualize.Target]) == 0 {
			out = append(out, diagFor(idx, "unresolved-synthesis-target", sev, fmt.Sprintf("unresolved synthesis target ^%s", e.Actualize.Target), e.Location, e))
		}
	}
	return out
}

// walkQueries visits every ValueQuery metadata value reachable from e
// (including ones nested inside a value_array), invoking fn with the
// owning entry, the parsed query, and the location to attach a diagnostic
// to.
func walkQueries(e ast.Entry, fn func(owner ast.Entry, q *ast.Query, loc ast.Location)) {
	var fields []ast.MetadataField
	switch e.Kind {
	case ast.KindInstance:
		fields = e.Instance.Metadata
	case ast.KindSynthesis:
		fields = e.Synthesis.Metadata
	case ast.KindActualize:
		fields = e.Actualize.Metadata
	default:
		return
	}
	for _, f := range fields {
		walkQueryValue(e, f.Value, fn)
	}
}

func walkQueryValue(e ast.Entry, v ast.MetadataValue, fn func(owner ast.Entry, q *ast.Query, loc ast.Location)) {
	if v.Kind == ast.ValueQuery && v.Query != nil {
		fn(e, v.Query, v.Location)
	}
	for _, el := range v.Elements {
		walkQueryValue(e, el, fn)
	}
}

// checkQueryEntityExists flags a query whose source entity has no
// define-entity in the workspace.
func checkQueryEntityExists(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.snapshot.Entries {
		walkQueries(e, func(owner ast.Entry, q *ast.Query, loc ast.Location) {
			if idx.snapshot.Registry == nil || idx.snapshot.Registry.Resolve(q.Entity) == nil {
				out = append(out, diagFor(idx, "unknown-query-entity", sev, fmt.Sprintf("query references unknown entity %q", q.Entity), loc, owner))
			}
		})
	}
	return out
}

// checkQueryConditionFields flags a query condition naming a field that
// isn't declared on its entity's schema, where the entity itself resolves.
// has-tag and bare ^link conditions carry no field name and are skipped.
func checkQueryConditionFields(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	if idx.snapshot.Registry == nil {
		return out
	}
	for _, e := range idx.snapshot.Entries {
		walkQueries(e, func(owner ast.Entry, q *ast.Query, loc ast.Location) {
			ent := idx.snapshot.Registry.Resolve(q.Entity)
			if ent == nil {
				return // already reported by unknown-query-entity
			}
			for _, cond := range q.Conditions {
				if cond.Field == "" || cond.Op == "has-tag" || cond.Op == "link" {
					continue
				}
				if _, ok := ent.Fields[cond.Field]; !ok {
					out = append(out, diagFor(idx, "unknown-query-condition-field", sev, fmt.Sprintf("query condition references undeclared field %q on entity %q", cond.Field, q.Entity), loc, owner))
				}
			}
		})
	}
	return out
}

// checkEmptyContentSection flags instance entries whose content section is
// present but blank, a supplemented rule (DESIGN.md) beyond the required
// set: a present-but-empty section is a common authoring slip that
// missing-required-section alone cannot catch.
func checkEmptyContentSection(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, e := range idx.instances {
		if e.Instance.HasContent && len(trimmed(e.Instance.Content)) == 0 {
			out = append(out, diagFor(idx, "empty-content-section", sev, "content section is present but empty", e.Location, e))
		}
	}
	return out
}

// checkStaleAlterEntity flags alter-entity entries whose timestamp is
// older than their entity's own define-entity, which the merge/compose
// algorithm already tolerates but which almost always indicates an
// authoring mistake (an alter written before its base definition existed).
func checkStaleAlterEntity(idx *index, sev Severity) []Diagnostic {
	var out []Diagnostic
	if idx.snapshot.Registry == nil {
		return out
	}
	for _, e := range idx.snapshot.Entries {
		if e.Kind != ast.KindSchema || !e.Schema.Alter {
			continue
		}
		ent := idx.snapshot.Registry.Resolve(e.Schema.EntityName)
		if ent == nil {
			continue
		}
		if ident.ParseTimestamp(e.Schema.Header.Timestamp).Before(ident.ParseTimestamp(ent.DefinedTS)) {
			out = append(out, diagFor(idx, "stale-alter-entity", sev, fmt.Sprintf("alter-entity for %q predates its define-entity", e.Schema.EntityName), e.Location, e))
		}
	}
	return out
}

func trimmed(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
