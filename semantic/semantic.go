// Package semantic builds a per-file semantic model (link definitions and
// references, schema entries) and diffs two generations of it to drive
// incremental workspace invalidation.
package semantic

import (
	"encoding/binary"
	"sort"

	"github.com/minio/highwayhash"
	"github.com/thalo-lang/thalo/ast"
)

var fingerprintKey = make([]byte, 32) // fixed zero key: fingerprints are only compared within one process run, never persisted

// LinkDefinition is one entry that owns a link identity (explicit ^linkId,
// or a define-synthesis's header.argument link).
type LinkDefinition struct {
	LinkID   string
	Entry    ast.Entry
	Location ast.Location
}

// LinkReference is one occurrence of a ^linkId in a Link-typed metadata
// value (including inside a value array) or as an actualize-synthesis
// target. A header's own ^linkId is a definition, not a reference.
type LinkReference struct {
	LinkID   string
	From     ast.Entry
	Location ast.Location
}

// SemanticModel is the derived, queryable view of one parsed file.
type SemanticModel struct {
	File          string
	Definitions   map[string]LinkDefinition
	References    []LinkReference
	SchemaEntries []ast.Entry
}

// Build derives a SemanticModel from an extracted file.
func Build(file string, f *ast.File) *SemanticModel {
	m := &SemanticModel{File: file, Definitions: map[string]LinkDefinition{}}
	for _, e := range f.Entries {
		collectDefinition(m, e)
		collectReferences(m, e)
		if e.Kind == ast.KindSchema {
			m.SchemaEntries = append(m.SchemaEntries, e)
		}
	}
	return m
}

func collectDefinition(m *SemanticModel, e ast.Entry) {
	switch e.Kind {
	case ast.KindInstance:
		if e.Instance.Header.Link != "" {
			m.Definitions[e.Instance.Header.Link] = LinkDefinition{LinkID: e.Instance.Header.Link, Entry: e, Location: e.Location}
		}
	case ast.KindSchema:
		if e.Schema.Header.Link != "" {
			m.Definitions[e.Schema.Header.Link] = LinkDefinition{LinkID: e.Schema.Header.Link, Entry: e, Location: e.Location}
		}
	case ast.KindSynthesis:
		if e.Synthesis.LinkID != "" {
			m.Definitions[e.Synthesis.LinkID] = LinkDefinition{LinkID: e.Synthesis.LinkID, Entry: e, Location: e.Location}
		}
	}
}

func collectReferences(m *SemanticModel, e ast.Entry) {
	switch e.Kind {
	case ast.KindActualize:
		if e.Actualize.Target != "" {
			m.References = append(m.References, LinkReference{LinkID: e.Actualize.Target, From: e, Location: e.Location})
		}
		for _, field := range e.Actualize.Metadata {
			collectValueReferences(m, e, field.Value)
		}
	case ast.KindInstance:
		for _, field := range e.Instance.Metadata {
			collectValueReferences(m, e, field.Value)
		}
	case ast.KindSynthesis:
		for _, field := range e.Synthesis.Metadata {
			collectValueReferences(m, e, field.Value)
		}
	}
}

func collectValueReferences(m *SemanticModel, e ast.Entry, v ast.MetadataValue) {
	switch v.Kind {
	case ast.ValueLink:
		m.References = append(m.References, LinkReference{LinkID: v.Link, From: e, Location: v.Location})
	case ast.ValueArray:
		for _, el := range v.Elements {
			collectValueReferences(m, e, el)
		}
	}
}

// Diff is the set of changes between two generations of the same file's
// semantic model, used by the workspace to scope incremental rechecks.
type Diff struct {
	AddedLinkDefinitions   []string
	RemovedLinkDefinitions []string
	ChangedLinkReferences  bool
	SchemaEntriesChanged   bool
	ChangedEntityNames     []string
}

// UpdateSemanticModel diffs old against next (both for the same file).
func UpdateSemanticModel(old, next *SemanticModel) Diff {
	d := Diff{}
	if old == nil {
		old = &SemanticModel{Definitions: map[string]LinkDefinition{}}
	}
	for id := range next.Definitions {
		if _, ok := old.Definitions[id]; !ok {
			d.AddedLinkDefinitions = append(d.AddedLinkDefinitions, id)
		}
	}
	for id := range old.Definitions {
		if _, ok := next.Definitions[id]; !ok {
			d.RemovedLinkDefinitions = append(d.RemovedLinkDefinitions, id)
		}
	}
	sort.Strings(d.AddedLinkDefinitions)
	sort.Strings(d.RemovedLinkDefinitions)

	if referenceFingerprint(old.References) != referenceFingerprint(next.References) {
		d.ChangedLinkReferences = true
	}

	oldNames := schemaNameSet(old.SchemaEntries)
	newNames := schemaNameSet(next.SchemaEntries)
	changed := map[string]bool{}
	for name, oldFP := range oldNames {
		if newFP, ok := newNames[name]; !ok || newFP != oldFP {
			changed[name] = true
		}
	}
	for name := range newNames {
		if _, ok := oldNames[name]; !ok {
			changed[name] = true
		}
	}
	if len(changed) > 0 {
		d.SchemaEntriesChanged = true
		for name := range changed {
			d.ChangedEntityNames = append(d.ChangedEntityNames, name)
		}
		sort.Strings(d.ChangedEntityNames)
	}
	return d
}

func schemaNameSet(entries []ast.Entry) map[string]uint64 {
	m := map[string]uint64{}
	for _, e := range entries {
		m[e.Schema.EntityName] ^= entryFingerprint(e)
	}
	return m
}

func referenceFingerprint(refs []LinkReference) uint64 {
	var buf []byte
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.LinkID
	}
	sort.Strings(ids)
	for _, id := range ids {
		buf = append(buf, []byte(id)...)
		buf = append(buf, 0)
	}
	return sum64(buf)
}

func entryFingerprint(e ast.Entry) uint64 {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(e.Location.StartByte)<<32|uint64(e.Location.EndByte))
	return sum64(buf)
}

func sum64(data []byte) uint64 {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		// fingerprintKey is a fixed 32-byte slice; New64 only errors on key
		// length, so this is unreachable.
		return 0
	}
	h.Write(data)
	return binary.LittleEndian.Uint64(h.Sum(nil))
}
