// Package schema composes define-entity and alter-entity entries into a
// resolved entity schema.
package schema

import (
	"sort"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/internal/ident"
)

// Field is a resolved field definition after all alter-entity field
// add/remove operations have been applied in chronological order.
type Field struct {
	Name        string
	Optional    bool
	Type        ast.TypeExpression
	Default     *ast.MetadataValue
	Description string
}

// Section is a resolved content-section requirement.
type Section struct {
	Name        string
	Optional    bool
	Description string
}

// Entity is the fully composed schema for one entity name.
type Entity struct {
	Name     string
	Fields   map[string]Field
	Sections map[string]Section
	// FieldOrder/SectionOrder preserve definition order for stable
	// iteration (diagnostics, documentation rendering).
	FieldOrder   []string
	SectionOrder []string

	DefinedAt  ident.Position
	DefinedTS  string
	AlteredBy  []ident.Position
}

// DuplicateDefinition records a define-entity for a name that already has a
// definition; the registry keeps the first and reports the rest here.
type DuplicateDefinition struct {
	EntityName string
	First      ident.Position
	Duplicate  ident.Position
}

// Registry resolves entity schemas from the set of schema entries across a
// workspace.
type Registry struct {
	entities    map[string]*Entity
	duplicates  []DuplicateDefinition
}

// entitySource pairs a schema entry with where it came from, needed for
// chronological/tie-break ordering across files.
type entitySource struct {
	entry ast.SchemaEntry
	pos   ident.Position
}

// WithFile pairs an entry with the uri of the document it came from.
type WithFile struct {
	Entry ast.Entry
	File  string
}

// Build resolves a Registry from every schema entry in the workspace.
func Build(entries []WithFile) *Registry {
	byName := map[string][]entitySource{}
	for _, ef := range entries {
		e := ef.Entry
		if e.Kind != ast.KindSchema {
			continue
		}
		pos := ident.Position{File: ef.File, ByteOffset: e.Location.StartByte}
		byName[e.Schema.EntityName] = append(byName[e.Schema.EntityName], entitySource{entry: *e.Schema, pos: pos})
	}

	r := &Registry{entities: map[string]*Entity{}}
	for name, sources := range byName {
		r.entities[name] = resolveEntity(name, sources, r)
	}
	return r
}

func resolveEntity(name string, sources []entitySource, r *Registry) *Entity {
	sort.SliceStable(sources, func(i, j int) bool {
		return ident.Before(sources[i].entry.Header.Timestamp, sources[i].pos, sources[j].entry.Header.Timestamp, sources[j].pos)
	})

	ent := &Entity{Name: name, Fields: map[string]Field{}, Sections: map[string]Section{}}
	defineSeen := false
	for _, src := range sources {
		if !src.entry.Alter {
			if defineSeen {
				r.duplicates = append(r.duplicates, DuplicateDefinition{EntityName: name, First: ent.DefinedAt, Duplicate: src.pos})
				continue
			}
			defineSeen = true
			ent.DefinedAt = src.pos
			ent.DefinedTS = src.entry.Header.Timestamp
			applyBlocks(ent, src.entry.Blocks)
			continue
		}
		ent.AlteredBy = append(ent.AlteredBy, src.pos)
		applyBlocks(ent, src.entry.Blocks)
	}
	if !defineSeen {
		return nil
	}
	return ent
}

func applyBlocks(ent *Entity, blocks []ast.SchemaBlock) {
	for _, b := range blocks {
		switch b.Kind {
		case "metadata":
			for _, fd := range b.Fields {
				if _, exists := ent.Fields[fd.Name]; !exists {
					ent.FieldOrder = append(ent.FieldOrder, fd.Name)
				}
				ent.Fields[fd.Name] = Field{Name: fd.Name, Optional: fd.Optional, Type: fd.Type, Default: fd.Default, Description: fd.Description}
			}
		case "sections":
			for _, sd := range b.Sections {
				if _, exists := ent.Sections[sd.Name]; !exists {
					ent.SectionOrder = append(ent.SectionOrder, sd.Name)
				}
				ent.Sections[sd.Name] = Section{Name: sd.Name, Optional: sd.Optional, Description: sd.Description}
			}
		case "remove_metadata":
			for _, name := range b.Removed {
				delete(ent.Fields, name)
				ent.FieldOrder = removeName(ent.FieldOrder, name)
			}
		case "remove_sections":
			for _, name := range b.Removed {
				delete(ent.Sections, name)
				ent.SectionOrder = removeName(ent.SectionOrder, name)
			}
		}
	}
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// Resolve returns the composed schema for name, or nil if no define-entity
// exists for it.
func (r *Registry) Resolve(name string) *Entity { return r.entities[name] }

// Names returns every entity name with at least one schema entry.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for n := range r.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Duplicates returns every define-entity beyond the first for each name.
func (r *Registry) Duplicates() []DuplicateDefinition { return r.duplicates }
