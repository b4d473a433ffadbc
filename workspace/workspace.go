// Package workspace aggregates every open Document into a multi-file view:
// a global link index, per-entity schema registry, and dependency maps used
// to scope incremental rechecks to the files actually affected by an edit.
// Grounded on upbound/up's internal/xpls.Workspace (nodes map, uriToNodes
// dependency map, mu sync.RWMutex, Snapshot bundling derived state).
package workspace

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sourcegraph/go-lsp"

	"github.com/thalo-lang/thalo/ast"
	"github.com/thalo-lang/thalo/document"
	"github.com/thalo-lang/thalo/parser"
	"github.com/thalo-lang/thalo/schema"
	"github.com/thalo-lang/thalo/semantic"
)

// Workspace owns every open document plus the derived indices built across
// all of them.
type Workspace struct {
	mu sync.RWMutex

	documents map[string]*document.Document
	models    map[string]*semantic.SemanticModel

	// linkDependencies maps a link id to every file that references it
	// (not the file that defines it), so that a definition add/remove only
	// needs to recheck the files referencing that id.
	linkDependencies map[string]map[string]bool
	// entityDependencies maps an entity name to every file containing an
	// instance entry of that entity, so a schema change only rechecks the
	// files that actually use the changed entity.
	entityDependencies map[string]map[string]bool

	// linkDefinitions maps a link id to every file currently defining it,
	// keyed by uri. More than one file defining the same id is a
	// checker-flagged state (duplicate-link-id), but FindDefinition still
	// needs a deterministic answer: fileSeq breaks the tie.
	linkDefinitions map[string]map[string]semantic.LinkDefinition
	// fileSeq records a monotonically increasing sequence number assigned
	// each time a file is (re)built. When a link id is defined in more than
	// one file, the definition from the file with the highest seq — the
	// last one added or updated — wins.
	fileSeq    map[string]int
	seqCounter int

	registry *schema.Registry
}

// New returns an empty Workspace.
func New() *Workspace {
	return &Workspace{
		documents:          map[string]*document.Document{},
		models:             map[string]*semantic.SemanticModel{},
		linkDependencies:   map[string]map[string]bool{},
		entityDependencies: map[string]map[string]bool{},
		linkDefinitions:    map[string]map[string]semantic.LinkDefinition{},
		fileSeq:            map[string]int{},
	}
}

// InvalidationResult reports what a mutation forced the workspace to
// recompute, so callers (e.g. an LSP server) can scope diagnostics
// republishing instead of blindly re-running every rule on every file.
// RebuiltFiles is the full affected-file closure: the changed file itself
// plus every file that depends on a link or entity the change added,
// removed, or altered.
type InvalidationResult struct {
	RebuiltFiles        []string
	AffectedEntities    []string
	SchemaRegistryBuilt bool
}

// AddDocument parses content as a new open document and folds it into the
// workspace's derived state.
func (w *Workspace) AddDocument(uri string, content []byte, hint parser.FileType) (*InvalidationResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := document.New(uri, content, hint)
	w.documents[uri] = doc
	return w.rebuildLocked(uri, nil)
}

// UpdateDocument replaces content in full (a didChange full-text sync or a
// revert-to-disk) and rebuilds derived state for that file.
func (w *Workspace) UpdateDocument(uri string, content []byte) (*InvalidationResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.documents[uri]
	if !ok {
		return nil, errors.Errorf("workspace: document not open: %s", uri)
	}
	old := w.models[uri]
	doc.ReplaceContent(content)
	return w.rebuildLocked(uri, old)
}

// ApplyEdit applies one incremental edit to an open document and rebuilds
// only what the edit's semantic diff says changed.
func (w *Workspace) ApplyEdit(uri string, rng lsp.Range, newText string) (*InvalidationResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.documents[uri]
	if !ok {
		return nil, errors.Errorf("workspace: document not open: %s", uri)
	}
	old := w.models[uri]
	doc.ApplyEdit(rng, newText)
	return w.rebuildLocked(uri, old)
}

// RemoveDocument closes a document and drops its contribution to every
// derived index.
func (w *Workspace) RemoveDocument(uri string) *InvalidationResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	affected := map[string]bool{uri: true}
	if old, ok := w.models[uri]; ok {
		for id := range old.Definitions {
			for dep := range w.linkDependencies[id] {
				affected[dep] = true
			}
			w.dropLinkDefinition(id, uri)
		}
	}
	delete(w.documents, uri)
	delete(w.models, uri)
	delete(w.fileSeq, uri)
	for _, deps := range w.linkDependencies {
		delete(deps, uri)
	}
	for _, deps := range w.entityDependencies {
		delete(deps, uri)
	}
	w.rebuildRegistryLocked()
	return &InvalidationResult{RebuiltFiles: sortedKeys(affected), SchemaRegistryBuilt: true}
}

func (w *Workspace) rebuildLocked(uri string, oldModel *semantic.SemanticModel) (*InvalidationResult, error) {
	doc := w.documents[uri]
	var allEntries []ast.Entry
	for _, b := range doc.Blocks {
		if b.File != nil {
			allEntries = append(allEntries, b.File.Entries...)
		}
	}
	fileLiteral := &ast.File{Entries: allEntries}
	newModel := semantic.Build(uri, fileLiteral)
	w.models[uri] = newModel

	diff := semantic.UpdateSemanticModel(oldModel, newModel)
	w.updateLinkDependencies(uri, newModel)
	w.updateLinkDefinitions(uri, oldModel, newModel)
	w.seqCounter++
	w.fileSeq[uri] = w.seqCounter

	affected := map[string]bool{uri: true}
	for _, id := range diff.AddedLinkDefinitions {
		for dep := range w.linkDependencies[id] {
			affected[dep] = true
		}
	}
	for _, id := range diff.RemovedLinkDefinitions {
		for dep := range w.linkDependencies[id] {
			affected[dep] = true
		}
	}

	result := &InvalidationResult{}
	if diff.SchemaEntriesChanged || oldModel == nil {
		w.rebuildRegistryLocked()
		result.SchemaRegistryBuilt = true
		result.AffectedEntities = diff.ChangedEntityNames
		for _, name := range diff.ChangedEntityNames {
			for dep := range w.entityDependencies[name] {
				affected[dep] = true
			}
		}
	}
	result.RebuiltFiles = sortedKeys(affected)
	return result, nil
}

func (w *Workspace) updateLinkDependencies(uri string, m *semantic.SemanticModel) {
	for _, deps := range w.linkDependencies {
		delete(deps, uri)
	}
	for _, ref := range m.References {
		if w.linkDependencies[ref.LinkID] == nil {
			w.linkDependencies[ref.LinkID] = map[string]bool{}
		}
		w.linkDependencies[ref.LinkID][uri] = true
	}
}

// updateLinkDefinitions folds uri's newly built definitions into
// linkDefinitions and drops any it no longer carries, so FindDefinition
// never has to fall back to scanning every open document.
func (w *Workspace) updateLinkDefinitions(uri string, oldModel, newModel *semantic.SemanticModel) {
	if oldModel != nil {
		for id := range oldModel.Definitions {
			if _, ok := newModel.Definitions[id]; !ok {
				w.dropLinkDefinition(id, uri)
			}
		}
	}
	for id, def := range newModel.Definitions {
		if w.linkDefinitions[id] == nil {
			w.linkDefinitions[id] = map[string]semantic.LinkDefinition{}
		}
		w.linkDefinitions[id][uri] = def
	}
}

func (w *Workspace) dropLinkDefinition(id, uri string) {
	byURI, ok := w.linkDefinitions[id]
	if !ok {
		return
	}
	delete(byURI, uri)
	if len(byURI) == 0 {
		delete(w.linkDefinitions, id)
	}
}

// GetAffectedFiles is the sole source of truth for which other open files
// depend on filename: every file referencing a link id filename defines,
// plus every file using an entity filename supplies a schema change for.
func (w *Workspace) GetAffectedFiles(filename string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	affected := map[string]bool{filename: true}
	m, ok := w.models[filename]
	if !ok {
		return sortedKeys(affected)
	}
	for id := range m.Definitions {
		for dep := range w.linkDependencies[id] {
			affected[dep] = true
		}
	}
	for _, e := range m.SchemaEntries {
		for dep := range w.entityDependencies[e.Schema.EntityName] {
			affected[dep] = true
		}
	}
	return sortedKeys(affected)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (w *Workspace) rebuildRegistryLocked() {
	var all []schema.WithFile
	for uri, doc := range w.documents {
		for _, b := range doc.Blocks {
			if b.File == nil {
				continue
			}
			for _, e := range b.File.Entries {
				all = append(all, schema.WithFile{Entry: e, File: uri})
			}
		}
	}
	w.registry = schema.Build(all)

	w.entityDependencies = map[string]map[string]bool{}
	for uri, doc := range w.documents {
		for _, b := range doc.Blocks {
			if b.File == nil {
				continue
			}
			for _, e := range b.File.Entries {
				if e.Kind == ast.KindInstance {
					name := e.Instance.EntityName
					if w.entityDependencies[name] == nil {
						w.entityDependencies[name] = map[string]bool{}
					}
					w.entityDependencies[name][uri] = true
				}
			}
		}
	}
}

// SchemaRegistry returns the workspace's current composed entity registry.
func (w *Workspace) SchemaRegistry() *schema.Registry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.registry
}

// AllEntries returns every entry across every open document, in
// unspecified order. Callers that need determinism should sort by
// identity/timestamp themselves (see internal/ident).
func (w *Workspace) AllEntries() []ast.Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var all []ast.Entry
	for _, doc := range w.documents {
		for _, b := range doc.Blocks {
			if b.File != nil {
				all = append(all, b.File.Entries...)
			}
		}
	}
	return all
}

// AllInstanceEntries returns every create/update entry across the
// workspace.
func (w *Workspace) AllInstanceEntries() []ast.Entry {
	var out []ast.Entry
	for _, e := range w.AllEntries() {
		if e.Kind == ast.KindInstance {
			out = append(out, e)
		}
	}
	return out
}

// Document returns the open document at uri, or nil if not open.
func (w *Workspace) Document(uri string) *document.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.documents[uri]
}

// FindDefinition resolves a link id to the entry that defines it, and the
// uri of the file it lives in. If more than one open file defines the same
// id (a duplicate-link-id state the checker separately flags), the
// definition from the most recently added-or-updated file wins, per
// fileSeq — never an arbitrary map-iteration pick.
func (w *Workspace) FindDefinition(linkID string) (ast.Entry, string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	byURI, ok := w.linkDefinitions[linkID]
	if !ok || len(byURI) == 0 {
		return ast.Entry{}, "", false
	}
	winnerURI, winnerSeq := "", -1
	for uri := range byURI {
		if seq := w.fileSeq[uri]; seq > winnerSeq {
			winnerSeq, winnerURI = seq, uri
		}
	}
	return byURI[winnerURI].Entry, winnerURI, true
}

// FindReferences returns every entry across the workspace that references
// linkID, paired with the uri each lives in, sorted by (uri, byte offset)
// for a deterministic result independent of map iteration order.
func (w *Workspace) FindReferences(linkID string) []RefLocation {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []RefLocation
	for uri, m := range w.models {
		for _, ref := range m.References {
			if ref.LinkID == linkID {
				out = append(out, RefLocation{URI: uri, Entry: ref.From, Location: ref.Location})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].URI != out[j].URI {
			return out[i].URI < out[j].URI
		}
		return out[i].Location.StartByte < out[j].Location.StartByte
	})
	return out
}

// RefLocation pairs a referencing entry with the file it was found in.
type RefLocation struct {
	URI      string
	Entry    ast.Entry
	Location ast.Location
}

// Snapshot is an immutable, point-in-time view of the workspace's derived
// state, safe to hand to a long-running rule or query without holding the
// workspace lock.
type Snapshot struct {
	Entries  []ast.Entry
	Registry *schema.Registry
	// Files maps each entry back to the uri of the document it came from,
	// so a rule can attach a diagnostic to the right file even though
	// ast.Entry itself carries no file identity.
	Files map[ast.Entry]string
}

// Snapshot captures the workspace's current entries and schema registry.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var all []ast.Entry
	files := map[ast.Entry]string{}
	for uri, doc := range w.documents {
		for _, b := range doc.Blocks {
			if b.File != nil {
				for _, e := range b.File.Entries {
					all = append(all, e)
					files[e] = uri
				}
			}
		}
	}
	return Snapshot{Entries: all, Registry: w.registry, Files: files}
}
