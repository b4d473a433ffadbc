// Package hostutil detects a Thalo vault's root directory on disk and
// bulk-loads it into a workspace.Workspace. The core engine (cst through
// merge) never touches the filesystem directly; this package is the one
// optional seam where a host application (CLI, LSP server) hands real
// files to the engine. Adapted from a project-root detector that walked up
// from a file looking for Go/Java/JS/Python/Rust project markers, replacing
// those with Thalo-specific ones; the git and go.mod branches are kept
// since a Thalo vault is commonly embedded alongside a Go repository's
// docs/notes tree.
package hostutil

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/viant/afs"
	"golang.org/x/mod/modfile"
)

// Kind names what kind of root directory was found.
type Kind string

const (
	KindThaloRoot Kind = "thalo-root" // an explicit .thalo-root marker file
	KindGit       Kind = "git"        // a .git directory with no explicit marker
	KindGoModule  Kind = "go-module"  // a go.mod-rooted repo with an embedded vault
	KindUnknown   Kind = "unknown"
)

// Root describes a detected vault root.
type Root struct {
	Kind         Kind
	Path         string
	RelativePath string
	ModulePath   string // populated when Kind == KindGoModule
}

// Detector walks up from a starting path looking for vault-root markers.
type Detector struct {
	markers []string
}

// NewDetector returns a Detector using the default marker precedence: an
// explicit .thalo-root file wins, then go.mod (a Go repo with an embedded
// vault), then a bare .git directory.
func NewDetector() *Detector {
	return &Detector{markers: []string{".thalo-root", "go.mod", ".git"}}
}

// Detect walks up from filePath looking for the nearest marker.
func (d *Detector) Detect(filePath string) (*Root, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	startDir := absPath
	if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
		startDir = filepath.Dir(absPath)
	}

	dir := startDir
	for {
		for _, marker := range d.markers {
			markerPath := filepath.Join(dir, marker)
			if _, err := os.Stat(markerPath); err == nil {
				root := &Root{Kind: kindOf(marker), Path: dir}
				if marker == "go.mod" {
					root.ModulePath = extractGoModuleName(markerPath)
				}
				rel, err := filepath.Rel(dir, absPath)
				if err == nil {
					root.RelativePath = filepath.ToSlash(rel)
				}
				return root, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return &Root{Kind: KindUnknown, Path: absPath}, nil
}

func kindOf(marker string) Kind {
	switch marker {
	case ".thalo-root":
		return KindThaloRoot
	case "go.mod":
		return KindGoModule
	case ".git":
		return KindGit
	}
	return KindUnknown
}

func extractGoModuleName(goModPath string) string {
	fs := afs.New()
	if content, _ := fs.DownloadWithURL(context.Background(), goModPath); len(content) > 0 {
		if mod, _ := modfile.Parse(goModPath, content, nil); mod != nil {
			return mod.Module.Mod.Path
		}
	}
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return filepath.Base(filepath.Dir(goModPath))
	}
	moduleRegex := regexp.MustCompile(`module\s+([^\s]+)`)
	matches := moduleRegex.FindSubmatch(data)
	if len(matches) < 2 {
		return filepath.Base(filepath.Dir(goModPath))
	}
	return string(matches[1])
}
