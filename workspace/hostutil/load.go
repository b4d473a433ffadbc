package hostutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"

	"github.com/thalo-lang/thalo/parser"
	"github.com/thalo-lang/thalo/workspace"
)

// LoadResult reports what LoadVault read from disk, so a caller can surface
// load errors per-file instead of aborting the whole vault on one bad file.
type LoadResult struct {
	Loaded []string
	Errors map[string]error
}

// LoadVault walks root recursively via afs, reading every .thalo file and
// every Markdown file that could plausibly embed Thalo blocks, and adds
// each as a document in ws. Uses afs.Service.Walk rather than
// os.ReadDir/os.ReadFile so the same loader works unmodified against a
// vault mounted over s3, gs, or any other afs-supported scheme, matching
// how the rest of the pack reaches for afs for its filesystem abstraction.
func LoadVault(ctx context.Context, ws *workspace.Workspace, root string) (*LoadResult, error) {
	fs := afs.New()
	result := &LoadResult{Errors: map[string]error{}}

	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return true, nil
		}
		hint := fileTypeOf(info.Name())
		if hint == parser.FileTypeUnknown {
			return true, nil
		}
		fileURL := url.Join(baseURL, parent, info.Name())
		content, err := fs.DownloadWithURL(ctx, fileURL)
		if err != nil {
			result.Errors[fileURL] = err
			return true, nil
		}
		if _, err := ws.AddDocument(fileURL, content, hint); err != nil {
			result.Errors[fileURL] = err
			return true, nil
		}
		result.Loaded = append(result.Loaded, fileURL)
		return true, nil
	}

	if err := fs.Walk(ctx, root, visitor); err != nil {
		return nil, errors.Wrapf(err, "walking vault root %s", root)
	}
	return result, nil
}

func fileTypeOf(name string) parser.FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".thalo":
		return parser.FileTypeThalo
	case ".md", ".markdown":
		return parser.FileTypeMarkdown
	}
	return parser.FileTypeUnknown
}
