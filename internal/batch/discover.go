package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrRootPathMissing is returned when the root directory cannot be used.
// It aborts the batch before any document is processed.
var ErrRootPathMissing = errors.New("root path missing")

// document is one selected file: Path is what the report shows, abs is
// where it lives.
type document struct {
	Path string
	abs  string
}

// discover lists the documents to process in a stable order. Explicit files
// are taken as given, even if they do not exist; otherwise the include globs
// are expanded under root and the exclude globs are removed.
func discover(root string, include, exclude, files []string) ([]document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootPathMissing, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootPathMissing, root)
	}

	if len(files) > 0 {
		docs := make([]document, 0, len(files))
		for _, f := range files {
			abs := f
			if !filepath.IsAbs(f) {
				abs = filepath.Join(root, f)
			}

			docs = append(docs, document{Path: filepath.ToSlash(f), abs: abs})
		}

		return docs, nil
	}

	fsys := os.DirFS(root)

	var rels []string

	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("include %q: %w", pattern, err)
		}

		rels = append(rels, matches...)
	}

	slices.Sort(rels)
	rels = slices.Compact(rels)

	docs := make([]document, 0, len(rels))

	for _, rel := range rels {
		if excluded(exclude, rel) {
			continue
		}

		docs = append(docs, document{Path: rel, abs: filepath.Join(root, filepath.FromSlash(rel))})
	}

	return docs, nil
}

func excluded(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}

	return false
}
