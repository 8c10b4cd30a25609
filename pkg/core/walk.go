package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	log "github.com/rs/zerolog/log"
)

// Found is one object discovered under the root.
type Found struct {
	Rel  string // slash-separated, relative to the root, no leading separator
	Abs  string // path on disk
	Type EntryType
	Size int64 // regular files only
}

// Problem is a non-fatal condition attached to a path.
type Problem struct {
	Path string
	Err  error
}

func (p Problem) Error() string { return p.Path + ": " + p.Err.Error() }

func (p Problem) Unwrap() error { return p.Err }

// Discover walks root depth-first in lexical order and returns everything
// beneath it, the root itself excluded. Paths matching an exclude pattern are
// dropped; an excluded directory drops its whole subtree. Unreadable
// directories are reported as problems and their contents skipped.
func Discover(root string, exclude []string) ([]Found, []Problem, error) {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, nil, fmt.Errorf("%w: bad exclude pattern %q", ErrConfig, pattern)
		}
	}

	// WalkDir does not descend into a symlinked root, so resolve it first.
	root, err := filepath.EvalSymlinks(filepath.Clean(root))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrPath, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrPath, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrPath, root)
	}

	var (
		found    []Found
		problems []Problem
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			problems = append(problems, Problem{Path: path, Err: fmt.Errorf("%w: %w", ErrIO, err)})
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)
		if excluded(exclude, rel) {
			log.Debug().Str("path", rel).Msg("excluded")
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		f, err := classify(rel, path, d)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("cannot stat file")
			problems = append(problems, Problem{Path: path, Err: err})
		}
		found = append(found, f)
		return nil
	})
	if err != nil {
		return nil, problems, fmt.Errorf("walk directory %s: %w", root, err)
	}
	return found, problems, nil
}

// classify tags a walked object. A regular file whose metadata cannot be
// read is still returned, with zero size, alongside the error.
func classify(rel, path string, d fs.DirEntry) (Found, error) {
	f := Found{Rel: rel, Abs: path, Type: TypeUnknown}
	switch {
	case d.IsDir():
		f.Type = TypeDirectory
	case d.Type().IsRegular():
		f.Type = TypeFile
		fi, err := d.Info()
		if err != nil {
			return f, fmt.Errorf("%w: %w", ErrIO, err)
		}
		f.Size = fi.Size()
	}
	return f, nil
}

func excluded(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
