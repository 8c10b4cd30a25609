package core

import (
	"errors"
	"fmt"
	"os"

	log "github.com/rs/zerolog/log"

	"unified/pkg/progress"
)

// Options configures one build.
type Options struct {
	Root     string   // directory to package
	Name     string   // output name, written as Name + ".inst"
	Update   string   // reference directory; non-empty turns on update mode
	Compress bool     // Huffman-encode file contents
	Exclude  []string // doublestar patterns matched against root-relative paths
}

// Validate reports missing required settings.
func (o Options) Validate() error {
	if o.Root == "" {
		return fmt.Errorf("%w: no root directory specified", ErrConfig)
	}
	if o.Name == "" {
		return fmt.Errorf("%w: no output name specified", ErrConfig)
	}
	return nil
}

// Result summarizes a finished build.
type Result struct {
	Path        string
	Header      Header
	TotalSize   uint64
	Deletions   int
	Entries     int
	SourceBytes uint64       // bytes read from disk
	Loads       []LoadResult // one per dictionary entry
	Problems    []Problem    // non-fatal conditions met on the way
}

// Skipped returns the file entries whose content could not be loaded.
func (r *Result) Skipped() []LoadResult {
	var out []LoadResult
	for _, l := range r.Loads {
		if l.Outcome == OutcomeSkipped {
			out = append(out, l)
		}
	}
	return out
}

// Build packages opts.Root into a single archive. Per-file failures are
// logged and recorded in the result; a configuration error or a failure to
// write the archive aborts the build with no output file.
func Build(opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	update := opts.Update != ""
	res := &Result{Path: ArchivePath(opts.Name)}

	found, problems, err := Discover(opts.Root, opts.Exclude)
	res.Problems = append(res.Problems, problems...)
	switch {
	case errors.Is(err, ErrConfig):
		return nil, err
	case err != nil:
		log.Error().Err(err).Str("root", opts.Root).Msg("given path is not a directory or does not exist")
		res.Problems = append(res.Problems, Problem{Path: opts.Root, Err: err})
		found = nil
	}

	// Calculate total size for progress
	var totalSize uint64
	for _, f := range found {
		totalSize += uint64(f.Size)
	}
	progress.Init(totalSize)
	defer progress.Stop()

	plan := NewPlan(update, opts.Compress)
	if update {
		if _, err := os.Stat(opts.Update); err != nil {
			log.Warn().Err(err).Str("reference", opts.Update).Msg("update reference is not accessible")
			res.Problems = append(res.Problems, Problem{Path: opts.Update, Err: fmt.Errorf("%w: %w", ErrPath, err)})
		}
		plan.AddDeletions(CollectDeletions(found, opts.Update)...)
		log.Info().Int("entries", len(plan.Deletions)).Msg("loaded update dictionary")
	}

	dict, problems := CollectDictionary(found)
	res.Problems = append(res.Problems, problems...)
	plan.AddDictionary(dict...)
	log.Info().Int("entries", len(plan.Dictionary)).Msg("loaded dictionary")

	contents, loads, contentSize := LoadContent(plan.Dictionary, opts.Compress)
	plan.Contents = contents
	res.Loads = loads
	for _, l := range loads {
		res.SourceBytes += uint64(l.Original)
		if l.Err != nil {
			res.Problems = append(res.Problems, Problem{Path: l.Path, Err: l.Err})
		}
	}
	log.Info().Int("buffers", len(contents)).Msg("loaded data")

	plan.Finalize(contentSize)
	buf, err := Assemble(plan)
	if err != nil {
		return nil, fmt.Errorf("assemble archive: %w", err)
	}
	if err := WriteArchive(res.Path, buf); err != nil {
		return nil, err
	}

	res.Header = plan.Header
	res.TotalSize = uint64(len(buf))
	res.Deletions = len(plan.Deletions)
	res.Entries = len(plan.Dictionary)
	log.Info().
		Str("path", res.Path).
		Uint64("size", res.TotalSize).
		Uint64("source", res.SourceBytes).
		Int("problems", len(res.Problems)).
		Msg("exported")
	return res, nil
}
