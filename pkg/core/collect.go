package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/rs/zerolog/log"
)

// CollectDeletions selects the regular files that also exist under the
// update reference directory, in discovery order.
//
// The reference path is joined component-wise, so "foo" never matches a
// reference entry named "foobar".
func CollectDeletions(found []Found, reference string) []DeletionEntry {
	var entries []DeletionEntry
	for _, f := range found {
		if f.Type != TypeFile {
			continue
		}
		target := filepath.Join(reference, filepath.FromSlash(f.Rel))
		if _, err := os.Lstat(target); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Debug().Err(err).Str("path", target).Msg("reference lookup failed")
			}
			continue
		}
		log.Info().Str("path", f.Rel).Msg("updating")
		entries = append(entries, NewDeletionEntry(f.Rel))
	}
	return entries
}

// CollectDictionary records one entry per discovered object. Objects of
// unsupported type are kept with TypeUnknown and reported.
func CollectDictionary(found []Found) ([]DictionaryEntry, []Problem) {
	entries := make([]DictionaryEntry, 0, len(found))
	var problems []Problem
	for _, f := range found {
		e := NewDictionaryEntry(f.Rel, f.Type, f.Abs)
		if f.Type == TypeUnknown {
			log.Warn().Str("path", f.Abs).Msg("file type not supported")
			problems = append(problems, Problem{Path: e.Path, Err: ErrUnsupported})
		}
		entries = append(entries, e)
	}
	return entries, problems
}
