package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	log "github.com/rs/zerolog/log"
)

// Mismatch is a dictionary entry that does not agree with the source tree.
type Mismatch struct {
	Path   string
	Reason string
}

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	Checked    int
	Mismatches []Mismatch
}

// OK reports whether every entry matched.
func (r *VerifyReport) OK() bool { return len(r.Mismatches) == 0 }

// Verify checks the archive at path against the directory it was built
// from: directories must still be directories and every file's content must
// hash to the same xxhash64 as the source. A corrupt archive is an error;
// disagreements are collected in the report.
func Verify(path, root string) (*VerifyReport, error) {
	a, err := Open(path)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{}
	mismatch := func(p, format string, args ...any) {
		m := Mismatch{Path: p, Reason: fmt.Sprintf(format, args...)}
		log.Warn().Str("path", m.Path).Str("reason", m.Reason).Msg("mismatch")
		report.Mismatches = append(report.Mismatches, m)
	}

	for i, e := range a.Dictionary {
		source := filepath.Join(root, filepath.FromSlash(e.Path))
		switch e.Type {
		case TypeDirectory:
			info, err := os.Stat(source)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				mismatch(e.Path, "directory missing from source")
			case err != nil:
				mismatch(e.Path, "stat source: %v", err)
			case !info.IsDir():
				mismatch(e.Path, "source is not a directory")
			}
		case TypeFile:
			got, err := a.Digest(i)
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(source)
			if err != nil {
				mismatch(e.Path, "read source: %v", err)
				break
			}
			if want := xxhash.Sum64(data); got != want {
				mismatch(e.Path, "content digest %016x, source %016x", got, want)
			}
		default:
			continue
		}
		report.Checked++
	}
	return report, nil
}
