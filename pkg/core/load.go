package core

import (
	"bytes"
	"fmt"
	"io"
	"os"

	log "github.com/rs/zerolog/log"

	"unified/pkg/huffman"
	"unified/pkg/progress"
)

// Outcome is what the content loader did with one dictionary entry.
type Outcome uint8

const (
	OutcomeNotFile Outcome = iota // directory or unknown type, no data
	OutcomeStored                 // content appended to the content region
	OutcomeEmpty                  // zero-length file, no data
	OutcomeSkipped                // read or encode failed, entry left empty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFile:
		return "not-file"
	case OutcomeStored:
		return "stored"
	case OutcomeEmpty:
		return "empty"
	case OutcomeSkipped:
		return "skipped"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// LoadResult is the per-entry record of LoadContent.
type LoadResult struct {
	Path     string
	Outcome  Outcome
	Original int64  // bytes read from disk
	Stored   uint64 // bytes placed in the content region
	Err      error  // set when Outcome is OutcomeSkipped
}

// LoadContent reads every file entry of dict, encodes it when compress is
// set, and assigns DataOffset and DataSize in encounter order. The returned
// buffers line up with the file entries whose DataSize is non-zero. The
// final value is the total size of the content region.
func LoadContent(dict []DictionaryEntry, compress bool) ([][]byte, []LoadResult, uint64) {
	var (
		offset   uint64
		contents [][]byte
	)
	results := make([]LoadResult, len(dict))
	for i := range dict {
		e := &dict[i]
		e.DataOffset, e.DataSize = 0, 0
		res := &results[i]
		res.Path = e.Path

		if e.Type != TypeFile {
			res.Outcome = OutcomeNotFile
			continue
		}

		data, err := readSource(e.Source)
		if err != nil {
			log.Error().Err(err).Str("path", e.Source).Msg("failed to load file")
			res.Outcome, res.Err = OutcomeSkipped, err
			continue
		}
		res.Original = int64(len(data))
		if len(data) == 0 {
			res.Outcome = OutcomeEmpty
			continue
		}

		if compress {
			log.Debug().Str("path", e.Path).Int("size", len(data)).Msg("compressing")
			if data, err = huffman.Encode(data); err != nil {
				log.Error().Err(err).Str("path", e.Source).Msg("failed to compress file")
				res.Outcome, res.Err = OutcomeSkipped, fmt.Errorf("compress %s: %w", e.Path, err)
				continue
			}
		}

		e.DataOffset = offset
		e.DataSize = uint64(len(data))
		offset += e.DataSize
		contents = append(contents, data)
		res.Outcome, res.Stored = OutcomeStored, e.DataSize
	}
	return contents, results, offset
}

// readSource reads a whole file, failing on a short read.
func readSource(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	buf.Grow(int(size))
	n, err := io.CopyN(&progress.Writer{W: &buf}, f, size)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: expected %d bytes, got %d: %w", ErrIO, path, size, n, err)
	}
	return buf.Bytes(), nil
}
