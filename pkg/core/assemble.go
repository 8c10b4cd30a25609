package core

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Plan is an archive under construction. The collection passes append
// entries and keep the header's size totals current; Finalize fills in the
// offsets once the content is loaded.
type Plan struct {
	Header     Header
	Update     bool
	Deletions  []DeletionEntry
	Dictionary []DictionaryEntry
	Contents   [][]byte
}

// NewPlan starts an empty archive.
func NewPlan(update, compress bool) *Plan {
	p := &Plan{Header: NewHeader(), Update: update}
	if compress {
		p.Header.Compressed = 1
	}
	return p
}

// AddDeletions appends deletion entries and grows the deletion region.
func (p *Plan) AddDeletions(entries ...DeletionEntry) {
	for _, e := range entries {
		p.Deletions = append(p.Deletions, e)
		p.Header.DeleterSize += uint64(e.Size)
	}
}

// AddDictionary appends dictionary entries and grows the dictionary region.
func (p *Plan) AddDictionary(entries ...DictionaryEntry) {
	for _, e := range entries {
		p.Dictionary = append(p.Dictionary, e)
		p.Header.DictionarySize += uint64(e.Size)
	}
}

// Finalize lays the regions out back to back after the header. content is
// the size of the content region as reported by LoadContent. Without update
// mode the deletion region is empty and sits right after the header.
func (p *Plan) Finalize(content uint64) {
	h := &p.Header
	if !p.Update {
		h.DeleterSize = 0
	}
	h.DeleterOffset = HeaderSize
	h.DeleterEnd = h.DeleterOffset + h.DeleterSize
	h.DictionaryOffset = h.DeleterEnd
	h.DictionaryEnd = h.DictionaryOffset + h.DictionarySize
	h.ContentOffset = h.DictionaryEnd
	h.ContentEnd = h.ContentOffset + content
}

// TotalSize is the byte length of the serialized archive.
func (p *Plan) TotalSize() uint64 {
	total := uint64(HeaderSize)
	if p.Update {
		for _, e := range p.Deletions {
			total += uint64(e.Size)
		}
	}
	for _, e := range p.Dictionary {
		total += uint64(e.Size) + e.DataSize
	}
	return total
}

// Assemble serializes a finalized plan into one buffer of exactly
// TotalSize bytes.
func Assemble(p *Plan) ([]byte, error) {
	total := p.TotalSize()
	if total > math.MaxInt {
		return nil, fmt.Errorf("%w: archive of %d bytes does not fit in memory", ErrLayout, total)
	}
	h := &p.Header
	if total != h.ContentEnd {
		return nil, fmt.Errorf("%w: header ends at %d, entries need %d bytes", ErrLayout, h.ContentEnd, total)
	}

	buf := make([]byte, total)
	c := newCursor(buf)
	h.encode(c)

	if p.Update {
		for _, e := range p.Deletions {
			if int(e.Size) != len(e.Path)+deletionFixedSize {
				return nil, fmt.Errorf("%w: deletion entry %s has size %d", ErrLayout, e.Path, e.Size)
			}
			c.putUint32(e.Size)
			c.putString(e.Path)
		}
	}
	if err := c.at(h.DeleterEnd, "deletion list"); err != nil {
		return nil, err
	}

	for _, e := range p.Dictionary {
		if int(e.PathSize) != len(e.Path) || int(e.Size) != len(e.Path)+dictionaryFixedSize {
			return nil, fmt.Errorf("%w: dictionary entry %s has size %d and path size %d", ErrLayout, e.Path, e.Size, e.PathSize)
		}
		c.putUint32(e.Size)
		c.putUint32(e.PathSize)
		c.putUint8(uint8(e.Type))
		c.putString(e.Path)
		c.putUint64(e.DataOffset)
		c.putUint64(e.DataSize)
	}
	if err := c.at(h.DictionaryEnd, "dictionary"); err != nil {
		return nil, err
	}

	next := 0
	for _, e := range p.Dictionary {
		if e.Type != TypeFile || e.DataSize == 0 {
			continue
		}
		if next >= len(p.Contents) {
			return nil, fmt.Errorf("%w: no content buffer for %s", ErrLayout, e.Path)
		}
		data := p.Contents[next]
		next++
		if uint64(len(data)) != e.DataSize {
			return nil, fmt.Errorf("%w: %s has %d bytes, dictionary says %d", ErrLayout, e.Path, len(data), e.DataSize)
		}
		if err := c.at(h.ContentOffset+e.DataOffset, e.Path); err != nil {
			return nil, err
		}
		c.putBytes(data)
	}
	if next != len(p.Contents) {
		return nil, fmt.Errorf("%w: %d content buffers without a dictionary entry", ErrLayout, len(p.Contents)-next)
	}
	if err := c.at(h.ContentEnd, "content"); err != nil {
		return nil, err
	}
	return buf, nil
}

// at reports a pending overflow, or a cursor that is not at want.
func (c *cursor) at(want uint64, what string) error {
	if c.err != nil {
		return fmt.Errorf("%s: %w", what, c.err)
	}
	if uint64(c.pos) != want {
		return fmt.Errorf("%w: %s at offset %d, expected %d", ErrLayout, what, c.pos, want)
	}
	return nil
}

// ArchivePath is the file name an archive called name is written to.
func ArchivePath(name string) string {
	return name + Extension
}

// WriteArchive persists buf at path in one write. The data goes to a
// temporary file in the same directory which is renamed over path only once
// it is complete, so a failure never leaves a partial archive at path.
func WriteArchive(path string, buf []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create output directory: %w", ErrIO, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create output: %w", ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(buf); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrIO, path, err)
	}
	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrIO, path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename into %s: %w", ErrIO, path, err)
	}
	return nil
}
