package core

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"

	"unified/pkg/huffman"
)

// Archive is a parsed archive held in memory. It only reads; nothing is
// extracted to disk.
type Archive struct {
	Header     Header
	Deletions  []DeletionEntry
	Dictionary []DictionaryEntry

	data []byte
}

// Open reads and parses the archive at path.
func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %w", ErrIO, err)
	}
	return Parse(data)
}

// Parse validates data as an archive and decodes its entries.
func Parse(data []byte) (*Archive, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	a := &Archive{data: data}
	h := &a.Header
	if err := h.UnmarshalBinary(data[:HeaderSize]); err != nil {
		return nil, err
	}
	if err := h.Check(); err != nil {
		return nil, err
	}
	if h.ContentEnd != uint64(len(data)) {
		return nil, fmt.Errorf("%w: content ends at %d, archive is %d bytes", ErrFormat, h.ContentEnd, len(data))
	}

	r := newReader(data[h.DeleterOffset:h.DeleterEnd])
	for r.remaining() > 0 && r.err == nil {
		size := r.uint32()
		if size < deletionFixedSize {
			return nil, fmt.Errorf("%w: deletion entry at %d has size %d", ErrFormat, h.DeleterOffset+uint64(r.pos)-4, size)
		}
		path := r.bytes(int(size) - deletionFixedSize)
		a.Deletions = append(a.Deletions, DeletionEntry{Size: size, Path: string(path)})
	}
	if r.err != nil {
		return nil, fmt.Errorf("deletion list: %w", r.err)
	}

	contentLen := h.ContentEnd - h.ContentOffset
	r = newReader(data[h.DictionaryOffset:h.DictionaryEnd])
	for r.remaining() > 0 && r.err == nil {
		var e DictionaryEntry
		e.Size = r.uint32()
		e.PathSize = r.uint32()
		e.Type = EntryType(r.uint8())
		e.Path = string(r.bytes(int(e.PathSize)))
		e.DataOffset = r.uint64()
		e.DataSize = r.uint64()
		if r.err != nil {
			break
		}
		if uint64(e.Size) != uint64(e.PathSize)+dictionaryFixedSize {
			return nil, fmt.Errorf("%w: entry %s has size %d and path size %d", ErrFormat, e.Path, e.Size, e.PathSize)
		}
		if e.DataOffset > contentLen || e.DataSize > contentLen-e.DataOffset {
			return nil, fmt.Errorf("%w: data of %s [%d, +%d) outside the content region", ErrFormat, e.Path, e.DataOffset, e.DataSize)
		}
		if e.Type != TypeFile && (e.DataOffset != 0 || e.DataSize != 0) {
			return nil, fmt.Errorf("%w: %s entry %s carries data", ErrFormat, e.Type, e.Path)
		}
		a.Dictionary = append(a.Dictionary, e)
	}
	if r.err != nil {
		return nil, fmt.Errorf("dictionary: %w", r.err)
	}
	return a, nil
}

// Compressed reports whether file data is Huffman-encoded.
func (a *Archive) Compressed() bool { return a.Header.Compressed == 1 }

// Stored returns the bytes of dictionary entry i as they sit in the
// content region.
func (a *Archive) Stored(i int) []byte {
	e := a.Dictionary[i]
	start := a.Header.ContentOffset + e.DataOffset
	return a.data[start : start+e.DataSize]
}

// Content returns the original bytes of dictionary entry i, decoding them if
// the archive is compressed.
func (a *Archive) Content(i int) ([]byte, error) {
	stored := a.Stored(i)
	if !a.Compressed() || len(stored) == 0 {
		return stored, nil
	}
	out, err := huffman.Decode(stored)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.Dictionary[i].Path, err)
	}
	return out, nil
}

// Digest is the xxhash64 of the original bytes of dictionary entry i.
func (a *Archive) Digest(i int) (uint64, error) {
	content, err := a.Content(i)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(content), nil
}
