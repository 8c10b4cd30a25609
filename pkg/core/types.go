package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Constants for archive format
const (
	Magic     = "UNIFIED" // Magic tag, NUL-padded to 8 bytes on disk
	Revision  = 0         // Archive format revision
	Extension = ".inst"   // Suffix appended to the output name

	// HeaderSize is the encoded size of Header.
	HeaderSize = 8 + 1 + 8*8 + 1

	deletionFixedSize   = 4                 // size field
	dictionaryFixedSize = 4 + 4 + 1 + 8 + 8 // size, path size, type, data offset, data size
)

// Every multi-byte field in the archive is little-endian.
var byteOrder = binary.LittleEndian

var (
	ErrConfig      = errors.New("configuration error")
	ErrPath        = errors.New("path error")
	ErrIO          = errors.New("i/o error")
	ErrUnsupported = errors.New("unsupported entry type")
	ErrOverflow    = errors.New("write past end of buffer")
	ErrLayout      = errors.New("layout mismatch")
	ErrFormat      = errors.New("invalid archive")
)

// EntryType tags a dictionary entry.
type EntryType uint8

const (
	TypeDirectory EntryType = 0x00
	TypeFile      EntryType = 0x01
	TypeUnknown   EntryType = 0xFF
)

func (t EntryType) String() string {
	switch t {
	case TypeDirectory:
		return "dir"
	case TypeFile:
		return "file"
	case TypeUnknown:
		return "unknown"
	}
	return fmt.Sprintf("type(%#02x)", uint8(t))
}

// Header is the fixed record at offset 0. Each region satisfies
// Offset+Size == End and regions follow each other without gaps:
// header, deletion list, dictionary, content.
type Header struct {
	Magic    [8]byte
	Revision uint8

	DeleterOffset uint64
	DeleterEnd    uint64
	DeleterSize   uint64

	DictionaryOffset uint64
	DictionaryEnd    uint64
	DictionarySize   uint64

	ContentOffset uint64
	ContentEnd    uint64

	Compressed uint8 // 0x00 raw, 0x01 Huffman
}

// NewHeader returns a header with the magic and revision filled in.
func NewHeader() Header {
	h := Header{Revision: Revision}
	copy(h.Magic[:], Magic)
	return h
}

func (h *Header) encode(c *cursor) {
	c.putBytes(h.Magic[:])
	c.putUint8(h.Revision)
	for _, v := range []uint64{
		h.DeleterOffset, h.DeleterEnd, h.DeleterSize,
		h.DictionaryOffset, h.DictionaryEnd, h.DictionarySize,
		h.ContentOffset, h.ContentEnd,
	} {
		c.putUint64(v)
	}
	c.putUint8(h.Compressed)
}

// MarshalBinary encodes the header field by field.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	c := newCursor(buf)
	h.encode(c)
	return buf, c.err
}

// UnmarshalBinary decodes a header. It does not check region invariants.
func (h *Header) UnmarshalBinary(data []byte) error {
	r := newReader(data)
	copy(h.Magic[:], r.bytes(8))
	h.Revision = r.uint8()
	for _, v := range []*uint64{
		&h.DeleterOffset, &h.DeleterEnd, &h.DeleterSize,
		&h.DictionaryOffset, &h.DictionaryEnd, &h.DictionarySize,
		&h.ContentOffset, &h.ContentEnd,
	} {
		*v = r.uint64()
	}
	h.Compressed = r.uint8()
	if r.err != nil {
		return fmt.Errorf("header: %w", r.err)
	}
	return nil
}

// Check validates the magic, revision and region chain.
func (h *Header) Check() error {
	var want [8]byte
	copy(want[:], Magic)
	if h.Magic != want {
		return fmt.Errorf("%w: bad magic %q", ErrFormat, strings.TrimRight(string(h.Magic[:]), "\x00"))
	}
	if h.Revision != Revision {
		return fmt.Errorf("%w: unsupported revision %d", ErrFormat, h.Revision)
	}
	if h.Compressed > 1 {
		return fmt.Errorf("%w: compression flag %#02x", ErrFormat, h.Compressed)
	}
	regions := []struct {
		name              string
		offset, end, size uint64
		prevEnd           uint64
	}{
		{"deletion list", h.DeleterOffset, h.DeleterEnd, h.DeleterSize, HeaderSize},
		{"dictionary", h.DictionaryOffset, h.DictionaryEnd, h.DictionarySize, h.DeleterEnd},
		{"content", h.ContentOffset, h.ContentEnd, h.ContentEnd - h.ContentOffset, h.DictionaryEnd},
	}
	for _, r := range regions {
		if r.offset != r.prevEnd {
			return fmt.Errorf("%w: %s starts at %d, expected %d", ErrFormat, r.name, r.offset, r.prevEnd)
		}
		if r.end < r.offset || r.offset+r.size != r.end {
			return fmt.Errorf("%w: %s [%d, %d) does not hold %d bytes", ErrFormat, r.name, r.offset, r.end, r.size)
		}
	}
	return nil
}

// DeletionEntry names a file an update removes from the installation.
type DeletionEntry struct {
	Size uint32 // size field plus path bytes
	Path string // relative to the root, "/"-prefixed
}

// NewDeletionEntry builds an entry for a root-relative path.
func NewDeletionEntry(rel string) DeletionEntry {
	p := canonicalPath(rel)
	return DeletionEntry{Size: uint32(len(p) + deletionFixedSize), Path: p}
}

// DictionaryEntry describes one filesystem object in the archive.
type DictionaryEntry struct {
	Size       uint32 // PathSize + 25
	PathSize   uint32
	Type       EntryType
	Path       string // relative to the root, "/"-prefixed
	DataOffset uint64 // into the content region
	DataSize   uint64 // stored length, compressed if the archive is

	// Source is the location on disk. It is not serialized.
	Source string
}

// NewDictionaryEntry builds an entry for a root-relative path with empty data.
func NewDictionaryEntry(rel string, typ EntryType, source string) DictionaryEntry {
	p := canonicalPath(rel)
	return DictionaryEntry{
		Size:     uint32(len(p) + dictionaryFixedSize),
		PathSize: uint32(len(p)),
		Type:     typ,
		Path:     p,
		Source:   source,
	}
}

// canonicalPath turns a slash-separated relative path into the stored form,
// with exactly one leading separator.
func canonicalPath(rel string) string {
	return "/" + strings.TrimLeft(strings.ReplaceAll(rel, "\\", "/"), "/")
}
