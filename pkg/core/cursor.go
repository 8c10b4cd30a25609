package core

import "fmt"

// cursor writes into a fixed-capacity buffer. The first write that does not
// fit sets err and every later write is dropped.
type cursor struct {
	buf []byte
	pos int
	err error
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) reserve(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n > len(c.buf)-c.pos {
		c.err = fmt.Errorf("%w: %d bytes at offset %d, capacity %d", ErrOverflow, n, c.pos, len(c.buf))
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) putUint8(v uint8) {
	if b := c.reserve(1); b != nil {
		b[0] = v
	}
}

func (c *cursor) putUint32(v uint32) {
	if b := c.reserve(4); b != nil {
		byteOrder.PutUint32(b, v)
	}
}

func (c *cursor) putUint64(v uint64) {
	if b := c.reserve(8); b != nil {
		byteOrder.PutUint64(b, v)
	}
}

func (c *cursor) putBytes(p []byte) {
	if b := c.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

func (c *cursor) putString(s string) {
	if b := c.reserve(len(s)); b != nil {
		copy(b, s)
	}
}

// reader is the decoding counterpart of cursor. Reads past the end set err
// and return zero values.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.err = fmt.Errorf("%w: truncated at offset %d, need %d bytes", ErrFormat, r.pos, n)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) uint8() uint8 {
	if b := r.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) uint32() uint32 {
	if b := r.bytes(4); b != nil {
		return byteOrder.Uint32(b)
	}
	return 0
}

func (r *reader) uint64() uint64 {
	if b := r.bytes(8); b != nil {
		return byteOrder.Uint64(b)
	}
	return 0
}
