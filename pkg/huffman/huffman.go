// Package huffman implements the static Huffman coding used for archive
// content.
//
// A compressed stream is laid out as
//
//	[tree: pre-order bits, zero-padded to a byte boundary]
//	[padding: 1 byte, count of zero bits appended to the payload]
//	[payload: code bits of every input byte, MSB first, zero-padded]
//
// The stream is self-contained: the tree carries no length prefix and is
// delimited by its own structure.
package huffman

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/icza/bitio"
)

var (
	// ErrCorrupt is returned by Decode for any stream that cannot have been
	// produced by Encode.
	ErrCorrupt = errors.New("huffman: corrupt stream")

	// ErrCodeTooLong is returned by Encode when the tree is deeper than 64
	// levels, which needs an input of at least 2^44 bytes.
	ErrCodeTooLong = errors.New("huffman: code longer than 64 bits")
)

// Encode compresses src. An empty src encodes to an empty stream.
func Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}

	var freq [256]uint64
	for _, b := range src {
		freq[b]++
	}
	t := buildTree(&freq)
	table, err := t.codes()
	if err != nil {
		return nil, err
	}

	var nbits uint64
	for b, f := range freq {
		nbits += f * uint64(table[b].n)
	}
	padding := byte((8 - nbits%8) % 8)

	var buf bytes.Buffer
	buf.Grow(t.serializedLen() + 1 + int((nbits+7)/8))
	w := bitio.NewWriter(&buf)
	if err := t.writeTo(w); err != nil {
		return nil, fmt.Errorf("write tree: %w", err)
	}
	if _, err := w.Align(); err != nil {
		return nil, fmt.Errorf("align tree: %w", err)
	}
	if err := w.WriteByte(padding); err != nil {
		return nil, fmt.Errorf("write padding: %w", err)
	}
	for _, b := range src {
		c := table[b]
		if err := w.WriteBits(c.bits, c.n); err != nil {
			return nil, fmt.Errorf("write payload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flush payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode. Malformed input yields an error wrapping
// ErrCorrupt; Decode never reads beyond src.
func Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}

	t, err := readTree(bitio.NewReader(bytes.NewReader(src)))
	if err != nil {
		return nil, err
	}
	treeLen := t.serializedLen()
	if treeLen >= len(src) {
		return nil, fmt.Errorf("%w: missing padding length", ErrCorrupt)
	}
	padding := src[treeLen]
	if padding > 7 {
		return nil, fmt.Errorf("%w: padding length %d", ErrCorrupt, padding)
	}
	payload := src[treeLen+1:]
	if len(payload) == 0 && padding != 0 {
		return nil, fmt.Errorf("%w: padding without payload", ErrCorrupt)
	}
	return t.decode(payload, uint64(len(payload))*8-uint64(padding))
}

func (t *tree) decode(payload []byte, nbits uint64) ([]byte, error) {
	r := bitio.NewReader(bytes.NewReader(payload))
	out := make([]byte, 0, len(payload)*2)
	root := t.nodes[t.root]
	cur := t.root
	for i := uint64(0); i < nbits; i++ {
		right, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated payload: %v", ErrCorrupt, err)
		}
		if root.leaf() {
			out = append(out, root.sym)
			continue
		}
		if right {
			cur = t.nodes[cur].right
		} else {
			cur = t.nodes[cur].left
		}
		if n := t.nodes[cur]; n.leaf() {
			out = append(out, n.sym)
			cur = t.root
		}
	}
	if cur != t.root {
		return nil, fmt.Errorf("%w: payload ends inside a code", ErrCorrupt)
	}
	return out, nil
}
