package huffman

import (
	"container/heap"
	"fmt"

	"github.com/icza/bitio"
)

// maxNodes is the size of a full tree over the byte alphabet.
const maxNodes = 2*256 - 1

// node is one slot of the tree arena. Leaves have left == right == -1.
type node struct {
	left, right int32
	sym         byte
}

func (n node) leaf() bool { return n.left < 0 }

type tree struct {
	nodes []node
	root  int32
}

// code is the bit path to a leaf, right-aligned in bits.
type code struct {
	bits uint64
	n    uint8
}

type item struct {
	idx  int32
	freq uint64
	seq  uint64
}

// queue orders by frequency, then by the order items were pushed.
type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].freq != q[j].freq {
		return q[i].freq < q[j].freq
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// buildTree combines the two cheapest subtrees until one remains. The first
// node popped becomes the left child. Leaves enter in ascending byte order.
func buildTree(freq *[256]uint64) *tree {
	t := &tree{root: -1}
	q := make(queue, 0, 256)
	var seq uint64
	for b, f := range freq {
		if f == 0 {
			continue
		}
		t.nodes = append(t.nodes, node{left: -1, right: -1, sym: byte(b)})
		q = append(q, item{idx: int32(len(t.nodes) - 1), freq: f, seq: seq})
		seq++
	}
	if len(q) == 0 {
		return t
	}
	heap.Init(&q)
	for q.Len() > 1 {
		l := heap.Pop(&q).(item)
		r := heap.Pop(&q).(item)
		t.nodes = append(t.nodes, node{left: l.idx, right: r.idx})
		heap.Push(&q, item{idx: int32(len(t.nodes) - 1), freq: l.freq + r.freq, seq: seq})
		seq++
	}
	t.root = q[0].idx
	return t
}

// codes derives the code table. A lone leaf gets the one-bit code 0 so that
// every symbol still occupies a bit of payload.
func (t *tree) codes() ([256]code, error) {
	var table [256]code
	if root := t.nodes[t.root]; root.leaf() {
		table[root.sym] = code{n: 1}
		return table, nil
	}
	var walk func(i int32, c code) error
	walk = func(i int32, c code) error {
		n := t.nodes[i]
		if n.leaf() {
			table[n.sym] = c
			return nil
		}
		if c.n == 64 {
			return ErrCodeTooLong
		}
		if err := walk(n.left, code{bits: c.bits << 1, n: c.n + 1}); err != nil {
			return err
		}
		return walk(n.right, code{bits: c.bits<<1 | 1, n: c.n + 1})
	}
	return table, walk(t.root, code{})
}

// serializedLen is the number of whole bytes the pre-order form occupies.
func (t *tree) serializedLen() int {
	var bits int
	for _, n := range t.nodes {
		if n.leaf() {
			bits += 9
		} else {
			bits++
		}
	}
	return (bits + 7) / 8
}

// writeTo emits the tree in pre-order: 0 for an internal node followed by
// its left and right subtrees, 1 plus the 8-bit symbol for a leaf.
func (t *tree) writeTo(w *bitio.Writer) error {
	var write func(i int32) error
	write = func(i int32) error {
		n := t.nodes[i]
		if n.leaf() {
			if err := w.WriteBool(true); err != nil {
				return err
			}
			return w.WriteBits(uint64(n.sym), 8)
		}
		if err := w.WriteBool(false); err != nil {
			return err
		}
		if err := write(n.left); err != nil {
			return err
		}
		return write(n.right)
	}
	return write(t.root)
}

// readTree consumes exactly the bits of one serialized tree.
func readTree(r *bitio.Reader) (*tree, error) {
	t := &tree{}
	var read func() (int32, error)
	read = func() (int32, error) {
		if len(t.nodes) == maxNodes {
			return -1, fmt.Errorf("%w: tree has more than %d nodes", ErrCorrupt, maxNodes)
		}
		isLeaf, err := r.ReadBool()
		if err != nil {
			return -1, fmt.Errorf("%w: truncated tree: %v", ErrCorrupt, err)
		}
		idx := int32(len(t.nodes))
		if isLeaf {
			sym, err := r.ReadBits(8)
			if err != nil {
				return -1, fmt.Errorf("%w: truncated leaf: %v", ErrCorrupt, err)
			}
			t.nodes = append(t.nodes, node{left: -1, right: -1, sym: byte(sym)})
			return idx, nil
		}
		t.nodes = append(t.nodes, node{})
		left, err := read()
		if err != nil {
			return -1, err
		}
		right, err := read()
		if err != nil {
			return -1, err
		}
		t.nodes[idx].left, t.nodes[idx].right = left, right
		return idx, nil
	}
	root, err := read()
	if err != nil {
		return nil, err
	}
	t.root = root
	return t, nil
}
