package huffman

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/icza/bitio"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 64*1024)
	rng.Read(random)

	alphabet := make([]byte, 256)
	for i := range alphabet {
		alphabet[i] = byte(i)
	}

	skewed := make([]byte, 10000)
	for i := range skewed {
		skewed[i] = byte(rng.ExpFloat64() * 4)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"single byte", []byte{0x42}},
		{"two symbols", []byte("aab")},
		{"text", []byte("the quick brown fox jumps over the lazy dog")},
		{"all byte values", alphabet},
		{"random", random},
		{"skewed", skewed},
		{"zeros", make([]byte, 4096)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(tt.data)
			require.NoError(t, err)
			require.NotEmpty(t, enc)

			dec, err := Decode(enc)
			require.NoError(t, err)
			assert.Equal(t, tt.data, dec)
		})
	}
}

func TestEmpty(t *testing.T) {
	enc, err := Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, enc)

	dec, err := Decode(enc)
	require.NoError(t, err)
	assert.Empty(t, dec)
}

func TestKnownStream(t *testing.T) {
	// b (freq 1) pops first and becomes the left child: b=0, a=1.
	// tree 0 1 01100010 1 01100001, payload 1 1 0.
	enc, err := Encode([]byte("aab"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x58, 0xAC, 0x20, 0x05, 0xC0}, enc)
}

func TestSingleSymbol(t *testing.T) {
	enc, err := Encode([]byte("zzz"))
	require.NoError(t, err)
	// leaf 1 01111010, then three one-bit codes of 0.
	assert.Equal(t, []byte{0xBD, 0x00, 0x05, 0x00}, enc)

	dec, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, []byte("zzz"), dec)

	long := bytes.Repeat([]byte{0xFF}, 1001)
	enc, err = Encode(long)
	require.NoError(t, err)
	dec, err = Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, long, dec)
}

func TestDeterministic(t *testing.T) {
	data := []byte("mississippi river banks")
	a, err := Encode(data)
	require.NoError(t, err)
	b, err := Encode(data)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeCorrupt(t *testing.T) {
	abcd, err := Encode([]byte("abcd"))
	require.NoError(t, err)
	// four leaves and three internal nodes: 39 bits of tree, padding at 5.
	require.Len(t, abcd, 7)
	midCode := append([]byte(nil), abcd...)
	midCode[5] = 1

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated tree", []byte{0x00}},
		{"truncated leaf", []byte{0x80}},
		{"missing padding", []byte{0x58, 0xAC, 0x20}},
		{"padding too large", []byte{0x58, 0xAC, 0x20, 0x09, 0xC0}},
		{"padding without payload", []byte{0x58, 0xAC, 0x20, 0x05}},
		{"ends inside a code", midCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestDecodeOversizedTree(t *testing.T) {
	// 600 internal-node bits never close a tree within the node limit.
	_, err := Decode(make([]byte, 75))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTreeTieBreak(t *testing.T) {
	var freq [256]uint64
	for _, b := range []byte("abcd") {
		freq[b] = 1
	}
	tr := buildTree(&freq)
	table, err := tr.codes()
	require.NoError(t, err)

	// (a,b) and (c,d) pair up in insertion order, then the two pairs join.
	assert.Equal(t, code{bits: 0b00, n: 2}, table['a'])
	assert.Equal(t, code{bits: 0b01, n: 2}, table['b'])
	assert.Equal(t, code{bits: 0b10, n: 2}, table['c'])
	assert.Equal(t, code{bits: 0b11, n: 2}, table['d'])
}

func TestTreeSerialization(t *testing.T) {
	var freq [256]uint64
	for _, b := range []byte("hello, world") {
		freq[b]++
	}
	tr := buildTree(&freq)

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	require.NoError(t, tr.writeTo(w))
	require.NoError(t, w.Close())
	assert.Equal(t, tr.serializedLen(), buf.Len())

	got, err := readTree(bitio.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)

	want, err := tr.codes()
	require.NoError(t, err)
	have, err := got.codes()
	require.NoError(t, err)
	assert.Equal(t, want, have)
}

func benchData(size int) []byte {
	rng := rand.New(rand.NewSource(7))
	words := [][]byte{[]byte("install "), []byte("update "), []byte("archive "), []byte("delete "), []byte("\n")}
	var buf bytes.Buffer
	for buf.Len() < size {
		buf.Write(words[rng.Intn(len(words))])
	}
	return buf.Bytes()[:size]
}

func BenchmarkEncode(b *testing.B) {
	data := benchData(1 << 20)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	var out []byte
	for i := 0; i < b.N; i++ {
		var err error
		if out, err = Encode(data); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(len(out))/float64(len(data)), "ratio")
}

func BenchmarkDecode(b *testing.B) {
	data := benchData(1 << 20)
	enc, err := Encode(data)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(enc); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLZ4Baseline compresses the same input with LZ4 blocks for
// comparing throughput and ratio.
func BenchmarkLZ4Baseline(b *testing.B) {
	data := benchData(1 << 20)
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	var n int
	for i := 0; i < b.N; i++ {
		var err error
		if n, err = lz4.CompressBlock(data, dst, nil); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(n)/float64(len(data)), "ratio")
}
