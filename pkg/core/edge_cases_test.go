package core

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManyNestedFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
	files := map[string]string{}
	for i := 0; i < 100; i++ {
		files[fmt.Sprintf("files/subfolder/depth3/depth4/file%03d.txt", i)] = fmt.Sprintf("This is file %d with some content.", i)
	}
	root := makeTree(t, files)

	res, a := buildTree(t, Options{Root: root, Name: filepath.Join(t.TempDir(), "many"), Compress: true})
	// four directories plus the files
	assert.Equal(t, 104, res.Entries)
	assert.Equal(t, "/files/subfolder/depth3/depth4/file000.txt", a.Dictionary[4].Path)

	for i, e := range a.Dictionary[4:] {
		got, err := a.Content(i + 4)
		require.NoError(t, err)
		assert.Equal(t, files[e.Path[1:]], string(got))
	}
}

func TestUnicodePaths(t *testing.T) {
	root := makeTree(t, map[string]string{
		"😀-emoji-dir/emoji-file-😎.txt": "This is an emoji file.",
		"中文目录/文件.txt":                  "This is a Chinese filename.",
		"Русская-папка/файл.txt":       "This is a Russian filename.",
	})
	res, a := buildTree(t, Options{Root: root, Name: filepath.Join(t.TempDir(), "unicode")})
	assert.Equal(t, 6, res.Entries)

	for _, e := range a.Dictionary {
		assert.Equal(t, uint32(len(e.Path)), e.PathSize, "path size counts bytes, not runes")
	}
	report, err := Verify(res.Path, root)
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestRandomContent(t *testing.T) {
	content := make([]byte, 1<<20)
	_, err := rand.Read(content)
	require.NoError(t, err)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "testfile.dat"), content, 0644))

	_, a := buildTree(t, Options{Root: root, Name: filepath.Join(t.TempDir(), "random"), Compress: true})
	got, err := a.Content(0)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func BenchmarkBuild(b *testing.B) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	for _, size := range []int{1 << 20, 10 << 20} {
		for _, compress := range []bool{false, true} {
			b.Run(fmt.Sprintf("Size-%dMB/compress=%v", size>>20, compress), func(b *testing.B) {
				root := b.TempDir()
				content := make([]byte, size)
				for i := range content {
					content[i] = byte(i % 256)
				}
				require.NoError(b, os.WriteFile(filepath.Join(root, "testfile.dat"), content, 0644))
				name := filepath.Join(b.TempDir(), "bench")

				b.SetBytes(int64(size))
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := Build(Options{Root: root, Name: name, Compress: compress}); err != nil {
						b.Fatalf("Build failed: %v", err)
					}
				}
			})
		}
	}
}
