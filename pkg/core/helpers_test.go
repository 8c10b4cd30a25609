package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeTree creates files under a fresh directory. Names ending in "/" are
// created as directories.
func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func rels(found []Found) []string {
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.Rel
	}
	return out
}

func sumDictionary(a *Archive) (size, data uint64) {
	for _, e := range a.Dictionary {
		size += uint64(e.Size)
		data += e.DataSize
	}
	return size, data
}
