package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string) string {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		return p
	}
	b := write("b.hcl")
	a := write("nested/a.hcl")
	y := write("scan.yaml")
	write("notes.txt")

	t.Run("walks directories by extension", func(t *testing.T) {
		files, err := Collect([]string{dir}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{b, a}, files)
	})

	t.Run("explicit files and duplicates", func(t *testing.T) {
		files, err := Collect([]string{y, dir, y}, ".yaml", ".yml")
		require.NoError(t, err)
		assert.Equal(t, []string{y}, files)
	})

	t.Run("missing paths are skipped", func(t *testing.T) {
		files, err := Collect([]string{filepath.Join(dir, "missing")}, ".hcl")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}
