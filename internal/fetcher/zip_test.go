package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"a.csv": "1,2\n", "b.csv": "3,4\n"})
	destDir := t.TempDir()

	paths, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(destDir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1,2\n", string(data))
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"../evil.txt": "x"})
	_, err := ExtractZIP(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestExtractZIPSingle(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"only.csv": "data\n"})

	path, err := ExtractZIPSingle(zipPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "only.csv", filepath.Base(path))
}

func TestExtractZIPSingle_MultipleFiles(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"a.csv": "1", "b.csv": "2"})
	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestFindByExt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tl_08_tabblock20.shp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tl_08_tabblock20.dbf"), []byte("x"), 0o644))

	path, err := FindByExt(dir, ".shp")
	require.NoError(t, err)
	assert.Equal(t, "tl_08_tabblock20.shp", filepath.Base(path))

	_, err = FindByExt(dir, ".gpkg")
	assert.Error(t, err)
}
