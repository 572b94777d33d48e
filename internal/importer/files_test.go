package importer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/sheet"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "import", "b.csv"), "x\n1\n")
	writeFile(t, filepath.Join(root, "import", "a.xlsx"), "")
	writeFile(t, filepath.Join(root, "import", "notes.md"), "")
	writeFile(t, filepath.Join(root, "import", "processed", "old.csv"), "")

	files, err := Scan(root, sheet.DefaultRegistry())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.xlsx", files[0].Name)
	assert.Equal(t, "b.csv", files[1].Name)
	assert.Equal(t, int64(4), files[1].Size)
}

func TestScan_NoImportDir(t *testing.T) {
	files, err := Scan(t.TempDir(), sheet.DefaultRegistry())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestOpenFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jan.csv")
	writeFile(t, path, "Date\n2025-01-01\n")

	inputs, err := OpenFiles([]string{path})
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "jan.csv", inputs[0].Name)
	data, err := io.ReadAll(inputs[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, "Date\n2025-01-01\n", string(data))

	_, err = OpenFiles([]string{filepath.Join(dir, "missing.csv")})
	assert.Error(t, err)
}

func TestMarkProcessed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "import", "jan.csv"), "x")

	require.NoError(t, MarkProcessed(root, "jan.csv"))
	assert.NoFileExists(t, filepath.Join(root, "import", "jan.csv"))
	assert.FileExists(t, filepath.Join(root, "import", "processed", "jan.csv"))

	assert.Error(t, MarkProcessed(root, "jan.csv"))
}
