package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_jane.txt"), []byte("Jane"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_john.pdf"), []byte("%PDF-1.4"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte("png"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0755))

	files, err := NewFileHandler(dir).LoadFiles()
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "a_john.pdf", files[0].Name)
	assert.Equal(t, []byte("%PDF-1.4"), files[0].Data)
	assert.Equal(t, "b_jane.txt", files[1].Name)
	assert.Equal(t, []byte("Jane"), files[1].Data)
}

func TestLoadFilesMissingDirectory(t *testing.T) {
	_, err := NewFileHandler(filepath.Join(t.TempDir(), "missing")).LoadFiles()
	assert.Error(t, err)
}

func TestSaveFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	fh := NewFileHandler(dir)

	paths, err := fh.SaveFiles([]models.UploadedFile{
		{Name: "JaneDoe_cv.txt", Data: []byte("Jane")},
		{Name: "../escape.txt", Data: []byte("contained")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "JaneDoe_cv.txt"), filepath.Join(dir, "escape.txt")}, paths)

	loaded, err := fh.LoadFiles()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "JaneDoe_cv.txt", loaded[0].Name)
	assert.Equal(t, "escape.txt", loaded[1].Name)
}
