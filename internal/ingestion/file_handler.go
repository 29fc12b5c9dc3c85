package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

// FileHandler reads and writes résumé files in a local directory
type FileHandler struct {
	dir string
}

// NewFileHandler creates a new file handler
func NewFileHandler(dir string) *FileHandler {
	return &FileHandler{dir: dir}
}

// Dir returns the directory the handler works in
func (fh *FileHandler) Dir() string {
	return fh.dir
}

// LoadFiles reads every supported file in the directory, in name order.
// Subdirectories and hidden files are skipped.
func (fh *FileHandler) LoadFiles() ([]models.UploadedFile, error) {
	entries, err := os.ReadDir(fh.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fh.dir, err)
	}

	files := make([]models.UploadedFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !IsSupported(name) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(fh.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", name, err)
		}
		files = append(files, models.UploadedFile{Name: name, Data: data})
	}

	return files, nil
}

// SaveFiles writes files into the directory, creating it when needed, and
// returns the written paths
func (fh *FileHandler) SaveFiles(files []models.UploadedFile) ([]string, error) {
	if err := os.MkdirAll(fh.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(fh.dir, filepath.Base(f.Name))
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write file %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
