package scanner

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirPerm is used when SavePages creates the output directory.
const DefaultDirPerm = 0o750

// PageFileName returns the file name for the page at zero-based index i:
// page-001.jpg, page-002.jpg and so on.
func PageFileName(i int) string {
	return fmt.Sprintf("page-%03d.jpg", i+1)
}

// SavePages writes pages to dir in order, creating dir if needed, and
// returns the written paths. Existing files with the same names are
// replaced.
func SavePages(dir string, pages []Page) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("cannot create output directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(pages))
	for i, p := range pages {
		path := filepath.Join(dir, PageFileName(i))
		if err := os.WriteFile(path, p.Data, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write page %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
