package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"code-review-orchestrator/internal/domain"
)

// ReadLocalFile reads a single file from local storage. Used for requests
// with no repository reference; no credential is required.
func ReadLocalFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("local file %s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("reading local file %s: %w", path, err)
	}
	return string(data), nil
}

// ListLocalFiles recursively enumerates source files under a local
// directory in lexicographic path order.
func ListLocalFiles(root string, extensions []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local path %s: %w", root, ErrNotFound)
		}
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && domain.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if domain.IsSourceFile(path, extensions) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}
