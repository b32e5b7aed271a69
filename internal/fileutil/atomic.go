package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWrite replaces path with data via a temp file in the same directory
// followed by a rename, so readers never observe a half-written file.
// Missing parent directories are created with 0700.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".chatdev-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}

	// Rename is atomic when source and target share a filesystem.
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	success = true
	return nil
}
