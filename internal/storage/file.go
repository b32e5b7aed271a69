package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"chatdev/internal/fileutil"

	"gopkg.in/yaml.v3"
)

// File is a Store backed by a single YAML mapping on disk.
type File struct {
	path string

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// NewFile returns a file store at path. Nothing is read until first use.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// load reads the file once. Callers hold f.mu.
func (f *File) load() error {
	if f.loaded {
		return nil
	}

	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read %s: %w", f.path, err)
	default:
		if err := yaml.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("parse %s: %w", f.path, err)
		}
		if values == nil {
			values = make(map[string]string)
		}
	}

	f.values = values
	f.loaded = true
	return nil
}

// Get implements Store.
func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return "", false, err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

// Set implements Store. The whole mapping is rewritten on every call.
func (f *File) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		// Unreadable file: start over rather than refuse every write.
		f.values = make(map[string]string)
		f.loaded = true
	}

	prev, had := f.values[key]
	f.values[key] = value

	data, err := yaml.Marshal(f.values)
	if err == nil {
		// 0600: the file holds provider secrets.
		err = fileutil.AtomicWrite(f.path, data, 0600)
	}
	if err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}
