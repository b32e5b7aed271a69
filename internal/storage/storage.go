// Package storage is the small key-value port used for local persistence.
//
// Keys are namespaced ("chatdev/credentials"); values are opaque strings.
// The File backend keeps everything in one YAML document written atomically
// on every Set, and Memory is the in-process fake used by tests.
package storage

import (
	"errors"
	"strings"
)

// ErrEmptyKey is returned when Set is called with an empty key.
var ErrEmptyKey = errors.New("storage: empty key")

// Store is the persistence port.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
}

// Key joins a namespace and a name into a store key.
func Key(namespace, name string) string {
	namespace = strings.Trim(namespace, "/")
	if namespace == "" {
		return name
	}
	return namespace + "/" + name
}
