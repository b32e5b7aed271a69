// Package credentials keeps provider API keys and the active model selection,
// writing every change through to a storage.Store.
//
// Both values live in versioned JSON blobs under the configured namespace:
//
//	<ns>/credentials  {"version":1,"keys":{"openai":"sk-..."}}
//	<ns>/model        {"version":1,"provider":"openai","model":"GPT_4O_MINI"}
//
// A blob with another version is ignored (and logged) instead of being
// half-decoded.
package credentials

import (
	"encoding/json"
	"sort"
	"sync"

	"chatdev/internal/config"
	"chatdev/internal/logging"
	"chatdev/internal/security"
	"chatdev/internal/storage"
)

// BlobVersion is the persisted format version.
const BlobVersion = 1

const (
	credentialsName = "credentials"
	modelName       = "model"
)

type credentialsBlob struct {
	Version int               `json:"version"`
	Keys    map[string]string `json:"keys"`
}

type modelBlob struct {
	Version  int    `json:"version"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type versioned interface {
	blobVersion() int
}

func (b credentialsBlob) blobVersion() int { return b.Version }
func (b modelBlob) blobVersion() int       { return b.Version }

// Store holds the credential set and model selection.
type Store struct {
	backend   storage.Store
	namespace string

	mu        sync.RWMutex
	keys      map[string]string
	sources   map[string]security.KeySource
	selection config.ModelSelection
}

// New creates a store over backend. Call Restore to load persisted values.
func New(backend storage.Store, namespace string) *Store {
	if namespace == "" {
		namespace = config.DefaultNamespace
	}
	return &Store{
		backend:   backend,
		namespace: namespace,
		keys:      make(map[string]string),
		sources:   make(map[string]security.KeySource),
		selection: config.DefaultSelection(),
	}
}

func (s *Store) key(name string) string {
	return storage.Key(s.namespace, name)
}

// Restore loads the persisted blobs. Catalog providers that still have no
// key pick one up from the environment; those are never written back.
func (s *Store) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = make(map[string]string)
	s.sources = make(map[string]security.KeySource)
	s.selection = config.DefaultSelection()

	var creds credentialsBlob
	if s.readBlob(credentialsName, &creds) {
		for provider, secret := range creds.Keys {
			if secret == "" {
				continue
			}
			s.keys[provider] = secret
			s.sources[provider] = security.KeySourceStore
		}
	}

	var model modelBlob
	if s.readBlob(modelName, &model) {
		sel := config.ModelSelection{Provider: model.Provider, Model: model.Model}
		if err := sel.Validate(); err != nil {
			logging.Warn("ignoring persisted model selection", "selection", sel.String(), "error", err)
		} else {
			s.selection = sel
		}
	}

	for _, provider := range config.Providers() {
		if _, ok := s.keys[provider]; ok {
			continue
		}
		if k := security.LookupEnvKey(provider); k.IsSet() {
			s.keys[provider] = k.Value
			s.sources[provider] = k.Source
			logging.Debug("using environment key", "provider", provider)
		}
	}
}

// readBlob decodes name into v and reports whether it is usable.
func (s *Store) readBlob(name string, v versioned) bool {
	raw, ok, err := s.backend.Get(s.key(name))
	if err != nil {
		logging.Warn("failed to read persisted state", "key", s.key(name), "error", err)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logging.Warn("discarding unreadable persisted state", "key", s.key(name), "error", err)
		return false
	}
	if got := v.blobVersion(); got != BlobVersion {
		logging.Warn("discarding persisted state with unsupported version",
			"key", s.key(name), "version", got, "supported", BlobVersion)
		return false
	}
	return true
}

// Get returns the secret for provider, or "".
func (s *Store) Get(provider string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[provider]
}

// Lookup returns the secret for provider together with its source.
func (s *Store) Lookup(provider string) *security.LoadedKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.keys[provider]
	if !ok {
		return &security.LoadedKey{Provider: provider, Source: security.KeySourceNotSet}
	}
	return &security.LoadedKey{Provider: provider, Value: v, Source: s.sources[provider]}
}

// Set stores secret for provider and persists immediately. An empty secret
// removes the provider's key. Persistence errors are logged only.
func (s *Store) Set(provider, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if secret == "" {
		delete(s.keys, provider)
		delete(s.sources, provider)
	} else {
		s.keys[provider] = secret
		s.sources[provider] = security.KeySourceStore
	}
	s.persistKeys()
}

// Keys returns a copy of the credential set.
func (s *Store) Keys() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.keys))
	for k, v := range s.keys {
		out[k] = v
	}
	return out
}

// Providers returns the providers that have a key, sorted.
func (s *Store) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Selection returns the active model selection.
func (s *Store) Selection() config.ModelSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// SetSelection validates sel against the catalog, stores it and persists it.
func (s *Store) SetSelection(sel config.ModelSelection) error {
	if err := sel.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection = sel
	s.persistSelection()
	return nil
}

// persistKeys writes store-sourced keys. Callers hold s.mu.
func (s *Store) persistKeys() {
	blob := credentialsBlob{Version: BlobVersion, Keys: make(map[string]string)}
	for provider, secret := range s.keys {
		if s.sources[provider] == security.KeySourceStore {
			blob.Keys[provider] = secret
		}
	}
	s.write(credentialsName, blob)
}

// persistSelection writes the model blob. Callers hold s.mu.
func (s *Store) persistSelection() {
	s.write(modelName, modelBlob{
		Version:  BlobVersion,
		Provider: s.selection.Provider,
		Model:    s.selection.Model,
	})
}

func (s *Store) write(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Warn("failed to encode persisted state", "key", s.key(name), "error", err)
		return
	}
	if err := s.backend.Set(s.key(name), string(data)); err != nil {
		logging.Warn("failed to persist state", "key", s.key(name), "error", err)
	}
}
