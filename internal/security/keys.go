package security

import (
	"fmt"
	"os"
	"strings"
)

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnvironment KeySource = "environment"
	KeySourceStore       KeySource = "store"
	KeySourceNotSet      KeySource = "not_set"
)

// LoadedKey is a provider key together with its origin.
type LoadedKey struct {
	Provider string
	Value    string
	Source   KeySource
}

// String never prints the raw key.
func (k *LoadedKey) String() string {
	if !k.IsSet() {
		return "LoadedKey{Source: not_set}"
	}
	return fmt.Sprintf("LoadedKey{Provider: %s, Source: %s, Value: %s}", k.Provider, k.Source, MaskKey(k.Value))
}

// IsSet returns true if the key has a value.
func (k *LoadedKey) IsSet() bool {
	return k != nil && k.Value != ""
}

// EnvVarNames lists the variables checked for a provider, in priority order:
// CHATDEV_<PROVIDER>_KEY, then <PROVIDER>_API_KEY.
func EnvVarNames(provider string) []string {
	p := strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
	return []string{"CHATDEV_" + p + "_KEY", p + "_API_KEY"}
}

// LookupEnvKey returns the first non-empty environment key for provider.
func LookupEnvKey(provider string) *LoadedKey {
	for _, name := range EnvVarNames(provider) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return &LoadedKey{Provider: provider, Value: v, Source: KeySourceEnvironment}
		}
	}
	return &LoadedKey{Provider: provider, Source: KeySourceNotSet}
}

// MaskKey masks an API key for display, keeping the first and last four
// characters: "sk-1234567890abcdef" -> "sk-1***********cdef".
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
