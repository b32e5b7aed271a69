package config

import "fmt"

// ModelSelection is the active provider/model pair.
type ModelSelection struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

// String formats the selection as provider/model.
func (s ModelSelection) String() string {
	return s.Provider + "/" + s.Model
}

// Validate reports ErrUnknownModel when the pair is not in the catalog.
func (s ModelSelection) Validate() error {
	if _, ok := LookupModel(s.Provider, s.Model); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, s)
	}
	return nil
}

// ModelInfo describes one model offered by the generation service.
type ModelInfo struct {
	ID          string
	Name        string
	Description string
}

// ProviderInfo groups the models available for a provider.
type ProviderInfo struct {
	ID     string
	Name   string
	Models []ModelInfo
}

// Catalog is the static provider → model list accepted by the service.
var Catalog = []ProviderInfo{
	{
		ID:   "openai",
		Name: "OpenAI",
		Models: []ModelInfo{
			{ID: "GPT_4O", Name: "GPT-4o", Description: "Most capable"},
			{ID: "GPT_4O_MINI", Name: "GPT-4o Mini", Description: "Fast and economical"},
			{ID: "GPT_4_TURBO", Name: "GPT-4 Turbo", Description: "Faster GPT-4"},
			{ID: "GPT_4", Name: "GPT-4", Description: "Standard GPT-4"},
			{ID: "GPT_3_5_TURBO", Name: "GPT-3.5 Turbo", Description: "Fast and affordable"},
		},
	},
	{
		ID:   "gemini",
		Name: "Google Gemini",
		Models: []ModelInfo{
			{ID: "GEMINI_PRO", Name: "Gemini Pro", Description: "Lightweight option for testing"},
		},
	},
}

// DefaultSelection returns the selection used before the user picks one.
func DefaultSelection() ModelSelection {
	return ModelSelection{Provider: "openai", Model: "GPT_4O_MINI"}
}

// LookupProvider returns the catalog entry for a provider id.
func LookupProvider(provider string) (ProviderInfo, bool) {
	for _, p := range Catalog {
		if p.ID == provider {
			return p, true
		}
	}
	return ProviderInfo{}, false
}

// LookupModel returns the catalog entry for a provider/model pair.
func LookupModel(provider, model string) (ModelInfo, bool) {
	p, ok := LookupProvider(provider)
	if !ok {
		return ModelInfo{}, false
	}
	for _, m := range p.Models {
		if m.ID == model {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// Providers returns the provider ids in catalog order.
func Providers() []string {
	ids := make([]string, 0, len(Catalog))
	for _, p := range Catalog {
		ids = append(ids, p.ID)
	}
	return ids
}
