package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindKnownModels(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		modelID  string
		provider string
	}{
		{"gpt-4o", "openai"},
		{"o3-mini", "openai"},
		{"claude-3-5-haiku-latest", "anthropic"},
		{"gemini-2.0-flash", "gemini"},
		{"deepseek-reasoner", "deepseek"},
	}
	for _, tt := range tests {
		binding := registry.Bind(tt.modelID)
		require.Equal(t, tt.provider, binding.Provider, "model %s", tt.modelID)
		require.Equal(t, tt.modelID, binding.Model)
		require.NotEmpty(t, binding.BaseURL)
	}
}

func TestBindUnknownModelFallsBack(t *testing.T) {
	registry := NewRegistry()

	binding := registry.Bind("some-future-model")
	require.Equal(t, registry.Default(), binding)

	binding = registry.Bind("")
	require.Equal(t, registry.Default(), binding)
}

func TestDefaultBinding(t *testing.T) {
	registry := NewRegistry()

	def := registry.Default()
	require.Equal(t, "openai", def.Provider)
	require.Equal(t, "gpt-4o-mini", def.Model)
}

func TestCatalogCoversAllProviders(t *testing.T) {
	registry := NewRegistry()

	catalog := registry.Catalog()
	require.Len(t, catalog, 4)
	for _, key := range []string{"openai", "anthropic", "gemini", "deepseek"} {
		require.NotEmpty(t, catalog[key], "provider %s", key)
		for _, model := range catalog[key] {
			require.NotEmpty(t, model.Value)
			require.NotEmpty(t, model.Label)
		}
	}
}

func TestCatalogIsACopy(t *testing.T) {
	registry := NewRegistry()

	catalog := registry.Catalog()
	catalog["openai"][0].Label = "mutated"

	fresh := registry.Catalog()
	require.NotEqual(t, "mutated", fresh["openai"][0].Label)
}
