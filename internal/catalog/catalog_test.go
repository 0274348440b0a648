package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Providers)

	p, err := cat.Lookup("openai")
	require.NoError(t, err)
	assert.Equal(t, "OpenAI", p.DisplayName)
}

func TestSupportsModelKnownCombination(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	assert.True(t, cat.SupportsModel("openai", "gpt-4o-mini"))
	assert.False(t, cat.SupportsModel("openai", "nonexistent-model"))
}

func TestSupportsModelLocalProviderAcceptsAnyModel(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	assert.True(t, cat.SupportsModel("ollama", "whatever-custom-model"))
}

func TestLookupUnknownProviderFails(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	_, err = cat.Lookup("does-not-exist")
	assert.Error(t, err)
}
