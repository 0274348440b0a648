// Package catalog is the Config Catalog: a declarative list of known
// providers and models, loaded with koanf from an embedded default
// document, overridable by file and environment, and validated.
package catalog

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/neo/debateengine/internal/enginerr"
)

// Model describes one model offered by a provider.
type Model struct {
	ModelID           string `koanf:"model_id" validate:"required"`
	DisplayName       string `koanf:"display_name" validate:"required"`
	ContextWindow     int    `koanf:"context_window" validate:"gte=0"`
	MaxOutputTokens   int    `koanf:"max_output_tokens" validate:"gte=0"`
	Recommended       bool   `koanf:"recommended"`
	PricingTier       string `koanf:"pricing_tier"`
}

// Provider describes one model provider and the models it exposes.
type Provider struct {
	ProviderID      string  `koanf:"provider_id" validate:"required"`
	DisplayName     string  `koanf:"display_name" validate:"required"`
	APIKeyEnvVar    string  `koanf:"api_key_env_var"`
	DocumentationURL string `koanf:"documentation_url"`
	Local           bool    `koanf:"local"`
	Models          []Model `koanf:"models" validate:"required,min=1,dive"`
}

// Catalog is the full set of providers, as exposed by the List
// providers operation.
type Catalog struct {
	Providers []Provider `koanf:"providers" validate:"required,min=1,dive"`
}

var structValidator = validator.New()

// Load builds a Catalog from the embedded default document, overridden
// first by configPath (if non-empty) and then by DEBATE_ prefixed
// environment variables — matching the corpus's file-then-env-then-
// validate pipeline.
func Load(configPath string) (*Catalog, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultCatalogYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("catalog: failed to load embedded default: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("catalog: failed to load %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("DEBATE_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("catalog: failed to load environment overrides: %w", err)
	}

	var cat Catalog
	if err := k.UnmarshalWithConf("", &cat, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("catalog: failed to unmarshal: %w", err)
	}

	if err := structValidator.Struct(&cat); err != nil {
		return nil, fmt.Errorf("catalog: invalid configuration: %w", err)
	}

	return &cat, nil
}

func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "DEBATE_"))
}

// Lookup returns the provider by id, or InvalidConfig for an unknown id.
func (c *Catalog) Lookup(providerID string) (*Provider, error) {
	for i := range c.Providers {
		if c.Providers[i].ProviderID == providerID {
			return &c.Providers[i], nil
		}
	}
	return nil, enginerr.New(enginerr.InvalidConfig, providerID, "unknown provider")
}

// SupportsModel reports whether providerID/modelID is a known
// combination, or the provider is a local pass-through that accepts
// arbitrary model names.
func (c *Catalog) SupportsModel(providerID, modelID string) bool {
	p, err := c.Lookup(providerID)
	if err != nil {
		return false
	}
	if p.Local {
		return true
	}
	for _, m := range p.Models {
		if m.ModelID == modelID {
			return true
		}
	}
	return false
}
