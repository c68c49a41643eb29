package ai

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kayz/promptforge/internal/keyed"
)

// ProviderConfig describes one backend account. APIKey may reference an
// environment variable as ${NAME}.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ModelConfig maps a model name used in settings to a provider and the
// provider's model code.
type ModelConfig struct {
	Name      string   `yaml:"name"`
	Code      string   `yaml:"code"`
	Provider  string   `yaml:"provider"`
	Intellect string   `yaml:"intellect,omitempty"`
	Speed     string   `yaml:"speed,omitempty"`
	Cost      string   `yaml:"cost,omitempty"`
	Skills    []string `yaml:"skills,omitempty"`
}

func (m *ModelConfig) SkillsText() string {
	if len(m.Skills) == 0 {
		return "-"
	}
	return strings.Join(m.Skills, ", ")
}

// Registry resolves model names to their provider accounts. Models keep
// declaration order; the first one is the default.
type Registry struct {
	providers *keyed.Map[*ProviderConfig]
	models    *keyed.Map[*ModelConfig]
}

// NewRegistry builds a registry from in-memory declarations. A later entry
// with the same name replaces the earlier one in place.
func NewRegistry(providers []*ProviderConfig, models []*ModelConfig) *Registry {
	r := &Registry{
		providers: keyed.New[*ProviderConfig]("provider"),
		models:    keyed.New[*ModelConfig]("model"),
	}
	for _, p := range providers {
		cp := *p
		cp.APIKey = os.ExpandEnv(strings.TrimSpace(cp.APIKey))
		r.providers.Set(cp.Name, &cp)
	}
	for _, m := range models {
		r.models.Set(m.Name, m)
	}
	return r
}

// LoadRegistry reads the providers and models YAML files.
func LoadRegistry(providersPath, modelsPath string) (*Registry, error) {
	var pf struct {
		Providers []*ProviderConfig `yaml:"providers"`
	}
	if err := readYAML(providersPath, &pf); err != nil {
		return nil, err
	}
	var mf struct {
		Models []*ModelConfig `yaml:"models"`
	}
	if err := readYAML(modelsPath, &mf); err != nil {
		return nil, err
	}
	if len(mf.Models) == 0 {
		return nil, fmt.Errorf("no models found in %s", modelsPath)
	}
	return NewRegistry(pf.Providers, mf.Models), nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (r *Registry) GetProvider(name string) (*ProviderConfig, bool) {
	return r.providers.Get(name)
}

func (r *Registry) GetModel(name string) (*ModelConfig, bool) {
	return r.models.Get(name)
}

func (r *Registry) ListModels() []*ModelConfig {
	entries := r.models.Entries()
	models := make([]*ModelConfig, len(entries))
	for i, e := range entries {
		models[i] = e.Value
	}
	return models
}

// GetDefaultModel returns the first declared model, or nil.
func (r *Registry) GetDefaultModel() *ModelConfig {
	if keys := r.models.Keys(); len(keys) > 0 {
		m, _ := r.models.Get(keys[0])
		return m
	}
	return nil
}
