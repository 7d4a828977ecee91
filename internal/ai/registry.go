package ai

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kayz/promptflow/internal/config"
)

func ProvidersPath() string {
	return filepath.Join(config.ConfigDir(), "providers.yaml")
}

func ModelsPath() string {
	return filepath.Join(config.ConfigDir(), "models.yaml")
}

type ProviderConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type ModelConfig struct {
	Name     string `yaml:"name"`
	Code     string `yaml:"code"`
	Provider string `yaml:"provider"`
}

// Registry holds the configured completion providers and models, preserving
// the declaration order of models.yaml.
type Registry struct {
	providers  map[string]*ProviderConfig
	models     map[string]*ModelConfig
	modelOrder []string
}

type providersFile struct {
	Providers []*ProviderConfig `yaml:"providers"`
}

type modelsFile struct {
	Models []*ModelConfig `yaml:"models"`
}

// LoadRegistry reads providers.yaml and models.yaml from the config dir.
func LoadRegistry() (*Registry, error) {
	return LoadRegistryFrom(ProvidersPath(), ModelsPath())
}

// LoadRegistryFrom reads a registry from explicit file paths.
func LoadRegistryFrom(providersPath, modelsPath string) (*Registry, error) {
	r := &Registry{
		providers:  make(map[string]*ProviderConfig),
		models:     make(map[string]*ModelConfig),
		modelOrder: make([]string, 0),
	}

	providersData, err := os.ReadFile(providersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers.yaml: %w", err)
	}

	var pf providersFile
	if err := yaml.Unmarshal(providersData, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse providers.yaml: %w", err)
	}
	for _, p := range pf.Providers {
		r.providers[p.Name] = p
	}

	modelsData, err := os.ReadFile(modelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read models.yaml: %w", err)
	}

	var mf modelsFile
	if err := yaml.Unmarshal(modelsData, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse models.yaml: %w", err)
	}
	for _, m := range mf.Models {
		if _, exists := r.models[m.Name]; !exists {
			r.modelOrder = append(r.modelOrder, m.Name)
		}
		r.models[m.Name] = m
	}

	if len(r.models) == 0 {
		return nil, fmt.Errorf("no models found in models.yaml")
	}
	return r, nil
}

func (r *Registry) GetProvider(name string) (*ProviderConfig, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *Registry) GetModel(name string) (*ModelConfig, bool) {
	m, ok := r.models[name]
	return m, ok
}

func (r *Registry) ListModels() []*ModelConfig {
	models := make([]*ModelConfig, 0, len(r.modelOrder))
	for _, name := range r.modelOrder {
		if m, ok := r.models[name]; ok {
			models = append(models, m)
		}
	}
	return models
}

func (r *Registry) GetDefaultModel() *ModelConfig {
	for _, name := range r.modelOrder {
		if m, ok := r.models[name]; ok {
			return m
		}
	}
	return nil
}
