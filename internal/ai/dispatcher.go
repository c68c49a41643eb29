package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kayz/promptforge/internal/logger"
)

// Dispatcher implements Generator by resolving model names through a
// Registry. Backends are built on first use and cached per provider:code.
type Dispatcher struct {
	registry  *Registry
	maxTokens int

	mu    sync.RWMutex
	cache map[string]Backend
}

func NewDispatcher(registry *Registry, maxTokens int) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		maxTokens: maxTokens,
		cache:     make(map[string]Backend),
	}
}

// Generate sends prompt and system to the backend serving model. An empty
// model selects the registry's first model.
func (d *Dispatcher) Generate(ctx context.Context, prompt, model, system string) (string, error) {
	backend, resolved, err := d.Backend(model)
	if err != nil {
		return "", err
	}

	logger.Debug("[AI] Using model: %s (provider: %s)", resolved.Name, resolved.Provider)

	text, err := backend.Complete(ctx, prompt, system)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", resolved.Name, ErrEmptyResponse)
	}
	return text, nil
}

// Backend resolves model to its cached backend.
func (d *Dispatcher) Backend(model string) (Backend, *ModelConfig, error) {
	m, err := d.resolve(model)
	if err != nil {
		return nil, nil, err
	}

	key := m.Provider + ":" + m.Code

	d.mu.RLock()
	if b, ok := d.cache[key]; ok {
		d.mu.RUnlock()
		return b, m, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.cache[key]; ok {
		return b, m, nil
	}

	providerConfig, ok := d.registry.GetProvider(m.Provider)
	if !ok {
		return nil, nil, &UnsupportedModelError{Model: m.Name, Reason: fmt.Sprintf("provider not found: %s", m.Provider)}
	}

	b, err := NewBackend(providerConfig, m.Code, d.maxTokens)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider %s: %w", m.Provider, err)
	}

	d.cache[key] = b
	return b, m, nil
}

func (d *Dispatcher) resolve(model string) (*ModelConfig, error) {
	if d.registry == nil {
		return nil, &UnsupportedModelError{Model: model, Reason: "no model registry configured"}
	}
	if strings.TrimSpace(model) == "" {
		if m := d.registry.GetDefaultModel(); m != nil {
			return m, nil
		}
		return nil, &UnsupportedModelError{Model: model, Reason: "no models configured"}
	}
	m, ok := d.registry.GetModel(model)
	if !ok {
		return nil, &UnsupportedModelError{Model: model}
	}
	return m, nil
}
