// Package agent composes providers, an optional output shape and a set of
// actions around a text generator.
package agent

import (
	"context"
	"sync"

	"github.com/kayz/promptforge/internal/ai"
	"github.com/kayz/promptforge/internal/config"
	"github.com/kayz/promptforge/internal/keyed"
	"github.com/kayz/promptforge/internal/logger"
	"github.com/kayz/promptforge/internal/persist"
	"github.com/kayz/promptforge/internal/promptbuild"
	"github.com/kayz/promptforge/internal/shape"
)

// Settings are the per-agent generation settings.
type Settings struct {
	EndPromptString string
	Model           string
	Debug           bool
}

// Agent holds the live provider collection, the output shape and the
// registered actions. Providers, shape and actions may change between calls;
// every render reads the current state.
type Agent struct {
	name      string
	builder   *promptbuild.Builder
	actions   *keyed.Map[Action]
	generator ai.Generator
	store     *persist.Store

	mu       sync.RWMutex
	settings Settings
	shape    shape.Shape
}

// Option configures an Agent at construction.
type Option func(*Agent)

// WithName sets the name used for stored conversations and runs.
func WithName(name string) Option {
	return func(a *Agent) {
		if name != "" {
			a.name = name
		}
	}
}

// WithBuilder replaces the default prompt builder, typically one configured
// with template and history locations.
func WithBuilder(b *promptbuild.Builder) Option {
	return func(a *Agent) {
		if b != nil {
			a.builder = b
		}
	}
}

// WithStore records runs and replies in store.
func WithStore(store *persist.Store) Option {
	return func(a *Agent) {
		a.store = store
	}
}

// New creates an agent with the default reply action registered.
func New(settings Settings, generator ai.Generator, opts ...Option) *Agent {
	if settings.EndPromptString == "" {
		settings.EndPromptString = config.DefaultEndPromptString
	}
	a := &Agent{
		name:      "promptforge",
		builder:   promptbuild.NewBuilder(config.PromptBuildConfig{}),
		actions:   keyed.New[Action]("action"),
		generator: generator,
		settings:  settings,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.actions.Set(ReplyKey, replyAction())
	return a
}

func (a *Agent) Name() string {
	return a.name
}

func (a *Agent) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

func (a *Agent) SetSettings(s Settings) {
	if s.EndPromptString == "" {
		s.EndPromptString = config.DefaultEndPromptString
	}
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
}

// Builder exposes the prompt builder, e.g. to construct file-backed sources.
func (a *Agent) Builder() *promptbuild.Builder {
	return a.builder
}

// Providers returns the live provider collection.
func (a *Agent) Providers() *promptbuild.Collection {
	return a.builder.Providers()
}

// RegisterProvider adds p, failing if its key is taken.
func (a *Agent) RegisterProvider(p promptbuild.Provider) error {
	return a.builder.Providers().Register(p)
}

// RegisterProviderAs adds p under key, failing if key is taken.
func (a *Agent) RegisterProviderAs(key string, p promptbuild.Provider) error {
	return a.builder.Providers().RegisterAs(key, p)
}

// UpsertProvider adds or replaces p.
func (a *Agent) UpsertProvider(p promptbuild.Provider) *Agent {
	a.builder.Providers().Upsert(p)
	return a
}

// RemoveProvider deletes the provider under key, if any.
func (a *Agent) RemoveProvider(key string) *Agent {
	a.builder.Providers().Remove(key)
	return a
}

// SetOutputShape replaces the shape providers and the stored shape. An empty
// shape is rejected with shape.ErrEmptyShape and leaves the agent unchanged.
func (a *Agent) SetOutputShape(s shape.Shape) error {
	desc, err := shape.DescriptionProvider(s)
	if err != nil {
		return err
	}
	reminder, err := shape.ReminderProvider(s)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.builder.Providers().Upsert(desc).Upsert(reminder)
	a.shape = s
	return nil
}

// ClearOutputShape removes both shape providers and resets the shape.
func (a *Agent) ClearOutputShape() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.builder.Providers().Remove(shape.KeyDescription).Remove(shape.KeyReminder)
	a.shape = shape.Shape{}
}

// OutputShape returns the current shape; it is empty when none is set.
func (a *Agent) OutputShape() shape.Shape {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.shape
}

// RenderPrompt renders the prompt stream for scope followed by the end marker.
func (a *Agent) RenderPrompt(ctx context.Context, scope string) string {
	prompt := a.builder.RenderPrompt(ctx, scope, a.Settings().EndPromptString)
	if a.Settings().Debug {
		logger.Debug("[AGENT] Prompt (%s):\n%s", scopeLabel(scope), prompt)
	}
	return prompt
}

// RenderSystem renders the system stream for scope; "" when nothing matched.
func (a *Agent) RenderSystem(ctx context.Context, scope string) string {
	system := a.builder.RenderSystem(ctx, scope)
	if a.Settings().Debug {
		logger.Debug("[AGENT] System (%s):\n%s", scopeLabel(scope), system)
	}
	return system
}

// Generate renders both streams for scope and sends them to the generator
// with the configured model.
func (a *Agent) Generate(ctx context.Context, scope string) (string, error) {
	if a.generator == nil {
		return "", errNoGenerator
	}
	system := a.RenderSystem(ctx, scope)
	prompt := a.RenderPrompt(ctx, scope)
	return a.generator.Generate(ctx, prompt, a.Settings().Model, system)
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "global"
	}
	return scope
}
