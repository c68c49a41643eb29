package agent

import (
	"fmt"

	"github.com/kayz/promptforge/internal/ai"
	"github.com/kayz/promptforge/internal/config"
	"github.com/kayz/promptforge/internal/logger"
	"github.com/kayz/promptforge/internal/persist"
	"github.com/kayz/promptforge/internal/promptbuild"
	"github.com/kayz/promptforge/internal/shape"
)

// FromConfig builds an agent from the agent and promptbuild sections of cfg:
// seed prompts, the provider assembly spec and the output shape file. store
// may be nil.
func FromConfig(cfg *config.Config, generator ai.Generator, store *persist.Store) (*Agent, error) {
	builder := promptbuild.NewBuilder(cfg.PromptBuild)

	a := New(Settings{
		EndPromptString: cfg.Agent.EndPromptString,
		Model:           cfg.Agent.Model,
		Debug:           cfg.Agent.Debug,
	}, generator,
		WithName(cfg.Agent.Name),
		WithBuilder(builder),
		WithStore(store),
	)

	if cfg.Agent.SystemPrompt != "" {
		a.UpsertProvider(promptbuild.BaseSystem(cfg.Agent.SystemPrompt))
	}
	if cfg.Agent.BasePrompt != "" {
		a.UpsertProvider(promptbuild.BasePrompt(cfg.Agent.BasePrompt))
	}

	if cfg.Agent.SpecPath != "" {
		spec, err := promptbuild.LoadAssemblySpec(cfg.Agent.SpecPath)
		if err != nil {
			return nil, err
		}
		if err := builder.Apply(spec); err != nil {
			return nil, fmt.Errorf("apply assembly spec %s: %w", cfg.Agent.SpecPath, err)
		}
		logger.Debug("[AGENT] Loaded %d providers from %s", len(spec.Providers), cfg.Agent.SpecPath)
	}

	if cfg.Agent.ShapePath != "" {
		s, err := shape.LoadFile(cfg.Agent.ShapePath)
		if err != nil {
			return nil, err
		}
		if err := a.SetOutputShape(s); err != nil {
			return nil, fmt.Errorf("output shape %s: %w", cfg.Agent.ShapePath, err)
		}
	}

	return a, nil
}
