package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kayz/promptforge/internal/agent"
	"github.com/kayz/promptforge/internal/ai"
	"github.com/kayz/promptforge/internal/config"
	"github.com/kayz/promptforge/internal/logger"
	"github.com/kayz/promptforge/internal/persist"
)

var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "promptforge",
	Short: "Compose prompts from providers and coerce model output",
	Long: `promptforge assembles system and prompt text from ordered providers,
sends it to a model backend and coerces the reply into a declared shape.

Commands:
  promptforge compose   Print the rendered system text and prompt
  promptforge run       Run the agent's actions
  promptforge coerce    Coerce raw model text against a shape file
  promptforge models    List configured models
  promptforge serve     Run scheduled actions`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to promptforge.yaml (default: next to the executable)")
}

// loadConfig reads the config selected by --config and applies its logging
// section. An explicit --log flag wins over the configured level.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if !rootCmd.PersistentFlags().Changed("log") && cfg.Logging.Level != "" {
		level, err := logger.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	if cfg.Agent.Debug && logger.GetLevel() > logger.DebugLevel {
		logger.SetLevel(logger.DebugLevel)
	}
	if err := logger.OpenFile(cfg.Logging.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runtime bundles the objects a command needs to talk to a model.
type runtime struct {
	cfg      *config.Config
	registry *ai.Registry
	agent    *agent.Agent
	store    *persist.Store
}

func (r *runtime) Close() {
	if r.store != nil {
		r.store.Close()
	}
}

// newRuntime loads the model registry, opens the store when persistence is
// enabled and builds the agent. A missing registry is tolerated so that
// compose works without any backend configured.
func newRuntime(cfg *config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	registry, err := ai.LoadRegistry(cfg.AI.ProvidersFile, cfg.AI.ModelsFile)
	if err != nil {
		logger.Debug("[CLI] Model registry unavailable: %v", err)
	} else {
		rt.registry = registry
	}

	if cfg.Persist.Enabled {
		store, err := persist.NewStore(cfg.Persist.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		rt.store = store
	}

	a, err := agent.FromConfig(cfg, ai.NewDispatcher(rt.registry, cfg.AI.MaxTokens), rt.store)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.agent = a
	return rt, nil
}

// parseParams turns repeated key=value flags into action params.
func parseParams(pairs []string) (agent.Params, error) {
	params := make(agent.Params, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
}
