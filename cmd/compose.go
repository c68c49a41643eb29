package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/promptforge/internal/agent"
	"github.com/kayz/promptforge/internal/config"
)

var (
	composeScope      string
	composeSpecPath   string
	composeOutputPath string
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Render the system text and prompt without calling a model",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if composeSpecPath != "" {
			cfg.Agent.SpecPath = composeSpecPath
		}

		a, err := agent.FromConfig(cfg, nil, nil)
		if err != nil {
			return err
		}
		if cfg.PromptBuild.AuditEnabled {
			if err := a.Builder().CleanupOldAuditFiles(); err != nil {
				return fmt.Errorf("cleanup audit files: %w", err)
			}
		}

		out := formatComposed(cfg, a, cmd)
		if composeOutputPath == "" {
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		}
		if err := os.WriteFile(composeOutputPath, []byte(out), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	},
}

func formatComposed(cfg *config.Config, a *agent.Agent, cmd *cobra.Command) string {
	ctx := cmd.Context()
	system := a.RenderSystem(ctx, composeScope)
	prompt := a.RenderPrompt(ctx, composeScope)
	return fmt.Sprintf("=== SYSTEM (%s) ===\n%s\n\n=== PROMPT ===\n%s\n", cfg.Agent.Name, system, prompt)
}

func init() {
	composeCmd.Flags().StringVar(&composeScope, "scope", agent.ReplyKey, "Action scope to render for")
	composeCmd.Flags().StringVar(&composeSpecPath, "spec", "", "Provider assembly spec (overrides agent.spec_path)")
	composeCmd.Flags().StringVarP(&composeOutputPath, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(composeCmd)
}
