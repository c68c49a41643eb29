package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kayz/promptforge/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models and their providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := ai.LoadRegistry(cfg.AI.ProvidersFile, cfg.AI.ModelsFile)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPROVIDER\tCODE\tSKILLS\tSTATUS")
		for _, m := range reg.ListModels() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", modelLabel(m, cfg.Agent.Model), m.Provider, m.Code, m.SkillsText(), modelStatus(reg, m))
		}
		return w.Flush()
	},
}

func modelLabel(m *ai.ModelConfig, current string) string {
	if m.Name == current {
		return m.Name + " *"
	}
	return m.Name
}

func modelStatus(reg *ai.Registry, m *ai.ModelConfig) string {
	p, ok := reg.GetProvider(m.Provider)
	switch {
	case !ok:
		return "provider missing"
	case p.APIKey == "":
		return "no api key"
	default:
		return "ok"
	}
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
