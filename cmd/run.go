package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kayz/promptforge/internal/agent"
)

var (
	runActions []string
	runParams  []string
	runInput   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent's actions and print their results as JSON",
	Long: `Run every enabled action in order, or only the actions named with --action.
Failures are reported per action and make the command exit non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		params, err := parseParams(runParams)
		if err != nil {
			return err
		}
		if runInput != "" {
			params[agent.ParamInput] = runInput
		}

		rt, err := newRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		var results agent.Results
		if len(runActions) == 0 {
			results = rt.agent.Run(cmd.Context(), params)
		} else {
			results = make(agent.Results, len(runActions))
			for _, key := range runActions {
				v, err := rt.agent.RunOne(cmd.Context(), key, params)
				res := agent.Result{Value: v}
				if err != nil {
					res = agent.Result{Err: asActionError(key, err)}
				}
				results[key] = res
			}
		}

		if err := writeResults(cmd, results); err != nil {
			return err
		}
		if failed := results.Failed(); len(failed) > 0 {
			return fmt.Errorf("%d action(s) failed: %v", len(failed), failed)
		}
		return nil
	},
}

type resultView struct {
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeResults(cmd *cobra.Command, results agent.Results) error {
	view := make(map[string]resultView, len(results))
	for key, res := range results {
		if res.Err != nil {
			view[key] = resultView{Error: res.Err.Err.Error()}
			continue
		}
		view[key] = resultView{Value: res.Value}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(view)
}

func asActionError(key string, err error) *agent.ActionError {
	var ae *agent.ActionError
	if errors.As(err, &ae) {
		return ae
	}
	return &agent.ActionError{Key: key, Err: err}
}

func init() {
	runCmd.Flags().StringArrayVarP(&runActions, "action", "a", nil, "Action key to run (repeatable)")
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "Action parameter as key=value (repeatable)")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "User input for the reply action")
	rootCmd.AddCommand(runCmd)
}
