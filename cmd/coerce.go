package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/promptforge/internal/shape"
)

var (
	coerceShapePath string
	coerceInputPath string
)

var coerceCmd = &cobra.Command{
	Use:   "coerce",
	Short: "Coerce raw model text into the record declared by a shape file",
	Long: `Read raw model output (stdin, or --input) and print the coerced record as JSON.
The command exits non-zero when the text cannot be coerced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if coerceShapePath == "" {
			return fmt.Errorf("--shape is required")
		}
		s, err := shape.LoadFile(coerceShapePath)
		if err != nil {
			return err
		}

		raw, err := readCoerceInput(cmd)
		if err != nil {
			return err
		}

		record, err := shape.Coerce(s, raw)
		if err != nil {
			var parseErr *shape.JSONParseError
			if errors.As(err, &parseErr) {
				fmt.Fprintf(cmd.ErrOrStderr(), "candidate:\n%s\n", parseErr.Candidate)
			}
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(orderedRecord{shape: s, record: record})
	},
}

func readCoerceInput(cmd *cobra.Command) (string, error) {
	if coerceInputPath != "" && coerceInputPath != "-" {
		data, err := os.ReadFile(coerceInputPath)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// orderedRecord encodes a record with keys in shape declaration order.
type orderedRecord struct {
	shape  shape.Shape
	record shape.Record
}

func (o orderedRecord) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, name := range o.shape.Names() {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(o.record[name])
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, value...)
	}
	return append(buf, '}'), nil
}

func init() {
	coerceCmd.Flags().StringVarP(&coerceShapePath, "shape", "s", "", "Shape declaration (YAML)")
	coerceCmd.Flags().StringVarP(&coerceInputPath, "input", "i", "", "File with raw model output (default: stdin)")
	rootCmd.AddCommand(coerceCmd)
}
