package shape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kayz/promptforge/internal/promptbuild"
)

// Fixed keys so that setting a new shape replaces the previous providers.
const (
	KeyDescription = "outputShape"
	KeyReminder    = "outputReminder"
)

// ProviderOrder places the shape providers after every ordinary provider but
// before suffixes.
const ProviderOrder = promptbuild.OrderLast - 1

// DescriptionProvider returns a system provider instructing the model to
// answer with a JSON object of exactly the declared fields.
func DescriptionProvider(s Shape) (promptbuild.Provider, error) {
	if s.IsEmpty() {
		return promptbuild.Provider{}, ErrEmptyShape
	}
	text := Describe(s)
	return promptbuild.Provider{
		Key:   KeyDescription,
		Role:  promptbuild.RoleSystem,
		Order: ProviderOrder,
		Produce: func(context.Context) (string, error) {
			return text, nil
		},
	}, nil
}

// ReminderProvider returns a prompt provider restating the field kinds on a
// single line.
func ReminderProvider(s Shape) (promptbuild.Provider, error) {
	if s.IsEmpty() {
		return promptbuild.Provider{}, ErrEmptyShape
	}
	text := Remind(s)
	return promptbuild.Provider{
		Key:   KeyReminder,
		Role:  promptbuild.RolePrompt,
		Order: ProviderOrder,
		Produce: func(context.Context) (string, error) {
			return text, nil
		},
	}, nil
}

// Describe renders the output format instructions for s.
func Describe(s Shape) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your output must be a single valid JSON object containing exactly %d keys.\n", s.Len())
	sb.WriteString("Respond using the following JSON format:\n")
	sb.WriteString("```json\n{\n")
	for i, f := range s.fields {
		desc := fmt.Sprintf("(%s) %s", f.Kind, f.Description)
		fmt.Fprintf(&sb, "  %s: %s", quote(f.Name), quote(strings.TrimSpace(desc)))
		if i < len(s.fields)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n```")
	return sb.String()
}

// Remind renders the one-line reminder for s.
func Remind(s Shape) string {
	pairs := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		pairs = append(pairs, fmt.Sprintf("%s : %s", quote(f.Name), f.Kind))
	}
	return "Remember: respond with a single JSON object shaped as {" + strings.Join(pairs, ", ") + "}"
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `"` + s + `"`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
