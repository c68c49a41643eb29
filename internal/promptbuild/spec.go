package promptbuild

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// AssemblySpec declares an agent's providers in YAML.
type AssemblySpec struct {
	Version     string         `yaml:"version" json:"version"`
	Agent       string         `yaml:"agent" json:"agent"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Providers   []ProviderSpec `yaml:"providers" json:"providers"`
}

// ProviderSpec declares one provider. Source is interpreted per SourceType:
// the text for inline_text, a reference path for references, the channel for
// history and the time layout for clock.
type ProviderSpec struct {
	Key        string      `yaml:"key" json:"key"`
	Role       string      `yaml:"role" json:"role"`
	Title      string      `yaml:"title,omitempty" json:"title,omitempty"`
	Order      SpecOrder   `yaml:"order,omitempty" json:"order,omitempty"`
	Scope      string      `yaml:"scope,omitempty" json:"scope,omitempty"`
	SourceType string      `yaml:"source_type" json:"source_type"`
	Source     string      `yaml:"source,omitempty" json:"source,omitempty"`
	Templates  []string    `yaml:"templates,omitempty" json:"templates,omitempty"`
	Paths      []string    `yaml:"paths,omitempty" json:"paths,omitempty"`
	History    HistorySpec `yaml:"history,omitempty" json:"history,omitempty"`
	MaxChars   int         `yaml:"max_chars,omitempty" json:"max_chars,omitempty"`
}

// SpecOrder is an order rank that also accepts "first" and "last" in YAML.
type SpecOrder int

func (o *SpecOrder) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(node.Value)) {
	case "first":
		*o = SpecOrder(OrderFirst)
		return nil
	case "last":
		*o = SpecOrder(OrderLast)
		return nil
	}
	var n int
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("order must be an integer, first or last: %w", err)
	}
	*o = SpecOrder(n)
	return nil
}
