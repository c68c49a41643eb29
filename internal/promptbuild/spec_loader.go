package promptbuild

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadAssemblySpec reads and validates an assembly spec file.
func LoadAssemblySpec(path string) (*AssemblySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec file %s: %w", path, err)
	}

	var spec AssemblySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse spec file %s: %w", path, err)
	}
	if err := validateAssemblySpec(&spec); err != nil {
		return nil, fmt.Errorf("invalid spec file %s: %w", path, err)
	}
	return &spec, nil
}

// Apply upserts every provider declared by spec into the builder's collection.
func (b *Builder) Apply(spec *AssemblySpec) error {
	if err := validateAssemblySpec(spec); err != nil {
		return err
	}
	for _, ps := range spec.Providers {
		p, err := b.providerFromSpec(spec, ps)
		if err != nil {
			return fmt.Errorf("provider %s: %w", ps.Key, err)
		}
		b.providers.Upsert(p)
	}
	return nil
}

func (b *Builder) providerFromSpec(spec *AssemblySpec, ps ProviderSpec) (Provider, error) {
	role, err := ParseRole(ps.Role)
	if err != nil {
		return Provider{}, err
	}
	key := strings.TrimSpace(ps.Key)

	var p Provider
	switch strings.TrimSpace(ps.SourceType) {
	case "inline_text":
		p = Static(key, role, ps.Source)
	case "templates":
		p = b.Template(key, role, ps.Templates...)
	case "references":
		paths := ps.Paths
		if strings.TrimSpace(ps.Source) != "" {
			paths = append([]string{ps.Source}, paths...)
		}
		p = b.References(key, role, paths...)
	case "history":
		hs := ps.History
		if hs.Agent == "" {
			hs.Agent = spec.Agent
		}
		if hs.Channel == "" {
			hs.Channel = ps.Source
		}
		p = b.History(key, role, hs)
	case "clock":
		p = Clock(key, role, ps.Source, nil)
	default:
		return Provider{}, fmt.Errorf("unsupported source_type: %s", ps.SourceType)
	}

	p.Order = int(ps.Order)
	p.Scope = strings.TrimSpace(ps.Scope)
	if ps.Title != "" {
		p.Title = ps.Title
	}
	return Truncate(p, ps.MaxChars), nil
}

func validateAssemblySpec(spec *AssemblySpec) error {
	if spec == nil {
		return fmt.Errorf("spec is nil")
	}
	if strings.TrimSpace(spec.Agent) == "" {
		return fmt.Errorf("agent is required")
	}
	if len(spec.Providers) == 0 {
		return fmt.Errorf("providers is required")
	}

	seenKeys := make(map[string]struct{}, len(spec.Providers))
	for _, ps := range spec.Providers {
		key := strings.TrimSpace(ps.Key)
		if key == "" {
			return fmt.Errorf("provider key is required")
		}
		if _, exists := seenKeys[key]; exists {
			return fmt.Errorf("duplicate provider key: %s", key)
		}
		seenKeys[key] = struct{}{}

		if _, err := ParseRole(ps.Role); err != nil {
			return fmt.Errorf("provider %s: %w", key, err)
		}

		st := strings.TrimSpace(ps.SourceType)
		if st == "" {
			return fmt.Errorf("provider %s source_type is required", key)
		}
		if !isSupportedSourceType(st) {
			return fmt.Errorf("provider %s has unsupported source_type: %s", key, st)
		}

		switch st {
		case "templates":
			if len(ps.Templates) == 0 {
				return fmt.Errorf("provider %s templates source requires templates", key)
			}
		case "references":
			if strings.TrimSpace(ps.Source) == "" && len(ps.Paths) == 0 {
				return fmt.Errorf("provider %s references source requires source or paths", key)
			}
		case "inline_text":
			if strings.TrimSpace(ps.Source) == "" {
				return fmt.Errorf("provider %s source is required for source_type %s", key, st)
			}
		}
	}

	return nil
}

func isSupportedSourceType(sourceType string) bool {
	switch strings.TrimSpace(sourceType) {
	case "inline_text", "templates", "references", "history", "clock":
		return true
	default:
		return false
	}
}
