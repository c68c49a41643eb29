package promptbuild

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kayz/promptforge/internal/logger"
)

// Keys of the seed providers.
const (
	KeyBaseSystem = "baseSystem"
	KeyBasePrompt = "basePrompt"
)

// Static returns a provider that always yields text.
func Static(key string, role Role, text string) Provider {
	return Provider{
		Key:  key,
		Role: role,
		Produce: func(context.Context) (string, error) {
			return text, nil
		},
	}
}

// BaseSystem seeds the system stream. It always renders first.
func BaseSystem(text string) Provider {
	p := Static(KeyBaseSystem, RoleSystem, text)
	p.Order = OrderFirst
	return p
}

// BasePrompt seeds the prompt stream. It always renders first.
func BasePrompt(text string) Provider {
	p := Static(KeyBasePrompt, RolePrompt, text)
	p.Order = OrderFirst
	return p
}

// Suffix returns a static provider that always renders last in its stream.
func Suffix(key string, role Role, text string) Provider {
	p := Static(key, role, text)
	p.Order = OrderLast
	return p
}

// Clock reports the current time using layout (RFC1123 when empty). now may be
// nil, in which case time.Now is used.
func Clock(key string, role Role, layout string, now func() time.Time) Provider {
	if layout == "" {
		layout = time.RFC1123
	}
	if now == nil {
		now = time.Now
	}
	return Provider{
		Key:   key,
		Role:  role,
		Title: "Current Time",
		Produce: func(context.Context) (string, error) {
			return now().Format(layout), nil
		},
	}
}

// Template reads one or more template files relative to the templates dir.
// A missing file fails the provider; blank paths are skipped.
func (b *Builder) Template(key string, role Role, paths ...string) Provider {
	return Provider{
		Key:  key,
		Role: role,
		Produce: func(context.Context) (string, error) {
			var parts []string
			for _, p := range paths {
				if strings.TrimSpace(p) == "" {
					continue
				}
				fullPath := b.resolveTemplatePath(p)
				content, err := os.ReadFile(fullPath)
				if err != nil {
					return "", fmt.Errorf("read template %s: %w", fullPath, err)
				}
				if text := strings.TrimSpace(string(content)); text != "" {
					parts = append(parts, text)
				}
			}
			return strings.Join(parts, "\n\n"), nil
		},
	}
}

// References wraps each file in [REFERENCE:path] markers. Missing files are
// skipped with a warning so one stale path does not void the others.
func (b *Builder) References(key string, role Role, paths ...string) Provider {
	return Provider{
		Key:   key,
		Role:  role,
		Title: "References",
		Produce: func(context.Context) (string, error) {
			var blocks []string
			for _, p := range paths {
				if strings.TrimSpace(p) == "" {
					continue
				}
				fullPath := b.resolvePath(p)
				content, err := os.ReadFile(fullPath)
				if err != nil {
					logger.Warn("[PROMPT] Reference file not found, skipping: %s", fullPath)
					continue
				}
				blocks = append(blocks, fmt.Sprintf("[REFERENCE:%s]\n%s\n[/REFERENCE]", p, strings.TrimSpace(string(content))))
			}
			return strings.Join(blocks, "\n\n"), nil
		},
	}
}

// Truncate limits a provider's output to maxChars runes. maxChars <= 0 leaves
// the provider unchanged.
func Truncate(p Provider, maxChars int) Provider {
	if maxChars <= 0 || p.Produce == nil {
		return p
	}
	inner := p.Produce
	p.Produce = func(ctx context.Context) (string, error) {
		content, err := inner(ctx)
		if err != nil {
			return "", err
		}
		runes := []rune(content)
		if len(runes) <= maxChars {
			return content, nil
		}
		return string(runes[:maxChars]), nil
	}
	return p
}
