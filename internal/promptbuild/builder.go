package promptbuild

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kayz/promptforge/internal/config"
	"github.com/kayz/promptforge/internal/logger"
)

// HeadingMarker prefixes the title line of a titled provider.
const HeadingMarker = "### "

// Builder merges the providers of a Collection into system and prompt text.
type Builder struct {
	cfg       config.PromptBuildConfig
	providers *Collection
	audit     *auditLog
}

// NewBuilder creates a new Builder with an empty provider collection.
func NewBuilder(cfg config.PromptBuildConfig) *Builder {
	b := &Builder{cfg: cfg, providers: NewCollection()}
	b.applyDefaults()
	if b.cfg.AuditEnabled {
		b.audit = newAuditLog(b.resolvePath(b.cfg.AuditDir), b.cfg.AuditFilePrefix, b.cfg.AuditRetentionDays)
	}
	return b
}

// Providers returns the live provider collection.
func (b *Builder) Providers() *Collection {
	return b.providers
}

// Render merges every provider of role that is global or tied to scope.
// ok is false when no provider matched. Producers run concurrently; a failing
// producer is logged and contributes nothing.
func (b *Builder) Render(ctx context.Context, role Role, scope string) (text string, ok bool) {
	selected := b.providers.Select(role, scope)
	if len(selected) == 0 {
		return "", false
	}

	results := make([]string, len(selected))
	failed := make([]bool, len(selected))

	var g errgroup.Group
	for i, p := range selected {
		g.Go(func() error {
			content, err := produce(ctx, p)
			if err != nil {
				logger.Warn("[PROMPT] Dropping %s: %v", p.label(), err)
				failed[i] = true
				return nil
			}
			results[i] = content
			return nil
		})
	}
	_ = g.Wait()

	sections := make([]section, 0, len(selected))
	for i, p := range selected {
		if failed[i] || strings.TrimSpace(results[i]) == "" {
			continue
		}
		sections = append(sections, section{key: p.Key, title: p.Title, content: results[i]})
	}

	text = renderSections(sections)
	if b.audit != nil {
		if err := b.audit.record(role, scope, text, sections, failedKeys(selected, failed)); err != nil {
			logger.Warn("[PROMPT] Audit record failed: %v", err)
		}
	}
	return text, true
}

// RenderPrompt renders the prompt stream followed by endPrompt, separated by
// a blank line. endPrompt is always present, even when nothing rendered.
func (b *Builder) RenderPrompt(ctx context.Context, scope, endPrompt string) string {
	body, _ := b.Render(ctx, RolePrompt, scope)
	switch {
	case body == "":
		return endPrompt
	case endPrompt == "":
		return body
	default:
		return body + "\n\n" + endPrompt
	}
}

// RenderSystem renders the system stream; "" when no provider matched.
func (b *Builder) RenderSystem(ctx context.Context, scope string) string {
	text, _ := b.Render(ctx, RoleSystem, scope)
	return text
}

func produce(ctx context.Context, p Provider) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProviderError{Key: p.Key, Title: p.Title, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if p.Produce == nil {
		return "", &ProviderError{Key: p.Key, Title: p.Title, Err: fmt.Errorf("no producer")}
	}
	content, err = p.Produce(ctx)
	if err != nil {
		return "", &ProviderError{Key: p.Key, Title: p.Title, Err: err}
	}
	return content, nil
}

type section struct {
	key     string
	title   string
	content string
}

func renderSections(sections []section) string {
	var out strings.Builder
	for i, s := range sections {
		if i > 0 {
			out.WriteString("\n\n")
		}
		if s.title != "" {
			out.WriteString(HeadingMarker)
			out.WriteString(s.title)
			out.WriteString("\n")
		}
		out.WriteString(s.content)
	}
	return out.String()
}

func failedKeys(selected []Provider, failed []bool) []string {
	var keys []string
	for i, p := range selected {
		if failed[i] {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

func (b *Builder) applyDefaults() {
	if b.cfg.RootDir == "" {
		b.cfg.RootDir = "."
	}
	if b.cfg.TemplatesDir == "" {
		b.cfg.TemplatesDir = "prompts"
	}
}

func (b *Builder) resolveTemplatePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.cfg.RootDir, b.cfg.TemplatesDir, p)
}

func (b *Builder) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.cfg.RootDir, p)
}
