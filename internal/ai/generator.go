// Package ai dispatches assembled prompts to model backends.
package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey = errors.New("API key is required")
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Generator produces text for a prompt. Implementations must be safe for
// sequential reuse; no retries are performed.
type Generator interface {
	Generate(ctx context.Context, prompt, model, system string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt, model, system string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt, model, system string) (string, error) {
	return f(ctx, prompt, model, system)
}

// UnsupportedModelError reports a model name that cannot be resolved to a
// backend.
type UnsupportedModelError struct {
	Model  string
	Reason string
}

func (e *UnsupportedModelError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported model %q: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("unsupported model %q", e.Model)
}
