package promptbuild

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kayz/promptforge/internal/keyed"
)

// Role selects which merged stream a provider feeds.
type Role string

const (
	RoleSystem Role = "system"
	RolePrompt Role = "prompt"
)

// ParseRole converts a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSystem:
		return RoleSystem, nil
	case RolePrompt:
		return RolePrompt, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Reserved ranks. OrderFirst is used by the base seed providers and OrderLast
// by suffix providers.
const (
	OrderFirst = math.MinInt
	OrderLast  = math.MaxInt
)

// ProduceFunc yields a provider's content.
type ProduceFunc func(ctx context.Context) (string, error)

// Provider is a unit of content contributed to the system or prompt stream.
type Provider struct {
	Key   string
	Role  Role
	Order int
	// Title, when set, is rendered as a heading line above the content.
	Title string
	// Scope ties the provider to one action. Empty means global.
	Scope   string
	Produce ProduceFunc
}

func (p Provider) matches(role Role, scope string) bool {
	return p.Role == role && (p.Scope == "" || p.Scope == scope)
}

func (p Provider) label() string {
	if p.Title != "" {
		return fmt.Sprintf("%q (%s)", p.Title, p.Key)
	}
	return p.Key
}

// DuplicateKeyError reports a strict registration under an existing key.
type DuplicateKeyError = keyed.DuplicateKeyError

// ProviderError wraps a producer failure. It is logged and dropped by Render,
// never returned to callers.
type ProviderError struct {
	Key   string
	Title string
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("provider %s (%q) failed: %v", e.Key, e.Title, e.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Key, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
