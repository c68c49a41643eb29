package promptbuild

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegisterRejectsDuplicateKey(t *testing.T) {
	c := NewCollection()
	if err := c.Register(Static("k", RolePrompt, "one")); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	err := c.Register(Static("k", RolePrompt, "two"))
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
	if dup.Key != "k" {
		t.Fatalf("expected key k in error, got %q", dup.Key)
	}
}

func TestRegisterAsOverridesKey(t *testing.T) {
	c := NewCollection()
	if err := c.RegisterAs("custom", Static("k", RolePrompt, "one")); err != nil {
		t.Fatalf("register: %v", err)
	}
	p, ok := c.Get("custom")
	if !ok || p.Key != "custom" {
		t.Fatalf("expected provider stored under override key, got %#v", p)
	}
	if c.Has("k") {
		t.Fatalf("expected original key unused")
	}
	if err := c.Register(Static("k", RolePrompt, "two")); err != nil {
		t.Fatalf("expected original key free: %v", err)
	}
}

func TestRemoveIsNoOpWhenAbsent(t *testing.T) {
	c := NewCollection()
	c.Upsert(Static("a", RoleSystem, "a")).Remove("missing").Remove("a")
	if c.Len() != 0 {
		t.Fatalf("expected empty collection, got %v", c.Keys())
	}
}

func TestSelectFiltersAndSorts(t *testing.T) {
	c := NewCollection()
	c.Upsert(ordered("late", RolePrompt, 5, "")).
		Upsert(ordered("sys", RoleSystem, 0, "")).
		Upsert(ordered("early", RolePrompt, 1, "")).
		Upsert(ordered("tie", RolePrompt, 5, ""))

	var keys []string
	for _, p := range c.Select(RolePrompt, "") {
		keys = append(keys, p.Key)
	}
	if !reflect.DeepEqual(keys, []string{"early", "late", "tie"}) {
		t.Fatalf("unexpected selection: %v", keys)
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(" System "); err != nil || r != RoleSystem {
		t.Fatalf("expected system role, got %q err=%v", r, err)
	}
	if _, err := ParseRole("user"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
