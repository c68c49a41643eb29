package shape

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func jsonNumber(s string) json.Number {
	return json.Number(s)
}

func TestNewRejectsBadFields(t *testing.T) {
	if _, err := New(Field{Name: " ", Kind: KindString}); err == nil {
		t.Fatal("expected error for blank name")
	}
	if _, err := New(Field{Name: "a"}, Field{Name: "a"}); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestNewNormalizesKinds(t *testing.T) {
	s := MustNew(Field{Name: "a", Kind: " Number "})
	f, ok := s.Field("a")
	if !ok || f.Kind != KindNumber {
		t.Fatalf("expected normalized number kind, got %+v", f)
	}
}

func TestShapeYAMLKeepsDocumentOrder(t *testing.T) {
	doc := `
zeta: string
alpha:
  kind: number
  description: a count
mid:
  kind: boolean
`
	var s Shape
	if err := yaml.Unmarshal([]byte(doc), &s); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	want := []Field{
		{Name: "zeta", Kind: KindString},
		{Name: "alpha", Kind: KindNumber, Description: "a count"},
		{Name: "mid", Kind: KindBoolean},
	}
	if diff := cmp.Diff(want, s.Fields()); diff != "" {
		t.Fatalf("unexpected fields (-want +got):\n%s", diff)
	}

	out, err := yaml.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var again Shape
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatalf("unmarshal of marshalled shape failed: %v", err)
	}
	if diff := cmp.Diff(s.Fields(), again.Fields()); diff != "" {
		t.Fatalf("marshalled shape changed (-want +got):\n%s", diff)
	}
}

func TestShapeYAMLRejectsSequence(t *testing.T) {
	var s Shape
	if err := yaml.Unmarshal([]byte("- a\n- b\n"), &s); err == nil {
		t.Fatal("expected error for sequence shape")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shape.yaml")
	if err := os.WriteFile(path, []byte("answer:\n  kind: string\n  description: the reply\n"), 0644); err != nil {
		t.Fatalf("write shape: %v", err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if diff := cmp.Diff([]string{"answer"}, s.Names()); diff != "" {
		t.Fatalf("unexpected names (-want +got):\n%s", diff)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDescribe(t *testing.T) {
	s := MustNew(
		Field{Name: "a", Kind: KindString, Description: "first <value>"},
		Field{Name: "b", Kind: KindNumber, Description: "second"},
	)
	want := "Your output must be a single valid JSON object containing exactly 2 keys.\n" +
		"Respond using the following JSON format:\n" +
		"```json\n" +
		"{\n" +
		"  \"a\": \"(string) first <value>\",\n" +
		"  \"b\": \"(number) second\"\n" +
		"}\n" +
		"```"
	if got := Describe(s); got != want {
		t.Fatalf("unexpected description:\n%s\nwant:\n%s", got, want)
	}
}

func TestRemind(t *testing.T) {
	s := MustNew(
		Field{Name: "a", Kind: KindString},
		Field{Name: "b", Kind: KindNumber},
	)
	want := `Remember: respond with a single JSON object shaped as {"a" : string, "b" : number}`
	if got := Remind(s); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestShapeProviders(t *testing.T) {
	if _, err := DescriptionProvider(Shape{}); !errors.Is(err, ErrEmptyShape) {
		t.Fatalf("expected ErrEmptyShape, got %v", err)
	}
	if _, err := ReminderProvider(Shape{}); !errors.Is(err, ErrEmptyShape) {
		t.Fatalf("expected ErrEmptyShape, got %v", err)
	}

	s := MustNew(Field{Name: "ok", Kind: KindBoolean, Description: "done"})
	desc, err := DescriptionProvider(s)
	if err != nil {
		t.Fatalf("DescriptionProvider failed: %v", err)
	}
	if desc.Key != KeyDescription || desc.Role != "system" || desc.Order != ProviderOrder {
		t.Fatalf("unexpected description provider: %+v", desc)
	}
	text, err := desc.Produce(t.Context())
	if err != nil || !strings.Contains(text, `"ok": "(boolean) done"`) {
		t.Fatalf("unexpected description text %q (err %v)", text, err)
	}

	rem, err := ReminderProvider(s)
	if err != nil {
		t.Fatalf("ReminderProvider failed: %v", err)
	}
	if rem.Key != KeyReminder || rem.Role != "prompt" || rem.Order != ProviderOrder {
		t.Fatalf("unexpected reminder provider: %+v", rem)
	}
}
