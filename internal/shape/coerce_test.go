package shape

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mixedShape() Shape {
	return MustNew(
		Field{Name: "title", Kind: KindString, Description: "headline"},
		Field{Name: "count", Kind: KindNumber, Description: "how many"},
		Field{Name: "flag", Kind: KindBoolean, Description: "yes or no"},
		Field{Name: "meta", Kind: KindObject},
		Field{Name: "tags", Kind: KindArray},
	)
}

func TestCoerceNumberFromString(t *testing.T) {
	s := MustNew(Field{Name: "count", Kind: KindNumber})
	got, err := Coerce(s, `{"count":"42"}`)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if diff := cmp.Diff(Record{"count": float64(42)}, got); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
}

func TestCoerceBooleanCaseInsensitive(t *testing.T) {
	s := MustNew(Field{Name: "flag", Kind: KindBoolean})
	got, err := Coerce(s, `{"flag":"TRUE"}`)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if v, ok := got.Bool("flag"); !ok || !v {
		t.Fatalf("expected flag=true, got %#v", got["flag"])
	}

	got, err = Coerce(s, `{"flag":"False"}`)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if v, ok := got.Bool("flag"); !ok || v {
		t.Fatalf("expected flag=false, got %#v", got["flag"])
	}
}

func TestCoerceBooleanMismatch(t *testing.T) {
	s := MustNew(Field{Name: "flag", Kind: KindBoolean})
	_, err := Coerce(s, `{"flag":"maybe"}`)
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if mismatch.Field != "flag" || mismatch.Value != "maybe" {
		t.Fatalf("unexpected mismatch: %+v", mismatch)
	}
}

func TestCoerceFencedEqualsPlain(t *testing.T) {
	s := MustNew(Field{Name: "a", Kind: KindNumber})
	fenced, err := Coerce(s, "```json\n{\"a\":1}\n```")
	if err != nil {
		t.Fatalf("fenced Coerce failed: %v", err)
	}
	plain, err := Coerce(s, `{"a":1}`)
	if err != nil {
		t.Fatalf("plain Coerce failed: %v", err)
	}
	if diff := cmp.Diff(plain, fenced); diff != "" {
		t.Fatalf("fenced and plain differ (-plain +fenced):\n%s", diff)
	}
}

func TestCoerceFenceTagIsCaseInsensitive(t *testing.T) {
	s := MustNew(Field{Name: "a", Kind: KindString})
	raw := "Here you go:\n```JSON\n  {\"a\": \"x\"}  \n```\nThanks."
	got, err := Coerce(s, raw)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if v, _ := got.String("a"); v != "x" {
		t.Fatalf("expected a=x, got %#v", got["a"])
	}
}

func TestCoerceFenceTagMustBeJSON(t *testing.T) {
	raw := "```jsonc\n{\"a\":1}\n```"
	if got := extractCandidate(raw); got != raw {
		t.Fatalf("expected a jsonc fence not to be treated as json, got %q", got)
	}
	if got := extractCandidate("```json{\"a\":1}```"); got != `{"a":1}` {
		t.Fatalf("expected tag directly followed by the body to match, got %q", got)
	}

	s := MustNew(Field{Name: "a", Kind: KindString})
	v, err := Coerce(s, raw)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if v["a"] != "1" {
		t.Fatalf("expected embedded object to be found, got %v", v)
	}
}

func TestCoerceUsesFirstFence(t *testing.T) {
	s := MustNew(Field{Name: "a", Kind: KindNumber})
	raw := "```json\n{\"a\":1}\n```\n```json\n{\"a\":2}\n```"
	got, err := Coerce(s, raw)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if v, _ := got.Number("a"); v != 1 {
		t.Fatalf("expected first fence, got %v", v)
	}
}

func TestCoerceObjectInsideProse(t *testing.T) {
	s := MustNew(Field{Name: "answer", Kind: KindString})
	got, err := Coerce(s, `Sure! {"answer": "a {brace} inside"} Hope that helps.`)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if v, _ := got.String("answer"); v != "a {brace} inside" {
		t.Fatalf("unexpected answer %q", v)
	}
}

func TestCoerceMissingKey(t *testing.T) {
	s := mixedShape()
	raw := `{"title":"t","count":1,"meta":{},"tags":[]}`
	_, err := Coerce(s, raw)
	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
	if missing.Field != "flag" {
		t.Fatalf("expected missing field flag, got %q", missing.Field)
	}
}

func TestCoerceNullIsMissing(t *testing.T) {
	s := MustNew(Field{Name: "a", Kind: KindString})
	_, err := Coerce(s, `{"a":null}`)
	var missing *MissingKeyError
	if !errors.As(err, &missing) || missing.Field != "a" {
		t.Fatalf("expected MissingKeyError for a, got %v", err)
	}
}

func TestCoerceEmptyShapeAndInput(t *testing.T) {
	if _, err := Coerce(Shape{}, `{"a":1}`); !errors.Is(err, ErrEmptyShape) {
		t.Fatalf("expected ErrEmptyShape, got %v", err)
	}
	if _, err := Coerce(Shape{}, ""); !errors.Is(err, ErrEmptyShape) {
		t.Fatalf("expected ErrEmptyShape to win over empty input, got %v", err)
	}
	s := MustNew(Field{Name: "a", Kind: KindString})
	for _, raw := range []string{"", "   \n\t"} {
		if _, err := Coerce(s, raw); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput for %q, got %v", raw, err)
		}
	}
}

func TestCoerceDropsExtraKeys(t *testing.T) {
	s := MustNew(Field{Name: "a", Kind: KindString})
	got, err := Coerce(s, `{"a":"x","b":2,"c":{"d":true}}`)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if diff := cmp.Diff(Record{"a": "x"}, got); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
}

func TestCoerceStringIsUniversalSink(t *testing.T) {
	s := MustNew(
		Field{Name: "n", Kind: KindString},
		Field{Name: "f", Kind: KindString},
		Field{Name: "b", Kind: KindString},
		Field{Name: "o", Kind: KindString},
		Field{Name: "l", Kind: KindString},
	)
	got, err := Coerce(s, `{"n":42,"f":1.5,"b":false,"o":{"k":"v"},"l":[1,"two"]}`)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	want := Record{
		"n": "42",
		"f": "1.5",
		"b": "false",
		"o": `{"k":"v"}`,
		"l": `[1,"two"]`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
}

func TestCoerceNumberRejections(t *testing.T) {
	s := MustNew(Field{Name: "n", Kind: KindNumber})
	cases := []string{
		`{"n":"abc"}`,
		`{"n":""}`,
		`{"n":"NaN"}`,
		`{"n":"Inf"}`,
		`{"n":true}`,
		`{"n":[1]}`,
		`{"n":{"v":1}}`,
	}
	for _, raw := range cases {
		_, err := Coerce(s, raw)
		var mismatch *TypeMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected TypeMismatchError for %s, got %v", raw, err)
		}
	}
}

func TestCoerceNumberAcceptsPaddedString(t *testing.T) {
	s := MustNew(Field{Name: "n", Kind: KindNumber})
	got, err := Coerce(s, `{"n":" -3.25 "}`)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if v, _ := got.Number("n"); v != -3.25 {
		t.Fatalf("expected -3.25, got %v", v)
	}
}

func TestCoerceContainers(t *testing.T) {
	s := mixedShape()
	raw := `{"title":"t","count":2,"flag":true,"meta":{"depth":{"n":1}},"tags":["a",3]}`
	got, err := Coerce(s, raw)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	want := Record{
		"title": "t",
		"count": float64(2),
		"flag":  true,
		"meta":  map[string]any{"depth": map[string]any{"n": float64(1)}},
		"tags":  []any{"a", float64(3)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
}

func TestCoerceContainerMismatches(t *testing.T) {
	cases := []struct {
		name string
		kind Kind
		raw  string
	}{
		{"object given array", KindObject, `{"v":[1,2]}`},
		{"object given string", KindObject, `{"v":"{}"}`},
		{"array given object", KindArray, `{"v":{"a":1}}`},
		{"array given number", KindArray, `{"v":3}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := MustNew(Field{Name: "v", Kind: tc.kind})
			_, err := Coerce(s, tc.raw)
			var mismatch *TypeMismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("expected TypeMismatchError, got %v", err)
			}
			if mismatch.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, mismatch.Kind)
			}
		})
	}
}

func TestCoerceUnknownKind(t *testing.T) {
	s := MustNew(Field{Name: "when", Kind: "date"})
	_, err := Coerce(s, `{"when":"2024-01-01"}`)
	var unknown *UnknownKindError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownKindError, got %v", err)
	}
	if unknown.Field != "when" || unknown.Kind != "date" {
		t.Fatalf("unexpected error fields: %+v", unknown)
	}
}

func TestCoerceJSONParseError(t *testing.T) {
	s := MustNew(Field{Name: "a", Kind: KindString})
	cases := []string{
		"not json at all",
		"```json\n{\"a\": }\n```",
		`["a"]`,
		`{"a": "x"`,
	}
	for _, raw := range cases {
		_, err := Coerce(s, raw)
		var parseErr *JSONParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected JSONParseError for %q, got %v", raw, err)
		}
		if parseErr.Raw != raw {
			t.Fatalf("expected raw text to be carried, got %q", parseErr.Raw)
		}
		if parseErr.Candidate == "" {
			t.Fatalf("expected candidate for %q", raw)
		}
	}
}

func TestCoerceInto(t *testing.T) {
	type verdict struct {
		Title string   `json:"title"`
		Count int      `json:"count"`
		Flag  bool     `json:"flag"`
		Tags  []string `json:"tags"`
	}
	s := MustNew(
		Field{Name: "title", Kind: KindString},
		Field{Name: "count", Kind: KindNumber},
		Field{Name: "flag", Kind: KindBoolean},
		Field{Name: "tags", Kind: KindArray},
	)
	var v verdict
	if err := CoerceInto(s, `{"title":7,"count":"3","flag":"true","tags":["x","y"]}`, &v); err != nil {
		t.Fatalf("CoerceInto failed: %v", err)
	}
	want := verdict{Title: "7", Count: 3, Flag: true, Tags: []string{"x", "y"}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("unexpected value (-want +got):\n%s", diff)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[string]string{
		"42":      "42",
		"1.50":    "1.5",
		"-0.001":  "-0.001",
		"1e21":    "1e+21",
		"1e-7":    "1e-7",
		"-2.5e-9": "-2.5e-9",
		"1.5e300": "1.5e+300",
		"0":       "0",
	}
	for in, want := range cases {
		if got := formatNumber(jsonNumber(in)); got != want {
			t.Fatalf("formatNumber(%s) = %q, want %q", in, got, want)
		}
	}
}
