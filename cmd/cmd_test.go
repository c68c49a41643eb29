package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kayz/promptforge/internal/agent"
)

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"topic=go", " lang =en", "empty=", "eq=a=b"})
	if err != nil {
		t.Fatalf("parseParams failed: %v", err)
	}
	want := agent.Params{"topic": "go", "lang": "en", "empty": "", "eq": "a=b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=x", " =x"} {
		if _, err := parseParams([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

// execute runs the root command with args and resets the flags it touched.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(func() {
		coerceShapePath, coerceInputPath = "", ""
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "promptforge "+Version) {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestCoerceCommandPrintsRecordInShapeOrder(t *testing.T) {
	shapePath := writeFile(t, "shape.yaml", "title: string\nscore: number\ndone: boolean\n")
	raw := "Sure!\n```json\n{\"done\": \"TRUE\", \"score\": \"4.5\", \"title\": 7}\n```"

	out, _, err := execute(t, raw, "coerce", "--shape", shapePath)
	if err != nil {
		t.Fatalf("coerce failed: %v", err)
	}
	want := "{\n  \"title\": \"7\",\n  \"score\": 4.5,\n  \"done\": true\n}\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCoerceCommandReadsInputFile(t *testing.T) {
	shapePath := writeFile(t, "shape.yaml", "answer: string\n")
	inputPath := writeFile(t, "raw.txt", `{"answer": "42"}`)

	out, _, err := execute(t, "", "coerce", "--shape", shapePath, "--input", inputPath)
	if err != nil {
		t.Fatalf("coerce failed: %v", err)
	}
	if !strings.Contains(out, `"answer": "42"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCoerceCommandFailsOnBadInput(t *testing.T) {
	shapePath := writeFile(t, "shape.yaml", "answer: string\n")

	_, stderr, err := execute(t, "not json at all", "coerce", "--shape", shapePath)
	if err == nil {
		t.Fatal("expected coerce to fail")
	}
	if !strings.Contains(stderr, "not json at all") {
		t.Fatalf("expected candidate on stderr, got %q", stderr)
	}
}

func TestCoerceCommandRequiresShape(t *testing.T) {
	if _, _, err := execute(t, "{}", "coerce"); err == nil {
		t.Fatal("expected error without --shape")
	}
}
