package gotemplate

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

//go:embed testdata/templates
var embeddedTemplates embed.FS

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := New(append([]Option{WithFS(templatesFS)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplateWritesToOutputs(t *testing.T) {
	engine := newEngine(t)

	var out strings.Builder
	result, err := engine.RenderTemplate("hello", map[string]any{"name": "  Ada "}, &out)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "Hello Ada!\n" {
		t.Fatalf("unexpected result %q", result)
	}
	if out.String() != result {
		t.Fatalf("writer got %q, want %q", out.String(), result)
	}
}

func TestEngine_StructDataUsesJSONNames(t *testing.T) {
	type item struct {
		Label string `json:"label"`
	}
	engine := newEngine(t)

	result, err := engine.RenderTemplate("list", struct {
		Items []item `json:"items"`
	}{Items: []item{{Label: "a"}, {Label: "b"}}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := strings.ReplaceAll(result, "\n", ""); got != "[a][b]" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t, WithGlobalData(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}))

	result, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "env=staging\n" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}

	result, err := engine.Render("use-filter", map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "ADA!\n" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestEngine_RenderInlineContent(t *testing.T) {
	engine := newEngine(t, WithTemplateFunc(map[string]any{
		"greet": func(name string) string { return "hi " + name },
	}))

	result, err := engine.Render(`{{ greet(name) }}`, map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "hi Ada" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestEngine_Errors(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected a source error")
	}
	var nilEngine *Engine
	if _, err := nilEngine.RenderTemplate("hello", nil); !errors.Is(err, ErrNilEngine) {
		t.Fatalf("expected ErrNilEngine, got %v", err)
	}
	if _, err := newEngine(t).RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected a load error")
	}
}
