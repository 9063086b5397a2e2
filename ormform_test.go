package ormform

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-ormform/pkg/orchestrator"
	"github.com/goliatone/go-ormform/pkg/orm"
	"github.com/goliatone/go-ormform/pkg/renderers/vanilla"
	"github.com/goliatone/go-ormform/pkg/testsupport"
)

func TestGenerateHTML_StudentRow(t *testing.T) {
	fx := testsupport.NewFixture()
	html, err := GenerateHTML(testsupport.Context(), testsupport.Student{}, fx.Students[0], "",
		orchestrator.WithSession(fx.Session))
	if err != nil {
		t.Fatalf("GenerateHTML: %v", err)
	}
	if !strings.Contains(string(html), `value="Bart Simpson"`) {
		t.Fatalf("expected bound student in:\n%s", html)
	}
}

func TestModelForm_Facade(t *testing.T) {
	fx := testsupport.NewFixture()
	schema, err := ModelForm(testsupport.Student{}, orm.WithSession(fx.Session), orm.WithConverter(NewConverter()), orm.Only("full_name"))
	if err != nil {
		t.Fatalf("ModelForm: %v", err)
	}
	if names := schema.FieldNames(); len(names) != 1 || names[0] != "full_name" {
		t.Fatalf("unexpected fields %v", names)
	}
	specs, err := ModelFields(testsupport.Course{})
	if err != nil {
		t.Fatalf("ModelFields: %v", err)
	}
	if _, ok := specs["id"]; !ok {
		t.Fatalf("expected the primary key in %v", specs)
	}
}

func TestEmbeddedFS(t *testing.T) {
	if _, err := fs.ReadFile(EmbeddedTemplates(), "templates/form.tmpl"); err != nil {
		t.Fatalf("form template: %v", err)
	}
	if _, err := fs.ReadFile(AssetsFS(), vanilla.StylesheetName); err != nil {
		t.Fatalf("stylesheet: %v", err)
	}
}
