package openapi

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/model"
	"github.com/goliatone/go-ormform/pkg/orm"
	"github.com/goliatone/go-ormform/pkg/testsupport"
)

func studentModel(t *testing.T, fx *testsupport.Fixture) (*forms.Schema, model.FormModel) {
	t.Helper()
	schema, err := orm.ModelForm(testsupport.Student{}, orm.WithSession(fx.Session))
	if err != nil {
		t.Fatalf("ModelForm: %v", err)
	}
	described, err := model.Describe(schema)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	return schema, described
}

func TestExporter_StudentSchema(t *testing.T) {
	fx := testsupport.NewFixture()
	_, described := studentModel(t, fx)

	schema, err := NewExporter().Schema(described)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if schema.Title != "StudentForm" {
		t.Fatalf("expected title StudentForm, got %q", schema.Title)
	}
	if diff := cmp.Diff([]string{"full_name", "grade", "active"}, schema.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	fullName := schema.Properties["full_name"].Value
	if fullName.MaxLength == nil || *fullName.MaxLength != 255 || fullName.Title != "Full Name" {
		t.Fatalf("unexpected full_name schema %+v", fullName)
	}
	dob := schema.Properties["dob"].Value
	if dob.Format != "date" || !dob.Nullable {
		t.Fatalf("unexpected dob schema %+v", dob)
	}
	grade := schema.Properties["grade"].Value
	if diff := cmp.Diff([]any{"freshman", "sophomore", "junior", "senior"}, grade.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
	if active := schema.Properties["active"].Value; active.Default != true || !active.Type.Is(openapi3.TypeBoolean) {
		t.Fatalf("unexpected active schema %+v", active)
	}
	if courses := schema.Properties["courses"].Value; !courses.Type.Is(openapi3.TypeArray) || !courses.Items.Value.Type.Is(openapi3.TypeString) {
		t.Fatalf("unexpected courses schema %+v", courses)
	}
}

func TestExporter_DialectRules(t *testing.T) {
	testsupport.Register()
	schema, err := orm.ModelForm(testsupport.Device{})
	if err != nil {
		t.Fatalf("ModelForm: %v", err)
	}
	described, _ := model.Describe(schema)
	exported, err := NewExporter().Schema(described)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}

	if got := exported.Properties["address"].Value.Format; got != "ipv4" {
		t.Fatalf("expected ipv4 format, got %q", got)
	}
	if got := exported.Properties["serial"].Value.Format; got != "uuid" {
		t.Fatalf("expected uuid format, got %q", got)
	}
	if got := exported.Properties["hardware"].Value.Pattern; got != macPattern {
		t.Fatalf("expected mac pattern, got %q", got)
	}
	built := exported.Properties["built"].Value
	if built.Min == nil || *built.Min != 1901 || built.Max == nil || *built.Max != 2155 {
		t.Fatalf("unexpected year bounds %+v", built)
	}
	if slots := exported.Properties["slots"].Value; slots.Min == nil || *slots.Min != 0 || !slots.Nullable {
		t.Fatalf("unexpected slots schema %+v", slots)
	}
}

func TestExporter_Document(t *testing.T) {
	fx := testsupport.NewFixture()
	_, student := studentModel(t, fx)
	exporter := NewExporter(WithTitle("School admin"), WithDocumentVersion("2.1.0"))

	doc, err := exporter.Document(context.Background(), student, model.FormModel{Name: "Empty"})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc.OpenAPI != Version || doc.Info.Title != "School admin" || doc.Info.Version != "2.1.0" {
		t.Fatalf("unexpected document header %+v", doc.Info)
	}
	if _, ok := doc.Components.Schemas["StudentForm"]; !ok {
		t.Fatalf("expected StudentForm component, got %v", doc.Components.Schemas)
	}

	if _, err := exporter.Document(context.Background()); !errors.Is(err, ErrNoForms) {
		t.Fatalf("expected ErrNoForms, got %v", err)
	}
	if _, err := exporter.Document(context.Background(), student, student); !errors.Is(err, ErrDuplicateForm) {
		t.Fatalf("expected ErrDuplicateForm, got %v", err)
	}
}

func TestValidateData_ProcessedStudentPasses(t *testing.T) {
	fx := testsupport.NewFixture()
	schema, described := studentModel(t, fx)
	form, err := schema.New(testsupport.Context(), nil, fx.Students[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	exported, _ := NewExporter().Schema(described)

	data := FormData(form)
	if data["dob"] != "2010-04-01" || data["current_school"] != "1" {
		t.Fatalf("unexpected exported data %v", data)
	}
	if diff := cmp.Diff([]any{"1", "2"}, data["courses"]); diff != "" {
		t.Fatalf("courses mismatch (-want +got):\n%s", diff)
	}
	if err := ValidateData(exported, data); err != nil {
		t.Fatalf("expected valid data, got %v", err)
	}
}

func TestValidateData_ErrorPayloadKeysByPointer(t *testing.T) {
	fx := testsupport.NewFixture()
	_, described := studentModel(t, fx)
	exported, _ := NewExporter().Schema(described)

	err := ValidateData(exported, map[string]any{
		"full_name": strings.Repeat("x", 256),
		"grade":     "dropout",
		"dob":       "yesterday",
		"courses":   []any{},
	})
	if err == nil {
		t.Fatalf("expected validation errors")
	}

	payload := ErrorPayload(err)
	var keys []string
	for _, key := range []string{"/full_name", "/grade", "/dob", "/active"} {
		if len(payload[key]) > 0 {
			keys = append(keys, key)
		}
	}
	if diff := cmp.Diff([]string{"/full_name", "/grade", "/dob", "/active"}, keys); diff != "" {
		t.Fatalf("payload keys mismatch (-want +got):\n%s\npayload: %v", diff, payload)
	}
}

func TestFormData_ListEntries(t *testing.T) {
	fx := testsupport.NewFixture()
	template := forms.NewSchema("StudentEntry").Add("full_name", forms.String(forms.Args{}))
	list, err := fields.NewModelList(template, testsupport.StudentMapper)
	if err != nil {
		t.Fatalf("NewModelList: %v", err)
	}
	schema := forms.NewSchema("SchoolForm").Add("students", list)
	form, err := schema.New(testsupport.Context(), nil, fx.Schools[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want := map[string]any{"students": []any{
		map[string]any{"full_name": "Bart Simpson"},
		map[string]any{"full_name": "Lisa Simpson"},
	}}
	if diff := cmp.Diff(want, FormData(form)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	described, _ := model.Describe(schema)
	exported, _ := NewExporter().Schema(described)
	if err := ValidateData(exported, FormData(form)); err != nil {
		t.Fatalf("expected valid list data, got %v", err)
	}
}

func TestErrorPayload(t *testing.T) {
	if ErrorPayload(nil) != nil {
		t.Fatalf("expected nil payload")
	}
	got := ErrorPayload(errors.New("broken"))
	if diff := cmp.Diff(map[string][]string{"": {"broken"}}, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if got := pointer([]string{"a/b", "c~d", "0"}); got != "/a~1b/c~0d/0" {
		t.Fatalf("unexpected pointer %q", got)
	}
}
