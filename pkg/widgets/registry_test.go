package widgets

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ormform/pkg/model"
)

func TestResolve_ExplicitWidgetWins(t *testing.T) {
	reg := NewRegistry()
	field := model.Field{
		Type: model.FieldTypeBoolean,
		Metadata: map[string]string{
			"widget": "toggle",
		},
	}

	if got, ok := reg.Resolve(field); !ok || got != "toggle" {
		t.Fatalf("expected explicit widget to win, got %q (ok=%v)", got, ok)
	}
}

func TestResolve_Builtins(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		name   string
		field  model.Field
		expect string
	}{
		{name: "boolean", field: model.Field{Kind: "boolean", Type: model.FieldTypeBoolean}, expect: WidgetCheckbox},
		{name: "enum select", field: model.Field{Kind: "select", Type: model.FieldTypeString, Options: []model.Option{{Value: "a", Label: "a"}}}, expect: WidgetSelect},
		{name: "to-one relation", field: model.Field{Kind: "query_select", Type: model.FieldTypeString}, expect: WidgetSelect},
		{name: "to-one radio", field: model.Field{Kind: "query_radio", Type: model.FieldTypeString}, expect: WidgetRadio},
		{name: "to-many relation", field: model.Field{Kind: "query_select_multiple", Type: model.FieldTypeArray}, expect: WidgetMultiSelect},
		{name: "to-many checkboxes", field: model.Field{Kind: "query_checkbox", Type: model.FieldTypeArray}, expect: WidgetCheckboxList},
		{name: "sub-form list", field: model.Field{Kind: "model_list", Type: model.FieldTypeArray}, expect: WidgetListTable},
		{name: "date", field: model.Field{Kind: "date", Type: model.FieldTypeString, Format: "date"}, expect: WidgetDate},
		{name: "datetime", field: model.Field{Kind: "datetime", Type: model.FieldTypeString, Format: "date-time"}, expect: WidgetDateTime},
		{name: "integer", field: model.Field{Kind: "integer", Type: model.FieldTypeInteger}, expect: WidgetNumber},
		{name: "decimal", field: model.Field{Kind: "decimal", Type: model.FieldTypeNumber}, expect: WidgetNumber},
		{name: "textarea", field: model.Field{Kind: "textarea", Type: model.FieldTypeString}, expect: WidgetTextArea},
		{name: "hidden", field: model.Field{Kind: "hidden", Type: model.FieldTypeString}, expect: WidgetHidden},
		{name: "plain string", field: model.Field{Kind: "string", Type: model.FieldTypeString}, expect: WidgetText},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := reg.Resolve(tc.field)
			if !ok || got != tc.expect {
				t.Fatalf("expected %s, got %q (ok=%v)", tc.expect, got, ok)
			}
		})
	}
}

func TestRegister_PriorityAndOrder(t *testing.T) {
	reg := &Registry{}
	reg.Register("low", 1, func(model.Field) bool { return true })
	reg.Register("first", 5, func(model.Field) bool { return true })
	reg.Register("second", 5, func(model.Field) bool { return true })

	if got, _ := reg.Resolve(model.Field{}); got != "first" {
		t.Fatalf("expected highest priority, earliest registration; got %q", got)
	}
	if _, ok := (&Registry{}).Resolve(model.Field{}); ok {
		t.Fatalf("empty registry must not resolve")
	}
}

func TestDecorate_NestedFieldsAndExistingHints(t *testing.T) {
	reg := NewRegistry()
	shared := map[string]string{"relation": "to-many"}
	form := model.FormModel{
		Name: "SchoolForm",
		Fields: []model.Field{
			{Name: "name", Kind: "string", Type: model.FieldTypeString, Metadata: map[string]string{"widget": "slug"}},
			{Name: "courses", Kind: "query_select_multiple", Type: model.FieldTypeArray, Metadata: shared},
			{
				Name: "students",
				Kind: "model_list",
				Type: model.FieldTypeArray,
				Nested: []model.Field{
					{Name: "active", Kind: "boolean", Type: model.FieldTypeBoolean},
				},
			},
		},
	}

	if err := reg.Decorate(&form); err != nil {
		t.Fatalf("decorate: %v", err)
	}

	got := map[string]string{}
	for _, field := range form.Fields {
		got[field.Name] = field.Metadata["widget"]
	}
	got["students.active"] = form.Fields[2].Nested[0].Metadata["widget"]
	want := map[string]string{
		"name":            "slug",
		"courses":         WidgetMultiSelect,
		"students":        WidgetListTable,
		"students.active": WidgetCheckbox,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("widgets mismatch (-want +got):\n%s", diff)
	}
	if _, ok := shared["widget"]; ok {
		t.Fatalf("decorate must not write into caller metadata maps")
	}
}
