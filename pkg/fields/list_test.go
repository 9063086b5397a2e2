package fields

import (
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/testsupport"
)

func studentTemplate() *forms.Schema {
	grades := []forms.Choice{
		{Value: "freshman", Label: "freshman"},
		{Value: "junior", Label: "junior"},
		{Value: "senior", Label: "senior"},
	}
	return forms.NewSchema("StudentEntry").
		Add("full_name", forms.String(forms.Args{Validators: []forms.Validator{forms.InputRequired(), forms.MaxLength(255)}})).
		Add("grade", forms.Select(forms.Args{Choices: grades, Validators: []forms.Validator{forms.InputRequired()}}))
}

func schoolSchema(t *testing.T, opts ...ListOption) *forms.Schema {
	t.Helper()
	testsupport.Register()
	list, err := NewModelList(studentTemplate(), testsupport.StudentMapper, opts...)
	if err != nil {
		t.Fatalf("NewModelList: %v", err)
	}
	return forms.NewSchema("SchoolForm").
		Add("name", forms.String(forms.Args{})).
		Add("students", list)
}

func processSchool(t *testing.T, schema *forms.Schema, formdata url.Values, school *testsupport.School) (*forms.Form, *ModelListField) {
	t.Helper()
	form, err := schema.New(testsupport.Context(), formdata, school)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	field, _ := form.Field("students")
	return form, field.(*ModelListField)
}

func entryNames(list *ModelListField) []string {
	var out []string
	for _, entry := range list.Entries() {
		out = append(out, entry.Name())
	}
	return out
}

func TestModelList_InitialEntriesFollowRows(t *testing.T) {
	fx := testsupport.NewFixture()
	_, list := processSchool(t, schoolSchema(t), nil, fx.Schools[0])

	want := []string{"students-_MFL_PK-1", "students-_MFL_PK-2"}
	if diff := cmp.Diff(want, entryNames(list)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	name, _ := list.Entries()[0].Form.Field("full_name")
	if name.Name() != "students-_MFL_PK-1-full_name" || name.Data() != "Bart Simpson" {
		t.Fatalf("unexpected entry field %s = %#v", name.Name(), name.Data())
	}
	if list.AddName() != "students-_MFLTW_ADD" {
		t.Fatalf("unexpected add name %q", list.AddName())
	}
}

func TestModelList_AddRequestAppendsBlankEntry(t *testing.T) {
	fx := testsupport.NewFixture()
	formdata := url.Values{
		"name":                         {"Springfield Elementary"},
		"students-_MFL_PK-1-full_name": {"Bart Simpson"},
		"students-_MFL_PK-1-grade":     {"junior"},
		"students-_MFL_PK-2-full_name": {"Lisa Simpson"},
		"students-_MFL_PK-2-grade":     {"senior"},
		"students-_MFLTW_ADD":          {"Add"},
	}
	form, list := processSchool(t, schoolSchema(t), formdata, fx.Schools[0])

	want := []string{"students-_MFL_PK-1", "students-_MFL_PK-2", "students-_MFL_NEW-0"}
	if diff := cmp.Diff(want, entryNames(list)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if form.Validate() {
		t.Fatalf("a form carrying an add action must not validate")
	}
	if !list.PreInvalid() {
		t.Fatalf("expected the list to be pre-invalid")
	}
	blank, _ := list.Entries()[2].Form.Field("full_name")
	if len(blank.RawData()) != 0 {
		t.Fatalf("added entry must not read formdata, got %v", blank.RawData())
	}
}

func TestModelList_DeleteAndSequenceNumbers(t *testing.T) {
	fx := testsupport.NewFixture()
	formdata := url.Values{
		"students-_MFL_PK-1-full_name":  {"Bart Simpson"},
		"students-_MFL_PK-1-grade":      {"junior"},
		"students-_MFL_PK-2-full_name":  {"Lisa Simpson"},
		"students-_MFL_PK-2-_MFLTW_DEL": {"Delete"},
		"students-_MFL_NEW-0-full_name": {"Ralph"},
		"students-_MFL_NEW-0-_MFLTW_DEL": {"Delete"},
		"students-_MFL_NEW-2-full_name": {"Maggie Simpson"},
		"students-_MFL_NEW-2-grade":     {"freshman"},
		"students-_MFL_NEW-5-_MFLTW_DEL": {"Delete"},
		"students-_MFLTW_ADD":           {"Add"},
	}
	_, list := processSchool(t, schoolSchema(t), formdata, fx.Schools[0])

	want := []string{"students-_MFL_PK-1", "students-_MFL_NEW-2", "students-_MFL_NEW-6"}
	if diff := cmp.Diff(want, entryNames(list)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	maggie, _ := list.Entries()[1].Form.Field("full_name")
	if maggie.Data() != "Maggie Simpson" {
		t.Fatalf("expected kept new entry data, got %#v", maggie.Data())
	}
}

func TestModelList_SubmissionPopulatesRelationship(t *testing.T) {
	fx := testsupport.NewFixture()
	school := fx.Schools[0]
	bart := fx.Students[0]
	formdata := url.Values{
		"name":                          {"Springfield Elementary"},
		"students-_MFL_PK-1-full_name":  {"Bartholomew Simpson"},
		"students-_MFL_PK-1-grade":      {"senior"},
		"students-_MFL_NEW-0-full_name": {"Maggie Simpson"},
		"students-_MFL_NEW-0-grade":     {"freshman"},
	}
	form, list := processSchool(t, schoolSchema(t), formdata, school)

	if !form.Validate() {
		t.Fatalf("expected valid form, got %v", form.Errors())
	}
	if err := form.Populate(school); err != nil {
		t.Fatalf("populate: %v", err)
	}

	if len(school.Students) != 2 {
		t.Fatalf("expected 2 students, got %d", len(school.Students))
	}
	if school.Students[0] != bart || bart.FullName != "Bartholomew Simpson" || bart.Grade != "senior" {
		t.Fatalf("expected bart updated in place, got %+v", school.Students[0])
	}
	if got := school.Students[1]; got.FullName != "Maggie Simpson" || got.Grade != "freshman" || got.ID != 0 {
		t.Fatalf("unexpected new student %+v", got)
	}
	if list.PreInvalid() {
		t.Fatalf("plain submission must not be pre-invalid")
	}
}

func TestModelList_EntryErrorsAreReportedByInputName(t *testing.T) {
	fx := testsupport.NewFixture()
	formdata := url.Values{
		"students-_MFL_PK-1-full_name": {""},
		"students-_MFL_PK-1-grade":     {"junior"},
	}
	form, list := processSchool(t, schoolSchema(t), formdata, fx.Schools[0])

	if form.Validate() {
		t.Fatalf("expected invalid form")
	}
	want := map[string][]string{"students-_MFL_PK-1-full_name": {"This field is required."}}
	if diff := cmp.Diff(want, form.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if len(list.EntryErrors()) != 1 {
		t.Fatalf("expected positional entry errors, got %v", list.EntryErrors())
	}
}

func TestModelList_SuspiciousTokensInvalidate(t *testing.T) {
	cases := map[string]url.Values{
		"malformed identifier": {
			"students-_MFL_PK-abc-full_name": {"x"},
		},
		"unknown database row": {
			"students-_MFL_PK-99-full_name": {"Nelson"},
			"students-_MFL_PK-99-grade":     {"junior"},
		},
	}
	for name, formdata := range cases {
		t.Run(name, func(t *testing.T) {
			fx := testsupport.NewFixture()
			_, list := processSchool(t, schoolSchema(t), formdata, fx.Schools[0])
			if !list.PreInvalid() {
				t.Fatalf("expected pre-invalid list")
			}
			if len(list.Entries()) != 0 {
				t.Fatalf("suspicious tokens must not create entries, got %v", entryNames(list))
			}
		})
	}
}

func TestModelList_MinEntriesPadsWithBlankEntries(t *testing.T) {
	fx := testsupport.NewFixture()
	_, list := processSchool(t, schoolSchema(t, MinEntries(3)), nil, fx.Schools[1])

	want := []string{"students-_MFL_NEW-0", "students-_MFL_NEW-1", "students-_MFL_NEW-2"}
	if diff := cmp.Diff(want, entryNames(list)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestModelList_MaxEntriesIsAProgrammingError(t *testing.T) {
	fx := testsupport.NewFixture()
	_, err := schoolSchema(t, MaxEntries(1)).New(testsupport.Context(), nil, fx.Schools[0])
	if !errors.Is(err, ErrTooManyEntries) {
		t.Fatalf("expected ErrTooManyEntries, got %v", err)
	}
}

func TestNewModelList_RequiresModelAndTemplate(t *testing.T) {
	testsupport.Register()
	if _, err := NewModelList(studentTemplate(), nil); !errors.Is(err, ErrModelRequired) {
		t.Fatalf("expected ErrModelRequired, got %v", err)
	}
	if _, err := NewModelList(nil, testsupport.StudentMapper); !errors.Is(err, ErrTemplateRequired) {
		t.Fatalf("expected ErrTemplateRequired, got %v", err)
	}
	spec, err := NewModelList(studentTemplate(), testsupport.StudentMapper, Horizontal())
	if err != nil {
		t.Fatalf("NewModelList: %v", err)
	}
	if spec.Kind != KindModelList || spec.Template == nil {
		t.Fatalf("unexpected spec %+v", spec)
	}
}
