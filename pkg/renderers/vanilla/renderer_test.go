package vanilla

import (
	"context"
	"io/fs"
	"net/url"
	"strings"
	"testing"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/orm"
	"github.com/goliatone/go-ormform/pkg/render"
	"github.com/goliatone/go-ormform/pkg/testsupport"
)

func renderForm(t *testing.T, form *forms.Form, opts render.RenderOptions) string {
	t.Helper()
	renderer, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := renderer.Render(testsupport.Context(), form, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, html)
		}
	}
}

func TestRenderer_StudentForm(t *testing.T) {
	fx := testsupport.NewFixture()
	schema, err := orm.ModelForm(testsupport.Student{}, orm.WithSession(fx.Session))
	if err != nil {
		t.Fatalf("ModelForm: %v", err)
	}
	form, err := schema.New(testsupport.Context(), nil, fx.Students[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	html := renderForm(t, form, render.RenderOptions{
		Action: "/students/1",
		Hidden: []render.HiddenField{render.CSRFToken("_csrf", "t0k3n")},
	})

	assertContains(t, html,
		`action="/students/1"`,
		`<input type="hidden" name="_csrf" value="t0k3n">`,
		`name="full_name" value="Bart Simpson" required>`,
		`<p class="ormform-help">Family and given name</p>`,
		`<input type="date" id="dob" name="dob" value="2010-04-01">`,
		`<option value="junior" selected>junior</option>`,
		`<input type="checkbox" id="active" name="active" value="y" checked>`,
		`<option value="__None">`,
		`<option value="1" selected>Springfield Elementary</option>`,
		`name="courses" multiple>`,
		`<option value="2" selected>Biology</option>`,
		`<option value="3">Chemistry</option>`,
		`<button type="submit" class="ormform-submit">Save</button>`,
	)
}

func TestRenderer_ErrorsAndSubset(t *testing.T) {
	fx := testsupport.NewFixture()
	schema, err := orm.ModelForm(testsupport.Student{}, orm.WithSession(fx.Session))
	if err != nil {
		t.Fatalf("ModelForm: %v", err)
	}
	form, err := schema.New(testsupport.Context(), url.Values{"full_name": {""}}, nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	form.Validate()

	html := renderForm(t, form, render.RenderOptions{
		Fields: []string{"full_name", "grade"},
		Errors: map[string][]string{
			"/grade":    {"Grade is closed for enrolment"},
			"__all__":   {"Try again later"},
			"/unknown/": {"Lost message"},
		},
	})

	assertContains(t, html,
		`<ul class="ormform-errors"><li>Lost message</li><li>Try again later</li></ul>`,
		`<div class="ormform-field has-errors" data-field="full_name">`,
		`<li>This field is required.</li>`,
		`<li>Grade is closed for enrolment</li>`,
	)
	if strings.Contains(html, `name="dob"`) {
		t.Fatalf("subset rendering leaked dob:\n%s", html)
	}
}

func schoolForm(t *testing.T, formdata url.Values, opts ...fields.ListOption) *forms.Form {
	t.Helper()
	fx := testsupport.NewFixture()
	template := forms.NewSchema("StudentEntry").
		Add("id", forms.Hidden(forms.Args{})).
		Add("full_name", forms.String(forms.Args{Label: "Name"})).
		Add("grade", forms.Select(forms.Args{Choices: []forms.Choice{{Value: "junior", Label: "Junior"}, {Value: "senior", Label: "Senior"}}}))
	list, err := fields.NewModelList(template, testsupport.StudentMapper, opts...)
	if err != nil {
		t.Fatalf("NewModelList: %v", err)
	}
	schema := forms.NewSchema("SchoolForm").
		Add("name", forms.String(forms.Args{})).
		Add("students", list)
	form, err := schema.New(testsupport.Context(), formdata, fx.Schools[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return form
}

func TestRenderer_ListTableVertical(t *testing.T) {
	html := renderForm(t, schoolForm(t, nil), render.RenderOptions{})

	assertContains(t, html,
		`<input type="submit" class="ormform-enter-submit"`,
		`<thead><tr><th>Name</th><th>Grade</th><th class="ormform-list-actions">-</th></tr></thead>`,
		`<tr data-entry="students-_MFL_PK-1"><td><input type="text" id="students-_MFL_PK-1-full_name" name="students-_MFL_PK-1-full_name" value="Bart Simpson"></td>`,
		`name="students-_MFL_PK-2-_MFLTW_DEL" value="delete">Delete</button>`,
		`</table>
<input type="hidden" id="students-_MFL_PK-1-id" name="students-_MFL_PK-1-id" value="1"><input type="hidden" id="students-_MFL_PK-2-id" name="students-_MFL_PK-2-id" value="2">`,
		`name="students-_MFLTW_ADD" value="add">Add students</button>`,
	)
	if strings.Index(html, "ormform-enter-submit") > strings.Index(html, "ormform-list-delete") {
		t.Fatalf("the enter key submit must precede the delete buttons")
	}
}

func TestRenderer_ListTableHorizontalAndEmpty(t *testing.T) {
	added := url.Values{"students-_MFL_PK-1-full_name": {"Bart"}, "students-_MFL_PK-2-_MFLTW_DEL": {"delete"}, "students-_MFLTW_ADD": {"add"}}
	html := renderForm(t, schoolForm(t, added, fields.Horizontal()), render.RenderOptions{})

	assertContains(t, html,
		`<table class="ormform-list-entries ormform-horizontal">`,
		`<td><label for="students-_MFL_PK-1-full_name">Name</label> <input type="text"`,
		`<tr data-entry="students-_MFL_NEW-0">`,
	)
	if strings.Contains(html, "students-_MFL_PK-2") {
		t.Fatalf("deleted entry rendered:\n%s", html)
	}

	deleted := url.Values{"students-_MFL_PK-1-_MFLTW_DEL": {"delete"}, "students-_MFL_PK-2-_MFLTW_DEL": {"delete"}}
	html = renderForm(t, schoolForm(t, deleted), render.RenderOptions{})
	assertContains(t, html, `<td>There are no students</td>`)
}

func TestRenderer_Basics(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if renderer.Name() != Name || !strings.HasPrefix(renderer.ContentType(), "text/html") {
		t.Fatalf("unexpected identity %s %s", renderer.Name(), renderer.ContentType())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := renderer.Render(ctx, schoolForm(t, nil), render.RenderOptions{}); err == nil {
		t.Fatalf("expected cancelled context error")
	}
	if _, err := fs.ReadFile(AssetsFS(), StylesheetName); err != nil {
		t.Fatalf("stylesheet: %v", err)
	}
}
