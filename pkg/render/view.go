package render

import (
	"fmt"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/model"
	"github.com/goliatone/go-ormform/pkg/widgets"
)

// ChoicesUnavailable is shown when a field's choices cannot be loaded.
const ChoicesUnavailable = "Could not load choices"

// FormView is the template-facing snapshot of a bound form.
type FormView struct {
	Name        string        `json:"name"`
	Action      string        `json:"action,omitempty"`
	Method      string        `json:"method"`
	SubmitLabel string        `json:"submitLabel"`
	Hidden      []HiddenField `json:"hidden,omitempty"`
	Fields      []FieldView   `json:"fields"`
	Errors      []string      `json:"errors,omitempty"`
}

// FieldView describes one input.
type FieldView struct {
	Name        string       `json:"name"`
	ShortName   string       `json:"shortName"`
	ID          string       `json:"id"`
	Kind        string       `json:"kind"`
	Widget      string       `json:"widget"`
	Label       string       `json:"label"`
	Description string       `json:"description,omitempty"`
	Value       string       `json:"value"`
	Checked     bool         `json:"checked,omitempty"`
	Required    bool         `json:"required,omitempty"`
	Choices     []ChoiceView `json:"choices,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
	List        *ListView    `json:"list,omitempty"`
}

// ChoiceView is one option of a select, radio or checkbox group.
type ChoiceView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// ListView lays out a sub-form list. Hidden sub-fields of every entry are
// collected in Hidden and rendered after the table.
type ListView struct {
	Horizontal bool        `json:"horizontal"`
	Columns    []string    `json:"columns"`
	Entries    []EntryView `json:"entries"`
	Hidden     []FieldView `json:"hidden,omitempty"`
	AddName    string      `json:"addName"`
}

// EntryView is one sub-form row.
type EntryView struct {
	Name       string      `json:"name"`
	DeleteName string      `json:"deleteName"`
	Fields     []FieldView `json:"fields"`
}

type viewBuilder struct {
	widgets *widgets.Registry
	loc     localizer
	extra   map[string][]string
}

// BuildView snapshots form for rendering. Widgets are resolved from the
// schema description; extra errors in opts are attached by input name.
func BuildView(form *forms.Form, opts RenderOptions) (FormView, error) {
	if form == nil {
		return FormView{}, fmt.Errorf("render: form is nil")
	}
	registry := opts.Widgets
	if registry == nil {
		registry = widgets.NewRegistry()
	}

	mapped := MapErrorPayload(form, opts.Errors)
	b := &viewBuilder{
		widgets: registry,
		loc:     newLocalizer(opts),
		extra:   mapped.Fields,
	}

	view := FormView{
		Name:        form.Schema().Name(),
		Action:      opts.Action,
		Method:      opts.method(),
		SubmitLabel: opts.submitLabel(),
		Hidden:      CollectHidden(opts.Hidden...),
		Errors:      mapped.Form,
	}

	described, err := model.Describe(form.Schema(), registry)
	if err != nil {
		return FormView{}, fmt.Errorf("render: describe %s: %w", view.Name, err)
	}

	only := make(map[string]bool, len(opts.Fields))
	for _, name := range opts.Fields {
		only[name] = true
	}
	for _, field := range form.Fields() {
		if len(only) > 0 && !only[field.ShortName()] {
			continue
		}
		desc, _ := described.Field(field.ShortName())
		view.Fields = append(view.Fields, b.field(view.Name, field, desc))
	}
	return view, nil
}

func (b *viewBuilder) field(formName string, field forms.Field, desc model.Field) FieldView {
	label := field.Label()
	if label == "" {
		label = desc.Label
	}
	fv := FieldView{
		Name:        field.Name(),
		ShortName:   field.ShortName(),
		ID:          field.ID(),
		Kind:        string(field.Kind()),
		Widget:      desc.Metadata["widget"],
		Label:       b.loc.text(LabelKey(formName, field.ShortName()), label),
		Description: SanitizeDescription(b.loc.text(DescriptionKey(formName, field.ShortName()), field.Description())),
		Value:       field.Value(),
		Required:    desc.Required,
		Errors:      normalizeMessages(append(append([]string(nil), field.Errors()...), b.extra[field.Name()]...)),
	}
	if fv.Widget == "" {
		fv.Widget = widgets.WidgetText
	}
	if checkbox, ok := field.(*forms.BooleanField); ok {
		fv.Checked = checkbox.Checked()
	}
	if chooser, ok := field.(forms.Chooser); ok {
		choices, err := chooser.Choices()
		if err != nil {
			fv.Errors = MergeFormErrors(fv.Errors, ChoicesUnavailable)
		}
		for _, choice := range choices {
			fv.Choices = append(fv.Choices, ChoiceView{Value: choice.Value, Label: choice.Label, Selected: choice.Selected})
		}
	}
	if list, ok := field.(*fields.ModelListField); ok {
		fv.List = b.list(list, desc)
	}
	return fv
}

func (b *viewBuilder) list(list *fields.ModelListField, desc model.Field) *ListView {
	nested := model.FormModel{Name: list.Template().Name(), Fields: desc.Nested}
	lv := &ListView{
		Horizontal: list.Horizontal(),
		AddName:    list.AddName(),
		Entries:    []EntryView{},
	}
	for _, sub := range desc.Nested {
		if sub.Metadata["widget"] == widgets.WidgetHidden {
			continue
		}
		lv.Columns = append(lv.Columns, b.loc.text(LabelKey(nested.Name, sub.Name), sub.Label))
	}

	for _, entry := range list.Entries() {
		ev := EntryView{Name: entry.Name(), DeleteName: entry.DeleteName()}
		for _, field := range entry.Form.Fields() {
			subDesc, _ := nested.Field(field.ShortName())
			fv := b.field(nested.Name, field, subDesc)
			if fv.Widget == widgets.WidgetHidden {
				lv.Hidden = append(lv.Hidden, fv)
				continue
			}
			ev.Fields = append(ev.Fields, fv)
		}
		lv.Entries = append(lv.Entries, ev)
	}
	return lv
}
