package tui

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/render"
	"github.com/goliatone/go-ormform/pkg/widgets"
)

// Name is the registry name of the renderer.
const Name = "tui"

// Renderer fills bound forms interactively and produces the formdata a
// browser would have submitted, sub-form list tokens included.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, form encoded
// output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatFormURLEncoded,
		theme:        Theme{InfoPrefix: "# ", ErrorPrefix: "! "},
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	return r.outputFormat.ContentType()
}

// Render fills form and serializes the collected formdata.
func (r *Renderer) Render(ctx context.Context, form *forms.Form, opts render.RenderOptions) ([]byte, error) {
	values, err := r.Fill(ctx, form, opts)
	if err != nil {
		return nil, err
	}
	return r.Encode(values)
}

// Fill prompts for every rendered field of form, defaulting to its current
// values, and returns the resulting formdata. Existing list entries can be
// kept or deleted and new entries appended.
func (r *Renderer) Fill(ctx context.Context, form *forms.Form, opts render.RenderOptions) (url.Values, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view, err := render.BuildView(form, opts)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	for _, hidden := range view.Hidden {
		values.Set(hidden.Name, hidden.Value)
	}
	for _, message := range view.Errors {
		if err := r.driver.Info(ctx, r.theme.ErrorPrefix+message); err != nil {
			return nil, err
		}
	}
	if err := r.fillFields(ctx, form, view.Fields, values, opts); err != nil {
		return nil, err
	}

	if r.submitTransformer != nil {
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return values, nil
}

func (r *Renderer) fillFields(ctx context.Context, form *forms.Form, views []render.FieldView, values url.Values, opts render.RenderOptions) error {
	for _, fv := range views {
		for _, message := range fv.Errors {
			if err := r.driver.Info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, fv.Label, message)); err != nil {
				return err
			}
		}
		if fv.List != nil {
			field, _ := form.Field(fv.ShortName)
			list, ok := field.(*fields.ModelListField)
			if !ok {
				return fmt.Errorf("tui: %s is not a list field", fv.Name)
			}
			if err := r.fillList(ctx, list, fv.Label, values, opts); err != nil {
				return err
			}
			continue
		}
		if err := r.fillField(ctx, fv, values); err != nil {
			return fmt.Errorf("tui: %s: %w", fv.Name, err)
		}
	}
	return nil
}

func (r *Renderer) fillField(ctx context.Context, fv render.FieldView, values url.Values) error {
	help := stripTags(fv.Description)

	switch fv.Widget {
	case widgets.WidgetHidden:
		values.Set(fv.Name, fv.Value)

	case widgets.WidgetCheckbox:
		checked, err := r.driver.Confirm(ctx, ConfirmConfig{Message: fv.Label, Default: fv.Checked, Help: help})
		if err != nil {
			return err
		}
		if checked {
			values.Set(fv.Name, "y")
		}

	case widgets.WidgetSelect, widgets.WidgetRadio:
		if len(fv.Choices) == 0 {
			return nil
		}
		labels, selected := choiceLabels(fv.Choices)
		def := 0
		if len(selected) > 0 {
			def = selected[0]
		}
		idx, err := r.driver.Select(ctx, SelectConfig{Message: fv.Label, Options: labels, DefaultIndex: def, Help: help})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(fv.Choices) {
			return fmt.Errorf("%w: %d", ErrSelection, idx)
		}
		values.Set(fv.Name, fv.Choices[idx].Value)

	case widgets.WidgetMultiSelect, widgets.WidgetCheckboxList:
		if len(fv.Choices) == 0 {
			return nil
		}
		labels, selected := choiceLabels(fv.Choices)
		picked, err := r.driver.MultiSelect(ctx, SelectConfig{Message: fv.Label, Options: labels, Defaults: selected, Help: help})
		if err != nil {
			return err
		}
		for _, idx := range picked {
			if idx < 0 || idx >= len(fv.Choices) {
				return fmt.Errorf("%w: %d", ErrSelection, idx)
			}
			values.Add(fv.Name, fv.Choices[idx].Value)
		}

	case widgets.WidgetTextArea:
		text, err := r.driver.TextArea(ctx, TextAreaConfig{Message: fv.Label, Default: fv.Value, Help: help})
		if err != nil {
			return err
		}
		values.Set(fv.Name, text)

	default:
		cfg := InputConfig{Message: fv.Label, Default: fv.Value, Help: help}
		if fv.Required {
			cfg.Validator = requireText
		}
		text, err := r.driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		values.Set(fv.Name, text)
	}
	return nil
}

func (r *Renderer) fillList(ctx context.Context, list *fields.ModelListField, label string, values url.Values, opts render.RenderOptions) error {
	if err := r.driver.Info(ctx, r.theme.InfoPrefix+label); err != nil {
		return err
	}
	next := int64(0)
	for _, entry := range list.Entries() {
		if entry.Origin == fields.OriginNew && entry.Index >= next {
			next = entry.Index + 1
		}
		keep, err := r.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Keep %s %s?", label, describeEntry(entry)), Default: true})
		if err != nil {
			return err
		}
		if !keep {
			values.Set(entry.DeleteName(), "delete")
			continue
		}
		if err := r.fillEntry(ctx, entry.Form, values, opts); err != nil {
			return err
		}
	}

	for {
		more, err := r.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add %s?", strings.ToLower(label))})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		name := fields.EntryName(list.Name(), fields.OriginNew, next)
		next++
		entry := list.Template().Bind(forms.WithPrefix(name + fields.Separator))
		if err := entry.Process(ctx, nil, nil); err != nil {
			return fmt.Errorf("tui: new entry %s: %w", name, err)
		}
		if err := r.fillEntry(ctx, entry, values, opts); err != nil {
			return err
		}
	}
}

func (r *Renderer) fillEntry(ctx context.Context, entry *forms.Form, values url.Values, opts render.RenderOptions) error {
	sub := opts
	sub.Fields = nil
	sub.Errors = nil
	sub.Hidden = nil
	view, err := render.BuildView(entry, sub)
	if err != nil {
		return err
	}
	return r.fillFields(ctx, entry, view.Fields, values, sub)
}

func describeEntry(entry *fields.Entry) string {
	if entry.Row != nil {
		return fmt.Sprintf("%q", fmt.Sprint(entry.Row))
	}
	return entry.Name()
}

func choiceLabels(choices []render.ChoiceView) ([]string, []int) {
	labels := make([]string, len(choices))
	var selected []int
	for i, choice := range choices {
		labels[i] = choice.Label
		if labels[i] == "" {
			labels[i] = "(none)"
		}
		if choice.Selected {
			selected = append(selected, i)
		}
	}
	return labels, selected
}

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("a value is required")
	}
	return nil
}

var helpPolicy = bluemonday.StrictPolicy()

func stripTags(markup string) string {
	return html.UnescapeString(helpPolicy.Sanitize(markup))
}

// Encode serializes formdata in the configured output format.
func (r *Renderer) Encode(values url.Values) ([]byte, error) {
	return r.outputFormat.encode(values)
}
