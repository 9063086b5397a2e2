package render

import "github.com/goliatone/go-ormform/pkg/widgets"

// RenderOptions carry per-request data that renderers use to customise their
// output without touching the bound form.
type RenderOptions struct {
	// Action is the form's target URL. Empty posts back to the current page.
	Action string
	// Method defaults to POST.
	Method string
	// SubmitLabel is the visible label of the save button.
	SubmitLabel string
	// Hidden inputs emitted before the fields, sorted by name.
	Hidden []HiddenField
	// Errors are extra messages keyed by input name or field path, typically
	// server side failures. Keys that match no input become form errors.
	Errors map[string][]string
	// Fields restricts rendering to these top-level short names, in form
	// order. Empty renders every field.
	Fields []string
	// Widgets overrides the widget registry.
	Widgets *widgets.Registry

	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}

func (o RenderOptions) method() string {
	if o.Method == "" {
		return "POST"
	}
	return o.Method
}

func (o RenderOptions) submitLabel() string {
	if o.SubmitLabel == "" {
		return "Save"
	}
	return o.SubmitLabel
}
