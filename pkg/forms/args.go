package forms

import (
	"context"
	"maps"
	"slices"
)

// QueryFactory enumerates the candidate rows of a reference field.
type QueryFactory func(ctx context.Context) ([]any, error)

// Args is the keyword bundle a field spec is constructed with. Converters
// start from a base bundle and overlay caller-supplied overrides on top.
type Args struct {
	Label       string
	Description string
	Validators  []Validator
	Filters     []Filter
	// Default is a scalar or a func() any evaluated at processing time.
	Default any
	// Render holds extra HTML attributes for the input.
	Render map[string]string
	Widget string

	// Choices lists the options of a select field.
	Choices []Choice
	// Places limits the fractional digits shown by decimal fields; nil keeps
	// full precision.
	Places *int
	// Format overrides the time layout of date and datetime fields.
	Format string

	QueryFactory QueryFactory
	AllowBlank   bool
	BlankText    string
	// GetPK extracts the comparable key of a candidate row. The default uses
	// the row's mapped identity joined with ":".
	GetPK func(row any) any
	// GetLabel renders a candidate row. LabelAttr names a row attribute used
	// instead; both unset falls back to the row's string form.
	GetLabel  func(row any) string
	LabelAttr string
}

// Clone returns a copy whose slices and maps are not shared with a.
func (a Args) Clone() Args {
	out := a
	out.Validators = slices.Clone(a.Validators)
	out.Filters = slices.Clone(a.Filters)
	out.Choices = slices.Clone(a.Choices)
	out.Render = maps.Clone(a.Render)
	if a.Places != nil {
		places := *a.Places
		out.Places = &places
	}
	return out
}

// Overlay returns a with every non-zero member of override applied. Slices
// supplied by override are copied, so appending to the result never reaches
// the caller's bundle.
func (a Args) Overlay(override Args) Args {
	out := a.Clone()
	if override.Label != "" {
		out.Label = override.Label
	}
	if override.Description != "" {
		out.Description = override.Description
	}
	if override.Validators != nil {
		out.Validators = slices.Clone(override.Validators)
	}
	if override.Filters != nil {
		out.Filters = slices.Clone(override.Filters)
	}
	if override.Default != nil {
		out.Default = override.Default
	}
	if override.Render != nil {
		out.Render = maps.Clone(override.Render)
	}
	if override.Widget != "" {
		out.Widget = override.Widget
	}
	if override.Choices != nil {
		out.Choices = slices.Clone(override.Choices)
	}
	if override.Places != nil {
		places := *override.Places
		out.Places = &places
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.QueryFactory != nil {
		out.QueryFactory = override.QueryFactory
	}
	if override.AllowBlank {
		out.AllowBlank = true
	}
	if override.BlankText != "" {
		out.BlankText = override.BlankText
	}
	if override.GetPK != nil {
		out.GetPK = override.GetPK
	}
	if override.GetLabel != nil {
		out.GetLabel = override.GetLabel
	}
	if override.LabelAttr != "" {
		out.LabelAttr = override.LabelAttr
	}
	return out
}

// SetDefaultLabel assigns label only when no label was supplied.
func (a *Args) SetDefaultLabel(label string) {
	if a.Label == "" {
		a.Label = label
	}
}

// AddValidators appends to the bundle's own validator slice.
func (a *Args) AddValidators(validators ...Validator) {
	a.Validators = append(a.Validators, validators...)
}
