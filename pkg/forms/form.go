package forms

import (
	"context"
	"fmt"
	"net/url"
)

// Form is a schema bound for one request.
type Form struct {
	schema *Schema
	prefix string
	fields []Field
	index  map[string]Field
}

// Schema returns the schema the form was bound from.
func (f *Form) Schema() *Schema { return f.schema }

// Prefix returns the input-name prefix.
func (f *Form) Prefix() string { return f.prefix }

// Fields returns the bound fields in declaration order.
func (f *Form) Fields() []Field { return f.fields }

// Field returns the field declared under name.
func (f *Form) Field(name string) (Field, bool) {
	field, ok := f.index[name]
	return field, ok
}

// Process feeds every field its attribute of obj and the submitted formdata.
// An empty formdata means nothing was submitted.
func (f *Form) Process(ctx context.Context, formdata url.Values, obj any) error {
	for _, field := range f.fields {
		var data any
		if obj != nil {
			data, _ = GetAttr(obj, field.ShortName())
		}
		if err := field.Process(ctx, formdata, data); err != nil {
			return fmt.Errorf("forms: process %s: %w", field.Name(), err)
		}
	}
	return nil
}

// Validate validates every field and reports whether all passed.
func (f *Form) Validate() bool {
	valid := true
	for _, field := range f.fields {
		if !field.Validate(f) {
			valid = false
		}
	}
	return valid
}

// Errors maps input names to their messages, omitting valid fields.
func (f *Form) Errors() map[string][]string {
	out := make(map[string][]string)
	f.CollectErrors(out)
	return out
}

// CollectErrors adds the form's errors to into.
func (f *Form) CollectErrors(into map[string][]string) {
	for _, field := range f.fields {
		if collector, ok := field.(ErrorCollector); ok {
			collector.CollectErrors(into)
			continue
		}
		if errs := field.Errors(); len(errs) > 0 {
			into[field.Name()] = append(into[field.Name()], errs...)
		}
	}
}

// Populate writes every field onto obj.
func (f *Form) Populate(obj any) error {
	for _, field := range f.fields {
		if err := field.Populate(obj); err != nil {
			return err
		}
	}
	return nil
}

// Data returns the field data keyed by declared name.
func (f *Form) Data() map[string]any {
	out := make(map[string]any, len(f.fields))
	for _, field := range f.fields {
		out[field.ShortName()] = field.Data()
	}
	return out
}
