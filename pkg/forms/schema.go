package forms

import (
	"context"
	"net/url"
	"slices"
)

// Schema is a named form type: an ordered set of field specs, optionally
// extending a base schema. Schemas are immutable once shared; Bind creates
// per-request forms.
type Schema struct {
	name  string
	base  *Schema
	names []string
	specs map[string]FieldSpec
}

// NewSchema returns an empty schema.
func NewSchema(name string) *Schema {
	return &Schema{name: name, specs: make(map[string]FieldSpec)}
}

// Extend returns a new schema named name whose fields follow those of s.
func (s *Schema) Extend(name string) *Schema {
	child := NewSchema(name)
	child.base = s
	return child
}

// Add declares a field. Redeclaring a name replaces the spec in place.
func (s *Schema) Add(name string, spec FieldSpec) *Schema {
	if _, ok := s.specs[name]; !ok {
		s.names = append(s.names, name)
	}
	s.specs[name] = spec
	return s
}

// Name returns the schema type name.
func (s *Schema) Name() string { return s.name }

// Base returns the extended schema, if any.
func (s *Schema) Base() *Schema { return s.base }

// FieldNames lists field names, base fields first. A field redeclared by a
// child keeps the position of the base declaration.
func (s *Schema) FieldNames() []string {
	if s.base == nil {
		return slices.Clone(s.names)
	}
	names := s.base.FieldNames()
	for _, name := range s.names {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// Spec returns the spec declared for name, searching base schemas.
func (s *Schema) Spec(name string) (FieldSpec, bool) {
	if spec, ok := s.specs[name]; ok {
		return spec, true
	}
	if s.base != nil {
		return s.base.Spec(name)
	}
	return FieldSpec{}, false
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.FieldNames()) }

// BindOption configures a form instance.
type BindOption func(*Form)

// WithPrefix prefixes every input name of the form.
func WithPrefix(prefix string) BindOption {
	return func(f *Form) {
		f.prefix = prefix
	}
}

// Bind creates an unprocessed form instance.
func (s *Schema) Bind(opts ...BindOption) *Form {
	form := &Form{schema: s, index: make(map[string]Field)}
	for _, opt := range opts {
		if opt != nil {
			opt(form)
		}
	}
	for _, name := range s.FieldNames() {
		spec, _ := s.Spec(name)
		field := spec.Bind(BindName(form.prefix, name))
		if field == nil {
			continue
		}
		form.fields = append(form.fields, field)
		form.index[name] = field
	}
	return form
}

// New binds a form and processes it with formdata and obj.
func (s *Schema) New(ctx context.Context, formdata url.Values, obj any, opts ...BindOption) (*Form, error) {
	form := s.Bind(opts...)
	if err := form.Process(ctx, formdata, obj); err != nil {
		return nil, err
	}
	return form, nil
}
