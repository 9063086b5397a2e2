package orm

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
)

// Option configures ModelFields and ModelForm.
type Option func(*config)

type config struct {
	session   mapping.Session
	only      []string
	exclude   []string
	fieldArgs map[string]forms.Args
	converter *Converter
	excludePK bool
	excludeFK bool
	base      *forms.Schema
	typeName  string
	logger    zerolog.Logger
}

// WithSession supplies the session relationship fields enumerate rows from.
func WithSession(session mapping.Session) Option {
	return func(c *config) { c.session = session }
}

// Only restricts the fields to names. It takes precedence over Exclude.
func Only(names ...string) Option {
	return func(c *config) { c.only = append(c.only, names...) }
}

// Exclude drops the named properties.
func Exclude(names ...string) Option {
	return func(c *config) { c.exclude = append(c.exclude, names...) }
}

// WithFieldArgs supplies per-property argument overrides. The map and its
// validator slices are never modified.
func WithFieldArgs(args map[string]forms.Args) Option {
	return func(c *config) { c.fieldArgs = args }
}

// WithConverter replaces the default converter.
func WithConverter(converter *Converter) Option {
	return func(c *config) { c.converter = converter }
}

// ExcludePK drops primary-key columns.
func ExcludePK(exclude bool) Option {
	return func(c *config) { c.excludePK = exclude }
}

// ExcludeFK drops foreign-key columns.
func ExcludeFK(exclude bool) Option {
	return func(c *config) { c.excludeFK = exclude }
}

// WithBase makes the generated schema extend base.
func WithBase(base *forms.Schema) Option {
	return func(c *config) { c.base = base }
}

// WithTypeName names the generated schema (default "<Model>Form").
func WithTypeName(name string) Option {
	return func(c *config) { c.typeName = name }
}

// WithLogger sets the logger of the default converter.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func newConfig(defaults config, opts []Option) config {
	cfg := defaults
	cfg.logger = zerolog.Nop()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.converter == nil {
		cfg.converter = NewConverter(WithConverterLogger(cfg.logger))
	}
	return cfg
}

type namedSpec struct {
	name string
	spec forms.FieldSpec
}

// ModelFields converts the properties of model into field specs keyed by
// property name. Primary and foreign keys are included unless excluded.
func ModelFields(model any, opts ...Option) (map[string]forms.FieldSpec, error) {
	mapper, err := mapping.Resolve(model)
	if err != nil {
		return nil, &TypeError{Arg: "model", Value: model, Err: err}
	}
	ordered, err := buildFields(model, mapper, newConfig(config{}, opts))
	if err != nil {
		return nil, err
	}
	out := make(map[string]forms.FieldSpec, len(ordered))
	for _, entry := range ordered {
		out[entry.name] = entry.spec
	}
	return out, nil
}

// ModelForm builds a form schema for model. Primary and foreign keys are
// excluded unless re-enabled with ExcludePK(false) or ExcludeFK(false).
// Fields follow the mapper property order, after any base fields.
func ModelForm(model any, opts ...Option) (*forms.Schema, error) {
	mapper, err := mapping.Resolve(model)
	if err != nil {
		return nil, &TypeError{Arg: "model", Value: model, Err: err}
	}
	cfg := newConfig(config{excludePK: true, excludeFK: true}, opts)
	ordered, err := buildFields(model, mapper, cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.typeName
	if name == "" {
		name = mapper.Name() + "Form"
	}
	var schema *forms.Schema
	if cfg.base != nil {
		schema = cfg.base.Extend(name)
	} else {
		schema = forms.NewSchema(name)
	}
	for _, entry := range ordered {
		schema.Add(entry.name, entry.spec)
	}
	return schema, nil
}

func buildFields(model any, mapper mapping.Mapper, cfg config) ([]namedSpec, error) {
	var props []mapping.Property
	for _, prop := range mapper.Properties() {
		if len(prop.Columns) > 0 {
			column := prop.Columns[0]
			if cfg.excludeFK && len(column.ForeignKeys) > 0 {
				continue
			}
			if cfg.excludePK && column.PrimaryKey {
				continue
			}
		}
		props = append(props, prop)
	}

	switch {
	case len(cfg.only) > 0:
		props = slices.DeleteFunc(props, func(p mapping.Property) bool { return !slices.Contains(cfg.only, p.Key) })
	case len(cfg.exclude) > 0:
		props = slices.DeleteFunc(props, func(p mapping.Property) bool { return slices.Contains(cfg.exclude, p.Key) })
	}

	var out []namedSpec
	for _, prop := range props {
		spec, err := cfg.converter.Convert(model, mapper, prop, cfg.fieldArgs[prop.Key], cfg.session)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			continue
		}
		out = append(out, namedSpec{name: prop.Key, spec: *spec})
	}
	return out, nil
}
