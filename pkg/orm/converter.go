package orm

import (
	"context"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
)

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithRegistry replaces the rule registry with a copy of reg; later
// registrations on either side do not leak into the other.
func WithRegistry(reg *Registry) ConverterOption {
	return func(c *Converter) {
		if reg != nil {
			c.registry = reg.Clone()
		}
	}
}

// WithConversion registers an extra conversion ahead of the built-ins.
// Conversions are applied once every option has run, so they land on the
// final registry whatever the option order.
func WithConversion(name string, convert ConvertFunc, tags ...string) ConverterOption {
	return func(c *Converter) {
		c.pending = append(c.pending, func(reg *Registry) {
			reg.Register(name, 0, convert, tags...)
		})
	}
}

// WithHierarchyLookup toggles walking type ancestors; disabled, only the
// exact column type is tried.
func WithHierarchyLookup(enabled bool) ConverterOption {
	return func(c *Converter) {
		c.hierarchy = enabled
	}
}

// WithConverterLogger sets the logger used for conversion tracing.
func WithConverterLogger(logger zerolog.Logger) ConverterOption {
	return func(c *Converter) {
		c.logger = logger
	}
}

// Converter turns model properties into field specs.
type Converter struct {
	registry  *Registry
	hierarchy bool
	logger    zerolog.Logger
	pending   []func(*Registry)
}

// NewConverter returns a converter over a private copy of the built-ins.
func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{
		registry:  Builtins(),
		hierarchy: true,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	for _, register := range c.pending {
		register(c.registry)
	}
	c.pending = nil
	return c
}

// Registry exposes the rule registry for further registrations.
func (c *Converter) Registry() *Registry { return c.registry }

// Convert builds the field spec of prop. override is overlaid on the base
// bundle without being mutated. A nil spec with a nil error means the
// property is skipped.
func (c *Converter) Convert(model any, mapper mapping.Mapper, prop mapping.Property, override forms.Args, session mapping.Session) (*forms.FieldSpec, error) {
	if len(prop.Columns) == 0 && prop.Relationship == nil {
		return nil, nil
	}
	modelName := ""
	if mapper != nil {
		modelName = mapper.Name()
	}
	if prop.Relationship == nil && len(prop.Columns) != 1 {
		return nil, &ConversionError{Model: modelName, Property: prop.Key, Err: ErrMultipleColumns}
	}

	args := forms.Args{Description: prop.Doc}.Overlay(override)
	req := Request{Model: model, Mapper: mapper, Property: prop}

	var convert ConvertFunc
	if prop.Relationship == nil {
		column := prop.Columns[0]
		req.Column = &column
		if def := columnDefault(column.Default); def != nil {
			args.Default = def
		}
		if column.Nullable {
			args.AddValidators(forms.Optional())
		} else {
			args.AddValidators(forms.InputRequired())
		}

		var tried []string
		convert, tried = c.resolveColumn(prop, &column)
		if convert == nil {
			err := &ConversionError{Model: modelName, Property: prop.Key, Column: column.Name, Tried: tried, Err: ErrNoConverter}
			c.logger.Warn().Err(err).Msg("property conversion failed")
			return nil, err
		}
	} else {
		rel := prop.Relationship
		if session == nil {
			err := &ConversionError{Model: modelName, Property: prop.Key, Err: ErrSessionRequired}
			c.logger.Warn().Err(err).Msg("property conversion failed")
			return nil, err
		}
		allowBlank := true
		for _, col := range rel.LocalColumns {
			if !col.Nullable {
				allowBlank = false
			}
		}
		target := rel.Target
		args.AllowBlank = allowBlank
		args.QueryFactory = func(ctx context.Context) ([]any, error) {
			return session.All(ctx, target)
		}

		var ok bool
		convert, ok = c.registry.Lookup(string(rel.Direction))
		if !ok {
			err := &ConversionError{Model: modelName, Property: prop.Key, Tried: []string{string(rel.Direction)}, Err: ErrNoConverter}
			c.logger.Warn().Err(err).Msg("property conversion failed")
			return nil, err
		}
	}

	req.Args = args
	spec, err := convert(req)
	if err != nil {
		return nil, &ConversionError{Model: modelName, Property: prop.Key, Err: err}
	}
	if spec == nil {
		c.logger.Debug().Str("model", modelName).Str("property", prop.Key).Msg("property skipped")
		return nil, nil
	}
	c.logger.Debug().Str("model", modelName).Str("property", prop.Key).Str("kind", string(spec.Kind)).Msg("property converted")
	return spec, nil
}

func (c *Converter) resolveColumn(prop mapping.Property, column *mapping.Column) (ConvertFunc, []string) {
	if fn, ok := c.registry.Match(prop, column); ok {
		return fn, nil
	}
	return c.registry.Resolve(column.Type, c.hierarchy)
}

// columnDefault unwraps ColumnDefault values, invoking a callable Arg.
func columnDefault(def any) any {
	var arg any
	switch value := def.(type) {
	case nil:
		return nil
	case mapping.ColumnDefault:
		arg = value.Arg
	case *mapping.ColumnDefault:
		if value == nil {
			return nil
		}
		arg = value.Arg
	default:
		return def
	}
	switch fn := arg.(type) {
	case nil:
		return nil
	case func() any:
		return fn()
	}
	rv := reflect.ValueOf(arg)
	if rv.Kind() == reflect.Func && rv.Type().NumIn() == 0 && rv.Type().NumOut() == 1 {
		return rv.Call(nil)[0].Interface()
	}
	return arg
}
