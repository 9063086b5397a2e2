package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
	"github.com/goliatone/go-ormform/pkg/orm"
	"github.com/goliatone/go-ormform/pkg/render"
	"github.com/goliatone/go-ormform/pkg/renderers/vanilla"
)

const defaultRendererName = vanilla.Name

var (
	// ErrNoFormdata is returned by Submit for requests without formdata.
	ErrNoFormdata = errors.New("orchestrator: formdata is required")
	// ErrNotToMany is returned when a list preset names a property that is
	// not a to-many relationship.
	ErrNotToMany = errors.New("orchestrator: list requires a to-many relationship")
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.defaultRenderer = name
		}
	}
}

// WithSession supplies the session relationship fields query.
func WithSession(session mapping.Session) Option {
	return func(o *Orchestrator) {
		o.session = session
	}
}

// WithFormOptions appends form factory options applied to every model.
func WithFormOptions(opts ...orm.Option) Option {
	return func(o *Orchestrator) {
		o.formOptions = append(o.formOptions, opts...)
	}
}

// WithPreset registers overrides for the model whose mapper is called
// model.
func WithPreset(model string, preset *Preset) Option {
	return func(o *Orchestrator) {
		if preset == nil {
			return
		}
		if o.presets == nil {
			o.presets = make(map[string]*Preset)
		}
		o.presets[model] = preset
	}
}

// WithLogger sets the logger used for pipeline tracing and conversion.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// Orchestrator derives a form for a mapped model, binds it to formdata and
// an object, and renders it. It applies sensible defaults (vanilla renderer,
// embedded templates) while remaining open to dependency injection.
type Orchestrator struct {
	registry        *render.Registry
	defaultRenderer string
	session         mapping.Session
	formOptions     []orm.Option
	presets         map[string]*Preset
	logger          zerolog.Logger
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one form interaction.
type Request struct {
	// Model is a mapper, a catalog model or a registered struct value.
	Model any

	// Object supplies initial field data and receives populated values on a
	// valid Submit. Optional.
	Object any

	// Formdata is the submitted input. Nil means the form is displayed for
	// the first time.
	Formdata url.Values

	// Renderer names the renderer to use. If empty, the orchestrator falls
	// back to the configured default renderer.
	Renderer string

	RenderOptions render.RenderOptions
}

// Submission is the outcome of Submit.
type Submission struct {
	Form *forms.Form
	// Valid reports that every field validated and Object was populated.
	Valid bool
}

// Registry returns the renderer registry.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

// Schema derives the form schema of model with the configured session,
// options and preset.
func (o *Orchestrator) Schema(model any) (*forms.Schema, error) {
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	mapper, err := mapping.Resolve(model)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	opts := []orm.Option{orm.WithLogger(o.logger)}
	if o.session != nil {
		opts = append(opts, orm.WithSession(o.session))
	}
	opts = append(opts, o.formOptions...)
	preset := o.presets[mapper.Name()]
	opts = append(opts, preset.Options()...)

	schema, err := orm.ModelForm(mapper, opts...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build %s form: %w", mapper.Name(), err)
	}
	if preset != nil {
		names := make([]string, 0, len(preset.Lists))
		for name := range preset.Lists {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			spec, err := o.listSpec(mapper, name, preset.Lists[name])
			if err != nil {
				return nil, err
			}
			schema.Add(name, spec)
		}
	}
	o.logger.Debug().Str("model", mapper.Name()).Strs("fields", schema.FieldNames()).Msg("form derived")
	return schema, nil
}

func (o *Orchestrator) listSpec(mapper mapping.Mapper, name string, list ListPreset) (forms.FieldSpec, error) {
	var rel *mapping.Relationship
	for _, prop := range mapper.Properties() {
		if prop.Key == name {
			rel = prop.Relationship
			break
		}
	}
	if rel == nil || rel.Direction == mapping.ManyToOne {
		return forms.FieldSpec{}, fmt.Errorf("%w: %s.%s", ErrNotToMany, mapper.Name(), name)
	}

	opts := []orm.Option{orm.WithLogger(o.logger), orm.WithTypeName(rel.Target.Name() + "Entry")}
	if o.session != nil {
		opts = append(opts, orm.WithSession(o.session))
	}
	if len(list.Only) > 0 {
		opts = append(opts, orm.Only(list.Only...))
	}
	template, err := orm.ModelForm(rel.Target, opts...)
	if err != nil {
		return forms.FieldSpec{}, fmt.Errorf("orchestrator: build %s entry form: %w", name, err)
	}
	return fields.NewModelList(template, rel.Target, list.options()...)
}

// Form derives and processes the form of req.
func (o *Orchestrator) Form(ctx context.Context, req Request) (*forms.Form, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, err := o.Schema(req.Model)
	if err != nil {
		return nil, err
	}
	form, err := schema.New(ctx, req.Formdata, req.Object)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: process %s: %w", schema.Name(), err)
	}
	return form, nil
}

// Generate processes the form of req and returns the rendered bytes (HTML
// for the default vanilla renderer).
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	form, err := o.Form(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.Render(ctx, form, req.Renderer, req.RenderOptions)
}

// Render renders an already processed form.
func (o *Orchestrator) Render(ctx context.Context, form *forms.Form, rendererName string, opts render.RenderOptions) ([]byte, error) {
	renderer, err := o.rendererFor(rendererName)
	if err != nil {
		return nil, err
	}
	output, err := renderer.Render(ctx, form, opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render with %q: %w", renderer.Name(), err)
	}
	return output, nil
}

// Submit processes formdata against req.Object and validates the result.
// A valid form is populated onto req.Object when one is given. Invalid
// forms are not an error; callers re-render Submission.Form.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Submission, error) {
	if req.Formdata == nil {
		return Submission{}, ErrNoFormdata
	}
	form, err := o.Form(ctx, req)
	if err != nil {
		return Submission{}, err
	}
	if !form.Validate() {
		o.logger.Debug().Str("form", form.Schema().Name()).Interface("errors", form.Errors()).Msg("submission rejected")
		return Submission{Form: form}, nil
	}
	if req.Object != nil {
		if err := form.Populate(req.Object); err != nil {
			return Submission{Form: form}, fmt.Errorf("orchestrator: populate: %w", err)
		}
	}
	return Submission{Form: form, Valid: true}, nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	if name == "" {
		name = o.defaultRenderer
	}
	renderer, err := o.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.registry != nil {
		return
	}
	renderer, err := vanilla.New()
	if err != nil {
		o.initialiseErr = fmt.Errorf("orchestrator: init vanilla renderer: %w", err)
		return
	}
	o.registry, o.initialiseErr = render.NewRegistry(renderer)
}
