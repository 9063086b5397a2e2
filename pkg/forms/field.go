package forms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strings"
)

// Kind identifies the behaviour and default widget of a field.
type Kind string

const (
	KindString   Kind = "string"
	KindTextArea Kind = "textarea"
	KindBoolean  Kind = "boolean"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindSelect   Kind = "select"
	KindInteger  Kind = "integer"
	KindDecimal  Kind = "decimal"
	KindHidden   Kind = "hidden"
)

// Field is a field bound to a form instance. Bound fields hold per-request
// state and are never shared between forms.
type Field interface {
	// Name is the submitted input name, including any form prefix.
	Name() string
	// ShortName is the name the field was declared under.
	ShortName() string
	ID() string
	Label() string
	Description() string
	Kind() Kind
	Args() Args

	// Process ingests object data and submitted formdata. Conversion problems
	// are kept as field errors; a returned error aborts form processing.
	Process(ctx context.Context, formdata url.Values, data any) error
	Data() any
	SetData(value any)
	RawData() []string
	// Value is the string form used when rendering the input.
	Value() string

	Validate(form *Form, extra ...Validator) bool
	Errors() []string
	// Populate writes the field data onto obj under ShortName.
	Populate(obj any) error
}

// Binding carries the naming of a field inside a form instance.
type Binding struct {
	Name      string
	ShortName string
	ID        string
}

// BindName derives the binding for shortName under prefix.
func BindName(prefix, shortName string) Binding {
	return Binding{Name: prefix + shortName, ShortName: shortName, ID: prefix + shortName}
}

// Filter transforms field data after processing.
type Filter func(value any) (any, error)

// Choice is one option of a choice field as rendered.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// Chooser is implemented by fields that render a list of options.
type Chooser interface {
	Choices() ([]Choice, error)
}

// FormDataProcessor converts submitted raw values into field data. It is
// called whenever formdata is present, with an empty slice when the field
// itself was not submitted.
type FormDataProcessor interface {
	ProcessFormData(values []string) error
}

// DataProcessor converts object data into field data. Fields that do not
// implement it store the value as-is through SetData.
type DataProcessor interface {
	ProcessData(value any) error
}

// PreValidator runs before the validator chain.
type PreValidator interface {
	PreValidate(form *Form) error
}

// ErrorCollector is implemented by fields whose errors are nested; the form
// asks them to report per-input messages instead of calling Errors.
type ErrorCollector interface {
	CollectErrors(into map[string][]string)
}

// Constructor binds a spec to a form instance.
type Constructor func(b Binding, args Args) Field

// FieldSpec is an unbound field: a kind, its keyword bundle and a constructor.
// Specs are immutable templates; Bind produces the per-form field.
type FieldSpec struct {
	Kind Kind
	Args Args
	// Template is the sub-form schema of list fields.
	Template  *Schema
	construct Constructor
}

// NewSpec builds an unbound field.
func NewSpec(kind Kind, args Args, construct Constructor) FieldSpec {
	return FieldSpec{Kind: kind, Args: args, construct: construct}
}

// Bind creates the field for one form instance.
func (s FieldSpec) Bind(b Binding) Field {
	if s.construct == nil {
		return nil
	}
	return s.construct(b, s.Args.Clone())
}

// Valid reports whether the spec can be bound.
func (s FieldSpec) Valid() bool {
	return s.construct != nil
}

// Core implements the shared field pipeline: default resolution, formdata
// ingestion, filters, the validator chain and error bookkeeping. Concrete
// fields embed it, call Init, and customise behaviour by implementing the
// FormDataProcessor, DataProcessor and PreValidator hooks.
type Core struct {
	self    Field
	binding Binding
	kind    Kind
	args    Args
	label   string
	ctx     context.Context

	data          any
	objectData    any
	rawData       []string
	processErrors []string
	errors        []string
}

// Init wires the embedding field. self must be the outer field so hooks and
// overridden Data/SetData methods are reached.
func (c *Core) Init(self Field, kind Kind, b Binding, args Args) {
	c.self = self
	c.kind = kind
	c.binding = b
	c.args = args
	c.ctx = context.Background()
	c.label = args.Label
	if c.label == "" {
		c.label = DefaultLabel(b.ShortName)
	}
}

func (c *Core) Name() string        { return c.binding.Name }
func (c *Core) ShortName() string   { return c.binding.ShortName }
func (c *Core) ID() string          { return c.binding.ID }
func (c *Core) Label() string       { return c.label }
func (c *Core) Description() string { return c.args.Description }
func (c *Core) Kind() Kind          { return c.kind }
func (c *Core) Args() Args          { return c.args }
func (c *Core) RawData() []string   { return c.rawData }
func (c *Core) Data() any           { return c.data }
func (c *Core) SetData(value any)   { c.data = value }

// ObjectData is the value the field was processed with before formdata.
func (c *Core) ObjectData() any { return c.objectData }

// Context returns the context of the latest Process call.
func (c *Core) Context() context.Context { return c.ctx }

// Errors returns the messages of the latest validation.
func (c *Core) Errors() []string { return c.errors }

// ProcessErrors returns the conversion problems found while processing.
func (c *Core) ProcessErrors() []string { return c.processErrors }

// AddProcessError records a conversion problem that fails validation.
func (c *Core) AddProcessError(message string) {
	c.processErrors = append(c.processErrors, message)
}

// Value renders the first raw value when present, else the data.
func (c *Core) Value() string {
	if len(c.rawData) > 0 {
		return c.rawData[0]
	}
	data := c.self.Data()
	if data == nil {
		return ""
	}
	return fmt.Sprint(data)
}

// Process implements the field ingestion pipeline.
func (c *Core) Process(ctx context.Context, formdata url.Values, data any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.processErrors = nil
	c.errors = nil
	c.rawData = nil

	if isNil(data) {
		data = c.defaultValue()
	}
	c.objectData = data
	if p, ok := c.self.(DataProcessor); ok {
		if err := p.ProcessData(data); err != nil {
			if !c.keep(err) {
				return err
			}
		}
	} else {
		c.self.SetData(data)
	}

	if len(formdata) > 0 {
		if values, ok := formdata[c.binding.Name]; ok {
			c.rawData = values
		} else {
			c.rawData = []string{}
		}
		if p, ok := c.self.(FormDataProcessor); ok {
			if err := p.ProcessFormData(c.rawData); err != nil {
				if !c.keep(err) {
					return err
				}
			}
		} else if len(c.rawData) > 0 {
			c.self.SetData(c.rawData[0])
		}
	}

	for _, filter := range c.args.Filters {
		if filter == nil {
			continue
		}
		value, err := filter(c.self.Data())
		if err != nil {
			c.AddProcessError(err.Error())
			continue
		}
		c.self.SetData(value)
	}
	return nil
}

// keep records conversion errors as field errors and reports whether err was
// one; anything else is returned to the caller.
func (c *Core) keep(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.AddProcessError(verr.Message)
		return true
	}
	return false
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func (c *Core) defaultValue() any {
	switch value := c.args.Default.(type) {
	case nil:
		return nil
	case func() any:
		return value()
	default:
		return value
	}
}

// Validate runs the pre-validation hook, then the configured validators and
// extra, stopping at the first StopValidation.
func (c *Core) Validate(form *Form, extra ...Validator) bool {
	c.errors = slices.Clone(c.processErrors)
	stop := false
	if pv, ok := c.self.(PreValidator); ok {
		if err := pv.PreValidate(form); err != nil {
			stop = c.record(err)
		}
	}
	if !stop {
		chain := append(slices.Clone(c.args.Validators), extra...)
		for _, v := range chain {
			if v == nil {
				continue
			}
			if err := v.Validate(form, c.self); err != nil && c.record(err) {
				break
			}
		}
	}
	return len(c.errors) == 0
}

func (c *Core) record(err error) (stop bool) {
	var sv *StopValidation
	if errors.As(err, &sv) {
		if sv.Reset {
			c.errors = c.errors[:0]
		}
		if sv.Message != "" {
			c.errors = append(c.errors, sv.Message)
		}
		return true
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.errors = append(c.errors, verr.Message)
		return false
	}
	c.errors = append(c.errors, err.Error())
	return false
}

// Populate writes the field data onto obj.
func (c *Core) Populate(obj any) error {
	return SetAttr(obj, c.binding.ShortName, c.self.Data())
}

// DefaultLabel turns a field name into a title ("first_name" -> "First Name").
func DefaultLabel(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
