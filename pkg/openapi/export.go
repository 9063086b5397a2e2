package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-ormform/pkg/model"
)

// Version is the OpenAPI version written by Document.
const Version = "3.0.3"

var (
	// ErrNoForms is returned by Document without forms to export.
	ErrNoForms = errors.New("openapi: at least one form is required")
	// ErrDuplicateForm is returned when two forms share a name.
	ErrDuplicateForm = errors.New("openapi: duplicate form name")
)

const macPattern = `^([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`

// Option customises the exporter.
type Option func(*Exporter)

// WithTitle sets the document title.
func WithTitle(title string) Option {
	return func(e *Exporter) {
		if title != "" {
			e.title = title
		}
	}
}

// WithDocumentVersion sets the info version of the document.
func WithDocumentVersion(version string) Option {
	return func(e *Exporter) {
		if version != "" {
			e.version = version
		}
	}
}

// Exporter converts form models into schemas.
type Exporter struct {
	title   string
	version string
}

// NewExporter constructs an Exporter.
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{title: "Forms", version: "1.0.0"}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Schema returns the object schema of form.
func (e *Exporter) Schema(form model.FormModel) (*openapi3.Schema, error) {
	schema, err := objectSchema(form.Fields)
	if err != nil {
		return nil, fmt.Errorf("openapi: %s: %w", form.Name, err)
	}
	schema.Title = form.Name
	return schema, nil
}

// Document assembles a validated document holding one component schema per
// form.
func (e *Exporter) Document(ctx context.Context, forms ...model.FormModel) (*openapi3.T, error) {
	if len(forms) == 0 {
		return nil, ErrNoForms
	}
	schemas := openapi3.Schemas{}
	for _, form := range forms {
		if _, exists := schemas[form.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateForm, form.Name)
		}
		schema, err := e.Schema(form)
		if err != nil {
			return nil, err
		}
		schemas[form.Name] = openapi3.NewSchemaRef("", schema)
	}
	doc := &openapi3.T{
		OpenAPI:    Version,
		Info:       &openapi3.Info{Title: e.title, Version: e.version},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: schemas},
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}
	return doc, nil
}

func objectSchema(fields []model.Field) (*openapi3.Schema, error) {
	schema := openapi3.NewObjectSchema()
	for _, field := range fields {
		property, err := fieldSchema(field)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		schema.WithProperty(field.Name, property)
		if field.Required {
			schema.Required = append(schema.Required, field.Name)
		}
	}
	return schema, nil
}

func fieldSchema(field model.Field) (*openapi3.Schema, error) {
	var schema *openapi3.Schema
	switch field.Type {
	case model.FieldTypeBoolean:
		schema = openapi3.NewBoolSchema()
	case model.FieldTypeInteger:
		schema = openapi3.NewIntegerSchema()
	case model.FieldTypeNumber:
		schema = openapi3.NewFloat64Schema()
	case model.FieldTypeArray:
		items := openapi3.NewStringSchema()
		if len(field.Nested) > 0 {
			nested, err := objectSchema(field.Nested)
			if err != nil {
				return nil, err
			}
			items = nested
		}
		schema = openapi3.NewArraySchema().WithItems(items)
	case model.FieldTypeString, "":
		schema = openapi3.NewStringSchema()
		if field.Format != "" {
			schema.WithFormat(field.Format)
		}
	default:
		return nil, fmt.Errorf("unsupported type %q", field.Type)
	}
	schema.Title = field.Label
	schema.Description = field.Description
	if field.Default != nil {
		schema.WithDefault(field.Default)
	}
	if len(field.Options) > 0 {
		values := make([]any, len(field.Options))
		for i, option := range field.Options {
			values[i] = option.Value
		}
		schema.WithEnum(values...)
	}

	for _, rule := range field.Validations {
		if err := applyRule(schema, rule); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

func applyRule(schema *openapi3.Schema, rule model.ValidationRule) error {
	switch rule.Kind {
	case model.ValidationRuleOptional:
		schema.WithNullable()
	case model.ValidationRuleMinLength, model.ValidationRuleMaxLength:
		n, err := strconv.ParseInt(rule.Params["value"], 10, 64)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rule.Kind, err)
		}
		if rule.Kind == model.ValidationRuleMinLength {
			schema.WithMinLength(n)
		} else {
			schema.WithMaxLength(n)
		}
	case model.ValidationRuleMin, model.ValidationRuleMax:
		v, err := strconv.ParseFloat(rule.Params["value"], 64)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rule.Kind, err)
		}
		if rule.Kind == model.ValidationRuleMin {
			schema.WithMin(v)
		} else {
			schema.WithMax(v)
		}
	case model.ValidationRuleUUID:
		schema.WithFormat("uuid")
	case model.ValidationRuleIPAddress:
		schema.WithFormat("ipv4")
	case model.ValidationRuleMacAddress:
		schema.WithPattern(macPattern)
	}
	return nil
}

// ValidateData checks form data, as returned by FormData, against
// schema. Values are normalised through their JSON encoding first.
func ValidateData(schema *openapi3.Schema, data map[string]any) error {
	if schema == nil {
		return errors.New("openapi: schema is nil")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("openapi: encode data: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("openapi: decode data: %w", err)
	}
	if err := schema.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}
