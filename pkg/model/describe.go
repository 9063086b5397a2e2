package model

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
)

// ErrNilSchema is returned when Describe receives no schema.
var ErrNilSchema = errors.New("model: schema is nil")

// Decorator adjusts a described form, typically to attach widget hints.
type Decorator interface {
	Decorate(*FormModel) error
}

// DecoratorFunc lets a plain function act as a Decorator.
type DecoratorFunc func(*FormModel) error

func (fn DecoratorFunc) Decorate(form *FormModel) error { return fn(form) }

// Describe turns a schema into a FormModel. Fields follow the schema order,
// inherited fields first. Decorators run in order on the result.
func Describe(schema *forms.Schema, decorators ...Decorator) (FormModel, error) {
	if schema == nil {
		return FormModel{}, ErrNilSchema
	}
	form := FormModel{Name: schema.Name()}
	if base := schema.Base(); base != nil {
		form.Base = base.Name()
	}
	described, err := describeFields(schema, 0)
	if err != nil {
		return FormModel{}, err
	}
	form.Fields = described
	for _, decorator := range decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&form); err != nil {
			return FormModel{}, fmt.Errorf("model: decorate %s: %w", form.Name, err)
		}
	}
	return form, nil
}

const maxNesting = 8

func describeFields(schema *forms.Schema, depth int) ([]Field, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("model: %s nests deeper than %d levels", schema.Name(), maxNesting)
	}
	names := schema.FieldNames()
	out := make([]Field, 0, len(names))
	for _, name := range names {
		spec, _ := schema.Spec(name)
		field, err := describeField(name, spec, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}
	return out, nil
}

// DescribeField describes a single spec under name.
func DescribeField(name string, spec forms.FieldSpec) (Field, error) {
	return describeField(name, spec, 0)
}

func describeField(name string, spec forms.FieldSpec, depth int) (Field, error) {
	args := spec.Args
	field := Field{
		Name:        name,
		Kind:        string(spec.Kind),
		Label:       args.Label,
		Description: args.Description,
	}
	if field.Label == "" {
		field.Label = forms.DefaultLabel(name)
	}

	switch spec.Kind {
	case forms.KindBoolean:
		field.Type = FieldTypeBoolean
	case forms.KindInteger:
		field.Type = FieldTypeInteger
	case forms.KindDecimal:
		field.Type = FieldTypeNumber
	case forms.KindDate:
		field.Type = FieldTypeString
		field.Format = "date"
	case forms.KindDateTime:
		field.Type = FieldTypeString
		field.Format = "date-time"
	case fields.KindQuerySelect, fields.KindQueryRadio:
		field.Type = FieldTypeString
		field.setMeta("relation", "many-to-one")
		field.setMeta("allowBlank", strconv.FormatBool(args.AllowBlank))
	case fields.KindQuerySelectMultiple, fields.KindQueryCheckbox:
		field.Type = FieldTypeArray
		field.setMeta("relation", "to-many")
	case fields.KindModelList:
		field.Type = FieldTypeArray
		if spec.Template != nil {
			nested, err := describeFields(spec.Template, depth+1)
			if err != nil {
				return Field{}, err
			}
			field.Nested = nested
			field.setMeta("template", spec.Template.Name())
		}
	default:
		field.Type = FieldTypeString
	}
	if args.Widget != "" {
		field.setMeta("widget", args.Widget)
	}
	if args.Format != "" {
		field.setMeta("layout", args.Format)
	}

	for _, choice := range args.Choices {
		field.Options = append(field.Options, Option{Value: choice.Value, Label: choice.Label})
	}
	if def := args.Default; def != nil && reflect.TypeOf(def).Kind() != reflect.Func {
		field.Default = def
	}

	for _, validator := range args.Validators {
		rules := rulesFor(validator)
		for _, rule := range rules {
			if rule.Kind == ValidationRuleRequired {
				field.Required = true
			}
		}
		field.Validations = append(field.Validations, rules...)
	}
	return field, nil
}

func (f *Field) setMeta(key, value string) {
	if f.Metadata == nil {
		f.Metadata = map[string]string{}
	}
	f.Metadata[key] = value
}

func rulesFor(validator forms.Validator) []ValidationRule {
	switch v := validator.(type) {
	case forms.InputRequiredValidator, *forms.InputRequiredValidator:
		return []ValidationRule{{Kind: ValidationRuleRequired}}
	case forms.OptionalValidator, *forms.OptionalValidator:
		return []ValidationRule{{Kind: ValidationRuleOptional}}
	case forms.LengthValidator:
		return lengthRules(v)
	case *forms.LengthValidator:
		return lengthRules(*v)
	case forms.NumberRangeValidator:
		return rangeRules(v)
	case *forms.NumberRangeValidator:
		return rangeRules(*v)
	case forms.IPAddressValidator, *forms.IPAddressValidator:
		return []ValidationRule{{Kind: ValidationRuleIPAddress}}
	case forms.MacAddressValidator, *forms.MacAddressValidator:
		return []ValidationRule{{Kind: ValidationRuleMacAddress}}
	case forms.UUIDValidator, *forms.UUIDValidator:
		return []ValidationRule{{Kind: ValidationRuleUUID}}
	}
	return nil
}

func lengthRules(v forms.LengthValidator) []ValidationRule {
	var rules []ValidationRule
	if v.Min >= 0 {
		rules = append(rules, valueRule(ValidationRuleMinLength, strconv.Itoa(v.Min)))
	}
	if v.Max >= 0 {
		rules = append(rules, valueRule(ValidationRuleMaxLength, strconv.Itoa(v.Max)))
	}
	return rules
}

func rangeRules(v forms.NumberRangeValidator) []ValidationRule {
	var rules []ValidationRule
	if v.Min != nil {
		rules = append(rules, valueRule(ValidationRuleMin, strconv.FormatFloat(*v.Min, 'f', -1, 64)))
	}
	if v.Max != nil {
		rules = append(rules, valueRule(ValidationRuleMax, strconv.FormatFloat(*v.Max, 'f', -1, 64)))
	}
	return rules
}

func valueRule(kind, value string) ValidationRule {
	return ValidationRule{Kind: kind, Params: map[string]string{"value": value}}
}
