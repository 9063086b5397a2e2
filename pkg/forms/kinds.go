package forms

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// StringField holds a single line of text.
type StringField struct {
	Core
}

// String returns a text input spec.
func String(args Args) FieldSpec { return textSpec(KindString, args) }

// TextArea returns a multi-line text spec.
func TextArea(args Args) FieldSpec { return textSpec(KindTextArea, args) }

// Hidden returns a hidden input spec.
func Hidden(args Args) FieldSpec { return textSpec(KindHidden, args) }

func textSpec(kind Kind, args Args) FieldSpec {
	return NewSpec(kind, args, func(b Binding, args Args) Field {
		f := &StringField{}
		f.Init(f, kind, b, args)
		return f
	})
}

func (f *StringField) ProcessFormData(values []string) error {
	if len(values) > 0 {
		f.SetData(values[0])
	} else if f.Data() == nil {
		f.SetData("")
	}
	return nil
}

// BooleanField holds a checkbox state.
type BooleanField struct {
	Core
}

// Boolean returns a checkbox spec.
func Boolean(args Args) FieldSpec {
	return NewSpec(KindBoolean, args, func(b Binding, args Args) Field {
		f := &BooleanField{}
		f.Init(f, KindBoolean, b, args)
		return f
	})
}

func (f *BooleanField) ProcessData(value any) error {
	f.SetData(truthy(value))
	return nil
}

func (f *BooleanField) ProcessFormData(values []string) error {
	f.SetData(len(values) > 0 && values[0] != "" && values[0] != "false")
	return nil
}

// Checked reports the boolean state.
func (f *BooleanField) Checked() bool {
	checked, _ := f.Data().(bool)
	return checked
}

func (f *BooleanField) Value() string {
	if raw := f.RawData(); len(raw) > 0 {
		return raw[0]
	}
	return "y"
}

func truthy(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() > 0
	}
	return !rv.IsZero()
}

// IntegerField holds an int64.
type IntegerField struct {
	Core
}

// Integer returns a whole-number spec.
func Integer(args Args) FieldSpec {
	return NewSpec(KindInteger, args, func(b Binding, args Args) Field {
		f := &IntegerField{}
		f.Init(f, KindInteger, b, args)
		return f
	})
}

func (f *IntegerField) ProcessData(value any) error {
	if value == nil {
		f.SetData(nil)
		return nil
	}
	n, err := toInt(value)
	if err != nil {
		f.SetData(nil)
		return NewValidationError("Not a valid integer value.")
	}
	f.SetData(n)
	return nil
}

func (f *IntegerField) ProcessFormData(values []string) error {
	if len(values) == 0 {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64)
	if err != nil {
		f.SetData(nil)
		return NewValidationError("Not a valid integer value.")
	}
	f.SetData(n)
	return nil
}

func toInt(value any) (int64, error) {
	if s, ok := value.(string); ok {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	rv := reflect.Indirect(reflect.ValueOf(value))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	}
	return 0, fmt.Errorf("forms: %T is not an integer", value)
}

// DecimalField holds a decimal.Decimal so long-scale values survive a round
// trip. Places only affects rendering.
type DecimalField struct {
	Core
}

// Decimal returns a decimal number spec.
func Decimal(args Args) FieldSpec {
	return NewSpec(KindDecimal, args, func(b Binding, args Args) Field {
		f := &DecimalField{}
		f.Init(f, KindDecimal, b, args)
		return f
	})
}

func (f *DecimalField) ProcessData(value any) error {
	if value == nil {
		f.SetData(nil)
		return nil
	}
	d, ok := decimalValue(value)
	if !ok {
		f.SetData(nil)
		return NewValidationError("Not a valid decimal value.")
	}
	f.SetData(d)
	return nil
}

func (f *DecimalField) ProcessFormData(values []string) error {
	if len(values) == 0 {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(values[0]))
	if err != nil {
		f.SetData(nil)
		return NewValidationError("Not a valid decimal value.")
	}
	f.SetData(d)
	return nil
}

func (f *DecimalField) Value() string {
	if raw := f.RawData(); len(raw) > 0 {
		return raw[0]
	}
	d, ok := f.Data().(decimal.Decimal)
	if !ok {
		return ""
	}
	if p := f.Args().Places; p != nil {
		return d.StringFixed(int32(*p))
	}
	return d.String()
}

// Decimal returns the field data, or false when it holds no value.
func (f *DecimalField) Decimal() (decimal.Decimal, bool) {
	d, ok := f.Data().(decimal.Decimal)
	return d, ok
}

// DateField holds a time.Time parsed with a date or datetime layout.
type DateField struct {
	Core
	layout  string
	message string
}

// Date returns a calendar date spec.
func Date(args Args) FieldSpec {
	return dateSpec(KindDate, DateLayout, "Not a valid date value.", args)
}

// DateTime returns a timestamp spec.
func DateTime(args Args) FieldSpec {
	return dateSpec(KindDateTime, DateTimeLayout, "Not a valid datetime value.", args)
}

func dateSpec(kind Kind, layout, message string, args Args) FieldSpec {
	return NewSpec(kind, args, func(b Binding, args Args) Field {
		f := &DateField{layout: layout, message: message}
		if args.Format != "" {
			f.layout = args.Format
		}
		f.Init(f, kind, b, args)
		return f
	})
}

// Layout returns the time layout used for parsing and rendering.
func (f *DateField) Layout() string { return f.layout }

func (f *DateField) ProcessData(value any) error {
	switch v := value.(type) {
	case nil:
		f.SetData(nil)
	case time.Time:
		f.SetData(v)
	case *time.Time:
		if v == nil {
			f.SetData(nil)
		} else {
			f.SetData(*v)
		}
	case string:
		parsed, err := time.Parse(f.layout, v)
		if err != nil {
			f.SetData(nil)
			return NewValidationError(f.message)
		}
		f.SetData(parsed)
	default:
		f.SetData(nil)
		return NewValidationError(f.message)
	}
	return nil
}

func (f *DateField) ProcessFormData(values []string) error {
	if len(values) == 0 {
		return nil
	}
	parsed, err := time.Parse(f.layout, strings.Join(values, " "))
	if err != nil {
		f.SetData(nil)
		return NewValidationError(f.message)
	}
	f.SetData(parsed)
	return nil
}

func (f *DateField) Value() string {
	if raw := f.RawData(); len(raw) > 0 {
		return strings.Join(raw, " ")
	}
	if t, ok := f.Data().(time.Time); ok {
		return t.Format(f.layout)
	}
	return ""
}

// SelectField holds one string value out of a fixed choice list.
type SelectField struct {
	Core
}

// Select returns a fixed-choice spec.
func Select(args Args) FieldSpec {
	return NewSpec(KindSelect, args, func(b Binding, args Args) Field {
		f := &SelectField{}
		f.Init(f, KindSelect, b, args)
		return f
	})
}

func (f *SelectField) ProcessData(value any) error {
	if value == nil {
		f.SetData(nil)
		return nil
	}
	f.SetData(fmt.Sprint(reflect.Indirect(reflect.ValueOf(value)).Interface()))
	return nil
}

func (f *SelectField) ProcessFormData(values []string) error {
	if len(values) > 0 {
		f.SetData(values[0])
	}
	return nil
}

func (f *SelectField) Choices() ([]Choice, error) {
	current, _ := f.Data().(string)
	out := make([]Choice, len(f.Args().Choices))
	for i, choice := range f.Args().Choices {
		out[i] = Choice{Value: choice.Value, Label: choice.Label, Selected: f.Data() != nil && choice.Value == current}
	}
	return out, nil
}

func (f *SelectField) PreValidate(*Form) error {
	current, ok := f.Data().(string)
	if ok {
		for _, choice := range f.Args().Choices {
			if choice.Value == current {
				return nil
			}
		}
	}
	return NewValidationError("Not a valid choice.")
}
