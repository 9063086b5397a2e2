package forms

import (
	"fmt"
	"math"
	"net"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validator checks one field of a bound form.
type Validator interface {
	Validate(form *Form, field Field) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(form *Form, field Field) error

func (fn ValidatorFunc) Validate(form *Form, field Field) error {
	return fn(form, field)
}

// ValidationError is a user-facing validation message. Validators return it
// to add an error and continue the chain.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError carrying msg verbatim.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// ValidationErrorf builds a ValidationError from a format string.
func ValidationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StopValidation ends the validator chain. Reset discards errors gathered so
// far; Message, when set, is recorded afterwards.
type StopValidation struct {
	Message string
	Reset   bool
}

func (e *StopValidation) Error() string {
	if e.Message == "" {
		return "validation stopped"
	}
	return e.Message
}

// OptionalValidator allows empty input and stops the chain when it is empty.
type OptionalValidator struct{}

// Optional returns the validator emitted for nullable columns.
func Optional() OptionalValidator { return OptionalValidator{} }

func (OptionalValidator) Validate(_ *Form, field Field) error {
	raw := field.RawData()
	if len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
		return &StopValidation{Reset: true}
	}
	return nil
}

// InputRequiredValidator requires submitted, non-empty input.
type InputRequiredValidator struct {
	Message string
}

// InputRequired returns the validator emitted for non-nullable columns.
func InputRequired() InputRequiredValidator { return InputRequiredValidator{} }

func (v InputRequiredValidator) Validate(_ *Form, field Field) error {
	raw := field.RawData()
	if len(raw) > 0 && raw[0] != "" {
		return nil
	}
	msg := v.Message
	if msg == "" {
		msg = "This field is required."
	}
	return &StopValidation{Message: msg, Reset: true}
}

// LengthValidator bounds the character count of string data. -1 disables a
// bound.
type LengthValidator struct {
	Min     int
	Max     int
	Message string
}

// Length returns a validator for min <= len <= max.
func Length(min, max int) LengthValidator { return LengthValidator{Min: min, Max: max} }

// MaxLength returns a validator bounding only the maximum.
func MaxLength(max int) LengthValidator { return LengthValidator{Min: -1, Max: max} }

func (v LengthValidator) Validate(_ *Form, field Field) error {
	length := 0
	switch data := field.Data().(type) {
	case string:
		length = utf8.RuneCountInString(data)
	case []byte:
		length = len(data)
	case nil:
	default:
		length = utf8.RuneCountInString(fmt.Sprint(data))
	}
	if (v.Min < 0 || length >= v.Min) && (v.Max < 0 || length <= v.Max) {
		return nil
	}
	if v.Message != "" {
		return NewValidationError(v.Message)
	}
	switch {
	case v.Min < 0:
		return ValidationErrorf("Field cannot be longer than %d characters.", v.Max)
	case v.Max < 0:
		return ValidationErrorf("Field must be at least %d characters long.", v.Min)
	case v.Min == v.Max:
		return ValidationErrorf("Field must be exactly %d characters long.", v.Max)
	default:
		return ValidationErrorf("Field must be between %d and %d characters long.", v.Min, v.Max)
	}
}

// NumberRangeValidator bounds numeric data. Nil bounds are open.
type NumberRangeValidator struct {
	Min     *float64
	Max     *float64
	Message string
}

// AtLeast returns a range validator with only a lower bound.
func AtLeast(min float64) NumberRangeValidator { return NumberRangeValidator{Min: &min} }

// AtMost returns a range validator with only an upper bound.
func AtMost(max float64) NumberRangeValidator { return NumberRangeValidator{Max: &max} }

// Between returns a closed range validator.
func Between(min, max float64) NumberRangeValidator {
	return NumberRangeValidator{Min: &min, Max: &max}
}

func (v NumberRangeValidator) Validate(_ *Form, field Field) error {
	if value, ok := decimalValue(field.Data()); ok && v.contains(value) {
		return nil
	}
	if v.Message != "" {
		return NewValidationError(v.Message)
	}
	switch {
	case v.Min != nil && v.Max != nil:
		return ValidationErrorf("Number must be between %s and %s.", formatBound(*v.Min), formatBound(*v.Max))
	case v.Min != nil:
		return ValidationErrorf("Number must be at least %s.", formatBound(*v.Min))
	default:
		return ValidationErrorf("Number must be at most %s.", formatBound(*v.Max))
	}
}

func (v NumberRangeValidator) contains(value decimal.Decimal) bool {
	if v.Min != nil {
		if c, ok := compareBound(value, *v.Min); !ok || c < 0 {
			return false
		}
	}
	if v.Max != nil {
		if c, ok := compareBound(value, *v.Max); !ok || c > 0 {
			return false
		}
	}
	return true
}

// compareBound orders value against a float bound. Infinite bounds order
// past every decimal; a NaN bound admits nothing.
func compareBound(value decimal.Decimal, bound float64) (int, bool) {
	switch {
	case math.IsNaN(bound):
		return 0, false
	case math.IsInf(bound, 1):
		return -1, true
	case math.IsInf(bound, -1):
		return 1, true
	}
	return value.Cmp(decimal.NewFromFloat(bound)), true
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// decimalValue reads model and form values as a decimal. NaN and the
// infinities have no decimal form and are rejected.
func decimalValue(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Decimal{}, false
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return decimal.Decimal{}, false
		}
		return decimalValue(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromUint64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		if rv.Kind() == reflect.Float32 {
			return decimal.NewFromFloat32(float32(f)), true
		}
		return decimal.NewFromFloat(f), true
	}
	return decimal.Decimal{}, false
}

// IPAddressValidator accepts textual IP addresses of the enabled families.
type IPAddressValidator struct {
	IPv4    bool
	IPv6    bool
	Message string
}

// IPAddress accepts IPv4 addresses.
func IPAddress() IPAddressValidator { return IPAddressValidator{IPv4: true} }

func (v IPAddressValidator) Validate(_ *Form, field Field) error {
	text, _ := field.Data().(string)
	if ip := net.ParseIP(text); ip != nil {
		isV4 := ip.To4() != nil && !strings.Contains(text, ":")
		if (isV4 && v.IPv4) || (!isV4 && v.IPv6) {
			return nil
		}
	}
	if v.Message != "" {
		return NewValidationError(v.Message)
	}
	return NewValidationError("Invalid IP address.")
}

var macPattern = regexp.MustCompile(`^(?:[0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`)

// MacAddressValidator accepts colon separated 48-bit hardware addresses.
type MacAddressValidator struct {
	Message string
}

// MacAddress returns a hardware address validator.
func MacAddress() MacAddressValidator { return MacAddressValidator{} }

func (v MacAddressValidator) Validate(_ *Form, field Field) error {
	text, _ := field.Data().(string)
	if macPattern.MatchString(text) {
		if _, err := net.ParseMAC(text); err == nil {
			return nil
		}
	}
	if v.Message != "" {
		return NewValidationError(v.Message)
	}
	return NewValidationError("Invalid Mac address.")
}

// UUIDValidator accepts RFC 4122 textual UUIDs.
type UUIDValidator struct {
	Message string
}

// UUID returns a UUID validator.
func UUID() UUIDValidator { return UUIDValidator{} }

func (v UUIDValidator) Validate(_ *Form, field Field) error {
	text, _ := field.Data().(string)
	if _, err := uuid.Parse(text); err == nil && text != "" {
		return nil
	}
	if v.Message != "" {
		return NewValidationError(v.Message)
	}
	return NewValidationError("Invalid UUID.")
}
