package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoAttribute is returned when an object has no attribute for a name.
var ErrNoAttribute = errors.New("forms: no such attribute")

// AttrGetter is implemented by objects with dynamic attributes.
type AttrGetter interface {
	GetAttr(name string) (any, bool)
}

// AttrSetter is implemented by objects with dynamic attributes.
type AttrSetter interface {
	SetAttr(name string, value any) error
}

// GetAttr reads attribute name from obj. Supported objects are AttrGetter
// implementations, map[string]any and structs (or pointers to them), whose
// fields match by `form` tag, `db` tag or name ignoring case and underscores.
func GetAttr(obj any, name string) (any, bool) {
	switch v := obj.(type) {
	case nil:
		return nil, false
	case AttrGetter:
		return v.GetAttr(name)
	case map[string]any:
		value, ok := v[name]
		return value, ok
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	idx, ok := fieldIndex(rv.Type(), name)
	if !ok {
		return nil, false
	}
	return rv.FieldByIndex(idx).Interface(), true
}

// SetAttr writes value onto attribute name of obj. Struct targets must be
// passed by pointer. Values are converted to the field type where Go allows
// it; nil clears the field.
func SetAttr(obj any, name string, value any) error {
	switch v := obj.(type) {
	case nil:
		return fmt.Errorf("%w: %q on nil object", ErrNoAttribute, name)
	case AttrSetter:
		return v.SetAttr(name, value)
	case map[string]any:
		v[name] = value
		return nil
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("forms: set %q: %T is not a non-nil pointer", name, obj)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("forms: set %q: %T does not point to a struct", name, obj)
	}
	idx, ok := fieldIndex(rv.Type(), name)
	if !ok {
		return fmt.Errorf("%w: %q on %T", ErrNoAttribute, name, obj)
	}
	target := rv.FieldByIndex(idx)
	if err := assign(target, value); err != nil {
		return fmt.Errorf("forms: set %q on %T: %w", name, obj, err)
	}
	return nil
}

func fieldIndex(typ reflect.Type, name string) ([]int, bool) {
	want := normalizeName(name)
	var loose []int
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tagName(sf, "form") == name || tagName(sf, "db") == name {
			return sf.Index, true
		}
		if loose == nil && normalizeName(sf.Name) == want {
			loose = sf.Index
		}
	}
	return loose, loose != nil
}

func tagName(sf reflect.StructField, key string) string {
	name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
	return name
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

func assign(target reflect.Value, value any) error {
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	src := reflect.ValueOf(value)
	converted, err := convertValue(src, target.Type())
	if err != nil {
		return err
	}
	target.Set(converted)
	return nil
}

func convertValue(src reflect.Value, typ reflect.Type) (reflect.Value, error) {
	switch {
	case src.Type().AssignableTo(typ):
		return src, nil
	case typ.Kind() == reflect.Pointer:
		if src.Kind() == reflect.Pointer && src.IsNil() {
			return reflect.Zero(typ), nil
		}
		elem, err := convertValue(src, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	case src.Kind() == reflect.Pointer:
		if src.IsNil() {
			return reflect.Zero(typ), nil
		}
		return convertValue(src.Elem(), typ)
	case src.Kind() == reflect.Interface:
		return convertValue(src.Elem(), typ)
	case typ.Kind() == reflect.Slice && src.Kind() == reflect.Slice:
		out := reflect.MakeSlice(typ, 0, src.Len())
		for i := 0; i < src.Len(); i++ {
			item := src.Index(i)
			if item.Kind() == reflect.Interface {
				item = item.Elem()
			}
			if !item.IsValid() {
				out = reflect.Append(out, reflect.Zero(typ.Elem()))
				continue
			}
			elem, err := convertValue(item, typ.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, elem)
		}
		return out, nil
	case src.Type() == decimalType || typ == decimalType:
		return convertDecimal(src, typ)
	case convertible(src.Type(), typ):
		return src.Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", src.Type(), typ)
}

var decimalType = reflect.TypeOf((*decimal.Decimal)(nil)).Elem()

// convertDecimal moves decimals into float and string attributes and reads
// numbers and numeric text into decimal attributes.
func convertDecimal(src reflect.Value, typ reflect.Type) (reflect.Value, error) {
	if src.Type() == decimalType {
		d := src.Interface().(decimal.Decimal)
		switch typ.Kind() {
		case reflect.Float32, reflect.Float64:
			return reflect.ValueOf(d.InexactFloat64()).Convert(typ), nil
		case reflect.String:
			return reflect.ValueOf(d.String()).Convert(typ), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use %s as %s", src.Type(), typ)
	}
	d, ok := decimalValue(src.Interface())
	if !ok {
		return reflect.Value{}, fmt.Errorf("cannot use %s as %s", src.Type(), typ)
	}
	return reflect.ValueOf(d), nil
}

// convertible excludes the numeric-to-string conversion Go permits.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	return true
}
