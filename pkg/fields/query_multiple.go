package fields

import (
	"reflect"
	"slices"

	"github.com/goliatone/go-ormform/pkg/forms"
)

// QuerySelectMultiple returns a multi-choice spec. Its data is a []any of
// rows, empty when nothing is selected. AllowBlank has no effect.
func QuerySelectMultiple(args forms.Args) forms.FieldSpec {
	return queryMultipleSpec(KindQuerySelectMultiple, args)
}

// QueryCheckbox is QuerySelectMultiple rendered as a checkbox list.
func QueryCheckbox(args forms.Args) forms.FieldSpec {
	return queryMultipleSpec(KindQueryCheckbox, args)
}

func queryMultipleSpec(kind forms.Kind, args forms.Args) forms.FieldSpec {
	return forms.NewSpec(kind, args, func(b forms.Binding, args forms.Args) forms.Field {
		f := &QuerySelectMultipleField{}
		f.universe.init(args)
		f.Init(f, kind, b, args)
		f.Core.SetData([]any{})
		return f
	})
}

// QuerySelectMultipleField selects any number of rows out of a choice
// universe. Every submitted key must resolve exactly once; an unknown or
// repeated key invalidates the whole submission.
type QuerySelectMultipleField struct {
	forms.Core
	universe       universe
	pending        []string
	hasPending     bool
	invalidPending bool
}

// SetQuery overrides the query factory for this form instance.
func (f *QuerySelectMultipleField) SetQuery(rows []any) {
	f.universe.query = slices.Clone(rows)
	f.universe.hasQuery = true
	f.Invalidate()
}

// Invalidate drops the cached choice universe.
func (f *QuerySelectMultipleField) Invalidate() {
	f.universe.resolved = false
	f.universe.objects = nil
	f.universe.err = nil
}

// ObjectList returns the choice universe, resolving it when needed.
func (f *QuerySelectMultipleField) ObjectList() ([]Object, error) {
	return f.universe.list(&f.Core)
}

// Err reports the last choice universe resolution failure.
func (f *QuerySelectMultipleField) Err() error { return f.universe.err }

// Data resolves pending keys in universe order. Each universe row consumes
// one occurrence of its key, so a repeated key is left over and invalidates
// the submission.
func (f *QuerySelectMultipleField) Data() any {
	if f.hasPending {
		remaining := make(map[string]int, len(f.pending))
		for _, key := range f.pending {
			remaining[key]++
		}
		left := len(f.pending)
		objects, _ := f.ObjectList()
		rows := []any{}
		for _, obj := range objects {
			if left == 0 {
				break
			}
			if remaining[obj.Key] > 0 {
				remaining[obj.Key]--
				left--
				rows = append(rows, obj.Row)
			}
		}
		if left > 0 {
			f.invalidPending = true
		}
		f.SetData(rows)
	}
	return f.Core.Data()
}

// Rows returns the selected rows.
func (f *QuerySelectMultipleField) Rows() []any {
	rows, _ := f.Data().([]any)
	return rows
}

// SetData assigns the selected rows and discards any pending submission.
// Typed slices are accepted and stored as []any.
func (f *QuerySelectMultipleField) SetData(value any) {
	f.Core.SetData(toRows(value))
	f.pending = nil
	f.hasPending = false
}

func toRows(value any) []any {
	switch v := value.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}
	rows := make([]any, rv.Len())
	for i := range rows {
		rows[i] = rv.Index(i).Interface()
	}
	return rows
}

func (f *QuerySelectMultipleField) ProcessFormData(values []string) error {
	f.pending = slices.Clone(values)
	f.hasPending = true
	f.invalidPending = false
	return nil
}

// Choices lists one option per row of the universe.
func (f *QuerySelectMultipleField) Choices() ([]forms.Choice, error) {
	selected := f.Rows()
	objects, err := f.ObjectList()
	if err != nil {
		return nil, err
	}
	out := make([]forms.Choice, 0, len(objects))
	for _, obj := range objects {
		out = append(out, forms.Choice{
			Value:    obj.Key,
			Label:    f.universe.getLabel(obj.Row),
			Selected: slices.ContainsFunc(selected, func(row any) bool { return sameRow(row, obj.Row) }),
		})
	}
	return out, nil
}

func (f *QuerySelectMultipleField) PreValidate(*forms.Form) error {
	rows := f.Rows()
	if _, err := f.ObjectList(); err != nil {
		return forms.NewValidationError("Could not load choices")
	}
	if f.invalidPending {
		return forms.NewValidationError(invalidChoice)
	}
	for _, row := range rows {
		if !f.universe.contains(row) {
			return forms.NewValidationError(invalidChoice)
		}
	}
	return nil
}

// Keys returns the keys of the selected rows.
func (f *QuerySelectMultipleField) Keys() []string {
	rows := f.Rows()
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		if key, err := f.universe.key(row); err == nil {
			keys = append(keys, key)
		}
	}
	return keys
}

// Value is unused by multi-valued widgets; it renders the first key.
func (f *QuerySelectMultipleField) Value() string {
	rows := f.Rows()
	if len(rows) == 0 {
		return ""
	}
	key, err := f.universe.key(rows[0])
	if err != nil {
		return ""
	}
	return key
}
