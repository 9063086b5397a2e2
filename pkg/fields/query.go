package fields

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
)

// Kinds of the reference fields.
const (
	KindQuerySelect         forms.Kind = "query_select"
	KindQueryRadio          forms.Kind = "query_radio"
	KindQuerySelectMultiple forms.Kind = "query_select_multiple"
	KindQueryCheckbox       forms.Kind = "query_checkbox"
)

// BlankValue is the submitted value of the "no selection" option.
const BlankValue = "__None"

const invalidChoice = "Not a valid choice"

// Object is one entry of a choice universe.
type Object struct {
	Key string
	Row any
}

// QuerySelect returns a single-choice spec over the rows of Args.QueryFactory.
func QuerySelect(args forms.Args) forms.FieldSpec {
	return querySpec(KindQuerySelect, args)
}

// QueryRadio is QuerySelect rendered as a radio list.
func QueryRadio(args forms.Args) forms.FieldSpec {
	return querySpec(KindQueryRadio, args)
}

func querySpec(kind forms.Kind, args forms.Args) forms.FieldSpec {
	return forms.NewSpec(kind, args, func(b forms.Binding, args forms.Args) forms.Field {
		f := &QuerySelectField{}
		f.universe.init(args)
		f.Init(f, kind, b, args)
		return f
	})
}

// universe resolves and caches the candidate rows of a reference field.
type universe struct {
	factory  forms.QueryFactory
	query    []any
	hasQuery bool
	getPK    func(row any) any
	getLabel func(row any) string

	objects  []Object
	resolved bool
	err      error
}

func (u *universe) init(args forms.Args) {
	u.factory = args.QueryFactory
	u.getPK = args.GetPK
	switch {
	case args.GetLabel != nil:
		u.getLabel = args.GetLabel
	case args.LabelAttr != "":
		attr := args.LabelAttr
		u.getLabel = func(row any) string {
			value, _ := forms.GetAttr(row, attr)
			return fmt.Sprint(value)
		}
	default:
		u.getLabel = func(row any) string { return fmt.Sprint(row) }
	}
}

func (u *universe) list(core *forms.Core) ([]Object, error) {
	if u.resolved {
		return u.objects, u.err
	}
	u.resolved = true
	u.objects, u.err = nil, nil

	rows := u.query
	if !u.hasQuery {
		if u.factory == nil {
			u.err = fmt.Errorf("fields: %s has no query", core.Name())
			return nil, u.err
		}
		var err error
		rows, err = u.factory(core.Context())
		if err != nil {
			u.err = fmt.Errorf("fields: %s query: %w", core.Name(), err)
			return nil, u.err
		}
	}
	objects := make([]Object, 0, len(rows))
	for _, row := range rows {
		key, err := u.key(row)
		if err != nil {
			u.err = fmt.Errorf("fields: %s: %w", core.Name(), err)
			return nil, u.err
		}
		objects = append(objects, Object{Key: key, Row: row})
	}
	u.objects = objects
	return u.objects, nil
}

func (u *universe) key(row any) (string, error) {
	if u.getPK != nil {
		return fmt.Sprint(u.getPK(row)), nil
	}
	return mapping.IdentityString(row)
}

func (u *universe) contains(row any) bool {
	for _, obj := range u.objects {
		if sameRow(obj.Row, row) {
			return true
		}
	}
	return false
}

// sameRow compares rows by identity for pointers and by value otherwise.
func sameRow(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// QuerySelectField selects one row out of a lazily resolved choice
// universe. The universe is computed on first access and reused until
// Invalidate, so rendering and validation see the same rows.
type QuerySelectField struct {
	forms.Core
	universe universe
	pending  *string
}

// SetQuery overrides the query factory for this form instance and drops any
// cached universe.
func (f *QuerySelectField) SetQuery(rows []any) {
	f.universe.query = slices.Clone(rows)
	f.universe.hasQuery = true
	f.Invalidate()
}

// Invalidate drops the cached choice universe.
func (f *QuerySelectField) Invalidate() {
	f.universe.resolved = false
	f.universe.objects = nil
	f.universe.err = nil
}

// ObjectList returns the choice universe, resolving it when needed.
func (f *QuerySelectField) ObjectList() ([]Object, error) {
	return f.universe.list(&f.Core)
}

// Err reports the last choice universe resolution failure.
func (f *QuerySelectField) Err() error { return f.universe.err }

// Data resolves a pending submitted key against the universe. An unknown key
// stays pending and leaves the data nil.
func (f *QuerySelectField) Data() any {
	if f.pending != nil {
		objects, _ := f.ObjectList()
		for _, obj := range objects {
			if obj.Key == *f.pending {
				f.SetData(obj.Row)
				break
			}
		}
	}
	return f.Core.Data()
}

// SetData assigns a row and discards any pending submission.
func (f *QuerySelectField) SetData(value any) {
	f.Core.SetData(value)
	f.pending = nil
}

func (f *QuerySelectField) ProcessFormData(values []string) error {
	if len(values) == 0 {
		return nil
	}
	if f.Args().AllowBlank && values[0] == BlankValue {
		f.SetData(nil)
		return nil
	}
	f.Core.SetData(nil)
	pending := values[0]
	f.pending = &pending
	return nil
}

// Choices lists the blank option, when enabled, then one option per row.
func (f *QuerySelectField) Choices() ([]forms.Choice, error) {
	data := f.Data()
	objects, err := f.ObjectList()
	if err != nil {
		return nil, err
	}
	out := make([]forms.Choice, 0, len(objects)+1)
	if f.Args().AllowBlank {
		out = append(out, forms.Choice{Value: BlankValue, Label: f.Args().BlankText, Selected: data == nil})
	}
	for _, obj := range objects {
		out = append(out, forms.Choice{
			Value:    obj.Key,
			Label:    f.universe.getLabel(obj.Row),
			Selected: sameRow(obj.Row, data),
		})
	}
	return out, nil
}

func (f *QuerySelectField) PreValidate(*forms.Form) error {
	data := f.Data()
	if _, err := f.ObjectList(); err != nil {
		return forms.NewValidationError("Could not load choices")
	}
	if data != nil {
		if f.universe.contains(data) {
			return nil
		}
		return forms.NewValidationError(invalidChoice)
	}
	if (f.pending != nil && *f.pending != "") || !f.Args().AllowBlank {
		return forms.NewValidationError(invalidChoice)
	}
	return nil
}

// Value renders the selected key.
func (f *QuerySelectField) Value() string {
	if f.pending != nil {
		return *f.pending
	}
	data := f.Data()
	if data == nil {
		return ""
	}
	key, err := f.universe.key(data)
	if err != nil {
		return ""
	}
	return key
}
