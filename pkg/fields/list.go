package fields

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strconv"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
)

// KindModelList is the kind of the dynamic sub-form list.
const KindModelList forms.Kind = "model_list"

var (
	// ErrTooManyEntries is returned by Process when an entry would exceed
	// MaxEntries. It is a programming error, not a validation failure.
	ErrTooManyEntries = errors.New("fields: too many list entries")
	// ErrModelRequired is returned when a list is declared without a model.
	ErrModelRequired = errors.New("fields: model list requires a model")
	// ErrTemplateRequired is returned when a list is declared without a
	// sub-form schema.
	ErrTemplateRequired = errors.New("fields: model list requires a template")
)

// ListOption configures a model list.
type ListOption func(*listConfig)

type listConfig struct {
	args       forms.Args
	minEntries int
	maxEntries int
	horizontal bool
	entryID    func(row any) (int64, error)
}

// MinEntries pads the list with blank entries up to n.
func MinEntries(n int) ListOption {
	return func(c *listConfig) { c.minEntries = n }
}

// MaxEntries caps the number of entries; 0 means unbounded.
func MaxEntries(n int) ListOption {
	return func(c *listConfig) { c.maxEntries = n }
}

// Horizontal renders one entry per row with its sub-fields stacked.
func Horizontal() ListOption {
	return func(c *listConfig) { c.horizontal = true }
}

// WithEntryID overrides how database rows map to entry identifiers. The
// default uses the single-column mapped identity.
func WithEntryID(fn func(row any) (int64, error)) ListOption {
	return func(c *listConfig) {
		if fn != nil {
			c.entryID = fn
		}
	}
}

// WithListArgs sets the label, description and list-level validators.
func WithListArgs(args forms.Args) ListOption {
	return func(c *listConfig) { c.args = args }
}

// NewModelList declares a list of template sub-forms synchronised with a
// to-many relationship whose rows are described by model.
func NewModelList(template *forms.Schema, model mapping.Mapper, opts ...ListOption) (forms.FieldSpec, error) {
	if model == nil {
		return forms.FieldSpec{}, ErrModelRequired
	}
	if template == nil {
		return forms.FieldSpec{}, ErrTemplateRequired
	}
	cfg := listConfig{entryID: identityID}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	spec := forms.NewSpec(KindModelList, cfg.args, func(b forms.Binding, args forms.Args) forms.Field {
		f := &ModelListField{template: template, model: model, cfg: cfg}
		f.Init(f, KindModelList, b, args)
		return f
	})
	spec.Template = template
	return spec, nil
}

func identityID(row any) (int64, error) {
	key, err := mapping.IdentityOf(row)
	if err != nil {
		return 0, err
	}
	if len(key) != 1 {
		return 0, fmt.Errorf("%w: composite key %v", mapping.ErrNoIdentity, key)
	}
	rv := reflect.Indirect(reflect.ValueOf(key[0]))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.String:
		return strconv.ParseInt(rv.String(), 10, 64)
	}
	return 0, fmt.Errorf("%w: key %v is not an integer", mapping.ErrNoIdentity, key[0])
}

// Entry is one sub-form of a list.
type Entry struct {
	Form   *forms.Form
	Origin Origin
	// Index is the primary key of a database entry or the sequence number of
	// a new one.
	Index int64
	// Row is the related row a database entry was matched with.
	Row  any
	name string
}

// Name returns "<list>-<TAG>-<index>".
func (e *Entry) Name() string { return e.name }

// DeleteName returns the delete action name of the entry.
func (e *Entry) DeleteName() string { return DeleteName(e.name) }

type listRow struct {
	id  int64
	row any
}

// ModelListField is a bound sub-form list. Processing rebuilds the entries
// from the submitted tokens: kept database rows first, then kept new entries
// by ascending sequence, then one blank entry per add request, then padding.
type ModelListField struct {
	forms.Core
	template *forms.Schema
	model    mapping.Mapper
	cfg      listConfig

	ctx         context.Context
	rows        []listRow
	entries     []*Entry
	lastIndex   int64
	valid       bool
	setErr      error
	errors      []string
	entryErrors []map[string][]string
}

// Model returns the related model.
func (f *ModelListField) Model() mapping.Mapper { return f.model }

// Template returns the sub-form schema.
func (f *ModelListField) Template() *forms.Schema { return f.template }

// Horizontal reports the table layout.
func (f *ModelListField) Horizontal() bool { return f.cfg.horizontal }

// Entries returns the live entries.
func (f *ModelListField) Entries() []*Entry { return f.entries }

// AddName returns the add action name of the list.
func (f *ModelListField) AddName() string { return AddName(f.Name()) }

// PreInvalid reports whether the last submission carried an add or delete
// action or a malformed token.
func (f *ModelListField) PreInvalid() bool { return !f.valid }

// EntryErrors returns the per-entry errors of the last validation,
// positionally, or nil when no entry had errors.
func (f *ModelListField) EntryErrors() []map[string][]string { return f.entryErrors }

// Errors returns the list-level validator messages.
func (f *ModelListField) Errors() []string { return f.errors }

func (f *ModelListField) RawData() []string { return nil }

func (f *ModelListField) Value() string { return "" }

// Data returns the data of every entry.
func (f *ModelListField) Data() any {
	out := make([]map[string]any, len(f.entries))
	for i, entry := range f.entries {
		out[i] = entry.Form.Data()
	}
	return out
}

// SetData rebuilds the entries from rows without formdata.
func (f *ModelListField) SetData(value any) {
	ctx := f.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	f.setErr = f.Process(ctx, nil, value)
}

// Process rebuilds the entries from data, the originally related rows, and
// formdata.
func (f *ModelListField) Process(ctx context.Context, formdata url.Values, data any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f.ctx = ctx
	f.valid = true
	f.setErr = nil
	f.entries = nil
	f.errors = nil
	f.entryErrors = nil
	f.lastIndex = -1

	rows, err := f.relatedRows(data)
	if err != nil {
		return err
	}
	f.rows = rows

	if len(formdata) > 0 {
		if err := f.rebuild(formdata); err != nil {
			return err
		}
	} else {
		for _, row := range f.rows {
			if _, err := f.addEntry(nil, OriginDatabase, row.id, row.row); err != nil {
				return err
			}
		}
	}

	for len(f.entries) < f.cfg.minEntries {
		if _, err := f.addEntry(nil, OriginNew, f.lastIndex+1, nil); err != nil {
			return err
		}
	}
	return nil
}

func (f *ModelListField) relatedRows(data any) ([]listRow, error) {
	if data == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("fields: %s: related rows must be a slice, got %T", f.Name(), data)
	}
	rows := make([]listRow, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		row := rv.Index(i).Interface()
		id, err := f.cfg.entryID(row)
		if err != nil {
			return nil, fmt.Errorf("fields: %s: %w", f.Name(), err)
		}
		rows = append(rows, listRow{id: id, row: row})
	}
	return rows, nil
}

func (f *ModelListField) rebuild(formdata url.Values) error {
	var (
		kept       = map[int64]bool{}
		deleted    = map[int64]bool{}
		newKept    = map[int64]bool{}
		newDeleted = map[int64]bool{}
		add        bool
	)
	for key := range formdata {
		tok, ok, malformed := ParseToken(f.Name(), key)
		if malformed {
			f.valid = false
			continue
		}
		if !ok {
			continue
		}
		switch {
		case tok.Add:
			add = true
			f.valid = false
		case tok.Origin == OriginDatabase && tok.Delete:
			deleted[tok.ID] = true
			f.valid = false
		case tok.Origin == OriginDatabase:
			kept[tok.ID] = true
		case tok.Delete:
			newDeleted[tok.ID] = true
			f.valid = false
		default:
			newKept[tok.ID] = true
		}
	}

	known := make(map[int64]bool, len(f.rows))
	for _, row := range f.rows {
		known[row.id] = true
		if kept[row.id] && !deleted[row.id] {
			if _, err := f.addEntry(formdata, OriginDatabase, row.id, row.row); err != nil {
				return err
			}
		}
	}
	for id := range kept {
		if !known[id] {
			f.valid = false
		}
	}

	var sequence []int64
	for id := range newKept {
		if !newDeleted[id] {
			sequence = append(sequence, id)
		}
	}
	slices.Sort(sequence)
	for _, id := range sequence {
		if _, err := f.addEntry(formdata, OriginNew, id, nil); err != nil {
			return err
		}
	}
	for id := range newDeleted {
		f.lastIndex = max(f.lastIndex, id)
	}

	if add {
		if _, err := f.addEntry(nil, OriginNew, f.lastIndex+1, nil); err != nil {
			return err
		}
	}
	return nil
}

func (f *ModelListField) addEntry(formdata url.Values, origin Origin, index int64, row any) (*Entry, error) {
	if f.cfg.maxEntries > 0 && len(f.entries) >= f.cfg.maxEntries {
		return nil, fmt.Errorf("%w: %s allows %d", ErrTooManyEntries, f.Name(), f.cfg.maxEntries)
	}
	if origin == OriginNew {
		f.lastIndex = max(f.lastIndex, index)
	}
	name := EntryName(f.Name(), origin, index)
	form := f.template.Bind(forms.WithPrefix(name + Separator))
	if err := form.Process(f.ctx, formdata, row); err != nil {
		return nil, err
	}
	entry := &Entry{Form: form, Origin: origin, Index: index, Row: row, name: name}
	f.entries = append(f.entries, entry)
	return entry, nil
}

// Validate validates every entry, then the list-level validators. The list
// is valid only when no action or malformed token was submitted, every entry
// passed and no validator failed.
func (f *ModelListField) Validate(form *forms.Form, extra ...forms.Validator) bool {
	valid := f.valid && f.setErr == nil
	f.entryErrors = make([]map[string][]string, len(f.entries))
	failed := false
	for i, entry := range f.entries {
		if !entry.Form.Validate() {
			valid = false
		}
		f.entryErrors[i] = entry.Form.Errors()
		if len(f.entryErrors[i]) > 0 {
			failed = true
		}
	}
	if !failed {
		f.entryErrors = nil
	}

	f.errors = nil
	chain := append(slices.Clone(f.Args().Validators), extra...)
	for _, v := range chain {
		if v == nil {
			continue
		}
		err := v.Validate(form, f)
		if err == nil {
			continue
		}
		var stop *forms.StopValidation
		if errors.As(err, &stop) {
			if stop.Reset {
				f.errors = nil
			}
			if stop.Message != "" {
				f.errors = append(f.errors, stop.Message)
			}
			break
		}
		f.errors = append(f.errors, err.Error())
	}
	if f.setErr != nil {
		f.errors = append(f.errors, f.setErr.Error())
	}
	return valid && !failed && len(f.errors) == 0
}

// CollectErrors reports list-level messages under the list name and entry
// messages under their own input names.
func (f *ModelListField) CollectErrors(into map[string][]string) {
	if len(f.errors) > 0 {
		into[f.Name()] = append(into[f.Name()], f.errors...)
	}
	for _, entry := range f.entries {
		entry.Form.CollectErrors(into)
	}
}

// Populate synchronises the relationship collection of obj: database entries
// update their original row in place, new entries are appended as fresh model
// rows and original rows without a surviving entry are removed.
func (f *ModelListField) Populate(obj any) error {
	current, _ := forms.GetAttr(obj, f.ShortName())
	relation := reflect.ValueOf(current)
	if !relation.IsValid() || (relation.Kind() != reflect.Slice) {
		relation = reflect.ValueOf([]any{})
	}
	relation = reflect.AppendSlice(reflect.MakeSlice(relation.Type(), 0, relation.Len()), relation)

	updated := make(map[int64]bool, len(f.entries))
	for _, entry := range f.entries {
		switch entry.Origin {
		case OriginDatabase:
			if entry.Row == nil {
				continue
			}
			if err := entry.Form.Populate(entry.Row); err != nil {
				return fmt.Errorf("fields: %s: %w", entry.Name(), err)
			}
			updated[entry.Index] = true
		case OriginNew:
			row := f.model.New()
			if err := entry.Form.Populate(row); err != nil {
				return fmt.Errorf("fields: %s: %w", entry.Name(), err)
			}
			value := reflect.ValueOf(row)
			if !value.Type().AssignableTo(relation.Type().Elem()) {
				return fmt.Errorf("fields: %s: cannot append %T to %s", f.Name(), row, relation.Type())
			}
			relation = reflect.Append(relation, value)
		}
	}

	for _, original := range f.rows {
		if updated[original.id] {
			continue
		}
		for i := 0; i < relation.Len(); i++ {
			if sameRow(relation.Index(i).Interface(), original.row) {
				relation = reflect.AppendSlice(relation.Slice(0, i), relation.Slice(i+1, relation.Len()))
				break
			}
		}
	}
	return forms.SetAttr(obj, f.ShortName(), relation.Interface())
}
