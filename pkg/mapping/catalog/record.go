package catalog

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-ormform/pkg/mapping"
)

// Record is a map-backed row of a catalog model. Rows are shared by every
// session reader, so attribute access is guarded.
type Record struct {
	model *Model

	mu     sync.RWMutex
	values map[string]any
}

// NewRecord returns an empty row of m.
func NewRecord(m *Model) *Record {
	return &Record{model: m, values: make(map[string]any)}
}

// Model returns the model the record belongs to.
func (r *Record) Model() *Model { return r.model }

// GetAttr returns the value stored under a property key.
func (r *Record) GetAttr(name string) (any, bool) {
	if !r.model.hasProperty(name) {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[name], true
}

// SetAttr stores value under a property key.
func (r *Record) SetAttr(name string, value any) error {
	if !r.model.hasProperty(name) {
		return fmt.Errorf("catalog: %s has no property %q", r.model.name, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = value
	return nil
}

// Values returns a copy of the stored values.
func (r *Record) Values() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.values)
}

// Clone returns a detached copy of the row. Related records are shared,
// relationship collections are copied.
func (r *Record) Clone() *Record {
	values := r.Values()
	for key, value := range values {
		if rows, ok := value.([]any); ok {
			values[key] = slices.Clone(rows)
		}
	}
	return &Record{model: r.model, values: values}
}

// Assign replaces the values of r with those of src in one step, so readers
// see either the old row or the new one.
func (r *Record) Assign(src *Record) error {
	if src.model != r.model {
		return fmt.Errorf("catalog: cannot assign %s row to %s row", src.model.name, r.model.name)
	}
	values := src.Values()
	r.mu.Lock()
	r.values = values
	r.mu.Unlock()
	return nil
}

// PrimaryKey returns the primary-key values in declaration order.
func (r *Record) PrimaryKey() []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := make([]any, 0, len(r.model.pks))
	for _, name := range r.model.pks {
		key = append(key, r.values[name])
	}
	return key
}

// String renders the display property when declared, else "<Model> <key>".
func (r *Record) String() string {
	if display := r.model.spec.Display; display != "" {
		r.mu.RLock()
		value := r.values[display]
		r.mu.RUnlock()
		if value != nil {
			return fmt.Sprint(value)
		}
	}
	parts := make([]string, 0, len(r.model.pks))
	for _, value := range r.PrimaryKey() {
		parts = append(parts, fmt.Sprint(value))
	}
	return r.model.name + " " + strings.Join(parts, ":")
}

func (m *Model) hasProperty(name string) bool {
	for _, prop := range m.props {
		if prop.Key == name {
			return true
		}
	}
	return false
}

// find returns the sample row whose single-column key renders as id.
func (m *Model) find(id any) (*Record, bool) {
	want := fmt.Sprint(id)
	for _, rec := range m.rows {
		if key := rec.PrimaryKey(); len(key) == 1 && fmt.Sprint(key[0]) == want {
			return rec, true
		}
	}
	return nil, false
}

// link replaces relationship references (primary keys) with target records.
// Many-to-one references may also come from the join column.
func (r *Record) link() error {
	for _, prop := range r.model.props {
		rel := prop.Relationship
		if rel == nil {
			continue
		}
		target := rel.Target.(*Model)
		raw, ok := r.values[prop.Key]
		if rel.Direction == mapping.ManyToOne {
			if !ok && len(rel.LocalColumns) == 1 {
				raw, ok = r.values[rel.LocalColumns[0].Name]
			}
			if !ok || raw == nil {
				continue
			}
			if _, linked := raw.(*Record); linked {
				continue
			}
			rec, found := target.find(raw)
			if !found {
				return fmt.Errorf("%w: %s row references %s %v", ErrUnknownModel, r.model.name, target.name, raw)
			}
			r.values[prop.Key] = rec
			continue
		}
		if !ok || raw == nil {
			r.values[prop.Key] = []any{}
			continue
		}
		refs := reflect.ValueOf(raw)
		if refs.Kind() != reflect.Slice {
			return fmt.Errorf("catalog: %s.%s must list keys, got %T", r.model.name, prop.Key, raw)
		}
		linked := make([]any, 0, refs.Len())
		for i := 0; i < refs.Len(); i++ {
			ref := refs.Index(i).Interface()
			if rec, isRecord := ref.(*Record); isRecord {
				linked = append(linked, rec)
				continue
			}
			rec, found := target.find(ref)
			if !found {
				return fmt.Errorf("%w: %s row references %s %v", ErrUnknownModel, r.model.name, target.name, ref)
			}
			linked = append(linked, rec)
		}
		r.values[prop.Key] = linked
	}
	return nil
}

// SortedKeys lists the stored keys alphabetically.
func (r *Record) SortedKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.values))
	for key := range r.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
