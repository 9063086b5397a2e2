package mapping

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Direction names the traversal direction of a relationship. The values double
// as converter type tags.
type Direction string

const (
	ManyToOne  Direction = "MANYTOONE"
	OneToMany  Direction = "ONETOMANY"
	ManyToMany Direction = "MANYTOMANY"
)

// ParseDirection accepts the canonical tags as well as the hyphenated forms
// used in struct tags and catalog files ("many-to-one").
func ParseDirection(raw string) (Direction, bool) {
	key := strings.ToUpper(strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.TrimSpace(raw)))
	switch Direction(key) {
	case ManyToOne, OneToMany, ManyToMany:
		return Direction(key), true
	}
	return "", false
}

// ColumnDefault wraps a column default whose Arg is either a scalar or a
// zero-argument function producing the value.
type ColumnDefault struct {
	Arg any
}

// Column is the single column backing a scalar property.
type Column struct {
	Name        string
	Type        ColumnType
	Nullable    bool
	PrimaryKey  bool
	ForeignKeys []string
	Default     any
}

// Relationship describes a to-one or to-many association.
type Relationship struct {
	Target       Mapper
	Direction    Direction
	LocalColumns []Column
}

// Property is one mapped attribute of a model. Scalar properties carry
// Columns; relationships carry Relationship. A property with neither is not
// convertible and is skipped by form builders.
type Property struct {
	Key          string
	Doc          string
	Columns      []Column
	Relationship *Relationship
}

// IsRelationship reports whether the property has a traversal direction.
func (p Property) IsRelationship() bool {
	return p.Relationship != nil
}

// Mapper exposes the mapped-class metadata of a model.
type Mapper interface {
	Name() string
	Table() string
	// Properties returns the mapped properties in declaration order.
	Properties() []Property
	// New returns a fresh, unsaved row instance.
	New() any
	// Identity returns the primary-key tuple of row.
	Identity(row any) ([]any, error)
}

// Model is implemented by values that can hand out their Mapper.
type Model interface {
	Mapper() Mapper
}

// Session enumerates rows of a mapped model.
type Session interface {
	All(ctx context.Context, m Mapper) ([]any, error)
}

// SessionFunc adapts a function to Session.
type SessionFunc func(ctx context.Context, m Mapper) ([]any, error)

func (f SessionFunc) All(ctx context.Context, m Mapper) ([]any, error) {
	return f(ctx, m)
}

// Identifier is implemented by rows that know their own primary key.
type Identifier interface {
	PrimaryKey() []any
}

var (
	// ErrNotMapped is returned when a value carries no mapping metadata.
	ErrNotMapped = errors.New("mapping: value is not a mapped model")
	// ErrNoIdentity is returned when a row's primary key cannot be determined.
	ErrNoIdentity = errors.New("mapping: row has no identity")
)

// Resolve returns the Mapper for v. It accepts a Mapper, a Model, or an
// instance/pointer/reflect.Type of a struct registered with Register.
func Resolve(v any) (Mapper, error) {
	switch value := v.(type) {
	case nil:
		return nil, ErrNotMapped
	case Mapper:
		return value, nil
	case Model:
		if m := value.Mapper(); m != nil {
			return m, nil
		}
		return nil, ErrNotMapped
	case reflect.Type:
		if m, ok := defaultRegistry.lookup(value); ok {
			return m, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotMapped, value)
	}
	if m, ok := defaultRegistry.lookup(reflect.TypeOf(v)); ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrNotMapped, v)
}

// IdentityOf extracts the primary key of row. Rows implementing Identifier
// answer directly; struct rows of registered types use their mapper.
func IdentityOf(row any) ([]any, error) {
	if row == nil {
		return nil, ErrNoIdentity
	}
	if id, ok := row.(Identifier); ok {
		key := id.PrimaryKey()
		if len(key) == 0 {
			return nil, ErrNoIdentity
		}
		return key, nil
	}
	if m, ok := defaultRegistry.lookup(reflect.TypeOf(row)); ok {
		return m.Identity(row)
	}
	return nil, fmt.Errorf("%w: %T is not registered", ErrNoIdentity, row)
}

// IdentityString joins the identity tuple of row with ":".
func IdentityString(row any) (string, error) {
	key, err := IdentityOf(row)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(key))
	for i, part := range key {
		parts[i] = fmt.Sprint(part)
	}
	return strings.Join(parts, ":"), nil
}

// PrimaryKeyColumns returns the primary-key columns of m in property order.
func PrimaryKeyColumns(m Mapper) []Column {
	var out []Column
	for _, prop := range m.Properties() {
		for _, col := range prop.Columns {
			if col.PrimaryKey {
				out = append(out, col)
			}
		}
	}
	return out
}
