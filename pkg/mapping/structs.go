package mapping

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	tagORM = "orm"
	tagDB  = "db"
	tagDoc = "doc"
)

var timeType = reflect.TypeOf(time.Time{})

// StructOption customises a struct mapper at registration time.
type StructOption func(*StructMapper)

// WithTable overrides the table name (default: snake_case of the type name).
func WithTable(table string) StructOption {
	return func(m *StructMapper) {
		if trimmed := strings.TrimSpace(table); trimmed != "" {
			m.table = trimmed
		}
	}
}

// WithName overrides the model name reported by the mapper.
func WithName(name string) StructOption {
	return func(m *StructMapper) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			m.name = trimmed
		}
	}
}

// WithDefault attaches a column default to property key. Pass a ColumnDefault
// to supply a value factory.
func WithDefault(key string, value any) StructOption {
	return func(m *StructMapper) {
		if m.defaults == nil {
			m.defaults = make(map[string]any)
		}
		m.defaults[key] = value
	}
}

// Registry maps Go struct types to their mappers.
type Registry struct {
	mu      sync.RWMutex
	mappers map[reflect.Type]*StructMapper
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{mappers: make(map[reflect.Type]*StructMapper)}
}

var defaultRegistry = NewRegistry()

// Register maps the struct type of sample in the package registry.
func Register(sample any, options ...StructOption) (*StructMapper, error) {
	return defaultRegistry.Register(sample, options...)
}

// MustRegister is Register that panics on error; intended for init-time wiring.
func MustRegister(sample any, options ...StructOption) *StructMapper {
	m, err := Register(sample, options...)
	if err != nil {
		panic(err)
	}
	return m
}

// Register maps the struct type of sample. Registering a type twice returns
// the existing mapper with the new options applied.
func (r *Registry) Register(sample any, options ...StructOption) (*StructMapper, error) {
	typ := structType(reflect.TypeOf(sample))
	if typ == nil {
		return nil, fmt.Errorf("mapping: register %T: not a struct type", sample)
	}
	m := r.mapperFor(typ)
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	m.Properties()
	if m.err != nil {
		return nil, m.err
	}
	return m, nil
}

func (r *Registry) lookup(t reflect.Type) (Mapper, bool) {
	typ := structType(t)
	if typ == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappers[typ]
	if !ok {
		return nil, false
	}
	return m, true
}

// mapperFor returns the cached mapper for typ, creating an unparsed one when
// missing so relationship cycles resolve lazily.
func (r *Registry) mapperFor(typ reflect.Type) *StructMapper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mappers[typ]; ok {
		return m
	}
	m := &StructMapper{
		registry: r,
		typ:      typ,
		name:     typ.Name(),
		table:    snakeCase(typ.Name()),
	}
	r.mappers[typ] = m
	return m
}

// StructMapper derives mapping metadata from struct fields and their
// `db`, `orm` and `doc` tags.
//
//	type Student struct {
//		ID       int64   `db:"id" orm:"pk"`
//		Name     string  `orm:"length=80" doc:"Full name"`
//		SchoolID int64   `orm:"fk=schools.id"`
//		School   *School `orm:"rel=many-to-one,join=school_id"`
//		Courses  []*Course `orm:"rel=many-to-many"`
//	}
type StructMapper struct {
	registry *Registry
	typ      reflect.Type
	name     string
	table    string
	defaults map[string]any

	once     sync.Once
	props    []Property
	index    map[string][]int
	pkFields [][]int
	err      error
}

var _ Mapper = (*StructMapper)(nil)

func (m *StructMapper) Name() string  { return m.name }
func (m *StructMapper) Table() string { return m.table }

// Type returns the mapped struct type.
func (m *StructMapper) Type() reflect.Type { return m.typ }

// Err reports tag parsing problems found while reading the struct.
func (m *StructMapper) Err() error {
	m.Properties()
	return m.err
}

// Properties returns the mapped properties in struct field order.
func (m *StructMapper) Properties() []Property {
	m.once.Do(m.parse)
	return m.props
}

// New returns a pointer to a zero value of the mapped struct.
func (m *StructMapper) New() any {
	return reflect.New(m.typ).Interface()
}

// Identity returns the values of the primary-key fields of row.
func (m *StructMapper) Identity(row any) ([]any, error) {
	m.Properties()
	if len(m.pkFields) == 0 {
		return nil, fmt.Errorf("%w: %s declares no primary key", ErrNoIdentity, m.name)
	}
	value := reflect.ValueOf(row)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, ErrNoIdentity
		}
		value = value.Elem()
	}
	if value.Type() != m.typ {
		return nil, fmt.Errorf("%w: %T is not a %s", ErrNoIdentity, row, m.name)
	}
	key := make([]any, 0, len(m.pkFields))
	for _, idx := range m.pkFields {
		key = append(key, value.FieldByIndex(idx).Interface())
	}
	return key, nil
}

// FieldIndex returns the struct field index backing property key.
func (m *StructMapper) FieldIndex(key string) ([]int, bool) {
	m.Properties()
	idx, ok := m.index[key]
	return idx, ok
}

type fieldTag struct {
	skip      bool
	pk        bool
	nullable  *bool
	typeName  string
	length    int
	unsigned  bool
	enums     []string
	fks       []string
	def       string
	hasDef    bool
	direction Direction
	join      []string
}

func (m *StructMapper) parse() {
	m.index = make(map[string][]int)
	var pending []relationField
	columns := make(map[string]Column)

	for i := 0; i < m.typ.NumField(); i++ {
		sf := m.typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, err := parseFieldTag(sf.Tag.Get(tagORM))
		if err != nil {
			m.err = fmt.Errorf("mapping: %s.%s: %w", m.name, sf.Name, err)
			continue
		}
		if tag.skip {
			continue
		}
		key := propertyKey(sf)
		doc := sf.Tag.Get(tagDoc)

		if target, dir, ok := relationTarget(sf.Type, tag); ok {
			m.index[key] = sf.Index
			pending = append(pending, relationField{key: key, doc: doc, target: target, direction: dir, join: tag.join})
			m.props = append(m.props, Property{Key: key, Doc: doc})
			continue
		}

		col, ok := m.column(key, sf.Type, tag)
		if !ok {
			continue
		}
		if def, ok := m.defaults[key]; ok {
			col.Default = def
		} else if tag.hasDef {
			col.Default = literalDefault(tag.def, sf.Type)
		}
		columns[key] = col
		m.index[key] = sf.Index
		if col.PrimaryKey {
			m.pkFields = append(m.pkFields, sf.Index)
		}
		m.props = append(m.props, Property{Key: key, Doc: doc, Columns: []Column{col}})
	}

	for _, rel := range pending {
		for i := range m.props {
			if m.props[i].Key != rel.key {
				continue
			}
			m.props[i].Relationship = &Relationship{
				Target:       m.registry.mapperFor(rel.target),
				Direction:    rel.direction,
				LocalColumns: localColumns(rel, columns),
			}
		}
	}
}

type relationField struct {
	key       string
	doc       string
	target    reflect.Type
	direction Direction
	join      []string
}

func localColumns(rel relationField, columns map[string]Column) []Column {
	join := rel.join
	if len(join) == 0 && rel.direction == ManyToOne {
		join = []string{rel.key + "_id"}
	}
	var out []Column
	for _, name := range join {
		if col, ok := columns[name]; ok {
			out = append(out, col)
		}
	}
	return out
}

func (m *StructMapper) column(key string, typ reflect.Type, tag fieldTag) (Column, bool) {
	nullable := false
	base := typ
	if base.Kind() == reflect.Pointer {
		nullable = true
		base = base.Elem()
	}

	var colType ColumnType
	if tag.typeName != "" {
		resolved, ok := TypeByName(tag.typeName)
		if !ok {
			resolved = ColumnType{TypeName: TypeName{Name: tag.typeName}}
		}
		colType = resolved
	} else {
		inferred, ok := inferType(base)
		if !ok {
			return Column{}, false
		}
		colType = inferred
	}
	if tag.length > 0 {
		colType.Length = tag.length
	}
	if tag.unsigned {
		colType.Unsigned = true
	}
	if len(tag.enums) > 0 {
		colType.Enums = tag.enums
	}
	if tag.nullable != nil {
		nullable = *tag.nullable
	}
	if tag.pk {
		nullable = false
	}
	return Column{
		Name:        key,
		Type:        colType,
		Nullable:    nullable,
		PrimaryKey:  tag.pk,
		ForeignKeys: tag.fks,
	}, true
}

func inferType(typ reflect.Type) (ColumnType, bool) {
	if typ == timeType {
		return DateTime(), true
	}
	switch typ.Kind() {
	case reflect.String:
		return String(0), true
	case reflect.Bool:
		return Boolean(), true
	case reflect.Int8, reflect.Int16:
		return SmallInteger(), true
	case reflect.Int, reflect.Int32:
		return Integer(), true
	case reflect.Int64:
		return BigInteger(), true
	case reflect.Uint8, reflect.Uint16:
		return SmallInteger().AsUnsigned(), true
	case reflect.Uint, reflect.Uint32:
		return Integer().AsUnsigned(), true
	case reflect.Uint64:
		return BigInteger().AsUnsigned(), true
	case reflect.Float32, reflect.Float64:
		return Float(), true
	case reflect.Slice:
		if typ.Elem().Kind() == reflect.Uint8 {
			return LargeBinary(), true
		}
	}
	if typ.Kind() == reflect.Struct || typ.Kind() == reflect.Map || typ.Kind() == reflect.Slice {
		return ColumnType{}, false
	}
	return ColumnType{TypeName: TypeName{Package: typ.PkgPath(), Name: typ.Name()}}, true
}

func relationTarget(typ reflect.Type, tag fieldTag) (reflect.Type, Direction, bool) {
	dir := tag.direction
	switch {
	case typ.Kind() == reflect.Slice && typ.Elem().Kind() != reflect.Uint8:
		target := structType(typ.Elem())
		if target == nil || target == timeType {
			return nil, "", false
		}
		if dir == "" {
			dir = OneToMany
		}
		return target, dir, true
	case typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Struct:
		target := structType(typ)
		if target == nil || target == timeType {
			return nil, "", false
		}
		if dir == "" {
			dir = ManyToOne
		}
		return target, dir, true
	}
	return nil, "", false
}

func parseFieldTag(raw string) (fieldTag, error) {
	var tag fieldTag
	raw = strings.TrimSpace(raw)
	if raw == "-" {
		tag.skip = true
		return tag, nil
	}
	if raw == "" {
		return tag, nil
	}
	for _, part := range strings.Split(raw, ",") {
		name, value, _ := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		switch name {
		case "":
		case "pk", "primary_key":
			tag.pk = true
		case "nullable":
			v := true
			tag.nullable = &v
		case "notnull", "not_null":
			v := false
			tag.nullable = &v
		case "type":
			tag.typeName = value
		case "length", "size":
			n, err := strconv.Atoi(value)
			if err != nil {
				return tag, fmt.Errorf("invalid length %q", value)
			}
			tag.length = n
		case "unsigned":
			tag.unsigned = true
		case "enum":
			tag.enums = splitList(value)
		case "fk":
			tag.fks = append(tag.fks, splitList(value)...)
		case "default":
			tag.def = value
			tag.hasDef = true
		case "rel":
			dir, ok := ParseDirection(value)
			if !ok {
				return tag, fmt.Errorf("unknown relationship direction %q", value)
			}
			tag.direction = dir
		case "join":
			tag.join = splitList(value)
		default:
			return tag, fmt.Errorf("unknown tag option %q", name)
		}
	}
	return tag, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, "|") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func literalDefault(raw string, typ reflect.Type) any {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	switch typ.Kind() {
	case reflect.Bool:
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return v
		}
	case reflect.Float32, reflect.Float64:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return raw
}

func propertyKey(sf reflect.StructField) string {
	if name, _, _ := strings.Cut(sf.Tag.Get(tagDB), ","); name != "" && name != "-" {
		return name
	}
	return snakeCase(sf.Name)
}

func structType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// snakeCase converts Go identifiers to snake_case ("SchoolID" -> "school_id").
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
