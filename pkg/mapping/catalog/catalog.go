// Package catalog describes mapped models declaratively in YAML or TOML files.
// Catalog models implement mapping.Mapper; their rows are *Record values.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ormform/pkg/mapping"
)

// Format names a catalog file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var (
	// ErrUnknownFormat is returned for files that are neither YAML nor TOML.
	ErrUnknownFormat = errors.New("catalog: unknown format")
	// ErrUnknownModel is returned when a relationship or lookup names a model
	// the catalog does not declare.
	ErrUnknownModel = errors.New("catalog: unknown model")
)

type fileDoc struct {
	Models []ModelSpec `yaml:"models" toml:"models"`
}

// ModelSpec is the file representation of a model.
type ModelSpec struct {
	Name       string           `yaml:"name" toml:"name"`
	Table      string           `yaml:"table" toml:"table"`
	Display    string           `yaml:"display" toml:"display"`
	Properties []PropertySpec   `yaml:"properties" toml:"properties"`
	Rows       []map[string]any `yaml:"rows" toml:"rows"`
}

// PropertySpec is the file representation of a property. Scalar properties
// set Type; relationships set Relationship.
type PropertySpec struct {
	Key          string            `yaml:"key" toml:"key"`
	Doc          string            `yaml:"doc" toml:"doc"`
	Type         string            `yaml:"type" toml:"type"`
	Package      string            `yaml:"package" toml:"package"`
	Extends      string            `yaml:"extends" toml:"extends"`
	Length       int               `yaml:"length" toml:"length"`
	Unsigned     bool              `yaml:"unsigned" toml:"unsigned"`
	Enums        []string          `yaml:"enums" toml:"enums"`
	Nullable     bool              `yaml:"nullable" toml:"nullable"`
	PrimaryKey   bool              `yaml:"primary_key" toml:"primary_key"`
	ForeignKeys  []string          `yaml:"foreign_keys" toml:"foreign_keys"`
	Default      any               `yaml:"default" toml:"default"`
	Relationship *RelationshipSpec `yaml:"relationship" toml:"relationship"`
}

// RelationshipSpec is the file representation of a relationship.
type RelationshipSpec struct {
	Target    string   `yaml:"target" toml:"target"`
	Direction string   `yaml:"direction" toml:"direction"`
	Join      []string `yaml:"join" toml:"join"`
}

// Catalog is a set of models loaded from one file.
type Catalog struct {
	models []*Model
	byName map[string]*Model
}

// Load reads a catalog file, choosing the decoder by extension.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	cat, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return cat, nil
}

// FormatOf infers the format of path from its extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Parse decodes a catalog document.
func Parse(data []byte, format Format) (*Catalog, error) {
	var doc fileDoc
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("catalog: parse yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("catalog: parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return New(doc.Models...)
}

// New builds a catalog from model specs, resolving relationship targets.
func New(specs ...ModelSpec) (*Catalog, error) {
	cat := &Catalog{byName: make(map[string]*Model, len(specs))}
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, errors.New("catalog: model without name")
		}
		if _, exists := cat.byName[name]; exists {
			return nil, fmt.Errorf("catalog: duplicate model %q", name)
		}
		model := &Model{spec: spec, name: name, catalog: cat}
		cat.models = append(cat.models, model)
		cat.byName[name] = model
	}
	for _, model := range cat.models {
		if err := model.build(); err != nil {
			return nil, err
		}
	}
	for _, model := range cat.models {
		if err := model.loadRows(); err != nil {
			return nil, err
		}
	}
	for _, model := range cat.models {
		for _, rec := range model.rows {
			if err := rec.link(); err != nil {
				return nil, err
			}
		}
	}
	return cat, nil
}

// Models returns the models in file order.
func (c *Catalog) Models() []*Model { return c.models }

// Model returns the model called name.
func (c *Catalog) Model(name string) (*Model, bool) {
	m, ok := c.byName[name]
	return m, ok
}

// Model is a catalog-declared mapped model.
type Model struct {
	spec    ModelSpec
	name    string
	catalog *Catalog
	props   []mapping.Property
	pks     []string
	rows    []*Record
}

var _ mapping.Mapper = (*Model)(nil)

func (m *Model) Name() string { return m.name }

func (m *Model) Table() string {
	if m.spec.Table != "" {
		return m.spec.Table
	}
	return strings.ToLower(m.name) + "s"
}

func (m *Model) Properties() []mapping.Property { return m.props }

// Mapper lets a *Model be passed wherever a mapping.Model is accepted.
func (m *Model) Mapper() mapping.Mapper { return m }

// New returns an empty record.
func (m *Model) New() any { return NewRecord(m) }

// Identity returns the primary-key values of a record of this model.
func (m *Model) Identity(row any) ([]any, error) {
	rec, ok := row.(*Record)
	if !ok || rec == nil || rec.model != m {
		return nil, fmt.Errorf("%w: %T is not a %s record", mapping.ErrNoIdentity, row, m.name)
	}
	return rec.PrimaryKey(), nil
}

// Rows returns the sample rows declared in the catalog.
func (m *Model) Rows() []*Record { return m.rows }

func (m *Model) build() error {
	columns := make(map[string]mapping.Column)
	for _, spec := range m.spec.Properties {
		if spec.Relationship != nil || spec.Key == "" {
			continue
		}
		col, err := spec.column()
		if err != nil {
			return fmt.Errorf("catalog: %s.%s: %w", m.name, spec.Key, err)
		}
		columns[spec.Key] = col
		if col.PrimaryKey {
			m.pks = append(m.pks, spec.Key)
		}
	}
	for _, spec := range m.spec.Properties {
		if spec.Key == "" {
			return fmt.Errorf("catalog: %s: property without key", m.name)
		}
		prop := mapping.Property{Key: spec.Key, Doc: spec.Doc}
		if rel := spec.Relationship; rel != nil {
			target, ok := m.catalog.byName[rel.Target]
			if !ok {
				return fmt.Errorf("%w: %s.%s targets %q", ErrUnknownModel, m.name, spec.Key, rel.Target)
			}
			dir, ok := mapping.ParseDirection(rel.Direction)
			if !ok {
				return fmt.Errorf("catalog: %s.%s: unknown direction %q", m.name, spec.Key, rel.Direction)
			}
			relationship := &mapping.Relationship{Target: target, Direction: dir}
			join := rel.Join
			if len(join) == 0 && dir == mapping.ManyToOne {
				join = []string{spec.Key + "_id"}
			}
			for _, name := range join {
				if col, ok := columns[name]; ok {
					relationship.LocalColumns = append(relationship.LocalColumns, col)
				}
			}
			prop.Relationship = relationship
		} else {
			prop.Columns = []mapping.Column{columns[spec.Key]}
		}
		m.props = append(m.props, prop)
	}
	return nil
}

func (spec PropertySpec) column() (mapping.Column, error) {
	typ, err := spec.columnType()
	if err != nil {
		return mapping.Column{}, err
	}
	return mapping.Column{
		Name:        spec.Key,
		Type:        typ,
		Nullable:    spec.Nullable && !spec.PrimaryKey,
		PrimaryKey:  spec.PrimaryKey,
		ForeignKeys: spec.ForeignKeys,
		Default:     spec.Default,
	}, nil
}

func (spec PropertySpec) columnType() (mapping.ColumnType, error) {
	if spec.Type == "" {
		return mapping.ColumnType{}, errors.New("missing type")
	}
	var typ mapping.ColumnType
	if spec.Extends != "" {
		parent, ok := mapping.TypeByName(spec.Extends)
		if !ok {
			return mapping.ColumnType{}, fmt.Errorf("unknown parent type %q", spec.Extends)
		}
		typ = mapping.Derive(spec.Package, spec.Type, parent)
	} else if builtin, ok := mapping.TypeByName(spec.Type); ok && spec.Package == "" {
		typ = builtin
	} else {
		typ = mapping.ColumnType{TypeName: mapping.TypeName{Package: spec.Package, Name: spec.Type}}
	}
	if spec.Length > 0 {
		typ.Length = spec.Length
	}
	if spec.Unsigned {
		typ.Unsigned = true
	}
	if len(spec.Enums) > 0 {
		typ.Enums = append([]string(nil), spec.Enums...)
	}
	return typ, nil
}

func (m *Model) loadRows() error {
	for i, values := range m.spec.Rows {
		rec := NewRecord(m)
		for key, value := range values {
			if err := rec.SetAttr(key, value); err != nil {
				return fmt.Errorf("catalog: %s row %d: %w", m.name, i, err)
			}
		}
		m.rows = append(m.rows, rec)
	}
	return nil
}
