package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/orm"
)

// Preset holds declarative form factory overrides for one model. The
// document shape is shared by JSON and YAML files:
//
//	{
//	  "only": ["full_name", "current_school"],
//	  "fields": {
//	    "current_school": {"label": "School", "blank_text": "(none)", "widget": "radio"}
//	  },
//	  "lists": {
//	    "students": {"only": ["full_name", "grade"], "horizontal": true}
//	  }
//	}
//
// Lists replace a to-many relationship field with a sub-form list whose
// template is derived from the relationship target.
type Preset struct {
	Only     []string               `json:"only" yaml:"only"`
	Exclude  []string               `json:"exclude" yaml:"exclude"`
	TypeName string                 `json:"type_name" yaml:"type_name"`
	Fields   map[string]FieldPreset `json:"fields" yaml:"fields"`
	Lists    map[string]ListPreset  `json:"lists" yaml:"lists"`
}

// ListPreset configures a sub-form list.
type ListPreset struct {
	Only       []string `json:"only" yaml:"only"`
	Label      string   `json:"label" yaml:"label"`
	Horizontal bool     `json:"horizontal" yaml:"horizontal"`
	MinEntries int      `json:"min_entries" yaml:"min_entries"`
	MaxEntries int      `json:"max_entries" yaml:"max_entries"`
}

// FieldPreset patches the arguments of one field.
type FieldPreset struct {
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
	Widget      string `json:"widget" yaml:"widget"`
	BlankText   string `json:"blank_text" yaml:"blank_text"`
	LabelAttr   string `json:"label_attr" yaml:"label_attr"`
	Format      string `json:"format" yaml:"format"`
}

// NewPreset decodes a JSON preset document.
func NewPreset(data []byte) (*Preset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset: document is empty")
	}
	var preset Preset
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&preset); err != nil {
		return nil, fmt.Errorf("preset: parse document: %w", err)
	}
	return &preset, nil
}

// NewYAMLPreset decodes a YAML preset document.
func NewYAMLPreset(data []byte) (*Preset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset: document is empty")
	}
	var preset Preset
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&preset); err != nil {
		return nil, fmt.Errorf("preset: parse document: %w", err)
	}
	return &preset, nil
}

// LoadPreset reads a preset from fsys, choosing the decoder by extension.
func LoadPreset(fsys fs.FS, name string) (*Preset, error) {
	if fsys == nil {
		return nil, errors.New("preset: filesystem is nil")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("preset: path is required")
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("preset: read %s: %w", name, err)
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return NewYAMLPreset(data)
	default:
		return NewPreset(data)
	}
}

// Options translates the preset into form factory options.
func (p *Preset) Options() []orm.Option {
	if p == nil {
		return nil
	}
	var opts []orm.Option
	if len(p.Only) > 0 {
		opts = append(opts, orm.Only(p.Only...))
	}
	if len(p.Exclude) > 0 {
		opts = append(opts, orm.Exclude(p.Exclude...))
	}
	if p.TypeName != "" {
		opts = append(opts, orm.WithTypeName(p.TypeName))
	}
	if len(p.Fields) > 0 {
		args := make(map[string]forms.Args, len(p.Fields))
		for name, patch := range p.Fields {
			args[name] = patch.args()
		}
		opts = append(opts, orm.WithFieldArgs(args))
	}
	return opts
}

func (l ListPreset) options() []fields.ListOption {
	opts := []fields.ListOption{fields.WithListArgs(forms.Args{Label: l.Label})}
	if l.Horizontal {
		opts = append(opts, fields.Horizontal())
	}
	if l.MinEntries > 0 {
		opts = append(opts, fields.MinEntries(l.MinEntries))
	}
	if l.MaxEntries > 0 {
		opts = append(opts, fields.MaxEntries(l.MaxEntries))
	}
	return opts
}

func (f FieldPreset) args() forms.Args {
	return forms.Args{
		Label:       f.Label,
		Description: f.Description,
		Widget:      f.Widget,
		BlankText:   f.BlankText,
		LabelAttr:   f.LabelAttr,
		Format:      f.Format,
	}
}
