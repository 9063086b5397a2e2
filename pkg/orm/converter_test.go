package orm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
)

func columnProp(key string, typ mapping.ColumnType, nullable bool) mapping.Property {
	return mapping.Property{Key: key, Columns: []mapping.Column{{Name: key, Type: typ, Nullable: nullable}}}
}

func TestConverter_WalksTypeHierarchy(t *testing.T) {
	slug := mapping.Derive("app.types", "Slug", mapping.Unicode(32))
	conv := NewConverter()

	spec, err := conv.Convert(nil, nil, columnProp("slug", slug, false), forms.Args{}, nil)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if spec.Kind != forms.KindString {
		t.Fatalf("expected String via ancestors, got %s", spec.Kind)
	}
	if length, ok := spec.Args.Validators[1].(forms.LengthValidator); !ok || length.Max != 32 {
		t.Fatalf("expected inherited length 32, got %#v", spec.Args.Validators)
	}
}

func TestConverter_HierarchyDisabledReportsTriedTags(t *testing.T) {
	slug := mapping.Derive("app.types", "Slug", mapping.String(10))
	conv := NewConverter(WithHierarchyLookup(false))

	_, err := conv.Convert(nil, nil, columnProp("slug", slug, false), forms.Args{}, nil)
	if !errors.Is(err, ErrNoConverter) {
		t.Fatalf("expected ErrNoConverter, got %v", err)
	}
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %T", err)
	}
	if diff := cmp.Diff([]string{"app.types.Slug", "Slug"}, convErr.Tried); diff != "" {
		t.Fatalf("tried mismatch (-want +got):\n%s", diff)
	}
}

func TestConverter_CustomConversionOverridesBuiltin(t *testing.T) {
	custom := func(req Request) (*forms.FieldSpec, error) {
		spec := forms.TextArea(req.Args)
		return &spec, nil
	}
	conv := NewConverter(WithConversion("long-strings", custom, "String"))

	spec, err := conv.Convert(nil, nil, columnProp("bio", mapping.String(500), true), forms.Args{}, nil)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if spec.Kind != forms.KindTextArea {
		t.Fatalf("expected the most recent registration to win, got %s", spec.Kind)
	}

	other, _ := NewConverter().Convert(nil, nil, columnProp("bio", mapping.String(500), true), forms.Args{}, nil)
	if other.Kind != forms.KindString {
		t.Fatalf("converters must not share registries, got %s", other.Kind)
	}
}

func TestConverter_ConversionsSurviveRegistryInAnyOrder(t *testing.T) {
	custom := func(req Request) (*forms.FieldSpec, error) {
		spec := forms.TextArea(req.Args)
		return &spec, nil
	}
	cases := map[string]func(reg *Registry) []ConverterOption{
		"registry first": func(reg *Registry) []ConverterOption {
			return []ConverterOption{WithRegistry(reg), WithConversion("long-strings", custom, "String")}
		},
		"registry last": func(reg *Registry) []ConverterOption {
			return []ConverterOption{WithConversion("long-strings", custom, "String"), WithRegistry(reg)}
		},
	}
	for name, options := range cases {
		t.Run(name, func(t *testing.T) {
			reg := Builtins()
			before := reg.Names()
			conv := NewConverter(options(reg)...)

			spec, err := conv.Convert(nil, nil, columnProp("bio", mapping.String(500), true), forms.Args{}, nil)
			if err != nil {
				t.Fatalf("convert: %v", err)
			}
			if spec.Kind != forms.KindTextArea {
				t.Fatalf("expected the extra conversion to apply, got %s", spec.Kind)
			}
			if diff := cmp.Diff(before, reg.Names()); diff != "" {
				t.Fatalf("caller registry was modified (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConverter_QualifiedTagBeatsBareTag(t *testing.T) {
	reg := Builtins()
	reg.Register("qualified", 0, func(req Request) (*forms.FieldSpec, error) {
		spec := forms.Hidden(req.Args)
		return &spec, nil
	}, "sql.sqltypes.Integer")
	conv := NewConverter(WithRegistry(reg))

	spec, err := conv.Convert(nil, nil, columnProp("n", mapping.BigInteger(), false), forms.Args{}, nil)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if spec.Kind != forms.KindHidden {
		t.Fatalf("expected qualified Integer rule, got %s", spec.Kind)
	}
}

func TestConverter_MatcherAndSkip(t *testing.T) {
	conv := NewConverter()
	conv.Registry().RegisterMatcher("secrets", 10,
		func(prop mapping.Property, _ *mapping.Column) bool { return prop.Key == "password" },
		func(Request) (*forms.FieldSpec, error) { return nil, nil })

	spec, err := conv.Convert(nil, nil, columnProp("password", mapping.String(64), false), forms.Args{}, nil)
	if err != nil || spec != nil {
		t.Fatalf("expected skipped property, got %v (%v)", spec, err)
	}
	if names := conv.Registry().Names(); names[0] != "secrets" {
		t.Fatalf("higher priority rules sort first, got %v", names)
	}
}

func TestConverter_ColumnDefaults(t *testing.T) {
	conv := NewConverter()
	prop := columnProp("status", mapping.String(10), false)
	prop.Columns[0].Default = mapping.ColumnDefault{Arg: func() string { return "draft" }}

	spec, err := conv.Convert(nil, nil, prop, forms.Args{Default: "caller"}, nil)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if spec.Args.Default != "draft" {
		t.Fatalf("expected evaluated column default, got %#v", spec.Args.Default)
	}

	prop.Columns[0].Default = mapping.ColumnDefault{}
	spec, _ = conv.Convert(nil, nil, prop, forms.Args{Default: "caller"}, nil)
	if spec.Args.Default != "caller" {
		t.Fatalf("empty column default keeps the caller default, got %#v", spec.Args.Default)
	}
}

func TestConverter_PropertyShapes(t *testing.T) {
	conv := NewConverter()

	spec, err := conv.Convert(nil, nil, mapping.Property{Key: "computed"}, forms.Args{}, nil)
	if spec != nil || err != nil {
		t.Fatalf("properties without columns are skipped, got %v (%v)", spec, err)
	}

	composite := mapping.Property{Key: "point", Columns: []mapping.Column{{Name: "x", Type: mapping.Integer()}, {Name: "y", Type: mapping.Integer()}}}
	if _, err := conv.Convert(nil, nil, composite, forms.Args{}, nil); !errors.Is(err, ErrMultipleColumns) {
		t.Fatalf("expected ErrMultipleColumns, got %v", err)
	}
}

func TestConversionError_Message(t *testing.T) {
	err := &ConversionError{Model: "Student", Property: "slug", Column: "slug_col", Tried: []string{"a.Slug", "Slug"}, Err: ErrNoConverter}
	want := "orm: cannot convert Student.slug (column slug_col) [a.Slug, Slug]: orm: no converter for column type"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
