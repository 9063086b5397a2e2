package orm

import (
	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
)

type builtin struct {
	name    string
	tags    []string
	convert ConvertFunc
}

// builtinTable is the static tag table installed by Builtins.
var builtinTable = []builtin{
	{"string", []string{"String"}, convertString},
	{"text", []string{"Text", "LargeBinary", "Binary"}, convertText},
	{"boolean", []string{"Boolean", mapping.PackageMSSQL + ".BIT"}, convertBoolean},
	{"date", []string{"Date"}, convertDate},
	{"datetime", []string{"DateTime"}, convertDateTime},
	{"enum", []string{"Enum"}, convertEnum},
	{"integer", []string{"Integer"}, convertInteger},
	{"numeric", []string{"Numeric"}, convertNumeric},
	{"mysql-year", []string{mapping.PackageMySQL + ".YEAR", "dialects.mysql.base.YEAR"}, convertYear},
	{"pg-inet", []string{mapping.PackagePostgreSQL + ".INET"}, convertInet},
	{"pg-macaddr", []string{mapping.PackagePostgreSQL + ".MACADDR"}, convertMacaddr},
	{"pg-uuid", []string{mapping.PackagePostgreSQL + ".UUID"}, convertUUID},
	{"many-to-one", []string{string(mapping.ManyToOne)}, convertManyToOne},
	{"to-many", []string{string(mapping.ManyToMany), string(mapping.OneToMany)}, convertToMany},
}

// Builtins returns a registry holding the built-in conversions at priority 0.
func Builtins() *Registry {
	reg := NewRegistry()
	for _, entry := range builtinTable {
		reg.Register(entry.name, 0, entry.convert, entry.tags...)
	}
	return reg
}

func specOf(spec forms.FieldSpec) (*forms.FieldSpec, error) {
	return &spec, nil
}

func stringCommon(req *Request) {
	if req.Column != nil && req.Column.Type.Length > 0 {
		req.Args.AddValidators(forms.MaxLength(req.Column.Type.Length))
	}
}

func convertString(req Request) (*forms.FieldSpec, error) {
	stringCommon(&req)
	return specOf(forms.String(req.Args))
}

func convertText(req Request) (*forms.FieldSpec, error) {
	stringCommon(&req)
	return specOf(forms.TextArea(req.Args))
}

func convertBoolean(req Request) (*forms.FieldSpec, error) {
	return specOf(forms.Boolean(req.Args))
}

func convertDate(req Request) (*forms.FieldSpec, error) {
	return specOf(forms.Date(req.Args))
}

func convertDateTime(req Request) (*forms.FieldSpec, error) {
	return specOf(forms.DateTime(req.Args))
}

func convertEnum(req Request) (*forms.FieldSpec, error) {
	var choices []forms.Choice
	if req.Column != nil {
		for _, value := range req.Column.Type.Enums {
			choices = append(choices, forms.Choice{Value: value, Label: value})
		}
	}
	req.Args.Choices = choices
	return specOf(forms.Select(req.Args))
}

func convertInteger(req Request) (*forms.FieldSpec, error) {
	if req.Column != nil && req.Column.Type.Unsigned {
		req.Args.AddValidators(forms.AtLeast(0))
	}
	return specOf(forms.Integer(req.Args))
}

// Places is left to the caller; unset means the storage precision applies.
func convertNumeric(req Request) (*forms.FieldSpec, error) {
	return specOf(forms.Decimal(req.Args))
}

func convertYear(req Request) (*forms.FieldSpec, error) {
	req.Args.AddValidators(forms.Between(1901, 2155))
	return specOf(forms.String(req.Args))
}

func convertInet(req Request) (*forms.FieldSpec, error) {
	req.Args.SetDefaultLabel("IP Address")
	req.Args.AddValidators(forms.IPAddress())
	return specOf(forms.String(req.Args))
}

func convertMacaddr(req Request) (*forms.FieldSpec, error) {
	req.Args.SetDefaultLabel("MAC Address")
	req.Args.AddValidators(forms.MacAddress())
	return specOf(forms.String(req.Args))
}

func convertUUID(req Request) (*forms.FieldSpec, error) {
	req.Args.SetDefaultLabel("UUID")
	req.Args.AddValidators(forms.UUID())
	return specOf(forms.String(req.Args))
}

func convertManyToOne(req Request) (*forms.FieldSpec, error) {
	return specOf(fields.QuerySelect(req.Args))
}

func convertToMany(req Request) (*forms.FieldSpec, error) {
	return specOf(fields.QuerySelectMultiple(req.Args))
}
