package mapping

import "strings"

// Package names used to qualify built-in column types. Converters can be
// registered against either the qualified name ("sql.sqltypes.String") or the
// bare name ("String").
const (
	PackageGeneric    = "sql.sqltypes"
	PackagePostgreSQL = "dialects.postgresql.base"
	PackageMySQL      = "dialects.mysql.types"
	PackageMSSQL      = "dialects.mssql.base"
)

// TypeName identifies a column type by package and bare name.
type TypeName struct {
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	Name    string `json:"name" yaml:"name"`
}

// Qualified returns "<package>.<name>", or the bare name when no package is set.
func (t TypeName) Qualified() string {
	if t.Package == "" {
		return t.Name
	}
	return t.Package + "." + t.Name
}

func (t TypeName) String() string {
	return t.Qualified()
}

// ColumnType describes the value type of a column. Parents lists the
// ancestors of the type from most to least specific; it replaces runtime
// class-hierarchy inspection with an explicit description.
type ColumnType struct {
	TypeName
	Parents  []TypeName `json:"parents,omitempty"`
	Length   int        `json:"length,omitempty"`
	Unsigned bool       `json:"unsigned,omitempty"`
	Enums    []string   `json:"enums,omitempty"`
}

// Hierarchy returns the type itself followed by its ancestors.
func (t ColumnType) Hierarchy() []TypeName {
	out := make([]TypeName, 0, len(t.Parents)+1)
	out = append(out, t.TypeName)
	out = append(out, t.Parents...)
	return out
}

// WithLength returns a copy of the type carrying a declared length.
func (t ColumnType) WithLength(length int) ColumnType {
	t.Length = length
	return t
}

// AsUnsigned returns a copy of the type flagged as unsigned.
func (t ColumnType) AsUnsigned() ColumnType {
	t.Unsigned = true
	return t
}

// Derive creates a custom type that extends parent. The new type is tried
// before the parent chain during hierarchy-aware converter lookup.
func Derive(pkg, name string, parent ColumnType) ColumnType {
	parents := make([]TypeName, 0, len(parent.Parents)+1)
	parents = append(parents, parent.TypeName)
	parents = append(parents, parent.Parents...)
	return ColumnType{
		TypeName: TypeName{Package: pkg, Name: name},
		Parents:  parents,
		Length:   parent.Length,
		Unsigned: parent.Unsigned,
		Enums:    append([]string(nil), parent.Enums...),
	}
}

func generic(name string, parents ...string) ColumnType {
	t := ColumnType{TypeName: TypeName{Package: PackageGeneric, Name: name}}
	for _, parent := range parents {
		t.Parents = append(t.Parents, TypeName{Package: PackageGeneric, Name: parent})
	}
	return t
}

func dialect(pkg, name string, parents ...TypeName) ColumnType {
	return ColumnType{
		TypeName: TypeName{Package: pkg, Name: name},
		Parents:  parents,
	}
}

// String is a bounded character column; length 0 means unbounded.
func String(length int) ColumnType { return generic("String").WithLength(length) }

// Unicode is a String variant.
func Unicode(length int) ColumnType { return generic("Unicode", "String").WithLength(length) }

// Text is an unbounded character column.
func Text() ColumnType { return generic("Text", "String") }

// UnicodeText is a Text variant.
func UnicodeText() ColumnType { return generic("UnicodeText", "Text", "String") }

// LargeBinary is an unbounded binary column.
func LargeBinary() ColumnType { return generic("LargeBinary", "_Binary") }

// Enum is a string column restricted to values.
func Enum(values ...string) ColumnType {
	t := generic("Enum", "String")
	t.Enums = append([]string(nil), values...)
	return t
}

func Boolean() ColumnType      { return generic("Boolean") }
func Date() ColumnType         { return generic("Date") }
func DateTime() ColumnType     { return generic("DateTime") }
func Time() ColumnType         { return generic("Time") }
func Integer() ColumnType      { return generic("Integer") }
func BigInteger() ColumnType   { return generic("BigInteger", "Integer") }
func SmallInteger() ColumnType { return generic("SmallInteger", "Integer") }
func Numeric() ColumnType      { return generic("Numeric") }
func Float() ColumnType        { return generic("Float", "Numeric") }
func Real() ColumnType         { return generic("REAL", "Float", "Numeric") }
func Double() ColumnType       { return generic("DOUBLE", "Float", "Numeric") }
func Decimal() ColumnType      { return generic("DECIMAL", "Numeric") }

// PGInet is the PostgreSQL INET address type.
func PGInet() ColumnType { return dialect(PackagePostgreSQL, "INET") }

// PGMacaddr is the PostgreSQL MACADDR type.
func PGMacaddr() ColumnType { return dialect(PackagePostgreSQL, "MACADDR") }

// PGUUID is the PostgreSQL UUID type.
func PGUUID() ColumnType { return dialect(PackagePostgreSQL, "UUID") }

// MySQLYear is the MySQL YEAR type.
func MySQLYear() ColumnType { return dialect(PackageMySQL, "YEAR") }

// MSSQLBit is the SQL Server BIT type.
func MSSQLBit() ColumnType {
	return dialect(PackageMSSQL, "BIT", TypeName{Package: PackageGeneric, Name: "Boolean"})
}

var namedTypes = map[string]func() ColumnType{
	"string":       func() ColumnType { return String(0) },
	"unicode":      func() ColumnType { return Unicode(0) },
	"text":         Text,
	"unicodetext":  UnicodeText,
	"largebinary":  LargeBinary,
	"binary":       LargeBinary,
	"enum":         func() ColumnType { return Enum() },
	"boolean":      Boolean,
	"bool":         Boolean,
	"date":         Date,
	"datetime":     DateTime,
	"timestamp":    DateTime,
	"time":         Time,
	"integer":      Integer,
	"int":          Integer,
	"biginteger":   BigInteger,
	"bigint":       BigInteger,
	"smallinteger": SmallInteger,
	"smallint":     SmallInteger,
	"numeric":      Numeric,
	"float":        Float,
	"real":         Real,
	"double":       Double,
	"decimal":      Decimal,
	"inet":         PGInet,
	"macaddr":      PGMacaddr,
	"uuid":         PGUUID,
	"year":         MySQLYear,
	"bit":          MSSQLBit,
}

// TypeByName resolves a type keyword (as used in struct tags and catalog
// files) to a built-in column type. Lookup is case-insensitive.
func TypeByName(name string) (ColumnType, bool) {
	ctor, ok := namedTypes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ColumnType{}, false
	}
	return ctor(), true
}
