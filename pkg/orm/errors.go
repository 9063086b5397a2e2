package orm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoConverter is wrapped by ConversionError when no rule serves a
	// column type.
	ErrNoConverter = errors.New("orm: no converter for column type")
	// ErrSessionRequired is wrapped by ConversionError when a relationship is
	// converted without a session to enumerate candidate rows.
	ErrSessionRequired = errors.New("orm: relationship conversion requires a session")
	// ErrMultipleColumns is wrapped by ConversionError for properties backed
	// by more than one column.
	ErrMultipleColumns = errors.New("orm: multiple-column properties are not supported")
)

// ConversionError aborts building a form: a property that is not excluded
// could not be converted.
type ConversionError struct {
	Model    string
	Property string
	Column   string
	// Tried lists the type tags looked up, most specific first.
	Tried []string
	Err   error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	b.WriteString("orm: cannot convert ")
	if e.Model != "" {
		b.WriteString(e.Model)
		b.WriteByte('.')
	}
	b.WriteString(e.Property)
	if e.Column != "" && e.Column != e.Property {
		fmt.Fprintf(&b, " (column %s)", e.Column)
	}
	if len(e.Tried) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Tried, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// TypeError reports an argument of the wrong kind, such as a model without
// mapping metadata.
type TypeError struct {
	Arg   string
	Value any
	Err   error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("orm: argument %s must be a mapped model, got %T", e.Arg, e.Value)
}

func (e *TypeError) Unwrap() error { return e.Err }
