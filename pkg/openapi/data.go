package openapi

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
)

// FormData returns the data of a processed form in the shape exported by
// Schema: references become their keys, lists become arrays of objects,
// decimals become JSON numbers and dates use their field layout.
func FormData(form *forms.Form) map[string]any {
	out := make(map[string]any, len(form.Fields()))
	for _, field := range form.Fields() {
		out[field.ShortName()] = fieldData(field)
	}
	return out
}

func fieldData(field forms.Field) any {
	switch f := field.(type) {
	case *fields.ModelListField:
		entries := make([]any, 0, len(f.Entries()))
		for _, entry := range f.Entries() {
			entries = append(entries, FormData(entry.Form))
		}
		return entries
	case *fields.QuerySelectMultipleField:
		keys := f.Keys()
		out := make([]any, len(keys))
		for i, key := range keys {
			out[i] = key
		}
		return out
	case *fields.QuerySelectField:
		if f.Data() == nil {
			return nil
		}
		return f.Value()
	case *forms.DecimalField:
		if d, ok := f.Decimal(); ok {
			return json.Number(d.String())
		}
		return nil
	case *forms.DateField:
		if t, ok := f.Data().(time.Time); ok {
			return t.Format(f.Layout())
		}
		return nil
	}
	return field.Data()
}
