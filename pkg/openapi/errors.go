package openapi

import (
	"errors"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrorPayload flattens a ValidateData error into messages keyed by JSON
// pointer, the shape accepted by render.MapErrorPayload. Errors without a
// location are keyed by "".
func ErrorPayload(err error) map[string][]string {
	if err == nil {
		return nil
	}
	out := map[string][]string{}
	collectErrors(err, out)
	return out
}

func collectErrors(err error, out map[string][]string) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, item := range multi {
			collectErrors(item, out)
		}
		return
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		key := pointer(schemaErr.JSONPointer())
		out[key] = append(out[key], schemaErr.Reason)
		return
	}
	out[""] = append(out[""], err.Error())
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func pointer(path []string) string {
	if len(path) == 0 {
		return ""
	}
	var b strings.Builder
	for _, segment := range path {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(segment))
	}
	return b.String()
}
