package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
)

// ErrorMapping splits an error payload into input-level and form-level
// messages.
type ErrorMapping struct {
	// Fields is keyed by submitted input name.
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload resolves payload keys against the inputs of a bound form.
// Keys may be input names ("students-_MFL_PK-1-full_name") or field paths
// in dotted, bracket or JSON pointer notation, where list entries are
// addressed by position ("/students/0/full_name"). Paths resolve to the
// deepest input they reach; unknown keys become form-level errors.
func MapErrorPayload(form *forms.Form, payload map[string][]string) ErrorMapping {
	var mapping ErrorMapping
	if form == nil || len(payload) == 0 {
		return mapping
	}
	paths := make(map[string]string)
	collectInputPaths(form, "", paths)

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		name, ok := resolveErrorKey(key, paths)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[name] = normalizeMessages(append(mapping.Fields[name], messages...))
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func collectInputPaths(form *forms.Form, prefix string, out map[string]string) {
	for _, field := range form.Fields() {
		path := joinPath(prefix, field.ShortName())
		out[field.Name()] = field.Name()
		out[path] = field.Name()

		list, ok := field.(*fields.ModelListField)
		if !ok {
			continue
		}
		for i, entry := range list.Entries() {
			entryPath := joinPath(path, strconv.Itoa(i))
			out[entry.Name()] = field.Name()
			out[entryPath] = field.Name()
			collectInputPaths(entry.Form, entryPath, out)
		}
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func resolveErrorKey(raw string, paths map[string]string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}
	if name, ok := paths[trimmed]; ok {
		return name, true
	}

	segments := parsePathSegments(trimmed)
	for _, variant := range [][]string{segments, dropWrapperSegments(segments)} {
		for n := len(variant); n > 0; n-- {
			if name, ok := paths[strings.Join(variant[:n], ".")]; ok {
				return name, true
			}
		}
	}
	return "", false
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	for len(segments) > 0 {
		switch strings.ToLower(segments[0]) {
		case "body", "request", "payload", "data":
			segments = segments[1:]
			continue
		}
		break
	}
	return segments
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(key) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}
