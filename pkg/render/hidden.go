package render

import (
	"fmt"
	"slices"
	"strings"
)

// HiddenField is a hidden input emitted ahead of the generated fields.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden builds a HiddenField, formatting value with fmt.
func Hidden(name string, value any) HiddenField {
	var text string
	if value != nil {
		text = fmt.Sprint(value)
	}
	return HiddenField{Name: strings.TrimSpace(name), Value: text}
}

// CSRFToken carries a request token under the input name the handler reads,
// for example "_csrf".
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// Identity carries the primary key of the edited row so a handler can reload
// it on submit. A nil key yields no field.
func Identity(name string, key any) []HiddenField {
	if key == nil {
		return nil
	}
	return []HiddenField{Hidden(name, key)}
}

// CollectHidden drops unnamed entries, keeps the last value per name and
// returns the result ordered by name. It returns nil when nothing remains.
func CollectHidden(fields ...HiddenField) []HiddenField {
	last := make(map[string]int, len(fields))
	for i, field := range fields {
		if name := strings.TrimSpace(field.Name); name != "" {
			last[name] = i
		}
	}
	if len(last) == 0 {
		return nil
	}

	out := make([]HiddenField, 0, len(last))
	for name, i := range last {
		out = append(out, HiddenField{Name: name, Value: fields[i].Value})
	}
	slices.SortFunc(out, func(a, b HiddenField) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
