package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-ormform/pkg/fields"
	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetText         = "text"
	WidgetTextArea     = "textarea"
	WidgetHidden       = "hidden"
	WidgetCheckbox     = "checkbox"
	WidgetNumber       = "number"
	WidgetDate         = "date"
	WidgetDateTime     = "datetime"
	WidgetSelect       = "select"
	WidgetRadio        = "radio"
	WidgetMultiSelect  = "multi-select"
	WidgetCheckboxList = "checkbox-list"
	WidgetListTable    = "list-table"
)

// Matcher decides whether a widget renderer should handle the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widget renderers for fields based on explicit hints or
// registered matchers. Higher priority wins; ties fall back to registration
// order. An empty registry never resolves a widget.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in widget matchers
// registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence. The latest registration of a duplicate
// name does not replace earlier ones; both take part in resolution.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field. An explicit widget in the
// field metadata is honoured before matcher evaluation.
func (r *Registry) Resolve(field model.Field) (string, bool) {
	if explicit := explicitWidget(field); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Decorate implements model.Decorator, applying registry resolution to every
// field in the form, nested list templates included. Existing widget
// metadata is preserved.
func (r *Registry) Decorate(form *model.FormModel) error {
	if r == nil || form == nil {
		return nil
	}
	form.Fields = r.decorateFields(form.Fields)
	return nil
}

func (r *Registry) decorateFields(fields []model.Field) []model.Field {
	if len(fields) == 0 {
		return fields
	}
	decorated := make([]model.Field, len(fields))
	for idx, field := range fields {
		decorated[idx] = r.decorateField(field)
	}
	return decorated
}

func (r *Registry) decorateField(field model.Field) model.Field {
	if widget, ok := r.Resolve(field); ok && widget != "" {
		meta := make(map[string]string, len(field.Metadata)+1)
		for key, value := range field.Metadata {
			meta[key] = value
		}
		if meta["widget"] == "" {
			meta["widget"] = widget
		}
		field.Metadata = meta
	}
	if len(field.Nested) > 0 {
		field.Nested = r.decorateFields(field.Nested)
	}
	return field
}

func explicitWidget(field model.Field) string {
	if field.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(field.Metadata["widget"])
}

func kindIs(kinds ...forms.Kind) Matcher {
	return func(field model.Field) bool {
		for _, kind := range kinds {
			if field.Kind == string(kind) {
				return true
			}
		}
		return false
	}
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetListTable, 100, kindIs(fields.KindModelList))
	r.Register(WidgetRadio, 90, kindIs(fields.KindQueryRadio))
	r.Register(WidgetCheckboxList, 90, kindIs(fields.KindQueryCheckbox))
	r.Register(WidgetMultiSelect, 80, kindIs(fields.KindQuerySelectMultiple))
	r.Register(WidgetSelect, 80, func(field model.Field) bool {
		return kindIs(fields.KindQuerySelect, forms.KindSelect)(field) || len(field.Options) > 0
	})
	r.Register(WidgetHidden, 70, kindIs(forms.KindHidden))
	r.Register(WidgetCheckbox, 60, func(field model.Field) bool {
		return field.Type == model.FieldTypeBoolean
	})
	r.Register(WidgetDate, 50, func(field model.Field) bool {
		return field.Format == "date"
	})
	r.Register(WidgetDateTime, 50, func(field model.Field) bool {
		return field.Format == "date-time"
	})
	r.Register(WidgetNumber, 40, func(field model.Field) bool {
		return field.Type == model.FieldTypeInteger || field.Type == model.FieldTypeNumber
	})
	r.Register(WidgetTextArea, 30, kindIs(forms.KindTextArea))
	r.Register(WidgetText, 0, func(field model.Field) bool {
		return field.Type == model.FieldTypeString
	})
}
