package render

import (
	"errors"
	"strings"
)

// ErrMissingTranslator is passed to the missing handler when no translator is
// configured.
var ErrMissingTranslator = errors.New("render: translator is nil")

// Translator resolves message keys for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate calls fn.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler returns the text used when key has no
// translation. fallback is the untranslated text.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

func missingTranslationDefault(_, key, fallback string, _ error) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

// LabelKey is the message key of a field label: "<form>.<field>.label".
func LabelKey(form, field string) string {
	return form + "." + field + ".label"
}

// DescriptionKey is the message key of a field description.
func DescriptionKey(form, field string) string {
	return form + "." + field + ".description"
}

type localizer struct {
	locale     string
	translator Translator
	onMissing  MissingTranslationHandler
}

func newLocalizer(opts RenderOptions) localizer {
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	return localizer{locale: opts.Locale, translator: opts.Translator, onMissing: onMissing}
}

// text translates key, falling back to fallback. Without a translator the
// fallback is returned untouched.
func (l localizer) text(key, fallback string) string {
	if l.translator == nil {
		return fallback
	}
	result, err := l.translator.Translate(l.locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return l.onMissing(l.locale, key, fallback, err)
}

// TemplateFuncs returns a "translate" helper for template engines:
//
//	translate(locale, key, fallback) string
func TemplateFuncs(t Translator, onMissing MissingTranslationHandler) map[string]any {
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	return map[string]any{
		"translate": func(locale, key, fallback string) string {
			key = strings.TrimSpace(key)
			if key == "" {
				return fallback
			}
			if t == nil {
				return onMissing(locale, key, fallback, ErrMissingTranslator)
			}
			return localizer{locale: locale, translator: t, onMissing: onMissing}.text(key, fallback)
		},
	}
}
