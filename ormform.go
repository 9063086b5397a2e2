// Package ormform derives web forms from mapped models. It re-exports the
// entry points of the orm, orchestrator and vanilla packages so simple
// callers need a single import.
package ormform

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/orchestrator"
	"github.com/goliatone/go-ormform/pkg/orm"
	"github.com/goliatone/go-ormform/pkg/render"
	"github.com/goliatone/go-ormform/pkg/renderers/vanilla"
)

// RenderOptions describes per-request overrides such as the form action and
// server side validation errors.
type RenderOptions = render.RenderOptions

// Request describes one form interaction handled by an orchestrator.
type Request = orchestrator.Request

// ModelForm builds the form schema of a mapped model.
func ModelForm(model any, opts ...orm.Option) (*forms.Schema, error) {
	return orm.ModelForm(model, opts...)
}

// ModelFields returns the field specs of a mapped model keyed by property,
// keys included.
func ModelFields(model any, opts ...orm.Option) (map[string]forms.FieldSpec, error) {
	return orm.ModelFields(model, opts...)
}

// NewConverter returns a property converter with the built-in type table.
func NewConverter(opts ...orm.ConverterOption) *orm.Converter {
	return orm.NewConverter(opts...)
}

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GenerateHTML derives the form of model, binds it to object and renders it
// with the named renderer (vanilla when empty).
func GenerateHTML(ctx context.Context, model, object any, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Model:    model,
		Object:   object,
		Renderer: rendererName,
	})
}

// EmbeddedTemplates exposes the built-in vanilla renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the default stylesheet for serving over HTTP.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(ormform.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
