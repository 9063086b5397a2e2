package template

import "io"

// TemplateRenderer renders a named template from a bundle. The vanilla
// renderer and the server pages only need RenderTemplate; the gotemplate
// Engine adds inline rendering, filters and globals on top.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}

// FuncFilter is the signature of a template filter. param is nil when the
// filter is used without an argument.
type FuncFilter func(input any, param any) (any, error)
