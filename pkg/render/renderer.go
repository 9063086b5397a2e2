package render

import (
	"context"

	"github.com/goliatone/go-ormform/pkg/forms"
)

// Renderer converts a bound form into a byte representation.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form *forms.Form, options RenderOptions) ([]byte, error)
}
