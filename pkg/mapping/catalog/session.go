package catalog

import (
	"context"
	"fmt"

	"github.com/goliatone/go-ormform/pkg/mapping"
)

// Session serves the sample rows declared in the catalog.
type Session struct {
	catalog *Catalog
}

// Session returns an in-memory session over the catalog rows.
func (c *Catalog) Session() *Session {
	return &Session{catalog: c}
}

var _ mapping.Session = (*Session)(nil)

// All returns the declared rows of m.
func (s *Session) All(ctx context.Context, m mapping.Mapper) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model, ok := s.catalog.Model(m.Name())
	if !ok || model != m {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, m.Name())
	}
	rows := make([]any, len(model.rows))
	for i, rec := range model.rows {
		rows[i] = rec
	}
	return rows, nil
}
