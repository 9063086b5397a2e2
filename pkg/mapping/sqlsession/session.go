// Package sqlsession implements mapping.Session over database/sql.
package sqlsession

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-ormform/pkg/forms"
	"github.com/goliatone/go-ormform/pkg/mapping"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger traces executed queries at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session loads every row of a mapped table with a single SELECT. It owns no
// transaction; callers manage commits on the underlying database.
type Session struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ mapping.Session = (*Session)(nil)

// New wraps an open database.
func New(db *sql.DB, opts ...Option) *Session {
	s := &Session{db: db, logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open connects with driver ("sqlite3" or "postgres") and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Session, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db, opts...), nil
}

// DB returns the underlying database.
func (s *Session) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Session) Close() error { return s.db.Close() }

// All selects the scalar columns of m and builds one row per result through
// m.New, ordered by primary key.
func (s *Session) All(ctx context.Context, m mapping.Mapper) ([]any, error) {
	query, props := SelectQuery(m)
	if len(props) == 0 {
		return nil, fmt.Errorf("sqlsession: %s has no columns", m.Name())
	}
	s.logger.Debug().Str("model", m.Name()).Str("query", query).Msg("loading rows")

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", m.Table(), err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		values := make([]any, len(props))
		dest := make([]any, len(props))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", m.Table(), err)
		}
		row := m.New()
		for i, prop := range props {
			if err := forms.SetAttr(row, prop.Key, normalize(values[i], prop.Columns[0].Type)); err != nil {
				return nil, fmt.Errorf("load %s.%s: %w", m.Name(), prop.Key, err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", m.Table(), err)
	}
	return out, nil
}

// SelectQuery builds the SELECT statement for m and returns the scalar
// properties in column order.
func SelectQuery(m mapping.Mapper) (string, []mapping.Property) {
	var (
		props   []mapping.Property
		columns []string
		keys    []string
	)
	for _, prop := range m.Properties() {
		if prop.Relationship != nil || len(prop.Columns) != 1 {
			continue
		}
		col := prop.Columns[0]
		props = append(props, prop)
		columns = append(columns, pq.QuoteIdentifier(col.Name))
		if col.PrimaryKey {
			keys = append(keys, pq.QuoteIdentifier(col.Name))
		}
	}
	query := "SELECT " + strings.Join(columns, ", ") + " FROM " + pq.QuoteIdentifier(m.Table())
	if len(keys) > 0 {
		query += " ORDER BY " + strings.Join(keys, ", ")
	}
	return query, props
}

// normalize turns driver byte slices into strings for textual columns.
func normalize(value any, typ mapping.ColumnType) any {
	raw, ok := value.([]byte)
	if !ok {
		return value
	}
	for _, name := range typ.Hierarchy() {
		if name.Name == "LargeBinary" || name.Name == "_Binary" {
			return append([]byte(nil), raw...)
		}
	}
	return string(raw)
}
