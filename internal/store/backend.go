package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

var errNoRows = errors.New("no rows")

// querier is the statement surface shared by the SQLite and PostgreSQL
// backends. Statements use ? placeholders; backends rebind as needed.
type querier interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (rows, error)
	QueryRow(ctx context.Context, query string, args ...any) row
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// row.Scan returns errNoRows when the query matched nothing.
type row interface {
	Scan(dest ...any) error
}

type backend interface {
	querier
	InTx(ctx context.Context, fn func(q querier) error) error
	Driver() string
	Close() error
}

// rebind rewrites ? placeholders to PostgreSQL's $n form. Placeholders inside
// single-quoted literals are left alone.
func rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
