package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/orangehats/orangehats/internal/query"
)

// psq builds sqlite statements
var psq = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// orderClause renders an ORDER BY term for a column chosen by an allow-list switch
func orderClause(column string, dir query.Direction) string {
	if dir == query.Desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// textOrder orders a text column ignoring ASCII case
func textOrder(column string, dir query.Direction) string {
	return orderClause(column+" COLLATE NOCASE", dir)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsAny matches rows where any column contains term, ignoring case
func containsAny(term string, columns ...string) squirrel.Or {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	or := squirrel.Or{}
	for _, c := range columns {
		or = append(or, squirrel.Expr("LOWER("+c+`) LIKE ? ESCAPE '\'`, pattern))
	}
	return or
}

// lister implements query.Source for a single table
type lister[T any] struct {
	db      *sqlx.DB
	table   string
	columns []string
	search  func(term string) squirrel.Sqlizer
}

func (l lister[T]) filtered(b squirrel.SelectBuilder, term string) squirrel.SelectBuilder {
	if term != "" && l.search != nil {
		b = b.Where(l.search(term))
	}
	return b
}

func (l lister[T]) Count(ctx context.Context, term string) (int, error) {
	sqlQuery, args, err := l.filtered(psq.Select("COUNT(*)").From(l.table), term).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := l.db.GetContext(ctx, &count, sqlQuery, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", l.table, err)
	}
	return count, nil
}

func (l lister[T]) Find(ctx context.Context, term, clause string, limit, offset int) ([]T, error) {
	b := l.filtered(psq.Select(l.columns...).From(l.table), term).
		OrderBy(clause, "rowid ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	return l.selectAll(ctx, b)
}

// FindAll returns matching rows in insertion order
func (l lister[T]) FindAll(ctx context.Context, term string) ([]T, error) {
	b := l.filtered(psq.Select(l.columns...).From(l.table), term).OrderBy("rowid ASC")
	return l.selectAll(ctx, b)
}

func (l lister[T]) selectAll(ctx context.Context, b squirrel.SelectBuilder) ([]T, error) {
	sqlQuery, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := []T{}
	if err := l.db.SelectContext(ctx, &items, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", l.table, err)
	}
	return items, nil
}

// getOne scans a single row; it returns nil, nil when no row matches
func getOne[T any](ctx context.Context, db *sqlx.DB, b squirrel.SelectBuilder) (*T, error) {
	sqlQuery, args, err := b.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := []T{}
	if err := db.SelectContext(ctx, &items, sqlQuery, args...); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// exec runs a built statement and reports whether any row was affected
func exec(ctx context.Context, db sqlx.ExecerContext, b squirrel.Sqlizer) (bool, error) {
	sqlQuery, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	result, err := db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
