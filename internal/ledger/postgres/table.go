// Package postgres reads the transactions ledger from PostgreSQL. Each cell
// version is one record; a partition's rows all live in one shard table.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/offers-retriever/internal/ledger"
)

// Table reads one transactions shard table.
type Table struct {
	pool         *pgxpool.Pool
	name         string
	queryTimeout time.Duration
}

// NewTable creates a reader over the named table.
// queryTimeout sets the per-query context deadline; zero means no timeout.
func NewTable(pool *pgxpool.Pool, name string, queryTimeout time.Duration) *Table {
	return &Table{pool: pool, name: name, queryTimeout: queryTimeout}
}

var _ ledger.RowReader = (*Table)(nil)

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.queryTimeout > 0 {
		return context.WithTimeout(ctx, t.queryTimeout)
	}
	return ctx, func() {}
}

// ReadRows scans the latest version of every cell in ranges. The condition
// is evaluated in the database so non-matching rows never leave it.
func (t *Table) ReadRows(ctx context.Context, ranges []ledger.RowRange, cond *ledger.Condition, fn func(ledger.Row) bool) error {
	if len(ranges) == 0 {
		return nil
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	sql, args := t.readSQL(ranges, cond)
	rows, err := t.pool.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	asm := ledger.NewAssembler(fn)
	for rows.Next() {
		var (
			key, family, qualifier string
			value                  []byte
		)
		if err := rows.Scan(&key, &family, &qualifier, &value); err != nil {
			return fmt.Errorf("scan %s: %w", t.name, err)
		}
		if !asm.Add(key, family, qualifier, value) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read %s: %w", t.name, err)
	}
	asm.Flush()
	return nil
}

func (t *Table) readSQL(ranges []ledger.RowRange, cond *ledger.Condition) (string, []any) {
	var args []any
	bounds := make([]string, 0, len(ranges))
	for _, r := range ranges {
		args = append(args, r.Start)
		term := fmt.Sprintf("row_key >= $%d", len(args))
		if r.End != "" {
			args = append(args, r.End)
			term += fmt.Sprintf(" AND row_key < $%d", len(args))
		}
		bounds = append(bounds, "("+term+")")
	}
	inRanges := "(" + strings.Join(bounds, " OR ") + ")"
	where := inRanges

	// The subquery reuses the range placeholders so it only visits the
	// scanned rows.
	if cond != nil {
		args = append(args, cond.Family, cond.Qualifier, cond.Values)
		n := len(args)
		where += fmt.Sprintf(` AND row_key IN (
			SELECT row_key FROM %s WHERE %s AND family = $%d AND qualifier = $%d AND value = ANY($%d)
		)`, t.name, inRanges, n-2, n-1, n)
	}

	sql := fmt.Sprintf(`
		SELECT DISTINCT ON (row_key, family, qualifier) row_key, family, qualifier, value
		FROM %s
		WHERE %s
		ORDER BY row_key, family, qualifier, added_id DESC`, t.name, where)
	return sql, args
}
