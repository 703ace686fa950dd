package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ryanbastic/offers-retriever/internal/ledger"
)

// DefaultTable is the ledger table name.
const DefaultTable = "transactions"

// Table reads ledger rows from a table with one record per cell version.
type Table struct {
	conn         *Conn
	name         string
	queryTimeout time.Duration
}

// NewTable creates a reader over the named table.
func NewTable(conn *Conn, name string, queryTimeout time.Duration) *Table {
	return &Table{conn: conn, name: name, queryTimeout: queryTimeout}
}

var _ ledger.RowReader = (*Table)(nil)

// CreateTable creates the ledger table if it does not exist.
func (t *Table) CreateTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			row_key    String,
			family     LowCardinality(String),
			qualifier  LowCardinality(String),
			value      String,
			version    UInt64
		) ENGINE = MergeTree()
		ORDER BY (row_key, family, qualifier, version)
		SETTINGS index_granularity = 8192
	`, t.name)
	if err := t.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", t.name, err)
	}
	return nil
}

// ReadRows scans the latest version of every cell in ranges, applying cond
// in the database.
func (t *Table) ReadRows(ctx context.Context, ranges []ledger.RowRange, cond *ledger.Condition, fn func(ledger.Row) bool) error {
	if len(ranges) == 0 {
		return nil
	}
	if t.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.queryTimeout)
		defer cancel()
	}

	sql, args := t.readSQL(ranges, cond)
	rows, err := t.conn.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	asm := ledger.NewAssembler(fn)
	for rows.Next() {
		var key, family, qualifier, value string
		if err := rows.Scan(&key, &family, &qualifier, &value); err != nil {
			return fmt.Errorf("scan %s: %w", t.name, err)
		}
		if !asm.Add(key, family, qualifier, []byte(value)) {
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
	var rangeArgs []any
	bounds := make([]string, 0, len(ranges))
	for _, r := range ranges {
		rangeArgs = append(rangeArgs, r.Start)
		term := "row_key >= ?"
		if r.End != "" {
			rangeArgs = append(rangeArgs, r.End)
			term += " AND row_key < ?"
		}
		bounds = append(bounds, "("+term+")")
	}
	inRanges := "(" + strings.Join(bounds, " OR ") + ")"
	where := inRanges
	args := append([]any(nil), rangeArgs...)

	// Positional placeholders cannot be reused, so the subquery repeats the
	// range arguments to stay within the scanned rows.
	if cond != nil && len(cond.Values) > 0 {
		args = append(args, rangeArgs...)
		args = append(args, cond.Family, cond.Qualifier)
		marks := make([]string, len(cond.Values))
		for i, v := range cond.StringValues() {
			marks[i] = "?"
			args = append(args, v)
		}
		where += fmt.Sprintf(` AND row_key IN (
			SELECT row_key FROM %s WHERE %s AND family = ? AND qualifier = ? AND value IN (%s)
		)`, t.name, inRanges, strings.Join(marks, ", "))
	}

	sql := fmt.Sprintf(`
		SELECT row_key, family, qualifier, argMax(value, version) AS latest
		FROM %s
		WHERE %s
		GROUP BY row_key, family, qualifier
		ORDER BY row_key, family, qualifier`, t.name, where)
	return sql, args
}

// Ping checks that ClickHouse is reachable.
func (t *Table) Ping(ctx context.Context) error {
	return t.conn.Ping(ctx)
}
