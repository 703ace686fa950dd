// Package memory provides an in-memory ledger table for tests and fixtures.
package memory

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ryanbastic/offers-retriever/internal/ledger"
)

// Table is a sorted in-memory ledger. It applies conditions itself, the way
// a server-side filter would.
type Table struct {
	mu   sync.RWMutex
	rows map[string]ledger.Row

	scans atomic.Int64
	err   error
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{rows: make(map[string]ledger.Row)}
}

var _ ledger.RowReader = (*Table)(nil)

// Set writes one cell, replacing any previous value.
func (t *Table) Set(key, family, qualifier string, value []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[key]
	if !ok {
		row = ledger.Row{Key: key, Families: make(map[string]map[string][]byte)}
		t.rows[key] = row
	}
	cells, ok := row.Families[family]
	if !ok {
		cells = make(map[string][]byte)
		row.Families[family] = cells
	}
	cells[qualifier] = value
}

// PutTransaction writes a metadata row with the given type and price cells.
func (t *Table) PutTransaction(key, txType, price string) {
	t.Set(key, ledger.FamilyMetadata, ledger.QualifierType, []byte(txType))
	t.Set(key, ledger.FamilyMetadata, ledger.QualifierPrice, []byte(price))
}

// FailWith makes every subsequent read return err. A nil err restores reads.
func (t *Table) FailWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Scans returns the number of ReadRows calls served.
func (t *Table) Scans() int {
	return int(t.scans.Load())
}

func (t *Table) ReadRows(ctx context.Context, ranges []ledger.RowRange, cond *ledger.Condition, fn func(ledger.Row) bool) error {
	t.scans.Add(1)

	t.mu.RLock()
	if t.err != nil {
		err := t.err
		t.mu.RUnlock()
		return err
	}
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		if inAny(ranges, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	rows := make([]ledger.Row, 0, len(keys))
	for _, k := range keys {
		if row := t.rows[k]; cond.Match(row) {
			rows = append(rows, row)
		}
	}
	t.mu.RUnlock()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(row) {
			return nil
		}
	}
	return nil
}

func inAny(ranges []ledger.RowRange, key string) bool {
	for _, r := range ranges {
		if r.Contains(key) {
			return true
		}
	}
	return false
}
