package ledger

import (
	"context"
)

// RowReader reads ledger rows.
type RowReader interface {
	// ReadRows calls fn for every row whose key falls in any of ranges and
	// which passes cond, in ascending key order, each row at most once.
	// Reading stops early when fn returns false.
	ReadRows(ctx context.Context, ranges []RowRange, cond *Condition, fn func(Row) bool) error
}

// Assembler groups a stream of cells sorted by row key into rows. Backends
// that store one cell per record feed it their scan results.
type Assembler struct {
	emit    func(Row) bool
	cur     *Row
	stopped bool
}

// NewAssembler returns an Assembler that passes each completed row to emit.
func NewAssembler(emit func(Row) bool) *Assembler {
	return &Assembler{emit: emit}
}

// Add appends a cell. The first value seen for a cell is kept, so backends
// holding several versions feed the newest first. It returns false once emit has asked to stop, after
// which further cells are ignored.
func (a *Assembler) Add(key, family, qualifier string, value []byte) bool {
	if a.stopped {
		return false
	}
	if a.cur != nil && a.cur.Key != key {
		if !a.Flush() {
			return false
		}
	}
	if a.cur == nil {
		a.cur = &Row{Key: key, Families: make(map[string]map[string][]byte)}
	}
	cells, ok := a.cur.Families[family]
	if !ok {
		cells = make(map[string][]byte)
		a.cur.Families[family] = cells
	}
	if _, seen := cells[qualifier]; !seen {
		cells[qualifier] = value
	}
	return true
}

// Flush emits the row being assembled, if any.
func (a *Assembler) Flush() bool {
	if a.stopped {
		return false
	}
	if a.cur == nil {
		return true
	}
	row := *a.cur
	a.cur = nil
	if !a.emit(row) {
		a.stopped = true
		return false
	}
	return true
}
