package postgres

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/offers-retriever/internal/ledger"
	"github.com/ryanbastic/offers-retriever/internal/shard"
)

// ShardedReader routes ledger reads to the shard table owning each
// partition.
type ShardedReader struct {
	pool   *pgxpool.Pool
	router *shard.Router[*Table]
}

// NewShardedReader creates a reader over transactions_0000 through
// transactions_{numShards-1}.
func NewShardedReader(pool *pgxpool.Pool, numShards int, queryTimeout time.Duration) *ShardedReader {
	router := shard.NewRouter[*Table](numShards)
	for i := 0; i < router.NumShards(); i++ {
		router.Register(shard.ID(i), NewTable(pool, ShardTable(i), queryTimeout))
	}
	return &ShardedReader{pool: pool, router: router}
}

var _ ledger.RowReader = (*ShardedReader)(nil)

// ReadRows groups ranges by the shard table owning their partition and
// reads each table in turn. Rows of one partition therefore arrive in key
// order.
func (r *ShardedReader) ReadRows(ctx context.Context, ranges []ledger.RowRange, cond *ledger.Condition, fn func(ledger.Row) bool) error {
	byTable := make(map[*Table][]ledger.RowRange)
	for _, rr := range ranges {
		table, err := r.router.ForKey(ledger.PartitionOf(rr.Start))
		if err != nil {
			return err
		}
		byTable[table] = append(byTable[table], rr)
	}

	tables := make([]*Table, 0, len(byTable))
	for table := range byTable {
		tables = append(tables, table)
	}
	slices.SortFunc(tables, func(a, b *Table) int {
		return strings.Compare(a.Name(), b.Name())
	})

	stopped := false
	for _, table := range tables {
		err := table.ReadRows(ctx, byTable[table], cond, func(row ledger.Row) bool {
			if !fn(row) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil {
			return fmt.Errorf("%s: %w", table.Name(), err)
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// Ping checks that the ledger database is reachable.
func (r *ShardedReader) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
