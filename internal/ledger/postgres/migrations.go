package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the transaction cell tables for shards [0, numShards).
// The tables are filled by the external writer.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, numShards int) error {
	for i := 0; i < numShards; i++ {
		table := ShardTable(i)
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				added_id    BIGSERIAL PRIMARY KEY,
				row_key     TEXT COLLATE "C" NOT NULL,
				family      TEXT NOT NULL,
				qualifier   TEXT NOT NULL,
				value       BYTEA NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			);

			CREATE INDEX IF NOT EXISTS idx_%s_cell
				ON %s (row_key, family, qualifier, added_id DESC);

			CREATE INDEX IF NOT EXISTS idx_%s_qualifier_value
				ON %s (family, qualifier, value);
		`, table, table, table, table, table)

		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migrate ledger shard %d: %w", i, err)
		}
	}
	return nil
}

// ShardTable returns the table name for a given shard number.
func ShardTable(shardID int) string {
	return fmt.Sprintf("transactions_%04d", shardID)
}
