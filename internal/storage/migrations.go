package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OffersTable is the default offers table name.
const OffersTable = "offers"

// RunMigrations creates the offers table and its lookup indexes. The table is
// owned by the external writer; this only makes a fresh database readable.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, table string) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			pk          TEXT COLLATE "C" PRIMARY KEY,
			mint        TEXT NOT NULL,
			owner       TEXT NOT NULL,
			collection  TEXT,
			verifeyed   BOOLEAN NOT NULL DEFAULT false,
			price       BIGINT NOT NULL,
			add_epoch   BIGINT NOT NULL,
			tags        TEXT[] NOT NULL DEFAULT '{}',
			extra       JSONB NOT NULL DEFAULT '{}'
		);

		CREATE INDEX IF NOT EXISTS idx_%s_collection
			ON %s (collection, price, pk);
		CREATE INDEX IF NOT EXISTS idx_%s_unverified
			ON %s (price, pk) WHERE verifeyed = false;
		CREATE INDEX IF NOT EXISTS idx_%s_mint_owner
			ON %s (mint, owner);
		CREATE INDEX IF NOT EXISTS idx_%s_tags
			ON %s USING GIN (tags);
	`, table, table, table, table, table, table, table, table, table)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate %s: %w", table, err)
	}
	return nil
}
