package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/offers-retriever/internal/offer"
	"github.com/ryanbastic/offers-retriever/internal/query"
)

// columns maps query fields to offers table columns.
var columns = map[query.Field]string{
	query.FieldCollection: "collection",
	query.FieldVerifeyed:  "verifeyed",
	query.FieldMint:       "mint",
	query.FieldOwner:      "owner",
	query.FieldPrice:      "price",
	query.FieldAddEpoch:   "add_epoch",
}

const selectColumns = `pk, mint, owner, COALESCE(collection, ''), verifeyed, price, add_epoch, tags, extra`

// PostgresStore implements OfferStore over a PostgreSQL offers table.
type PostgresStore struct {
	pool         *pgxpool.Pool
	table        string
	queryTimeout time.Duration
}

// NewPostgresStore creates an OfferStore reading the given table.
// queryTimeout sets the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, table string, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		table:        table,
		queryTimeout: queryTimeout,
	}
}

var _ OfferStore = (*PostgresStore)(nil)

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

func (s *PostgresStore) GetOffer(ctx context.Context, pk string) (*offer.Offer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE pk = $1`, selectColumns, s.table)

	o, err := scanOffer(s.pool.QueryRow(ctx, sql, pk))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) QueryPage(ctx context.Context, q query.Query, cursor string, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	after, err := ResumeAfter(q, cursor)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var args []any
	where, err := whereClause(q.Predicates, &args)
	if err != nil {
		return nil, err
	}
	if after != nil {
		where += " AND " + keysetClause(q.Orders, after, &args)
	}
	args = append(args, limit+1)

	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d`,
		selectColumns, s.table, where, orderClause(q.Orders), len(args))

	offers, err := s.queryOffers(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}

	page := &Page{Offers: offers}
	if len(offers) > limit {
		page.Offers = offers[:limit]
		next, err := CursorAfter(q, page.Offers[limit-1])
		if err != nil {
			return nil, fmt.Errorf("encode next cursor: %w", err)
		}
		page.NextCursor = next
		page.HasMore = true
	}
	return page, nil
}

func (s *PostgresStore) QueryOffers(ctx context.Context, q query.Query, limit int) ([]offer.Offer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var args []any
	where, err := whereClause(q.Predicates, &args)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s`,
		selectColumns, s.table, where, orderClause(q.Orders))
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	offers, err := s.queryOffers(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	return offers, nil
}

func (s *PostgresStore) CountOffers(ctx context.Context, q query.Query) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var args []any
	where, err := whereClause(q.Predicates, &args)
	if err != nil {
		return 0, err
	}

	var n int
	sql := fmt.Sprintf(`SELECT count(pk) FROM %s WHERE %s`, s.table, where)
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count offers: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) queryOffers(ctx context.Context, sql string, args []any) ([]offer.Offer, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

func scanOffer(row pgx.Row) (*offer.Offer, error) {
	var o offer.Offer
	var extra map[string]any
	if err := row.Scan(&o.PK, &o.Mint, &o.Owner, &o.Collection, &o.Verifeyed,
		&o.Price, &o.AddEpoch, &o.Tags, &extra); err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		o.Extra = extra
	}
	return &o, nil
}

// whereClause renders the predicates as a conjunction, appending parameters
// to args.
func whereClause(preds []query.Predicate, args *[]any) (string, error) {
	if len(preds) == 0 {
		return "TRUE", nil
	}
	terms := make([]string, 0, len(preds))
	for _, p := range preds {
		*args = append(*args, p.Value)
		if p.Field == query.FieldTags {
			terms = append(terms, fmt.Sprintf("$%d = ANY(tags)", len(*args)))
			continue
		}
		col, ok := columns[p.Field]
		if !ok {
			return "", fmt.Errorf("unsupported filter field %q", p.Field)
		}
		terms = append(terms, fmt.Sprintf("%s = $%d", col, len(*args)))
	}
	return strings.Join(terms, " AND "), nil
}

func orderClause(orders []query.Order) string {
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, columns[o.Field]+" "+dir)
	}
	parts = append(parts, "pk ASC")
	return strings.Join(parts, ", ")
}

// keysetClause renders "row sorts after c" for the ordering plus the pk
// tie-break, as a disjunction of prefix-equal comparisons:
//
//	(a > x) OR (a = x AND b < y) OR (a = x AND b = y AND pk > z)
func keysetClause(orders []query.Order, c *Cursor, args *[]any) string {
	var branches []string
	var equal []string
	for i, o := range orders {
		col := columns[o.Field]
		*args = append(*args, c.Values[i])
		op := ">"
		if o.Desc {
			op = "<"
		}
		cmp := fmt.Sprintf("%s %s $%d", col, op, len(*args))
		branches = append(branches, "("+strings.Join(append(append([]string(nil), equal...), cmp), " AND ")+")")
		equal = append(equal, fmt.Sprintf("%s = $%d", col, len(*args)))
	}
	*args = append(*args, c.PK)
	cmp := fmt.Sprintf("pk > $%d", len(*args))
	branches = append(branches, "("+strings.Join(append(equal, cmp), " AND ")+")")
	return "(" + strings.Join(branches, " OR ") + ")"
}
