// Package retriever answers offer queries: it pages through the offers
// store, enriches each page with last sale prices from the ledger, and
// assembles the response envelope.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ryanbastic/offers-retriever/internal/ledger"
	"github.com/ryanbastic/offers-retriever/internal/metrics"
	"github.com/ryanbastic/offers-retriever/internal/offer"
	"github.com/ryanbastic/offers-retriever/internal/query"
	"github.com/ryanbastic/offers-retriever/internal/storage"
)

// PriceLookup returns the last sale price of each mint in a ledger
// partition. Mints without a sale are absent from the result.
type PriceLookup interface {
	LastSalePrices(ctx context.Context, partition string, mints []string) (map[string]int64, error)
}

// Config holds Service settings.
type Config struct {
	PageSize            int
	UnverifiedPartition string
}

// Service is safe for concurrent use; one instance serves every request.
type Service struct {
	store               storage.OfferStore
	prices              PriceLookup
	pageSize            int
	unverifiedPartition string
	logger              *slog.Logger
}

// NewService creates a Service. Zero Config fields take their defaults.
func NewService(store storage.OfferStore, prices PriceLookup, cfg Config, logger *slog.Logger) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = storage.DefaultPageSize
	}
	if cfg.UnverifiedPartition == "" {
		cfg.UnverifiedPartition = ledger.DefaultUnverifiedPartition
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:               store,
		prices:              prices,
		pageSize:            cfg.PageSize,
		unverifiedPartition: cfg.UnverifiedPartition,
		logger:              logger,
	}
}

// ListRequest selects one page of a collection, or of the unverified bucket
// when Collection is empty.
type ListRequest struct {
	Collection string
	Cursor     string
	Orders     []query.Order
	Filters    []query.Filter
}

// Envelope is the paginated response. PriceFloor and Count are only set on
// the first page, and describe the whole filtered set.
type Envelope struct {
	Offers     []map[string]any `json:"offers"`
	NextCursor *string          `json:"next_cursor"`
	PriceFloor *int64           `json:"price_floor"`
	Count      *int             `json:"count"`
}

// List returns one page of offers with last sale prices attached.
func (s *Service) List(ctx context.Context, req ListRequest) (*Envelope, error) {
	q := query.Build(req.Collection, req.Filters, req.Orders)

	page, err := s.store.QueryPage(ctx, q, req.Cursor, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}

	env := &Envelope{Offers: make([]map[string]any, 0, len(page.Offers))}
	if len(page.Offers) == 0 {
		return env, nil
	}

	prices := s.lastPrices(ctx, s.partition(req.Collection), page.Offers)
	for _, o := range page.Offers {
		env.Offers = append(env.Offers, offer.ToMap(o, prices))
	}
	if page.NextCursor != "" {
		next := page.NextCursor
		env.NextCursor = &next
	}

	if req.Cursor == "" {
		floor, count, err := s.aggregates(ctx, q)
		if err != nil {
			return nil, err
		}
		env.PriceFloor = floor
		env.Count = &count
	}
	return env, nil
}

func (s *Service) partition(collection string) string {
	if collection == "" {
		return s.unverifiedPartition
	}
	return collection
}

// lastPrices looks up the page's mints. A failed lookup is logged and
// yields no prices; the page is still served.
func (s *Service) lastPrices(ctx context.Context, partition string, offers []offer.Offer) map[string]int64 {
	if s.prices == nil {
		return nil
	}
	prices, err := s.prices.LastSalePrices(ctx, partition, offer.Mints(offers))
	if err != nil {
		metrics.EnrichmentFailed()
		s.logger.WarnContext(ctx, "serving offers without last prices",
			"partition", partition,
			"error", err,
		)
		return nil
	}
	return prices
}

// aggregates computes the price floor and total count of q's predicate set
// concurrently.
func (s *Service) aggregates(ctx context.Context, q query.Query) (*int64, int, error) {
	var (
		floor *int64
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cheapest, err := s.store.QueryOffers(gctx, q.WithOrders(query.Order{Field: query.FieldPrice}), 1)
		if err != nil {
			return fmt.Errorf("price floor: %w", err)
		}
		if len(cheapest) > 0 {
			p := cheapest[0].Price
			floor = &p
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountOffers(gctx, q)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		count = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return floor, count, nil
}

// ByPK returns the offer with the given primary key as a map, or an empty
// map when there is none.
func (s *Service) ByPK(ctx context.Context, pk string) (map[string]any, error) {
	o, err := s.store.GetOffer(ctx, pk)
	if errors.Is(err, storage.ErrOfferNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return offer.ToMap(*o, nil), nil
}

// ByMint returns the lowest-pk offer for mint, or an empty map when there
// is none.
func (s *Service) ByMint(ctx context.Context, mint string) (map[string]any, error) {
	offers, err := s.store.QueryOffers(ctx, query.Where(query.Eq(query.FieldMint, mint)), 1)
	if err != nil {
		return nil, fmt.Errorf("offers by mint: %w", err)
	}
	if len(offers) == 0 {
		return map[string]any{}, nil
	}
	return offer.ToMap(offers[0], nil), nil
}

// ByMintAndOwner returns every offer for mint held by owner, in pk order.
func (s *Service) ByMintAndOwner(ctx context.Context, mint, owner string) ([]map[string]any, error) {
	offers, err := s.store.QueryOffers(ctx, query.Where(query.Eq(query.FieldMint, mint), query.Eq(query.FieldOwner, owner)), 0)
	if err != nil {
		return nil, fmt.Errorf("offers by mint and owner: %w", err)
	}
	out := make([]map[string]any, 0, len(offers))
	for _, o := range offers {
		out = append(out, offer.ToMap(o, nil))
	}
	return out, nil
}
