package storage

import (
	"context"
	"errors"

	"github.com/ryanbastic/offers-retriever/internal/offer"
	"github.com/ryanbastic/offers-retriever/internal/query"
)

// DefaultPageSize is used when a page read is given a non-positive limit.
const DefaultPageSize = 20

var (
	// ErrOfferNotFound is returned when a point lookup finds no offer.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrInvalidCursor is returned when a cursor cannot be decoded or was
	// produced by a different query.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Page is one page of offers plus the cursor that resumes after it.
// NextCursor is empty when the page reached the end of the result set.
type Page struct {
	Offers     []offer.Offer
	NextCursor string
	HasMore    bool
}

// OfferStore is the read interface over the offers document store.
type OfferStore interface {
	// GetOffer returns the offer with the given primary key, or ErrOfferNotFound.
	GetOffer(ctx context.Context, pk string) (*offer.Offer, error)
	// QueryPage returns up to limit offers matching q, starting after cursor
	// (or at the beginning when cursor is empty).
	QueryPage(ctx context.Context, q query.Query, cursor string, limit int) (*Page, error)
	// QueryOffers returns up to limit offers matching q in q's order.
	// A non-positive limit returns every match.
	QueryOffers(ctx context.Context, q query.Query, limit int) ([]offer.Offer, error)
	// CountOffers returns the number of offers matching q, reading keys only.
	CountOffers(ctx context.Context, q query.Query) (int, error)
}
