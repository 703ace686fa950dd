package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ryanbastic/offers-retriever/internal/offer"
	"github.com/ryanbastic/offers-retriever/internal/query"
	"github.com/ryanbastic/offers-retriever/internal/storage"
)

// OfferStore is an in-memory implementation of storage.OfferStore.
type OfferStore struct {
	mu     sync.RWMutex
	offers map[string]offer.Offer
}

// NewOfferStore creates an OfferStore seeded with offers.
func NewOfferStore(offers ...offer.Offer) *OfferStore {
	s := &OfferStore{offers: make(map[string]offer.Offer, len(offers))}
	for _, o := range offers {
		s.offers[o.PK] = o
	}
	return s
}

var _ storage.OfferStore = (*OfferStore)(nil)

func (s *OfferStore) GetOffer(_ context.Context, pk string) (*offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offers[pk]
	if !ok {
		return nil, storage.ErrOfferNotFound
	}
	return &o, nil
}

func (s *OfferStore) QueryPage(_ context.Context, q query.Query, cursor string, limit int) (*storage.Page, error) {
	if limit <= 0 {
		limit = storage.DefaultPageSize
	}
	after, err := storage.ResumeAfter(q, cursor)
	if err != nil {
		return nil, err
	}

	matches, err := s.match(q)
	if err != nil {
		return nil, err
	}
	if after != nil {
		matches = slices.DeleteFunc(matches, func(o offer.Offer) bool {
			return !storage.AfterCursor(q.Orders, o, after)
		})
	}

	page := &storage.Page{Offers: matches}
	if len(matches) > limit {
		page.Offers = matches[:limit]
		next, err := storage.CursorAfter(q, page.Offers[limit-1])
		if err != nil {
			return nil, fmt.Errorf("encode next cursor: %w", err)
		}
		page.NextCursor = next
		page.HasMore = true
	}
	return page, nil
}

func (s *OfferStore) QueryOffers(_ context.Context, q query.Query, limit int) ([]offer.Offer, error) {
	matches, err := s.match(q)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *OfferStore) CountOffers(_ context.Context, q query.Query) (int, error) {
	matches, err := s.match(q)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// match returns the offers satisfying every predicate, sorted by q's orders.
func (s *OfferStore) match(q query.Query) ([]offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []offer.Offer
	for _, o := range s.offers {
		ok, err := matchesAll(o, q.Predicates)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b offer.Offer) int {
		return storage.Compare(q.Orders, a, b)
	})
	return out, nil
}

func matchesAll(o offer.Offer, preds []query.Predicate) (bool, error) {
	for _, p := range preds {
		var ok bool
		switch p.Field {
		case query.FieldCollection:
			ok = o.Collection == p.Value
		case query.FieldVerifeyed:
			ok = o.Verifeyed == p.Value
		case query.FieldMint:
			ok = o.Mint == p.Value
		case query.FieldOwner:
			ok = o.Owner == p.Value
		case query.FieldTags:
			tag, _ := p.Value.(string)
			ok = slices.Contains(o.Tags, tag)
		case query.FieldPrice:
			ok = o.Price == p.Value
		case query.FieldAddEpoch:
			ok = o.AddEpoch == p.Value
		default:
			return false, fmt.Errorf("unsupported filter field %q", p.Field)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
