package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ryanbastic/offers-retriever/internal/offer"
	"github.com/ryanbastic/offers-retriever/internal/query"
	"github.com/ryanbastic/offers-retriever/internal/storage"
)

func seedOffers(n int) []offer.Offer {
	offers := make([]offer.Offer, 0, n)
	for i := 0; i < n; i++ {
		tags := []string{fmt.Sprintf("sequence=%d", i)}
		if i%2 == 0 {
			tags = append(tags, "Eyes=Laser")
		}
		offers = append(offers, offer.Offer{
			PK:         fmt.Sprintf("pk-%03d", i),
			Mint:       fmt.Sprintf("mint-%03d", i),
			Owner:      fmt.Sprintf("owner-%d", i%3),
			Collection: "apes",
			Verifeyed:  true,
			Price:      int64((i * 37) % 11),
			AddEpoch:   int64(1000 - i),
			Tags:       tags,
		})
	}
	return offers
}

func drain(t *testing.T, s storage.OfferStore, q query.Query, limit int) []string {
	t.Helper()
	ctx := context.Background()

	var pks []string
	cursor := ""
	for pages := 0; ; pages++ {
		if pages > 100 {
			t.Fatal("pagination did not terminate")
		}
		page, err := s.QueryPage(ctx, q, cursor, limit)
		if err != nil {
			t.Fatalf("QueryPage: %v", err)
		}
		if len(page.Offers) > limit {
			t.Fatalf("page size %d exceeds limit %d", len(page.Offers), limit)
		}
		for _, o := range page.Offers {
			pks = append(pks, o.PK)
		}
		if page.NextCursor == "" {
			if page.HasMore {
				t.Error("HasMore set without a cursor")
			}
			return pks
		}
		cursor = page.NextCursor
	}
}

func TestQueryPage_PagingMatchesFullScan(t *testing.T) {
	s := NewOfferStore(seedOffers(47)...)
	ctx := context.Background()

	orderings := map[string][]query.Order{
		"natural":           nil,
		"price asc":         {{Field: query.FieldPrice}},
		"price desc":        {{Field: query.FieldPrice, Desc: true}},
		"price, epoch desc": {{Field: query.FieldPrice}, {Field: query.FieldAddEpoch, Desc: true}},
	}
	filters := map[string][]query.Filter{
		"all":   nil,
		"laser": {{Name: "Eyes", Value: "Laser"}},
	}

	for on, orders := range orderings {
		for fn, f := range filters {
			t.Run(on+"/"+fn, func(t *testing.T) {
				q := query.Build("apes", f, orders)

				full, err := s.QueryOffers(ctx, q, 0)
				if err != nil {
					t.Fatalf("QueryOffers: %v", err)
				}

				for _, limit := range []int{1, 5, 20, 100} {
					got := drain(t, s, q, limit)
					if len(got) != len(full) {
						t.Fatalf("limit %d: got %d offers, want %d", limit, len(got), len(full))
					}
					seen := make(map[string]bool)
					for i := range full {
						if got[i] != full[i].PK {
							t.Errorf("limit %d index %d: got %s, want %s", limit, i, got[i], full[i].PK)
						}
						if seen[got[i]] {
							t.Errorf("limit %d: duplicate %s", limit, got[i])
						}
						seen[got[i]] = true
					}
				}
			})
		}
	}
}

func TestQueryPage_ExactMultipleHasNoTrailingCursor(t *testing.T) {
	s := NewOfferStore(seedOffers(40)...)
	q := query.Build("apes", nil, nil)

	page, err := s.QueryPage(context.Background(), q, "", 40)
	if err != nil {
		t.Fatalf("QueryPage: %v", err)
	}
	if len(page.Offers) != 40 {
		t.Errorf("offers: got %d, want 40", len(page.Offers))
	}
	if page.NextCursor != "" || page.HasMore {
		t.Error("a page that reaches the end must not carry a cursor")
	}
}

func TestQueryPage_DefaultLimit(t *testing.T) {
	s := NewOfferStore(seedOffers(30)...)
	page, err := s.QueryPage(context.Background(), query.Build("apes", nil, nil), "", 0)
	if err != nil {
		t.Fatalf("QueryPage: %v", err)
	}
	if len(page.Offers) != storage.DefaultPageSize {
		t.Errorf("offers: got %d, want %d", len(page.Offers), storage.DefaultPageSize)
	}
}

func TestQueryPage_ForeignCursorRejected(t *testing.T) {
	s := NewOfferStore(seedOffers(30)...)
	ctx := context.Background()

	first, err := s.QueryPage(ctx, query.Build("apes", nil, nil), "", 5)
	if err != nil {
		t.Fatalf("QueryPage: %v", err)
	}

	sorted := query.Build("apes", nil, []query.Order{{Field: query.FieldPrice}})
	_, err = s.QueryPage(ctx, sorted, first.NextCursor, 5)
	if !errors.Is(err, storage.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestQueryPage_UnverifiedBucket(t *testing.T) {
	s := NewOfferStore(
		offer.Offer{PK: "v", Mint: "m1", Collection: "apes", Verifeyed: true},
		offer.Offer{PK: "u1", Mint: "m2"},
		offer.Offer{PK: "u2", Mint: "m3"},
	)

	page, err := s.QueryPage(context.Background(), query.Build("", nil, nil), "", 20)
	if err != nil {
		t.Fatalf("QueryPage: %v", err)
	}
	if len(page.Offers) != 2 || page.Offers[0].PK != "u1" || page.Offers[1].PK != "u2" {
		t.Errorf("got %+v", page.Offers)
	}
}

func TestCountOffers(t *testing.T) {
	s := NewOfferStore(seedOffers(47)...)
	ctx := context.Background()

	n, err := s.CountOffers(ctx, query.Build("apes", nil, nil))
	if err != nil {
		t.Fatalf("CountOffers: %v", err)
	}
	if n != 47 {
		t.Errorf("all: got %d, want 47", n)
	}

	n, err = s.CountOffers(ctx, query.Build("apes", []query.Filter{{Name: "Eyes", Value: "Laser"}}, nil))
	if err != nil {
		t.Fatalf("CountOffers: %v", err)
	}
	if n != 24 {
		t.Errorf("laser: got %d, want 24", n)
	}
}

func TestQueryOffers_Limit(t *testing.T) {
	s := NewOfferStore(seedOffers(10)...)
	got, err := s.QueryOffers(context.Background(), query.Build("apes", nil, []query.Order{{Field: query.FieldPrice}}), 1)
	if err != nil {
		t.Fatalf("QueryOffers: %v", err)
	}
	if len(got) != 1 || got[0].Price != 0 {
		t.Errorf("got %+v, want the single cheapest offer", got)
	}
}

func TestGetOffer(t *testing.T) {
	s := NewOfferStore(seedOffers(3)...)
	ctx := context.Background()

	o, err := s.GetOffer(ctx, "pk-001")
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if o.Mint != "mint-001" {
		t.Errorf("Mint: got %q", o.Mint)
	}

	_, err = s.GetOffer(ctx, "missing")
	if !errors.Is(err, storage.ErrOfferNotFound) {
		t.Errorf("expected ErrOfferNotFound, got %v", err)
	}
}

func TestQuery_UnsupportedField(t *testing.T) {
	s := NewOfferStore(seedOffers(3)...)
	_, err := s.QueryOffers(context.Background(), query.Where(query.Eq(query.Field("nope"), "x")), 0)
	if err == nil {
		t.Error("expected error for unsupported field")
	}
}
