package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ryanbastic/offers-retriever/internal/offer"
	"github.com/ryanbastic/offers-retriever/internal/query"
	"github.com/ryanbastic/offers-retriever/internal/retriever"
)

// OfferService is implemented by *retriever.Service.
type OfferService interface {
	List(ctx context.Context, req retriever.ListRequest) (*retriever.Envelope, error)
	ByPK(ctx context.Context, pk string) (map[string]any, error)
	ByMint(ctx context.Context, mint string) (map[string]any, error)
	ByMintAndOwner(ctx context.Context, mint, owner string) ([]map[string]any, error)
}

// --- Huma Input/Output types ---

// ListOffersInput documents the well-known parameters. Any other parameter
// is an attribute filter, so handlers read the raw query captured by
// Resolve rather than the typed fields.
type ListOffersInput struct {
	Collection string `query:"collection" doc:"Collection name; selects a paginated, filtered listing"`
	Cursor     string `query:"cursor" doc:"Continuation token from a previous page"`
	Price      string `query:"price" doc:"Sort by price; 'desc' for descending, anything else ascending"`
	AddEpoch   string `query:"addEpoch" doc:"Sort by listing time; 'desc' for descending, anything else ascending"`
	Mint       string `query:"mint" doc:"Mint address"`
	Owner      string `query:"owner" doc:"Owner address, used together with mint"`
	PK         string `query:"pk" doc:"Offer primary key"`

	Params url.Values
}

// Resolve captures every query parameter, including undeclared filters.
func (i *ListOffersInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.Params = u.Query()
	return nil
}

type OffersOutput struct {
	Body any
}

// --- Handler ---

type OfferHandler struct {
	svc             OfferService
	strictAddresses bool
	logger          *slog.Logger
}

func NewOfferHandler(svc OfferService, strictAddresses bool, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{svc: svc, strictAddresses: strictAddresses, logger: logger}
}

func registerOfferRoutes(api huma.API, h *OfferHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-offers",
		Method:      http.MethodGet,
		Path:        "/v1/offers",
		Summary:     "Query offers",
		Description: "With collection: one page of the collection's offers, filtered by any extra parameters. " +
			"With mint and owner: every offer for that pair. With pk or mint alone: a single offer. " +
			"Otherwise: one page of unverified offers.",
		Tags: []string{"offers"},
	}, h.ListOffers)
}

// ListOffers dispatches on which parameters are present, in the order
// collection, mint+owner, pk, mint.
func (h *OfferHandler) ListOffers(ctx context.Context, input *ListOffersInput) (*OffersOutput, error) {
	p := input.Params

	switch {
	case p.Has("collection"):
		return h.page(ctx, retriever.ListRequest{
			Collection: p.Get("collection"),
			Cursor:     p.Get("cursor"),
			Orders:     query.ParseOrders(p),
			Filters:    query.ExtraFilters(p),
		})

	case p.Has("mint") && p.Has("owner"):
		mint, owner := p.Get("mint"), p.Get("owner")
		if err := h.checkAddresses(mint, owner); err != nil {
			return nil, err
		}
		offers, err := h.svc.ByMintAndOwner(ctx, mint, owner)
		if err != nil {
			return nil, storeError(ctx, h.logger, "offers by mint and owner", err)
		}
		return &OffersOutput{Body: map[string]any{"offers": offers}}, nil

	case p.Has("pk"):
		o, err := h.svc.ByPK(ctx, p.Get("pk"))
		if err != nil {
			return nil, storeError(ctx, h.logger, "offer by pk", err)
		}
		return &OffersOutput{Body: o}, nil

	case p.Has("mint"):
		mint := p.Get("mint")
		if err := h.checkAddresses(mint); err != nil {
			return nil, err
		}
		o, err := h.svc.ByMint(ctx, mint)
		if err != nil {
			return nil, storeError(ctx, h.logger, "offer by mint", err)
		}
		return &OffersOutput{Body: o}, nil
	}

	return h.page(ctx, retriever.ListRequest{
		Cursor: p.Get("cursor"),
		Orders: query.ParseOrders(p),
	})
}

func (h *OfferHandler) page(ctx context.Context, req retriever.ListRequest) (*OffersOutput, error) {
	env, err := h.svc.List(ctx, req)
	if err != nil {
		return nil, storeError(ctx, h.logger, "list offers", err)
	}
	return &OffersOutput{Body: env}, nil
}

func (h *OfferHandler) checkAddresses(addrs ...string) error {
	if !h.strictAddresses {
		return nil
	}
	for _, a := range addrs {
		if !offer.ValidAddress(a) {
			return huma.Error400BadRequest("invalid address: " + a)
		}
	}
	return nil
}
