package storage

import (
	"strings"

	"github.com/ryanbastic/offers-retriever/internal/offer"
	"github.com/ryanbastic/offers-retriever/internal/query"
)

// SortValue returns the value of a sortable field. Non-sortable fields are 0.
func SortValue(o offer.Offer, f query.Field) int64 {
	switch f {
	case query.FieldPrice:
		return o.Price
	case query.FieldAddEpoch:
		return o.AddEpoch
	}
	return 0
}

// Compare orders a and b by orders, then by primary key ascending.
// Every backend uses this total order, so an empty order list means pk order.
func Compare(orders []query.Order, a, b offer.Offer) int {
	for _, ord := range orders {
		va, vb := SortValue(a, ord.Field), SortValue(b, ord.Field)
		if va == vb {
			continue
		}
		less := va < vb
		if ord.Desc {
			less = !less
		}
		if less {
			return -1
		}
		return 1
	}
	return strings.Compare(a.PK, b.PK)
}

// AfterCursor reports whether o sorts strictly after the position c marks.
func AfterCursor(orders []query.Order, o offer.Offer, c *Cursor) bool {
	for i, ord := range orders {
		v := SortValue(o, ord.Field)
		if v == c.Values[i] {
			continue
		}
		return (v > c.Values[i]) != ord.Desc
	}
	return o.PK > c.PK
}
