package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ryanbastic/offers-retriever/internal/offer"
	"github.com/ryanbastic/offers-retriever/internal/query"
)

// Cursor is an opaque keyset pagination token. It records the sort values and
// primary key of the last offer on a page, and the fingerprint of the query
// that produced it.
type Cursor struct {
	Query  string  `json:"q"`
	Values []int64 `json:"v,omitempty"`
	PK     string  `json:"pk"`
}

// Encode serializes the cursor to a base64-encoded string.
func (c *Cursor) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor parses a base64-encoded cursor string.
func DecodeCursor(s string) (*Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cursor: %w", err)
	}
	return &c, nil
}

// ResumeAfter decodes s and checks that it was produced by q. An empty s
// yields a nil cursor. Any mismatch wraps ErrInvalidCursor.
func ResumeAfter(q query.Query, s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	c, err := DecodeCursor(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Query != q.Fingerprint() {
		return nil, fmt.Errorf("%w: cursor belongs to a different query", ErrInvalidCursor)
	}
	if len(c.Values) != len(q.Orders) || c.PK == "" {
		return nil, fmt.Errorf("%w: malformed position", ErrInvalidCursor)
	}
	return c, nil
}

// CursorAfter returns the encoded cursor positioned on o under q.
func CursorAfter(q query.Query, o offer.Offer) (string, error) {
	c := Cursor{Query: q.Fingerprint(), PK: o.PK}
	for _, ord := range q.Orders {
		c.Values = append(c.Values, SortValue(o, ord.Field))
	}
	return c.Encode()
}
