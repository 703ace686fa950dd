// Package query builds the canonical predicate set and ordering used to read
// offers from the document store.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Field names an offer attribute that can be filtered or sorted on.
type Field string

const (
	FieldCollection Field = "collection"
	FieldVerifeyed  Field = "verifeyed"
	FieldMint       Field = "mint"
	FieldOwner      Field = "owner"
	FieldTags       Field = "tags"
	FieldPrice      Field = "price"
	FieldAddEpoch   Field = "addEpoch"
)

// Sortable lists the fields accepted as sort directives, in the order they are
// read from a request.
var Sortable = []Field{FieldPrice, FieldAddEpoch}

// Predicate is an equality test. For FieldTags it tests set membership.
type Predicate struct {
	Field Field
	Value any
}

// Order is a single sort directive.
type Order struct {
	Field Field
	Desc  bool
}

func (o Order) String() string {
	if o.Desc {
		return "-" + string(o.Field)
	}
	return string(o.Field)
}

// Filter is a caller-supplied attribute filter, matched against the offer's
// tags as "name=value".
type Filter struct {
	Name  string
	Value string
}

// Tag returns the tag string the filter matches.
func (f Filter) Tag() string {
	return f.Name + "=" + f.Value
}

// Query is an ordered predicate set plus sort directives.
type Query struct {
	Predicates []Predicate
	Orders     []Order
}

// Build returns the query for a collection (or the unverified bucket when
// collection is empty) restricted by filters and sorted by orders.
// Filters are sorted by name then value so that the same logical request
// always yields the same predicate order, and therefore the same fingerprint.
func Build(collection string, filters []Filter, orders []Order) Query {
	preds := make([]Predicate, 0, len(filters)+1)
	if collection != "" {
		preds = append(preds, Predicate{Field: FieldCollection, Value: collection})
	} else {
		preds = append(preds, Predicate{Field: FieldVerifeyed, Value: false})
	}

	sorted := make([]Filter, len(filters))
	copy(sorted, filters)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Value < sorted[j].Value
	})
	for _, f := range sorted {
		preds = append(preds, Predicate{Field: FieldTags, Value: f.Tag()})
	}

	return Query{Predicates: preds, Orders: append([]Order(nil), orders...)}
}

// Where returns an unordered query matching every predicate.
func Where(preds ...Predicate) Query {
	return Query{Predicates: append([]Predicate(nil), preds...)}
}

// Eq is shorthand for an equality predicate.
func Eq(field Field, value any) Predicate {
	return Predicate{Field: field, Value: value}
}

// WithOrders returns a copy of q using orders instead of its own.
func (q Query) WithOrders(orders ...Order) Query {
	return Query{
		Predicates: append([]Predicate(nil), q.Predicates...),
		Orders:     append([]Order(nil), orders...),
	}
}

// Fingerprint identifies the predicate set and ordering. Cursors carry it so
// that a cursor is only honoured by the query that produced it.
func (q Query) Fingerprint() string {
	var b strings.Builder
	for _, p := range q.Predicates {
		fmt.Fprintf(&b, "%s=%T:%v;", p.Field, p.Value, p.Value)
	}
	b.WriteByte('|')
	for _, o := range q.Orders {
		b.WriteString(o.String())
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// reserved are request keys that never become tag filters.
var reserved = map[string]bool{
	"collection":          true,
	"cursor":              true,
	string(FieldPrice):    true,
	string(FieldAddEpoch): true,
}

// ParseOrders reads sort directives from request parameters. A present
// sortable key sorts descending when its value is "desc" and ascending for
// any other value.
func ParseOrders(params url.Values) []Order {
	var orders []Order
	for _, f := range Sortable {
		if _, ok := params[string(f)]; !ok {
			continue
		}
		orders = append(orders, Order{Field: f, Desc: params.Get(string(f)) == "desc"})
	}
	return orders
}

// ExtraFilters returns one filter per non-reserved request key, using the
// key's first value.
func ExtraFilters(params url.Values) []Filter {
	var filters []Filter
	for k := range params {
		if reserved[k] {
			continue
		}
		filters = append(filters, Filter{Name: k, Value: params.Get(k)})
	}
	return filters
}
