package offer

// Offer is a marketplace listing as stored in the offers document store.
// Offers are written by an external indexer; this service only reads them.
type Offer struct {
	PK         string   `json:"pk"`
	Mint       string   `json:"mint"`
	Owner      string   `json:"owner"`
	Collection string   `json:"collection,omitempty"`
	Verifeyed  bool     `json:"verifeyed"`
	Price      int64    `json:"price"`
	AddEpoch   int64    `json:"addEpoch"`
	Tags       []string `json:"tags"`

	// Extra holds any attributes the writer stored beyond the fixed set.
	Extra map[string]any `json:"-"`
}

// ToMap converts an offer into the generic response shape: every stored
// attribute, the synthesized "pk" field, and "lastPrice" when prices holds an
// entry for the offer's mint. A nil prices map adds no lastPrice.
func ToMap(o Offer, prices map[string]int64) map[string]any {
	m := make(map[string]any, len(o.Extra)+9)
	for k, v := range o.Extra {
		m[k] = v
	}

	m["mint"] = o.Mint
	m["owner"] = o.Owner
	if o.Collection != "" {
		m["collection"] = o.Collection
	}
	m["verifeyed"] = o.Verifeyed
	m["price"] = o.Price
	m["addEpoch"] = o.AddEpoch
	tags := o.Tags
	if tags == nil {
		tags = []string{}
	}
	m["tags"] = tags

	m["pk"] = o.PK
	if p, ok := prices[o.Mint]; ok {
		m["lastPrice"] = p
	}
	return m
}

// Mints returns the distinct mints of offers in first-seen order.
func Mints(offers []Offer) []string {
	seen := make(map[string]struct{}, len(offers))
	mints := make([]string, 0, len(offers))
	for _, o := range offers {
		if _, ok := seen[o.Mint]; ok {
			continue
		}
		seen[o.Mint] = struct{}{}
		mints = append(mints, o.Mint)
	}
	return mints
}
