package ledger

import (
	"bytes"
)

// Condition passes a whole row when the cell at Family:Qualifier equals one
// of Values, and drops the row otherwise.
type Condition struct {
	Family    string
	Qualifier string
	Values    [][]byte
}

// SaleCondition matches rows whose metadata:type is SALE. The writer has
// stored the type both bare and JSON-encoded, so both forms are accepted.
func SaleCondition() *Condition {
	return &Condition{
		Family:    FamilyMetadata,
		Qualifier: QualifierType,
		Values:    [][]byte{[]byte(TypeSale), []byte(`"` + TypeSale + `"`)},
	}
}

// Match reports whether row passes the condition. A nil condition passes
// every row.
func (c *Condition) Match(row Row) bool {
	if c == nil {
		return true
	}
	v, ok := row.Cell(c.Family, c.Qualifier)
	if !ok {
		return false
	}
	for _, want := range c.Values {
		if bytes.Equal(v, want) {
			return true
		}
	}
	return false
}

// StringValues returns Values as strings, for backends binding them as
// query parameters.
func (c *Condition) StringValues() []string {
	out := make([]string, len(c.Values))
	for i, v := range c.Values {
		out[i] = string(v)
	}
	return out
}
