package ledger

// RowRange is the half-open key interval [Start, End). An empty End means
// unbounded.
type RowRange struct {
	Start string
	End   string
}

// PrefixRange returns the range covering every key that starts with prefix.
func PrefixRange(prefix string) RowRange {
	return RowRange{Start: prefix, End: prefixSuccessor(prefix)}
}

// Contains reports whether key falls inside r.
func (r RowRange) Contains(key string) bool {
	if key < r.Start {
		return false
	}
	return r.End == "" || key < r.End
}

// prefixSuccessor returns the smallest key greater than every key with the
// given prefix, or "" if there is none.
func prefixSuccessor(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
