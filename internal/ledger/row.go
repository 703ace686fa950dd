// Package ledger reads the wide-column transactions ledger. Rows are keyed
// "{partition}#{mint}#{suffix}" and hold a "metadata" family whose "type"
// and "price" cells describe one transaction.
package ledger

import (
	"strings"
)

const (
	FamilyMetadata = "metadata"
	QualifierType  = "type"
	QualifierPrice = "price"

	TypeSale = "SALE"

	// DefaultUnverifiedPartition is the partition label offers without a
	// collection are recorded under.
	DefaultUnverifiedPartition = "Unverifeyed"

	keySeparator = "#"
)

// Row is one ledger row: the latest value of each cell, grouped by family.
type Row struct {
	Key      string
	Families map[string]map[string][]byte
}

// Cell returns the value stored at family:qualifier.
func (r Row) Cell(family, qualifier string) ([]byte, bool) {
	cells, ok := r.Families[family]
	if !ok {
		return nil, false
	}
	v, ok := cells[qualifier]
	return v, ok
}

// HasFamily reports whether the row has any cell in family.
func (r Row) HasFamily(family string) bool {
	return len(r.Families[family]) > 0
}

// MintPrefix returns the row key prefix shared by every row of mint in
// partition.
func MintPrefix(partition, mint string) string {
	return partition + keySeparator + mint + keySeparator
}

// PartitionOf returns the first segment of a row key.
func PartitionOf(key string) string {
	p, _, _ := strings.Cut(key, keySeparator)
	return p
}

// MintOf returns the second segment of a row key.
func MintOf(key string) (string, bool) {
	parts := strings.SplitN(key, keySeparator, 3)
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}
