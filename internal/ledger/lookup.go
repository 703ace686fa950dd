package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ryanbastic/offers-retriever/internal/circuitbreaker"
	"github.com/ryanbastic/offers-retriever/internal/metrics"
)

// Lookup recovers the last sale price of mints from the ledger.
type Lookup struct {
	reader  RowReader
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewLookup creates a Lookup over reader. breaker may be nil.
func NewLookup(reader RowReader, breaker *circuitbreaker.Breaker, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{reader: reader, breaker: breaker, logger: logger}
}

// LastSalePrices returns the price of the first SALE row, in ledger row
// order, of each mint under partition. Mints with no usable sale row are
// absent from the result. All mints are read in a single batched scan.
func (l *Lookup) LastSalePrices(ctx context.Context, partition string, mints []string) (map[string]int64, error) {
	prices := make(map[string]int64)
	if len(mints) == 0 {
		return prices, nil
	}

	wanted := make(map[string]bool, len(mints))
	ranges := make([]RowRange, 0, len(mints))
	for _, m := range mints {
		if wanted[m] {
			continue
		}
		wanted[m] = true
		ranges = append(ranges, PrefixRange(MintPrefix(partition, m)))
	}

	cond := SaleCondition()
	scan := func(ctx context.Context) error {
		return l.reader.ReadRows(ctx, ranges, cond, func(row Row) bool {
			if !cond.Match(row) {
				return true
			}
			mint, ok := MintOf(row.Key)
			if !ok || !wanted[mint] {
				return true
			}
			if _, done := prices[mint]; done {
				return true
			}
			if price, ok := l.salePrice(row); ok {
				prices[mint] = price
			}
			return len(prices) < len(wanted)
		})
	}

	start := time.Now()
	var err error
	if l.breaker != nil {
		err = l.breaker.Do(ctx, scan)
	} else {
		err = scan(ctx)
	}

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		metrics.ObserveLedgerLookup("open", time.Since(start))
		return nil, err
	case err != nil:
		metrics.ObserveLedgerLookup("error", time.Since(start))
		return nil, fmt.Errorf("read sale rows for %q: %w", partition, err)
	}
	metrics.ObserveLedgerLookup("ok", time.Since(start))
	return prices, nil
}

// salePrice extracts metadata:price from a sale row.
func (l *Lookup) salePrice(row Row) (int64, bool) {
	if !row.HasFamily(FamilyMetadata) {
		l.skip(row, "no_metadata", nil)
		return 0, false
	}
	raw, ok := row.Cell(FamilyMetadata, QualifierPrice)
	if !ok {
		l.skip(row, "no_price", nil)
		return 0, false
	}
	price, err := ParsePrice(raw)
	if err != nil {
		l.skip(row, "bad_price", err)
		return 0, false
	}
	return price, true
}

func (l *Lookup) skip(row Row, reason string, err error) {
	metrics.LedgerRowSkipped(reason)
	attrs := []any{"row_key", row.Key, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	l.logger.Warn("skipping sale row", attrs...)
}

// ParsePrice parses a string-encoded integer price. Surrounding whitespace
// and JSON quotes are tolerated.
func ParsePrice(raw []byte) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strconv.ParseInt(s, 10, 64)
}
