package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPoolCollector_Describe_EmitsAllDescriptors(t *testing.T) {
	collector := NewPoolCollector(nil)

	ch := make(chan *prometheus.Desc, 20)
	collector.Describe(ch)
	close(ch)

	count := 0
	for d := range ch {
		count++
		if !strings.Contains(d.String(), "offers_pgxpool_") {
			t.Errorf("descriptor outside the offers_pgxpool namespace: %s", d)
		}
	}
	if count != 8 {
		t.Errorf("descriptor count: got %d, want 8", count)
	}
}

func TestPoolCollector_Collect_NoPools(t *testing.T) {
	for name, pools := range map[string]map[string]*pgxpool.Pool{
		"nil":   nil,
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			if n := testutil.CollectAndCount(NewPoolCollector(pools)); n != 0 {
				t.Errorf("metric count: got %d, want 0", n)
			}
		})
	}
}

func TestPoolCollector_Collect_PerPool(t *testing.T) {
	ctx := context.Background()
	// pgxpool connects lazily, so an unreachable address still yields a pool
	// with readable stats.
	offers, err := pgxpool.New(ctx, "postgres://u:p@127.0.0.1:1/offers")
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer offers.Close()
	ledger, err := pgxpool.New(ctx, "postgres://u:p@127.0.0.1:1/ledger")
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer ledger.Close()

	collector := NewPoolCollector(map[string]*pgxpool.Pool{"offers": offers, "ledger": ledger})
	if n := testutil.CollectAndCount(collector); n != 16 {
		t.Errorf("metric count: got %d, want 16", n)
	}
	if n := testutil.CollectAndCount(collector, "offers_pgxpool_total_conns"); n != 2 {
		t.Errorf("total_conns series: got %d, want 2", n)
	}
}
