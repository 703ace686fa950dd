package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolStat struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(*pgxpool.Stat) float64
}

func newPoolStat(name, help string, vt prometheus.ValueType, value func(*pgxpool.Stat) float64) poolStat {
	return poolStat{
		desc:      prometheus.NewDesc(prometheus.BuildFQName(namespace, "pgxpool", name), help, []string{"pool"}, nil),
		valueType: vt,
		value:     value,
	}
}

// PoolCollector implements prometheus.Collector for pgxpool statistics.
// Stats are read during each scrape.
type PoolCollector struct {
	pools map[string]*pgxpool.Pool
	stats []poolStat
}

// NewPoolCollector creates a collector that exports stats for each named pool
// (the offers store and the postgres ledger).
func NewPoolCollector(pools map[string]*pgxpool.Pool) *PoolCollector {
	counter, gauge := prometheus.CounterValue, prometheus.GaugeValue
	return &PoolCollector{
		pools: pools,
		stats: []poolStat{
			newPoolStat("acquire_count", "Cumulative count of successful connection acquires.", counter,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			newPoolStat("acquire_duration_seconds", "Cumulative time spent acquiring connections.", counter,
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			newPoolStat("acquired_conns", "Number of currently acquired connections.", gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			newPoolStat("canceled_acquire_count", "Cumulative count of acquires canceled by context.", counter,
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
			newPoolStat("empty_acquire_count", "Cumulative count of acquires that waited on an empty pool.", counter,
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
			newPoolStat("idle_conns", "Number of idle connections in the pool.", gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			newPoolStat("max_conns", "Maximum number of connections allowed.", gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			newPoolStat("total_conns", "Total number of connections in the pool.", gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range c.stats {
		ch <- s.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for name, pool := range c.pools {
		stat := pool.Stat()
		for _, s := range c.stats {
			ch <- prometheus.MustNewConstMetric(s.desc, s.valueType, s.value(stat), name)
		}
	}
}
