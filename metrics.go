package relite

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the optional Prometheus instrumentation a Connection can
// report against. A nil *Metrics (the default) disables all counters —
// Connection never requires a registry to function.
type Metrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheEvicts   prometheus.Counter
	walCommits    prometheus.Counter
	walRollbacks  prometheus.Counter
	btreeSplits   prometheus.Counter
}

// NewMetrics constructs a Metrics bundle and registers it against reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relite_pager_cache_hits_total",
			Help: "Page cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relite_pager_cache_misses_total",
			Help: "Page cache misses.",
		}),
		cacheEvicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relite_pager_cache_evictions_total",
			Help: "Pages evicted from the page cache.",
		}),
		walCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relite_wal_commits_total",
			Help: "Transactions committed through the WAL.",
		}),
		walRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relite_wal_rollbacks_total",
			Help: "Transactions rolled back through the WAL.",
		}),
		btreeSplits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relite_btree_node_splits_total",
			Help: "B-tree node splits performed during insert.",
		}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.cacheEvicts, m.walCommits, m.walRollbacks, m.btreeSplits)
	return m
}

func (m *Metrics) onHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) onMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) onEvict(wroteBack bool) {
	if m != nil {
		m.cacheEvicts.Inc()
	}
}
