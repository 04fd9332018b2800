package intern

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// Table is the minimal surface a Monitor needs. All six interner flavors
// implement it.
type Table interface {
	Len() int
	Stats() Stats
	Compact() int
}

// Monitor wraps a table with prometheus metrics and compaction logging. The
// monitor reads the table during scrapes, so a table shared across
// goroutines must either be one of the Shared flavors or be scraped only
// while externally quiesced.
type Monitor struct {
	name   string
	tab    Table
	logger log.Logger

	compactions atomic.Uint64

	entries     *prometheus.Desc
	dataBytes   *prometheus.Desc
	hits        *prometheus.Desc
	misses      *prometheus.Desc
	inserts     *prometheus.Desc
	evicted     *prometheus.Desc
	compactDesc *prometheus.Desc
}

// NewMonitor creates a Monitor named name over t and registers it with reg.
// Both reg and logger may be nil.
func NewMonitor(name string, t Table, reg prometheus.Registerer, logger log.Logger) *Monitor {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	constLabels := prometheus.Labels{"table": name}
	m := &Monitor{
		name:   name,
		tab:    t,
		logger: logger,
		entries: prometheus.NewDesc("intern_table_entries",
			"Number of values resident in the interning table.", nil, constLabels),
		dataBytes: prometheus.NewDesc("intern_table_data_bytes",
			"Resident size of the interned data.", nil, constLabels),
		hits: prometheus.NewDesc("intern_table_hits_total",
			"Total lookups that found a resident value.", nil, constLabels),
		misses: prometheus.NewDesc("intern_table_misses_total",
			"Total lookups that found nothing.", nil, constLabels),
		inserts: prometheus.NewDesc("intern_table_inserts_total",
			"Total values that became canonical.", nil, constLabels),
		evicted: prometheus.NewDesc("intern_table_evicted_total",
			"Total entries purged by compaction.", nil, constLabels),
		compactDesc: prometheus.NewDesc("intern_table_compactions_total",
			"Total compaction passes.", nil, constLabels),
	}

	if reg != nil {
		reg.MustRegister(m)
	}

	return m
}

// Compact runs a compaction pass on the wrapped table, logging what it cut.
func (m *Monitor) Compact() int {
	start := time.Now()
	before := m.tab.Stats().DataBytes

	purged := m.tab.Compact()
	m.compactions.Inc()

	freed := before - m.tab.Stats().DataBytes
	level.Debug(m.logger).Log("msg", "compacted interning table",
		"table", m.name,
		"purged", purged,
		"remaining", m.tab.Len(),
		"freed", humanize.IBytes(freed),
		"elapsed", time.Since(start))
	return purged
}

// Describe implements prometheus.Collector. It is intentionally empty so the
// monitor is an unchecked collector.
func (m *Monitor) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (m *Monitor) Collect(ch chan<- prometheus.Metric) {
	stats := m.tab.Stats()

	ch <- prometheus.MustNewConstMetric(m.entries, prometheus.GaugeValue, float64(m.tab.Len()))
	ch <- prometheus.MustNewConstMetric(m.dataBytes, prometheus.GaugeValue, float64(stats.DataBytes))
	ch <- prometheus.MustNewConstMetric(m.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(m.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(m.inserts, prometheus.CounterValue, float64(stats.Inserts))
	ch <- prometheus.MustNewConstMetric(m.evicted, prometheus.CounterValue, float64(stats.Evictions))
	ch <- prometheus.MustNewConstMetric(m.compactDesc, prometheus.CounterValue, float64(m.compactions.Load()))
}
