// Package metrics defines the Prometheus metric collectors used across the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	SentencesTotal      prometheus.Counter
	SentencesSkipped    *prometheus.CounterVec
	TuplesMatchedTotal  *prometheus.CounterVec
	TuplesExpandedTotal prometheus.Counter
	RelationsIndexed    prometheus.Counter
	EvidenceDropped     prometheus.Counter
	UnitsProcessed      prometheus.Counter
	BatchesFlushed      *prometheus.CounterVec
	BatchBytes          *prometheus.HistogramVec
	SwapsTotal          *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		SentencesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sentences_processed_total",
				Help: "Total sentences scanned by the extractor.",
			},
		),
		SentencesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentences_skipped_total",
				Help: "Sentences discarded by reason (missing_deprel, dangling_head).",
			},
			[]string{"reason"},
		),
		TuplesMatchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tuples_matched_total",
				Help: "Relation tuples emitted by the matcher, by pattern kind.",
			},
			[]string{"kind"},
		),
		TuplesExpandedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tuples_expanded_total",
				Help: "Tuples after multi-word expansion and deduplication.",
			},
		),
		RelationsIndexed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relations_indexed_total",
				Help: "Distinct (head, relation, dep) keys created in the index.",
			},
		),
		EvidenceDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "evidence_dropped_total",
				Help: "Sentence evidence entries dropped by the per-relation cap.",
			},
		),
		UnitsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "units_processed_total",
				Help: "Corpus source units processed.",
			},
		),
		BatchesFlushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batches_flushed_total",
				Help: "Insert-statement batches emitted, by table and status.",
			},
			[]string{"table", "status"},
		),
		BatchBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "batch_bytes",
				Help:    "Size of emitted insert statements in bytes.",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
			[]string{"table"},
		),
		SwapsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_swaps_total",
				Help: "Atomic index table swaps, by status.",
			},
			[]string{"status"},
		),
	}

	prometheus.MustRegister(
		m.SentencesTotal,
		m.SentencesSkipped,
		m.TuplesMatchedTotal,
		m.TuplesExpandedTotal,
		m.RelationsIndexed,
		m.EvidenceDropped,
		m.UnitsProcessed,
		m.BatchesFlushed,
		m.BatchBytes,
		m.SwapsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
