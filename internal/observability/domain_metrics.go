package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	schemaSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_schema_sync_total",
			Help: "Schema index sync runs by result (ok, degraded).",
		},
		[]string{"result"},
	)
	schemaSyncChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_schema_sync_changes_total",
			Help: "Schema documents changed by sync, by kind (added, updated, removed).",
		},
		[]string{"kind"},
	)
	exampleSeedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletalk_example_seed_total",
			Help: "Curated example documents inserted into the shared example index.",
		},
	)
	retrievalFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_retrieval_fallback_total",
			Help: "Retrieval fallbacks taken, by kind.",
		},
		[]string{"kind"},
	)
	generationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_generation_total",
			Help: "Query generation calls by result.",
		},
		[]string{"result"},
	)
	generationLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabletalk_generation_latency_ms",
			Help:    "End-to-end query generation latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		},
	)
	ingestRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletalk_ingest_rows_total",
			Help: "Rows written by the upload pipeline.",
		},
	)
	ingestUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_ingest_uploads_total",
			Help: "Uploads processed, by file format and result.",
		},
		[]string{"format", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		schemaSyncTotal,
		schemaSyncChangesTotal,
		exampleSeedTotal,
		retrievalFallbackTotal,
		generationTotal,
		generationLatencyMs,
		ingestRowsTotal,
		ingestUploadsTotal,
	)
}

func ObserveSchemaSync(added, updated, removed int, failed bool) {
	result := "ok"
	if failed {
		result = "degraded"
	}
	schemaSyncTotal.WithLabelValues(result).Inc()
	if added > 0 {
		schemaSyncChangesTotal.WithLabelValues("added").Add(float64(added))
	}
	if updated > 0 {
		schemaSyncChangesTotal.WithLabelValues("updated").Add(float64(updated))
	}
	if removed > 0 {
		schemaSyncChangesTotal.WithLabelValues("removed").Add(float64(removed))
	}
}

func ObserveExampleSeed(inserted int) {
	if inserted > 0 {
		exampleSeedTotal.Add(float64(inserted))
	}
}

func IncrementRetrievalFallback(kind string) {
	retrievalFallbackTotal.WithLabelValues(kind).Inc()
}

// ObserveGeneration records one Generate call. result is "ok", "no_tables",
// "table_not_found" or "error".
func ObserveGeneration(result string, elapsed time.Duration) {
	generationTotal.WithLabelValues(result).Inc()
	generationLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveIngest(format string, rows int64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ingestUploadsTotal.WithLabelValues(format, result).Inc()
	if rows > 0 {
		ingestRowsTotal.Add(float64(rows))
	}
}
