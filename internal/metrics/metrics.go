// Package metrics exposes Prometheus counters and histograms for the
// ingestion pipeline, grounded on the teacher pack's
// pkg/ingestion/metrics.go (package-level registry, sync.Once init,
// prometheus.MustRegister, thin record-helper functions) but scoped to
// the Orchestrator/Analyzer's own concerns instead of embedding deltas.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type registry struct {
	once sync.Once

	parsesStarted   prometheus.Counter
	parsesCompleted prometheus.Counter
	parsesFailed    prometheus.Counter
	parsesCancelled prometheus.Counter

	filesParsed prometheus.Counter
	filesFailed prometheus.Counter

	nodesCreated         prometheus.Counter
	relationshipsCreated prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	fileParseDuration prometheus.Histogram
	jobDuration       prometheus.Histogram
}

var m registry

func (r *registry) init() {
	r.once.Do(func() {
		r.parsesStarted = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_parses_started_total", Help: "Parse jobs started"})
		r.parsesCompleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_parses_completed_total", Help: "Parse jobs completed successfully"})
		r.parsesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_parses_failed_total", Help: "Parse jobs that ended failed"})
		r.parsesCancelled = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_parses_cancelled_total", Help: "Parse jobs cancelled by the user"})

		r.filesParsed = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_files_parsed_total", Help: "Files successfully parsed and persisted"})
		r.filesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_files_failed_total", Help: "Files that failed to parse or persist"})

		r.nodesCreated = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_nodes_created_total", Help: "Nodes persisted by the Graph Builder sink"})
		r.relationshipsCreated = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_relationships_created_total", Help: "Relationships persisted by the Graph Builder sink"})

		r.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_analyzer_cache_hits_total", Help: "Analyzer snapshot cache hits"})
		r.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "kgctl_analyzer_cache_misses_total", Help: "Analyzer snapshot cache misses"})

		buckets := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}
		r.fileParseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "kgctl_file_parse_seconds", Help: "Per-file parse duration", Buckets: buckets})
		r.jobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "kgctl_job_seconds", Help: "End-to-end parse job duration", Buckets: []float64{0.5, 1, 5, 10, 30, 60, 300, 600, 1800}})

		prometheus.MustRegister(
			r.parsesStarted, r.parsesCompleted, r.parsesFailed, r.parsesCancelled,
			r.filesParsed, r.filesFailed,
			r.nodesCreated, r.relationshipsCreated,
			r.cacheHits, r.cacheMisses,
			r.fileParseDuration, r.jobDuration,
		)
	})
}

func RecordParseStarted()   { m.init(); m.parsesStarted.Inc() }
func RecordParseCompleted() { m.init(); m.parsesCompleted.Inc() }
func RecordParseFailed()    { m.init(); m.parsesFailed.Inc() }
func RecordParseCancelled() { m.init(); m.parsesCancelled.Inc() }

func RecordFileParsed() { m.init(); m.filesParsed.Inc() }
func RecordFileFailed() { m.init(); m.filesFailed.Inc() }

func RecordNodesCreated(n int) {
	m.init()
	m.nodesCreated.Add(float64(n))
}

func RecordRelationshipsCreated(n int) {
	m.init()
	m.relationshipsCreated.Add(float64(n))
}

func RecordCacheHit()  { m.init(); m.cacheHits.Inc() }
func RecordCacheMiss() { m.init(); m.cacheMisses.Inc() }

func RecordFileParseDuration(d time.Duration) {
	m.init()
	m.fileParseDuration.Observe(d.Seconds())
}

func RecordJobDuration(d time.Duration) {
	m.init()
	m.jobDuration.Observe(d.Seconds())
}
