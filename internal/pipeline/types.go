package pipeline

import (
	"sync"
	"time"

	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/source"
)

// Pipeline defines the interface that report pipelines implement
type Pipeline interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Run computes a result set from validated inputs. It never fails.
	Run(in source.Inputs) domain.ResultSet

	// Fingerprint identifies the inputs and thresholds of a run, so equal
	// fingerprints can share a result.
	Fingerprint(in source.Inputs) string
}

// Metrics holds counters for monitoring
type Metrics struct {
	Runs           int64         `json:"runs"`
	CacheHits      int64         `json:"cache_hits"`
	RowsProcessed  int64         `json:"rows_processed"`
	RecordsEmitted int64         `json:"records_emitted"`
	AverageLatency time.Duration `json:"average_latency_ns"`
	LastRunAt      time.Time     `json:"last_run_at"`
}

// Recorder accumulates Metrics across runs; safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	m       Metrics
	elapsed time.Duration
}

// ObserveRun records a computed run.
func (r *Recorder) ObserveRun(in source.Inputs, rs domain.ResultSet, took time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.m.Runs++
	r.m.RowsProcessed += int64(in.Sale.Len() + in.FBA.Len() + in.Uniware.Len() + in.Mapping.Len())
	r.m.RecordsEmitted += int64(len(rs.Records))
	r.elapsed += took
	r.m.AverageLatency = r.elapsed / time.Duration(r.m.Runs)
	r.m.LastRunAt = rs.GeneratedAt
}

// ObserveCacheHit records a run served from the report cache.
func (r *Recorder) ObserveCacheHit() {
	r.mu.Lock()
	r.m.CacheHits++
	r.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (r *Recorder) Snapshot() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m
}
