package seeder

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/catalogseed/internal/domain"
)

// Metrics holds the seeder collectors.
type Metrics struct {
	entities      *prometheus.CounterVec
	translations  *prometheus.CounterVec
	pivots        *prometheus.CounterVec
	poolAssets    *prometheus.CounterVec
	chunkDuration *prometheus.HistogramVec
}

// NewMetrics creates the seeder collectors and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		entities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seeder_entities_total",
				Help: "Entity upserts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		translations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seeder_translations_total",
				Help: "Translation upserts by entity kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		pivots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seeder_pivots_total",
				Help: "Pivot rows by relation and outcome",
			},
			[]string{"relation", "outcome"},
		),
		poolAssets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seeder_pool_assets_total",
				Help: "Asset pool files by outcome",
			},
			[]string{"outcome"},
		),
		chunkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seeder_chunk_duration_seconds",
				Help:    "Time to generate one chunk of entities",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"kind"},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.entities, m.translations, m.pivots, m.poolAssets, m.chunkDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register seeder metrics: %w", err)
		}
	}
	return m, nil
}

// Recorder feeds write outcomes into a phase report and the metrics.
type Recorder struct {
	report  *domain.PhaseReport
	metrics *Metrics

	// parent is set on a buffered recorder; outcomes are held in pending
	// until Commit.
	parent  *Recorder
	mu      sync.Mutex
	pending []func(*Recorder)
}

// NewRecorder creates a recorder. metrics may be nil.
func NewRecorder(report *domain.PhaseReport, metrics *Metrics) *Recorder {
	return &Recorder{report: report, metrics: metrics}
}

// Report returns the phase report being filled.
func (r *Recorder) Report() *domain.PhaseReport {
	return r.report
}

// Buffer returns a recorder that holds entity, translation and pivot
// outcomes until Commit. Use one per transaction.
func (r *Recorder) Buffer() *Recorder {
	return &Recorder{report: r.report, metrics: r.metrics, parent: r}
}

// Commit forwards the buffered outcomes to the parent recorder.
func (r *Recorder) Commit() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()
	for _, fn := range pending {
		fn(r.parent)
	}
}

// Discard drops the buffered outcomes of a rolled back transaction.
func (r *Recorder) Discard() {
	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()
}

// hold queues fn on a buffered recorder and reports whether it did.
func (r *Recorder) hold(fn func(*Recorder)) bool {
	if r.parent == nil {
		return false
	}
	r.mu.Lock()
	r.pending = append(r.pending, fn)
	r.mu.Unlock()
	return true
}

// Entity records an upsert of kind.
func (r *Recorder) Entity(kind domain.Kind, outcome domain.Outcome) {
	if r.hold(func(p *Recorder) { p.Entity(kind, outcome) }) {
		return
	}
	r.report.Record(string(kind), outcome)
	if r.metrics != nil {
		r.metrics.entities.WithLabelValues(string(kind), string(outcome)).Inc()
	}
}

// Translation records a translation write of schema's kind.
func (r *Recorder) Translation(schema *domain.Schema, outcome domain.Outcome) {
	if r.hold(func(p *Recorder) { p.Translation(schema, outcome) }) {
		return
	}
	r.report.Record(schema.TranslationTable, outcome)
	if r.metrics != nil {
		r.metrics.translations.WithLabelValues(string(schema.Kind), string(outcome)).Inc()
	}
}

// Pivot records a relation write.
func (r *Recorder) Pivot(rel *domain.Relation, outcome domain.Outcome) {
	if r.hold(func(p *Recorder) { p.Pivot(rel, outcome) }) {
		return
	}
	r.report.Record(rel.Table, outcome)
	if r.metrics != nil {
		r.metrics.pivots.WithLabelValues(rel.Table, string(outcome)).Inc()
	}
}

// Assets records n pool files with outcome, one of generated, failed or
// reused. Reused files only reach the metrics.
func (r *Recorder) Assets(outcome string, n int) {
	if n <= 0 {
		return
	}
	if r.metrics != nil {
		r.metrics.poolAssets.WithLabelValues(outcome).Add(float64(n))
	}

	var o domain.Outcome
	switch outcome {
	case "generated":
		o = domain.OutcomeCreated
	case "failed":
		o = domain.OutcomeSkipped
	default:
		return
	}
	for i := 0; i < n; i++ {
		r.report.Record("pool_assets", o)
	}
}

// Documents records n search documents, skipped when the index write failed.
func (r *Recorder) Documents(n int, failed bool) {
	o := domain.OutcomeCreated
	if failed {
		o = domain.OutcomeSkipped
	}
	for i := 0; i < n; i++ {
		r.report.Record("search_documents", o)
	}
}

// Chunk records how long a chunk of kind took.
func (r *Recorder) Chunk(kind domain.Kind, d time.Duration) {
	if r.metrics != nil {
		r.metrics.chunkDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
	}
}
