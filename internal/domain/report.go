package domain

import (
	"sort"
	"sync"
	"time"
)

// Outcome classifies a single write.
type Outcome string

// Write outcomes.
const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

// Counts tallies outcomes for one entity kind, translation table or relation.
type Counts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// PhaseReport summarizes one seeding phase. It is safe for concurrent use.
type PhaseReport struct {
	Phase       string             `json:"phase"`
	Counts      map[string]*Counts `json:"counts"`
	Duration    time.Duration      `json:"duration"`
	Interrupted bool               `json:"interrupted"`

	mu sync.Mutex
}

// NewPhaseReport creates an empty report for phase.
func NewPhaseReport(phase string) *PhaseReport {
	return &PhaseReport{Phase: phase, Counts: make(map[string]*Counts)}
}

// Record adds one outcome under name, which is an entity kind, a
// translation table or a pivot table.
func (r *PhaseReport) Record(name string, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.Counts[name]
	if !ok {
		c = &Counts{}
		r.Counts[name] = c
	}
	switch outcome {
	case OutcomeCreated:
		c.Created++
	case OutcomeUpdated:
		c.Updated++
	case OutcomeSkipped:
		c.Skipped++
	}
}

// MarkInterrupted flags the phase as stopped by its deadline.
func (r *PhaseReport) MarkInterrupted() {
	r.mu.Lock()
	r.Interrupted = true
	r.mu.Unlock()
}

// Get returns a copy of the counts recorded under name.
func (r *PhaseReport) Get(name string) Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.Counts[name]; ok {
		return *c
	}
	return Counts{}
}

// Names returns the recorded names in sorted order.
func (r *PhaseReport) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.Counts))
	for n := range r.Counts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Totals sums the counts over every name.
func (r *PhaseReport) Totals() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	var t Counts
	for _, c := range r.Counts {
		t.Created += c.Created
		t.Updated += c.Updated
		t.Skipped += c.Skipped
	}
	return t
}
