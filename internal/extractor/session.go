package extractor

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/user/places-extractor/internal/entity"
)

// Session is the mutable state of one run. It is created by Run, updated by
// the collector phase and the detail workers, and discarded when Run returns.
type Session struct {
	Request entity.ExtractionRequest

	mu       sync.Mutex
	stats    entity.ExtractionStats
	failures []failure
}

type failure struct {
	index int
	entity.FailedReference
}

func newSession(req entity.ExtractionRequest) *Session {
	return &Session{
		Request: req,
		stats: entity.ExtractionStats{
			Escalations: make(map[string]int),
			StartedAt:   time.Now().UTC(),
		},
	}
}

func (s *Session) collected(c *Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Discovered = c.Links.Len()
	s.stats.Passes = c.Passes
	for state, n := range c.Escalations {
		s.stats.Escalations[state.String()] += n
	}
}

func (s *Session) succeeded(rec *entity.BusinessRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Succeeded++
	if rec.HasContact() {
		s.stats.ContactsFound++
	}
}

func (s *Session) failed(index int, ref string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Failed++
	s.failures = append(s.failures, failure{
		index:           index,
		FailedReference: entity.FailedReference{Reference: ref, Reason: err.Error()},
	})
}

func (s *Session) cancel() {
	s.mu.Lock()
	s.stats.Cancelled = true
	s.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() entity.ExtractionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.Escalations = maps.Clone(s.stats.Escalations)
	return out
}

// Failures returns the references that produced no record, in discovery order.
func (s *Session) Failures() []entity.FailedReference {
	s.mu.Lock()
	sorted := slices.Clone(s.failures)
	s.mu.Unlock()

	slices.SortFunc(sorted, func(a, b failure) int { return a.index - b.index })
	out := make([]entity.FailedReference, len(sorted))
	for i, f := range sorted {
		out[i] = f.FailedReference
	}
	return out
}

func (s *Session) finish() {
	s.mu.Lock()
	s.stats.FinishedAt = time.Now().UTC()
	s.mu.Unlock()
}
