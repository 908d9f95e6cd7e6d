package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/places-extractor/internal/entity"
	"github.com/user/places-extractor/internal/repository"
)

var errBoom = errors.New("boom")

type fakeExtractor struct {
	mu    sync.Mutex
	res   *entity.ExtractionResult
	err   error
	calls int
}

func (f *fakeExtractor) Run(_ context.Context, req entity.ExtractionRequest) (*entity.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.Request = req
	return &res, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memRecords struct {
	mu    sync.Mutex
	byRun map[string][]entity.BusinessRecord
	err   error
}

func newMemRecords() *memRecords {
	return &memRecords{byRun: make(map[string][]entity.BusinessRecord)}
}

func (m *memRecords) SaveBatch(ctx context.Context, runID string, recs []entity.BusinessRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.byRun[runID] = append([]entity.BusinessRecord(nil), recs...)
	return nil
}

func (m *memRecords) FindByRun(_ context.Context, runID string) ([]entity.BusinessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byRun[runID], nil
}

type memFailures struct {
	mu    sync.Mutex
	byRun map[string][]entity.FailedReference
}

func newMemFailures() *memFailures {
	return &memFailures{byRun: make(map[string][]entity.FailedReference)}
}

func (m *memFailures) SaveBatch(ctx context.Context, runID string, f []entity.FailedReference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byRun[runID] = append([]entity.FailedReference(nil), f...)
	return nil
}

func (m *memFailures) FindByRun(_ context.Context, runID string) ([]entity.FailedReference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byRun[runID], nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]*entity.ExtractionResult
	getErr  error
	deletes int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*entity.ExtractionResult)}
}

func key(req entity.ExtractionRequest) string {
	return fmt.Sprintf("%s|%d|%t", req.Query, req.TargetCount, req.VisitSecondarySources)
}

func (m *memCache) Get(_ context.Context, req entity.ExtractionRequest) (*entity.ExtractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	res, ok := m.entries[key(req)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *memCache) Set(_ context.Context, res *entity.ExtractionResult, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *res
	m.entries[key(res.Request)] = &cp
	return nil
}

func (m *memCache) Delete(_ context.Context, req entity.ExtractionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.entries, key(req))
	return nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*entity.ExtractionJob
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*entity.ExtractionJob)}
}

func (m *memJobs) Create(_ context.Context, job *entity.ExtractionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) Get(_ context.Context, id string) (*entity.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memJobs) set(id string, fn func(*entity.ExtractionJob)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memJobs) MarkRunning(_ context.Context, id string) error {
	return m.set(id, func(j *entity.ExtractionJob) { j.Status = entity.JobRunning })
}

func (m *memJobs) MarkCompleted(_ context.Context, id string, stats entity.ExtractionStats) error {
	return m.set(id, func(j *entity.ExtractionJob) {
		j.Status = entity.JobCompleted
		j.Stats = &stats
	})
}

func (m *memJobs) MarkFailed(_ context.Context, id string, reason string) error {
	return m.set(id, func(j *entity.ExtractionJob) {
		j.Status = entity.JobFailed
		j.FailureReason = reason
	})
}

func (m *memJobs) FindStale(context.Context, time.Duration, int) ([]*entity.ExtractionJob, error) {
	return nil, nil
}

type memQueue struct {
	mu      sync.Mutex
	items   []string
	pushErr error
}

func (m *memQueue) Push(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.items = append(m.items, id)
	return nil
}

func (m *memQueue) Pop(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return "", repository.ErrQueueEmpty
	}
	id := m.items[0]
	m.items = m.items[1:]
	return id, nil
}

func (m *memQueue) Size(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

func sampleResult() *entity.ExtractionResult {
	return &entity.ExtractionResult{
		Records: []entity.BusinessRecord{
			{Name: "Bean There", SourceReference: "https://maps.example/place/a", PrimaryEmail: "hi@bean.example"},
			{Name: "Grind House", SourceReference: "https://maps.example/place/b"},
		},
		Failures: []entity.FailedReference{{Reference: "https://maps.example/place/c", Reason: "boom"}},
		Stats: entity.ExtractionStats{
			Discovered:    3,
			Succeeded:     2,
			Failed:        1,
			ContactsFound: 1,
			Passes:        4,
			Escalations:   map[string]int{"alt_advance": 1},
		},
	}
}

type harness struct {
	extractor *fakeExtractor
	records   *memRecords
	failures  *memFailures
	cache     *memCache
	jobs      *memJobs
	queue     *memQueue
	service   ExtractionService
}

func newHarness() *harness {
	h := &harness{
		extractor: &fakeExtractor{res: sampleResult()},
		records:   newMemRecords(),
		failures:  newMemFailures(),
		cache:     newMemCache(),
		jobs:      newMemJobs(),
		queue:     &memQueue{},
	}
	h.service = NewExtractionService(h.extractor, h.records, h.failures, h.cache, time.Hour, 50)
	return h
}

func (h *harness) manager() JobManager {
	return NewJobManager(h.service, h.jobs, h.queue, h.records, h.failures)
}

func (h *harness) processor() JobProcessor {
	return NewJobProcessor(h.service, h.jobs, h.queue)
}
