package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/places-extractor/internal/delivery/http/handler"
	"github.com/user/places-extractor/internal/delivery/http/response"
	"github.com/user/places-extractor/internal/entity"
	"github.com/user/places-extractor/internal/extractor"
	"github.com/user/places-extractor/internal/usecase"
	"github.com/user/places-extractor/pkg/metrics"
)

type stubService struct {
	res   *entity.ExtractionResult
	err   error
	req   entity.ExtractionRequest
	force bool
}

func (s *stubService) Extract(_ context.Context, _ string, req entity.ExtractionRequest, force bool) (*entity.ExtractionResult, error) {
	s.req, s.force = req, force
	if s.err != nil {
		return nil, s.err
	}
	res := *s.res
	res.Request = req
	return &res, nil
}

func (s *stubService) Validate(*entity.ExtractionRequest) error { return nil }

type stubJobs struct {
	submitted entity.ExtractionRequest
	submitErr error
	reports   map[string]*entity.JobReport
}

func (s *stubJobs) Submit(_ context.Context, req entity.ExtractionRequest) (*entity.ExtractionJob, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submitted = req
	return &entity.ExtractionJob{ID: "job-1", Request: req, Status: entity.JobPending}, nil
}

func (s *stubJobs) Report(_ context.Context, id string) (*entity.JobReport, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, usecase.ErrJobNotFound
	}
	return r, nil
}

func newServer(t *testing.T, svc *stubService, jobs *stubJobs) *httptest.Server {
	t.Helper()
	metrics.Init()
	srv := httptest.NewServer(New(handler.NewHandler(svc, jobs), time.Minute))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newServer(t, &stubService{}, &stubJobs{})

	resp := get(t, srv.URL+"/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestExtract(t *testing.T) {
	svc := &stubService{res: &entity.ExtractionResult{
		RunID:   "run-9",
		Records: []entity.BusinessRecord{{Name: "Bean There", SourceReference: "https://maps.example/place/a"}},
		Stats:   entity.ExtractionStats{Discovered: 1, Succeeded: 1},
		Cached:  true,
	}}
	srv := newServer(t, svc, &stubJobs{})

	resp := post(t, srv.URL+"/api/extract", `{"query":"coffee","max_results":5,"visit_websites":true,"force":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[response.ExtractResponse](t, resp)
	assert.Equal(t, "run-9", body.RunID)
	assert.Equal(t, "coffee", body.Query)
	assert.True(t, body.Cached)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "Bean There", body.Records[0].Name)

	assert.Equal(t, entity.ExtractionRequest{Query: "coffee", TargetCount: 5, VisitSecondarySources: true}, svc.req)
	assert.True(t, svc.force)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "malformed body", body: `{"query":`, status: http.StatusBadRequest},
		{name: "invalid request", body: `{"query":""}`, err: fmt.Errorf("%w: query is required", usecase.ErrInvalidRequest), status: http.StatusBadRequest},
		{name: "search unavailable", body: `{"query":"coffee","max_results":1}`, err: fmt.Errorf("%w: no driver", extractor.ErrSearchUnavailable), status: http.StatusServiceUnavailable},
		{name: "internal", body: `{"query":"coffee","max_results":1}`, err: fmt.Errorf("save: connection reset"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, &stubService{err: tt.err}, &stubJobs{})

			resp := post(t, srv.URL+"/api/extract", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, decode[map[string]string](t, resp), "error")
		})
	}
}

func TestSubmitJob(t *testing.T) {
	jobs := &stubJobs{}
	srv := newServer(t, &stubService{}, jobs)

	resp := post(t, srv.URL+"/api/jobs", `{"query":"bakery","max_results":10}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "job-1", decode[response.SubmitJobResponse](t, resp).JobID)
	assert.Equal(t, "bakery", jobs.submitted.Query)

	jobs.submitErr = fmt.Errorf("%w: max_results must be positive", usecase.ErrInvalidRequest)
	resp = post(t, srv.URL+"/api/jobs", `{"query":"bakery"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetJob(t *testing.T) {
	stats := &entity.ExtractionStats{Discovered: 2, Succeeded: 2}
	jobs := &stubJobs{reports: map[string]*entity.JobReport{
		"done": {
			Job: &entity.ExtractionJob{
				ID:      "done",
				Request: entity.ExtractionRequest{Query: "tea", TargetCount: 2},
				Status:  entity.JobCompleted,
				Stats:   stats,
			},
			Records: []entity.BusinessRecord{{Name: "Leaf"}, {Name: "Kettle"}},
		},
		"queued": {
			Job: &entity.ExtractionJob{ID: "queued", Status: entity.JobPending},
		},
	}}
	srv := newServer(t, &stubService{}, jobs)

	resp := get(t, srv.URL+"/api/jobs/done")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[response.JobStatusResponse](t, resp)
	assert.Equal(t, "completed", body.Status)
	assert.Equal(t, "tea", body.Query)
	assert.Equal(t, 2, body.MaxResults)
	assert.Len(t, body.Records, 2)
	require.NotNil(t, body.Stats)
	assert.Equal(t, 2, body.Stats.Succeeded)

	resp = get(t, srv.URL+"/api/jobs/queued")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[response.JobStatusResponse](t, resp)
	assert.Equal(t, "pending", body.Status)
	assert.Nil(t, body.Records)
	assert.Nil(t, body.Stats)

	resp = get(t, srv.URL+"/api/jobs/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, &stubService{}, &stubJobs{})
	get(t, srv.URL+"/api/health")

	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `http_requests_total{method="GET",path="/api/health",status="200"}`)
}
