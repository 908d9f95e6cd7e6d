package response

import (
	"time"

	"github.com/user/places-extractor/internal/entity"
)

type ExtractResponse struct {
	RunID    string                   `json:"run_id"`
	Query    string                   `json:"query"`
	Cached   bool                     `json:"cached"`
	Stats    entity.ExtractionStats   `json:"stats"`
	Records  []entity.BusinessRecord  `json:"records"`
	Failures []entity.FailedReference `json:"failures,omitempty"`
}

func NewExtractResponse(res *entity.ExtractionResult) ExtractResponse {
	return ExtractResponse{
		RunID:    res.RunID,
		Query:    res.Request.Query,
		Cached:   res.Cached,
		Stats:    res.Stats,
		Records:  nonNil(res.Records),
		Failures: res.Failures,
	}
}

type SubmitJobResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// JobStatusResponse is a DTO for job status, mirroring entity.JobReport.
type JobStatusResponse struct {
	JobID         string                   `json:"job_id"`
	Status        string                   `json:"status"` // "pending", "running", "completed", "failed"
	Query         string                   `json:"query"`
	MaxResults    int                      `json:"max_results"`
	VisitWebsites bool                     `json:"visit_websites"`
	Stats         *entity.ExtractionStats  `json:"stats,omitempty"`
	FailureReason string                   `json:"failure_reason,omitempty"`
	Records       []entity.BusinessRecord  `json:"records,omitempty"`
	Failures      []entity.FailedReference `json:"failures,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

func NewJobStatusResponse(report *entity.JobReport) JobStatusResponse {
	job := report.Job
	resp := JobStatusResponse{
		JobID:         job.ID,
		Status:        string(job.Status),
		Query:         job.Request.Query,
		MaxResults:    job.Request.TargetCount,
		VisitWebsites: job.Request.VisitSecondarySources,
		Stats:         job.Stats,
		FailureReason: job.FailureReason,
		Failures:      report.Failures,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
	if job.Status == entity.JobCompleted {
		resp.Records = nonNil(report.Records)
	}
	return resp
}

func nonNil(recs []entity.BusinessRecord) []entity.BusinessRecord {
	if recs == nil {
		return []entity.BusinessRecord{}
	}
	return recs
}
