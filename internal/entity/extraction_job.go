package entity

import "time"

// JobStatus is the lifecycle state of an asynchronous extraction job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ExtractionRequest is the caller-facing input of one extraction run.
type ExtractionRequest struct {
	Query                 string `json:"query"`
	TargetCount           int    `json:"target_count"`
	VisitSecondarySources bool   `json:"visit_secondary_sources"`
}

// ExtractionStats summarizes one finished session.
type ExtractionStats struct {
	Discovered    int            `json:"discovered"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	ContactsFound int            `json:"contacts_found"`
	Passes        int            `json:"passes"`
	Escalations   map[string]int `json:"escalations,omitempty"`
	Cancelled     bool           `json:"cancelled"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
}

// ExtractionResult is what a run hands back to the service layer.
type ExtractionResult struct {
	// RunID identifies the run whose records and failures are persisted.
	RunID    string            `json:"run_id,omitempty"`
	Request  ExtractionRequest `json:"request"`
	Records  []BusinessRecord  `json:"records"`
	Stats    ExtractionStats   `json:"stats"`
	Failures []FailedReference `json:"failures,omitempty"`
	Cached   bool              `json:"cached"`
}

// ExtractionJob mirrors the `extraction_jobs` PostgreSQL table schema.
type ExtractionJob struct {
	ID            string
	Request       ExtractionRequest
	Status        JobStatus
	Stats         *ExtractionStats // Stored as JSONB in PostgreSQL
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JobReport is a job together with its output once it has completed.
type JobReport struct {
	Job      *ExtractionJob
	Records  []BusinessRecord
	Failures []FailedReference
}
