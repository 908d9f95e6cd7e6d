package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/places-extractor/internal/entity"
	"github.com/user/places-extractor/internal/repository"
)

// JobRepoImpl provides a concrete implementation for the JobRepository interface using PostgreSQL.
type JobRepoImpl struct {
	db *pgxpool.Pool
}

// NewJobRepo creates a new instance of JobRepoImpl.
func NewJobRepo(db *pgxpool.Pool) *JobRepoImpl {
	return &JobRepoImpl{db: db}
}

const jobColumns = `id, query, target_count, visit_secondary_sources, status, stats, failure_reason, created_at, updated_at`

// Create inserts a new job.
func (r *JobRepoImpl) Create(ctx context.Context, job *entity.ExtractionJob) error {
	query := `
		INSERT INTO extraction_jobs (id, query, target_count, visit_secondary_sources, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6);
	`
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.Request.Query,
		job.Request.TargetCount,
		job.Request.VisitSecondarySources,
		string(job.Status),
		job.CreatedAt,
	)
	return err
}

func scanJob(row pgx.Row) (*entity.ExtractionJob, error) {
	var job entity.ExtractionJob
	var status string
	var stats []byte
	if err := row.Scan(
		&job.ID,
		&job.Request.Query,
		&job.Request.TargetCount,
		&job.Request.VisitSecondarySources,
		&status,
		&stats,
		&job.FailureReason,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = entity.JobStatus(status)
	if len(stats) > 0 {
		job.Stats = &entity.ExtractionStats{}
		if err := json.Unmarshal(stats, job.Stats); err != nil {
			return nil, fmt.Errorf("decode stats of job %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

// Get retrieves a job by its ID.
func (r *JobRepoImpl) Get(ctx context.Context, id string) (*entity.ExtractionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM extraction_jobs WHERE id = $1;`
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return job, err
}

func (r *JobRepoImpl) update(ctx context.Context, id, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkRunning moves a job to the running state.
func (r *JobRepoImpl) MarkRunning(ctx context.Context, id string) error {
	return r.update(ctx, id,
		`UPDATE extraction_jobs SET status = $2, updated_at = NOW() WHERE id = $1;`,
		string(entity.JobRunning))
}

// MarkCompleted stores the final stats of a job.
func (r *JobRepoImpl) MarkCompleted(ctx context.Context, id string, stats entity.ExtractionStats) error {
	encoded, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.update(ctx, id,
		`UPDATE extraction_jobs SET status = $2, stats = $3, failure_reason = '', updated_at = NOW() WHERE id = $1;`,
		string(entity.JobCompleted), encoded)
}

// MarkFailed stores the reason a job could not finish.
func (r *JobRepoImpl) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.update(ctx, id,
		`UPDATE extraction_jobs SET status = $2, failure_reason = $3, updated_at = NOW() WHERE id = $1;`,
		string(entity.JobFailed), reason)
}

// FindStale retrieves running jobs whose last update is older than olderThan.
func (r *JobRepoImpl) FindStale(ctx context.Context, olderThan time.Duration, limit int) ([]*entity.ExtractionJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM extraction_jobs
		WHERE status = $1 AND updated_at < NOW() - make_interval(secs => $2)
		ORDER BY updated_at ASC
		LIMIT $3;
	`
	rows, err := r.db.Query(ctx, query, string(entity.JobRunning), olderThan.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.ExtractionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
