package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/places-extractor/internal/entity"
)

// FailureRepoImpl provides a concrete implementation for the FailureRepository interface using PostgreSQL.
type FailureRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailureRepo creates a new instance of FailureRepoImpl.
func NewFailureRepo(db *pgxpool.Pool) *FailureRepoImpl {
	return &FailureRepoImpl{db: db}
}

// SaveBatch records the failed references of a run. A reference that failed
// again in the same run keeps its latest reason.
func (r *FailureRepoImpl) SaveBatch(ctx context.Context, runID string, failures []entity.FailedReference) error {
	if len(failures) == 0 {
		return nil
	}
	query := `
		INSERT INTO failed_references (run_id, position, reference, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, reference) DO UPDATE SET
			reason = EXCLUDED.reason,
			position = EXCLUDED.position;
	`
	batch := &pgx.Batch{}
	for i, f := range failures {
		batch.Queue(query, runID, i, f.Reference, f.Reason)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range failures {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save failures for run %s: %w", runID, err)
		}
	}
	return nil
}

// FindByRun retrieves the failed references of a run in discovery order.
func (r *FailureRepoImpl) FindByRun(ctx context.Context, runID string) ([]entity.FailedReference, error) {
	query := `
		SELECT reference, reason
		FROM failed_references
		WHERE run_id = $1
		ORDER BY position ASC;
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []entity.FailedReference
	for rows.Next() {
		var f entity.FailedReference
		if err := rows.Scan(&f.Reference, &f.Reason); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
