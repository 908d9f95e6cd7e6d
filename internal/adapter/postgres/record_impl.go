package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/places-extractor/internal/entity"
)

// RecordRepoImpl provides a concrete implementation for the RecordRepository interface using PostgreSQL.
type RecordRepoImpl struct {
	db *pgxpool.Pool
}

// NewRecordRepo creates a new instance of RecordRepoImpl.
func NewRecordRepo(db *pgxpool.Pool) *RecordRepoImpl {
	return &RecordRepoImpl{db: db}
}

const upsertRecord = `
	INSERT INTO business_records (
		run_id, position, source_reference, name, address, rating, review_count, category,
		website, phone, primary_email, secondary_email, search_query, secondary_source_visited, extra_contacts
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (run_id, source_reference) DO UPDATE SET
		position = EXCLUDED.position,
		name = EXCLUDED.name,
		address = EXCLUDED.address,
		rating = EXCLUDED.rating,
		review_count = EXCLUDED.review_count,
		category = EXCLUDED.category,
		website = EXCLUDED.website,
		phone = EXCLUDED.phone,
		primary_email = EXCLUDED.primary_email,
		secondary_email = EXCLUDED.secondary_email,
		search_query = EXCLUDED.search_query,
		secondary_source_visited = EXCLUDED.secondary_source_visited,
		extra_contacts = EXCLUDED.extra_contacts;
`

// SaveBatch upserts all records of a run in one round trip.
func (r *RecordRepoImpl) SaveBatch(ctx context.Context, runID string, records []entity.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, rec := range records {
		extra, err := json.Marshal(rec.ExtraContacts)
		if err != nil {
			return fmt.Errorf("encode extra contacts for %s: %w", rec.SourceReference, err)
		}
		batch.Queue(upsertRecord,
			runID,
			i,
			rec.SourceReference,
			rec.Name,
			rec.Address,
			rec.Rating,
			rec.ReviewCount,
			rec.Category,
			rec.Website,
			rec.Phone,
			rec.PrimaryEmail,
			rec.SecondaryEmail,
			rec.SearchQuery,
			rec.SecondarySourceVisited,
			extra,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save records for run %s: %w", runID, err)
		}
	}
	return nil
}

// FindByRun retrieves the records of a run in discovery order.
func (r *RecordRepoImpl) FindByRun(ctx context.Context, runID string) ([]entity.BusinessRecord, error) {
	query := `
		SELECT id, source_reference, name, address, rating, review_count, category, website, phone,
			primary_email, secondary_email, search_query, secondary_source_visited, extra_contacts
		FROM business_records
		WHERE run_id = $1
		ORDER BY position ASC;
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []entity.BusinessRecord{}
	for rows.Next() {
		var rec entity.BusinessRecord
		var extra []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.SourceReference,
			&rec.Name,
			&rec.Address,
			&rec.Rating,
			&rec.ReviewCount,
			&rec.Category,
			&rec.Website,
			&rec.Phone,
			&rec.PrimaryEmail,
			&rec.SecondaryEmail,
			&rec.SearchQuery,
			&rec.SecondarySourceVisited,
			&extra,
		); err != nil {
			return nil, err
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &rec.ExtraContacts); err != nil {
				return nil, fmt.Errorf("decode extra contacts for %s: %w", rec.SourceReference, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
