package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/pkg/database"
)

const matchRecordColumns = `id, child_id, target_type, target_id, score, weight_version, computed_at, stale, superseded_at`

// MatchRecordRepository persists immutable scoring results.
type MatchRecordRepository struct {
	db *sqlx.DB
}

// NewMatchRecordRepository constructs the repository.
func NewMatchRecordRepository(db *sqlx.DB) *MatchRecordRepository {
	return &MatchRecordRepository{db: db}
}

// ListCurrent returns the non-superseded records of a child for one target type.
func (r *MatchRecordRepository) ListCurrent(ctx context.Context, childID string, targetType models.MatchTargetType) ([]models.MatchRecord, error) {
	query := `SELECT ` + matchRecordColumns + ` FROM match_records
WHERE child_id = $1 AND target_type = $2 AND superseded_at IS NULL ORDER BY target_id ASC`
	var records []models.MatchRecord
	if err := r.db.SelectContext(ctx, &records, query, childID, targetType); err != nil {
		return nil, fmt.Errorf("list current match records: %w", err)
	}
	return records, nil
}

// History returns every record for a child and target, newest first.
func (r *MatchRecordRepository) History(ctx context.Context, childID string, targetType models.MatchTargetType, targetID string) ([]models.MatchRecord, error) {
	query := `SELECT ` + matchRecordColumns + ` FROM match_records
WHERE child_id = $1 AND target_type = $2 AND target_id = $3 ORDER BY computed_at DESC, id ASC`
	var records []models.MatchRecord
	if err := r.db.SelectContext(ctx, &records, query, childID, targetType, targetID); err != nil {
		return nil, fmt.Errorf("list match record history: %w", err)
	}
	return records, nil
}

// Replace supersedes the current record of each target and inserts the new
// ones in a single transaction. A concurrent writer that already inserted a
// current record wins; the conflicting insert is skipped.
func (r *MatchRecordRepository) Replace(ctx context.Context, records []models.MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	const supersede = `UPDATE match_records SET superseded_at = $4
WHERE child_id = $1 AND target_type = $2 AND target_id = $3 AND superseded_at IS NULL`
	const insert = `INSERT INTO match_records (id, child_id, target_type, target_id, score, weight_version, computed_at, stale, superseded_at)
VALUES (:id, :child_id, :target_type, :target_id, :score, :weight_version, :computed_at, :stale, :superseded_at)
ON CONFLICT (child_id, target_type, target_id) WHERE superseded_at IS NULL DO NOTHING`

	return database.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for i := range records {
			rec := &records[i]
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			if rec.ComputedAt.IsZero() {
				rec.ComputedAt = now
			}
			rec.Stale = false
			rec.SupersededAt = nil
			if _, err := tx.ExecContext(ctx, supersede, rec.ChildID, rec.TargetType, rec.TargetID, now); err != nil {
				return fmt.Errorf("supersede match record: %w", err)
			}
			if _, err := tx.NamedExecContext(ctx, insert, rec); err != nil {
				return fmt.Errorf("insert match record: %w", err)
			}
		}
		return nil
	})
}

// MarkStaleBeforeVersion flags current records computed under an older weight version.
func (r *MatchRecordRepository) MarkStaleBeforeVersion(ctx context.Context, version int64) (int64, error) {
	const query = `UPDATE match_records SET stale = TRUE
WHERE superseded_at IS NULL AND stale = FALSE AND weight_version < $1`
	res, err := r.db.ExecContext(ctx, query, version)
	if err != nil {
		return 0, fmt.Errorf("mark match records stale: %w", err)
	}
	return res.RowsAffected()
}

// MarkStaleForTarget flags every current record scored against the target.
func (r *MatchRecordRepository) MarkStaleForTarget(ctx context.Context, targetType models.MatchTargetType, targetID string) (int64, error) {
	const query = `UPDATE match_records SET stale = TRUE
WHERE superseded_at IS NULL AND stale = FALSE AND target_type = $1 AND target_id = $2`
	res, err := r.db.ExecContext(ctx, query, targetType, targetID)
	if err != nil {
		return 0, fmt.Errorf("mark target match records stale: %w", err)
	}
	return res.RowsAffected()
}
