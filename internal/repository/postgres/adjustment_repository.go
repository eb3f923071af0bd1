package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sparecast/sparecast/internal/domain"
)

type AdjustmentRepository struct {
	db *DB
}

func NewAdjustmentRepository(db *DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

func (r *AdjustmentRepository) Create(ctx context.Context, rec *domain.AdjustmentRecord) error {
	query := `
		INSERT INTO classification_adjustments (
			item_code, original_tier, proposed_tier, reason, requester,
			reviewer, remark, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		rec.ItemCode, rec.OriginalTier, rec.ProposedTier, rec.Reason, rec.Requester,
		rec.Reviewer, rec.Remark, rec.Status, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("error creating adjustment: %w", err)
	}

	return nil
}

func (r *AdjustmentRepository) Get(ctx context.Context, id int64) (*domain.AdjustmentRecord, error) {
	var rec domain.AdjustmentRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM classification_adjustments WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying adjustment %d: %w", id, err)
	}

	return &rec, nil
}

// UpdateDecision records the reviewer's outcome. The WHERE guard keeps a
// decided record from being decided twice under concurrent reviewers.
func (r *AdjustmentRepository) UpdateDecision(ctx context.Context, rec *domain.AdjustmentRecord) error {
	query := `
		UPDATE classification_adjustments
		SET status = $2, reviewer = $3, remark = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Status, rec.Reviewer, rec.Remark, rec.UpdatedAt,
		domain.AdjustmentPending,
	)
	if err != nil {
		return fmt.Errorf("error updating adjustment %d: %w", rec.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("adjustment %d is no longer pending", rec.ID)
	}

	return nil
}

func (r *AdjustmentRepository) List(ctx context.Context, status domain.AdjustmentStatus) ([]domain.AdjustmentRecord, error) {
	var records []domain.AdjustmentRecord
	var err error
	if status == "" {
		err = r.db.SelectContext(ctx, &records,
			`SELECT * FROM classification_adjustments ORDER BY created_at DESC, id DESC`)
	} else {
		err = r.db.SelectContext(ctx, &records,
			`SELECT * FROM classification_adjustments WHERE status = $1 ORDER BY created_at DESC, id DESC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("error listing adjustments: %w", err)
	}

	return records, nil
}
