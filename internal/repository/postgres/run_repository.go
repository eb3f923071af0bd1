package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sparecast/sparecast/internal/domain"
)

type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *domain.EngineRun) error {
	query := `
		INSERT INTO engine_runs (
			id, period, status, total_items, fallback_used, suggestions,
			started_at, completed_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Period, run.Status, run.TotalItems, run.FallbackUsed,
		run.Suggestions, run.StartedAt, run.CompletedAt, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("error creating run %s: %w", run.ID, err)
	}

	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *domain.EngineRun) error {
	query := `
		UPDATE engine_runs
		SET status = $2, total_items = $3, fallback_used = $4, suggestions = $5,
		    completed_at = $6, error_message = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.TotalItems, run.FallbackUsed, run.Suggestions,
		run.CompletedAt, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("error updating run %s: %w", run.ID, err)
	}

	return nil
}

func (r *RunRepository) Get(ctx context.Context, id string) (*domain.EngineRun, error) {
	var run domain.EngineRun
	err := r.db.GetContext(ctx, &run, `SELECT * FROM engine_runs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying run %s: %w", id, err)
	}

	return &run, nil
}

func (r *RunRepository) Recent(ctx context.Context, limit int) ([]domain.EngineRun, error) {
	if limit < 1 {
		limit = 20
	}

	var runs []domain.EngineRun
	err := r.db.SelectContext(ctx, &runs,
		`SELECT * FROM engine_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying recent runs: %w", err)
	}

	return runs, nil
}
