package postgres

import (
	"context"
	"fmt"

	"github.com/sparecast/sparecast/internal/domain"
)

// ConsumptionRepository reads the monthly consumption aggregates produced
// by the requisition workflow.
type ConsumptionRepository struct {
	db *DB
}

func NewConsumptionRepository(db *DB) *ConsumptionRepository {
	return &ConsumptionRepository{db: db}
}

// MonthlyConsumption returns per-item monthly totals from fromMonth
// ("2006-01") onward. Months without consumption produce no rows; the
// history builder zero-fills them.
func (r *ConsumptionRepository) MonthlyConsumption(ctx context.Context, fromMonth string) ([]domain.MonthlyConsumption, error) {
	query := `
		SELECT item_code,
		       to_char(consumed_at, 'YYYY-MM') AS month,
		       SUM(quantity) AS quantity
		FROM consumption_records
		WHERE consumed_at >= to_date($1, 'YYYY-MM')
		GROUP BY item_code, to_char(consumed_at, 'YYYY-MM')
		ORDER BY item_code, month
	`

	var records []domain.MonthlyConsumption
	if err := r.db.SelectContext(ctx, &records, query, fromMonth); err != nil {
		return nil, fmt.Errorf("error loading monthly consumption: %w", err)
	}

	return records, nil
}
