package postgres

import (
	"context"
	"fmt"

	"github.com/sparecast/sparecast/internal/domain"
)

// ItemRepository reads the item master and the on-hand stock ledger.
type ItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Items(ctx context.Context) ([]domain.ItemAttributes, error) {
	query := `
		SELECT code, name,
		       COALESCE(unit_price, 0) AS unit_price,
		       COALESCE(criticality, 'MEDIUM') AS criticality,
		       COALESCE(lead_time_days, 0) AS lead_time_days,
		       COALESCE(substitution_difficulty, 0) AS substitution_difficulty
		FROM items
		ORDER BY code
	`

	var items []domain.ItemAttributes
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("error loading item master: %w", err)
	}

	return items, nil
}

// OnHand returns current stock per item code. Items without a ledger row
// are simply absent (zero stock).
func (r *ItemRepository) OnHand(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT item_code, SUM(quantity) AS on_hand
		FROM stock_ledger
		GROUP BY item_code
	`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error loading stock ledger: %w", err)
	}
	defer rows.Close()

	onHand := make(map[string]int)
	for rows.Next() {
		var code string
		var qty int
		if err := rows.Scan(&code, &qty); err != nil {
			return nil, err
		}
		onHand[code] = qty
	}

	return onHand, rows.Err()
}
