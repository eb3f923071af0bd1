package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/repository"
)

// ResultRepository persists and queries engine run output. Forecast and
// classification rows are append-only time series keyed by (item, period).
type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveRunResults writes one run's forecasts, classifications and reorder
// suggestions in a single transaction. Nothing is visible on failure.
func (r *ResultRepository) SaveRunResults(ctx context.Context,
	forecasts []domain.ForecastResult,
	classifications []domain.ClassificationResult,
	suggestions []domain.ReorderSuggestion) error {

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		fcStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO forecast_results (
				item_code, forecast_month, quantity, lower_bound, upper_bound,
				algorithm, mase, model_version, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`)
		if err != nil {
			return fmt.Errorf("prepare forecast insert: %w", err)
		}
		defer fcStmt.Close()

		for _, fc := range forecasts {
			if _, err := fcStmt.ExecContext(ctx,
				fc.ItemCode, fc.ForecastMonth, fc.Quantity, fc.LowerBound, fc.UpperBound,
				fc.Algorithm, fc.MASE, fc.ModelVersion, fc.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert forecast for %s: %w", fc.ItemCode, err)
			}
		}

		clStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO part_classifications (
				item_code, item_name, period, abc_class, xyz_class, tier_code,
				composite_score, annual_value,
				annual_value_score, criticality_score, lead_time_score, difficulty_score,
				cv2, safety_stock, reorder_point, service_level,
				manually_adjusted, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`)
		if err != nil {
			return fmt.Errorf("prepare classification insert: %w", err)
		}
		defer clStmt.Close()

		for _, cl := range classifications {
			if _, err := clStmt.ExecContext(ctx,
				cl.ItemCode, cl.ItemName, cl.Period, cl.ABCClass, cl.XYZClass, cl.TierCode,
				cl.CompositeScore, cl.AnnualValue,
				cl.AnnualValueScore, cl.CriticalityScore, cl.LeadTimeScore, cl.DifficultyScore,
				cl.CV2, cl.SafetyStock, cl.ReorderPoint, cl.ServiceLevel,
				cl.ManuallyAdjusted, cl.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert classification for %s: %w", cl.ItemCode, err)
			}
		}

		sgStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO reorder_suggestions (
				item_code, period, current_stock, reorder_point, suggested_qty,
				forecast_qty, lower_bound, upper_bound, urgency, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`)
		if err != nil {
			return fmt.Errorf("prepare suggestion insert: %w", err)
		}
		defer sgStmt.Close()

		for _, sg := range suggestions {
			if _, err := sgStmt.ExecContext(ctx,
				sg.ItemCode, sg.Period, sg.CurrentStock, sg.ReorderPoint, sg.SuggestedQty,
				sg.ForecastQty, sg.LowerBound, sg.UpperBound, sg.Urgency, sg.Status, sg.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert suggestion for %s: %w", sg.ItemCode, err)
			}
		}

		return nil
	})
}

// latestPerItem selects each item's most recent classification row.
const latestPerItem = `
	SELECT DISTINCT ON (item_code) *
	FROM part_classifications
	ORDER BY item_code, period DESC, id DESC
`

func (r *ResultRepository) TierOverrides(ctx context.Context) (map[string]repository.TierOverride, error) {
	query := `
		SELECT item_code, abc_class, xyz_class
		FROM (` + latestPerItem + `) latest
		WHERE manually_adjusted
	`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error loading tier overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]repository.TierOverride)
	for rows.Next() {
		var code string
		var ov repository.TierOverride
		if err := rows.Scan(&code, &ov.ABCClass, &ov.XYZClass); err != nil {
			return nil, err
		}
		overrides[code] = ov
	}

	return overrides, rows.Err()
}

func (r *ResultRepository) LatestClassifications(ctx context.Context, filter domain.ClassificationFilter) ([]domain.ClassificationResult, int, error) {
	where, args := classificationFilters(filter)

	var source string
	if filter.Period != "" {
		source = "SELECT * FROM part_classifications"
	} else {
		source = latestPerItem
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s) latest %s", source, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting classifications: %w", err)
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	query := fmt.Sprintf(`
		SELECT * FROM (%s) latest
		%s
		ORDER BY composite_score DESC, item_code
		LIMIT %d OFFSET %d
	`, source, where, pageSize, (page-1)*pageSize)

	var results []domain.ClassificationResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error querying classifications: %w", err)
	}

	return results, total, nil
}

func classificationFilters(filter domain.ClassificationFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	addCondition := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.ABCClass != "" {
		addCondition("abc_class", filter.ABCClass)
	}
	if filter.XYZClass != "" {
		addCondition("xyz_class", filter.XYZClass)
	}
	if filter.Period != "" {
		addCondition("period", filter.Period)
	}
	if filter.ItemCode != "" {
		args = append(args, "%"+filter.ItemCode+"%")
		conditions = append(conditions, fmt.Sprintf("item_code ILIKE $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *ResultRepository) ClassificationHistory(ctx context.Context, itemCode string) ([]domain.ClassificationResult, error) {
	query := `
		SELECT * FROM part_classifications
		WHERE item_code = $1
		ORDER BY period, id
	`

	var results []domain.ClassificationResult
	if err := r.db.SelectContext(ctx, &results, query, itemCode); err != nil {
		return nil, fmt.Errorf("error querying classification history: %w", err)
	}

	return results, nil
}

func (r *ResultRepository) LatestClassification(ctx context.Context, itemCode string) (*domain.ClassificationResult, error) {
	query := `
		SELECT * FROM part_classifications
		WHERE item_code = $1
		ORDER BY period DESC, id DESC
		LIMIT 1
	`

	var result domain.ClassificationResult
	err := r.db.GetContext(ctx, &result, query, itemCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying latest classification: %w", err)
	}

	return &result, nil
}

// Matrix returns the item count per ABC×XYZ cell over the latest
// classification of every item.
func (r *ResultRepository) Matrix(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT tier_code, COUNT(*) AS count
		FROM (` + latestPerItem + `) latest
		GROUP BY tier_code
	`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying matrix: %w", err)
	}
	defer rows.Close()

	// All 9 cells are always present, empty ones as zero.
	matrix := make(map[string]int, 9)
	for _, abc := range []string{"A", "B", "C"} {
		for _, xyz := range []string{"X", "Y", "Z"} {
			matrix[abc+xyz] = 0
		}
	}
	for rows.Next() {
		var tier string
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, err
		}
		matrix[tier] = count
	}

	return matrix, rows.Err()
}

// ApplyTierOverride rewrites the live classification's tier code and locks
// it against automatic recomputes.
func (r *ResultRepository) ApplyTierOverride(ctx context.Context, itemCode, tierCode string) error {
	query := `
		UPDATE part_classifications
		SET abc_class = $2, xyz_class = $3, tier_code = $4, manually_adjusted = TRUE
		WHERE id = (
			SELECT id FROM part_classifications
			WHERE item_code = $1
			ORDER BY period DESC, id DESC
			LIMIT 1
		)
	`

	res, err := r.db.ExecContext(ctx, query, itemCode, tierCode[:1], tierCode[1:2], tierCode)
	if err != nil {
		return fmt.Errorf("error applying tier override: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no classification found for item %s", itemCode)
	}

	return nil
}

func (r *ResultRepository) Forecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.ForecastResult, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Month != "" {
		args = append(args, filter.Month)
		conditions = append(conditions, fmt.Sprintf("forecast_month = $%d", len(args)))
	}
	if filter.ItemCode != "" {
		args = append(args, "%"+filter.ItemCode+"%")
		conditions = append(conditions, fmt.Sprintf("item_code ILIKE $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM forecast_results %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting forecasts: %w", err)
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	query := fmt.Sprintf(`
		SELECT * FROM forecast_results
		%s
		ORDER BY forecast_month DESC, item_code
		LIMIT %d OFFSET %d
	`, where, pageSize, (page-1)*pageSize)

	var results []domain.ForecastResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error querying forecasts: %w", err)
	}

	return results, total, nil
}

func (r *ResultRepository) ForecastHistory(ctx context.Context, itemCode string) ([]domain.ForecastResult, error) {
	query := `
		SELECT * FROM forecast_results
		WHERE item_code = $1
		ORDER BY forecast_month, id
	`

	var results []domain.ForecastResult
	if err := r.db.SelectContext(ctx, &results, query, itemCode); err != nil {
		return nil, fmt.Errorf("error querying forecast history: %w", err)
	}

	return results, nil
}

func (r *ResultRepository) Suggestions(ctx context.Context, period string) ([]domain.ReorderSuggestion, error) {
	query := `
		SELECT * FROM reorder_suggestions
		WHERE period = $1
		ORDER BY urgency DESC, item_code
	`

	var results []domain.ReorderSuggestion
	if err := r.db.SelectContext(ctx, &results, query, period); err != nil {
		return nil, fmt.Errorf("error querying reorder suggestions: %w", err)
	}

	return results, nil
}
