package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/sparecast/sparecast/internal/domain"
)

// RunExporter writes a completed run's classification snapshot as a CSV
// object under classify/<period>/<run-id>.csv.
type RunExporter struct {
	store ObjectStorage
}

func NewRunExporter(store ObjectStorage) *RunExporter {
	return &RunExporter{store: store}
}

func (e *RunExporter) ExportRun(ctx context.Context, run *domain.EngineRun, results []domain.ClassificationResult) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"item_code", "item_name", "period", "abc_class", "xyz_class", "tier_code",
		"composite_score", "annual_value", "cv2",
		"safety_stock", "reorder_point", "service_level", "manually_adjusted",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		record := []string{
			r.ItemCode,
			r.ItemName,
			r.Period,
			string(r.ABCClass),
			string(r.XYZClass),
			r.TierCode,
			strconv.FormatFloat(r.CompositeScore, 'f', 2, 64),
			r.AnnualValue.StringFixed(2),
			strconv.FormatFloat(r.CV2, 'f', 4, 64),
			strconv.Itoa(r.SafetyStock),
			strconv.Itoa(r.ReorderPoint),
			strconv.FormatFloat(r.ServiceLevel, 'f', 2, 64),
			strconv.FormatBool(r.ManuallyAdjusted),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row for %s: %w", r.ItemCode, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	key := fmt.Sprintf("classify/%s/%s.csv", run.Period, run.ID)
	if err := e.store.UploadObject(ctx, key, buf.Bytes(), "text/csv"); err != nil {
		return err
	}

	log.Info().
		Str("run_id", run.ID).
		Str("key", key).
		Int("rows", len(results)).
		Msg("run snapshot exported")

	return nil
}
