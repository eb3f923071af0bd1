package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/repository"
)

// stubResults covers the slice of ResultStore the adjustment workflow
// touches; the embedded interface panics on anything else.
type stubResults struct {
	repository.ResultStore

	latest   map[string]*domain.ClassificationResult
	override struct {
		itemCode string
		tierCode string
		calls    int
	}
}

func (s *stubResults) LatestClassification(ctx context.Context, itemCode string) (*domain.ClassificationResult, error) {
	return s.latest[itemCode], nil
}

func (s *stubResults) ApplyTierOverride(ctx context.Context, itemCode, tierCode string) error {
	s.override.itemCode = itemCode
	s.override.tierCode = tierCode
	s.override.calls++
	return nil
}

type stubAdjustments struct {
	records map[int64]*domain.AdjustmentRecord
	nextID  int64
}

func newStubAdjustments() *stubAdjustments {
	return &stubAdjustments{records: make(map[int64]*domain.AdjustmentRecord)}
}

func (s *stubAdjustments) Create(ctx context.Context, rec *domain.AdjustmentRecord) error {
	s.nextID++
	rec.ID = s.nextID
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *stubAdjustments) Get(ctx context.Context, id int64) (*domain.AdjustmentRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *stubAdjustments) UpdateDecision(ctx context.Context, rec *domain.AdjustmentRecord) error {
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *stubAdjustments) List(ctx context.Context, status domain.AdjustmentStatus) ([]domain.AdjustmentRecord, error) {
	var out []domain.AdjustmentRecord
	for _, rec := range s.records {
		if status == "" || rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func classifiedItem(code, tier string) *domain.ClassificationResult {
	return &domain.ClassificationResult{
		ItemCode: code,
		ABCClass: domain.ABCClass(tier[:1]),
		XYZClass: domain.XYZClass(tier[1:]),
		TierCode: tier,
	}
}

func TestSubmitAdjustment(t *testing.T) {
	ctx := context.Background()
	results := &stubResults{latest: map[string]*domain.ClassificationResult{
		"PMP-001": classifiedItem("PMP-001", "BX"),
	}}
	svc := NewClassifyService(results, newStubAdjustments(), nil)

	t.Run("captures the current tier as original", func(t *testing.T) {
		rec, err := svc.SubmitAdjustment(ctx, "PMP-001", "ay", "critical pump", "alex")
		require.NoError(t, err)

		assert.Equal(t, "BX", rec.OriginalTier)
		assert.Equal(t, "AY", rec.ProposedTier)
		assert.Equal(t, domain.AdjustmentPending, rec.Status)
		assert.NotZero(t, rec.ID)
	})

	t.Run("rejects malformed tiers", func(t *testing.T) {
		_, err := svc.SubmitAdjustment(ctx, "PMP-001", "AQ", "", "alex")
		assert.ErrorIs(t, err, ErrInvalidTier)

		_, err = svc.SubmitAdjustment(ctx, "PMP-001", "AXY", "", "alex")
		assert.ErrorIs(t, err, ErrInvalidTier)
	})

	t.Run("rejects unclassified items", func(t *testing.T) {
		_, err := svc.SubmitAdjustment(ctx, "UNKNOWN", "AX", "", "alex")
		assert.ErrorIs(t, err, ErrNotClassified)
	})
}

func TestApproveAdjustment(t *testing.T) {
	ctx := context.Background()
	results := &stubResults{latest: map[string]*domain.ClassificationResult{
		"PMP-001": classifiedItem("PMP-001", "BX"),
	}}
	adjustments := newStubAdjustments()
	svc := NewClassifyService(results, adjustments, nil)

	rec, err := svc.SubmitAdjustment(ctx, "PMP-001", "AX", "critical pump", "alex")
	require.NoError(t, err)

	approved, err := svc.ApproveAdjustment(ctx, rec.ID, "sam", "agreed")
	require.NoError(t, err)

	assert.Equal(t, domain.AdjustmentApproved, approved.Status)
	assert.Equal(t, "sam", approved.Reviewer)
	assert.Equal(t, 1, results.override.calls)
	assert.Equal(t, "PMP-001", results.override.itemCode)
	assert.Equal(t, "AX", results.override.tierCode)

	t.Run("decided exactly once", func(t *testing.T) {
		_, err := svc.ApproveAdjustment(ctx, rec.ID, "sam", "")
		assert.ErrorIs(t, err, ErrNotPending)

		_, err = svc.RejectAdjustment(ctx, rec.ID, "sam", "")
		assert.ErrorIs(t, err, ErrNotPending)

		assert.Equal(t, 1, results.override.calls)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.ApproveAdjustment(ctx, 999, "sam", "")
		assert.ErrorIs(t, err, ErrAdjustmentNotFound)
	})
}

func TestRejectAdjustment(t *testing.T) {
	ctx := context.Background()
	results := &stubResults{latest: map[string]*domain.ClassificationResult{
		"BRG-002": classifiedItem("BRG-002", "CY"),
	}}
	svc := NewClassifyService(results, newStubAdjustments(), nil)

	rec, err := svc.SubmitAdjustment(ctx, "BRG-002", "BY", "seasonal use", "alex")
	require.NoError(t, err)

	rejected, err := svc.RejectAdjustment(ctx, rec.ID, "sam", "not justified")
	require.NoError(t, err)

	assert.Equal(t, domain.AdjustmentRejected, rejected.Status)
	assert.Equal(t, "not justified", rejected.Remark)
	// The classification is untouched on rejection.
	assert.Zero(t, results.override.calls)

	t.Run("rejected records cannot be approved later", func(t *testing.T) {
		_, err := svc.ApproveAdjustment(ctx, rec.ID, "sam", "")
		assert.ErrorIs(t, err, ErrNotPending)
	})
}

func TestListAdjustmentsByStatus(t *testing.T) {
	ctx := context.Background()
	results := &stubResults{latest: map[string]*domain.ClassificationResult{
		"PMP-001": classifiedItem("PMP-001", "BX"),
	}}
	svc := NewClassifyService(results, newStubAdjustments(), nil)

	first, err := svc.SubmitAdjustment(ctx, "PMP-001", "AX", "", "alex")
	require.NoError(t, err)
	_, err = svc.SubmitAdjustment(ctx, "PMP-001", "AY", "", "alex")
	require.NoError(t, err)

	_, err = svc.ApproveAdjustment(ctx, first.ID, "sam", "")
	require.NoError(t, err)

	pending, err := svc.Adjustments(ctx, domain.AdjustmentPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := svc.Adjustments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
