package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sparecast/sparecast/internal/cache"
	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/repository"
)

// ClassifyService serves classification queries and owns the manual
// adjustment workflow.
type ClassifyService struct {
	results     repository.ResultStore
	adjustments repository.AdjustmentStore
	cache       cache.ClassificationCache
}

func NewClassifyService(results repository.ResultStore, adjustments repository.AdjustmentStore, cacheImpl cache.ClassificationCache) *ClassifyService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopClassificationCache()
	}
	return &ClassifyService{results: results, adjustments: adjustments, cache: cacheImpl}
}

func (s *ClassifyService) Classifications(ctx context.Context, filter domain.ClassificationFilter) ([]domain.ClassificationResult, int, error) {
	if results, total, ok, err := s.cache.GetPage(ctx, filter); err == nil && ok {
		return results, total, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("classify: cache get page failed")
	}

	results, total, err := s.results.LatestClassifications(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if err := s.cache.SetPage(ctx, filter, results, total); err != nil {
		log.Warn().Err(err).Msg("classify: cache set page failed")
	}

	return results, total, nil
}

func (s *ClassifyService) History(ctx context.Context, itemCode string) ([]domain.ClassificationResult, error) {
	return s.results.ClassificationHistory(ctx, itemCode)
}

func (s *ClassifyService) Item(ctx context.Context, itemCode string) (*domain.ClassificationResult, error) {
	result, err := s.results.LatestClassification(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrNotClassified
	}
	return result, nil
}

// Matrix returns item counts for all 9 ABC×XYZ cells.
func (s *ClassifyService) Matrix(ctx context.Context) (map[string]int, error) {
	if matrix, ok, err := s.cache.GetMatrix(ctx); err == nil && ok {
		return matrix, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("classify: cache get matrix failed")
	}

	matrix, err := s.results.Matrix(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetMatrix(ctx, matrix); err != nil {
		log.Warn().Err(err).Msg("classify: cache set matrix failed")
	}

	return matrix, nil
}

// InvalidateCache drops the query cache; called after a run completes.
func (s *ClassifyService) InvalidateCache(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("classify: cache invalidation failed")
	}
}

// SubmitAdjustment records a proposed tier override for review. The item
// must already be classified; the proposal captures the tier it would
// replace.
func (s *ClassifyService) SubmitAdjustment(ctx context.Context, itemCode, proposedTier, reason, requester string) (*domain.AdjustmentRecord, error) {
	proposedTier = strings.ToUpper(strings.TrimSpace(proposedTier))
	if !validTierCode(proposedTier) {
		return nil, ErrInvalidTier
	}

	current, err := s.results.LatestClassification(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotClassified
	}

	now := time.Now().UTC()
	rec := &domain.AdjustmentRecord{
		ItemCode:     itemCode,
		OriginalTier: current.TierCode,
		ProposedTier: proposedTier,
		Reason:       reason,
		Requester:    requester,
		Status:       domain.AdjustmentPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.adjustments.Create(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().
		Str("item", itemCode).
		Str("from", rec.OriginalTier).
		Str("to", rec.ProposedTier).
		Str("requester", requester).
		Msg("adjustment submitted")

	return rec, nil
}

// ApproveAdjustment applies a pending adjustment: the proposed tier replaces
// the live classification and the item is locked against automatic
// recomputes. Each adjustment is decided exactly once.
func (s *ClassifyService) ApproveAdjustment(ctx context.Context, id int64, reviewer, remark string) (*domain.AdjustmentRecord, error) {
	rec, err := s.pendingAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.results.ApplyTierOverride(ctx, rec.ItemCode, rec.ProposedTier); err != nil {
		return nil, err
	}

	rec.Status = domain.AdjustmentApproved
	rec.Reviewer = reviewer
	rec.Remark = remark
	rec.UpdatedAt = time.Now().UTC()
	if err := s.adjustments.UpdateDecision(ctx, rec); err != nil {
		return nil, err
	}

	s.InvalidateCache(ctx)

	log.Info().
		Int64("adjustment_id", id).
		Str("item", rec.ItemCode).
		Str("tier", rec.ProposedTier).
		Str("reviewer", reviewer).
		Msg("adjustment approved")

	return rec, nil
}

// RejectAdjustment closes a pending adjustment without touching the
// classification.
func (s *ClassifyService) RejectAdjustment(ctx context.Context, id int64, reviewer, remark string) (*domain.AdjustmentRecord, error) {
	rec, err := s.pendingAdjustment(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.AdjustmentRejected
	rec.Reviewer = reviewer
	rec.Remark = remark
	rec.UpdatedAt = time.Now().UTC()
	if err := s.adjustments.UpdateDecision(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *ClassifyService) Adjustments(ctx context.Context, status domain.AdjustmentStatus) ([]domain.AdjustmentRecord, error) {
	return s.adjustments.List(ctx, status)
}

func (s *ClassifyService) pendingAdjustment(ctx context.Context, id int64) (*domain.AdjustmentRecord, error) {
	rec, err := s.adjustments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrAdjustmentNotFound
	}
	if rec.Status != domain.AdjustmentPending {
		return nil, ErrNotPending
	}
	return rec, nil
}

func validTierCode(tier string) bool {
	if len(tier) != 2 {
		return false
	}
	return strings.ContainsRune("ABC", rune(tier[0])) && strings.ContainsRune("XYZ", rune(tier[1]))
}
