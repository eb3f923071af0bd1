package service

import (
	"context"

	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/engine"
	"github.com/sparecast/sparecast/internal/repository"
)

// ForecastService triggers engine runs and serves forecast queries.
type ForecastService struct {
	engine  *engine.Engine
	results repository.ResultStore
	runs    repository.RunStore
}

func NewForecastService(eng *engine.Engine, results repository.ResultStore, runs repository.RunStore) *ForecastService {
	return &ForecastService{engine: eng, results: results, runs: runs}
}

// TriggerRun starts an asynchronous engine run and returns it immediately;
// callers poll RunStatus with the returned ID.
func (s *ForecastService) TriggerRun(ctx context.Context) (*domain.EngineRun, error) {
	return s.engine.Start(ctx)
}

func (s *ForecastService) RunStatus(ctx context.Context, id string) (*domain.EngineRun, error) {
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

func (s *ForecastService) RecentRuns(ctx context.Context, limit int) ([]domain.EngineRun, error) {
	return s.runs.Recent(ctx, limit)
}

func (s *ForecastService) Forecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.ForecastResult, int, error) {
	return s.results.Forecasts(ctx, filter)
}

func (s *ForecastService) History(ctx context.Context, itemCode string) ([]domain.ForecastResult, error) {
	return s.results.ForecastHistory(ctx, itemCode)
}

func (s *ForecastService) Suggestions(ctx context.Context, period string) ([]domain.ReorderSuggestion, error) {
	return s.results.Suggestions(ctx, period)
}
