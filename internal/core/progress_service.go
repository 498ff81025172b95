package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

type ProgressReport struct {
	Summary         ReportSummary   `json:"summary"`
	Metrics         ProgressMetrics `json:"metrics"`
	Timeline        []TimelineEntry `json:"timeline"`
	Recommendations []string        `json:"recommendations"`
	NextSteps       []string        `json:"nextSteps"`
}

type ReportSummary struct {
	TotalAnalyses      int    `json:"totalAnalyses"`
	OverallImprovement int    `json:"overallImprovement"`
	Timespan           string `json:"timespan"`
	Status             string `json:"status"`
}

// ProgressService serves the progress views over a user's stored analyses.
type ProgressService struct {
	analyses store.AnalysisRepository
	log      *zap.Logger
}

func NewProgressService(analyses store.AnalysisRepository, log *zap.Logger) *ProgressService {
	return &ProgressService{analyses: analyses, log: log.Named("progress")}
}

func (s *ProgressService) Metrics(ctx context.Context, userID int64) (ProgressMetrics, error) {
	const op = "core.ProgressService.Metrics"
	list, err := s.analyses.ListAnalyses(ctx, userID)
	if err != nil {
		return ProgressMetrics{}, fmt.Errorf("%s: %w", op, err)
	}
	m, err := Metrics(list)
	if err != nil {
		return ProgressMetrics{}, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// CompareAnalyses loads two analyses and diffs them. Ownership is checked
// before existence, so a request naming another user's analysis is
// rejected even when the other id does not exist.
func (s *ProgressService) CompareAnalyses(ctx context.Context, userID, firstID, secondID int64) (ComparisonResult, error) {
	const op = "core.ProgressService.CompareAnalyses"

	load := func(id int64) (*store.SkinAnalysis, error) {
		a, err := s.analyses.GetAnalysis(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return a, err
	}

	first, err := load(firstID)
	if err != nil {
		return ComparisonResult{}, fmt.Errorf("%s: %w", op, err)
	}
	second, err := load(secondID)
	if err != nil {
		return ComparisonResult{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, a := range []*store.SkinAnalysis{first, second} {
		if a != nil && a.UserID != userID {
			s.log.Warn("cross-user analysis comparison rejected",
				zap.String("op", op), zap.Int64("user_id", userID), zap.Int64("analysis_id", a.ID))
			return ComparisonResult{}, fmt.Errorf("%s: %w", op, ErrAnalysisNotOwned)
		}
	}
	if first == nil || second == nil {
		return ComparisonResult{}, fmt.Errorf("%s: %w: one or both analyses not found", op, ErrNotFound)
	}

	return Compare(*first, *second), nil
}

func (s *ProgressService) Timeline(ctx context.Context, userID int64) ([]TimelineEntry, error) {
	const op = "core.ProgressService.Timeline"
	list, err := s.analyses.ListAnalyses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return Timeline(list), nil
}

func (s *ProgressService) Report(ctx context.Context, userID int64) (ProgressReport, error) {
	const op = "core.ProgressService.Report"
	list, err := s.analyses.ListAnalyses(ctx, userID)
	if err != nil {
		return ProgressReport{}, fmt.Errorf("%s: %w", op, err)
	}
	m, err := Metrics(list)
	if err != nil {
		return ProgressReport{}, fmt.Errorf("%s: %w", op, err)
	}

	return ProgressReport{
		Summary: ReportSummary{
			TotalAnalyses:      len(list),
			OverallImprovement: m.OverallImprovement,
			Timespan:           m.Timespan,
			Status:             ProgressStatus(m.OverallImprovement),
		},
		Metrics:         m,
		Timeline:        Timeline(list),
		Recommendations: m.Recommendations,
		NextSteps:       nextSteps(m.OverallImprovement),
	}, nil
}
