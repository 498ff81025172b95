package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

var day0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func analysisAt(days int, score int, concerns ...string) store.SkinAnalysis {
	return store.SkinAnalysis{
		UserID:        1,
		AnalysisType:  "photo",
		ProgressScore: score,
		Concerns:      concerns,
		CreatedAt:     day0.Add(time.Duration(days) * 24 * time.Hour),
	}
}

func TestCompare_ScoreChange(t *testing.T) {
	tests := []struct {
		name      string
		before    int
		after     int
		wantAbs   int
		wantPct   float64
		wantTrend string
	}{
		{"improving", 40, 60, 20, 50, TrendImproving},
		{"unchanged", 50, 50, 0, 0, TrendStable},
		{"declining", 50, 40, -10, -20, TrendDeclining},
		{"upper boundary stays stable", 50, 55, 5, 10, TrendStable},
		{"just past upper boundary", 50, 56, 6, 12, TrendImproving},
		{"lower boundary stays stable", 50, 45, -5, -10, TrendStable},
		{"just past lower boundary", 50, 44, -6, -12, TrendDeclining},
		{"zero baseline guards percentage", 0, 30, 30, 0, TrendImproving},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compare(analysisAt(0, tt.before), analysisAt(14, tt.after))
			assert.Equal(t, tt.wantAbs, res.ScoreChange.Absolute)
			assert.InDelta(t, tt.wantPct, res.ScoreChange.Percentage, 1e-9)
			assert.Equal(t, tt.wantTrend, res.ScoreChange.Trend)
		})
	}
}

func TestCompare_ReordersChronologically(t *testing.T) {
	earlier := analysisAt(0, 40)
	later := analysisAt(30, 60)

	res := Compare(later, earlier)
	assert.Equal(t, 40, res.Before.ProgressScore)
	assert.Equal(t, 60, res.After.ProgressScore)
	assert.Equal(t, 20, res.ScoreChange.Absolute)
	assert.Equal(t, earlier.CreatedAt, res.Timeframe.Start)
	assert.Equal(t, "1 months", res.Timeframe.Duration)
}

func TestCompare_ConcernSets(t *testing.T) {
	before := analysisAt(0, 50, "acne", "dryness")
	after := analysisAt(10, 50, "dryness", "redness")

	res := Compare(before, after)
	assert.Equal(t, []string{"acne"}, res.ConcernAnalysis.Resolved)
	assert.Equal(t, []string{"redness"}, res.ConcernAnalysis.New)
	assert.Equal(t, []string{"dryness"}, res.ConcernAnalysis.Stable)
	assert.Empty(t, res.ConcernAnalysis.Improved)
	assert.Empty(t, res.ConcernAnalysis.Worsened)
	assert.Contains(t, res.Recommendations, "Celebrate resolved concerns - your routine is effective!")
	assert.Contains(t, res.Recommendations, "Address new concerns promptly to prevent progression")
}

func TestCompare_SeverityMovement(t *testing.T) {
	before := analysisAt(0, 50, "acne", "dryness", "redness")
	before.ConcernSeverity = map[string]int{"acne": 7, "dryness": 3, "redness": 4}
	after := analysisAt(20, 58, "acne", "dryness", "redness")
	after.ConcernSeverity = map[string]int{"acne": 4, "dryness": 6}

	res := Compare(before, after)
	assert.Equal(t, []string{"acne"}, res.ConcernAnalysis.Improved)
	assert.Equal(t, []string{"dryness"}, res.ConcernAnalysis.Worsened)
	assert.Equal(t, []string{"acne", "dryness", "redness"}, res.ConcernAnalysis.Stable)
}

func TestTimespan(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{1, "1 days"},
		{3, "3 days"},
		{6, "6 days"},
		{7, "1 weeks"},
		{8, "2 weeks"},
		{10, "2 weeks"},
		{29, "5 weeks"},
		{30, "1 months"},
		{31, "2 months"},
		{364, "13 months"},
		{365, "1 years"},
		{366, "2 years"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			end := day0.Add(time.Duration(tt.days) * 24 * time.Hour)
			assert.Equal(t, tt.want, Timespan(day0, end))
			assert.Equal(t, tt.want, Timespan(end, day0), "order must not matter")
		})
	}

	assert.Equal(t, "1 days", Timespan(day0, day0.Add(2*time.Hour)), "partial days round up")
}

func TestMilestones(t *testing.T) {
	analyses := []store.SkinAnalysis{
		analysisAt(60, 75, "dryness"),
		analysisAt(0, 40, "acne", "dryness"),
		analysisAt(30, 52, "dryness", "redness"),
		analysisAt(45, 52, "dryness", "redness"),
	}

	ms := Milestones(analyses)
	require.Len(t, ms, 4)

	assert.Equal(t, 40, ms[0].Score)
	assert.Equal(t, "Baseline assessment established", ms[0].Notes)
	assert.Equal(t, []string{"Initial assessment"}, ms[0].MajorChanges)

	assert.Equal(t, "Mid-journey assessment", ms[1].Notes)
	assert.Equal(t, []string{"Significant improvement", "Resolved: acne", "New concerns: redness"}, ms[1].MajorChanges)

	assert.Equal(t, "Advanced progress tracking", ms[2].Notes)
	assert.Equal(t, []string{"Routine progress check"}, ms[2].MajorChanges)

	assert.Equal(t, "Most recent progress check", ms[3].Notes)
	assert.Equal(t, []string{"Significant improvement", "Resolved: redness"}, ms[3].MajorChanges)
}

func TestMetrics_NeedsTwoAnalyses(t *testing.T) {
	_, err := Metrics(nil)
	assert.ErrorIs(t, err, ErrInsufficientAnalyses)

	_, err = Metrics([]store.SkinAnalysis{analysisAt(0, 50)})
	assert.ErrorIs(t, err, ErrInsufficientAnalyses)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMetrics_BaselineToLatest(t *testing.T) {
	m, err := Metrics([]store.SkinAnalysis{
		analysisAt(21, 62, "dryness"),
		analysisAt(0, 45, "acne", "dryness"),
	})
	require.NoError(t, err)
	assert.Equal(t, 17, m.OverallImprovement)
	assert.Equal(t, "3 weeks", m.Timespan)
	assert.Equal(t, []string{"acne"}, m.ConcernsResolved)
	assert.Empty(t, m.NewConcerns)
	assert.Equal(t, []string{
		"Excellent progress! Continue your current routine",
		"Consider maintenance phase with current products",
		"Great job resolving: acne",
	}, m.Recommendations)
	assert.Len(t, m.Milestones, 2)
}

func TestProgressStatus(t *testing.T) {
	tests := map[int]string{
		25:  "Excellent Progress",
		20:  "Good Progress",
		11:  "Good Progress",
		10:  "Steady Improvement",
		1:   "Steady Improvement",
		0:   "Stable Condition",
		-9:  "Stable Condition",
		-10: "Needs Attention",
	}
	for improvement, want := range tests {
		assert.Equal(t, want, ProgressStatus(improvement), "improvement %d", improvement)
	}
}

func TestTimeline(t *testing.T) {
	entries := Timeline([]store.SkinAnalysis{
		analysisAt(0, 40, "acne", "dryness", "redness", "pores"),
		analysisAt(10, 85),
		analysisAt(20, 65),
		analysisAt(30, 50),
		analysisAt(40, 90),
	})
	require.Len(t, entries, 5)
	assert.Equal(t, []string{"acne", "dryness", "redness"}, entries[0].PrimaryConcerns)

	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		labels = append(labels, e.Milestone)
	}
	assert.Equal(t, []string{"baseline", "excellent", "good", "monitoring", "latest"}, labels)
}

func TestProgressService(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	owner := newUser(t, s, "owner")
	other := newUser(t, s, "other")

	add := func(userID int64, a store.SkinAnalysis) int64 {
		a.UserID = userID
		require.NoError(t, s.CreateAnalysis(ctx, &a))
		return a.ID
	}
	svc := NewProgressService(s, zap.NewNop())

	first := add(owner.ID, analysisAt(0, 40, "acne"))

	_, err := svc.Metrics(ctx, owner.ID)
	assert.ErrorIs(t, err, ErrInsufficientAnalyses)
	_, err = svc.Report(ctx, owner.ID)
	assert.ErrorIs(t, err, ErrInsufficientAnalyses)

	second := add(owner.ID, analysisAt(14, 60))
	foreign := add(other.ID, analysisAt(7, 70))

	t.Run("compare own analyses", func(t *testing.T) {
		res, err := svc.CompareAnalyses(ctx, owner.ID, second, first)
		require.NoError(t, err)
		assert.Equal(t, TrendImproving, res.ScoreChange.Trend)
		assert.Equal(t, first, res.Before.ID)
	})

	t.Run("foreign analysis is forbidden", func(t *testing.T) {
		_, err := svc.CompareAnalyses(ctx, owner.ID, first, foreign)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("foreign analysis is forbidden even when the other id is missing", func(t *testing.T) {
		_, err := svc.CompareAnalyses(ctx, owner.ID, 9999, foreign)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing analysis is not found", func(t *testing.T) {
		_, err := svc.CompareAnalyses(ctx, owner.ID, first, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("report", func(t *testing.T) {
		rep, err := svc.Report(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, rep.Summary.TotalAnalyses)
		assert.Equal(t, 20, rep.Summary.OverallImprovement)
		assert.Equal(t, "Good Progress", rep.Summary.Status)
		assert.Equal(t, "2 weeks", rep.Summary.Timespan)
		assert.Equal(t, "Consider transitioning to maintenance routine", rep.NextSteps[0])
		assert.Len(t, rep.NextSteps, 4)
		assert.Len(t, rep.Timeline, 2)
	})
}
