package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// Fixed score thresholds. A comparison trend moves past ±trendThreshold,
// a milestone records a major change past ±majorChangeThreshold.
const (
	trendThreshold       = 5
	majorChangeThreshold = 10
)

type Timeframe struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration string    `json:"duration"`
}

type ScoreChange struct {
	Absolute   int     `json:"absolute"`
	Percentage float64 `json:"percentage"`
	Trend      string  `json:"trend"`
}

type ConcernAnalysis struct {
	Resolved []string `json:"resolved"`
	Improved []string `json:"improved"`
	Stable   []string `json:"stable"`
	Worsened []string `json:"worsened"`
	New      []string `json:"new"`
}

type ComparisonResult struct {
	Before          store.SkinAnalysis `json:"before"`
	After           store.SkinAnalysis `json:"after"`
	Timeframe       Timeframe          `json:"timeframe"`
	ScoreChange     ScoreChange        `json:"scoreChange"`
	ConcernAnalysis ConcernAnalysis    `json:"concernAnalysis"`
	Recommendations []string           `json:"recommendations"`
}

type Milestone struct {
	Date         time.Time `json:"date"`
	Score        int       `json:"score"`
	MajorChanges []string  `json:"majorChanges"`
	Notes        string    `json:"notes"`
}

type ProgressMetrics struct {
	OverallImprovement int         `json:"overallImprovement"`
	Timespan           string      `json:"timespan"`
	ConcernsResolved   []string    `json:"concernsResolved"`
	ConcernsImproved   []string    `json:"concernsImproved"`
	ConcernsWorsened   []string    `json:"concernsWorsened"`
	NewConcerns        []string    `json:"newConcerns"`
	Recommendations    []string    `json:"recommendations"`
	Milestones         []Milestone `json:"milestones"`
}

type TimelineEntry struct {
	ID              int64     `json:"id"`
	Date            time.Time `json:"date"`
	Score           int       `json:"score"`
	AnalysisType    string    `json:"analysisType"`
	PrimaryConcerns []string  `json:"primaryConcerns"`
	Milestone       string    `json:"milestone"`
	ImageRef        string    `json:"imageRef,omitempty"`
}

// Compare diffs two analyses of the same user. The arguments may come in
// either order; the earlier one is always treated as the baseline.
func Compare(a, b store.SkinAnalysis) ComparisonResult {
	before, after := a, b
	if after.CreatedAt.Before(before.CreatedAt) {
		before, after = after, before
	}

	change := scoreChange(before.ProgressScore, after.ProgressScore)
	concerns := diffConcerns(before, after)

	return ComparisonResult{
		Before: before,
		After:  after,
		Timeframe: Timeframe{
			Start:    before.CreatedAt,
			End:      after.CreatedAt,
			Duration: Timespan(before.CreatedAt, after.CreatedAt),
		},
		ScoreChange:     change,
		ConcernAnalysis: concerns,
		Recommendations: comparisonRecommendations(change.Trend, concerns),
	}
}

func scoreChange(before, after int) ScoreChange {
	diff := after - before
	var pct float64
	if before != 0 {
		pct = float64(diff) / float64(before) * 100
	}
	return ScoreChange{Absolute: diff, Percentage: pct, Trend: trendOf(diff)}
}

func trendOf(diff int) string {
	switch {
	case diff > trendThreshold:
		return TrendImproving
	case diff < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// diffConcerns splits the concern lists into resolved, new and persisting
// sets. Persisting concerns with a severity on both sides are additionally
// reported as improved or worsened when that severity moved.
func diffConcerns(before, after store.SkinAnalysis) ConcernAnalysis {
	ca := ConcernAnalysis{
		Resolved: difference(before.Concerns, after.Concerns),
		New:      difference(after.Concerns, before.Concerns),
		Stable:   intersection(before.Concerns, after.Concerns),
		Improved: []string{},
		Worsened: []string{},
	}
	for _, c := range ca.Stable {
		prev, okPrev := before.ConcernSeverity[c]
		cur, okCur := after.ConcernSeverity[c]
		if !okPrev || !okCur {
			continue
		}
		switch {
		case cur < prev:
			ca.Improved = append(ca.Improved, c)
		case cur > prev:
			ca.Worsened = append(ca.Worsened, c)
		}
	}
	return ca
}

// difference returns the distinct elements of a missing from b, in a's order.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	out := []string{}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := in[s]; ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func intersection(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	out := []string{}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := in[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Timespan renders the distance between two instants using whole days
// rounded up, bucketed into days, weeks (<30d), months (<365d) or years.
func Timespan(start, end time.Time) string {
	diff := end.Sub(start)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / 24))

	switch {
	case days < 7:
		return fmt.Sprintf("%d days", days)
	case days < 30:
		return fmt.Sprintf("%d weeks", ceilDiv(days, 7))
	case days < 365:
		return fmt.Sprintf("%d months", ceilDiv(days, 30))
	default:
		return fmt.Sprintf("%d years", ceilDiv(days, 365))
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func sortByCreated(analyses []store.SkinAnalysis) []store.SkinAnalysis {
	sorted := make([]store.SkinAnalysis, len(analyses))
	copy(sorted, analyses)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	return sorted
}

// Milestones labels each analysis in chronological order and lists what
// changed since the one before it.
func Milestones(analyses []store.SkinAnalysis) []Milestone {
	sorted := sortByCreated(analyses)
	out := make([]Milestone, 0, len(sorted))
	for i, a := range sorted {
		var prev *store.SkinAnalysis
		if i > 0 {
			prev = &sorted[i-1]
		}
		out = append(out, Milestone{
			Date:         a.CreatedAt,
			Score:        a.ProgressScore,
			MajorChanges: majorChanges(a, prev),
			Notes:        milestoneNote(i, len(sorted)),
		})
	}
	return out
}

func majorChanges(cur store.SkinAnalysis, prev *store.SkinAnalysis) []string {
	if prev == nil {
		return []string{"Initial assessment"}
	}

	var changes []string
	diff := cur.ProgressScore - prev.ProgressScore
	if diff > majorChangeThreshold {
		changes = append(changes, "Significant improvement")
	}
	if diff < -majorChangeThreshold {
		changes = append(changes, "Concerning decline")
	}
	if resolved := difference(prev.Concerns, cur.Concerns); len(resolved) > 0 {
		changes = append(changes, "Resolved: "+strings.Join(resolved, ", "))
	}
	if added := difference(cur.Concerns, prev.Concerns); len(added) > 0 {
		changes = append(changes, "New concerns: "+strings.Join(added, ", "))
	}
	if len(changes) == 0 {
		return []string{"Routine progress check"}
	}
	return changes
}

func milestoneNote(index, total int) string {
	if index == 0 {
		return "Baseline assessment established"
	}
	if index == total-1 {
		return "Most recent progress check"
	}
	progress := float64(index+1) / float64(total) * 100
	switch {
	case progress <= 25:
		return "Early stage monitoring"
	case progress <= 50:
		return "Mid-journey assessment"
	case progress <= 75:
		return "Advanced progress tracking"
	default:
		return "Comprehensive long-term follow-up"
	}
}

func timelineLabel(a store.SkinAnalysis, index, total int) string {
	switch {
	case index == 0:
		return "baseline"
	case index == total-1:
		return "latest"
	case a.ProgressScore > 80:
		return "excellent"
	case a.ProgressScore > 60:
		return "good"
	default:
		return "monitoring"
	}
}

// Timeline summarizes each analysis oldest first.
func Timeline(analyses []store.SkinAnalysis) []TimelineEntry {
	sorted := sortByCreated(analyses)
	out := make([]TimelineEntry, 0, len(sorted))
	for i, a := range sorted {
		primary := a.Concerns
		if len(primary) > 3 {
			primary = primary[:3]
		}
		if primary == nil {
			primary = []string{}
		}
		out = append(out, TimelineEntry{
			ID:              a.ID,
			Date:            a.CreatedAt,
			Score:           a.ProgressScore,
			AnalysisType:    a.AnalysisType,
			PrimaryConcerns: primary,
			Milestone:       timelineLabel(a, i, len(sorted)),
			ImageRef:        a.ImageRef,
		})
	}
	return out
}

// Metrics compares the earliest and latest analyses. It needs at least two.
func Metrics(analyses []store.SkinAnalysis) (ProgressMetrics, error) {
	if len(analyses) < 2 {
		return ProgressMetrics{}, ErrInsufficientAnalyses
	}
	sorted := sortByCreated(analyses)
	baseline, latest := sorted[0], sorted[len(sorted)-1]

	improvement := latest.ProgressScore - baseline.ProgressScore
	concerns := diffConcerns(baseline, latest)

	return ProgressMetrics{
		OverallImprovement: improvement,
		Timespan:           Timespan(baseline.CreatedAt, latest.CreatedAt),
		ConcernsResolved:   concerns.Resolved,
		ConcernsImproved:   concerns.Improved,
		ConcernsWorsened:   concerns.Worsened,
		NewConcerns:        concerns.New,
		Recommendations:    progressRecommendations(improvement, concerns.Resolved, concerns.New),
		Milestones:         Milestones(sorted),
	}, nil
}

func ProgressStatus(improvement int) string {
	switch {
	case improvement > 20:
		return "Excellent Progress"
	case improvement > 10:
		return "Good Progress"
	case improvement > 0:
		return "Steady Improvement"
	case improvement > -10:
		return "Stable Condition"
	default:
		return "Needs Attention"
	}
}

func progressRecommendations(improvement int, resolved, added []string) []string {
	recs := []string{}
	switch {
	case improvement > 10:
		recs = append(recs, "Excellent progress! Continue your current routine",
			"Consider maintenance phase with current products")
	case improvement > 0:
		recs = append(recs, "Good improvement trend - stay consistent",
			"Consider adding targeted treatments for remaining concerns")
	case improvement < -5:
		recs = append(recs, "Regression detected - review routine with dermatologist",
			"Consider lifestyle factors affecting skin health")
	}
	if len(resolved) > 0 {
		recs = append(recs, "Great job resolving: "+strings.Join(resolved, ", "))
	}
	if len(added) > 0 {
		recs = append(recs, "Address new concerns: "+strings.Join(added, ", "))
	}
	return recs
}

func comparisonRecommendations(trend string, ca ConcernAnalysis) []string {
	var recs []string
	switch trend {
	case TrendImproving:
		recs = []string{"Continue current routine - it's working well",
			"Consider gradual introduction of anti-aging products"}
	case TrendStable:
		recs = []string{"Maintain consistency in your routine",
			"Consider seasonal adjustments or targeted treatments"}
	case TrendDeclining:
		recs = []string{"Schedule dermatologist consultation",
			"Review products for irritation or incompatibility"}
	}
	if len(ca.Resolved) > 0 {
		recs = append(recs, "Celebrate resolved concerns - your routine is effective!")
	}
	if len(ca.Worsened) > 0 {
		recs = append(recs, "Monitor worsening concerns: "+strings.Join(ca.Worsened, ", "))
	}
	if len(ca.New) > 0 {
		recs = append(recs, "Address new concerns promptly to prevent progression")
	}
	return recs
}

func nextSteps(improvement int) []string {
	var steps []string
	switch {
	case improvement > 15:
		steps = []string{"Consider transitioning to maintenance routine", "Schedule quarterly progress photos"}
	case improvement > 5:
		steps = []string{"Continue current routine for 4-6 more weeks", "Take monthly progress photos"}
	default:
		steps = []string{"Evaluate routine effectiveness with professional", "Consider patch testing new products"}
	}
	return append(steps, "Maintain consistent sleep and hydration", "Document any lifestyle changes affecting skin")
}
