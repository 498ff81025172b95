package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

// Monthly spending ceiling in EGP per budget tier.
var budgetCeilings = map[int]float64{
	1: 500,
	2: 1000,
	3: 2000,
}

const (
	ImportanceEssential   = "essential"
	ImportanceRecommended = "recommended"
	ImportanceOptional    = "optional"
)

const fallbackRoutineExplanation = "Basic routine focusing on essential skincare steps"

type RoutinePreferences struct {
	PreferredBrands   []string `json:"preferredBrands,omitempty"`
	AvoidIngredients  []string `json:"avoidIngredients,omitempty"`
	RoutineComplexity string   `json:"routineComplexity,omitempty" validate:"omitempty,oneof=simple moderate comprehensive"`
}

type RoutineRequest struct {
	UserID         int64
	SkinType       string
	Concerns       []string
	BudgetTier     int
	CurrentRoutine string
	Preferences    RoutinePreferences
}

// RoutineStepDetail is a stored step with its product resolved.
type RoutineStepDetail struct {
	store.RoutineStep
	Product store.Product `json:"product"`
}

type RoutineRecommendation struct {
	Routine           store.Routine       `json:"routine"`
	Morning           []RoutineStepDetail `json:"morning"`
	Evening           []RoutineStepDetail `json:"evening"`
	Weekly            []RoutineStepDetail `json:"weekly"`
	MonthlyBudget     float64             `json:"monthlyBudget"`
	TotalProducts     int                 `json:"totalProducts"`
	Explanation       string              `json:"explanation"`
	ArabicExplanation string              `json:"arabicExplanation,omitempty"`
	Source            Source              `json:"source"`
}

// routinePlan is the arrangement the model returns.
type routinePlan struct {
	Morning           []store.RoutineStep `json:"morning"`
	Evening           []store.RoutineStep `json:"evening"`
	Weekly            []store.RoutineStep `json:"weekly"`
	MonthlyBudget     float64             `json:"monthlyBudget"`
	Explanation       string              `json:"explanation"`
	ArabicExplanation string              `json:"arabicExplanation"`
}

// restrictTo drops steps that reference products outside byID and
// renumbers what is left. A plan with neither morning nor evening steps
// is rejected.
func (p *routinePlan) restrictTo(byID map[int64]store.Product) error {
	keep := func(steps []store.RoutineStep) []store.RoutineStep {
		out := make([]store.RoutineStep, 0, len(steps))
		for _, st := range steps {
			if _, ok := byID[st.ProductID]; !ok {
				continue
			}
			if st.Category == "" {
				st.Category = byID[st.ProductID].Category
			}
			switch st.Importance {
			case ImportanceEssential, ImportanceRecommended, ImportanceOptional:
			default:
				st.Importance = ImportanceRecommended
			}
			if st.Frequency == "" {
				st.Frequency = "daily"
			}
			st.Step = len(out) + 1
			out = append(out, st)
		}
		return out
	}
	p.Morning = keep(p.Morning)
	p.Evening = keep(p.Evening)
	p.Weekly = keep(p.Weekly)

	if len(p.Morning) == 0 && len(p.Evening) == 0 {
		return errors.New("routine reply references no candidate products")
	}
	if p.MonthlyBudget <= 0 {
		p.MonthlyBudget = sumPrices(p.productIDs(), byID)
	}
	return nil
}

func (p *routinePlan) productIDs() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, group := range [][]store.RoutineStep{p.Morning, p.Evening, p.Weekly} {
		for _, st := range group {
			if !seen[st.ProductID] {
				seen[st.ProductID] = true
				ids = append(ids, st.ProductID)
			}
		}
	}
	return ids
}

func sumPrices(ids []int64, byID map[int64]store.Product) float64 {
	var total float64
	for _, id := range ids {
		total += byID[id].Price
	}
	return total
}

var essentialSteps = []struct {
	category     string
	instructions string
	arabic       string
	evening      bool
}{
	{"cleanser", "Massage onto damp skin for 60 seconds, then rinse with lukewarm water", "دلكي الغسول على بشرة مبللة لمدة دقيقة ثم اشطفي بماء فاتر", true},
	{"moisturizer", "Apply evenly to face and neck while skin is slightly damp", "ضعي المرطب بالتساوي على الوجه والرقبة والبشرة لا تزال رطبة", true},
	{"sunscreen", "Apply generously as the last morning step and reapply every 2 hours outdoors", "ضعي كمية كافية كآخر خطوة صباحية وأعيدي الاستخدام كل ساعتين في الخارج", false},
}

// fallbackPlan builds the minimal cleanser, moisturizer and sunscreen
// routine from the most effective candidate in each category. Categories
// with no candidate are left out.
func fallbackPlan(candidates []store.Product) routinePlan {
	best := make(map[string]store.Product)
	for _, p := range candidates {
		if cur, ok := best[p.Category]; !ok || p.Effectiveness > cur.Effectiveness {
			best[p.Category] = p
		}
	}

	plan := routinePlan{
		Morning:     []store.RoutineStep{},
		Evening:     []store.RoutineStep{},
		Weekly:      []store.RoutineStep{},
		Explanation: fallbackRoutineExplanation,
	}
	for _, es := range essentialSteps {
		p, ok := best[es.category]
		if !ok {
			continue
		}
		step := store.RoutineStep{
			Category:           es.category,
			ProductID:          p.ID,
			Instructions:       es.instructions,
			ArabicInstructions: es.arabic,
			Frequency:          "daily",
			Importance:         ImportanceEssential,
		}
		step.Step = len(plan.Morning) + 1
		plan.Morning = append(plan.Morning, step)
		if es.evening {
			step.Step = len(plan.Evening) + 1
			plan.Evening = append(plan.Evening, step)
		}
		plan.MonthlyBudget += p.Price
	}
	return plan
}

type RecommendationService struct {
	products store.ProductRepository
	routines store.RoutineRepository
	gen      Generator
	cache    ResultCache
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewRecommendationService wires the service. cache may be nil.
func NewRecommendationService(
	products store.ProductRepository,
	routines store.RoutineRepository,
	gen Generator,
	cache ResultCache,
	cacheTTL time.Duration,
	log *zap.Logger,
) *RecommendationService {
	return &RecommendationService{
		products: products,
		routines: routines,
		gen:      gen,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.Named("recommendation"),
	}
}

// Candidates returns the catalog products eligible for req. An empty skin
// type or concern list disables that criterion.
func (s *RecommendationService) Candidates(ctx context.Context, req RoutineRequest) ([]store.Product, error) {
	const op = "core.RecommendationService.Candidates"
	ceiling, ok := budgetCeilings[req.BudgetTier]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, invalidf("budget tier must be 1, 2 or 3, got %d", req.BudgetTier))
	}

	filter := store.ProductFilter{MaxPrice: ceiling, Concerns: req.Concerns}
	if st := strings.TrimSpace(req.SkinType); st != "" {
		filter.SkinTypes = []string{strings.ToLower(st)}
	}
	list, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]store.Product, 0, len(list))
	for _, p := range list {
		if containsAnyFold(p.Ingredients, req.Preferences.AvoidIngredients) {
			continue
		}
		if len(req.Preferences.PreferredBrands) > 0 && !containsAnyFold([]string{p.Brand}, req.Preferences.PreferredBrands) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// containsAnyFold reports whether any value contains any needle,
// ignoring case.
func containsAnyFold(values, needles []string) bool {
	for _, v := range values {
		v = strings.ToLower(v)
		for _, n := range needles {
			n = strings.ToLower(strings.TrimSpace(n))
			if n != "" && strings.Contains(v, n) {
				return true
			}
		}
	}
	return false
}

// GenerateRoutine builds and stores a routine for req. It fails with
// ErrNoSuitableProducts when nothing in the catalog qualifies.
func (s *RecommendationService) GenerateRoutine(ctx context.Context, req RoutineRequest) (RoutineRecommendation, error) {
	const op = "core.RecommendationService.GenerateRoutine"
	if req.BudgetTier == 0 {
		req.BudgetTier = 2
	}

	candidates, err := s.Candidates(ctx, req)
	if err != nil {
		return RoutineRecommendation{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(candidates) == 0 {
		s.log.Info("no candidates for routine",
			zap.String("op", op),
			zap.Int64("user_id", req.UserID),
			zap.String("skin_type", req.SkinType),
			zap.Strings("concerns", req.Concerns),
			zap.Int("budget_tier", req.BudgetTier))
		return RoutineRecommendation{}, fmt.Errorf("%s: %w", op, ErrNoSuitableProducts)
	}

	byID := make(map[int64]store.Product, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}

	out := generateJSON(ctx, s.gen, s.log, "routine.generate", GenerateRequest{
		System: dermatologistPersona,
		Prompt: routinePrompt(req, candidates),
	}, func(p *routinePlan) error {
		return p.restrictTo(byID)
	}, func() routinePlan {
		return fallbackPlan(candidates)
	})
	plan := out.Value

	routine := store.Routine{
		UserID:            req.UserID,
		Name:              fmt.Sprintf("Personalized Routine - Tier %d", req.BudgetTier),
		TimeOfDay:         "both",
		Steps:             store.RoutineSteps{Morning: plan.Morning, Evening: plan.Evening, Weekly: plan.Weekly},
		ProductIDs:        plan.productIDs(),
		BudgetTier:        fmt.Sprintf("tier%d", req.BudgetTier),
		MonthlyBudget:     plan.MonthlyBudget,
		Explanation:       plan.Explanation,
		ArabicExplanation: plan.ArabicExplanation,
		Source:            string(out.Source),
		IsActive:          true,
	}
	if routine.Steps.Weekly == nil {
		routine.Steps.Weekly = []store.RoutineStep{}
	}
	if err := s.routines.CreateRoutine(ctx, &routine); err != nil {
		return RoutineRecommendation{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("routine stored",
		zap.String("op", op),
		zap.Int64("user_id", req.UserID),
		zap.Int64("routine_id", routine.ID),
		zap.String("source", string(out.Source)),
		zap.Int("products", len(routine.ProductIDs)))

	return RoutineRecommendation{
		Routine:           routine,
		Morning:           detail(plan.Morning, byID),
		Evening:           detail(plan.Evening, byID),
		Weekly:            detail(plan.Weekly, byID),
		MonthlyBudget:     plan.MonthlyBudget,
		TotalProducts:     len(routine.ProductIDs),
		Explanation:       plan.Explanation,
		ArabicExplanation: plan.ArabicExplanation,
		Source:            out.Source,
	}, nil
}

func detail(steps []store.RoutineStep, byID map[int64]store.Product) []RoutineStepDetail {
	out := make([]RoutineStepDetail, 0, len(steps))
	for _, st := range steps {
		out = append(out, RoutineStepDetail{RoutineStep: st, Product: byID[st.ProductID]})
	}
	return out
}

func (s *RecommendationService) Routines(ctx context.Context, userID int64) ([]store.Routine, error) {
	const op = "core.RecommendationService.Routines"
	list, err := s.routines.ListRoutines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

type ScorePair struct {
	ProductA int `json:"productA"`
	ProductB int `json:"productB"`
}

func (p *ScorePair) clamp() {
	p.ProductA = clamp(p.ProductA, 1, 10)
	p.ProductB = clamp(p.ProductB, 1, 10)
}

type ProductComparison struct {
	Products             []store.Product `json:"products"`
	Effectiveness        ScorePair       `json:"effectiveness"`
	Value                ScorePair       `json:"value"`
	Suitability          ScorePair       `json:"suitability"`
	Recommendation       string          `json:"recommendation"`
	ArabicRecommendation string          `json:"arabicRecommendation,omitempty"`
	WinnerProductID      int64           `json:"winnerProductId"`
	Source               Source          `json:"source"`
}

func neutralComparison(a, b store.Product) ProductComparison {
	return ProductComparison{
		Effectiveness:   ScorePair{7, 7},
		Value:           ScorePair{7, 7},
		Suitability:     ScorePair{7, 7},
		Recommendation:  "Both products are suitable. Consider your specific needs and budget.",
		WinnerProductID: a.ID,
	}
}

// settle clamps every score to 1-10 and replaces a winner that is neither
// product with the one scoring the higher total.
func (c *ProductComparison) settle(a, b store.Product) error {
	if strings.TrimSpace(c.Recommendation) == "" {
		return errors.New("comparison reply has no recommendation")
	}
	c.Effectiveness.clamp()
	c.Value.clamp()
	c.Suitability.clamp()
	if c.WinnerProductID != a.ID && c.WinnerProductID != b.ID {
		totalA := c.Effectiveness.ProductA + c.Value.ProductA + c.Suitability.ProductA
		totalB := c.Effectiveness.ProductB + c.Value.ProductB + c.Suitability.ProductB
		c.WinnerProductID = a.ID
		if totalB > totalA {
			c.WinnerProductID = b.ID
		}
	}
	return nil
}

// CompareProducts scores exactly two distinct products against each other.
func (s *RecommendationService) CompareProducts(ctx context.Context, ids []int64) (ProductComparison, error) {
	const op = "core.RecommendationService.CompareProducts"
	if len(ids) != 2 {
		return ProductComparison{}, fmt.Errorf("%s: %w", op, invalidf("exactly 2 products required for comparison"))
	}
	if ids[0] == ids[1] {
		return ProductComparison{}, fmt.Errorf("%s: %w", op, invalidf("products to compare must be distinct"))
	}

	pair := make([]store.Product, 0, 2)
	for _, id := range ids {
		p, err := s.products.GetProduct(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ProductComparison{}, fmt.Errorf("%s: %w: product %d", op, ErrNotFound, id)
		}
		if err != nil {
			return ProductComparison{}, fmt.Errorf("%s: %w", op, err)
		}
		pair = append(pair, *p)
	}
	a, b := pair[0], pair[1]

	key := fmt.Sprintf("compare:%d:%d", a.ID, b.ID)
	out := cachedOutcome(ctx, s.cache, s.cacheTTL, s.log, key, func() Outcome[ProductComparison] {
		return generateJSON(ctx, s.gen, s.log, "products.compare", GenerateRequest{
			System: dermatologistPersona,
			Prompt: comparisonPrompt(a, b),
		}, func(c *ProductComparison) error {
			return c.settle(a, b)
		}, func() ProductComparison {
			return neutralComparison(a, b)
		})
	})

	res := out.Value
	res.Products = pair
	res.Source = out.Source
	return res, nil
}

type IngredientProfile struct {
	Function           string   `json:"function"`
	Benefits           []string `json:"benefits"`
	Interactions       []string `json:"interactions"`
	SafetyNotes        string   `json:"safetyNotes"`
	ClimateSuitability string   `json:"climateSuitability"`
}

type IngredientAnalysis struct {
	Ingredients       map[string]IngredientProfile `json:"ingredientAnalysis"`
	OverallAssessment string                       `json:"overallAssessment"`
	Recommendations   []string                     `json:"recommendations"`
	Source            Source                       `json:"source"`
}

func neutralIngredientAnalysis(ingredients []string) IngredientAnalysis {
	res := IngredientAnalysis{
		Ingredients:       make(map[string]IngredientProfile, len(ingredients)),
		OverallAssessment: "A detailed assessment is not available right now. Review the product label and patch test before regular use.",
		Recommendations: []string{
			"Patch test new products on a small area for 48 hours",
			"Consult a dermatologist if irritation occurs",
		},
	}
	for _, name := range ingredients {
		res.Ingredients[name] = IngredientProfile{
			Function:           "Not assessed",
			Benefits:           []string{},
			Interactions:       []string{},
			SafetyNotes:        "Patch test before regular use",
			ClimateSuitability: "moderate",
		}
	}
	return res
}

// normalizeIngredients lowercases, trims, dedupes and sorts so that the
// same set always maps to the same cache key.
func normalizeIngredients(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (s *RecommendationService) AnalyzeIngredients(ctx context.Context, ingredients []string) (IngredientAnalysis, error) {
	const op = "core.RecommendationService.AnalyzeIngredients"
	list := normalizeIngredients(ingredients)
	if len(list) == 0 {
		return IngredientAnalysis{}, fmt.Errorf("%s: %w", op, invalidf("at least one ingredient is required"))
	}

	key := "ingredients:" + strings.Join(list, ",")
	out := cachedOutcome(ctx, s.cache, s.cacheTTL, s.log, key, func() Outcome[IngredientAnalysis] {
		return generateJSON(ctx, s.gen, s.log, "ingredients.analyze", GenerateRequest{
			System: dermatologistPersona,
			Prompt: ingredientPrompt(list),
		}, func(a *IngredientAnalysis) error {
			if len(a.Ingredients) == 0 {
				return errors.New("ingredient reply has no per-ingredient analysis")
			}
			return nil
		}, func() IngredientAnalysis {
			return neutralIngredientAnalysis(list)
		})
	})

	res := out.Value
	res.Source = out.Source
	return res, nil
}
