package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

type ImageAnalysisRequest struct {
	ImageData          string                  `json:"imageData" validate:"required"`
	Concerns           []string                `json:"concerns"`
	ExistingConditions []string                `json:"existingConditions"`
	BudgetTier         int                     `json:"budgetTier" validate:"omitempty,min=1,max=3"`
	Preferences        core.RoutinePreferences `json:"preferences"`
}

type TextAnalysisRequest struct {
	Description    string                  `json:"description"`
	SkinType       string                  `json:"skinType"`
	Concerns       []string                `json:"concerns"`
	CurrentRoutine string                  `json:"currentRoutine"`
	BudgetTier     int                     `json:"budgetTier" validate:"omitempty,min=1,max=3"`
	Preferences    core.RoutinePreferences `json:"preferences"`
}

type ProgressTracking struct {
	CanTrack              bool `json:"canTrack"`
	PreviousAnalysisCount int  `json:"previousAnalysisCount"`
}

type AnalysisResponse struct {
	Analysis           store.SkinAnalysis          `json:"analysis"`
	Routine            *core.RoutineRecommendation `json:"routine"`
	ProgressTracking   *ProgressTracking           `json:"progressTracking,omitempty"`
	AdditionalInsights *AdditionalInsights         `json:"additionalInsights,omitempty"`
	Source             core.Source                 `json:"source"`
}

type AdditionalInsights struct {
	IngredientAnalysis *core.IngredientAnalysis `json:"ingredientAnalysis"`
}

// routineFor builds the follow-up routine for a fresh analysis. A catalog
// with nothing suitable is not an error for the analysis itself, so the
// routine is simply left out.
func (h *APIHandler) routineFor(r *http.Request, req core.RoutineRequest) (*core.RoutineRecommendation, error) {
	rec, err := h.svc.Recommendations.GenerateRoutine(r.Context(), req)
	if errors.Is(err, core.ErrNoSuitableProducts) {
		h.log.Info("no routine for analysis", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (h *APIHandler) AnalyzeImageHandler(w http.ResponseWriter, r *http.Request) {
	var req ImageAnalysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID := sessionUser(r)

	out, err := h.svc.Analysis.AnalyzeImage(r.Context(), core.ImageAnalysisRequest{
		UserID:             userID,
		ImageData:          req.ImageData,
		Concerns:           req.Concerns,
		ExistingConditions: req.ExistingConditions,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	routine, err := h.routineFor(r, core.RoutineRequest{
		UserID:      userID,
		SkinType:    out.Analysis.SkinType,
		Concerns:    out.Analysis.Concerns,
		BudgetTier:  req.BudgetTier,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, AnalysisResponse{
		Analysis: out.Analysis,
		Routine:  routine,
		ProgressTracking: &ProgressTracking{
			CanTrack:              out.PreviousCount > 0,
			PreviousAnalysisCount: out.PreviousCount,
		},
		Source: out.Source,
	})
}

func (h *APIHandler) AnalyzeTextHandler(w http.ResponseWriter, r *http.Request) {
	var req TextAnalysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID := sessionUser(r)

	out, err := h.svc.Analysis.AnalyzeText(r.Context(), core.TextAnalysisRequest{
		UserID:         userID,
		Description:    req.Description,
		SkinType:       req.SkinType,
		Concerns:       req.Concerns,
		CurrentRoutine: req.CurrentRoutine,
		BudgetTier:     req.BudgetTier,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	routine, err := h.routineFor(r, core.RoutineRequest{
		UserID:         userID,
		SkinType:       out.Analysis.SkinType,
		Concerns:       out.Analysis.Concerns,
		BudgetTier:     req.BudgetTier,
		CurrentRoutine: req.CurrentRoutine,
		Preferences:    req.Preferences,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	insights := &AdditionalInsights{}
	if ingredients := routineIngredients(routine); len(ingredients) > 0 {
		ia, err := h.svc.Recommendations.AnalyzeIngredients(r.Context(), ingredients)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		insights.IngredientAnalysis = &ia
	}

	writeJSON(w, r, http.StatusOK, AnalysisResponse{
		Analysis:           out.Analysis,
		Routine:            routine,
		AdditionalInsights: insights,
		Source:             out.Source,
	})
}

// routineIngredients collects the active ingredients of the routine's
// products, falling back to the full ingredient list for products that
// declare none.
func routineIngredients(rec *core.RoutineRecommendation) []string {
	if rec == nil {
		return nil
	}
	var out []string
	for _, steps := range [][]core.RoutineStepDetail{rec.Morning, rec.Evening, rec.Weekly} {
		for _, s := range steps {
			if len(s.Product.ActiveIngredients) > 0 {
				out = append(out, s.Product.ActiveIngredients...)
				continue
			}
			out = append(out, s.Product.Ingredients...)
		}
	}
	return out
}

func (h *APIHandler) AnalysisHistoryHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Analysis.History(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}
