package api

import (
	"net/http"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
)

type GenerateRoutineRequest struct {
	SkinType       string                  `json:"skinType"`
	Concerns       []string                `json:"concerns"`
	BudgetTier     int                     `json:"budgetTier" validate:"omitempty,min=1,max=3"`
	CurrentRoutine string                  `json:"currentRoutine"`
	Preferences    core.RoutinePreferences `json:"preferences"`
}

type CompareProductsRequest struct {
	ProductIDs []int64 `json:"productIds" validate:"required,len=2,dive,gt=0"`
}

type IngredientsRequest struct {
	Ingredients []string `json:"ingredients" validate:"required,min=1"`
}

func (h *APIHandler) GenerateRoutineHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRoutineRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.svc.Recommendations.GenerateRoutine(r.Context(), core.RoutineRequest{
		UserID:         sessionUser(r),
		SkinType:       req.SkinType,
		Concerns:       req.Concerns,
		BudgetTier:     req.BudgetTier,
		CurrentRoutine: req.CurrentRoutine,
		Preferences:    req.Preferences,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

func (h *APIHandler) RoutinesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Recommendations.Routines(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *APIHandler) CompareProductsHandler(w http.ResponseWriter, r *http.Request) {
	var req CompareProductsRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Recommendations.CompareProducts(r.Context(), req.ProductIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *APIHandler) IngredientsHandler(w http.ResponseWriter, r *http.Request) {
	var req IngredientsRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Recommendations.AnalyzeIngredients(r.Context(), req.Ingredients)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
