package api

import (
	"net/http"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
)

type SignUpRequest struct {
	Username          string `json:"username" validate:"required,min=3,max=50"`
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required,min=6"`
	PreferredLanguage string `json:"preferredLanguage" validate:"omitempty,oneof=ar en"`
	BudgetTier        int    `json:"budgetTier" validate:"omitempty,min=1,max=3"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	PreferredLanguage *string  `json:"preferredLanguage" validate:"omitempty,oneof=ar en"`
	BudgetTier        *int     `json:"budgetTier" validate:"omitempty,min=1,max=3"`
	SkinType          *string  `json:"skinType"`
	SkinConcerns      []string `json:"skinConcerns"`
}

func (h *APIHandler) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.Users.SignUp(r.Context(), core.SignUpRequest{
		Username:          req.Username,
		Email:             req.Email,
		Password:          req.Password,
		PreferredLanguage: req.PreferredLanguage,
		BudgetTier:        req.BudgetTier,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *APIHandler) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.Users.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"message": "Sign in successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *APIHandler) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Profile(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.svc.Users.UpdateProfile(r.Context(), sessionUser(r), core.ProfileUpdate{
		PreferredLanguage: req.PreferredLanguage,
		BudgetTier:        req.BudgetTier,
		SkinType:          req.SkinType,
		SkinConcerns:      req.SkinConcerns,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

type QuizResponseRequest struct {
	SectionID string         `json:"sectionId" validate:"required"`
	Responses map[string]any `json:"responses" validate:"required"`
}

// SaveQuizResponseHandler answers 201 for a new section and 200 when an
// earlier answer was replaced.
func (h *APIHandler) SaveQuizResponseHandler(w http.ResponseWriter, r *http.Request) {
	var req QuizResponseRequest
	if !h.decode(w, r, &req) {
		return
	}

	q, created, err := h.svc.Users.SaveQuizResponse(r.Context(), sessionUser(r), req.SectionID, req.Responses)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, q)
}

func (h *APIHandler) QuizResponsesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Users.QuizResponses(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *APIHandler) CompleteQuizHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.CompleteQuiz(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message": "Quiz completed successfully",
		"user":    u,
	})
}

func (h *APIHandler) QuizRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Users.QuizRecommendations(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}
