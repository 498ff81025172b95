package api

import (
	"net/http"
	"strconv"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
)

type ChatRequest struct {
	Message     string           `json:"message" validate:"required"`
	Language    string           `json:"language" validate:"omitempty,oneof=ar en"`
	Context     core.ChatContext `json:"context"`
	MessageType string           `json:"messageType" validate:"omitempty,oneof=question product_inquiry comparison routine_help"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	reply, err := h.svc.Chat.ProcessMessage(r.Context(), core.ChatRequest{
		UserID:      sessionUser(r),
		Message:     req.Message,
		Language:    req.Language,
		Context:     req.Context,
		MessageType: req.MessageType,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reply)
}

func (h *APIHandler) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		v, err := strconv.Atoi(ls)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = v
	}
	list, err := h.svc.Chat.History(r.Context(), sessionUser(r), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *APIHandler) ChatSentimentHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Chat.Sentiment(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s)
}

func (h *APIHandler) ChatTipsHandler(w http.ResponseWriter, r *http.Request) {
	tips, err := h.svc.Chat.PersonalizedTips(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tips)
}

func (h *APIHandler) PopularQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.svc.Chat.PopularQuestions())
}
