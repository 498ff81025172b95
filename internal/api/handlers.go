package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/auth"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
)

// Services groups the domain services the handlers call into.
type Services struct {
	Users           *core.UserService
	Catalog         *core.CatalogService
	Analysis        *core.AnalysisService
	Progress        *core.ProgressService
	Recommendations *core.RecommendationService
	Chat            *core.ChatService
}

type APIHandler struct {
	svc      Services
	tokens   auth.Maker
	validate *validator.Validate
	log      *zap.Logger
}

func NewAPIHandler(svc Services, tokens auth.Maker, log *zap.Logger) *APIHandler {
	return &APIHandler{
		svc:      svc,
		tokens:   tokens,
		validate: newValidator(),
		log:      log.Named("api"),
	}
}

// sessionUser returns the signed-in user's id. Routes behind Authenticate
// always carry a session.
func sessionUser(r *http.Request) int64 {
	sess, _ := auth.SessionFrom(r.Context())
	return sess.UserID
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
