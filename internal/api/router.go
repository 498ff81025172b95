package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(h *APIHandler, limiter *RateLimiter, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Handle("/metrics", promhttp.Handler())

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)
		r.Post("/auth/signup", h.SignUpHandler)
		r.Post("/auth/signin", h.SignInHandler)

		r.Get("/products", h.ListProductsHandler)
		r.Get("/products/search", h.SearchProductsHandler)
		r.Get("/products/categories", h.CategoriesHandler)
		r.Get("/products/{id}", h.GetProductHandler)
		r.Get("/pharmacies", h.PharmaciesHandler)
		r.Get("/chat/popular-questions", h.PopularQuestionsHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/auth/user", h.CurrentUserHandler)
			r.Put("/auth/user", h.UpdateProfileHandler)

			r.Post("/progress/compare", h.CompareAnalysesHandler)
			r.Post("/quiz/responses", h.SaveQuizResponseHandler)
			r.Post("/quiz/complete", h.CompleteQuizHandler)

			// Routes that call the generative model
			r.Group(func(r chi.Router) {
				r.Use(limiter.Middleware)

				r.Post("/analysis/image", h.AnalyzeImageHandler)
				r.Post("/analysis/text", h.AnalyzeTextHandler)
				r.Post("/chat", h.ChatHandler)
				r.Post("/products/compare", h.CompareProductsHandler)
				r.Post("/routines/generate", h.GenerateRoutineHandler)
				r.Post("/recommendations/routine", h.GenerateRoutineHandler)
				r.Post("/recommendations/ingredients", h.IngredientsHandler)

				r.With(RequireSelf).Get("/chat/{userId}/sentiment", h.ChatSentimentHandler)
				r.With(RequireSelf).Get("/chat/{userId}/tips", h.ChatTipsHandler)
				r.With(RequireSelf).Get("/chat/{userId}/personalized-tips", h.ChatTipsHandler)
			})

			// Per-user reads; {userId} must be the caller
			r.Group(func(r chi.Router) {
				r.Use(RequireSelf)

				r.Get("/analysis/{userId}", h.AnalysisHistoryHandler)
				r.Get("/chat/{userId}", h.ChatHistoryHandler)
				r.Get("/progress/{userId}", h.ProgressMetricsHandler)
				r.Get("/progress/{userId}/timeline", h.ProgressTimelineHandler)
				r.Get("/progress/{userId}/report", h.ProgressReportHandler)
				r.Get("/routines/{userId}", h.RoutinesHandler)
				r.Get("/quiz/responses/{userId}", h.QuizResponsesHandler)
				r.Get("/quiz/recommendations/{userId}", h.QuizRecommendationsHandler)
			})
		})
	})

	return r
}
