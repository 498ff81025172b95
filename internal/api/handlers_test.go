package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/auth"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

var errModelDown = errors.New("model unavailable")

type generatorMock struct {
	mock.Mock
}

func (m *generatorMock) Generate(ctx context.Context, req core.GenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *generatorMock) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float32)
	return v, args.Error(1)
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	db      *store.MemoryStore
	gen     *generatorMock
	tokens  auth.Maker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()

	db := store.NewMemoryStore()
	catalog, err := store.LoadCatalog("")
	require.NoError(t, err)
	_, err = store.SeedCatalog(context.Background(), db, catalog)
	require.NoError(t, err)

	gen := new(generatorMock)
	tokens := auth.NewJWTMaker("test-secret", time.Hour)

	svc := Services{
		Users:           core.NewUserService(db, db, db, tokens, log),
		Catalog:         core.NewCatalogService(db, log),
		Analysis:        core.NewAnalysisService(db, gen, log),
		Progress:        core.NewProgressService(db, log),
		Recommendations: core.NewRecommendationService(db, db, gen, nil, time.Hour, log),
		Chat:            core.NewChatService(db, gen, nil, log),
	}
	h := NewAPIHandler(svc, tokens, log)
	return &testServer{
		t:       t,
		handler: NewRouter(h, NewRateLimiter(1000, 1000), log),
		db:      db,
		gen:     gen,
		tokens:  tokens,
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// signUp registers a user and returns its token and id.
func (s *testServer) signUp(name string) (string, int64) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username": name, "email": name + "@example.com", "password": "s3cret!",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var res struct {
		Token string     `json:"token"`
		User  store.User `json:"user"`
	}
	decodeBody(s.t, rec, &res)
	return res.Token, res.User.ID
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func userPath(format string, id int64) string {
	return "/api/" + format + "/" + strconv.FormatInt(id, 10)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	token, id := srv.signUp("nour")

	t.Run("current user", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/auth/user", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var u map[string]any
		decodeBody(t, rec, &u)
		assert.Equal(t, float64(id), u["id"])
		assert.Equal(t, "ar", u["preferredLanguage"])
		assert.NotContains(t, u, "passwordHash")
	})

	t.Run("update profile", func(t *testing.T) {
		rec := srv.do(http.MethodPut, "/api/auth/user", token, map[string]any{"preferredLanguage": "en", "budgetTier": 3})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var u store.User
		decodeBody(t, rec, &u)
		assert.Equal(t, "en", u.PreferredLanguage)
		assert.Equal(t, 3, u.BudgetTier)

		rec = srv.do(http.MethodPut, "/api/auth/user", token, map[string]any{"budgetTier": 9})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sign in", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "nour@example.com", "password": "s3cret!"})
		require.Equal(t, http.StatusOK, rec.Code)
		var res map[string]any
		decodeBody(t, rec, &res)
		assert.NotEmpty(t, res["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "nour@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"invalid credentials"}`, rec.Body.String())
	})

	t.Run("duplicate sign up", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
			"username": "nour", "email": "nour@example.com", "password": "s3cret!",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("validation errors name json fields", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signup", "", map[string]any{"username": "zz", "email": "not-an-email"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var res ErrorResponse
		decodeBody(t, rec, &res)
		assert.Equal(t, "Invalid input data", res.Message)
		assert.Contains(t, res.Errors, "field email must be a valid email")
		assert.Contains(t, res.Errors, "field password is required")
	})

	t.Run("empty body", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signin", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"Request body is required"}`, rec.Body.String())
	})
}

func TestAuthentication(t *testing.T) {
	srv := newTestServer(t)
	token, id := srv.signUp("salma")
	_, otherID := srv.signUp("hana")

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"missing token", userPath("analysis", id), "", http.StatusUnauthorized},
		{"garbage token", userPath("analysis", id), "not.a.token", http.StatusUnauthorized},
		{"own records", userPath("analysis", id), token, http.StatusOK},
		{"someone else's records", userPath("analysis", otherID), token, http.StatusForbidden},
		{"someone else's progress", userPath("progress", otherID), token, http.StatusForbidden},
		{"malformed user id", "/api/chat/abc", token, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthenticationRequiresExistingUser(t *testing.T) {
	srv := newTestServer(t)

	ghost, err := srv.tokens.GenerateToken(42, "ghost@example.com", "en")
	require.NoError(t, err)
	// Issued before a restart for whoever held id 1 back then.
	stale, err := srv.tokens.GenerateToken(1, "someone-else@example.com", "en")
	require.NoError(t, err)

	token, id := srv.signUp("alice")
	require.EqualValues(t, 1, id)

	t.Run("unknown user", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/chat", ghost, map[string]any{"message": "hello"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"User not found"}`, rec.Body.String())

		rec = srv.do(http.MethodPost, "/api/analysis/text", ghost, map[string]any{"description": "dry skin"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		analyses, err := srv.db.ListAnalyses(context.Background(), 42)
		require.NoError(t, err)
		assert.Empty(t, analyses)
	})

	t.Run("token for a reused id", func(t *testing.T) {
		rec := srv.do(http.MethodGet, userPath("analysis", id), stale, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid or expired token"}`, rec.Body.String())
	})

	t.Run("current token", func(t *testing.T) {
		rec := srv.do(http.MethodGet, userPath("analysis", id), token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCatalogRoutes(t *testing.T) {
	srv := newTestServer(t)

	t.Run("list with filters", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/products?skinType=oily&maxPrice=200", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []store.Product
		decodeBody(t, rec, &list)
		require.Len(t, list, 1)
		assert.Equal(t, "CareFree Gentle Face Cleanser", list[0].NameEn)
	})

	t.Run("bad max price", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/products?maxPrice=cheap", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("search requires q", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/products/search", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"Search query is required"}`, rec.Body.String())
	})

	t.Run("search", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/products/search?q=serum", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []store.Product
		decodeBody(t, rec, &list)
		require.Len(t, list, 1)
		assert.Equal(t, "Rachel Niacinamide Serum", list[0].NameEn)
	})

	t.Run("categories", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/products/categories", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `["cleanser","moisturizer","serum","sunscreen","treatment"]`, rec.Body.String())
	})

	t.Run("product by id", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/products/1", "", nil).Code)
		assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/products/999", "", nil).Code)
		assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/products/abc", "", nil).Code)
	})

	t.Run("nearby pharmacies", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/pharmacies?lat=30.044420&lng=31.235712", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []core.NearbyPharmacy
		decodeBody(t, rec, &list)
		require.Len(t, list, 2)
		assert.LessOrEqual(t, list[0].DistanceKm, list[1].DistanceKm)

		rec = srv.do(http.MethodGet, "/api/pharmacies", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var all []store.Pharmacy
		decodeBody(t, rec, &all)
		assert.Len(t, all, 3)

		assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/pharmacies?lat=x&lng=1", "", nil).Code)
	})

	t.Run("popular questions", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/chat/popular-questions", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var qs []string
		decodeBody(t, rec, &qs)
		assert.Len(t, qs, 8)
	})
}

func TestAnalyzeImage(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.signUp("layla")
	srv.gen.On("Generate", mock.Anything, mock.Anything).Return("", errModelDown)

	t.Run("invalid image", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/analysis/image", token, map[string]any{"imageData": "%%%"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing image", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/analysis/image", token, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	for i, wantTrack := range []bool{false, true} {
		rec := srv.do(http.MethodPost, "/api/analysis/image", token, map[string]any{"imageData": tinyPNG})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res AnalysisResponse
		decodeBody(t, rec, &res)
		assert.Equal(t, core.SourceFallback, res.Source)
		assert.Equal(t, "combination", res.Analysis.SkinType)
		assert.Equal(t, 50, res.Analysis.ProgressScore)
		assert.Nil(t, res.Routine, "no catalog product treats the default concern")
		require.NotNil(t, res.ProgressTracking)
		assert.Equal(t, wantTrack, res.ProgressTracking.CanTrack)
		assert.Equal(t, i, res.ProgressTracking.PreviousAnalysisCount)
	}
}

func TestAnalyzeText(t *testing.T) {
	srv := newTestServer(t)
	token, id := srv.signUp("dina")

	srv.gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"skinType":"Oily","concerns":["acne"],"concernSeverity":{"acne":6},"recommendations":["use a gentle cleanser"],"overallScore":70}`, nil).
		Once()
	srv.gen.On("Generate", mock.Anything, mock.Anything).Return("", errModelDown)

	rec := srv.do(http.MethodPost, "/api/analysis/text", token, map[string]any{"description": "shiny forehead with breakouts"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res AnalysisResponse
	decodeBody(t, rec, &res)
	assert.Equal(t, core.SourceModel, res.Source)
	assert.Equal(t, "oily", res.Analysis.SkinType)
	assert.Equal(t, id, res.Analysis.UserID)

	require.NotNil(t, res.Routine)
	assert.Equal(t, core.SourceFallback, res.Routine.Source)
	assert.NotEmpty(t, res.Routine.Morning)

	require.NotNil(t, res.AdditionalInsights)
	require.NotNil(t, res.AdditionalInsights.IngredientAnalysis)
	assert.Equal(t, core.SourceFallback, res.AdditionalInsights.IngredientAnalysis.Source)

	t.Run("description or concerns required", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/analysis/text", token, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("history", func(t *testing.T) {
		rec := srv.do(http.MethodGet, userPath("analysis", id), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []store.SkinAnalysis
		decodeBody(t, rec, &list)
		assert.Len(t, list, 1)
	})
}

func TestProgressRoutes(t *testing.T) {
	srv := newTestServer(t)
	token, id := srv.signUp("mona")
	_, otherID := srv.signUp("rana")
	ctx := context.Background()

	rec := srv.do(http.MethodGet, userPath("progress", id), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"At least 2 analyses required"}`, rec.Body.String())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &store.SkinAnalysis{UserID: id, AnalysisType: "text", ProgressScore: 50, Concerns: []string{"acne", "redness"}, CreatedAt: base}
	second := &store.SkinAnalysis{UserID: id, AnalysisType: "text", ProgressScore: 70, Concerns: []string{"acne"}, CreatedAt: base.AddDate(0, 0, 14)}
	foreign := &store.SkinAnalysis{UserID: otherID, AnalysisType: "text", ProgressScore: 40, CreatedAt: base}
	for _, a := range []*store.SkinAnalysis{first, second, foreign} {
		require.NoError(t, srv.db.CreateAnalysis(ctx, a))
	}

	t.Run("metrics", func(t *testing.T) {
		rec := srv.do(http.MethodGet, userPath("progress", id), token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var m core.ProgressMetrics
		decodeBody(t, rec, &m)
		assert.Equal(t, 20, m.OverallImprovement)
		assert.Equal(t, "2 weeks", m.Timespan)
		assert.Equal(t, []string{"redness"}, m.ConcernsResolved)
	})

	t.Run("timeline and report", func(t *testing.T) {
		rec := srv.do(http.MethodGet, userPath("progress", id)+"/timeline", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var tl []core.TimelineEntry
		decodeBody(t, rec, &tl)
		assert.Len(t, tl, 2)

		rec = srv.do(http.MethodGet, userPath("progress", id)+"/report", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var rep core.ProgressReport
		decodeBody(t, rec, &rep)
		assert.Equal(t, "Good Progress", rep.Summary.Status)
	})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"own analyses", map[string]any{"analysisId1": second.ID, "analysisId2": first.ID}, http.StatusOK},
		{"foreign analysis", map[string]any{"analysisId1": first.ID, "analysisId2": foreign.ID}, http.StatusForbidden},
		{"foreign analysis and missing one", map[string]any{"analysisId1": foreign.ID, "analysisId2": 999}, http.StatusForbidden},
		{"missing analysis", map[string]any{"analysisId1": first.ID, "analysisId2": 999}, http.StatusNotFound},
		{"missing id", map[string]any{"analysisId1": first.ID}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run("compare "+tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodPost, "/api/progress/compare", token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRecommendationRoutes(t *testing.T) {
	srv := newTestServer(t)
	token, id := srv.signUp("yara")
	srv.gen.On("Generate", mock.Anything, mock.Anything).Return("", errModelDown)

	t.Run("routine fallback is stored", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/routines/generate", token, map[string]any{
			"skinType": "oily", "concerns": []string{"acne"}, "budgetTier": 1,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res core.RoutineRecommendation
		decodeBody(t, rec, &res)
		assert.Equal(t, core.SourceFallback, res.Source)

		rec = srv.do(http.MethodGet, userPath("routines", id), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []store.Routine
		decodeBody(t, rec, &list)
		assert.Len(t, list, 1)
	})

	t.Run("alias route", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/recommendations/routine", token, map[string]any{"skinType": "oily"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no suitable products", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/routines/generate", token, map[string]any{
			"skinType": "oily", "preferences": map[string]any{"preferredBrands": []string{"Unknown Brand"}},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid complexity", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/routines/generate", token, map[string]any{
			"preferences": map[string]any{"routineComplexity": "extreme"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("compare products", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/products/compare", token, map[string]any{"productIds": []int64{1, 2}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res core.ProductComparison
		decodeBody(t, rec, &res)
		assert.Equal(t, core.SourceFallback, res.Source)
		assert.Equal(t, 7, res.Effectiveness.ProductA)

		assert.Equal(t, http.StatusBadRequest,
			srv.do(http.MethodPost, "/api/products/compare", token, map[string]any{"productIds": []int64{1}}).Code)
		assert.Equal(t, http.StatusBadRequest,
			srv.do(http.MethodPost, "/api/products/compare", token, map[string]any{"productIds": []int64{1, 1}}).Code)
		assert.Equal(t, http.StatusNotFound,
			srv.do(http.MethodPost, "/api/products/compare", token, map[string]any{"productIds": []int64{1, 999}}).Code)
	})

	t.Run("ingredients", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/recommendations/ingredients", token, map[string]any{"ingredients": []string{"Niacinamide"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, http.StatusBadRequest,
			srv.do(http.MethodPost, "/api/recommendations/ingredients", token, map[string]any{"ingredients": []string{}}).Code)
	})
}

func TestChatRoutes(t *testing.T) {
	srv := newTestServer(t)
	token, id := srv.signUp("aya")
	srv.gen.On("Generate", mock.Anything, mock.Anything).Return("", errModelDown)

	rec := srv.do(http.MethodPost, "/api/chat", token, map[string]any{"message": "ما هو أفضل واقي شمس؟"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply core.ChatReply
	decodeBody(t, rec, &reply)
	assert.Equal(t, core.LangArabic, reply.Language)
	assert.Equal(t, core.SourceFallback, reply.Source)
	assert.InDelta(t, 0.5, reply.Confidence, 1e-9)

	assert.Equal(t, http.StatusBadRequest,
		srv.do(http.MethodPost, "/api/chat", token, map[string]any{"message": "hi", "language": "fr"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		srv.do(http.MethodPost, "/api/chat", token, map[string]any{}).Code)

	t.Run("history", func(t *testing.T) {
		rec := srv.do(http.MethodGet, userPath("chat", id)+"?limit=5", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []store.ChatMessage
		decodeBody(t, rec, &msgs)
		assert.Len(t, msgs, 1)

		assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, userPath("chat", id)+"?limit=many", token, nil).Code)
	})

	t.Run("sentiment", func(t *testing.T) {
		rec := srv.do(http.MethodGet, userPath("chat", id)+"/sentiment", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var s core.SentimentSummary
		decodeBody(t, rec, &s)
		assert.Equal(t, 7, s.SatisfactionScore)
	})

	t.Run("tips", func(t *testing.T) {
		rec := srv.do(http.MethodGet, userPath("chat", id)+"/tips", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var tips core.Tips
		decodeBody(t, rec, &tips)
		assert.Len(t, tips.Tips, 5)
		assert.Equal(t, "general", tips.Category)
	})
}

func TestQuizRoutes(t *testing.T) {
	srv := newTestServer(t)
	token, id := srv.signUp("farida")

	rec := srv.do(http.MethodGet, userPath("quiz/recommendations", id), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPost, "/api/quiz/responses", token, map[string]any{
		"sectionId": "skinType", "responses": map[string]any{"primarySkinType": "dry"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.do(http.MethodPost, "/api/quiz/responses", token, map[string]any{
		"sectionId": "skinType", "responses": map[string]any{"primarySkinType": "oily"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusBadRequest,
		srv.do(http.MethodPost, "/api/quiz/responses", token, map[string]any{"responses": map[string]any{}}).Code)

	rec = srv.do(http.MethodGet, userPath("quiz/responses", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.QuizResponse
	decodeBody(t, rec, &list)
	assert.Len(t, list, 1)

	rec = srv.do(http.MethodPost, "/api/quiz/complete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(http.MethodGet, userPath("quiz/recommendations", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var qr core.QuizRecommendation
	decodeBody(t, rec, &qr)
	assert.NotEmpty(t, qr.Recommendations)
	assert.Equal(t, id, qr.User.ID)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(http.MethodGet, "/api/health", "", nil)

	rec := srv.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "beautycare_http_requests_total")
}
