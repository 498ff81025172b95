package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/auth"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

const maxQuizRecommendations = 10

type SignUpRequest struct {
	Username          string
	Email             string
	Password          string
	PreferredLanguage string
	BudgetTier        int
}

type AuthResult struct {
	Token  string     `json:"token"`
	UserID int64      `json:"userId"`
	Email  string     `json:"email"`
	User   store.User `json:"user"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	PreferredLanguage *string
	BudgetTier        *int
	SkinType          *string
	SkinConcerns      []string
}

type UserService struct {
	users    store.UserRepository
	quiz     store.QuizRepository
	products store.ProductRepository
	tokens   auth.Maker
	log      *zap.Logger
}

func NewUserService(users store.UserRepository, quiz store.QuizRepository, products store.ProductRepository, tokens auth.Maker, log *zap.Logger) *UserService {
	return &UserService{users: users, quiz: quiz, products: products, tokens: tokens, log: log.Named("users")}
}

func (s *UserService) SignUp(ctx context.Context, req SignUpRequest) (AuthResult, error) {
	const op = "core.UserService.SignUp"
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return AuthResult{}, fmt.Errorf("%s: %w", op, invalidf("username, email and password are required"))
	}
	if req.PreferredLanguage == "" {
		req.PreferredLanguage = LangArabic
	}
	if req.BudgetTier == 0 {
		req.BudgetTier = 2
	}
	if _, ok := budgetCeilings[req.BudgetTier]; !ok {
		return AuthResult{}, fmt.Errorf("%s: %w", op, invalidf("budget tier must be 1, 2 or 3"))
	}

	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return AuthResult{}, fmt.Errorf("%s: %w: email already registered", op, ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return AuthResult{}, fmt.Errorf("%s: %w: username already taken", op, ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}
	u := store.User{
		Username:          req.Username,
		Email:             req.Email,
		PasswordHash:      hash,
		PreferredLanguage: req.PreferredLanguage,
		BudgetTier:        req.BudgetTier,
		SkinConcerns:      []string{},
	}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return AuthResult{}, fmt.Errorf("%s: %w: account already exists", op, ErrConflict)
		}
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user signed up", zap.String("op", op), zap.Int64("user_id", u.ID))
	return s.issue(op, u)
}

func (s *UserService) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	const op = "core.UserService.SignIn"
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if !auth.CheckPasswordHash(password, u.PasswordHash) {
		return AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	return s.issue(op, *u)
}

func (s *UserService) issue(op string, u store.User) (AuthResult, error) {
	token, err := s.tokens.GenerateToken(u.ID, u.Email, u.PreferredLanguage)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return AuthResult{Token: token, UserID: u.ID, Email: u.Email, User: u}, nil
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*store.User, error) {
	const op = "core.UserService.Profile"
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w: user %d", op, ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*store.User, error) {
	const op = "core.UserService.UpdateProfile"
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.PreferredLanguage != nil {
		switch *upd.PreferredLanguage {
		case LangArabic, LangEnglish:
			u.PreferredLanguage = *upd.PreferredLanguage
		default:
			return nil, fmt.Errorf("%s: %w", op, invalidf("preferred language must be ar or en"))
		}
	}
	if upd.BudgetTier != nil {
		if _, ok := budgetCeilings[*upd.BudgetTier]; !ok {
			return nil, fmt.Errorf("%s: %w", op, invalidf("budget tier must be 1, 2 or 3"))
		}
		u.BudgetTier = *upd.BudgetTier
	}
	if upd.SkinType != nil {
		u.SkinType = strings.ToLower(strings.TrimSpace(*upd.SkinType))
	}
	if upd.SkinConcerns != nil {
		u.SkinConcerns = upd.SkinConcerns
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SaveQuizResponse stores one quiz section, replacing an earlier answer to
// the same section. created is false when an existing answer was replaced.
func (s *UserService) SaveQuizResponse(ctx context.Context, userID int64, sectionID string, responses map[string]any) (store.QuizResponse, bool, error) {
	const op = "core.UserService.SaveQuizResponse"
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return store.QuizResponse{}, false, fmt.Errorf("%s: %w", op, invalidf("section id is required"))
	}
	if responses == nil {
		responses = map[string]any{}
	}

	q := store.QuizResponse{UserID: userID, SectionID: sectionID, Responses: responses}
	created, err := s.quiz.UpsertQuizResponse(ctx, &q)
	if err != nil {
		return store.QuizResponse{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return q, created, nil
}

func (s *UserService) QuizResponses(ctx context.Context, userID int64) ([]store.QuizResponse, error) {
	const op = "core.UserService.QuizResponses"
	list, err := s.quiz.ListQuizResponses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// QuizAnalysis is what the quiz answers say about the user's skin.
type QuizAnalysis struct {
	SkinTypes []string       `json:"skinTypes"`
	Concerns  []string       `json:"concerns"`
	BudgetMax float64        `json:"budgetMax"`
	SkinTone  string         `json:"skinTone,omitempty"`
	Age       int            `json:"age"`
	Lifestyle map[string]any `json:"lifestyle"`
}

var quizSkinTypes = []string{"oily", "dry", "combination", "normal", "sensitive"}

var quizConcernMap = []struct {
	needles []string
	concern string
}{
	{[]string{"acne", "breakouts"}, "acne"},
	{[]string{"dark spots", "hyperpigmentation"}, "hyperpigmentation"},
	{[]string{"dryness", "dehydration"}, "dryness"},
	{[]string{"oil", "shine"}, "oil control"},
	{[]string{"fine lines", "wrinkles"}, "anti-aging"},
	{[]string{"pores"}, "enlarged pores"},
}

func quizConcern(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	for _, m := range quizConcernMap {
		for _, n := range m.needles {
			if strings.Contains(c, n) {
				return m.concern
			}
		}
	}
	return c
}

func quizBudget(raw string) float64 {
	b := strings.NewReplacer("$", "", "–", "-", " ", "").Replace(raw)
	switch b {
	case "<500":
		return 500
	case "500-1000":
		return 1000
	case "1000-2000":
		return 2000
	case "2000+":
		return 5000
	}
	return 1000
}

func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

// AnalyzeQuiz folds the per-section answers into a QuizAnalysis. Unknown
// sections are ignored.
func AnalyzeQuiz(responses []store.QuizResponse) QuizAnalysis {
	a := QuizAnalysis{
		SkinTypes: []string{},
		Concerns:  []string{},
		BudgetMax: 1000,
		Age:       25,
		Lifestyle: map[string]any{},
	}

	for _, r := range responses {
		data := r.Responses
		switch r.SectionID {
		case "demographics":
			if tone, ok := data["skinTone"].(string); ok && tone != "" {
				a.SkinTone = tone
			}
			if age, ok := intFromAny(data["age"]); ok && age > 0 {
				a.Age = age
			}
		case "skinType":
			if desc, ok := data["primarySkinType"].(string); ok {
				desc = strings.ToLower(desc)
				for _, st := range quizSkinTypes {
					if strings.Contains(desc, st) {
						a.SkinTypes = append(a.SkinTypes, st)
					}
				}
			}
		case "concerns":
			if list, ok := data["topConcerns"].([]any); ok {
				for _, item := range list {
					if c, ok := item.(string); ok && strings.TrimSpace(c) != "" {
						a.Concerns = append(a.Concerns, quizConcern(c))
					}
				}
			}
		case "preferences":
			if b, ok := data["budget"].(string); ok {
				a.BudgetMax = quizBudget(b)
			}
		case "lifestyle":
			if data != nil {
				a.Lifestyle = data
			}
		}
	}
	return a
}

func tierForBudget(max float64) int {
	switch {
	case max <= budgetCeilings[1]:
		return 1
	case max <= budgetCeilings[2]:
		return 2
	default:
		return 3
	}
}

// CompleteQuiz marks the quiz done and copies what it revealed into the
// user's profile.
func (s *UserService) CompleteQuiz(ctx context.Context, userID int64) (*store.User, error) {
	const op = "core.UserService.CompleteQuiz"
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	responses, err := s.quiz.ListQuizResponses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := AnalyzeQuiz(responses)
	if len(a.SkinTypes) > 0 {
		u.SkinType = a.SkinTypes[0]
	}
	if len(a.Concerns) > 0 {
		u.SkinConcerns = a.Concerns
	}
	if hasSection(responses, "preferences") {
		u.BudgetTier = tierForBudget(a.BudgetMax)
	}
	now := time.Now().UTC()
	u.QuizCompleted = true
	u.QuizCompletedAt = &now

	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("quiz completed",
		zap.String("op", op),
		zap.Int64("user_id", userID),
		zap.String("skin_type", u.SkinType),
		zap.Int("sections", len(responses)))
	return u, nil
}

func hasSection(responses []store.QuizResponse, id string) bool {
	for _, r := range responses {
		if r.SectionID == id {
			return true
		}
	}
	return false
}

type QuizRecommendation struct {
	Analysis        QuizAnalysis    `json:"analysis"`
	Recommendations []store.Product `json:"recommendations"`
	User            QuizUser        `json:"user"`
}

type QuizUser struct {
	ID                int64  `json:"id"`
	PreferredLanguage string `json:"preferredLanguage"`
}

// QuizRecommendations lists up to ten catalog products matching the quiz
// answers, most effective first. The quiz must be completed.
func (s *UserService) QuizRecommendations(ctx context.Context, userID int64) (QuizRecommendation, error) {
	const op = "core.UserService.QuizRecommendations"
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return QuizRecommendation{}, err
	}
	if !u.QuizCompleted {
		return QuizRecommendation{}, fmt.Errorf("%s: %w", op, ErrQuizIncomplete)
	}
	responses, err := s.quiz.ListQuizResponses(ctx, userID)
	if err != nil {
		return QuizRecommendation{}, fmt.Errorf("%s: %w", op, err)
	}

	a := AnalyzeQuiz(responses)
	products, err := s.products.ListProducts(ctx, store.ProductFilter{
		SkinTypes: a.SkinTypes,
		Concerns:  a.Concerns,
		MaxPrice:  a.BudgetMax,
	})
	if err != nil {
		return QuizRecommendation{}, fmt.Errorf("%s: %w", op, err)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Effectiveness > products[j].Effectiveness
	})
	if len(products) > maxQuizRecommendations {
		products = products[:maxQuizRecommendations]
	}

	return QuizRecommendation{
		Analysis:        a,
		Recommendations: products,
		User:            QuizUser{ID: u.ID, PreferredLanguage: u.PreferredLanguage},
	}, nil
}
