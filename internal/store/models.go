package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID                int64      `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"` // Never leaves the server
	PreferredLanguage string     `json:"preferredLanguage"`
	BudgetTier        int        `json:"budgetTier"`
	SkinType          string     `json:"skinType,omitempty"`
	SkinConcerns      []string   `json:"skinConcerns"`
	QuizCompleted     bool       `json:"hasCompletedQuiz"`
	QuizCompletedAt   *time.Time `json:"quizCompletedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type PharmacyLink struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Delivery bool   `json:"delivery"`
}

type Product struct {
	ID                int64          `json:"id"`
	NameAr            string         `json:"nameAr"`
	NameEn            string         `json:"nameEn"`
	Brand             string         `json:"brand"`
	Category          string         `json:"category"`
	Price             float64        `json:"price"` // EGP
	Ingredients       []string       `json:"ingredients"`
	ActiveIngredients []string       `json:"activeIngredients"`
	SkinTypes         []string       `json:"skinTypes"`
	Concerns          []string       `json:"concerns"`
	ImageURL          string         `json:"imageUrl,omitempty"`
	DescriptionAr     string         `json:"descriptionAr,omitempty"`
	DescriptionEn     string         `json:"descriptionEn,omitempty"`
	PharmacyLinks     []PharmacyLink `json:"pharmacyLinks"`
	Effectiveness     int            `json:"effectiveness"` // 0-100
	IsEgyptian        bool           `json:"isEgyptian"`
}

type SkinAnalysis struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"userId"`
	AnalysisType       string          `json:"analysisType"` // "photo" or "text"
	ImageRef           string          `json:"imageRef,omitempty"`
	SkinType           string          `json:"skinType"`
	Concerns           []string        `json:"concerns"`
	ConcernSeverity    map[string]int  `json:"concernSeverity"`
	Recommendations    []string        `json:"recommendations"`
	DetectedConditions []string        `json:"detectedConditions,omitempty"`
	RiskFactors        []string        `json:"riskFactors,omitempty"`
	TreatmentPriority  []string        `json:"treatmentPriority,omitempty"`
	RawResult          json.RawMessage `json:"rawResult,omitempty"`
	Source             string          `json:"source"` // "model" or "fallback"
	ProgressScore      int             `json:"progressScore"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type RoutineStep struct {
	Step               int    `json:"step"`
	Category           string `json:"category"`
	ProductID          int64  `json:"productId"`
	Instructions       string `json:"instructions"`
	ArabicInstructions string `json:"arabicInstructions,omitempty"`
	Frequency          string `json:"frequency"`
	Importance         string `json:"importance"` // essential, recommended or optional
}

type RoutineSteps struct {
	Morning []RoutineStep `json:"morning"`
	Evening []RoutineStep `json:"evening"`
	Weekly  []RoutineStep `json:"weekly"`
}

type Routine struct {
	ID                int64        `json:"id"`
	UserID            int64        `json:"userId"`
	Name              string       `json:"name"`
	TimeOfDay         string       `json:"timeOfDay"`
	Steps             RoutineSteps `json:"steps"`
	ProductIDs        []int64      `json:"productIds"`
	BudgetTier        string       `json:"budgetTier"`
	MonthlyBudget     float64      `json:"monthlyBudget"`
	Explanation       string       `json:"explanation"`
	ArabicExplanation string       `json:"arabicExplanation,omitempty"`
	Source            string       `json:"source"`
	IsActive          bool         `json:"isActive"`
	CreatedAt         time.Time    `json:"createdAt"`
}

type ChatMessage struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Message     string          `json:"message"`
	Response    string          `json:"response"` // Serialized reply as returned to the client
	MessageType string          `json:"messageType"`
	Language    string          `json:"language"`
	Context     json.RawMessage `json:"context,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type WorkingHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type Pharmacy struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Phone        string       `json:"phone"`
	Location     Location     `json:"location"`
	WorkingHours WorkingHours `json:"workingHours"`
	HasDelivery  bool         `json:"hasDelivery"`
	Rating       float64      `json:"rating"`
}

type QuizResponse struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"userId"`
	SectionID string         `json:"sectionId"`
	Responses map[string]any `json:"responses"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ProductFilter narrows a catalog listing. Zero values disable a criterion.
type ProductFilter struct {
	Category  string
	SkinTypes []string
	Concerns  []string
	MaxPrice  float64
}

// Match reports whether p satisfies every enabled criterion. List criteria
// match when the product shares at least one value with the filter.
func (f ProductFilter) Match(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if len(f.SkinTypes) > 0 && !intersects(p.SkinTypes, f.SkinTypes) {
		return false
	}
	if len(f.Concerns) > 0 && !intersects(p.Concerns, f.Concerns) {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
