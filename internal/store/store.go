package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	CountProducts(ctx context.Context) (int, error)
}

type AnalysisRepository interface {
	CreateAnalysis(ctx context.Context, a *SkinAnalysis) error
	GetAnalysis(ctx context.Context, id int64) (*SkinAnalysis, error)
	// ListAnalyses returns a user's analyses oldest first.
	ListAnalyses(ctx context.Context, userID int64) ([]SkinAnalysis, error)
}

type RoutineRepository interface {
	CreateRoutine(ctx context.Context, r *Routine) error
	ListRoutines(ctx context.Context, userID int64) ([]Routine, error)
}

type ChatRepository interface {
	CreateChatMessage(ctx context.Context, m *ChatMessage) error
	// ListChatMessages returns at most limit messages, most recent first.
	// A limit <= 0 returns everything.
	ListChatMessages(ctx context.Context, userID int64, limit int) ([]ChatMessage, error)
	CountChatMessages(ctx context.Context, userID int64) (int, error)
}

type PharmacyRepository interface {
	CreatePharmacy(ctx context.Context, p *Pharmacy) error
	ListPharmacies(ctx context.Context) ([]Pharmacy, error)
}

type QuizRepository interface {
	// UpsertQuizResponse stores the response for (UserID, SectionID), replacing
	// an earlier one in place. created reports whether a new row was written.
	UpsertQuizResponse(ctx context.Context, q *QuizResponse) (created bool, err error)
	ListQuizResponses(ctx context.Context, userID int64) ([]QuizResponse, error)
}

// Store aggregates every repository behind one handle.
type Store interface {
	UserRepository
	ProductRepository
	AnalysisRepository
	RoutineRepository
	ChatRepository
	PharmacyRepository
	QuizRepository
	Close() error
}
