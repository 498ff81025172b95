package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// table is an append-only arena of records with an id -> slot index.
type table[T any] struct {
	rows   []T
	byID   map[int64]int
	nextID int64
}

func newTable[T any]() *table[T] {
	return &table[T]{byID: make(map[int64]int), nextID: 1}
}

func (t *table[T]) insert(row T, id int64) {
	t.byID[id] = len(t.rows)
	t.rows = append(t.rows, row)
}

func (t *table[T]) allocID() int64 {
	id := t.nextID
	t.nextID++
	return id
}

func (t *table[T]) get(id int64) (T, bool) {
	var zero T
	slot, ok := t.byID[id]
	if !ok {
		return zero, false
	}
	return t.rows[slot], true
}

// MemoryStore keeps everything in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	users      *table[User]
	products   *table[Product]
	analyses   *table[SkinAnalysis]
	routines   *table[Routine]
	messages   *table[ChatMessage]
	pharmacies *table[Pharmacy]
	quiz       *table[QuizResponse]

	usersByEmail    map[string]int64
	usersByUsername map[string]int64
	analysesByUser  map[int64][]int64
	routinesByUser  map[int64][]int64
	messagesByUser  map[int64][]int64
	quizByKey       map[string]int64
	quizByUser      map[int64][]int64

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:           newTable[User](),
		products:        newTable[Product](),
		analyses:        newTable[SkinAnalysis](),
		routines:        newTable[Routine](),
		messages:        newTable[ChatMessage](),
		pharmacies:      newTable[Pharmacy](),
		quiz:            newTable[QuizResponse](),
		usersByEmail:    make(map[string]int64),
		usersByUsername: make(map[string]int64),
		analysesByUser:  make(map[int64][]int64),
		routinesByUser:  make(map[int64][]int64),
		messagesByUser:  make(map[int64][]int64),
		quizByKey:       make(map[string]int64),
		quizByUser:      make(map[int64][]int64),
		now:             time.Now,
	}
}

func (s *MemoryStore) Close() error { return nil }

// Users

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := s.usersByEmail[email]; ok {
		return fmt.Errorf("email %q: %w", u.Email, ErrDuplicate)
	}
	if _, ok := s.usersByUsername[u.Username]; ok {
		return fmt.Errorf("username %q: %w", u.Username, ErrDuplicate)
	}

	u.ID = s.users.allocID()
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users.insert(*u, u.ID)
	s.usersByEmail[email] = u.ID
	s.usersByUsername[u.Username] = u.ID
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	id, ok := s.usersByEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	id, ok := s.usersByUsername[username]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.users.byID[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.UpdatedAt = s.now()
	s.users.rows[slot] = *u
	return nil
}

// Products

func (s *MemoryStore) CreateProduct(_ context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.products.allocID()
	s.products.insert(*p, p.ID)
	return nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetProductsByIDs(_ context.Context, ids []int64) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products.get(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, f ProductFilter) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products.rows))
	for _, p := range s.products.rows {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountProducts(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products.rows), nil
}

// Analyses

func (s *MemoryStore) CreateAnalysis(_ context.Context, a *SkinAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.analyses.allocID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.analyses.insert(*a, a.ID)
	s.analysesByUser[a.UserID] = append(s.analysesByUser[a.UserID], a.ID)
	return nil
}

func (s *MemoryStore) GetAnalysis(_ context.Context, id int64) (*SkinAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) ListAnalyses(_ context.Context, userID int64) ([]SkinAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.analysesByUser[userID]
	out := make([]SkinAnalysis, 0, len(ids))
	for _, id := range ids {
		a, _ := s.analyses.get(id)
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Routines

func (s *MemoryStore) CreateRoutine(_ context.Context, r *Routine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.routines.allocID()
	r.CreatedAt = s.now()
	s.routines.insert(*r, r.ID)
	s.routinesByUser[r.UserID] = append(s.routinesByUser[r.UserID], r.ID)
	return nil
}

func (s *MemoryStore) ListRoutines(_ context.Context, userID int64) ([]Routine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.routinesByUser[userID]
	out := make([]Routine, 0, len(ids))
	for _, id := range ids {
		r, _ := s.routines.get(id)
		out = append(out, r)
	}
	return out, nil
}

// Chat

func (s *MemoryStore) CreateChatMessage(_ context.Context, m *ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.messages.allocID()
	m.CreatedAt = s.now()
	s.messages.insert(*m, m.ID)
	s.messagesByUser[m.UserID] = append(s.messagesByUser[m.UserID], m.ID)
	return nil
}

func (s *MemoryStore) ListChatMessages(_ context.Context, userID int64, limit int) ([]ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.messagesByUser[userID]
	n := len(ids)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ChatMessage, 0, n)
	// ids are in insertion order, so walk backwards for newest first.
	for i := len(ids) - 1; i >= 0 && len(out) < n; i-- {
		m, _ := s.messages.get(ids[i])
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) CountChatMessages(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messagesByUser[userID]), nil
}

// Pharmacies

func (s *MemoryStore) CreatePharmacy(_ context.Context, p *Pharmacy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.pharmacies.allocID()
	s.pharmacies.insert(*p, p.ID)
	return nil
}

func (s *MemoryStore) ListPharmacies(_ context.Context) ([]Pharmacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pharmacy, len(s.pharmacies.rows))
	copy(out, s.pharmacies.rows)
	return out, nil
}

// Quiz

func quizKey(userID int64, sectionID string) string {
	return fmt.Sprintf("%d_%s", userID, sectionID)
}

func (s *MemoryStore) UpsertQuizResponse(_ context.Context, q *QuizResponse) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := quizKey(q.UserID, q.SectionID)
	if id, ok := s.quizByKey[key]; ok {
		slot := s.quiz.byID[id]
		existing := s.quiz.rows[slot]
		existing.Responses = q.Responses
		existing.UpdatedAt = now
		s.quiz.rows[slot] = existing
		*q = existing
		return false, nil
	}

	q.ID = s.quiz.allocID()
	q.CreatedAt, q.UpdatedAt = now, now
	s.quiz.insert(*q, q.ID)
	s.quizByKey[key] = q.ID
	s.quizByUser[q.UserID] = append(s.quizByUser[q.UserID], q.ID)
	return true, nil
}

func (s *MemoryStore) ListQuizResponses(_ context.Context, userID int64) ([]QuizResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.quizByUser[userID]
	out := make([]QuizResponse, 0, len(ids))
	for _, id := range ids {
		q, _ := s.quiz.get(id)
		out = append(out, q)
	}
	return out, nil
}
