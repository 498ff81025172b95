package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and creates the schema. Writers wait up
// to five seconds for the lock and take it when their transaction begins.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", withLockingParams(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A shared in-memory database only exists on a single connection.
	if strings.Contains(dataSourceName, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func withLockingParams(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_busy_timeout") && !strings.Contains(dsn, "_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        email TEXT UNIQUE NOT NULL COLLATE NOCASE,
        password_hash TEXT NOT NULL,
        preferred_language TEXT NOT NULL DEFAULT 'ar',
        budget_tier INTEGER NOT NULL DEFAULT 2,
        skin_type TEXT NOT NULL DEFAULT '',
        skin_concerns TEXT NOT NULL DEFAULT '[]',
        quiz_completed BOOLEAN NOT NULL DEFAULT FALSE,
        quiz_completed_at DATETIME,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS products (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        category TEXT NOT NULL,
        price REAL NOT NULL,
        body TEXT NOT NULL -- full record as JSON
    );

    CREATE TABLE IF NOT EXISTS skin_analyses (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        body TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    CREATE INDEX IF NOT EXISTS idx_skin_analyses_user ON skin_analyses (user_id, created_at);

    CREATE TABLE IF NOT EXISTS routines (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        body TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS chat_messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        message TEXT NOT NULL,
        response TEXT NOT NULL,
        message_type TEXT NOT NULL,
        language TEXT NOT NULL,
        context TEXT,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages (user_id, id);

    CREATE TABLE IF NOT EXISTS pharmacies (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        body TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS quiz_responses (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        section_id TEXT NOT NULL,
        responses TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        UNIQUE (user_id, section_id),
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func marshalColumn(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// User methods
const userColumns = `id, username, email, password_hash, preferred_language, budget_tier,
    skin_type, skin_concerns, quiz_completed, quiz_completed_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u           User
		concerns    string
		completedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.PreferredLanguage, &u.BudgetTier,
		&u.SkinType, &concerns, &u.QuizCompleted, &completedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if err := json.Unmarshal([]byte(concerns), &u.SkinConcerns); err != nil {
		return nil, fmt.Errorf("failed to decode skin concerns: %w", err)
	}
	if completedAt.Valid {
		u.QuizCompletedAt = &completedAt.Time
	}
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	concerns, err := marshalColumn(nonNil(u.SkinConcerns))
	if err != nil {
		return fmt.Errorf("failed to encode skin concerns: %w", err)
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, preferred_language, budget_tier, skin_type,
            skin_concerns, quiz_completed, quiz_completed_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.PreferredLanguage, u.BudgetTier, u.SkinType,
		concerns, u.QuizCompleted, u.QuizCompletedAt, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.ID, _ = res.LastInsertId()
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u *User) error {
	concerns, err := marshalColumn(nonNil(u.SkinConcerns))
	if err != nil {
		return fmt.Errorf("failed to encode skin concerns: %w", err)
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET preferred_language = ?, budget_tier = ?, skin_type = ?, skin_concerns = ?,
            quiz_completed = ?, quiz_completed_at = ?, updated_at = ? WHERE id = ?`,
		u.PreferredLanguage, u.BudgetTier, u.SkinType, concerns, u.QuizCompleted, u.QuizCompletedAt, now, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	u.UpdatedAt = now
	return nil
}

// Product methods
func (s *SQLiteStore) CreateProduct(ctx context.Context, p *Product) error {
	body, err := marshalColumn(p)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO products (category, price, body) VALUES (?, ?, ?)", p.Category, p.Price, body)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

func decodeProduct(id int64, body string) (Product, error) {
	var p Product
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return p, fmt.Errorf("failed to decode product %d: %w", id, err)
	}
	p.ID = id
	return p, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM products WHERE id = ?", id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	p, err := decodeProduct(id, body)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProduct(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	query := "SELECT id, body FROM products WHERE 1=1"
	var args []any
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.MaxPrice > 0 {
		query += " AND price <= ?"
		args = append(args, f.MaxPrice)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		p, err := decodeProduct(id, body)
		if err != nil {
			return nil, err
		}
		// List criteria live inside the JSON body.
		if f.Match(p) {
			products = append(products, p)
		}
	}
	return products, rows.Err()
}

func (s *SQLiteStore) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// SkinAnalysis methods
func (s *SQLiteStore) CreateAnalysis(ctx context.Context, a *SkinAnalysis) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	body, err := marshalColumn(a)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO skin_analyses (user_id, body, created_at) VALUES (?, ?, ?)", a.UserID, body, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	return nil
}

func decodeAnalysis(id int64, body string) (SkinAnalysis, error) {
	var a SkinAnalysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return a, fmt.Errorf("failed to decode analysis %d: %w", id, err)
	}
	a.ID = id
	return a, nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id int64) (*SkinAnalysis, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM skin_analyses WHERE id = ?", id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	a, err := decodeAnalysis(id, body)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, userID int64) ([]SkinAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM skin_analyses WHERE user_id = ? ORDER BY created_at ASC, id ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []SkinAnalysis{}
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		a, err := decodeAnalysis(id, body)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// Routine methods
func (s *SQLiteStore) CreateRoutine(ctx context.Context, r *Routine) error {
	r.CreatedAt = time.Now()
	body, err := marshalColumn(r)
	if err != nil {
		return fmt.Errorf("failed to encode routine: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO routines (user_id, body, created_at) VALUES (?, ?, ?)", r.UserID, body, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert routine: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListRoutines(ctx context.Context, userID int64) ([]Routine, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM routines WHERE user_id = ? ORDER BY id ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	routines := []Routine{}
	for rows.Next() {
		var (
			r    Routine
			body string
		)
		if err := rows.Scan(&r.ID, &body); err != nil {
			return nil, fmt.Errorf("failed to scan routine row: %w", err)
		}
		id := r.ID
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("failed to decode routine %d: %w", id, err)
		}
		r.ID = id
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

// ChatMessage methods
func (s *SQLiteStore) CreateChatMessage(ctx context.Context, m *ChatMessage) error {
	m.CreatedAt = time.Now()
	var chatContext any
	if len(m.Context) > 0 {
		chatContext = string(m.Context)
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_messages (user_id, message, response, message_type, language, context, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		m.UserID, m.Message, m.Response, m.MessageType, m.Language, chatContext, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListChatMessages(ctx context.Context, userID int64, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = -1 // SQLite reads a negative LIMIT as unbounded
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, message, response, message_type, language, context, created_at
        FROM chat_messages
        WHERE user_id = ?
        ORDER BY id DESC
        LIMIT ?
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	messages := []ChatMessage{}
	for rows.Next() {
		var (
			m           ChatMessage
			chatContext sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Message, &m.Response, &m.MessageType, &m.Language, &chatContext, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		if chatContext.Valid {
			m.Context = json.RawMessage(chatContext.String)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) CountChatMessages(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_messages WHERE user_id = ?", userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return n, nil
}

// Pharmacy methods
func (s *SQLiteStore) CreatePharmacy(ctx context.Context, p *Pharmacy) error {
	body, err := marshalColumn(p)
	if err != nil {
		return fmt.Errorf("failed to encode pharmacy: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO pharmacies (body) VALUES (?)", body)
	if err != nil {
		return fmt.Errorf("failed to insert pharmacy: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListPharmacies(ctx context.Context) ([]Pharmacy, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM pharmacies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query pharmacies: %w", err)
	}
	defer rows.Close()

	pharmacies := []Pharmacy{}
	for rows.Next() {
		var (
			id   int64
			body string
			p    Pharmacy
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan pharmacy row: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("failed to decode pharmacy %d: %w", id, err)
		}
		p.ID = id
		pharmacies = append(pharmacies, p)
	}
	return pharmacies, rows.Err()
}

// QuizResponse methods
func (s *SQLiteStore) UpsertQuizResponse(ctx context.Context, q *QuizResponse) (bool, error) {
	responses, err := marshalColumn(q.Responses)
	if err != nil {
		return false, fmt.Errorf("failed to encode quiz responses: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin quiz upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO quiz_responses (user_id, section_id, responses, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id, section_id) DO UPDATE SET
            responses = excluded.responses,
            updated_at = excluded.updated_at`,
		q.UserID, q.SectionID, responses, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to upsert quiz response: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		"SELECT id, created_at, updated_at FROM quiz_responses WHERE user_id = ? AND section_id = ?",
		q.UserID, q.SectionID).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to read back quiz response: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit quiz upsert: %w", err)
	}
	// Both timestamps come from the same insert only when the row is new.
	return q.CreatedAt.Equal(q.UpdatedAt), nil
}

func (s *SQLiteStore) ListQuizResponses(ctx context.Context, userID int64) ([]QuizResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, section_id, responses, created_at, updated_at FROM quiz_responses WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz responses: %w", err)
	}
	defer rows.Close()

	out := []QuizResponse{}
	for rows.Next() {
		var (
			q         QuizResponse
			responses string
		)
		if err := rows.Scan(&q.ID, &q.UserID, &q.SectionID, &responses, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz response row: %w", err)
		}
		if err := json.Unmarshal([]byte(responses), &q.Responses); err != nil {
			return nil, fmt.Errorf("failed to decode quiz responses %d: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
