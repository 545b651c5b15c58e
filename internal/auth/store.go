package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/streakrpro/backend/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// UserStore is the account storage the handlers need.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id int64) (*models.User, error)
	SetUsername(ctx context.Context, id int64, username string) (*models.User, error)
}

// Store is the Postgres UserStore.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, email, COALESCE(username, ''), COALESCE(password, ''), is_anonymous, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var email sql.NullString
	if err := row.Scan(&u.ID, &email, &u.Username, &u.Password, &u.IsAnonymous, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	return &u, nil
}

// Create inserts u and fills in its id and timestamps.
func (s *Store) Create(ctx context.Context, u *models.User) error {
	now := time.Now()
	var password *string
	if u.Password != "" {
		password = &u.Password
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, username, password, is_anonymous, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Username, password, u.IsAnonymous, now,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) ByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) ByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *Store) SetUsername(ctx context.Context, id int64, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET username = $2, updated_at = NOW() WHERE id = $1
		 RETURNING `+userColumns,
		id, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// translate maps unique violations to the matching sentinel.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "users_email_key":
			return ErrEmailTaken
		case "idx_users_username":
			return ErrUsernameTaken
		}
	}
	return fmt.Errorf("write user: %w", err)
}
