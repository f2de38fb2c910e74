package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UserRepository handles all database operations for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateTx inserts a user row within the caller's transaction, so the
// account and its wallet commit together. Unique violations on email or
// username surface as domain errors.
func (r *UserRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, role, is_active, created_at, updated_at)
		VALUES (:id, :email, :username, :password_hash, :role, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, u); err != nil {
		switch uniqueViolation(err) {
		case "users_email_key":
			return domain.ErrEmailTaken
		case "users_username_key":
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("user_repo.CreateTx: %w", err)
	}
	return nil
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, "user_repo.GetByID", `SELECT * FROM users WHERE id = $1`, id)
}

// GetByEmail fetches a user by email address. Used for login.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "user_repo.GetByEmail", `SELECT * FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var u domain.User
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// List returns a page of accounts, newest first, with the total count for
// the back-office pagination header.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	var users []*domain.User
	var total int

	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, fmt.Errorf("user_repo.List count: %w", err)
	}
	if err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("user_repo.List select: %w", err)
	}
	return users, total, nil
}

// UpdateRole changes a user's role. Back-office operation; the settlement
// authority itself is pinned in config, not in this column.
func (r *UserRepository) UpdateRole(ctx context.Context, userID uuid.UUID, role domain.UserRole) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`,
		string(role), userID)
	if err != nil {
		return fmt.Errorf("user_repo.UpdateRole: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetActive activates or deactivates an account. Suspended accounts keep
// their wallet and positions; they just cannot authenticate.
func (r *UserRepository) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2`,
		active, userID)
	if err != nil {
		return fmt.Errorf("user_repo.SetActive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// uniqueViolation returns the violated constraint name when err is a
// PostgreSQL unique violation, "" otherwise.
func uniqueViolation(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint
	}
	return ""
}
