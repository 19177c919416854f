package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cropsight/apiserver/types"
)

// UserRepository handles persistence for users.
//
// Queries keep their $N placeholders in first-occurrence order so the same
// statements run unchanged against Postgres in production and SQLite in tests.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, username, email, role, password_hash, created_at
		FROM users
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, email, role, password_hash, created_at
		FROM users
		WHERE username = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

// EmailTaken reports whether any user already claims the given email.
func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	const query = `SELECT COUNT(1) FROM users WHERE email = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new user. Uniqueness of the username is expected to be
// checked by the caller; the database constraint is the backstop.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now()

	const query = `
		INSERT INTO users (username, email, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// ListNonAdmin returns every account except the reserved admin.
func (r *UserRepository) ListNonAdmin(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT id, username, email, role, password_hash, created_at
		FROM users
		WHERE username <> $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, types.AdminUsername)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.Role,
			&user.PasswordHash,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Delete removes a user and, first, every prediction that user owns.
// Deleting the reserved admin account fails with ErrProtected.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Username == types.AdminUsername {
		return ErrProtected
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM predictions WHERE user_id = $1`, id); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}
