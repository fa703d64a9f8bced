package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/get-it-done-api/internal/model"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create вставляет пользователя; дубликат email дает ErrorConflict
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	profile := u.Profile
	if profile == nil {
		profile = map[string]any{}
	}

	var out model.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, profile, created_at)
		VALUES ($1, $2, $3)
		RETURNING email, profile, created_at
	`, u.Email, profile, u.CreatedAt).Scan(&out.Email, &out.Profile, &out.CreatedAt)
	if err != nil {
		return u, fmt.Errorf("insert user: %w", mapError(err))
	}
	return out, nil
}

func (r *UserRepo) Get(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT email, profile, created_at FROM users WHERE email = $1
	`, email).Scan(&u.Email, &u.Profile, &u.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrorNotFound
	}
	return u, err
}
