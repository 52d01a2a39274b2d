package repository

import (
	"context"
	"errors"

	"github.com/BoweryJG/mUiLinguistics/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	const query = `INSERT INTO user_profiles (user_id, name, email)
              VALUES ($1, $2, $3) RETURNING user_id, name, email, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, u.UserID, u.Name, u.Email).Scan(&u.UserID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return err
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	const query = `SELECT user_id, email, name, created_at, updated_at FROM user_profiles WHERE user_id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	if err := row.Scan(&u.UserID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
