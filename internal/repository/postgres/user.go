package postgres

import (
	"context"
	"fmt"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, nickname, avatar_url, bio, location, balance, trust_score, is_banned, is_admin, is_shop_owner, shop_name, created_at`

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, email, password_hash, nickname, avatar_url, bio, location, balance, trust_score, is_banned, is_admin, is_shop_owner, shop_name)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Nickname, u.AvatarURL, u.Bio, u.Location,
		u.Balance, u.TrustScore, u.IsBanned, u.IsAdmin, u.IsShopOwner, u.ShopName,
	).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", u.Email, domain.ErrAlreadyExists)
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET nickname=$1, avatar_url=$2, bio=$3, location=$4 WHERE id=$5`
	res, err := r.db.ExecContext(ctx, query, u.Nickname, u.AvatarURL, u.Bio, u.Location, u.ID)
	return expectOne(res, err, domain.ErrUserNotFound)
}

func (r *userRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_banned=$1 WHERE id=$2`, banned, id)
	return expectOne(res, err, domain.ErrUserNotFound)
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.AvatarURL, &u.Bio, &u.Location,
		&u.Balance, &u.TrustScore, &u.IsBanned, &u.IsAdmin, &u.IsShopOwner, &u.ShopName, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return u, nil
}
