package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tapsafe/auth-service/internal/domain"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, magic_link_token, magic_link_expires_at, created_at, updated_at`

func (r *UserRepository) FindOrCreate(ctx context.Context, email string) (*domain.User, error) {
	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email)
		VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING `+userColumns,
		email,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) SetMagicToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET magic_link_token = $2, magic_link_expires_at = $3, updated_at = NOW()
		WHERE email = $1`,
		email, token, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set magic token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearMagicToken(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET magic_link_token = NULL, magic_link_expires_at = NULL, updated_at = NOW()
		WHERE email = $1`,
		email,
	)
	if err != nil {
		return fmt.Errorf("clear magic token: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET magic_link_token = NULL, magic_link_expires_at = NULL
		WHERE magic_link_token IS NOT NULL AND magic_link_expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.MagicLinkToken, &u.MagicLinkExpiry, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
