package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/llcportal/consultations/libs/db"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// AccountRepository reads the accounts table owned by the identity collaborator.
type AccountRepository struct {
	pool *db.Pool
}

func NewAccountRepository(pool *db.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Account(ctx context.Context, id string) (model.Account, error) {
	var acc model.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, COALESCE(full_name, ''), COALESCE(preferred_language, '')
		FROM accounts
		WHERE id = $1
	`, id).Scan(&acc.ID, &acc.Email, &acc.Name, &acc.Language)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	return acc, nil
}
