package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/monmat/order-manager/internal/db"
	"github.com/monmat/order-manager/internal/repository"
)

// SettingsRepo is the key/value system_settings table. The marketplace
// credentials (client id, client secret, refresh token) live here.
type SettingsRepo struct {
	db db.DB
}

func NewSettingsRepo(db db.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.Get(ctx, &value,
		"SELECT setting_value FROM system_settings WHERE setting_key = $1", key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrObjectNotFound
		}
		return "", err
	}
	return value, nil
}

func (r *SettingsRepo) Put(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO system_settings (setting_key, setting_value)
        VALUES ($1, $2)
        ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value
    `, key, value)
	return err
}
