package db

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// NewDb connects the pgx pool with the given DSN and wraps it in Database.
func NewDb(ctx context.Context, dsn string) (*Database, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewDatabase(pool), nil
}
