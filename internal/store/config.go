package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// ErrNoActiveKey is returned when no active service key is configured.
var ErrNoActiveKey = errors.New("no active service key configured")

// ConfigRepo stores the open-data portal service keys. Exactly one key is
// active at a time.
type ConfigRepo struct {
	*Postgres
}

// NewConfigRepo creates the config repository.
func NewConfigRepo(pg *Postgres) *ConfigRepo {
	return &ConfigRepo{pg}
}

// ActiveServiceKey returns the currently active service key.
func (r *ConfigRepo) ActiveServiceKey(ctx context.Context) (string, error) {
	query, args, err := r.Builder.
		Select("service_key").
		From("api_configs").
		Where("is_active = ?", true).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", err
	}

	var key string
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoActiveKey
		}
		return "", fmt.Errorf("query active service key: %w", err)
	}
	return key, nil
}

// SetServiceKey deactivates all prior keys and activates the given one,
// in a single transaction.
func (r *ConfigRepo) SetServiceKey(ctx context.Context, key string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set service key: %w", err)
	}

	deactivate, args, err := r.Builder.
		Update("api_configs").
		Set("is_active", false).
		Set("updated_at", squirrel.Expr("now()")).
		Where("is_active = ?", true).
		ToSql()
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, deactivate, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("deactivate service keys: %w", err)
	}

	insert, args, err := r.Builder.
		Insert("api_configs").
		Columns("service_key", "is_active").
		Values(key, true).
		ToSql()
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert service key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set service key: %w", err)
	}
	return nil
}
