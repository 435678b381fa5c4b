// Package store implements the PostgreSQL storage layer for notices,
// awards and API credentials.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// insertBatchSize bounds one multi-row INSERT statement.
const insertBatchSize = 500

// Postgres wraps the database handle and the shared statement builder.
type Postgres struct {
	DB      *sql.DB
	Builder squirrel.StatementBuilderType
}

// New opens a connection pool against the given URL.
func New(url string) (*Postgres, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Postgres{
		DB:      db,
		Builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Migrate applies all pending migrations from the given source, e.g.
// "file://migrations". An already up-to-date schema is not an error.
func (p *Postgres) Migrate(sourceURL string) error {
	driver, err := pgmigrate.WithInstance(p.DB, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}

// chunk splits n row indexes into [lo, hi) windows of at most size rows.
func chunk(n, size int) [][2]int {
	if n <= 0 || size <= 0 {
		return nil
	}
	var windows [][2]int
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		windows = append(windows, [2]int{lo, hi})
	}
	return windows
}
