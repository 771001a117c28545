package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"salegate/internal/ownership/models"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
)

// Postgres persists the ownership registry in a single table. Execute
// loads the rows FOR UPDATE so validate and mutate run against a locked
// snapshot, the SQL equivalent of the in-memory mutex.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the owners table if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS sale_owners (
			identity TEXT PRIMARY KEY,
			is_master BOOLEAN NOT NULL DEFAULT FALSE
		)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate sale_owners: %w", err)
	}
	return nil
}

// Bootstrap seeds the registry with the configured master identity if
// the table is empty. Re-running against the same master is a no-op.
func (s *Postgres) Bootstrap(ctx context.Context, master id.Identity) error {
	registry, err := models.NewRegistry(master)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bootstrap tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := loadRegistry(ctx, tx, false)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	if existing != nil {
		if existing.Master == master {
			return nil
		}
		return sentinel.ErrConflict
	}
	if err := writeRegistry(ctx, tx, registry); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns the current registry state.
func (s *Postgres) Get(ctx context.Context) (*models.Registry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return loadRegistry(ctx, tx, false)
}

// Execute runs validate then mutate inside one transaction with the
// owner rows locked, then rewrites the table. Owner sets are tiny, so
// the rewrite stays cheap.
func (s *Postgres) Execute(
	ctx context.Context,
	validate func(*models.Registry) error,
	mutate func(*models.Registry),
) (*models.Registry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registry tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	registry, err := loadRegistry(ctx, tx, true)
	if err != nil {
		return nil, err
	}
	if err := validate(registry); err != nil {
		return nil, err
	}
	mutate(registry)

	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_owners`); err != nil {
		return nil, fmt.Errorf("clear sale_owners: %w", err)
	}
	if err := writeRegistry(ctx, tx, registry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registry tx: %w", err)
	}
	return registry, nil
}

func loadRegistry(ctx context.Context, tx *sql.Tx, forUpdate bool) (*models.Registry, error) {
	q := `SELECT identity, is_master FROM sale_owners`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load sale_owners: %w", err)
	}
	defer rows.Close()

	registry := &models.Registry{Owners: make(map[id.Identity]bool)}
	found := false
	for rows.Next() {
		var identity string
		var isMaster bool
		if err := rows.Scan(&identity, &isMaster); err != nil {
			return nil, fmt.Errorf("scan owner row: %w", err)
		}
		found = true
		registry.Owners[id.Identity(identity)] = true
		if isMaster {
			registry.Master = id.Identity(identity)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, sentinel.ErrNotFound
	}
	return registry, nil
}

func writeRegistry(ctx context.Context, tx *sql.Tx, registry *models.Registry) error {
	const q = `INSERT INTO sale_owners (identity, is_master) VALUES ($1, $2)`
	for owner := range registry.Owners {
		if _, err := tx.ExecContext(ctx, q, owner.String(), owner == registry.Master); err != nil {
			return fmt.Errorf("write owner row: %w", err)
		}
	}
	return nil
}
