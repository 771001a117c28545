package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"salegate/internal/sale/models"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
)

// Postgres persists the ledger as one aggregate row plus an orders
// table. Every Execute locks the aggregate row FOR UPDATE first, which
// serializes all mutations exactly like the in-memory mutex.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the ledger tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	const aggregates = `
		CREATE TABLE IF NOT EXISTS sale_ledger (
			singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			stage INT NOT NULL,
			supply_cap NUMERIC(40, 0) NOT NULL,
			total_allocated NUMERIC(40, 0) NOT NULL,
			refund_approved BOOLEAN NOT NULL DEFAULT FALSE
		)`
	const orders = `
		CREATE TABLE IF NOT EXISTS sale_orders (
			identity TEXT PRIMARY KEY,
			contributed NUMERIC(40, 0) NOT NULL,
			pending_asset NUMERIC(40, 0) NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE
		)`
	if _, err := s.db.ExecContext(ctx, aggregates); err != nil {
		return fmt.Errorf("migrate sale_ledger: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, orders); err != nil {
		return fmt.Errorf("migrate sale_orders: %w", err)
	}
	return nil
}

// Init seeds the aggregate row. Re-running with a row already present
// is a conflict.
func (s *Postgres) Init(ctx context.Context, supplyCap id.Amount, stage id.Stage) error {
	const q = `
		INSERT INTO sale_ledger (singleton, stage, supply_cap, total_allocated, refund_approved)
		VALUES (TRUE, $1, $2, '0', FALSE)
		ON CONFLICT (singleton) DO NOTHING`
	res, err := s.db.ExecContext(ctx, q, int(stage), supplyCap.String())
	if err != nil {
		return fmt.Errorf("init sale_ledger: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("init sale_ledger: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// View returns the aggregate state plus the orders for the given
// identities.
func (s *Postgres) View(ctx context.Context, identities ...id.Identity) (*models.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return loadLedger(ctx, tx, identities, false)
}

// Execute runs validate then mutate inside one transaction with the
// aggregate row locked, then writes back the aggregate and every touched
// order.
func (s *Postgres) Execute(
	ctx context.Context,
	touched []id.Identity,
	validate func(*models.Ledger) error,
	mutate func(*models.Ledger),
) (*models.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ledger, err := loadLedger(ctx, tx, touched, true)
	if err != nil {
		return nil, err
	}
	if err := validate(ledger); err != nil {
		return nil, err
	}
	mutate(ledger)

	if err := writeLedger(ctx, tx, ledger); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}
	return ledger, nil
}

func loadLedger(ctx context.Context, tx *sql.Tx, identities []id.Identity, forUpdate bool) (*models.Ledger, error) {
	q := `SELECT stage, supply_cap, total_allocated, refund_approved FROM sale_ledger WHERE singleton`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	var (
		stage          int
		capStr         string
		allocatedStr   string
		refundApproved bool
	)
	err := tx.QueryRowContext(ctx, q).Scan(&stage, &capStr, &allocatedStr, &refundApproved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sale_ledger: %w", err)
	}

	supplyCap, err := id.ParseAmount(capStr)
	if err != nil {
		return nil, fmt.Errorf("parse supply cap: %w", err)
	}
	totalAllocated, err := id.ParseAmount(allocatedStr)
	if err != nil {
		return nil, fmt.Errorf("parse total allocated: %w", err)
	}

	ledger := &models.Ledger{
		Stage:          id.Stage(stage),
		SupplyCap:      supplyCap,
		TotalAllocated: totalAllocated,
		RefundApproved: refundApproved,
		Orders:         make(map[id.Identity]*models.Order, len(identities)),
	}

	const orderQ = `SELECT contributed, pending_asset, verified FROM sale_orders WHERE identity = $1`
	for _, identity := range identities {
		var (
			contributedStr string
			pendingStr     string
			verified       bool
		)
		err := tx.QueryRowContext(ctx, orderQ, identity.String()).Scan(&contributedStr, &pendingStr, &verified)
		if errors.Is(err, sql.ErrNoRows) {
			continue // lazily created on first mutation
		}
		if err != nil {
			return nil, fmt.Errorf("load sale order %s: %w", identity, err)
		}
		contributed, err := id.ParseAmount(contributedStr)
		if err != nil {
			return nil, fmt.Errorf("parse contributed: %w", err)
		}
		pending, err := id.ParseAmount(pendingStr)
		if err != nil {
			return nil, fmt.Errorf("parse pending asset: %w", err)
		}
		ledger.Orders[identity] = &models.Order{
			Identity:     identity,
			Contributed:  contributed,
			PendingAsset: pending,
			Verified:     verified,
		}
	}
	return ledger, nil
}

func writeLedger(ctx context.Context, tx *sql.Tx, ledger *models.Ledger) error {
	const aggQ = `
		UPDATE sale_ledger
		SET stage = $1, total_allocated = $2, refund_approved = $3
		WHERE singleton`
	if _, err := tx.ExecContext(ctx, aggQ,
		int(ledger.Stage), ledger.TotalAllocated.String(), ledger.RefundApproved,
	); err != nil {
		return fmt.Errorf("write sale_ledger: %w", err)
	}

	const orderQ = `
		INSERT INTO sale_orders (identity, contributed, pending_asset, verified)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity) DO UPDATE
		SET contributed = EXCLUDED.contributed,
		    pending_asset = EXCLUDED.pending_asset,
		    verified = EXCLUDED.verified`
	for _, order := range ledger.Orders {
		if _, err := tx.ExecContext(ctx, orderQ,
			order.Identity.String(), order.Contributed.String(), order.PendingAsset.String(), order.Verified,
		); err != nil {
			return fmt.Errorf("write sale order %s: %w", order.Identity, err)
		}
	}
	return nil
}
