package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const holdingColumns = `id, user_id, symbol, name, shares, cost_basis, risk_pref, created_at`

// CreateHolding inserts a holding. A second holding with the same symbol for the
// same user is rejected with ErrAlreadyExists.
func (db *DB) CreateHolding(ctx context.Context, h *models.Holding) error {
	query := `
		INSERT INTO holdings (user_id, symbol, name, shares, cost_basis, risk_pref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	now := time.Now().UTC()
	var name sql.NullString
	if h.Name != "" {
		name = sql.NullString{String: h.Name, Valid: true}
	}

	err := db.conn.QueryRowContext(ctx, query,
		h.UserID, h.Symbol, name, h.Shares, h.CostBasis, string(h.RiskPref), now,
	).Scan(&h.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("holding %s: %w", h.Symbol, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}
	h.CreatedAt = now
	return nil
}

// GetHolding retrieves a holding by ID
func (db *DB) GetHolding(ctx context.Context, id int64) (*models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE id = $1`
	h, err := scanHolding(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("holding %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// GetHoldingBySymbol retrieves a user's holding for a symbol
func (db *DB) GetHoldingBySymbol(ctx context.Context, userID int64, symbol string) (*models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE user_id = $1 AND symbol = $2`
	h, err := scanHolding(db.conn.QueryRowContext(ctx, query, userID, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("holding %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// ListHoldings returns every holding across all users
func (db *DB) ListHoldings(ctx context.Context) ([]*models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings ORDER BY id`
	return db.scanHoldings(db.conn.QueryContext(ctx, query))
}

// ListHoldingsByUser returns a user's holdings, newest first
func (db *DB) ListHoldingsByUser(ctx context.Context, userID int64) ([]*models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return db.scanHoldings(db.conn.QueryContext(ctx, query, userID))
}

// DeleteHolding removes a holding and everything that belongs to it in one transaction
func (db *DB) DeleteHolding(ctx context.Context, userID, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM holdings WHERE id = $1 AND user_id = $2)`, id, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up holding: %w", err)
	}
	if !exists {
		return fmt.Errorf("holding %d: %w", id, ErrNotFound)
	}

	for _, table := range []string{"content_items", "snapshots", "alerts", "trigger_rules"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE holding_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete %s for holding %d: %w", table, id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (*models.Holding, error) {
	var h models.Holding
	var name sql.NullString
	var shares, costBasis sql.NullFloat64
	var riskPref string

	err := row.Scan(&h.ID, &h.UserID, &h.Symbol, &name, &shares, &costBasis, &riskPref, &h.CreatedAt)
	if err != nil {
		return nil, err
	}

	if name.Valid {
		h.Name = name.String
	}
	if shares.Valid {
		h.Shares = &shares.Float64
	}
	if costBasis.Valid {
		h.CostBasis = &costBasis.Float64
	}
	h.RiskPref = models.RiskPreference(riskPref)
	h.CreatedAt = h.CreatedAt.UTC()
	return &h, nil
}

func (db *DB) scanHoldings(rows *sql.Rows, err error) ([]*models.Holding, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}
