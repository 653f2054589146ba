package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const ruleColumns = `id, holding_id, enabled, risk_ge, sentiment_le, hot_ge, change_abs_ge`

// GetOrCreateTriggerRule returns the holding's rule, materializing defaults on first access
func (db *DB) GetOrCreateTriggerRule(ctx context.Context, holdingID int64, defaults models.TriggerRule) (*models.TriggerRule, error) {
	insert := `
		INSERT INTO trigger_rules (holding_id, enabled, risk_ge, sentiment_le, hot_ge, change_abs_ge)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (holding_id) DO NOTHING
	`
	_, err := db.conn.ExecContext(ctx, insert,
		holdingID, defaults.Enabled, defaults.RiskGE, defaults.SentimentLE, defaults.HotGE, defaults.ChangeAbsGE,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trigger rule: %w", err)
	}

	var r models.TriggerRule
	err = db.conn.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM trigger_rules WHERE holding_id = $1`, holdingID,
	).Scan(&r.ID, &r.HoldingID, &r.Enabled, &r.RiskGE, &r.SentimentLE, &r.HotGE, &r.ChangeAbsGE)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trigger rule for holding %d: %w", holdingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trigger rule: %w", err)
	}
	return &r, nil
}

// UpdateTriggerRule saves every threshold of an existing rule
func (db *DB) UpdateTriggerRule(ctx context.Context, r *models.TriggerRule) error {
	query := `
		UPDATE trigger_rules SET
			enabled = $2, risk_ge = $3, sentiment_le = $4, hot_ge = $5, change_abs_ge = $6
		WHERE holding_id = $1
	`
	result, err := db.conn.ExecContext(ctx, query,
		r.HoldingID, r.Enabled, r.RiskGE, r.SentimentLE, r.HotGE, r.ChangeAbsGE,
	)
	if err != nil {
		return fmt.Errorf("failed to update trigger rule: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trigger rule for holding %d: %w", r.HoldingID, ErrNotFound)
	}
	return nil
}
