package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/stockguardian/guardian-bot/internal/models"
)

// CreateAlert records a fired alert
func (db *DB) CreateAlert(ctx context.Context, a *models.AlertEvent) error {
	query := `
		INSERT INTO alerts (holding_id, ts, level, title, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	err := db.conn.QueryRowContext(ctx, query,
		a.HoldingID, a.Timestamp.UTC(), a.Level, a.Title, a.Detail,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// ListAlerts returns a holding's alerts, newest first
func (db *DB) ListAlerts(ctx context.Context, holdingID int64, limit int) ([]*models.AlertEvent, error) {
	query := `
		SELECT id, holding_id, ts, level, title, detail
		FROM alerts
		WHERE holding_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, holdingID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.AlertEvent
	for rows.Next() {
		var a models.AlertEvent
		if err := rows.Scan(&a.ID, &a.HoldingID, &a.Timestamp, &a.Level, &a.Title, &a.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Timestamp = a.Timestamp.UTC()
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}
