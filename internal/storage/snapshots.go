package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const snapshotColumns = `id, holding_id, ts, price, change_pct_1d, volume, sentiment_score, risk_score, summary`

// CreateSnapshot appends a snapshot for a holding
func (db *DB) CreateSnapshot(ctx context.Context, s *models.StockSnapshot) error {
	query := `
		INSERT INTO snapshots (holding_id, ts, price, change_pct_1d, volume, sentiment_score, risk_score, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}

	err := db.conn.QueryRowContext(ctx, query,
		s.HoldingID, s.Timestamp.UTC(), s.Price, s.ChangePct1D, s.Volume,
		s.SentimentScore, s.RiskScore, nullString(s.Summary),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// GetLatestSnapshotSince returns the newest snapshot at or after since
func (db *DB) GetLatestSnapshotSince(ctx context.Context, holdingID int64, since time.Time) (*models.StockSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE holding_id = $1 AND ts >= $2
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`
	s, err := scanSnapshot(db.conn.QueryRowContext(ctx, query, holdingID, since.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot for holding %d: %w", holdingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return s, nil
}

// ListSnapshots returns a holding's snapshots, newest first
func (db *DB) ListSnapshots(ctx context.Context, holdingID int64, limit int) ([]*models.StockSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE holding_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, holdingID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.StockSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func scanSnapshot(row rowScanner) (*models.StockSnapshot, error) {
	var s models.StockSnapshot
	var volume sql.NullFloat64
	var summary sql.NullString

	err := row.Scan(&s.ID, &s.HoldingID, &s.Timestamp, &s.Price, &s.ChangePct1D, &volume,
		&s.SentimentScore, &s.RiskScore, &summary)
	if err != nil {
		return nil, err
	}
	if volume.Valid {
		s.Volume = &volume.Float64
	}
	if summary.Valid {
		s.Summary = summary.String
	}
	s.Timestamp = s.Timestamp.UTC()
	return &s, nil
}
