package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/stockguardian/guardian-bot/internal/models"
)

// DailyReportExists reports whether a user already has a report for date
func (db *DB) DailyReportExists(ctx context.Context, userID int64, date string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM daily_reports WHERE user_id = $1 AND report_date = $2)`,
		userID, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check daily report: %w", err)
	}
	return exists, nil
}

// CreateDailyReport inserts a report. An existing (user, date) report is never
// overwritten; the call fails with ErrAlreadyExists instead.
func (db *DB) CreateDailyReport(ctx context.Context, r *models.DailyReport) error {
	query := `
		INSERT INTO daily_reports (user_id, report_date, content, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, report_date) DO NOTHING
		RETURNING id
	`
	now := time.Now().UTC()
	rows, err := db.conn.QueryContext(ctx, query, r.UserID, r.Date, r.Content, now)
	if err != nil {
		return fmt.Errorf("failed to create daily report: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to create daily report: %w", err)
		}
		return fmt.Errorf("daily report %s for user %d: %w", r.Date, r.UserID, ErrAlreadyExists)
	}
	if err := rows.Scan(&r.ID); err != nil {
		return fmt.Errorf("failed to scan daily report id: %w", err)
	}
	r.CreatedAt = now
	return nil
}

// ListDailyReports returns a user's reports, most recent date first
func (db *DB) ListDailyReports(ctx context.Context, userID int64, limit int) ([]*models.DailyReport, error) {
	query := `
		SELECT id, user_id, report_date, content, created_at
		FROM daily_reports
		WHERE user_id = $1
		ORDER BY report_date DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.DailyReport
	for rows.Next() {
		var r models.DailyReport
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily report: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}
