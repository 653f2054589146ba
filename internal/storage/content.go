package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const contentColumns = `id, holding_id, ts, source, title, url, fingerprint, sentiment_score, hot_score`

// GetContentByFingerprint looks up the live item for (holding, fingerprint)
func (db *DB) GetContentByFingerprint(ctx context.Context, holdingID int64, fingerprint string) (*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items WHERE holding_id = $1 AND fingerprint = $2`
	item, err := scanContentItem(db.conn.QueryRowContext(ctx, query, holdingID, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content %s: %w", fingerprint, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return item, nil
}

// CreateContentItem inserts a new content item
func (db *DB) CreateContentItem(ctx context.Context, c *models.ContentItem) error {
	query := `
		INSERT INTO content_items (holding_id, ts, source, title, url, fingerprint, sentiment_score, hot_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := db.conn.QueryRowContext(ctx, query,
		c.HoldingID, c.Timestamp.UTC(), c.Source, c.Title, nullString(c.URL),
		c.Fingerprint, c.SentimentScore, c.HotScore,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("content %s: %w", c.Fingerprint, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create content item: %w", err)
	}
	return nil
}

// UpdateContentItem overwrites the mutable fields of an existing item
func (db *DB) UpdateContentItem(ctx context.Context, c *models.ContentItem) error {
	query := `
		UPDATE content_items SET
			ts = $2, title = $3, url = $4, sentiment_score = $5, hot_score = $6
		WHERE id = $1
	`
	result, err := db.conn.ExecContext(ctx, query,
		c.ID, c.Timestamp.UTC(), c.Title, nullString(c.URL), c.SentimentScore, c.HotScore,
	)
	if err != nil {
		return fmt.Errorf("failed to update content item: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("content item %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// ListRecentContent returns a holding's items newer than since, hottest first,
// newer first among equal hot scores
func (db *DB) ListRecentContent(ctx context.Context, holdingID int64, since time.Time, limit int) ([]*models.ContentItem, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM content_items
		WHERE holding_id = $1 AND ts >= $2
		ORDER BY hot_score DESC, ts DESC
		LIMIT $3
	`
	rows, err := db.conn.QueryContext(ctx, query, holdingID, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query content items: %w", err)
	}
	defer rows.Close()

	var items []*models.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanContentItem(row rowScanner) (*models.ContentItem, error) {
	var c models.ContentItem
	var url sql.NullString

	err := row.Scan(&c.ID, &c.HoldingID, &c.Timestamp, &c.Source, &c.Title, &url,
		&c.Fingerprint, &c.SentimentScore, &c.HotScore)
	if err != nil {
		return nil, err
	}
	if url.Valid {
		c.URL = url.String
	}
	c.Timestamp = c.Timestamp.UTC()
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
