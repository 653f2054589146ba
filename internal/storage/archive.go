package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/stockguardian/guardian-bot/internal/models"
)

// ReportArchive writes daily reports to a BlobStore as JSON documents
// keyed reports/<user_id>/<date>.json
type ReportArchive struct {
	store BlobStore
}

// NewReportArchive wraps a blob store
func NewReportArchive(store BlobStore) *ReportArchive {
	return &ReportArchive{store: store}
}

// ReportKey is the blob name for one user's report on one date
func ReportKey(userID int64, date string) string {
	return path.Join("reports", fmt.Sprint(userID), date+".json")
}

// ArchiveReport stores the report, overwriting an earlier copy of the same day
func (a *ReportArchive) ArchiveReport(ctx context.Context, r *models.DailyReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return a.store.Store(ctx, ReportKey(r.UserID, r.Date), data)
}

// LoadReport reads back an archived report
func (a *ReportArchive) LoadReport(ctx context.Context, userID int64, date string) (*models.DailyReport, error) {
	data, err := a.store.Retrieve(ctx, ReportKey(userID, date))
	if err != nil {
		return nil, err
	}

	var r models.DailyReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// ArchivedDates lists the dates archived for a user, oldest first
func (a *ReportArchive) ArchivedDates(ctx context.Context, userID int64) ([]string, error) {
	prefix := path.Join("reports", fmt.Sprint(userID)) + "/"
	names, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(names))
	for _, name := range names {
		base := path.Base(name)
		if !strings.HasSuffix(base, ".json") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(base, ".json"))
	}
	sort.Strings(dates)
	return dates, nil
}
