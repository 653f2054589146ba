package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/storage"
)

func TestHoldings(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.GetOrCreateUser(ctx, "a@b.c")
	require.NoError(t, err)
	again, err := s.GetOrCreateUser(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	h := &models.Holding{UserID: u.ID, Symbol: "AAPL", RiskPref: models.RiskNeutral}
	require.NoError(t, s.CreateHolding(ctx, h))
	assert.ErrorIs(t, s.CreateHolding(ctx, &models.Holding{UserID: u.ID, Symbol: "AAPL"}), storage.ErrAlreadyExists)

	got, err := s.GetHoldingBySymbol(ctx, u.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)

	_, err = s.GetHoldingBySymbol(ctx, u.ID, "MSFT")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteHoldingCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	h := &models.Holding{UserID: 1, Symbol: "TSLA"}
	require.NoError(t, s.CreateHolding(ctx, h))

	require.NoError(t, s.CreateContentItem(ctx, &models.ContentItem{HoldingID: h.ID, Fingerprint: "fp"}))
	require.NoError(t, s.CreateSnapshot(ctx, &models.StockSnapshot{HoldingID: h.ID, Timestamp: time.Now()}))
	require.NoError(t, s.CreateAlert(ctx, &models.AlertEvent{HoldingID: h.ID}))
	_, err := s.GetOrCreateTriggerRule(ctx, h.ID, models.TriggerRule{Enabled: true})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteHolding(ctx, 2, h.ID), storage.ErrNotFound)
	require.NoError(t, s.DeleteHolding(ctx, 1, h.ID))

	_, err = s.GetContentByFingerprint(ctx, h.ID, "fp")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	snaps, _ := s.ListSnapshots(ctx, h.ID, 10)
	assert.Empty(t, snaps)
	alerts, _ := s.ListAlerts(ctx, h.ID, 10)
	assert.Empty(t, alerts)
	assert.ErrorIs(t, s.UpdateTriggerRule(ctx, &models.TriggerRule{HoldingID: h.ID}), storage.ErrNotFound)
}

func TestListRecentContentOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	items := []*models.ContentItem{
		{HoldingID: 1, Fingerprint: "a", HotScore: 10, Timestamp: now.Add(-time.Hour)},
		{HoldingID: 1, Fingerprint: "b", HotScore: 30, Timestamp: now.Add(-2 * time.Hour)},
		{HoldingID: 1, Fingerprint: "c", HotScore: 10, Timestamp: now},
		{HoldingID: 1, Fingerprint: "old", HotScore: 99, Timestamp: now.Add(-72 * time.Hour)},
		{HoldingID: 2, Fingerprint: "other", HotScore: 50, Timestamp: now},
	}
	for _, it := range items {
		require.NoError(t, s.CreateContentItem(ctx, it))
	}
	assert.ErrorIs(t, s.CreateContentItem(ctx, &models.ContentItem{HoldingID: 1, Fingerprint: "a"}), storage.ErrAlreadyExists)

	got, err := s.ListRecentContent(ctx, 1, now.Add(-48*time.Hour), 10)
	require.NoError(t, err)
	var fps []string
	for _, c := range got {
		fps = append(fps, c.Fingerprint)
	}
	assert.Equal(t, []string{"b", "c", "a"}, fps)

	got, err = s.ListRecentContent(ctx, 1, now.Add(-48*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSnapshotsAndReports(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateSnapshot(ctx, &models.StockSnapshot{HoldingID: 1, Timestamp: now.Add(-30 * time.Hour), RiskScore: 1}))
	_, err := s.GetLatestSnapshotSince(ctx, 1, now.Add(-24*time.Hour))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.CreateSnapshot(ctx, &models.StockSnapshot{HoldingID: 1, Timestamp: now.Add(-time.Hour), RiskScore: 2}))
	latest, err := s.GetLatestSnapshotSince(ctx, 1, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2.0, latest.RiskScore)

	r := &models.DailyReport{UserID: 1, Date: "2024-05-01", Content: "x"}
	require.NoError(t, s.CreateDailyReport(ctx, r))
	assert.ErrorIs(t, s.CreateDailyReport(ctx, &models.DailyReport{UserID: 1, Date: "2024-05-01"}), storage.ErrAlreadyExists)

	exists, err := s.DailyReportExists(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.CreateDailyReport(ctx, &models.DailyReport{UserID: 1, Date: "2024-05-02"}))
	reports, err := s.ListDailyReports(ctx, 1, 30)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "2024-05-02", reports[0].Date)
}
