// Package memstore is an in-process implementation of the repository used for
// dry runs and the local tooling. It keeps the same contracts as the Postgres
// store: ErrNotFound on missing rows and ErrAlreadyExists on duplicates.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/storage"
)

// Store holds everything in maps guarded by one mutex
type Store struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*models.User
	holdings  map[int64]*models.Holding
	content   map[int64]*models.ContentItem
	snapshots map[int64]*models.StockSnapshot
	rules     map[int64]*models.TriggerRule // by holding
	alerts    map[int64]*models.AlertEvent
	reports   map[int64]*models.DailyReport
	now       func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:     map[int64]*models.User{},
		holdings:  map[int64]*models.Holding{},
		content:   map[int64]*models.ContentItem{},
		snapshots: map[int64]*models.StockSnapshot{},
		rules:     map[int64]*models.TriggerRule{},
		alerts:    map[int64]*models.AlertEvent{},
		reports:   map[int64]*models.DailyReport{},
		now:       time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// GetOrCreateUser returns the user with email, creating it on first use
func (s *Store) GetOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	u := &models.User{ID: s.id(), Email: email, CreatedAt: s.now().UTC()}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

// ListUsers returns all users ordered by id
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateHolding inserts a holding unless the user already tracks the symbol
func (s *Store) CreateHolding(ctx context.Context, h *models.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.holdings {
		if existing.UserID == h.UserID && existing.Symbol == h.Symbol {
			return fmt.Errorf("holding %s: %w", h.Symbol, storage.ErrAlreadyExists)
		}
	}
	h.ID = s.id()
	h.CreatedAt = s.now().UTC()
	cp := *h
	s.holdings[h.ID] = &cp
	return nil
}

// GetHoldingBySymbol retrieves a user's holding for a symbol
func (s *Store) GetHoldingBySymbol(ctx context.Context, userID int64, symbol string) (*models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holdings {
		if h.UserID == userID && h.Symbol == symbol {
			cp := *h
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("holding %s: %w", symbol, storage.ErrNotFound)
}

// ListHoldings returns every holding ordered by id
func (s *Store) ListHoldings(ctx context.Context) ([]*models.Holding, error) {
	return s.listHoldings(func(*models.Holding) bool { return true }), nil
}

// ListHoldingsByUser returns a user's holdings ordered by id
func (s *Store) ListHoldingsByUser(ctx context.Context, userID int64) ([]*models.Holding, error) {
	return s.listHoldings(func(h *models.Holding) bool { return h.UserID == userID }), nil
}

func (s *Store) listHoldings(keep func(*models.Holding) bool) []*models.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Holding
	for _, h := range s.holdings {
		if keep(h) {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteHolding removes a holding of userID and everything recorded for it
func (s *Store) DeleteHolding(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holdings[id]
	if !ok || h.UserID != userID {
		return fmt.Errorf("holding %d: %w", id, storage.ErrNotFound)
	}
	for k, c := range s.content {
		if c.HoldingID == id {
			delete(s.content, k)
		}
	}
	for k, snap := range s.snapshots {
		if snap.HoldingID == id {
			delete(s.snapshots, k)
		}
	}
	for k, a := range s.alerts {
		if a.HoldingID == id {
			delete(s.alerts, k)
		}
	}
	delete(s.rules, id)
	delete(s.holdings, id)
	return nil
}

// GetContentByFingerprint looks up a holding's item by fingerprint
func (s *Store) GetContentByFingerprint(ctx context.Context, holdingID int64, fingerprint string) (*models.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.content {
		if c.HoldingID == holdingID && c.Fingerprint == fingerprint {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("content %s: %w", fingerprint, storage.ErrNotFound)
}

// CreateContentItem inserts an item unless its fingerprint is taken
func (s *Store) CreateContentItem(ctx context.Context, c *models.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.content {
		if existing.HoldingID == c.HoldingID && existing.Fingerprint == c.Fingerprint {
			return fmt.Errorf("content %s: %w", c.Fingerprint, storage.ErrAlreadyExists)
		}
	}
	c.ID = s.id()
	cp := *c
	s.content[c.ID] = &cp
	return nil
}

// UpdateContentItem replaces a stored item
func (s *Store) UpdateContentItem(ctx context.Context, c *models.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[c.ID]; !ok {
		return fmt.Errorf("content %d: %w", c.ID, storage.ErrNotFound)
	}
	cp := *c
	s.content[c.ID] = &cp
	return nil
}

// ListRecentContent returns items at or after since, hottest first then newest
func (s *Store) ListRecentContent(ctx context.Context, holdingID int64, since time.Time, limit int) ([]*models.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ContentItem
	for _, c := range s.content {
		if c.HoldingID == holdingID && !c.Timestamp.Before(since) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HotScore != out[j].HotScore {
			return out[i].HotScore > out[j].HotScore
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateSnapshot appends a snapshot
func (s *Store) CreateSnapshot(ctx context.Context, snap *models.StockSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ID = s.id()
	cp := *snap
	s.snapshots[snap.ID] = &cp
	return nil
}

// GetLatestSnapshotSince returns the newest snapshot at or after since
func (s *Store) GetLatestSnapshotSince(ctx context.Context, holdingID int64, since time.Time) (*models.StockSnapshot, error) {
	snaps := s.snapshotsOf(holdingID)
	if len(snaps) == 0 || snaps[0].Timestamp.Before(since) {
		return nil, fmt.Errorf("snapshot for holding %d: %w", holdingID, storage.ErrNotFound)
	}
	return snaps[0], nil
}

// ListSnapshots returns a holding's snapshots, newest first
func (s *Store) ListSnapshots(ctx context.Context, holdingID int64, limit int) ([]*models.StockSnapshot, error) {
	snaps := s.snapshotsOf(holdingID)
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

func (s *Store) snapshotsOf(holdingID int64) []*models.StockSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StockSnapshot
	for _, snap := range s.snapshots {
		if snap.HoldingID == holdingID {
			cp := *snap
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// GetOrCreateTriggerRule returns the holding's rule, inserting defaults first if needed
func (s *Store) GetOrCreateTriggerRule(ctx context.Context, holdingID int64, defaults models.TriggerRule) (*models.TriggerRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[holdingID]
	if !ok {
		r = &defaults
		r.ID = s.id()
		r.HoldingID = holdingID
		s.rules[holdingID] = r
	}
	cp := *r
	return &cp, nil
}

// UpdateTriggerRule saves a rule keyed by its holding
func (s *Store) UpdateTriggerRule(ctx context.Context, r *models.TriggerRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[r.HoldingID]; !ok {
		return fmt.Errorf("trigger rule for holding %d: %w", r.HoldingID, storage.ErrNotFound)
	}
	cp := *r
	s.rules[r.HoldingID] = &cp
	return nil
}

// CreateAlert appends an alert
func (s *Store) CreateAlert(ctx context.Context, a *models.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

// ListAlerts returns a holding's alerts, newest first
func (s *Store) ListAlerts(ctx context.Context, holdingID int64, limit int) ([]*models.AlertEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AlertEvent
	for _, a := range s.alerts {
		if a.HoldingID == holdingID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DailyReportExists reports whether a user already has a report for date
func (s *Store) DailyReportExists(ctx context.Context, userID int64, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findReport(userID, date) != nil, nil
}

// CreateDailyReport inserts a report; an existing (user, date) is never overwritten
func (s *Store) CreateDailyReport(ctx context.Context, r *models.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findReport(r.UserID, r.Date) != nil {
		return fmt.Errorf("daily report %s for user %d: %w", r.Date, r.UserID, storage.ErrAlreadyExists)
	}
	r.ID = s.id()
	r.CreatedAt = s.now().UTC()
	cp := *r
	s.reports[r.ID] = &cp
	return nil
}

func (s *Store) findReport(userID int64, date string) *models.DailyReport {
	for _, r := range s.reports {
		if r.UserID == userID && r.Date == date {
			return r
		}
	}
	return nil
}

// ListDailyReports returns a user's reports, most recent date first
func (s *Store) ListDailyReports(ctx context.Context, userID int64, limit int) ([]*models.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DailyReport
	for _, r := range s.reports {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
