package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockguardian/guardian-bot/internal/config"
	"github.com/stockguardian/guardian-bot/internal/holdings"
	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/rules"
	"github.com/stockguardian/guardian-bot/internal/storage"
)

// memoryStore backs the handlers, the holdings service and the rule service
type memoryStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	holdings  map[int64]*models.Holding
	rules     map[int64]*models.TriggerRule
	snapshots map[int64][]*models.StockSnapshot
	alerts    map[int64][]*models.AlertEvent
	reports   map[int64][]*models.DailyReport
	nextID    int64
	userErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     map[string]*models.User{},
		holdings:  map[int64]*models.Holding{},
		rules:     map[int64]*models.TriggerRule{},
		snapshots: map[int64][]*models.StockSnapshot{},
		alerts:    map[int64][]*models.AlertEvent{},
		reports:   map[int64][]*models.DailyReport{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) GetOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userErr != nil {
		return nil, m.userErr
	}
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	u := &models.User{ID: m.id(), Email: email}
	m.users[email] = u
	return u, nil
}

func (m *memoryStore) GetHoldingBySymbol(ctx context.Context, userID int64, symbol string) (*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.holdings {
		if h.UserID == userID && h.Symbol == symbol {
			return h, nil
		}
	}
	return nil, fmt.Errorf("holding %s: %w", symbol, storage.ErrNotFound)
}

func (m *memoryStore) CreateHolding(ctx context.Context, h *models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.holdings {
		if existing.UserID == h.UserID && existing.Symbol == h.Symbol {
			return fmt.Errorf("holding %s: %w", h.Symbol, storage.ErrAlreadyExists)
		}
	}
	h.ID = m.id()
	m.holdings[h.ID] = h
	return nil
}

func (m *memoryStore) ListHoldingsByUser(ctx context.Context, userID int64) ([]*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Holding
	for _, h := range m.holdings {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteHolding(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holdings[id]
	if !ok || h.UserID != userID {
		return fmt.Errorf("holding %d: %w", id, storage.ErrNotFound)
	}
	delete(m.holdings, id)
	delete(m.rules, id)
	delete(m.snapshots, id)
	delete(m.alerts, id)
	return nil
}

func (m *memoryStore) ListSnapshots(ctx context.Context, holdingID int64, limit int) ([]*models.StockSnapshot, error) {
	return m.snapshots[holdingID], nil
}

func (m *memoryStore) ListAlerts(ctx context.Context, holdingID int64, limit int) ([]*models.AlertEvent, error) {
	return m.alerts[holdingID], nil
}

func (m *memoryStore) ListDailyReports(ctx context.Context, userID int64, limit int) ([]*models.DailyReport, error) {
	return m.reports[userID], nil
}

func (m *memoryStore) GetOrCreateTriggerRule(ctx context.Context, holdingID int64, defaults models.TriggerRule) (*models.TriggerRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rules[holdingID]; ok {
		cp := *r
		return &cp, nil
	}
	r := defaults
	r.ID = m.id()
	r.HoldingID = holdingID
	m.rules[holdingID] = &r
	cp := r
	return &cp, nil
}

func (m *memoryStore) UpdateTriggerRule(ctx context.Context, r *models.TriggerRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rules[r.HoldingID] = &cp
	return nil
}

type stubBullets struct {
	window time.Duration
	limit  int
}

func (s *stubBullets) TopBullets(ctx context.Context, holdingID int64, window time.Duration, limit int) ([]models.Bullet, error) {
	s.window, s.limit = window, limit
	return []models.Bullet{{Title: "Earnings beat", HotScore: 12, Text: "Earnings beat (hot:12)"}}, nil
}

type stubAgent struct {
	runs int
}

func (a *stubAgent) RunAgentCycle(ctx context.Context) (int, error) {
	a.runs++
	return 0, nil
}

func (a *stubAgent) GetMetrics() string { return `{"runs":1}` }

type stubDigest struct {
	runs int
	err  error
}

func (d *stubDigest) RunDailyDigest(ctx context.Context) (int, error) {
	d.runs++
	return 0, d.err
}

type testServer struct {
	store   *memoryStore
	bullets *stubBullets
	agent   *stubAgent
	digest  *stubDigest
	router  http.Handler
}

func newTestServer() *testServer {
	store := newMemoryStore()
	ts := &testServer{
		store:   store,
		bullets: &stubBullets{},
		agent:   &stubAgent{},
		digest:  &stubDigest{},
	}
	thresholds := config.Thresholds{RiskGE: 7, SentimentLE: 30, HotGE: 80, ChangeAbsGE: 5}
	h := NewHandler(store,
		holdings.NewService(store),
		rules.NewService(store, thresholds),
		ts.bullets,
		Runners{Agent: ts.agent, Digest: ts.digest},
		Options{DefaultUserEmail: "default@user.com", BulletWindow: 48 * time.Hour, BulletLimit: 30},
	)
	h.spawn = func(f func()) { f() }
	ts.router = SetupRoutes(h)
	return ts
}

func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer()
	rec := ts.do("GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestMetrics(t *testing.T) {
	ts := newTestServer()
	rec := ts.do("GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":1}`, rec.Body.String())
}

func TestHoldingsLifecycle(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("POST", "/api/v1/holdings", map[string]string{"symbol": " aapl ", "risk_pref": "conservative"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "AAPL", created.Symbol)
	assert.Equal(t, models.RiskConservative, created.RiskPref)

	rec = ts.do("POST", "/api/v1/holdings", map[string]string{"symbol": "AAPL"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do("GET", "/api/v1/holdings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = ts.do("DELETE", fmt.Sprintf("/api/v1/holdings/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do("DELETE", fmt.Sprintf("/api/v1/holdings/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateHolding_BadInput(t *testing.T) {
	ts := newTestServer()

	tests := []struct {
		name string
		body interface{}
	}{
		{"malformed json", "{"},
		{"empty symbol", map[string]string{"symbol": ""}},
		{"punctuation", map[string]string{"symbol": "BRK.B"}},
		{"bad risk pref", map[string]string{"symbol": "AAPL", "risk_pref": "reckless"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do("POST", "/api/v1/holdings", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListHoldings_EmptyIsArray(t *testing.T) {
	ts := newTestServer()
	rec := ts.do("GET", "/api/v1/holdings", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStockHistory(t *testing.T) {
	ts := newTestServer()
	rec := ts.do("POST", "/api/v1/holdings", map[string]string{"symbol": "MSFT"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var h models.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))

	ts.store.snapshots[h.ID] = []*models.StockSnapshot{{HoldingID: h.ID, Price: decimal.NewFromInt(410), RiskScore: 2}}
	ts.store.alerts[h.ID] = []*models.AlertEvent{{HoldingID: h.ID, Level: models.LevelCritical, Title: "MSFT alert (risk threshold)"}}

	rec = ts.do("GET", "/api/v1/stocks/msft/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []models.StockSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Price.Equal(decimal.NewFromInt(410)))

	rec = ts.do("GET", "/api/v1/stocks/MSFT/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []models.AlertEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	assert.Equal(t, "MSFT alert (risk threshold)", alerts[0].Title)

	rec = ts.do("GET", "/api/v1/stocks/MSFT/bullets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bullets []models.Bullet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bullets))
	assert.Equal(t, "Earnings beat (hot:12)", bullets[0].Text)
	assert.Equal(t, 48*time.Hour, ts.bullets.window)
	assert.Equal(t, 30, ts.bullets.limit)

	rec = ts.do("GET", "/api/v1/stocks/NOPE/snapshots", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRules(t *testing.T) {
	ts := newTestServer()
	rec := ts.do("POST", "/api/v1/holdings", map[string]string{"symbol": "TSLA"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do("GET", "/api/v1/rules/TSLA", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rule models.TriggerRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rule))
	assert.True(t, rule.Enabled)
	assert.Equal(t, 7.0, rule.RiskGE)
	assert.Equal(t, 30.0, rule.SentimentLE)

	rec = ts.do("PATCH", "/api/v1/rules/TSLA", `{"enabled": false, "hot_ge": 120}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rule))
	assert.False(t, rule.Enabled)
	assert.Equal(t, 120.0, rule.HotGE)
	assert.Equal(t, 7.0, rule.RiskGE)

	rec = ts.do("PATCH", "/api/v1/rules/TSLA", `{"risk_ge": 11}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("PATCH", "/api/v1/rules/TSLA", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("GET", "/api/v1/rules/GME", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggers(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("POST", "/api/v1/agent/run", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, ts.agent.runs)

	ts.digest.err = errors.New("db down")
	rec = ts.do("POST", "/api/v1/daily/run", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, ts.digest.runs)
}

func TestListReports(t *testing.T) {
	ts := newTestServer()
	user, err := ts.store.GetOrCreateUser(context.Background(), "default@user.com")
	require.NoError(t, err)
	ts.store.reports[user.ID] = []*models.DailyReport{{UserID: user.ID, Date: "2024-05-01", Content: "brief"}}

	rec := ts.do("GET", "/api/v1/daily/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []models.DailyReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	assert.Equal(t, "2024-05-01", reports[0].Date)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	ts := newTestServer()
	ts.store.userErr = errors.New("connection refused: secret dsn")

	rec := ts.do("GET", "/api/v1/holdings", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}
