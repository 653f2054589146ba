package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/holdings"
	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/rules"
	"github.com/stockguardian/guardian-bot/internal/storage"
)

const (
	historyLimit = 200
	reportsLimit = 30
)

// Store is the read side of the management surface
type Store interface {
	GetOrCreateUser(ctx context.Context, email string) (*models.User, error)
	GetHoldingBySymbol(ctx context.Context, userID int64, symbol string) (*models.Holding, error)
	ListSnapshots(ctx context.Context, holdingID int64, limit int) ([]*models.StockSnapshot, error)
	ListAlerts(ctx context.Context, holdingID int64, limit int) ([]*models.AlertEvent, error)
	ListDailyReports(ctx context.Context, userID int64, limit int) ([]*models.DailyReport, error)
}

// HoldingManager creates, lists and deletes holdings
type HoldingManager interface {
	Create(ctx context.Context, userID int64, req holdings.CreateRequest) (*models.Holding, error)
	List(ctx context.Context, userID int64) ([]*models.Holding, error)
	Delete(ctx context.Context, userID, id int64) error
}

// RuleManager reads and patches trigger rules
type RuleManager interface {
	GetRule(ctx context.Context, holdingID int64) (*models.TriggerRule, error)
	UpdateRule(ctx context.Context, holdingID int64, patch models.TriggerRulePatch) (*models.TriggerRule, error)
}

// BulletSource ranks recent content of a holding
type BulletSource interface {
	TopBullets(ctx context.Context, holdingID int64, window time.Duration, limit int) ([]models.Bullet, error)
}

// Runners are the background jobs that can be triggered by hand
type Runners struct {
	Agent interface {
		RunAgentCycle(ctx context.Context) (int, error)
		GetMetrics() string
	}
	Digest interface {
		RunDailyDigest(ctx context.Context) (int, error)
	}
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store        Store
	holdings     HoldingManager
	rules        RuleManager
	bullets      BulletSource
	runners      Runners
	defaultEmail string
	bulletWindow time.Duration
	bulletLimit  int
	spawn        func(func())
}

// Options are the knobs of the management surface
type Options struct {
	DefaultUserEmail string
	BulletWindow     time.Duration
	BulletLimit      int
}

// NewHandler creates a new Handler
func NewHandler(store Store, hm HoldingManager, rm RuleManager, bs BulletSource, runners Runners, opts Options) *Handler {
	return &Handler{
		store:        store,
		holdings:     hm,
		rules:        rm,
		bullets:      bs,
		runners:      runners,
		defaultEmail: opts.DefaultUserEmail,
		bulletWindow: opts.BulletWindow,
		bulletLimit:  opts.BulletLimit,
		spawn:        func(f func()) { go f() },
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Metrics handles GET /metrics
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.runners.Agent.GetMetrics()))
}

// RunAgent handles POST /api/v1/agent/run. The cycle runs in the background.
func (h *Handler) RunAgent(w http.ResponseWriter, r *http.Request) {
	h.spawn(func() {
		alerts, err := h.runners.Agent.RunAgentCycle(context.Background())
		if err != nil {
			logrus.Errorf("Manual agent cycle failed: %v", err)
			return
		}
		logrus.Infof("Manual agent cycle fired %d alerts", alerts)
	})
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "agent cycle started"})
}

// RunDaily handles POST /api/v1/daily/run
func (h *Handler) RunDaily(w http.ResponseWriter, r *http.Request) {
	h.spawn(func() {
		created, err := h.runners.Digest.RunDailyDigest(context.Background())
		if err != nil {
			logrus.Errorf("Manual daily digest failed: %v", err)
			return
		}
		logrus.Infof("Manual daily digest created %d reports", created)
	})
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "daily digest started"})
}

// ListHoldings handles GET /api/v1/holdings
func (h *Handler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.defaultUser(w, r)
	if !ok {
		return
	}
	list, err := h.holdings.List(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	if list == nil {
		list = []*models.Holding{}
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateHolding handles POST /api/v1/holdings
func (h *Handler) CreateHolding(w http.ResponseWriter, r *http.Request) {
	var req holdings.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, ok := h.defaultUser(w, r)
	if !ok {
		return
	}

	holding, err := h.holdings.Create(r.Context(), user.ID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, holding)
}

// DeleteHolding handles DELETE /api/v1/holdings/{id}
func (h *Handler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid holding id", http.StatusBadRequest)
		return
	}

	user, ok := h.defaultUser(w, r)
	if !ok {
		return
	}

	if err := h.holdings.Delete(r.Context(), user.ID, id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSnapshots handles GET /api/v1/stocks/{symbol}/snapshots
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	holding, ok := h.holdingFromPath(w, r)
	if !ok {
		return
	}
	snaps, err := h.store.ListSnapshots(r.Context(), holding.ID, historyLimit)
	if err != nil {
		respondError(w, err)
		return
	}
	if snaps == nil {
		snaps = []*models.StockSnapshot{}
	}
	respondJSON(w, http.StatusOK, snaps)
}

// ListAlerts handles GET /api/v1/stocks/{symbol}/alerts
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	holding, ok := h.holdingFromPath(w, r)
	if !ok {
		return
	}
	alerts, err := h.store.ListAlerts(r.Context(), holding.ID, historyLimit)
	if err != nil {
		respondError(w, err)
		return
	}
	if alerts == nil {
		alerts = []*models.AlertEvent{}
	}
	respondJSON(w, http.StatusOK, alerts)
}

// ListBullets handles GET /api/v1/stocks/{symbol}/bullets
func (h *Handler) ListBullets(w http.ResponseWriter, r *http.Request) {
	holding, ok := h.holdingFromPath(w, r)
	if !ok {
		return
	}
	bullets, err := h.bullets.TopBullets(r.Context(), holding.ID, h.bulletWindow, h.bulletLimit)
	if err != nil {
		respondError(w, err)
		return
	}
	if bullets == nil {
		bullets = []models.Bullet{}
	}
	respondJSON(w, http.StatusOK, bullets)
}

// GetRule handles GET /api/v1/rules/{symbol}
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	holding, ok := h.holdingFromPath(w, r)
	if !ok {
		return
	}
	rule, err := h.rules.GetRule(r.Context(), holding.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

// UpdateRule handles PATCH /api/v1/rules/{symbol}
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var patch models.TriggerRulePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	holding, ok := h.holdingFromPath(w, r)
	if !ok {
		return
	}
	rule, err := h.rules.UpdateRule(r.Context(), holding.ID, patch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

// ListReports handles GET /api/v1/daily/reports
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	user, ok := h.defaultUser(w, r)
	if !ok {
		return
	}
	reports, err := h.store.ListDailyReports(r.Context(), user.ID, reportsLimit)
	if err != nil {
		respondError(w, err)
		return
	}
	if reports == nil {
		reports = []*models.DailyReport{}
	}
	respondJSON(w, http.StatusOK, reports)
}

func (h *Handler) defaultUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := h.store.GetOrCreateUser(r.Context(), h.defaultEmail)
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	return user, true
}

func (h *Handler) holdingFromPath(w http.ResponseWriter, r *http.Request) (*models.Holding, bool) {
	symbol, err := holdings.NormalizeSymbol(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	user, ok := h.defaultUser(w, r)
	if !ok {
		return nil, false
	}
	holding, err := h.store.GetHoldingBySymbol(r.Context(), user.ID, symbol)
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	return holding, true
}

// respondError maps domain errors onto status codes
func respondError(w http.ResponseWriter, err error) {
	var verr *holdings.ValidationError
	var terr *rules.ErrInvalidThreshold

	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &verr), errors.As(err, &terr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logrus.WithError(err).Error("Request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
