// Package holdings validates and manages the symbols a user tracks.
package holdings

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/models"
)

// MaxSymbolLen bounds a ticker symbol
const MaxSymbolLen = 16

// Store persists holdings
type Store interface {
	CreateHolding(ctx context.Context, h *models.Holding) error
	ListHoldingsByUser(ctx context.Context, userID int64) ([]*models.Holding, error)
	DeleteHolding(ctx context.Context, userID, id int64) error
}

// CreateRequest is the input for a new holding
type CreateRequest struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name,omitempty"`
	Shares    *float64 `json:"shares,omitempty"`
	CostBasis *float64 `json:"cost_basis,omitempty"`
	RiskPref  string   `json:"risk_pref,omitempty"`
}

// ValidationError rejects malformed input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NormalizeSymbol trims and uppercases a symbol and checks that it is 1 to
// MaxSymbolLen ASCII letters or digits.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if sym == "" {
		return "", &ValidationError{Field: "symbol", Reason: "required"}
	}
	if len(sym) > MaxSymbolLen {
		return "", &ValidationError{Field: "symbol", Reason: fmt.Sprintf("longer than %d characters", MaxSymbolLen)}
	}
	for _, r := range sym {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", &ValidationError{Field: "symbol", Reason: "must be letters and digits only"}
		}
	}
	return sym, nil
}

// Service manages holdings
type Service struct {
	store Store
}

// NewService creates a holdings service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates req and stores it as a holding of userID
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*models.Holding, error) {
	symbol, err := NormalizeSymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	pref, err := models.ParseRiskPreference(req.RiskPref)
	if err != nil {
		return nil, &ValidationError{Field: "risk_pref", Reason: err.Error()}
	}
	if req.Shares != nil && *req.Shares < 0 {
		return nil, &ValidationError{Field: "shares", Reason: "must not be negative"}
	}
	if req.CostBasis != nil && *req.CostBasis < 0 {
		return nil, &ValidationError{Field: "cost_basis", Reason: "must not be negative"}
	}

	h := &models.Holding{
		UserID:    userID,
		Symbol:    symbol,
		Name:      strings.TrimSpace(req.Name),
		Shares:    req.Shares,
		CostBasis: req.CostBasis,
		RiskPref:  pref,
	}
	if err := s.store.CreateHolding(ctx, h); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"symbol": h.Symbol, "user_id": userID}).Info("Holding added")
	return h, nil
}

// List returns a user's holdings
func (s *Service) List(ctx context.Context, userID int64) ([]*models.Holding, error) {
	return s.store.ListHoldingsByUser(ctx, userID)
}

// Delete removes a holding and everything recorded for it
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteHolding(ctx, userID, id); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"holding_id": id, "user_id": userID}).Info("Holding removed")
	return nil
}
