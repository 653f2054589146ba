package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RiskPreference describes how much volatility a holder tolerates
type RiskPreference string

const (
	RiskConservative RiskPreference = "conservative"
	RiskNeutral      RiskPreference = "neutral"
	RiskAggressive   RiskPreference = "aggressive"
)

// ParseRiskPreference normalizes a user supplied preference. Empty input means neutral.
func ParseRiskPreference(s string) (RiskPreference, error) {
	switch RiskPreference(strings.ToLower(strings.TrimSpace(s))) {
	case "", RiskNeutral:
		return RiskNeutral, nil
	case RiskConservative:
		return RiskConservative, nil
	case RiskAggressive:
		return RiskAggressive, nil
	}
	return "", fmt.Errorf("invalid risk preference %q", s)
}

// Content source tags
const (
	SourceNews   = "news"
	SourceSocial = "social"
)

// Alert levels
const (
	LevelInfo     = "info"
	LevelCritical = "critical"
)

// User owns holdings and receives one daily report per UTC day
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Holding is one tracked symbol for one user
type Holding struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Symbol    string         `json:"symbol"`
	Name      string         `json:"name,omitempty"`
	Shares    *float64       `json:"shares,omitempty"`
	CostBasis *float64       `json:"cost_basis,omitempty"`
	RiskPref  RiskPreference `json:"risk_pref"`
	CreatedAt time.Time      `json:"created_at"`
}

// ContentItem is one deduplicated news article or social post attached to a holding
type ContentItem struct {
	ID             int64     `json:"id"`
	HoldingID      int64     `json:"holding_id"`
	Source         string    `json:"source"` // "news" or "social"
	Title          string    `json:"title"`
	URL            string    `json:"url,omitempty"`
	Timestamp      time.Time `json:"ts"`
	Fingerprint    string    `json:"fingerprint"`
	SentimentScore float64   `json:"sentiment_score"`
	HotScore       float64   `json:"hot_score"`
}

// Bullet is one ranked content line used for summaries and the hot trigger
type Bullet struct {
	Title     string    `json:"title"`
	HotScore  float64   `json:"hot_score"`
	Timestamp time.Time `json:"ts"`
	Text      string    `json:"text"`
}

// StockSnapshot is a point-in-time measurement for a holding
type StockSnapshot struct {
	ID             int64           `json:"id"`
	HoldingID      int64           `json:"holding_id"`
	Timestamp      time.Time       `json:"ts"`
	Price          decimal.Decimal `json:"price"`
	ChangePct1D    float64         `json:"change_pct_1d"`
	Volume         *float64        `json:"volume,omitempty"`
	SentimentScore float64         `json:"sentiment_score"`
	RiskScore      float64         `json:"risk_score"`
	Summary        string          `json:"summary,omitempty"`
}

// TriggerRule holds the per-holding alert thresholds
type TriggerRule struct {
	ID          int64   `json:"id"`
	HoldingID   int64   `json:"holding_id"`
	Enabled     bool    `json:"enabled"`
	RiskGE      float64 `json:"risk_ge"`
	SentimentLE float64 `json:"sentiment_le"`
	HotGE       float64 `json:"hot_ge"`
	ChangeAbsGE float64 `json:"change_abs_ge"`
}

// TriggerRulePatch is a partial update; nil fields are left untouched
type TriggerRulePatch struct {
	Enabled     *bool    `json:"enabled,omitempty"`
	RiskGE      *float64 `json:"risk_ge,omitempty"`
	SentimentLE *float64 `json:"sentiment_le,omitempty"`
	HotGE       *float64 `json:"hot_ge,omitempty"`
	ChangeAbsGE *float64 `json:"change_abs_ge,omitempty"`
}

// Apply copies the set fields of the patch onto the rule
func (p TriggerRulePatch) Apply(r *TriggerRule) {
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.RiskGE != nil {
		r.RiskGE = *p.RiskGE
	}
	if p.SentimentLE != nil {
		r.SentimentLE = *p.SentimentLE
	}
	if p.HotGE != nil {
		r.HotGE = *p.HotGE
	}
	if p.ChangeAbsGE != nil {
		r.ChangeAbsGE = *p.ChangeAbsGE
	}
}

// AlertEvent represents a fired trigger rule
type AlertEvent struct {
	ID        int64     `json:"id"`
	HoldingID int64     `json:"holding_id"`
	Timestamp time.Time `json:"ts"`
	Level     string    `json:"level"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
}

// DailyReport is the per-user narrative for one UTC calendar day
type DailyReport struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Quote is what a market data provider returns for a symbol
type Quote struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	ChangePct1D float64         `json:"change_pct_1d"`
	Volume      *float64        `json:"volume,omitempty"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// NewsArticle is one row from a news provider
type NewsArticle struct {
	Title       string     `json:"title"`
	Publisher   string     `json:"publisher,omitempty"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// SocialPost is one row from a social provider
type SocialPost struct {
	Group        string    `json:"group"` // subreddit-like grouping
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Score        int       `json:"score"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}
