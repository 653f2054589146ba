package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const stooqBaseURL = "https://stooq.com"

// StooqQuoteSource reads daily quotes from the stooq.com CSV endpoint
type StooqQuoteSource struct {
	client  *resty.Client
	baseURL string
}

// NewStooqQuoteSource creates a stooq quote source
func NewStooqQuoteSource() *StooqQuoteSource {
	return &StooqQuoteSource{
		client: resty.New().
			SetTimeout(15*time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: stooqBaseURL,
	}
}

// FetchQuote requests symbol,date,time,open,high,low,close,volume for the US listing.
// The one-day change is measured from the session open.
func (s *StooqQuoteSource) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s": strings.ToLower(symbol) + ".us",
			"f": "sd2t2ohlcv",
			"e": "csv",
		}).
		SetQueryParam("h", "").
		Get(s.baseURL + "/q/l/")
	if err != nil {
		return nil, fmt.Errorf("stooq request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("stooq returned status %d", resp.StatusCode())
	}

	return parseStooqCSV(symbol, resp.String())
}

func parseStooqCSV(symbol, body string) (*models.Quote, error) {
	records, err := csv.NewReader(strings.NewReader(strings.TrimSpace(body))).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse stooq csv: %w", err)
	}
	if len(records) < 2 || len(records[1]) < 8 {
		return nil, fmt.Errorf("no stooq data for %s", symbol)
	}
	row := records[1]

	closePrice, err := decimal.NewFromString(row[6])
	if err != nil {
		return nil, fmt.Errorf("invalid close price %q for %s", row[6], symbol)
	}

	change := 0.0
	if open, err := decimal.NewFromString(row[3]); err == nil && !open.IsZero() {
		change, _ = closePrice.Sub(open).Div(open).Mul(decimal.NewFromInt(100)).Float64()
	}

	var volume *float64
	if v, err := strconv.ParseFloat(row[7], 64); err == nil {
		volume = &v
	}

	return &models.Quote{
		Symbol:      strings.ToUpper(symbol),
		Price:       closePrice,
		ChangePct1D: change,
		Volume:      volume,
		FetchedAt:   time.Now().UTC(),
	}, nil
}
