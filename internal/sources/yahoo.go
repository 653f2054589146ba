package sources

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const yahooRSSBaseURL = "https://feeds.finance.yahoo.com"

// YahooRSSNewsSource reads the Yahoo Finance headline RSS feed for a ticker
type YahooRSSNewsSource struct {
	enabled bool
	client  *resty.Client
	baseURL string
}

// NewYahooRSSNewsSource creates a Yahoo Finance RSS source
func NewYahooRSSNewsSource(enabled bool) *YahooRSSNewsSource {
	return &YahooRSSNewsSource{
		enabled: enabled,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: yahooRSSBaseURL,
	}
}

func (y *YahooRSSNewsSource) GetName() string {
	return "yahoo_rss"
}

func (y *YahooRSSNewsSource) IsEnabled() bool {
	return y.enabled
}

func (y *YahooRSSNewsSource) FetchNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	if !y.IsEnabled() {
		return nil, nil
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s":      strings.ToUpper(symbol),
			"region": "US",
			"lang":   "en-US",
		}).
		Get(y.baseURL + "/rss/2.0/headline")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("RSS feed returned status %d", resp.StatusCode())
	}

	return parseRSSFeed(resp.Body(), limit)
}

func parseRSSFeed(body []byte, limit int) ([]models.NewsArticle, error) {
	var parser rss.Parser
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	var articles []models.NewsArticle
	for _, item := range feed.Items {
		if limit > 0 && len(articles) >= limit {
			break
		}

		a := models.NewsArticle{
			Title: plainText(item.Title),
			URL:   strings.TrimSpace(item.Link),
		}
		if item.Source != nil {
			a.Publisher = strings.TrimSpace(item.Source.Title)
		}
		if item.PubDateParsed != nil {
			ts := item.PubDateParsed.UTC()
			a.PublishedAt = &ts
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// plainText drops any markup left in a feed title and collapses whitespace
func plainText(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}
