package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const polygonBaseURL = "https://api.polygon.io"

// PolygonNewsSource reads ticker news from the Polygon.io reference API
type PolygonNewsSource struct {
	apiKey  string
	client  *resty.Client
	baseURL string
}

type polygonNewsResponse struct {
	Results []polygonArticle `json:"results"`
	Status  string           `json:"status"`
}

type polygonArticle struct {
	Title        string `json:"title"`
	ArticleURL   string `json:"article_url"`
	PublishedUTC string `json:"published_utc"`
	Publisher    struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

// NewPolygonNewsSource creates a Polygon news source
func NewPolygonNewsSource(apiKey string) *PolygonNewsSource {
	return &PolygonNewsSource{
		apiKey: apiKey,
		client: resty.New().
			SetTimeout(20*time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: polygonBaseURL,
	}
}

func (p *PolygonNewsSource) GetName() string {
	return "polygon"
}

func (p *PolygonNewsSource) IsEnabled() bool {
	return p.apiKey != ""
}

func (p *PolygonNewsSource) FetchNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	if !p.IsEnabled() {
		logrus.Debug("Polygon source disabled - missing API key")
		return nil, nil
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ticker": strings.ToUpper(symbol),
			"limit":  strconv.Itoa(limit),
			"apiKey": p.apiKey,
		}).
		Get(p.baseURL + "/v2/reference/news")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("polygon API returned status %d", resp.StatusCode())
	}

	var newsResp polygonNewsResponse
	if err := json.Unmarshal(resp.Body(), &newsResp); err != nil {
		return nil, fmt.Errorf("failed to parse Polygon response: %w", err)
	}

	articles := make([]models.NewsArticle, 0, len(newsResp.Results))
	for _, r := range newsResp.Results {
		a := models.NewsArticle{
			Title:     r.Title,
			Publisher: r.Publisher.Name,
			URL:       r.ArticleURL,
		}
		if ts, err := time.Parse(time.RFC3339, r.PublishedUTC); err == nil {
			ts = ts.UTC()
			a.PublishedAt = &ts
		}
		articles = append(articles, a)
	}
	return articles, nil
}
