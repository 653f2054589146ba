package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const hnAlgoliaURL = "https://hn.algolia.com/api/v1"

// HackerNewsSource searches Hacker News stories through the Algolia API
type HackerNewsSource struct {
	enabled bool
	client  *resty.Client
	baseURL string
}

type hnSearchResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAtI  int64  `json:"created_at_i"`
}

// NewHackerNewsSource creates a Hacker News source
func NewHackerNewsSource(enabled bool) *HackerNewsSource {
	return &HackerNewsSource{
		enabled: enabled,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: hnAlgoliaURL,
	}
}

func (h *HackerNewsSource) GetName() string {
	return "hackernews"
}

func (h *HackerNewsSource) IsEnabled() bool {
	return h.enabled // no authentication needed
}

func (h *HackerNewsSource) FetchPosts(ctx context.Context, symbol string, limit int) ([]models.SocialPost, error) {
	if !h.IsEnabled() {
		return nil, nil
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":       strings.ToUpper(symbol),
			"tags":        "story",
			"hitsPerPage": strconv.Itoa(limit),
		}).
		Get(h.baseURL + "/search_by_date")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("hacker news API returned status %d", resp.StatusCode())
	}

	var searchResp hnSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Hacker News response: %w", err)
	}

	posts := make([]models.SocialPost, 0, len(searchResp.Hits))
	for _, hit := range searchResp.Hits {
		post := models.SocialPost{
			Title:        hit.Title,
			URL:          hit.URL,
			Score:        hit.Points,
			CommentCount: hit.NumComments,
		}
		// Link posts keep their target; text posts point at the discussion
		if post.URL == "" {
			post.URL = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		if hit.CreatedAtI > 0 {
			post.CreatedAt = time.Unix(hit.CreatedAtI, 0).UTC()
		}
		posts = append(posts, post)
	}
	return posts, nil
}
