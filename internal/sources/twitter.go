package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const (
	twitterAPIURL    = "https://api.twitter.com"
	twitterStatusURL = "https://twitter.com/i/status/"
)

// TwitterSource searches recent tweets by cashtag
type TwitterSource struct {
	bearerToken string
	http        *resty.Client
	baseURL     string
}

type tweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	Metrics   struct {
		Retweets int `json:"retweet_count"`
		Likes    int `json:"like_count"`
		Replies  int `json:"reply_count"`
	} `json:"public_metrics"`
}

// post maps likes plus retweets to score and replies to comments.
// Tweets have no titles so the text is flattened onto one line.
func (tw tweet) post() models.SocialPost {
	p := models.SocialPost{
		Title:        strings.Join(strings.Fields(tw.Text), " "),
		URL:          twitterStatusURL + tw.ID,
		Score:        tw.Metrics.Likes + tw.Metrics.Retweets,
		CommentCount: tw.Metrics.Replies,
	}
	if ts, err := time.Parse(time.RFC3339, tw.CreatedAt); err == nil {
		p.CreatedAt = ts.UTC()
	}
	return p
}

// NewTwitterSource creates a new Twitter source
func NewTwitterSource(bearerToken string) *TwitterSource {
	return &TwitterSource{
		bearerToken: bearerToken,
		http:        resty.New().SetTimeout(30*time.Second).SetHeader("User-Agent", userAgent),
		baseURL:     twitterAPIURL,
	}
}

func (t *TwitterSource) GetName() string { return "twitter" }

func (t *TwitterSource) IsEnabled() bool { return t.bearerToken != "" }

// FetchPosts queries the recent search endpoint, which accepts 10 to 100 results
func (t *TwitterSource) FetchPosts(ctx context.Context, symbol string, limit int) ([]models.SocialPost, error) {
	if !t.IsEnabled() {
		logrus.Debug("Twitter disabled: no bearer token")
		return nil, nil
	}

	resp, err := t.http.R().
		SetContext(ctx).
		SetAuthToken(t.bearerToken).
		SetQueryParam("query", "$"+strings.ToUpper(symbol)+" -is:retweet lang:en").
		SetQueryParam("max_results", strconv.Itoa(min(100, max(10, limit)))).
		SetQueryParam("tweet.fields", "created_at,public_metrics").
		Get(t.baseURL + "/2/tweets/search/recent")
	if err != nil {
		return nil, fmt.Errorf("twitter search %s: %w", symbol, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		// the next cycle retries
		logrus.Warnf("Twitter rate limited for %s until %s", symbol, resp.Header().Get("x-rate-limit-reset"))
		return nil, nil
	default:
		return nil, fmt.Errorf("twitter search %s: status %d", symbol, resp.StatusCode())
	}

	var page struct {
		Data []tweet `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, fmt.Errorf("failed to decode tweets: %w", err)
	}

	if limit >= 0 && len(page.Data) > limit {
		page.Data = page.Data[:limit]
	}
	posts := make([]models.SocialPost, 0, len(page.Data))
	for _, tw := range page.Data {
		posts = append(posts, tw.post())
	}
	return posts, nil
}
