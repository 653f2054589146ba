package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const (
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL  = "https://oauth.reddit.com"
	redditWebURL  = "https://www.reddit.com"
)

// RedditSource searches a set of subreddits through the Reddit OAuth API
type RedditSource struct {
	clientID     string
	clientSecret string
	userAgent    string
	subreddits   string // joined with "+"
	http         *resty.Client
	authURL      string
	apiURL       string

	mu    sync.Mutex
	grant oauthGrant
}

// oauthGrant is a bearer token and the time it stops being usable
type oauthGrant struct {
	value string
	until time.Time
}

func (g oauthGrant) valid(now time.Time) bool {
	return g.value != "" && now.Before(g.until)
}

type redditListing struct {
	Data struct {
		Children []redditThing `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	Data struct {
		Title       string  `json:"title"`
		Subreddit   string  `json:"subreddit"`
		Permalink   string  `json:"permalink"`
		CreatedUTC  float64 `json:"created_utc"`
		Score       int     `json:"score"`
		NumComments int     `json:"num_comments"`
	} `json:"data"`
}

func (t redditThing) post() models.SocialPost {
	p := models.SocialPost{
		Group:        t.Data.Subreddit,
		Title:        t.Data.Title,
		URL:          redditWebURL + t.Data.Permalink,
		Score:        t.Data.Score,
		CommentCount: t.Data.NumComments,
	}
	if t.Data.CreatedUTC > 0 {
		p.CreatedAt = time.Unix(int64(t.Data.CreatedUTC), 0).UTC()
	}
	return p
}

// NewRedditSource creates a Reddit source. subreddits is a "+" joined list.
func NewRedditSource(clientID, clientSecret, userAgent, subreddits string) *RedditSource {
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		subreddits:   subreddits,
		http:         resty.New().SetTimeout(30*time.Second).SetHeader("User-Agent", userAgent),
		authURL:      redditAuthURL,
		apiURL:       redditAPIURL,
	}
}

func (r *RedditSource) GetName() string { return "reddit" }

// IsEnabled reports whether both OAuth credentials are configured
func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

// FetchPosts runs a newest-first search for the quoted ticker
func (r *RedditSource) FetchPosts(ctx context.Context, symbol string, limit int) ([]models.SocialPost, error) {
	if !r.IsEnabled() {
		logrus.Debug("Reddit disabled: no client credentials")
		return nil, nil
	}

	bearer, err := r.bearer(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit oauth: %w", err)
	}

	resp, err := r.http.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetQueryParam("q", strconv.Quote(strings.ToUpper(symbol))).
		SetQueryParam("restrict_sr", "1").
		SetQueryParam("sort", "new").
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get(r.apiURL + "/r/" + r.subreddits + "/search.json")
	if err != nil {
		return nil, fmt.Errorf("reddit search %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("reddit search %s: status %d", symbol, resp.StatusCode())
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("failed to decode reddit listing: %w", err)
	}

	posts := make([]models.SocialPost, len(listing.Data.Children))
	for i, thing := range listing.Data.Children {
		posts[i] = thing.post()
	}
	return posts, nil
}

// bearer returns the cached client-credentials grant, renewing it a minute early
func (r *RedditSource) bearer(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.grant.valid(now) {
		return r.grant.value, nil
	}

	resp, err := r.http.R().
		SetContext(ctx).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(r.authURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("token request: status %d", resp.StatusCode())
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("token response carried no access_token")
	}

	r.grant = oauthGrant{
		value: body.AccessToken,
		until: now.Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute),
	}
	return r.grant.value, nil
}
