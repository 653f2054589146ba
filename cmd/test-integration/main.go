package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/config"
	"github.com/stockguardian/guardian-bot/internal/content"
	"github.com/stockguardian/guardian-bot/internal/digest"
	"github.com/stockguardian/guardian-bot/internal/holdings"
	"github.com/stockguardian/guardian-bot/internal/llm"
	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/monitoring"
	"github.com/stockguardian/guardian-bot/internal/rules"
	"github.com/stockguardian/guardian-bot/internal/scoring"
	"github.com/stockguardian/guardian-bot/internal/sentiment"
	"github.com/stockguardian/guardian-bot/internal/sources"
	"github.com/stockguardian/guardian-bot/internal/storage/memstore"
)

// consoleNotifier prints notifications instead of sending them
type consoleNotifier struct{}

func (consoleNotifier) Name() string { return "console" }

func (consoleNotifier) Send(ctx context.Context, text string) error {
	fmt.Printf("\n📣 %s\n", text)
	return nil
}

func main() {
	fmt.Println("🧪 Stock Guardian - Local Integration Test")
	fmt.Println("==========================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	logrus.SetLevel(logrus.WarnLevel)

	symbols := []string{"AAPL", "MSFT", "TSLA"}
	if len(os.Args) > 1 {
		symbols = os.Args[1:]
	}

	// Live news and social sources, mock quotes, everything stored in memory
	cfg := &config.Config{
		MarketDataProvider: "mock",
		HackerNewsEnabled:  true,
		YahooRSSEnabled:    true,
		PolygonAPIKey:      os.Getenv("POLYGON_API_KEY"),
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUserAgent:    "StockGuardian/1.0",
		RedditSubreddits:   "wallstreetbets+stocks+investing",
		TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
		Workers:            2,
		NewsLimit:          10,
		SocialLimit:        10,
		BulletWindow:       48 * time.Hour,
		BulletLimit:        30,
		Thresholds:         config.Thresholds{RiskGE: 6, SentimentLE: 35, HotGE: 70, ChangeAbsGE: 4},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := memstore.New()
	user, err := store.GetOrCreateUser(ctx, "default@user.com")
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	holdingService := holdings.NewService(store)
	for _, sym := range symbols {
		if _, err := holdingService.Create(ctx, user.ID, holdings.CreateRequest{Symbol: sym}); err != nil {
			log.Fatalf("Failed to add %s: %v", sym, err)
		}
	}

	analyzer := sentiment.NewVaderAnalyzer()
	contentService := content.NewService(store, analyzer, scoring.DefaultPublisherWeights())
	summarizer := llm.New(os.Getenv("LLM_BASE_URL"), os.Getenv("LLM_API_KEY"), "gpt-4o-mini")

	agent := monitoring.NewService(cfg, monitoring.Dependencies{
		Store:      store,
		Quotes:     sources.NewQuoteSourceFromConfig(cfg, nil),
		News:       sources.NewNewsSourcesFromConfig(cfg),
		Social:     sources.NewSocialSourcesFromConfig(cfg),
		Content:    contentService,
		Analyzer:   analyzer,
		Rules:      rules.NewService(store, cfg.Thresholds),
		Summarizer: summarizer,
		Notifier:   consoleNotifier{},
	})

	fmt.Printf("🔍 Running one agent cycle over %s...\n", strings.Join(symbols, ", "))
	fmt.Println("⏱️  This will call real news APIs and may take 30-60 seconds...")

	fired, err := agent.RunAgentCycle(ctx)
	if err != nil {
		log.Fatalf("Agent cycle failed: %v", err)
	}

	all, _ := store.ListHoldings(ctx)
	for _, h := range all {
		printHolding(ctx, store, contentService, h)
	}
	fmt.Printf("\n🚨 Alerts fired: %d\n", fired)

	fmt.Println("\n📊 Running daily digest...")
	created, err := digest.NewService(store, summarizer, consoleNotifier{}, 1).RunDailyDigest(ctx)
	if err != nil {
		log.Fatalf("Daily digest failed: %v", err)
	}
	fmt.Printf("📝 Reports created: %d\n", created)

	fmt.Println("\n✅ Local integration test completed!")
}

func printHolding(ctx context.Context, store *memstore.Store, cs *content.Service, h *models.Holding) {
	fmt.Printf("\n🔸 %s\n", h.Symbol)

	snaps, _ := store.ListSnapshots(ctx, h.ID, 1)
	if len(snaps) == 0 {
		fmt.Println("   ⚠️  No snapshot (quote failed)")
		return
	}
	s := snaps[0]
	fmt.Printf("   💹 $%s (%+.2f%%)  risk %.1f/10  sentiment %.0f/100\n",
		s.Price.StringFixed(2), s.ChangePct1D, s.RiskScore, s.SentimentScore)

	bullets, _ := cs.TopBullets(ctx, h.ID, 48*time.Hour, 3)
	for _, b := range bullets {
		fmt.Printf("   📝 %s\n", b.Text)
	}
	if s.Summary != "" {
		fmt.Printf("   🤖 %s\n", s.Summary)
	}
}
