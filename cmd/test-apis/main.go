package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/stockguardian/guardian-bot/internal/config"
	"github.com/stockguardian/guardian-bot/internal/sources"
)

func main() {
	fmt.Println("🔍 Stock Guardian - API Connectivity Test")
	fmt.Println("=========================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	symbol := "AAPL"
	if len(os.Args) > 1 {
		symbol = strings.ToUpper(os.Args[1])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("\n💹 Testing quote provider (%s) for %s... ", cfg.MarketDataProvider, symbol)
	quote, err := sources.NewQuoteSourceFromConfig(cfg, nil).FetchQuote(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
	} else {
		fmt.Printf("✅ $%s (%+.2f%%)\n", quote.Price.StringFixed(2), quote.ChangePct1D)
	}

	fmt.Println("\n📡 Testing news and social sources...")
	fmt.Println(strings.Repeat("-", 40))

	newsSources := []sources.NewsSource{
		sources.NewPolygonNewsSource(cfg.PolygonAPIKey),
		sources.NewYahooRSSNewsSource(cfg.YahooRSSEnabled),
	}
	for _, src := range newsSources {
		testSource(src.GetName(), src.IsEnabled(), func() (int, string, error) {
			articles, err := src.FetchNews(ctx, symbol, cfg.NewsLimit)
			if err != nil || len(articles) == 0 {
				return 0, "", err
			}
			return len(articles), articles[0].Title, nil
		})
	}

	socialSources := []sources.SocialSource{
		sources.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent, cfg.RedditSubreddits),
		sources.NewHackerNewsSource(cfg.HackerNewsEnabled),
		sources.NewTwitterSource(cfg.TwitterBearerToken),
	}
	for _, src := range socialSources {
		testSource(src.GetName(), src.IsEnabled(), func() (int, string, error) {
			posts, err := src.FetchPosts(ctx, symbol, cfg.SocialLimit)
			if err != nil || len(posts) == 0 {
				return 0, "", err
			}
			return len(posts), posts[0].Title, nil
		})
	}

	fmt.Println("\n✅ API connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Configure missing API keys in .env file")
	fmt.Println("   • Run a local dry run with: go run ./cmd/test-integration")
}

func testSource(name string, enabled bool, fetch func() (int, string, error)) {
	fmt.Printf("🔸 Testing %s... ", name)

	if !enabled {
		fmt.Printf("⚠️  DISABLED (missing API key)\n")
		return
	}

	n, sample, err := fetch()
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	fmt.Printf("✅ SUCCESS (%d items found)\n", n)
	if sample != "" {
		fmt.Printf("   📝 Sample: \"%s\"\n", sample)
	}
}
