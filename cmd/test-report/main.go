package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockguardian/guardian-bot/internal/digest"
	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/storage"
	"github.com/stockguardian/guardian-bot/internal/storage/memstore"
)

const outputDir = "test_output"

// fileStore implements storage.BlobStore on the local filesystem
type fileStore struct {
	root string
}

var _ storage.BlobStore = (*fileStore)(nil)

func (f *fileStore) Store(ctx context.Context, name string, data []byte) error {
	path := filepath.Join(f.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (f *fileStore) Retrieve(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(name)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", name, storage.ErrNotFound)
	}
	return data, err
}

func (f *fileStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	sort.Strings(names)
	return names, err
}

func (f *fileStore) Delete(ctx context.Context, name string) error {
	return os.Remove(filepath.Join(f.root, filepath.FromSlash(name)))
}

// terminalNotifier prints the report notification
type terminalNotifier struct{}

func (terminalNotifier) Name() string { return "terminal" }

func (terminalNotifier) Send(ctx context.Context, text string) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 DAILY REPORT NOTIFICATION")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println(text)
	fmt.Println(strings.Repeat("=", 70))
	return nil
}

type sample struct {
	symbol    string
	price     string
	change    float64
	risk      float64
	sentiment float64
	age       time.Duration
}

func main() {
	fmt.Println("📊 Stock Guardian - Daily Report Test")
	fmt.Println("=====================================")

	ctx := context.Background()
	store := memstore.New()

	user, err := store.GetOrCreateUser(ctx, "default@user.com")
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	now := time.Now().UTC()
	samples := []sample{
		{"AAPL", "189.84", 1.2, 2.1, 63, 2 * time.Hour},
		{"TSLA", "171.05", -6.8, 7.9, 22, 30 * time.Minute},
		{"NVDA", "903.56", 3.4, 3.0, 71, 5 * time.Hour},
		{"IBM", "168.20", 0.1, 0.6, 52, 36 * time.Hour}, // outside the 24h window
	}
	for _, s := range samples {
		h := &models.Holding{UserID: user.ID, Symbol: s.symbol, RiskPref: models.RiskNeutral}
		if err := store.CreateHolding(ctx, h); err != nil {
			log.Fatalf("Failed to add %s: %v", s.symbol, err)
		}
		err := store.CreateSnapshot(ctx, &models.StockSnapshot{
			HoldingID:      h.ID,
			Timestamp:      now.Add(-s.age),
			Price:          decimal.RequireFromString(s.price),
			ChangePct1D:    s.change,
			SentimentScore: s.sentiment,
			RiskScore:      s.risk,
		})
		if err != nil {
			log.Fatalf("Failed to add snapshot for %s: %v", s.symbol, err)
		}
	}

	archive := storage.NewReportArchive(&fileStore{root: outputDir})
	service := digest.NewService(store, nil, terminalNotifier{}, 1).WithArchive(archive)

	created, err := service.RunDailyDigest(ctx)
	if err != nil {
		log.Fatalf("Daily digest failed: %v", err)
	}
	fmt.Printf("\n📝 Reports created: %d\n", created)

	dates, err := archive.ArchivedDates(ctx, user.ID)
	if err != nil {
		log.Fatalf("Failed to list archived reports: %v", err)
	}
	for _, d := range dates {
		fmt.Printf("💾 Archived: %s\n", filepath.Join(outputDir, filepath.FromSlash(storage.ReportKey(user.ID, d))))
	}

	fmt.Println("\n✅ Report test completed!")
}
