package storage

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockguardian/guardian-bot/internal/models"
)

type memoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *memoryBlobStore) Store(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = data
	return nil
}

func (m *memoryBlobStore) Retrieve(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memoryBlobStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (m *memoryBlobStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, name)
	return nil
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "reports/7/2024-05-01.json", ReportKey(7, "2024-05-01"))
}

func TestReportArchive(t *testing.T) {
	ctx := context.Background()
	store := newMemoryBlobStore()
	archive := NewReportArchive(store)

	reports := []*models.DailyReport{
		{ID: 1, UserID: 7, Date: "2024-05-02", Content: "second"},
		{ID: 2, UserID: 7, Date: "2024-05-01", Content: "first"},
		{ID: 3, UserID: 8, Date: "2024-05-01", Content: "other user"},
	}
	for _, r := range reports {
		require.NoError(t, archive.ArchiveReport(ctx, r))
	}

	t.Run("LoadReport round trips", func(t *testing.T) {
		got, err := archive.LoadReport(ctx, 7, "2024-05-01")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Content)
		assert.Equal(t, int64(2), got.ID)
	})

	t.Run("LoadReport missing", func(t *testing.T) {
		_, err := archive.LoadReport(ctx, 9, "2024-05-01")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ArchivedDates is scoped to the user and sorted", func(t *testing.T) {
		dates, err := archive.ArchivedDates(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-05-01", "2024-05-02"}, dates)
	})
}
