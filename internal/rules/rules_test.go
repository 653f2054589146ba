package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stockguardian/guardian-bot/internal/config"
	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/risk"
)

var defaultThresholds = config.Thresholds{RiskGE: 8, SentimentLE: 25, HotGE: 70, ChangeAbsGE: 6}

func TestEvaluate(t *testing.T) {
	rule := DefaultRule(defaultThresholds)

	tests := []struct {
		name       string
		rule       models.TriggerRule
		metrics    Metrics
		wantFired  bool
		wantReason string
	}{
		{
			name:    "nothing crossed",
			rule:    rule,
			metrics: Metrics{Risk: 3, Sentiment: 60, Hot: 10, ChangePct1D: 1},
		},
		{
			name:       "risk and sentiment both crossed reports risk",
			rule:       rule,
			metrics:    Metrics{Risk: 9, Sentiment: 10, Hot: 90, ChangePct1D: 10},
			wantFired:  true,
			wantReason: ReasonRisk,
		},
		{
			name:       "risk boundary is inclusive",
			rule:       rule,
			metrics:    Metrics{Risk: 8, Sentiment: 60},
			wantFired:  true,
			wantReason: ReasonRisk,
		},
		{
			name:       "sentiment boundary is inclusive",
			rule:       rule,
			metrics:    Metrics{Risk: 1, Sentiment: 25},
			wantFired:  true,
			wantReason: ReasonSentiment,
		},
		{
			name:       "hot before change",
			rule:       rule,
			metrics:    Metrics{Risk: 1, Sentiment: 60, Hot: 70, ChangePct1D: -20},
			wantFired:  true,
			wantReason: ReasonHot,
		},
		{
			name:       "negative change uses absolute value",
			rule:       rule,
			metrics:    Metrics{Risk: 1, Sentiment: 60, Hot: 0, ChangePct1D: -6},
			wantFired:  true,
			wantReason: ReasonChange,
		},
		{
			name:    "disabled never fires",
			rule:    models.TriggerRule{Enabled: false},
			metrics: Metrics{Risk: 10, Sentiment: 0, Hot: 100, ChangePct1D: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fired, reason := Evaluate(tt.rule, tt.metrics)
			assert.Equal(t, tt.wantFired, fired)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

// A neutral holding up 7% with sentiment 20 scores risk 6.5 and fires on sentiment.
func TestEvaluateEndToEndScenario(t *testing.T) {
	r := risk.Score(7.0, 20, models.RiskNeutral)
	assert.InDelta(t, 6.5, r, 1e-9)

	fired, reason := Evaluate(DefaultRule(defaultThresholds), Metrics{Risk: r, Sentiment: 20, ChangePct1D: 7.0})
	assert.True(t, fired)
	assert.Equal(t, ReasonSentiment, reason)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetOrCreateTriggerRule(ctx context.Context, holdingID int64, defaults models.TriggerRule) (*models.TriggerRule, error) {
	args := m.Called(ctx, holdingID, defaults)
	if r, ok := args.Get(0).(*models.TriggerRule); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) UpdateTriggerRule(ctx context.Context, r *models.TriggerRule) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func TestServiceGetRule(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	svc := NewService(repo, defaultThresholds)

	want := &models.TriggerRule{ID: 1, HoldingID: 5, Enabled: true, RiskGE: 8, SentimentLE: 25, HotGE: 70, ChangeAbsGE: 6}
	repo.On("GetOrCreateTriggerRule", ctx, int64(5), DefaultRule(defaultThresholds)).Return(want, nil)

	got, err := svc.GetRule(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertExpectations(t)
}

func TestServiceUpdateRule(t *testing.T) {
	ctx := context.Background()
	disabled := false
	hot := 40.0

	t.Run("applies only the set fields", func(t *testing.T) {
		repo := new(mockRepository)
		svc := NewService(repo, defaultThresholds)

		existing := &models.TriggerRule{ID: 1, HoldingID: 5, Enabled: true, RiskGE: 8, SentimentLE: 25, HotGE: 70, ChangeAbsGE: 6}
		repo.On("GetOrCreateTriggerRule", ctx, int64(5), mock.Anything).Return(existing, nil)
		repo.On("UpdateTriggerRule", ctx, mock.MatchedBy(func(r *models.TriggerRule) bool {
			return !r.Enabled && r.HotGE == 40 && r.RiskGE == 8 && r.SentimentLE == 25 && r.ChangeAbsGE == 6
		})).Return(nil)

		got, err := svc.UpdateRule(ctx, 5, models.TriggerRulePatch{Enabled: &disabled, HotGE: &hot})
		require.NoError(t, err)
		assert.False(t, got.Enabled)
		assert.Equal(t, 40.0, got.HotGE)
		repo.AssertExpectations(t)
	})

	t.Run("rejects out of range threshold", func(t *testing.T) {
		repo := new(mockRepository)
		svc := NewService(repo, defaultThresholds)
		bad := 150.0

		_, err := svc.UpdateRule(ctx, 5, models.TriggerRulePatch{SentimentLE: &bad})
		var invalid *ErrInvalidThreshold
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "sentiment_le", invalid.Field)
		repo.AssertNotCalled(t, "GetOrCreateTriggerRule", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository failure is returned", func(t *testing.T) {
		repo := new(mockRepository)
		svc := NewService(repo, defaultThresholds)
		repo.On("GetOrCreateTriggerRule", ctx, int64(5), mock.Anything).Return(nil, errors.New("db down"))

		_, err := svc.UpdateRule(ctx, 5, models.TriggerRulePatch{HotGE: &hot})
		assert.ErrorContains(t, err, "db down")
	})
}
