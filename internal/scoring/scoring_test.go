package scoring

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestDecay(t *testing.T) {
	tests := []struct {
		name     string
		ts       time.Time
		halfLife time.Duration
		expected float64
	}{
		{name: "Now decays to one", ts: now, halfLife: 18 * time.Hour, expected: 1.0},
		{name: "One half-life ago", ts: now.Add(-18 * time.Hour), halfLife: 18 * time.Hour, expected: 0.5},
		{name: "Two half-lives ago", ts: now.Add(-20 * time.Hour), halfLife: 10 * time.Hour, expected: 0.25},
		{name: "Future timestamp clamps to one", ts: now.Add(3 * time.Hour), halfLife: 10 * time.Hour, expected: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Decay(tt.ts, now, tt.halfLife), 1e-9)
		})
	}
}

func TestDecay_MonotonicInAge(t *testing.T) {
	for _, h := range []time.Duration{time.Hour, 10 * time.Hour, 18 * time.Hour, 72 * time.Hour} {
		prev := Decay(now, now, h)
		for age := 30 * time.Minute; age <= 10*24*time.Hour; age += 30 * time.Minute {
			cur := Decay(now.Add(-age), now, h)
			assert.LessOrEqual(t, cur, prev, "half-life %v age %v", h, age)
			assert.GreaterOrEqual(t, cur, 0.0)
			prev = cur
		}
	}
}

func TestHotScoreNews(t *testing.T) {
	assert.InDelta(t, 100.0, HotScoreNews(1.0, now, now), 1e-9)
	assert.InDelta(t, 35.0, HotScoreNews(0.7, now.Add(-18*time.Hour), now), 1e-9)

	recent := HotScoreNews(0.9, now.Add(-1*time.Hour), now)
	older := HotScoreNews(0.9, now.Add(-5*time.Hour), now)
	assert.GreaterOrEqual(t, recent, older)
}

func TestHotScoreSocial(t *testing.T) {
	expected := 25.0 * math.Log(1+10+2*5)
	assert.InDelta(t, expected, HotScoreSocial(10, 5, now, now), 1e-9)
	assert.InDelta(t, expected/2, HotScoreSocial(10, 5, now.Add(-10*time.Hour), now), 1e-9)

	t.Run("Negative engagement is clamped", func(t *testing.T) {
		assert.Equal(t, 0.0, HotScoreSocial(-50, -3, now, now))
		assert.False(t, math.IsNaN(HotScoreSocial(-1, 0, now, now)))
	})
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("news", "Apple beats estimates", "https://example.com/a")
	b := Fingerprint("news", "Apple beats estimates", "https://example.com/a")
	c := Fingerprint("social", "Apple beats estimates", "https://example.com/a")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)

	t.Run("Long titles collapse on the prefix", func(t *testing.T) {
		prefix := strings.Repeat("x", FingerprintTitleLen)
		assert.Equal(t,
			Fingerprint("news", prefix, ""),
			Fingerprint("news", prefix+" and a trailing tail that differs", ""),
		)
	})

	t.Run("Surrounding whitespace is ignored", func(t *testing.T) {
		assert.Equal(t, Fingerprint("news", "Title", "u"), Fingerprint(" news ", " Title ", "u "))
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}

func TestPublisherWeights(t *testing.T) {
	w := DefaultPublisherWeights()

	tests := []struct {
		name      string
		publisher string
		expected  float64
	}{
		{name: "Wire service", publisher: "Reuters", expected: 1.0},
		{name: "Second tier", publisher: "CNBC", expected: 0.9},
		{name: "Unknown publisher", publisher: "Some Blog", expected: 0.75},
		{name: "Missing publisher", publisher: "", expected: 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.Weight(tt.publisher))
		})
	}

	t.Run("Zero value falls back to defaults", func(t *testing.T) {
		var empty PublisherWeights
		assert.Equal(t, MissingPublisherWeight, empty.Weight(""))
		assert.Equal(t, UnknownPublisherWeight, empty.Weight("Reuters"))
	})
}

func TestEnsureUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2026, 3, 10, 7, 0, 0, 0, loc)
	assert.Equal(t, now, EnsureUTC(ts))
	assert.Equal(t, time.UTC, EnsureUTC(ts).Location())
}
