// Package scoring computes recency-decayed hot scores and content fingerprints.
package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// FingerprintTitleLen is the title prefix that participates in the fingerprint
	FingerprintTitleLen = 220

	NewsHalfLife   = 18 * time.Hour
	SocialHalfLife = 10 * time.Hour
)

// Fingerprint returns the deduplication key for a content item.
// Parts are trimmed and joined with "||" before hashing.
func Fingerprint(source, title, url string) string {
	parts := []string{
		strings.TrimSpace(source),
		strings.TrimSpace(Truncate(title, FingerprintTitleLen)),
		strings.TrimSpace(url),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "||")))
	return hex.EncodeToString(sum[:])
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Decay returns 0.5^(age/halfLife). Items at or after now decay to 1.0.
func Decay(ts, now time.Time, halfLife time.Duration) float64 {
	age := now.Sub(ts)
	if age <= 0 || halfLife <= 0 {
		return 1.0
	}
	return math.Pow(0.5, age.Hours()/halfLife.Hours())
}

// HotScoreNews weights a news item by publisher reputation and recency
func HotScoreNews(publisherWeight float64, ts, now time.Time) float64 {
	return 100.0 * publisherWeight * Decay(ts, now, NewsHalfLife)
}

// HotScoreSocial weights a social post by engagement and recency
func HotScoreSocial(score, numComments int, ts, now time.Time) float64 {
	base := math.Log(1.0 + float64(max(0, score)) + 2.0*float64(max(0, numComments)))
	return 25.0 * base * Decay(ts, now, SocialHalfLife)
}

// EnsureUTC converts ts to UTC. Times without a zone are already UTC in Go.
func EnsureUTC(ts time.Time) time.Time {
	return ts.UTC()
}
