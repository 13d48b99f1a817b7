// Package textutil provides token-based title matching. Display titles
// arriving from telemetry, snapshots, and backend imports rarely agree on
// punctuation or casing, so lookups by title go through term-frequency
// fingerprints instead of string equality.
package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Fingerprint is a term-frequency vector for title similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided title. Returns nil
// when the title produces no usable tokens.
func NewFingerprint(title string) *Fingerprint {
	tokens := tokenize(title)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(norm)}
}

// tokenize lowercases, splits on non-alphanumerics, and keeps short tokens:
// unlike long-form text, titles like "Up" or "It" are often a single short
// word.
func tokenize(title string) []string {
	lowered := strings.ToLower(title)
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if token == "" {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 when either fingerprint is nil or empty.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// TitleSimilarity scores how closely two display titles match, in [0, 1].
func TitleSimilarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}
