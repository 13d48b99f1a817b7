package textutil_test

import (
	"testing"

	"reelhold/internal/textutil"
)

func TestTitleSimilarity(t *testing.T) {
	if got := textutil.TitleSimilarity("The Long Night", "the long night"); got < 0.999 {
		t.Fatalf("case-insensitive identity should score ~1, got %v", got)
	}
	if got := textutil.TitleSimilarity("The Long Night", "Long Night"); got <= 0.5 {
		t.Fatalf("partial overlap should score above 0.5, got %v", got)
	}
	if got := textutil.TitleSimilarity("The Long Night", "Harbor"); got != 0 {
		t.Fatalf("disjoint titles should score 0, got %v", got)
	}
	if got := textutil.TitleSimilarity("", "anything"); got != 0 {
		t.Fatalf("empty title should score 0, got %v", got)
	}
}

func TestShortTitlesMatch(t *testing.T) {
	if got := textutil.TitleSimilarity("Up", "UP!"); got < 0.999 {
		t.Fatalf("short titles must not be filtered out, got %v", got)
	}
}
