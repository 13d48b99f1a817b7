package progress

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeTitle cleans a display title arriving from a playback surface.
// Player telemetry frequently carries shouting disc-label or filename style
// titles; those are re-cased, while mixed-case titles pass through untouched.
func NormalizeTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ""
	}
	if !isShouting(trimmed) {
		return trimmed
	}
	return cases.Title(language.Und).String(strings.ToLower(trimmed))
}

func isShouting(title string) bool {
	letters := 0
	for _, r := range title {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsLower(r) {
			return false
		}
	}
	return letters > 1
}
