package inference

import (
	"strings"
	"unicode"
)

const UnknownLabel = "Unknown"

var displayNames = map[string]string{
	"parkinson":          "Parkinson’s",
	"alzheimers":         "Alzheimer’s",
	"ptsd":               "PTSD",
	"stress":             "High Stress",
	"clear":              "Clear",
	"review_recommended": "Review Recommended",
}

// NormalizeLabel maps a raw classifier label to its display name. Unknown
// labels are title-cased and blank ones become UnknownLabel, so the result is
// never empty.
func NormalizeLabel(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UnknownLabel
	}

	if name, ok := displayNames[strings.ToLower(trimmed)]; ok {
		return name
	}

	return titleCase(trimmed)
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}

	return b.String()
}
