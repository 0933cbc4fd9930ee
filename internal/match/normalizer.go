// Package match implements the rule-based matching engine that resolves
// extracted candidates against canonical politician identities.
package match

import (
	"strings"

	"golang.org/x/text/width"
)

// Honorific and title suffixes stripped from raw names. Japanese suffixes
// are matched directly, English ones as a trailing word. Longer entries come
// first so compound titles are removed before their components.
var jaHonorifics = []string{
	"副委員長",
	"委員長",
	"副議長",
	"幹事長",
	"議長",
	"議員",
	"委員",
	"先生",
	"さん",
	"様",
	"氏",
	"君",
	"殿",
}

var enHonorifics = map[string]bool{
	"esq":      true,
	"member":   true,
	"chair":    true,
	"chairman": true,
	"mp":       true,
	"mr":       true,
	"mrs":      true,
	"ms":       true,
	"dr":       true,
}

// Normalize strips honorific and title suffixes from a raw name, folds
// full-width and half-width variants, and collapses whitespace. It is a pure
// transform and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	s := collapseWhitespace(width.Fold.String(name))

	for {
		next := stripTrailingHonorific(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripTrailingHonorific(s string) string {
	trimmed := strings.TrimSpace(strings.TrimRight(s, " \t,.、。・"))

	for _, h := range jaHonorifics {
		if strings.HasSuffix(trimmed, h) && len(trimmed) > len(h) {
			return strings.TrimSpace(strings.TrimSuffix(trimmed, h))
		}
	}

	words := strings.Fields(trimmed)
	if len(words) > 1 {
		last := strings.ToLower(strings.Trim(words[len(words)-1], ",."))
		if enHonorifics[last] {
			return strings.TrimSpace(strings.Join(words[:len(words)-1], " "))
		}
	}

	return trimmed
}

// collapseWhitespace folds all runs of whitespace, including the ideographic
// space, into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "　", " ")), " ")
}
