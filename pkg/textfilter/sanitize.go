// Package textfilter cleans model output before it is written to the
// in-game chat.
package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxChatLength is the longest line the game chat accepts, in runes.
const MaxChatLength = 255

// replacements maps words the bot must never say in public chat to
// tamer ones.
var replacements = map[string]string{
	"fuck":         "frick",
	"motherfucker": "mother-trucker",
	"shit":         "shoot",
	"bullshit":     "baloney",
	"damn":         "dang",
	"goddamn":      "gosh-dang",
	"hell":         "heck",
	"ass":          "butt",
	"asshole":      "jerk",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"noob":         "newcomer",
	"ez":           "gg",
	"trash":        "unlucky",
}

var whitespace = regexp.MustCompile(`\s+`)

// Sanitizer rewrites a reasoning string into one polite chat line.
type Sanitizer struct {
	pattern *regexp.Regexp
	maxLen  int
}

// New returns a Sanitizer. filterWords turns the word replacement off when
// false; whitespace folding and truncation always apply.
func New(filterWords bool) *Sanitizer {
	s := &Sanitizer{maxLen: MaxChatLength}
	if filterWords {
		words := make([]string, 0, len(replacements))
		for w := range replacements {
			words = append(words, regexp.QuoteMeta(w))
		}
		// longest first so "asshole" wins over "ass"
		sort.Slice(words, func(i, j int) bool {
			if len(words[i]) != len(words[j]) {
				return len(words[i]) > len(words[j])
			}
			return words[i] < words[j]
		})
		s.pattern = regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
	}
	return s
}

// Clean folds whitespace to single spaces, replaces filtered words and
// truncates the result to MaxChatLength runes.
func (s *Sanitizer) Clean(text string) string {
	out := strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	if s.pattern != nil {
		out = s.pattern.ReplaceAllStringFunc(out, func(match string) string {
			return matchCase(match, replacements[strings.ToLower(match)])
		})
	}
	return truncate(out, s.maxLen)
}

// Flagged reports whether text contains a filtered word.
func (s *Sanitizer) Flagged(text string) bool {
	return s.pattern != nil && s.pattern.MatchString(text)
}

// matchCase applies the letter case of original to replacement. Casers are
// stateful, so each call gets its own.
func matchCase(original, replacement string) string {
	upper := cases.Upper(language.English)
	lower := cases.Lower(language.English)
	title := cases.Title(language.English)
	switch {
	case upper.String(original) == original:
		return upper.String(replacement)
	case lower.String(original) == original:
		return replacement
	case title.String(lower.String(original)) == original:
		return title.String(replacement)
	}
	orig := []rune(original)
	out := []rune(replacement)
	for i := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(out[i])
		}
	}
	return string(out)
}

func truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	if max <= 3 {
		return string(runes[:max])
	}
	return strings.TrimRightFunc(string(runes[:max-3]), unicode.IsSpace) + "..."
}
