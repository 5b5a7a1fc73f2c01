// Package moderation censors blacklisted words in chat text before it is
// broadcast or recorded. Matching is resilient to casing, spacing, accents
// and common leet-speak substitutions.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator holds the Aho-Corasick automaton built from the blacklist.
// The zero value is not usable; a nil *Moderator passes text through.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// New builds the automaton from a normalized copy of the blacklist. An empty
// blacklist yields a nil Moderator, which callers treat as pass-through.
func New(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	if len(words) == 0 {
		return nil, nil
	}

	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = foldRunes([]rune(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}

	log.Debug("Moderator ready", "words", len(words))
	return &Moderator{matcher: m, replacement: replacement, log: log}, nil
}

// Censor replaces every character of a matched word with the replacement
// rune, preserving the original spacing and punctuation around it.
func (m *Moderator) Censor(original string) string {
	if m == nil {
		return original
	}

	folded, origIdx := foldWithIndex(original)
	if len(folded) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(folded, false)
	if len(spans) == 0 {
		return original
	}

	out := []rune(original)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		// Star out the original range covered by the folded match,
		// including any noise characters inside it.
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			out[i] = m.replacement
		}
	}
	return string(out)
}

// foldWithIndex folds the input for matching and keeps, for every folded
// rune, the index of the original rune it came from.
func foldWithIndex(input string) ([]rune, []int) {
	orig := []rune(input)
	folded := make([]rune, 0, len(orig))
	origIdx := make([]int, 0, len(orig))

	for i, r := range orig {
		clean := foldRune(r)
		if isNoise(clean) {
			continue
		}
		folded = append(folded, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return folded, origIdx
}

func foldRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := foldRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// foldRune maps leet-speak substitutes back to their alphabet counterparts.
func foldRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	default:
		return r
	}
}

// isNoise reports characters skipped during matching so that split-up words
// ("b.a.d") still match their pattern.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
