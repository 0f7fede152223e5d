/*
Package moderation masks banned words in chat text.

Matching runs on a normalized copy of the text (lower case, common leet substitutions undone,
punctuation and spaces skipped), so "B.4.d" still matches "bad". Only whole words are masked:
a hit touching a letter or digit of the original text, as "ass" in "class", is left alone.
Masked characters are replaced in the original text, keeping its length and layout.
*/
package moderation

import (
	"fmt"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

const DefaultMask = '*'

// Censor masks a fixed list of words. A nil *Censor leaves text untouched.
type Censor struct {
	machine *goahocorasick.Machine
	mask    rune
}

// NewCensor builds the matcher for words. It returns nil when no usable word is given.
func NewCensor(words []string, mask rune) (*Censor, error) {
	patterns := make([][]rune, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		p := normalize([]rune(w), nil)
		if len(p) == 0 {
			continue
		}
		if _, dup := seen[string(p)]; dup {
			continue
		}
		seen[string(p)] = struct{}{}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build banned word matcher: %w", err)
	}
	return &Censor{machine: m, mask: mask}, nil
}

// Apply returns text with every banned word masked and whether anything changed.
func (c *Censor) Apply(text string) (string, bool) {
	if c == nil || text == "" {
		return text, false
	}

	orig := []rune(text)
	var origIdx []int
	norm := normalize(orig, &origIdx)
	if len(norm) == 0 {
		return text, false
	}

	hits := c.machine.MultiPatternSearch(norm, false)
	if len(hits) == 0 {
		return text, false
	}

	changed := false
	for _, hit := range hits {
		end := hit.Pos + len(hit.Word)
		if hit.Pos < 0 || end > len(origIdx) {
			continue
		}
		first, last := origIdx[hit.Pos], origIdx[end-1]
		if inWord(orig, first-1) || inWord(orig, last+1) {
			continue
		}
		for i := first; i <= last; i++ {
			if !unicode.IsSpace(orig[i]) {
				orig[i] = c.mask
				changed = true
			}
		}
	}
	if !changed {
		return text, false
	}
	return string(orig), true
}

// inWord reports whether text[i] exists and is a letter or digit, i.e. a hit next to it is
// only part of a longer word.
func inWord(text []rune, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	return unicode.IsLetter(text[i]) || unicode.IsDigit(text[i])
}

// normalize drops noise runes and folds the rest. When origIdx is non-nil it records, for each
// kept rune, its index in in.
func normalize(in []rune, origIdx *[]int) []rune {
	out := make([]rune, 0, len(in))
	for i, r := range in {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
		if origIdx != nil {
			*origIdx = append(*origIdx, i)
		}
	}
	return out
}

func unleet(r rune) rune {
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
	}
	return r
}
