package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mholler/imagetext/internal/ocr"
)

// allowedPunct lists the punctuation that survives cleaning. Letters, digits,
// and whitespace always survive; every other rune is stripped.
const allowedPunct = ".,:-@#$%&*()[]{}!?;'\"<>=+~`|/\\"

// DefaultMinFragmentLength is the cleaned-length cutoff for discarding
// fragments. Fragments whose cleaned text is this many runes or fewer are
// treated as recognition noise.
const DefaultMinFragmentLength = 3

// confusionFixes repairs digit-for-letter substitutions the engines make on
// isolated characters. Only whole single-character tokens are rewritten;
// digits inside longer tokens are trusted as real digits.
var confusionFixes = map[string]string{
	"0": "O",
	"1": "I",
	"5": "S",
	"8": "B",
}

// Cleaner normalizes raw recognition fragments into deduplicated text.
type Cleaner struct {
	minLength int
}

// NewCleaner creates a Cleaner with the given discard cutoff. Values at or
// below zero fall back to DefaultMinFragmentLength.
func NewCleaner(minLength int) *Cleaner {
	if minLength <= 0 {
		minLength = DefaultMinFragmentLength
	}
	return &Cleaner{minLength: minLength}
}

// Clean strips unrecognized characters from one fragment, collapses every
// whitespace run to a single space, trims the ends, and repairs
// single-character digit confusions. The result may be empty.
func (c *Cleaner) Clean(text string) string {
	stripped := strings.Map(keepRune, text)

	tokens := strings.Fields(stripped)
	for i, token := range tokens {
		if fix, ok := confusionFixes[token]; ok {
			tokens[i] = fix
		}
	}

	return strings.Join(tokens, " ")
}

// CleanAll runs Clean over a fragment stream in order, drops fragments at or
// below the minimum cleaned length, and removes exact duplicates keeping the
// first occurrence. Comparison is case sensitive, so "STOP" and "Stop" both
// survive.
func (c *Cleaner) CleanAll(fragments []ocr.Fragment) []string {
	seen := make(map[string]struct{}, len(fragments))
	cleaned := make([]string, 0, len(fragments))

	for _, frag := range fragments {
		text := c.Clean(frag.Text)
		if utf8.RuneCountInString(text) <= c.minLength {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		cleaned = append(cleaned, text)
	}

	return cleaned
}

// keepRune reports a rune back to strings.Map when it survives cleaning and
// -1 when it should be dropped.
func keepRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return r
	}
	if strings.ContainsRune(allowedPunct, r) {
		return r
	}
	return -1
}
