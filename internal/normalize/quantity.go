// Package normalize converts free-text quantities such as "1,234",
// "2.5k" or "12万" into integers.
package normalize

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSuffixes is the magnitude alphabet used when a source declares none.
var DefaultSuffixes = map[string]int64{
	"k": 1_000,
	"m": 1_000_000,
}

// Normalizer parses quantities using a fixed suffix alphabet. It is
// immutable once built and safe for concurrent use.
type Normalizer struct {
	suffixes map[string]int64
}

// New returns a Normalizer recognizing the given suffixes (matched
// case-insensitively). A nil or empty map selects DefaultSuffixes.
func New(suffixes map[string]int64) *Normalizer {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	n := &Normalizer{suffixes: make(map[string]int64, len(suffixes))}
	for s, mult := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || mult <= 0 {
			continue
		}
		n.suffixes[s] = mult
	}
	return n
}

var defaultNormalizer = New(nil)

// Quantity parses text with the default suffix alphabet.
func Quantity(text string) int64 {
	return defaultNormalizer.Quantity(text)
}

// Quantity returns the non-negative integer encoded in text, or 0 when no
// digits are present. It never fails; values past MaxInt64 saturate.
func (n *Normalizer) Quantity(text string) int64 {
	digits, rest, ok := scanNumber(text)
	if !ok {
		return 0
	}

	whole, frac, _ := strings.Cut(digits, ".")
	value, ok := parseUint(whole)
	if !ok {
		return math.MaxInt64
	}

	mult := uint64(n.multiplier(rest))
	if mult == 1 {
		return clamp(value)
	}

	hi, lo := bits.Mul64(value, mult)
	if hi != 0 {
		return math.MaxInt64
	}

	// Fractional digits contribute frac*mult/10^len(frac), truncated.
	if len(frac) > 18 {
		frac = frac[:18]
	}
	if f, ok := parseUint(frac); ok && f > 0 {
		scale := pow10(len(frac))
		fh, fl := bits.Mul64(f, mult)
		q, _ := bits.Div64(fh, fl, scale)
		sum, carry := bits.Add64(lo, q, 0)
		if carry != 0 {
			return math.MaxInt64
		}
		lo = sum
	}
	return clamp(lo)
}

// Suffix reports whether word starts with a recognized magnitude suffix.
func (n *Normalizer) Suffix(word string) bool {
	return n.multiplier(word) != 1
}

// multiplier matches the text following the number against the alphabet.
// Latin suffixes must stand alone ("1.2k", "1.2 k"), so "3 kittens" is not
// a thousand kittens; other scripts may run into the following word ("12万热度").
func (n *Normalizer) multiplier(rest string) int64 {
	rest = strings.TrimLeftFunc(rest, isSpace)
	word := leadingLetters(rest)
	if word == "" {
		return 1
	}
	lower := strings.ToLower(word)
	if mult, ok := n.suffixes[lower]; ok {
		return mult
	}
	first, size := utf8.DecodeRuneInString(lower)
	if unicode.Is(unicode.Latin, first) {
		return 1
	}
	if mult, ok := n.suffixes[lower[:size]]; ok {
		return mult
	}
	return 1
}

// scanNumber finds the first digit run in text, dropping grouping
// separators inside it. A dot right before the run makes it a fraction
// (".5k"). It returns the cleaned digits, the text after the number, and
// whether any digit was found.
func scanNumber(text string) (string, string, bool) {
	start := strings.IndexFunc(text, isDigit)
	if start < 0 {
		return "", "", false
	}
	if start > 0 && text[start-1] == '.' && (start < 2 || text[start-2] != '.') {
		start--
	}

	var b strings.Builder
	seenDot := false
	i := start
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case isDigit(r):
			b.WriteRune(r)
		case r == '.' && !seenDot && digitAt(text, i+size):
			seenDot = true
			b.WriteByte('.')
		case isGroupSeparator(r) && !seenDot && digitAt(text, i+size):
		default:
			return b.String(), text[i:], true
		}
		i += size
	}
	return b.String(), "", true
}

func leadingLetters(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		return s
	}
	return s[:end]
}

func digitAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isDigit(r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// isSpace covers ASCII whitespace plus NBSP, thin and narrow no-break spaces.
func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

func isGroupSeparator(r rune) bool {
	return r == ',' || r == '_' || r == '\'' || isSpace(r)
}

func parseUint(s string) (uint64, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

func pow10(n int) uint64 {
	p := uint64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}

func clamp(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
