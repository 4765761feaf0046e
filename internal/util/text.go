package util

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reNonWord = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	reSpaces  = regexp.MustCompile(`\s+`)
)

// FoldCase uppercases the input, collapses whitespace runs and trims it.
func FoldCase(input string) string {
	s := strings.ToUpper(input)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SortWords splits on whitespace, sorts the tokens and rejoins them with single spaces.
func SortWords(input string) string {
	words := strings.Fields(input)
	sort.Strings(words)
	return strings.Join(words, " ")
}

type rewrite struct {
	name  string
	apply func(string) string
}

// standardizeSteps is order sensitive: each step sees the output of the previous one.
var standardizeSteps = []rewrite{
	{"diacritics", stripMarks},
	{"upper", strings.ToUpper},
	{"punctuation", func(s string) string { return reNonWord.ReplaceAllString(s, " ") }},
	{"PH", replacer("PH", "F")},
	{"TH", replacer("TH", "T")},
	{"AE", replacer("AE", "E")},
	{"OE", replacer("OE", "E")},
	{"CK", replacer("CK", "K")},
	{"Y", replacer("Y", "I")},
	{"double letters", collapseDoubleLetters},
	{"suffixes", normalizeSuffixes},
	{"spaces", func(s string) string { return strings.TrimSpace(reSpaces.ReplaceAllString(s, " ")) }},
}

// Standardize unifies spelling variants of the same ingredient name across
// source languages (ACETAMINOPHEN / ACETAMINOFEN, SULPHATE / SULFAT,
// ACIDUM ASCORBICUM / ASCORBIC ACID after sorting).
//
// The step sequence is repeated until the string stops changing, so
// Standardize(Standardize(s)) == Standardize(s) for every s.
func Standardize(input string) string {
	s := input
	// Every changing pass after the first shortens the string or removes a Y
	// or punctuation rune, none of which the steps reintroduce.
	for passes := 3*len(input) + 4; passes > 0; passes-- {
		next := s
		for _, step := range standardizeSteps {
			next = step.apply(next)
		}
		if next == s {
			break
		}
		s = next
	}
	return s
}

func replacer(old, replacement string) func(string) string {
	r := strings.NewReplacer(old, replacement)
	return r.Replace
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func collapseDoubleLetters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	for _, r := range s {
		if r == prev && unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

var latinSuffixes = []struct{ from, to string }{
	{"ICUM", "IC"},
	{"IDUM", "ID"},
	{"ATUM", "AT"},
	{"INUM", "IN"},
}

func normalizeSuffixes(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		for _, sfx := range latinSuffixes {
			if len(w) > len(sfx.from) && strings.HasSuffix(w, sfx.from) {
				w = strings.TrimSuffix(w, sfx.from) + sfx.to
				break
			}
		}
		if len(w) > 3 && strings.HasSuffix(w, "E") {
			w = strings.TrimSuffix(w, "E")
		}
		words[i] = w
	}
	return strings.Join(words, " ")
}
