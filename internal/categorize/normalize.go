package categorize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// NormalizeName standardizes an establishment name for matching by:
//  1. Decoding HTML entities (open-data exports ship &amp; and friends)
//  2. Converting to lowercase
//  3. Folding accents (café → cafe)
//  4. Replacing punctuation with spaces
//  5. Collapsing multiple spaces into single spaces
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = html.UnescapeString(name)
	name = strings.ToLower(name)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, name); err == nil {
		name = folded
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	name = multiSpaceRe.ReplaceAllString(b.String(), " ")

	return strings.TrimSpace(name)
}

// WordSet returns the set of normalized words in a name, discarding tokens
// of length two or less.
func WordSet(name string) map[string]struct{} {
	words := strings.Fields(NormalizeName(name))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// Jaccard computes the intersection size over the union size of two word
// sets. Either set being empty yields 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var inter int
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
