package difftext

import (
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// tokenizeChars splits s into grapheme clusters, the non-word
// granularity RefineHunk uses once a word-level span still differs.
// Splitting on clusters rather than runes keeps combining marks and
// multi-rune emoji attached to their base character.
func tokenizeChars(s string) []string {
	var out []string
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, state = uniseg.FirstGraphemeClusterInString(s, state)
		if cluster == "" {
			break
		}
		out = append(out, cluster)
	}
	return out
}

// tokenizeWords splits s into word and non-word runs: consecutive
// letter/digit clusters merge into one token, and consecutive
// non-letter/non-digit clusters (whitespace, punctuation) merge into
// another, mirroring how a reader perceives "words" rather than
// splitting on every grapheme. Classification uses the first rune of
// each cluster after NFC normalization, so combining sequences are
// classified by their base character.
func tokenizeWords(s string) []string {
	s = norm.NFC.String(s)
	var out []string
	var cur []byte
	curIsWord := false
	haveCur := false

	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, state = uniseg.FirstGraphemeClusterInString(s, state)
		if cluster == "" {
			break
		}
		r := []rune(cluster)[0]
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		if haveCur && isWord == curIsWord {
			cur = append(cur, cluster...)
			continue
		}
		if haveCur {
			out = append(out, string(cur))
		}
		cur = append(cur[:0], cluster...)
		curIsWord = isWord
		haveCur = true
	}
	if haveCur {
		out = append(out, string(cur))
	}
	return out
}
