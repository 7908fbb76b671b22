package difftext

import (
	"reflect"
	"testing"
)

func TestTokenizeWordsMergesRuns(t *testing.T) {
	got := tokenizeWords("hello, world!")
	want := []string{"hello", ", ", "world", "!"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenizeWords() = %q, want %q", got, want)
	}
}

func TestTokenizeWordsRoundTrips(t *testing.T) {
	for _, s := range []string{"", "a", "a b c\n", "foo_bar-baz 123"} {
		var rebuilt string
		for _, tok := range tokenizeWords(s) {
			rebuilt += tok
		}
		if rebuilt != s {
			t.Fatalf("tokenizeWords(%q) does not round-trip: got %q", s, rebuilt)
		}
	}
}

func TestTokenizeCharsSplitsGraphemes(t *testing.T) {
	got := tokenizeChars("abc")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenizeChars() = %q, want %q", got, want)
	}
}

func TestTokenizeCharsKeepsCombiningMarkAttached(t *testing.T) {
	// "e" + combining acute accent (U+0065 U+0301) is one grapheme cluster.
	got := tokenizeChars("éx")
	want := []string{"é", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenizeChars() = %q, want %q", got, want)
	}
}
