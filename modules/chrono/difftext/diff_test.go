package difftext

import "testing"

func TestLinesKeepsTrailingNewlines(t *testing.T) {
	got := Lines("a\nb\nc")
	want := []string{"a\n", "b\n", "c"}
	if len(got) != len(want) {
		t.Fatalf("Lines() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Lines()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLineDiffCoversEntireInput(t *testing.T) {
	before := Lines("one\ntwo\nthree\n")
	after := Lines("one\ntwo-ish\nthree\nfour\n")

	hunks := LineDiff(before, after)

	var beforeCovered, afterCovered int
	for _, h := range hunks {
		if h.BeforeLo != beforeCovered || h.AfterLo != afterCovered {
			t.Fatalf("hunk %+v does not start where the previous one ended (before=%d after=%d)", h, beforeCovered, afterCovered)
		}
		beforeCovered = h.BeforeHi
		afterCovered = h.AfterHi
	}
	if beforeCovered != len(before) {
		t.Fatalf("hunks cover %d before-lines, want %d", beforeCovered, len(before))
	}
	if afterCovered != len(after) {
		t.Fatalf("hunks cover %d after-lines, want %d", afterCovered, len(after))
	}
}

func TestLineDiffIdenticalInputIsAllEqual(t *testing.T) {
	lines := Lines("a\nb\nc\n")
	hunks := LineDiff(lines, lines)
	if len(hunks) != 1 || hunks[0].Op != HunkEqual {
		t.Fatalf("LineDiff(x, x) = %+v, want a single equal hunk", hunks)
	}
}

func TestRefineHunkWordLevel(t *testing.T) {
	wd := RefineHunk("the quick fox\n", "the slow fox\n")

	var gotReplace bool
	for _, h := range wd.Hunks {
		if h.Op != HunkReplace {
			continue
		}
		gotReplace = true
		before := join(wd.BeforeWords[h.BeforeLo:h.BeforeHi])
		after := join(wd.AfterWords[h.AfterLo:h.AfterHi])
		if before != "quick" || after != "slow" {
			t.Fatalf("replaced word span = %q -> %q, want quick -> slow", before, after)
		}
	}
	if !gotReplace {
		t.Fatalf("RefineHunk found no replaced word span in %+v", wd.Hunks)
	}
}

func TestRefineHunkCharLevelOnPartialWordChange(t *testing.T) {
	wd := RefineHunk("filename\n", "filename2\n")

	var gotChars bool
	for _, h := range wd.Hunks {
		if h.Op != HunkReplace || h.Chars == nil {
			continue
		}
		gotChars = true
		var replacedAfter string
		for _, ch := range h.Chars.Hunks {
			if ch.Op == HunkReplace {
				replacedAfter += join(h.Chars.AfterChars[ch.AfterLo:ch.AfterHi])
			}
		}
		if replacedAfter != "2" {
			t.Fatalf("char-level replacement = %q, want \"2\"", replacedAfter)
		}
	}
	if !gotChars {
		t.Fatalf("RefineHunk did not produce a char-level refinement for %+v", wd.Hunks)
	}
}

func join(ss []string) string {
	out := ""
	for _, s := range ss {
		out += s
	}
	return out
}
