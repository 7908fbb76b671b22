package conflict

import (
	"sort"

	"github.com/chronoscope/chrono/modules/chrono/difftext"
)

// diff3 ports the teacher's diferenco diff3-merge algorithm (originally
// itself a Go port of github.com/epiclabs-io/diff3, MIT licensed) from
// operating on two independent line-level diffs against a shared base
// to the conflict package's line type, using difftext.HistogramDiff as
// the underlying line matcher.

type diff3Hunk [5]int

type diff3HunkList []*diff3Hunk

func (h diff3HunkList) Len() int           { return len(h) }
func (h diff3HunkList) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h diff3HunkList) Less(i, j int) bool { return h[i][0] < h[j][0] }

func diff3MergeIndices(base, a, b []string) [][]int {
	m1 := difftext.HistogramDiff(base, a)
	m2 := difftext.HistogramDiff(base, b)

	var hunks []*diff3Hunk
	addHunk := func(h difftext.Change, side int) {
		hunks = append(hunks, &diff3Hunk{h.P1, side, h.Del, h.P2, h.Ins})
	}
	for _, h := range m1 {
		addHunk(h, 0)
	}
	for _, h := range m2 {
		addHunk(h, 2)
	}
	sort.Sort(diff3HunkList(hunks))

	var result [][]int
	commonOffset := 0
	copyCommon := func(targetOffset int) {
		if targetOffset > commonOffset {
			result = append(result, []int{1, commonOffset, targetOffset - commonOffset})
			commonOffset = targetOffset
		}
	}

	for hunkIndex := 0; hunkIndex < len(hunks); hunkIndex++ {
		firstHunkIndex := hunkIndex
		hunk := hunks[hunkIndex]
		regionLhs := hunk[0]
		regionRhs := regionLhs + hunk[2]
		for hunkIndex < len(hunks)-1 {
			maybeOverlapping := hunks[hunkIndex+1]
			maybeLhs := maybeOverlapping[0]
			if maybeLhs > regionRhs {
				break
			}
			regionRhs = max(regionRhs, maybeLhs+maybeOverlapping[2])
			hunkIndex++
		}

		copyCommon(regionLhs)
		if firstHunkIndex == hunkIndex {
			if hunk[4] > 0 {
				result = append(result, []int{hunk[1], hunk[3], hunk[4]})
			}
		} else {
			regions := [][]int{{len(a), -1, len(base), -1}, nil, {len(b), -1, len(base), -1}}
			for i := firstHunkIndex; i <= hunkIndex; i++ {
				hunk = hunks[i]
				side := hunk[1]
				r := regions[side]
				oLhs := hunk[0]
				oRhs := oLhs + hunk[2]
				abLhs := hunk[3]
				abRhs := abLhs + hunk[4]
				r[0] = min(abLhs, r[0])
				r[1] = max(abRhs, r[1])
				r[2] = min(oLhs, r[2])
				r[3] = max(oRhs, r[3])
			}
			aLhs := regions[0][0] + (regionLhs - regions[0][2])
			aRhs := regions[0][1] + (regionRhs - regions[0][3])
			bLhs := regions[2][0] + (regionLhs - regions[2][2])
			bRhs := regions[2][1] + (regionRhs - regions[2][3])
			result = append(result, []int{-1,
				aLhs, aRhs - aLhs,
				regionLhs, regionRhs - regionLhs,
				bLhs, bRhs - bLhs})
		}
		commonOffset = regionRhs
	}

	copyCommon(len(base))
	return result
}

// diff3Region is either an unconflicted run of lines (ok) or a true
// three-way conflict between the base and the two sides.
type diff3Region struct {
	ok   []string
	side1, base, side2 []string
}

// diff3Merge reduces (base, side1, side2) to a sequence of ok and
// conflict regions, suppressing regions where side1 and side2 agree
// even though both differ from base (a "false conflict").
func diff3Merge(base, side1, side2 []string) []diff3Region {
	var result []diff3Region
	files := [][]string{side1, base, side2}
	indices := diff3MergeIndices(base, side1, side2)

	var okLines []string
	flushOk := func() {
		if len(okLines) != 0 {
			result = append(result, diff3Region{ok: okLines})
		}
		okLines = nil
	}
	pushOk := func(xs []string) { okLines = append(okLines, xs...) }

	isTrueConflict := func(rec []int) bool {
		if rec[2] != rec[6] {
			return true
		}
		aoff, boff := rec[1], rec[5]
		for j := 0; j < rec[2]; j++ {
			if side1[j+aoff] != side2[j+boff] {
				return true
			}
		}
		return false
	}

	for _, x := range indices {
		side := x[0]
		if side == -1 {
			if !isTrueConflict(x) {
				pushOk(side1[x[1] : x[1]+x[2]])
			} else {
				flushOk()
				result = append(result, diff3Region{
					side1: side1[x[1] : x[1]+x[2]],
					base:  base[x[3] : x[3]+x[4]],
					side2: side2[x[5] : x[5]+x[6]],
				})
			}
		} else {
			pushOk(files[side][x[1] : x[1]+x[2]])
		}
	}
	flushOk()
	return result
}
