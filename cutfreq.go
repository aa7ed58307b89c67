package imtool

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// ColorCount pairs a color with the number of pixels that carry it.
type ColorCount struct {
	Color Pixel
	Count int
}

// ReplacementMap maps each removed color to the surviving color that replaces it.
type ReplacementMap map[Pixel]Pixel

// CountColorFrequencies tallies how many pixels carry each distinct color.
func CountColorFrequencies(b *Buffer) map[Pixel]int {
	freq := make(map[Pixel]int)
	for _, p := range b.Pixels() {
		freq[p]++
	}
	return freq
}

// SortColorsByFrequency orders the colors of freq by ascending count. Colors
// with equal counts are ordered by (red, green, blue), so the result does not
// depend on map iteration order.
func SortColorsByFrequency(freq map[Pixel]int) []ColorCount {
	sorted := make([]ColorCount, 0, len(freq))
	for c, n := range freq {
		sorted = append(sorted, ColorCount{Color: c, Count: n})
	}
	slices.SortFunc(sorted, func(a, b ColorCount) int {
		if c := cmp.Compare(a.Count, b.Count); c != 0 {
			return c
		}
		return a.Color.Compare(b.Color)
	})
	return sorted
}

// SplitColors returns the first n colors of sorted as the colors to remove and
// the rest, in order, as the colors that remain. n larger than the number of
// colors removes them all.
func SplitColors(sorted []ColorCount, n int) (remove, remain []Pixel) {
	colors := lo.Map(sorted, func(cc ColorCount, _ int) Pixel { return cc.Color })
	n = min(max(n, 0), len(colors))
	return colors[:n:n], colors[n:]
}

// FindClosestColor returns the candidate with the smallest squared Euclidean
// distance to target. On a tie the earliest candidate wins. An empty candidate
// list yields black.
func FindClosestColor(target Pixel, candidates []Pixel) Pixel {
	var closest Pixel
	best := int64(-1)
	for _, c := range candidates {
		d := target.distanceSquared(c)
		if best < 0 || d < best {
			best = d
			closest = c
		}
	}
	return closest
}

// BuildReplacementMap pairs every color in remove with its closest color in remain.
func BuildReplacementMap(remove, remain []Pixel) ReplacementMap {
	repl := make(ReplacementMap, len(remove))
	for _, c := range remove {
		repl[c] = FindClosestColor(c, remain)
	}
	return repl
}

// ReplaceColors rewrites every pixel whose color is a key of repl.
func ReplaceColors(b *Buffer, repl ReplacementMap) {
	if len(repl) == 0 {
		return
	}
	for i, p := range b.Pixels() {
		if np, ok := repl[p]; ok {
			b.set(i, np)
		}
	}
}

// CutFreq removes the n least frequent colors of b, replacing each with its
// nearest remaining color. When n reaches the number of distinct colors there
// is nothing left to map to and the whole image becomes black.
func CutFreq(b *Buffer, n int) {
	if n <= 0 {
		return
	}
	sorted := SortColorsByFrequency(CountColorFrequencies(b))
	remove, remain := SplitColors(sorted, n)
	ReplaceColors(b, BuildReplacementMap(remove, remain))
}
