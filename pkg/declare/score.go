package declare

import "math"

// CountVector holds, for one occurrence of the source activity, the count of
// qualifying target bindings per evaluated object binding. All and Any
// quantification yield one entry per occurrence; Each yields one entry per
// resolved object instance.
type CountVector []int

// BoundsFromCounts derives tight observed bounds from per-binding counts:
// the minimum and maximum of counts. Empty counts yield (nil, nil). Used
// during discovery to derive the bounds of a retained constraint.
func BoundsFromCounts(counts []int) (min, max *int) {
	if len(counts) == 0 {
		return nil, nil
	}
	lo, hi := counts[0], counts[0]
	for _, n := range counts[1:] {
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return &lo, &hi
}

// Score returns the fraction of counts satisfying min <= count <= max.
// A nil bound is unbounded on that side.
//
// Empty counts score 1.0: a constraint whose source activity never occurs
// is vacuously satisfied. This convention is part of the scoring contract,
// not a per-call-site choice.
func Score(counts []int, min, max *int) float64 {
	if len(counts) == 0 {
		return 1.0
	}
	satisfied := 0
	for _, n := range counts {
		if withinBounds(n, min, max) {
			satisfied++
		}
	}
	return float64(satisfied) / float64(len(counts))
}

// ScoreGrouped scores per-occurrence count groups: an occurrence is
// satisfied only when every binding count in its group lies within the
// bounds. Under All/Any quantification each group has a single entry, so
// this coincides with Score; under Each it implements the "must hold for
// every instance" aggregation. Empty groups (no resolved instances) are
// vacuously satisfied; an empty group list scores 1.0.
func ScoreGrouped(groups []CountVector, min, max *int) float64 {
	if len(groups) == 0 {
		return 1.0
	}
	satisfied := 0
	for _, group := range groups {
		ok := true
		for _, n := range group {
			if !withinBounds(n, min, max) {
				ok = false
				break
			}
		}
		if ok {
			satisfied++
		}
	}
	return float64(satisfied) / float64(len(groups))
}

// Support returns the fraction of counts that are non-zero: the share of
// evaluated bindings for which the relation is non-trivially observed.
// Empty counts have zero support.
func Support(counts []int) float64 {
	if len(counts) == 0 {
		return 0.0
	}
	nonZero := 0
	for _, n := range counts {
		if n != 0 {
			nonZero++
		}
	}
	return float64(nonZero) / float64(len(counts))
}

// Flatten concatenates per-occurrence groups into one count slice for
// bounds derivation and support computation.
func Flatten(groups []CountVector) []int {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	flat := make([]int, 0, total)
	for _, g := range groups {
		flat = append(flat, g...)
	}
	return flat
}

// Round3 rounds a conformance score to three decimal places, matching the
// precision reported to callers.
func Round3(score float64) float64 {
	return math.Round(score*1000) / 1000
}

func withinBounds(n int, min, max *int) bool {
	if min != nil && n < *min {
		return false
	}
	if max != nil && n > *max {
		return false
	}
	return true
}
