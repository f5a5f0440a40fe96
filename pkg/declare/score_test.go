package declare

import (
	"strconv"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestBoundsFromCounts(t *testing.T) {
	tests := []struct {
		name    string
		counts  []int
		wantMin *int
		wantMax *int
	}{
		{"empty", nil, nil, nil},
		{"single", []int{3}, intPtr(3), intPtr(3)},
		{"mixed", []int{2, 0, 5, 1}, intPtr(0), intPtr(5)},
		{"constant", []int{1, 1, 1}, intPtr(1), intPtr(1)},
	}

	for _, tt := range tests {
		min, max := BoundsFromCounts(tt.counts)
		if !boundEq(min, tt.wantMin) || !boundEq(max, tt.wantMax) {
			t.Errorf("%s: BoundsFromCounts(%v) = (%s, %s), want (%s, %s)",
				tt.name, tt.counts, boundStr(min), boundStr(max), boundStr(tt.wantMin), boundStr(tt.wantMax))
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		min    *int
		max    *int
		want   float64
	}{
		{"empty counts are vacuously satisfied", nil, intPtr(1), intPtr(1), 1.0},
		{"all within", []int{1, 1, 1}, intPtr(1), intPtr(1), 1.0},
		{"partial", []int{1, 0, 1, 0, 1}, intPtr(1), intPtr(1), 0.6},
		{"unbounded above", []int{1, 5, 100}, intPtr(1), nil, 1.0},
		{"unbounded below", []int{0, 1, 2}, nil, intPtr(1), 2.0 / 3.0},
		{"no bounds", []int{0, 7}, nil, nil, 1.0},
	}

	for _, tt := range tests {
		got := Score(tt.counts, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("%s: Score(%v) = %v, want %v", tt.name, tt.counts, got, tt.want)
		}
	}
}

func TestScoreGrouped(t *testing.T) {
	one := intPtr(1)

	tests := []struct {
		name   string
		groups []CountVector
		min    *int
		max    *int
		want   float64
	}{
		{"empty list", nil, one, one, 1.0},
		{"all satisfied", []CountVector{{1}, {1, 1}, {1}}, one, one, 1.0},
		{"one entry out fails the whole occurrence", []CountVector{{1, 0}, {1}}, one, one, 0.5},
		{"empty group is vacuously satisfied", []CountVector{{}, {0}}, one, one, 0.5},
		{"spec example 8 of 10", []CountVector{{1}, {1}, {1}, {1}, {1}, {1}, {1}, {1}, {0}, {0}}, one, one, 0.8},
	}

	for _, tt := range tests {
		got := ScoreGrouped(tt.groups, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("%s: ScoreGrouped = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSupport(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   float64
	}{
		{"empty", nil, 0.0},
		{"all zero", []int{0, 0}, 0.0},
		{"all nonzero", []int{1, 2, 3}, 1.0},
		{"half", []int{0, 1, 0, 2}, 0.5},
	}

	for _, tt := range tests {
		got := Support(tt.counts)
		if got != tt.want {
			t.Errorf("%s: Support(%v) = %v, want %v", tt.name, tt.counts, got, tt.want)
		}
	}
}

func TestFlatten(t *testing.T) {
	groups := []CountVector{{1, 2}, {}, {3}}
	got := Flatten(groups)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Flatten = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Flatten[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.0, 1.0},
		{0.8, 0.8},
		{2.0 / 3.0, 0.667},
		{1.0 / 3.0, 0.333},
		{0.0005, 0.001},
	}

	for _, tt := range tests {
		if got := Round3(tt.in); got != tt.want {
			t.Errorf("Round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScoreMonotonicUnderWideningBounds(t *testing.T) {
	counts := []int{1, 2, 4, 7}

	// Each interval contains the previous one; the score must never drop.
	bounds := []struct {
		min, max *int
		want     float64
	}{
		{intPtr(3), intPtr(3), 0.0},
		{intPtr(2), intPtr(4), 0.5},
		{intPtr(1), intPtr(5), 0.75},
		{intPtr(1), intPtr(7), 1.0},
		{nil, nil, 1.0},
	}

	prev := -1.0
	for _, b := range bounds {
		got := Score(counts, b.min, b.max)
		if got != b.want {
			t.Errorf("Score(%v, [%s, %s]) = %v, want %v",
				counts, boundStr(b.min), boundStr(b.max), got, b.want)
		}
		if got < prev {
			t.Errorf("score dropped from %v to %v when widening to [%s, %s]",
				prev, got, boundStr(b.min), boundStr(b.max))
		}
		prev = got
	}
}

func boundEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boundStr(v *int) string {
	if v == nil {
		return "nil"
	}
	return strconv.Itoa(*v)
}
