package declare

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	dferrors "github.com/declareflow/declareflow/pkg/errors"
	"github.com/declareflow/declareflow/pkg/ocel"
)

// ordersView builds a log of `total` orders that each place ("A") and
// `shipped` of which also ship ("B"), one Order object per case.
func ordersView(t *testing.T, total, shipped int) *ocel.View {
	t.Helper()

	objects := make(map[string]string, total)
	var events []logEvent
	minute := 0

	for i := 0; i < total; i++ {
		orderID := fmt.Sprintf("o%d", i)
		objects[orderID] = "Order"

		events = append(events, logEvent{fmt.Sprintf("p%d", i), "A", minute, []string{orderID}})
		minute++
		if i < shipped {
			events = append(events, logEvent{fmt.Sprintf("s%d", i), "B", minute, []string{orderID}})
			minute++
		}
	}

	return buildView(t, objects, events, nil)
}

func findConstraint(set *Set, kind RelationKind, source, target string) *Constraint {
	for _, c := range set.Constraints {
		if c.Type == kind && c.Source == source && c.Target == target {
			return c
		}
	}
	return nil
}

func TestDiscoverOrdersLog(t *testing.T) {
	view := ordersView(t, 10, 10)

	set, err := NewDiscoverer().Discover(context.Background(), view, DiscoverOptions{
		Threshold: DefaultThreshold,
	})
	if err != nil {
		t.Fatalf("Discover() err = %v", err)
	}

	// A->B holds AS, EF, DF; B->A holds AS, EP, DP. The zero-support kinds
	// are dropped.
	if set.Len() != 6 {
		t.Fatalf("Len() = %d, want 6: %v", set.Len(), set.Constraints)
	}
	if c := findConstraint(set, KindEP, "A", "B"); c != nil {
		t.Errorf("retained zero-support constraint %s", c)
	}

	ef := findConstraint(set, KindEF, "A", "B")
	if ef == nil {
		t.Fatal("EF(A -> B) not discovered")
	}
	if ef.Quantifier != QuantAll {
		t.Errorf("EF quantifier = %v, want %v", ef.Quantifier, QuantAll)
	}
	if len(ef.ObjectTypes) != 1 || ef.ObjectTypes[0] != "Order" {
		t.Errorf("EF object types = %v, want [Order]", ef.ObjectTypes)
	}
	if ef.Min == nil || *ef.Min != 1 || ef.Max == nil || *ef.Max != 1 {
		t.Errorf("EF bounds = [%v, %v], want [1, 1]", ef.Min, ef.Max)
	}
}

func TestDiscoverThresholdGates(t *testing.T) {
	// 8 of 10 orders ship, so EF(A -> B) has support 0.8.
	view := ordersView(t, 10, 8)

	low, err := NewDiscoverer().Discover(context.Background(), view, DiscoverOptions{Threshold: 0.5})
	if err != nil {
		t.Fatalf("Discover(0.5) err = %v", err)
	}
	if findConstraint(low, KindEF, "A", "B") == nil {
		t.Error("EF(A -> B) dropped below its 0.8 support")
	}

	high, err := NewDiscoverer().Discover(context.Background(), view, DiscoverOptions{Threshold: 0.9})
	if err != nil {
		t.Fatalf("Discover(0.9) err = %v", err)
	}
	if c := findConstraint(high, KindEF, "A", "B"); c != nil {
		t.Errorf("EF(A -> B) retained above its support: %s", c)
	}
}

func TestDiscoverDerivedBoundsCoverObservations(t *testing.T) {
	view := ordersView(t, 10, 8)

	set, err := NewDiscoverer().Discover(context.Background(), view, DiscoverOptions{
		Threshold:        0.5,
		CheckConformance: true,
	})
	if err != nil {
		t.Fatalf("Discover() err = %v", err)
	}
	if set.Len() == 0 {
		t.Fatal("no constraints discovered")
	}

	// Bounds are derived from the observed counts, so every discovered
	// constraint conforms perfectly to itself.
	for _, c := range set.Constraints {
		if c.Conformance == nil {
			t.Errorf("%s: conformance not assigned", c)
			continue
		}
		if *c.Conformance != 1.0 {
			t.Errorf("%s: conformance = %v, want 1.0", c, *c.Conformance)
		}
	}
}

func TestDiscoverInvalidThreshold(t *testing.T) {
	view := ordersView(t, 2, 2)

	for _, threshold := range []float64{0, -0.1, 1.5} {
		_, err := NewDiscoverer().Discover(context.Background(), view, DiscoverOptions{Threshold: threshold})
		if !dferrors.IsCode(err, dferrors.CodeInvalidThreshold) {
			t.Errorf("Discover(threshold=%v) err = %v, want code %s", threshold, err, dferrors.CodeInvalidThreshold)
		}
	}
}

func TestDiscoverSkipsAbsentActivities(t *testing.T) {
	view := ordersView(t, 3, 3)

	set, err := NewDiscoverer().Discover(context.Background(), view, DiscoverOptions{
		Threshold: DefaultThreshold,
		ActsToUse: []string{"A", "Z", "A"},
	})
	if err != nil {
		t.Fatalf("Discover() err = %v", err)
	}
	// Deduplication and the absent "Z" leave a single activity, hence no
	// pairs.
	if set.Len() != 0 {
		t.Errorf("Len() = %d, want 0: %v", set.Len(), set.Constraints)
	}
}

func TestDiscoverDeterministic(t *testing.T) {
	view := ordersView(t, 10, 8)
	opts := DiscoverOptions{Threshold: DefaultThreshold, Workers: 4}

	first, err := NewDiscoverer().Discover(context.Background(), view, opts)
	if err != nil {
		t.Fatalf("first Discover() err = %v", err)
	}
	second, err := NewDiscoverer().Discover(context.Background(), view, opts)
	if err != nil {
		t.Fatalf("second Discover() err = %v", err)
	}

	if first.Len() != second.Len() {
		t.Fatalf("lengths differ: %d vs %d", first.Len(), second.Len())
	}
	for i := range first.Constraints {
		if first.Constraints[i].String() != second.Constraints[i].String() {
			t.Errorf("constraint %d differs: %s vs %s",
				i, first.Constraints[i], second.Constraints[i])
		}
	}
}

func TestDiscoverProgress(t *testing.T) {
	view := ordersView(t, 5, 5)

	var calls atomic.Int64
	var lastTotal atomic.Int64
	_, err := NewDiscoverer().Discover(context.Background(), view, DiscoverOptions{
		Threshold: DefaultThreshold,
		Workers:   2,
		OnProgress: func(done, total int) {
			calls.Add(1)
			lastTotal.Store(int64(total))
		},
	})
	if err != nil {
		t.Fatalf("Discover() err = %v", err)
	}

	// Two activities give two ordered pairs.
	if got := calls.Load(); got != 2 {
		t.Errorf("progress calls = %d, want 2", got)
	}
	if got := lastTotal.Load(); got != 2 {
		t.Errorf("progress total = %d, want 2", got)
	}
}

func TestDiscoverCanceledContext(t *testing.T) {
	view := ordersView(t, 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDiscoverer().Discover(ctx, view, DiscoverOptions{Threshold: DefaultThreshold})
	if !dferrors.IsCode(err, dferrors.CodeContextCanceled) {
		t.Errorf("Discover() err = %v, want code %s", err, dferrors.CodeContextCanceled)
	}
}
