package ocel

import (
	"testing"
	"time"
)

func testLog(t *testing.T) *Log {
	t.Helper()

	log := NewLog()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	log.AddObject(&Object{ID: "o1", Type: "Order"})
	log.AddObject(&Object{ID: "i1", Type: "Item"})
	log.AddObject(&Object{ID: "c1", Type: "Customer"})

	add := func(id, activity string, minute int, objects ...string) {
		log.AddEvent(&Event{ID: id, Activity: activity, Timestamp: base.Add(time.Duration(minute) * time.Minute)})
		for _, objID := range objects {
			if err := log.AddE2O(id, objID, ""); err != nil {
				t.Fatalf("AddE2O(%s, %s): %v", id, objID, err)
			}
		}
	}

	add("e1", "Place Order", 0, "o1", "i1")
	add("e2", "Pick Item", 1, "i1")
	add("e3", "Ship Order", 2, "o1")

	if err := log.AddO2O("o1", "c1", "placed_by"); err != nil {
		t.Fatalf("AddO2O: %v", err)
	}

	return log
}

func TestViewOrderingAndIndexes(t *testing.T) {
	view := NewView(testLog(t))

	if view.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", view.Len())
	}

	wantOrder := []string{"e1", "e2", "e3"}
	for pos, id := range wantOrder {
		if got := view.EventAt(uint32(pos)).ID; got != id {
			t.Errorf("EventAt(%d) = %s, want %s", pos, got, id)
		}
	}

	acts := view.Activities()
	wantActs := []string{"Pick Item", "Place Order", "Ship Order"}
	if len(acts) != len(wantActs) {
		t.Fatalf("Activities() = %v", acts)
	}
	for i := range wantActs {
		if acts[i] != wantActs[i] {
			t.Errorf("Activities()[%d] = %s, want %s (sorted)", i, acts[i], wantActs[i])
		}
	}

	if !view.HasActivity("Pick Item") || view.HasActivity("Refund") {
		t.Error("HasActivity misreports")
	}

	occ := view.Occurrences("Place Order")
	if len(occ) != 1 || occ[0] != 0 {
		t.Errorf("Occurrences(Place Order) = %v, want [0]", occ)
	}
}

func TestViewSimultaneousTimestampsUseIngestionOrder(t *testing.T) {
	log := NewLog()
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	log.AddEvent(&Event{ID: "first", Activity: "A", Timestamp: ts})
	log.AddEvent(&Event{ID: "second", Activity: "B", Timestamp: ts})

	view := NewView(log)
	if view.EventAt(0).ID != "first" || view.EventAt(1).ID != "second" {
		t.Errorf("tie-break order = [%s, %s], want [first, second]",
			view.EventAt(0).ID, view.EventAt(1).ID)
	}
}

func TestViewBitmaps(t *testing.T) {
	view := NewView(testLog(t))

	orderBM := view.ObjectBitmap("o1")
	if !orderBM.Contains(0) || !orderBM.Contains(2) || orderBM.Contains(1) {
		t.Errorf("ObjectBitmap(o1) = %v, want {0, 2}", orderBM.ToArray())
	}

	actBM := view.ActivityBitmap("Pick Item")
	if actBM.GetCardinality() != 1 || !actBM.Contains(1) {
		t.Errorf("ActivityBitmap(Pick Item) = %v, want {1}", actBM.ToArray())
	}

	if view.ActivityBitmap("Refund").GetCardinality() != 0 {
		t.Error("unknown activity bitmap not empty")
	}
	if view.ObjectBitmap("ghost").GetCardinality() != 0 {
		t.Error("unknown object bitmap not empty")
	}
}

func TestViewAttachedAndTypes(t *testing.T) {
	view := NewView(testLog(t))

	refs := view.Attached(0)
	if len(refs) != 2 || refs[0].ID != "o1" || refs[1].ID != "i1" {
		t.Fatalf("Attached(0) = %v, want [o1 i1] in insertion order", refs)
	}
	if refs[0].Type != "Order" || refs[1].Type != "Item" {
		t.Errorf("Attached(0) types = %s/%s", refs[0].Type, refs[1].Type)
	}

	if view.ObjectType("i1") != "Item" || view.ObjectType("ghost") != "" {
		t.Error("ObjectType misreports")
	}

	types := view.ObjectTypesFor("Place Order")
	if len(types) != 2 || types[0] != "Order" || types[1] != "Item" {
		t.Errorf("ObjectTypesFor(Place Order) = %v, want [Order Item]", types)
	}
	if len(view.ObjectTypesFor("Refund")) != 0 {
		t.Error("ObjectTypesFor(unknown) not empty")
	}
}

func TestViewRelated(t *testing.T) {
	view := NewView(testLog(t))

	tests := []struct {
		name       string
		objectID   string
		targetType string
		mode       O2OMode
		want       []string
	}{
		{"none", "o1", "Customer", O2ONone, nil},
		{"direct out", "o1", "Customer", O2ODirect, []string{"c1"}},
		{"direct wrong direction", "c1", "Order", O2ODirect, nil},
		{"reversed in", "c1", "Order", O2OReversed, []string{"o1"}},
		{"bidirectional", "c1", "Order", O2OBidirectional, []string{"o1"}},
		{"type filter", "o1", "Item", O2ODirect, nil},
	}

	for _, tt := range tests {
		got := view.Related(tt.objectID, tt.targetType, tt.mode)
		if len(got) != len(tt.want) {
			t.Errorf("%s: Related() = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%s: Related()[%d] = %s, want %s", tt.name, i, got[i], tt.want[i])
			}
		}
	}
}

func TestParseO2OMode(t *testing.T) {
	tests := []struct {
		input string
		want  O2OMode
		ok    bool
	}{
		{"None", O2ONone, true},
		{"", O2ONone, true},
		{"direct", O2ODirect, true},
		{"Reversed", O2OReversed, true},
		{"bidirectional", O2OBidirectional, true},
		{"sideways", O2ONone, false},
	}

	for _, tt := range tests {
		got, ok := ParseO2OMode(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseO2OMode(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}

	for _, mode := range []O2OMode{O2ONone, O2ODirect, O2OReversed, O2OBidirectional} {
		if mode.String() == "unknown" {
			t.Errorf("mode %d stringifies as unknown", mode)
		}
	}
}
