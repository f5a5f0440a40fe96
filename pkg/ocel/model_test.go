package ocel

import (
	"strings"
	"testing"
	"time"
)

func TestLogValidate(t *testing.T) {
	log := NewLog()
	log.AddObject(&Object{ID: "o1", Type: "Order"})
	log.AddEvent(&Event{ID: "e1", Activity: "Place Order", Timestamp: time.Now()})
	if err := log.AddE2O("e1", "o1", ""); err != nil {
		t.Fatalf("AddE2O: %v", err)
	}

	if problems := log.Validate(); len(problems) != 0 {
		t.Fatalf("consistent log reported problems: %v", problems)
	}

	// AddE2O/AddO2O guard against dangling references, but a log assembled
	// by direct struct manipulation can still carry them.
	log.E2ORelations = append(log.E2ORelations, E2O{EventID: "ghost", ObjectID: "o1"})
	log.O2ORelations = append(log.O2ORelations, O2O{SourceID: "o1", TargetID: "nobody"})

	problems := log.Validate()
	if len(problems) != 2 {
		t.Fatalf("Validate() reported %d problems, want 2: %v", len(problems), problems)
	}
	if !strings.Contains(problems[0], "ghost") {
		t.Errorf("first problem should name the dangling event: %q", problems[0])
	}
	if !strings.Contains(problems[1], "nobody") {
		t.Errorf("second problem should name the dangling target: %q", problems[1])
	}
}

func TestLogStats(t *testing.T) {
	log := NewLog()
	log.AddObject(&Object{ID: "o1", Type: "Order"})
	log.AddObject(&Object{ID: "i1", Type: "Item"})

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	log.AddEvent(&Event{ID: "e1", Activity: "Place Order", Timestamp: base})
	log.AddEvent(&Event{ID: "e2", Activity: "Ship Order", Timestamp: base.Add(time.Hour)})
	if err := log.AddE2O("e1", "o1", ""); err != nil {
		t.Fatalf("AddE2O: %v", err)
	}
	if err := log.AddO2O("o1", "i1", "contains"); err != nil {
		t.Fatalf("AddO2O: %v", err)
	}

	stats := log.Stats()
	for key, want := range map[string]int{
		"events":        2,
		"objects":       2,
		"e2o_relations": 1,
		"o2o_relations": 1,
		"event_types":   2,
		"object_types":  2,
	} {
		if got := stats[key]; got != want {
			t.Errorf("Stats()[%q] = %v, want %d", key, got, want)
		}
	}

	tr, ok := stats["time_range"].(map[string]string)
	if !ok {
		t.Fatalf("Stats()[\"time_range\"] has type %T", stats["time_range"])
	}
	if tr["min"] != "2024-03-01T09:00:00Z" || tr["max"] != "2024-03-01T10:00:00Z" {
		t.Errorf("time_range = %v", tr)
	}
}
