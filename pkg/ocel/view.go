package ocel

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// O2OMode selects which directions of the object-to-object link graph are
// traversed when resolving object instances that are not directly attached
// to an event.
type O2OMode int

const (
	// O2ONone disables indirect resolution.
	O2ONone O2OMode = iota
	// O2ODirect follows O2O edges source -> target.
	O2ODirect
	// O2OReversed follows O2O edges target -> source.
	O2OReversed
	// O2OBidirectional follows edges in both directions.
	O2OBidirectional
)

func (m O2OMode) String() string {
	switch m {
	case O2ONone:
		return "None"
	case O2ODirect:
		return "Direct"
	case O2OReversed:
		return "Reversed"
	case O2OBidirectional:
		return "Bidirectional"
	default:
		return "unknown"
	}
}

// ParseO2OMode parses a string into an O2OMode.
// Unknown values report false.
func ParseO2OMode(s string) (O2OMode, bool) {
	switch s {
	case "None", "none", "":
		return O2ONone, true
	case "Direct", "direct":
		return O2ODirect, true
	case "Reversed", "reversed":
		return O2OReversed, true
	case "Bidirectional", "bidirectional":
		return O2OBidirectional, true
	default:
		return O2ONone, false
	}
}

// ObjectRef is a typed object reference attached to an event.
type ObjectRef struct {
	ID   string
	Type string
}

// View is an immutable, indexed snapshot of a Log.
//
// Events get a global position assigned by sorting on (timestamp, ingestion
// sequence); the sequence breaks simultaneous-timestamp ties deterministically
// by original log order. Per-activity and per-object position sets are kept
// as roaring bitmaps so that relation evaluation reduces to bitmap
// intersections and rank queries instead of log re-scans.
//
// A View must be built after the log is fully loaded and never observes
// later mutations; evaluations over one View are safe to run concurrently.
type View struct {
	order []*Event // position -> event

	byActivity     map[string][]uint32
	activityBitmap map[string]*roaring.Bitmap
	objectBitmap   map[string]*roaring.Bitmap

	attached    [][]ObjectRef // position -> refs in E2O insertion order
	objectType  map[string]string
	actObjTypes map[string][]string // activity -> object types, first-seen order

	o2oOut map[string][]string
	o2oIn  map[string][]string

	emptyBitmap *roaring.Bitmap
}

// NewView builds an indexed view over the given log.
func NewView(log *Log) *View {
	v := &View{
		byActivity:     make(map[string][]uint32),
		activityBitmap: make(map[string]*roaring.Bitmap),
		objectBitmap:   make(map[string]*roaring.Bitmap),
		objectType:     make(map[string]string),
		actObjTypes:    make(map[string][]string),
		o2oOut:         make(map[string][]string),
		o2oIn:          make(map[string][]string),
		emptyBitmap:    roaring.New(),
	}

	v.order = make([]*Event, 0, len(log.Events))
	for _, event := range log.Events {
		v.order = append(v.order, event)
	}
	sort.Slice(v.order, func(i, j int) bool {
		if !v.order[i].Timestamp.Equal(v.order[j].Timestamp) {
			return v.order[i].Timestamp.Before(v.order[j].Timestamp)
		}
		return v.order[i].Seq < v.order[j].Seq
	})

	posByEventID := make(map[string]uint32, len(v.order))
	v.attached = make([][]ObjectRef, len(v.order))
	for pos, event := range v.order {
		p := uint32(pos)
		posByEventID[event.ID] = p

		v.byActivity[event.Activity] = append(v.byActivity[event.Activity], p)
		bm, ok := v.activityBitmap[event.Activity]
		if !ok {
			bm = roaring.New()
			v.activityBitmap[event.Activity] = bm
		}
		bm.Add(p)
	}

	for id, obj := range log.Objects {
		v.objectType[id] = obj.Type
	}

	// E2O: per-event attachment lists (insertion order) and per-object
	// position bitmaps.
	for _, e2o := range log.E2ORelations {
		pos, ok := posByEventID[e2o.EventID]
		if !ok {
			continue
		}
		objType, ok := v.objectType[e2o.ObjectID]
		if !ok {
			continue
		}

		v.attached[pos] = append(v.attached[pos], ObjectRef{ID: e2o.ObjectID, Type: objType})

		bm, ok := v.objectBitmap[e2o.ObjectID]
		if !ok {
			bm = roaring.New()
			v.objectBitmap[e2o.ObjectID] = bm
		}
		bm.Add(pos)
	}

	// Object types co-occurring with each activity, in first-seen order over
	// the global event order.
	seen := make(map[string]map[string]bool)
	for pos, event := range v.order {
		types := seen[event.Activity]
		if types == nil {
			types = make(map[string]bool)
			seen[event.Activity] = types
		}
		for _, ref := range v.attached[pos] {
			if !types[ref.Type] {
				types[ref.Type] = true
				v.actObjTypes[event.Activity] = append(v.actObjTypes[event.Activity], ref.Type)
			}
		}
	}

	for _, o2o := range log.O2ORelations {
		v.o2oOut[o2o.SourceID] = append(v.o2oOut[o2o.SourceID], o2o.TargetID)
		v.o2oIn[o2o.TargetID] = append(v.o2oIn[o2o.TargetID], o2o.SourceID)
	}

	return v
}

// Len returns the number of events in the view.
func (v *View) Len() int {
	return len(v.order)
}

// EventAt returns the event at a global position.
func (v *View) EventAt(pos uint32) *Event {
	return v.order[pos]
}

// Activities returns all activities in the view, sorted.
func (v *View) Activities() []string {
	acts := make([]string, 0, len(v.byActivity))
	for a := range v.byActivity {
		acts = append(acts, a)
	}
	sort.Strings(acts)
	return acts
}

// HasActivity reports whether the activity occurs in the view.
func (v *View) HasActivity(activity string) bool {
	_, ok := v.byActivity[activity]
	return ok
}

// Occurrences returns the global positions of an activity's events in order.
// Unknown activities yield an empty slice.
func (v *View) Occurrences(activity string) []uint32 {
	return v.byActivity[activity]
}

// ActivityBitmap returns the position set of an activity's events.
// The returned bitmap is shared and must not be mutated.
func (v *View) ActivityBitmap(activity string) *roaring.Bitmap {
	if bm, ok := v.activityBitmap[activity]; ok {
		return bm
	}
	return v.emptyBitmap
}

// ObjectBitmap returns the position set of events directly carrying an object.
// The returned bitmap is shared and must not be mutated.
func (v *View) ObjectBitmap(objectID string) *roaring.Bitmap {
	if bm, ok := v.objectBitmap[objectID]; ok {
		return bm
	}
	return v.emptyBitmap
}

// Attached returns the typed object references attached to the event at pos,
// in E2O insertion order.
func (v *View) Attached(pos uint32) []ObjectRef {
	return v.attached[pos]
}

// ObjectType returns the type of an object, or "" if unknown.
func (v *View) ObjectType(objectID string) string {
	return v.objectType[objectID]
}

// ObjectTypesFor returns the object types co-occurring with an activity in
// first-seen order.
func (v *View) ObjectTypesFor(activity string) []string {
	return v.actObjTypes[activity]
}

// Related returns the objects of targetType reachable from objectID via one
// hop of the O2O graph in the directions the mode allows. O2ONone always
// yields nil. Duplicates are removed; edge insertion order is preserved.
func (v *View) Related(objectID, targetType string, mode O2OMode) []string {
	if mode == O2ONone {
		return nil
	}

	var result []string
	dedup := make(map[string]bool)

	add := func(ids []string) {
		for _, id := range ids {
			if dedup[id] || v.objectType[id] != targetType {
				continue
			}
			dedup[id] = true
			result = append(result, id)
		}
	}

	if mode == O2ODirect || mode == O2OBidirectional {
		add(v.o2oOut[objectID])
	}
	if mode == O2OReversed || mode == O2OBidirectional {
		add(v.o2oIn[objectID])
	}

	return result
}
