package declare

import (
	"github.com/RoaringBitmap/roaring"

	dferrors "github.com/declareflow/declareflow/pkg/errors"
	"github.com/declareflow/declareflow/pkg/ocel"
)

// Query describes one relation evaluation: a source/target activity pair, a
// relation kind, a quantification mode with its object-type set, and the
// object-to-object resolution mode.
type Query struct {
	Source      string
	Target      string
	Kind        RelationKind
	Quantifier  Quantifier
	ObjectTypes []string
	O2OMode     ocel.O2OMode
}

// Evaluator computes per-occurrence binding counts for a relation query.
//
// It is stateless and side-effect free: all indices live in the immutable
// View, set operations allocate fresh bitmaps, and evaluations for distinct
// queries may run concurrently over the same View.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns one CountVector per occurrence of the source activity in
// global event order. Under All/Any quantification each vector holds a
// single count; under Each it holds one count per resolved object instance.
//
// A source activity absent from the view yields an empty result, not an
// error. Simultaneous timestamps are ordered by original log order (the
// View's position assignment), which makes DF/DP adjacency deterministic.
func (ev *Evaluator) Evaluate(view *ocel.View, q Query) ([]CountVector, error) {
	if !q.Kind.Valid() {
		return nil, dferrors.New(dferrors.CodeUnknownKind, "unknown relation kind").
			WithContext("type", string(q.Kind))
	}
	if !q.Quantifier.Valid() {
		return nil, dferrors.New(dferrors.CodeUnknownQuantifier, "unknown quantifier").
			WithContext("quantifier", string(q.Quantifier))
	}

	occurrences := view.Occurrences(q.Source)
	results := make([]CountVector, 0, len(occurrences))
	if len(occurrences) == 0 {
		return results, nil
	}

	sourceBM := view.ActivityBitmap(q.Source)
	targetBM := view.ActivityBitmap(q.Target)
	eitherBM := roaring.Or(sourceBM, targetBM)

	for _, pos := range occurrences {
		instances := resolveInstances(view, pos, q.ObjectTypes, q.O2OMode)

		switch q.Quantifier {
		case QuantEach:
			vec := make(CountVector, 0, len(instances))
			for _, objectID := range instances {
				count, err := ev.countBinding(view, view.ObjectBitmap(objectID), pos, q.Kind, targetBM, eitherBM)
				if err != nil {
					return nil, err
				}
				vec = append(vec, count)
			}
			results = append(results, vec)

		default: // QuantAll, QuantAny
			binding := combineInstances(view, instances, q.Quantifier)
			if binding == nil {
				// No instance of the requested type(s) can bind here.
				results = append(results, CountVector{0})
				continue
			}
			count, err := ev.countBinding(view, binding, pos, q.Kind, targetBM, eitherBM)
			if err != nil {
				return nil, err
			}
			results = append(results, CountVector{count})
		}
	}

	return results, nil
}

// countBinding counts the target occurrences qualifying for one binding
// position set under the given relation kind.
func (ev *Evaluator) countBinding(view *ocel.View, binding *roaring.Bitmap, pos uint32, kind RelationKind, targetBM, eitherBM *roaring.Bitmap) (int, error) {
	var count int

	switch kind {
	case KindAS:
		shared := roaring.And(binding, targetBM)
		count = int(shared.GetCardinality())
		// The source event itself never counts as its own co-occurrence.
		if shared.Contains(pos) {
			count--
		}

	case KindEF:
		shared := roaring.And(binding, targetBM)
		count = int(shared.GetCardinality() - shared.Rank(pos))

	case KindEP:
		shared := roaring.And(binding, targetBM)
		count = int(shared.Rank(pos))
		if shared.Contains(pos) {
			count--
		}

	case KindDF:
		timeline := roaring.And(binding, eitherBM)
		if next, ok := successor(timeline, pos); ok && targetBM.Contains(next) {
			count = 1
		}

	case KindDP:
		timeline := roaring.And(binding, eitherBM)
		if prev, ok := predecessor(timeline, pos); ok && targetBM.Contains(prev) {
			count = 1
		}
	}

	if count < 0 {
		return 0, dferrors.New(dferrors.CodeNegativeCount, "negative binding count").
			WithContext("kind", string(kind)).
			WithContext("position", pos)
	}
	return count, nil
}

// resolveInstances returns the object instances of the requested types bound
// to the occurrence at pos: the directly attached instances of each type,
// expanded through the O2O link graph per the resolution mode only when the
// type is not directly attached. Attachment order is kept deterministic.
func resolveInstances(view *ocel.View, pos uint32, objectTypes []string, mode ocel.O2OMode) []string {
	attached := view.Attached(pos)

	var instances []string
	dedup := make(map[string]bool)
	add := func(id string) {
		if !dedup[id] {
			dedup[id] = true
			instances = append(instances, id)
		}
	}

	for _, objType := range objectTypes {
		direct := false
		for _, ref := range attached {
			if ref.Type == objType {
				add(ref.ID)
				direct = true
			}
		}
		if direct || mode == ocel.O2ONone {
			continue
		}
		for _, ref := range attached {
			for _, id := range view.Related(ref.ID, objType, mode) {
				add(id)
			}
		}
	}

	return instances
}

// combineInstances merges instance position sets per the quantifier: the
// intersection for All (events carrying every instance), the union for Any.
// Nil marks an empty instance set.
func combineInstances(view *ocel.View, instances []string, quantifier Quantifier) *roaring.Bitmap {
	if len(instances) == 0 {
		return nil
	}

	if quantifier == QuantAny {
		bitmaps := make([]*roaring.Bitmap, 0, len(instances))
		for _, id := range instances {
			bitmaps = append(bitmaps, view.ObjectBitmap(id))
		}
		return roaring.FastOr(bitmaps...)
	}

	combined := view.ObjectBitmap(instances[0]).Clone()
	for _, id := range instances[1:] {
		combined.And(view.ObjectBitmap(id))
	}
	return combined
}

// successor returns the smallest position in bm strictly greater than pos.
func successor(bm *roaring.Bitmap, pos uint32) (uint32, bool) {
	it := bm.Iterator()
	it.AdvanceIfNeeded(pos + 1)
	if it.HasNext() {
		return it.Next(), true
	}
	return 0, false
}

// predecessor returns the largest position in bm strictly smaller than pos.
func predecessor(bm *roaring.Bitmap, pos uint32) (uint32, bool) {
	rank := bm.Rank(pos)
	if bm.Contains(pos) {
		rank--
	}
	if rank == 0 {
		return 0, false
	}
	prev, err := bm.Select(uint32(rank - 1))
	if err != nil {
		return 0, false
	}
	return prev, true
}
