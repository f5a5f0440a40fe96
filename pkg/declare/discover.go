package declare

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	dferrors "github.com/declareflow/declareflow/pkg/errors"
	"github.com/declareflow/declareflow/pkg/ocel"
)

// DiscoverOptions configures a discovery pass.
type DiscoverOptions struct {
	// Threshold is the minimum support for a constraint to be retained,
	// in (0, 1].
	Threshold float64

	// ActsToUse restricts the candidate activities. Empty means all
	// activities in the view.
	ActsToUse []string

	// O2OMode selects object-to-object link resolution.
	O2OMode ocel.O2OMode

	// CheckConformance additionally scores each retained constraint against
	// its own derived bounds. By construction this yields 1.0; it is kept
	// for schema symmetry with manually authored constraints.
	CheckConformance bool

	// Workers is the number of parallel pair evaluations. 0 means NumCPU.
	Workers int

	// OnProgress, if set, is invoked after each candidate pair completes.
	// It may be called from multiple goroutines.
	OnProgress func(done, total int)
}

// DefaultThreshold is the discovery support threshold used when none is given.
const DefaultThreshold = 0.2

// Discoverer enumerates candidate activity pairs, relation kinds,
// quantification modes and object-type sets, and retains the constraints
// meeting the support threshold.
type Discoverer struct {
	evaluator *Evaluator
}

// NewDiscoverer creates a discoverer.
func NewDiscoverer() *Discoverer {
	return &Discoverer{evaluator: NewEvaluator()}
}

type pair struct {
	source, target string
}

// candidate is the best-scoring quantifier/object-type-set combination for
// one (source, target, kind).
type candidate struct {
	quantifier  Quantifier
	objectTypes []string
	support     float64
	groups      []CountVector
	flat        []int
}

// Discover runs a discovery pass over the view.
//
// Candidate pairs are evaluated by a worker pool with no cross-worker
// coordination; the view is immutable for the duration of the pass.
// Cancellation is cooperative and checked between candidate pairs, never
// mid-evaluation. Output order is deterministic: pairs in enumeration
// order, kinds in canonical order.
func (d *Discoverer) Discover(ctx context.Context, view *ocel.View, opts DiscoverOptions) (*Set, error) {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		return nil, dferrors.InvalidThreshold(opts.Threshold)
	}

	acts := opts.ActsToUse
	if len(acts) == 0 {
		acts = view.Activities()
	}

	// Activities absent from the log produce no occurrences on either side
	// of a pair and are skipped silently.
	usable := make([]string, 0, len(acts))
	seen := make(map[string]bool)
	for _, a := range acts {
		if seen[a] || !view.HasActivity(a) {
			continue
		}
		seen[a] = true
		usable = append(usable, a)
	}

	pairs := make([]pair, 0, len(usable)*(len(usable)-1))
	for _, source := range usable {
		for _, target := range usable {
			if source != target {
				pairs = append(pairs, pair{source: source, target: target})
			}
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pairs) && len(pairs) > 0 {
		workers = len(pairs)
	}

	// Per-pair result slots keep assembly order independent of worker
	// scheduling.
	results := make([][]*Constraint, len(pairs))
	jobs := make(chan int)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range pairs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return dferrors.ContextCanceled("discover")
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				select {
				case <-gctx.Done():
					return dferrors.ContextCanceled("discover")
				default:
				}

				constraints, err := d.discoverPair(view, pairs[i], opts)
				if err != nil {
					return err
				}
				results[i] = constraints

				if opts.OnProgress != nil {
					opts.OnProgress(int(done.Add(1)), len(pairs))
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := NewSet()
	for _, constraints := range results {
		set.Append(constraints...)
	}
	return set, nil
}

// discoverPair evaluates all kinds, quantifiers and candidate object-type
// sets for one activity pair and returns the retained constraints in kind
// order.
func (d *Discoverer) discoverPair(view *ocel.View, p pair, opts DiscoverOptions) ([]*Constraint, error) {
	// Candidate sets: the object types co-occurring with the source
	// activity, one singleton set each, in first-seen order.
	candidateTypes := view.ObjectTypesFor(p.source)
	if len(candidateTypes) == 0 {
		return nil, nil
	}

	var constraints []*Constraint

	for _, kind := range Kinds {
		var best *candidate

		// Quantifier preference All > Each > Any, then first-seen set
		// order: iterating in that order and replacing only on strictly
		// higher support realizes the tie-break.
		for _, quantifier := range Quantifiers {
			for _, objType := range candidateTypes {
				groups, err := d.evaluator.Evaluate(view, Query{
					Source:      p.source,
					Target:      p.target,
					Kind:        kind,
					Quantifier:  quantifier,
					ObjectTypes: []string{objType},
					O2OMode:     opts.O2OMode,
				})
				if err != nil {
					return nil, err
				}

				flat := Flatten(groups)
				support := Support(flat)
				if support < opts.Threshold {
					continue
				}
				if best == nil || support > best.support {
					best = &candidate{
						quantifier:  quantifier,
						objectTypes: []string{objType},
						support:     support,
						groups:      groups,
						flat:        flat,
					}
				}
			}
		}

		if best == nil {
			continue
		}

		min, max := BoundsFromCounts(best.flat)
		constraint, err := NewConstraint(kind, p.source, p.target, best.quantifier, best.objectTypes, min, max)
		if err != nil {
			return nil, err
		}

		if opts.CheckConformance {
			score := Round3(ScoreGrouped(best.groups, constraint.Min, constraint.Max))
			constraint.Conformance = &score
		}

		constraints = append(constraints, constraint)
	}

	return constraints, nil
}
