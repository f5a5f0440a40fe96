package declare

import (
	"context"
	"fmt"

	dferrors "github.com/declareflow/declareflow/pkg/errors"
	"github.com/declareflow/declareflow/pkg/ocel"
)

// Outcome is the per-constraint result of a checking pass: a conformance
// score, or the reason scoring failed. One bad constraint never aborts the
// batch; its outcome carries the error and its conformance stays nil.
type Outcome struct {
	Constraint *Constraint
	Score      *float64
	Err        error
}

// Failed reports whether this constraint could not be evaluated.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Report is the result of one checking pass. Set holds the same constraint
// identities that were passed in, with mutated Conformance fields; Outcomes
// holds per-item diagnostics in the same order.
type Report struct {
	Set      *Set
	Outcomes []Outcome
}

// Failures returns the outcomes of constraints that could not be evaluated.
func (r *Report) Failures() []Outcome {
	var failures []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failures = append(failures, o)
		}
	}
	return failures
}

// Checker scores user-supplied constraint sets against a log view.
type Checker struct {
	evaluator *Evaluator
	o2oMode   ocel.O2OMode
}

// NewChecker creates a checker without object-to-object link resolution.
func NewChecker() *Checker {
	return NewCheckerWithMode(ocel.O2ONone)
}

// NewCheckerWithMode creates a checker resolving indirect object instances
// through the O2O link graph in the given mode.
func NewCheckerWithMode(mode ocel.O2OMode) *Checker {
	return &Checker{evaluator: NewEvaluator(), o2oMode: mode}
}

// Check evaluates every constraint in the set independently and assigns its
// conformance, rounded to three decimal places. Evaluation faults —
// including panics inside the evaluator — are confined to the failing
// constraint: its conformance is set to nil and the failure is recorded in
// the report. A constraint referencing an activity absent from the view
// scores 1.0 (no occurrences, vacuously satisfied), which is the scoring
// convention, not an error.
//
// Check is idempotent: repeated passes over the same view and set yield
// identical conformance values.
func (c *Checker) Check(ctx context.Context, view *ocel.View, set *Set) (*Report, error) {
	report := &Report{
		Set:      set,
		Outcomes: make([]Outcome, 0, set.Len()),
	}

	for _, constraint := range set.Constraints {
		select {
		case <-ctx.Done():
			return nil, dferrors.ContextCanceled("check")
		default:
		}

		score, err := c.checkOne(view, constraint)
		if err != nil {
			constraint.Conformance = nil
			report.Outcomes = append(report.Outcomes, Outcome{Constraint: constraint, Err: err})
			continue
		}

		rounded := Round3(score)
		constraint.Conformance = &rounded
		report.Outcomes = append(report.Outcomes, Outcome{Constraint: constraint, Score: &rounded})
	}

	return report, nil
}

// checkOne scores a single constraint, converting panics into evaluation
// faults so the batch keeps going.
func (c *Checker) checkOne(view *ocel.View, constraint *Constraint) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dferrors.EvaluationFault(constraint.Source, constraint.Target,
				dferrors.New(dferrors.CodePanic, fmt.Sprintf("panic: %v", r)))
		}
	}()

	if vErr := constraint.Validate(); vErr != nil {
		return 0, vErr
	}

	groups, evalErr := c.evaluator.Evaluate(view, Query{
		Source:      constraint.Source,
		Target:      constraint.Target,
		Kind:        constraint.Type,
		Quantifier:  constraint.Quantifier,
		ObjectTypes: constraint.ObjectTypes,
		O2OMode:     c.o2oMode,
	})
	if evalErr != nil {
		return 0, dferrors.EvaluationFault(constraint.Source, constraint.Target, evalErr)
	}

	return ScoreGrouped(groups, constraint.Min, constraint.Max), nil
}
