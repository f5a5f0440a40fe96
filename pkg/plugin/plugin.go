// Package plugin exposes the engine to host runtimes.
//
// Hosts see three operations — Discover, CreateConstraints, Check — each
// taking a log view handle and returning a constraint result set. Input
// validation happens here, before the engine is invoked; the host is only
// expected to have resolved pickers (activities, object types) against the
// log.
package plugin

import (
	"context"

	"github.com/declareflow/declareflow/pkg/declare"
	dferrors "github.com/declareflow/declareflow/pkg/errors"
	"github.com/declareflow/declareflow/pkg/ocel"
)

// Info describes the plugin to the host.
type Info struct {
	Label       string
	Description string
	Version     string
	Operations  []string
}

// Describe returns the plugin metadata.
func Describe() Info {
	return Info{
		Label:       "OC Declare",
		Description: "Object-Centric Declare constraint discovery and conformance checking",
		Version:     "0.1.1",
		Operations:  []string{"discover", "create", "check"},
	}
}

// Engine bundles the discovery and checking entry points behind one handle.
type Engine struct {
	discoverer *declare.Discoverer
}

// NewEngine creates a plugin engine.
func NewEngine() *Engine {
	return &Engine{discoverer: declare.NewDiscoverer()}
}

// DiscoverInput is the host-supplied input for a discovery pass.
type DiscoverInput struct {
	// Threshold is the support gate in (0, 1]. Zero selects the default.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// ActsToUse restricts candidate activities; empty means all.
	ActsToUse []string `json:"acts_to_use" yaml:"acts_to_use"`

	// O2OMode is one of None, Direct, Reversed, Bidirectional.
	O2OMode string `json:"o2o_mode" yaml:"o2o_mode"`

	// CheckConformance scores retained constraints against their own bounds.
	CheckConformance bool `json:"check_conformance" yaml:"check_conformance"`

	// Workers bounds parallelism; 0 = auto.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// OnProgress, if set, receives per-pair progress updates.
	OnProgress func(done, total int) `json:"-" yaml:"-"`
}

// Discover runs constraint discovery over the view.
func (e *Engine) Discover(ctx context.Context, view *ocel.View, input DiscoverInput) (*declare.Set, error) {
	threshold := input.Threshold
	if threshold == 0 {
		threshold = declare.DefaultThreshold
	}
	if threshold <= 0 || threshold > 1 {
		return nil, dferrors.InvalidThreshold(threshold)
	}

	mode, ok := ocel.ParseO2OMode(input.O2OMode)
	if !ok {
		return nil, dferrors.New(dferrors.CodeUnknownO2OMode, "unknown o2o mode").
			WithContext("mode", input.O2OMode)
	}

	return e.discoverer.Discover(ctx, view, declare.DiscoverOptions{
		Threshold:        threshold,
		ActsToUse:        input.ActsToUse,
		O2OMode:          mode,
		CheckConformance: input.CheckConformance,
		Workers:          input.Workers,
		OnProgress:       input.OnProgress,
	})
}

// ConstraintInput is one manually authored constraint in the legacy
// three-list schema. Min and Max carry zero or one element each, mirroring
// the host's optional numeric fields.
type ConstraintInput struct {
	Type        string   `json:"type" yaml:"type"`
	Source      string   `json:"source" yaml:"source"`
	Target      string   `json:"target" yaml:"target"`
	AnyObjects  []string `json:"any_objects,omitempty" yaml:"any_objects,omitempty"`
	AllObjects  []string `json:"all_objects,omitempty" yaml:"all_objects,omitempty"`
	EachObjects []string `json:"each_objects,omitempty" yaml:"each_objects,omitempty"`
	Min         []int    `json:"min,omitempty" yaml:"min,omitempty"`
	Max         []int    `json:"max,omitempty" yaml:"max,omitempty"`
}

// CreateInput is the host-supplied input for manual constraint creation.
type CreateInput struct {
	Constraints      []ConstraintInput `json:"constraints" yaml:"constraints"`
	CheckConformance bool              `json:"check_conformance" yaml:"check_conformance"`
}

// CreateConstraints builds a result set from manually authored constraints,
// optionally checking conformance against the view. Structural problems in
// any input constraint reject the call; conformance problems never do.
func (e *Engine) CreateConstraints(ctx context.Context, view *ocel.View, input CreateInput) (*declare.Set, *declare.Report, error) {
	set := declare.NewSet()

	for i, ci := range input.Constraints {
		constraint, err := declare.FromLegacy(declare.LegacyConstraint{
			Type:        ci.Type,
			Source:      ci.Source,
			Target:      ci.Target,
			AnyObjects:  ci.AnyObjects,
			AllObjects:  ci.AllObjects,
			EachObjects: ci.EachObjects,
			Min:         headOf(ci.Min),
			Max:         headOf(ci.Max),
		})
		if err != nil {
			return nil, nil, dferrors.Wrapf(err, dferrors.GetCode(err), "constraint %d", i)
		}
		set.Append(constraint)
	}

	if !input.CheckConformance {
		return set, nil, nil
	}

	report, err := declare.NewChecker().Check(ctx, view, set)
	if err != nil {
		return nil, nil, err
	}
	return set, report, nil
}

// Check scores a previously built constraint set against the view. Every
// input constraint yields a result; items that could not be evaluated keep
// a nil conformance and carry their failure in the report.
func (e *Engine) Check(ctx context.Context, view *ocel.View, set *declare.Set) (*declare.Report, error) {
	return declare.NewChecker().Check(ctx, view, set)
}

func headOf(values []int) *int {
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
