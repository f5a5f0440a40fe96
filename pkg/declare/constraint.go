// Package declare implements OC-DECLARE constraint discovery and conformance
// checking over object-centric event logs.
//
// An OC-DECLARE constraint (arc) relates two activities through a temporal
// relation kind, an object quantification, and cardinality bounds on the
// number of qualifying target occurrences per source occurrence.
package declare

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	dferrors "github.com/declareflow/declareflow/pkg/errors"
)

// RelationKind is the temporal predicate between a source occurrence and a
// candidate target occurrence sharing a qualifying object binding.
type RelationKind string

const (
	// KindAS: target exists for the same binding, order-independent.
	KindAS RelationKind = "AS"
	// KindEF: some target occurs strictly after the source (eventually-follows).
	KindEF RelationKind = "EF"
	// KindEP: some target occurs strictly before the source (eventually-precedes).
	KindEP RelationKind = "EP"
	// KindDF: the next event of either activity after the source is the target.
	KindDF RelationKind = "DF"
	// KindDP: the previous event of either activity before the source is the target.
	KindDP RelationKind = "DP"
)

// Kinds lists all relation kinds in canonical order.
var Kinds = []RelationKind{KindAS, KindEF, KindEP, KindDF, KindDP}

// Valid reports whether the kind is one of the five known relation kinds.
func (k RelationKind) Valid() bool {
	switch k {
	case KindAS, KindEF, KindEP, KindDF, KindDP:
		return true
	default:
		return false
	}
}

// Quantifier is the policy for aggregating counts across multiple object
// instances of a type.
type Quantifier string

const (
	// QuantAll counts over the full instance set: a target occurrence
	// qualifies only when it shares every resolved instance.
	QuantAll Quantifier = "All"
	// QuantEach computes a separate count per instance; the bound must hold
	// for every instance.
	QuantEach Quantifier = "Each"
	// QuantAny counts over the union: a target occurrence qualifies when it
	// shares at least one resolved instance.
	QuantAny Quantifier = "Any"
)

// Quantifiers lists all quantification modes in discovery preference order.
var Quantifiers = []Quantifier{QuantAll, QuantEach, QuantAny}

// Valid reports whether the quantifier is known.
func (q Quantifier) Valid() bool {
	switch q {
	case QuantAll, QuantEach, QuantAny:
		return true
	default:
		return false
	}
}

// ParseQuantifier parses a quantifier, case-insensitively.
func ParseQuantifier(s string) (Quantifier, bool) {
	switch strings.ToLower(s) {
	case "all":
		return QuantAll, true
	case "each":
		return QuantEach, true
	case "any":
		return QuantAny, true
	default:
		return "", false
	}
}

// Constraint is the canonical OC-DECLARE constraint representation.
//
// Min and Max are optional cardinality bounds; both absent means "no bound,
// report raw support only". Conformance stays nil until scored and reverts
// to nil after a failed scoring attempt. Only the batch checker mutates it.
type Constraint struct {
	Type        RelationKind `json:"type" yaml:"type"`
	Source      string       `json:"source" yaml:"source"`
	Target      string       `json:"target" yaml:"target"`
	Quantifier  Quantifier   `json:"quantifier" yaml:"quantifier"`
	ObjectTypes []string     `json:"object_types" yaml:"object_types"`
	Min         *int         `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *int         `json:"max,omitempty" yaml:"max,omitempty"`
	Conformance *float64     `json:"conformance,omitempty" yaml:"conformance,omitempty"`
}

// Validate performs the structural checks applied at construction time.
// Reference problems (activities or object types absent from a log) are not
// structural and are handled at evaluation time.
func (c *Constraint) Validate() error {
	if !c.Type.Valid() {
		return dferrors.New(dferrors.CodeUnknownKind, "unknown relation kind").
			WithContext("type", string(c.Type))
	}
	if c.Source == "" || c.Target == "" {
		return dferrors.New(dferrors.CodeMissingActivity, "source and target activities are required")
	}
	if !c.Quantifier.Valid() {
		return dferrors.New(dferrors.CodeUnknownQuantifier, "unknown quantifier").
			WithContext("quantifier", string(c.Quantifier))
	}
	if len(c.ObjectTypes) == 0 {
		return dferrors.EmptyObjectTypes(string(c.Quantifier))
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return dferrors.InvalidBounds(*c.Min, *c.Max)
	}
	return nil
}

// NewConstraint builds and validates a constraint.
func NewConstraint(kind RelationKind, source, target string, quantifier Quantifier, objectTypes []string, min, max *int) (*Constraint, error) {
	c := &Constraint{
		Type:        kind,
		Source:      source,
		Target:      target,
		Quantifier:  quantifier,
		ObjectTypes: objectTypes,
	}
	if min != nil {
		v := *min
		c.Min = &v
	}
	if max != nil {
		v := *max
		c.Max = &v
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// String renders the constraint for diagnostics.
func (c *Constraint) String() string {
	bound := func(v *int) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%d", *v)
	}
	return fmt.Sprintf("%s(%s -> %s, %s{%s}, [%s,%s])",
		c.Type, c.Source, c.Target, c.Quantifier,
		strings.Join(c.ObjectTypes, ","), bound(c.Min), bound(c.Max))
}

// LegacyConstraint is the older constraint schema carrying three parallel
// object-type lists instead of a quantifier plus one set. The lists are
// mutually exclusive by construction; populating more than one is rejected
// as a structural error rather than guessed at.
type LegacyConstraint struct {
	Type        string   `json:"type" yaml:"type"`
	Source      string   `json:"source" yaml:"source"`
	Target      string   `json:"target" yaml:"target"`
	AnyObjects  []string `json:"any_objects,omitempty" yaml:"any_objects,omitempty"`
	AllObjects  []string `json:"all_objects,omitempty" yaml:"all_objects,omitempty"`
	EachObjects []string `json:"each_objects,omitempty" yaml:"each_objects,omitempty"`
	Min         *int     `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *int     `json:"max,omitempty" yaml:"max,omitempty"`
}

// FromLegacy collapses the three-list legacy schema to the canonical
// quantifier form.
func FromLegacy(lc LegacyConstraint) (*Constraint, error) {
	var populated []string
	var quantifier Quantifier
	var objectTypes []string

	if len(lc.AllObjects) > 0 {
		populated = append(populated, "all_objects")
		quantifier = QuantAll
		objectTypes = lc.AllObjects
	}
	if len(lc.EachObjects) > 0 {
		populated = append(populated, "each_objects")
		quantifier = QuantEach
		objectTypes = lc.EachObjects
	}
	if len(lc.AnyObjects) > 0 {
		populated = append(populated, "any_objects")
		quantifier = QuantAny
		objectTypes = lc.AnyObjects
	}

	if len(populated) > 1 {
		return nil, dferrors.AmbiguousObjectSet(populated)
	}
	if len(populated) == 0 {
		return nil, dferrors.EmptyObjectTypes("(legacy)")
	}

	return NewConstraint(RelationKind(lc.Type), lc.Source, lc.Target, quantifier, objectTypes, lc.Min, lc.Max)
}

// ToLegacy renders the canonical form back into the three-list schema for
// callers still using it.
func (c *Constraint) ToLegacy() LegacyConstraint {
	lc := LegacyConstraint{
		Type:   string(c.Type),
		Source: c.Source,
		Target: c.Target,
		Min:    c.Min,
		Max:    c.Max,
	}
	switch c.Quantifier {
	case QuantAll:
		lc.AllObjects = c.ObjectTypes
	case QuantEach:
		lc.EachObjects = c.ObjectTypes
	case QuantAny:
		lc.AnyObjects = c.ObjectTypes
	}
	return lc
}

// Set is an ordered constraint result set produced by one discovery or
// checking pass. Insertion order is preserved for display stability.
type Set struct {
	ID          string        `json:"id" yaml:"id"`
	Constraints []*Constraint `json:"constraints" yaml:"constraints"`
}

// NewSet creates an empty result set with a fresh identity.
func NewSet() *Set {
	return &Set{
		ID:          uuid.NewString(),
		Constraints: make([]*Constraint, 0),
	}
}

// Append adds constraints preserving insertion order.
func (s *Set) Append(constraints ...*Constraint) {
	s.Constraints = append(s.Constraints, constraints...)
}

// Len returns the number of constraints in the set.
func (s *Set) Len() int {
	return len(s.Constraints)
}

// HasConformance reports whether any constraint carries a conformance value.
// The tabular rendering layer keys the presence of its conformance column
// off this.
func (s *Set) HasConformance() bool {
	for _, c := range s.Constraints {
		if c.Conformance != nil {
			return true
		}
	}
	return false
}
