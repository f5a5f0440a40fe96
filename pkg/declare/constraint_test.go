package declare

import (
	"testing"

	dferrors "github.com/declareflow/declareflow/pkg/errors"
)

func TestParseQuantifier(t *testing.T) {
	tests := []struct {
		input string
		want  Quantifier
		ok    bool
	}{
		{"All", QuantAll, true},
		{"all", QuantAll, true},
		{"Each", QuantEach, true},
		{"Any", QuantAny, true},
		{"ANY", QuantAny, true},
		{"some", QuantAll, false},
		{"", QuantAll, false},
	}

	for _, tt := range tests {
		got, ok := ParseQuantifier(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseQuantifier(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseQuantifier(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestConstraintValidate(t *testing.T) {
	valid := Constraint{
		Type:        KindEF,
		Source:      "Place Order",
		Target:      "Ship Order",
		Quantifier:  QuantEach,
		ObjectTypes: []string{"Order"},
		Min:         intPtr(1),
		Max:         intPtr(1),
	}

	tests := []struct {
		name     string
		mutate   func(c *Constraint)
		wantCode dferrors.Code
	}{
		{"valid", func(c *Constraint) {}, ""},
		{"unknown kind", func(c *Constraint) { c.Type = "XX" }, dferrors.CodeUnknownKind},
		{"missing source", func(c *Constraint) { c.Source = "" }, dferrors.CodeMissingActivity},
		{"missing target", func(c *Constraint) { c.Target = "" }, dferrors.CodeMissingActivity},
		{"unknown quantifier", func(c *Constraint) { c.Quantifier = "Some" }, dferrors.CodeUnknownQuantifier},
		{"empty object types", func(c *Constraint) { c.ObjectTypes = nil }, dferrors.CodeEmptyObjectTypes},
		{"min above max", func(c *Constraint) { c.Min = intPtr(3); c.Max = intPtr(1) }, dferrors.CodeInvalidBounds},
		{"open bounds", func(c *Constraint) { c.Min = nil; c.Max = nil }, ""},
	}

	for _, tt := range tests {
		c := valid
		tt.mutate(&c)
		err := c.Validate()

		if tt.wantCode == "" {
			if err != nil {
				t.Errorf("%s: Validate() = %v, want nil", tt.name, err)
			}
			continue
		}
		if !dferrors.IsCode(err, tt.wantCode) {
			t.Errorf("%s: Validate() = %v, want code %s", tt.name, err, tt.wantCode)
		}
	}
}

func TestFromLegacy(t *testing.T) {
	tests := []struct {
		name     string
		legacy   LegacyConstraint
		wantQ    Quantifier
		wantCode dferrors.Code
	}{
		{
			name:   "all list selects All",
			legacy: LegacyConstraint{Type: "AS", Source: "A", Target: "B", AllObjects: []string{"Order"}},
			wantQ:  QuantAll,
		},
		{
			name:   "each list selects Each",
			legacy: LegacyConstraint{Type: "EF", Source: "A", Target: "B", EachObjects: []string{"Item"}},
			wantQ:  QuantEach,
		},
		{
			name:   "any list selects Any",
			legacy: LegacyConstraint{Type: "DP", Source: "A", Target: "B", AnyObjects: []string{"Order", "Item"}},
			wantQ:  QuantAny,
		},
		{
			name:     "no list populated",
			legacy:   LegacyConstraint{Type: "EF", Source: "A", Target: "B"},
			wantCode: dferrors.CodeEmptyObjectTypes,
		},
		{
			name: "two lists populated",
			legacy: LegacyConstraint{
				Type: "EF", Source: "A", Target: "B",
				AllObjects: []string{"Order"}, AnyObjects: []string{"Item"},
			},
			wantCode: dferrors.CodeAmbiguousObjectSet,
		},
		{
			name:     "unknown kind",
			legacy:   LegacyConstraint{Type: "ZZ", Source: "A", Target: "B", AllObjects: []string{"Order"}},
			wantCode: dferrors.CodeUnknownKind,
		},
		{
			name: "inverted bounds",
			legacy: LegacyConstraint{
				Type: "EF", Source: "A", Target: "B",
				AllObjects: []string{"Order"}, Min: intPtr(2), Max: intPtr(1),
			},
			wantCode: dferrors.CodeInvalidBounds,
		},
	}

	for _, tt := range tests {
		c, err := FromLegacy(tt.legacy)

		if tt.wantCode != "" {
			if !dferrors.IsCode(err, tt.wantCode) {
				t.Errorf("%s: FromLegacy() err = %v, want code %s", tt.name, err, tt.wantCode)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: FromLegacy() err = %v", tt.name, err)
			continue
		}
		if c.Quantifier != tt.wantQ {
			t.Errorf("%s: quantifier = %v, want %v", tt.name, c.Quantifier, tt.wantQ)
		}
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	legacy := LegacyConstraint{
		Type:        "EF",
		Source:      "Place Order",
		Target:      "Ship Order",
		EachObjects: []string{"Order"},
		Min:         intPtr(1),
		Max:         intPtr(2),
	}

	c, err := FromLegacy(legacy)
	if err != nil {
		t.Fatalf("FromLegacy() err = %v", err)
	}

	back := c.ToLegacy()
	if back.Type != legacy.Type || back.Source != legacy.Source || back.Target != legacy.Target {
		t.Errorf("round trip changed identity: %+v", back)
	}
	if len(back.EachObjects) != 1 || back.EachObjects[0] != "Order" {
		t.Errorf("round trip changed object list: %v", back.EachObjects)
	}
	if len(back.AllObjects) != 0 || len(back.AnyObjects) != 0 {
		t.Errorf("round trip populated extra lists: %+v", back)
	}
	if back.Min == nil || *back.Min != 1 || back.Max == nil || *back.Max != 2 {
		t.Errorf("round trip changed bounds: min=%v max=%v", back.Min, back.Max)
	}
}

func TestNewConstraintCopiesBounds(t *testing.T) {
	min, max := 1, 3
	c, err := NewConstraint(KindEF, "A", "B", QuantAll, []string{"Order"}, &min, &max)
	if err != nil {
		t.Fatalf("NewConstraint() err = %v", err)
	}

	min = 99
	max = 99
	if *c.Min != 1 || *c.Max != 3 {
		t.Errorf("bounds aliased caller storage: min=%d max=%d", *c.Min, *c.Max)
	}
}

func TestSetHasConformance(t *testing.T) {
	set := NewSet()
	if set.ID == "" {
		t.Error("NewSet() produced an empty id")
	}

	c, err := NewConstraint(KindAS, "A", "B", QuantAny, []string{"Order"}, nil, nil)
	if err != nil {
		t.Fatalf("NewConstraint() err = %v", err)
	}
	set.Append(c)

	if set.HasConformance() {
		t.Error("HasConformance() = true before any score assigned")
	}

	score := 1.0
	c.Conformance = &score
	if !set.HasConformance() {
		t.Error("HasConformance() = false after score assigned")
	}
	if set.Len() != 1 {
		t.Errorf("Len() = %d, want 1", set.Len())
	}
}
