package connectx

import (
	"math"
	"reflect"
	"testing"
)

func categoryFacet() HierarchicalFacet {
	return HierarchicalFacet{
		Name:       "lvl0",
		Attributes: []string{"lvl0", "lvl1", "lvl2"},
	}
}

func TestAddHierarchicalFacet(t *testing.T) {
	p := NewSearchParameters().AddHierarchicalFacet(categoryFacet())
	facet, ok := p.HierarchicalFacet("lvl0")
	if !ok {
		t.Fatal("Expected facet to be declared")
	}
	if facet.Separator != DefaultSeparator {
		t.Errorf("Expected default separator, got %q", facet.Separator)
	}

	again := p.AddHierarchicalFacet(HierarchicalFacet{Name: "lvl0", Attributes: []string{"x"}})
	if !reflect.DeepEqual(again, p) {
		t.Error("Expected declaring a facet twice to be a no-op")
	}
}

func TestToggleHierarchicalFacetRefinement(t *testing.T) {
	base := NewSearchParameters().AddHierarchicalFacet(categoryFacet())

	tests := []struct {
		name    string
		current string
		toggle  string
		want    []string
	}{
		{"NewValue", "", "A > B", []string{"A > B"}},
		{"ReplaceSibling", "A > B", "A > C", []string{"A > C"}},
		{"RefinedGoesUp", "A > B > C", "A > B > C", []string{"A > B"}},
		{"AncestorGoesUp", "A > B > C", "A > B", []string{"A"}},
		{"RootClears", "A > B", "A", nil},
		{"RefinedRootClears", "A", "A", nil},
		{"PrefixIsNotAncestor", "AB > C", "A", []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			if tt.current != "" {
				p = p.ToggleHierarchicalFacetRefinement("lvl0", tt.current)
			}
			got := p.ToggleHierarchicalFacetRefinement("lvl0", tt.toggle).HierarchicalRefinement("lvl0")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("UndeclaredFacet", func(t *testing.T) {
		p := NewSearchParameters().ToggleHierarchicalFacetRefinement("nope", "A")
		if refs := p.HierarchicalRefinement("nope"); len(refs) != 0 {
			t.Errorf("Expected no refinement, got %v", refs)
		}
	})
}

func TestSearchParametersImmutable(t *testing.T) {
	base := NewSearchParameters(WithIndex("products")).
		AddHierarchicalFacet(categoryFacet()).
		ToggleHierarchicalFacetRefinement("lvl0", "A").
		AddNumericRefinement("price", OpGte, 10)
	snapshot := mustKey(t, base)

	_ = base.ToggleHierarchicalFacetRefinement("lvl0", "B")
	_ = base.AddNumericRefinement("price", OpGte, 20)
	_ = base.AddFacet("brand")
	_ = base.WithoutRefinements("price")
	_ = base.SetPage(3)

	if got := mustKey(t, base); got != snapshot {
		t.Errorf("Expected base parameters to be unchanged, got %s", got)
	}
}

func TestNumericRefinements(t *testing.T) {
	p := NewSearchParameters().
		AddNumericRefinement("price", OpGte, 10).
		AddNumericRefinement("price", OpGte, 10).
		AddNumericRefinement("price", OpLte, 30)

	want := map[Operator][]float64{OpGte: {10}, OpLte: {30}}
	if got := p.NumericRefinements("price"); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	got := p.NumericRefinements("price")
	got[OpGte][0] = 99
	if p.NumericRefinements("price")[OpGte][0] != 10 {
		t.Error("NumericRefinements leaked internal state")
	}
}

func TestRefinedFacets(t *testing.T) {
	p := NewSearchParameters().
		AddHierarchicalFacet(categoryFacet()).
		ToggleHierarchicalFacetRefinement("lvl0", "A").
		AddNumericRefinement("price", OpGte, 1).
		AddNumericRefinement("price", OpLte, 2).
		AddNumericRefinement("age", OpLt, 3)

	if got := p.RefinedFacets(); !reflect.DeepEqual(got, []string{"age", "lvl0", "price"}) {
		t.Errorf("Unexpected refined facets %v", got)
	}
	if got := p.WithoutRefinements("price").RefinedFacets(); !reflect.DeepEqual(got, []string{"age", "lvl0"}) {
		t.Errorf("Unexpected refined facets %v", got)
	}
}

func TestFacetAttributes(t *testing.T) {
	p := NewSearchParameters().
		AddFacet("price").
		AddFacet("lvl1").
		AddHierarchicalFacet(categoryFacet())

	want := []string{"price", "lvl1", "lvl0", "lvl2"}
	if got := p.FacetAttributes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := p.AttributesOf("lvl0"); !reflect.DeepEqual(got, []string{"lvl0", "lvl1", "lvl2"}) {
		t.Errorf("Unexpected attributes %v", got)
	}
	if got := p.AttributesOf("price"); !reflect.DeepEqual(got, []string{"price"}) {
		t.Errorf("Unexpected attributes %v", got)
	}
}

func TestFilters(t *testing.T) {
	p := NewSearchParameters().
		AddHierarchicalFacet(categoryFacet()).
		ToggleHierarchicalFacetRefinement("lvl0", "A > B").
		AddNumericRefinement("price", OpLte, 30).
		AddNumericRefinement("price", OpGte, 10).
		AddNumericRefinement("age", OpGt, 1)

	want := []Expression{
		Eq("lvl1", "A > B"),
		Compare("age", OpGt, 1.0),
		Gte("price", 10.0),
		Lte("price", 30.0),
	}
	if got := p.Filters(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %#v, got %#v", want, got)
	}

	deep := NewSearchParameters().
		AddHierarchicalFacet(HierarchicalFacet{Name: "c", Attributes: []string{"c0"}}).
		ToggleHierarchicalFacetRefinement("c", "A > B > C")
	if got := deep.Filters(); !reflect.DeepEqual(got, []Expression{Eq("c0", "A > B > C")}) {
		t.Errorf("Expected refinement deeper than attributes to use the last level, got %#v", got)
	}
}

func TestKey(t *testing.T) {
	a := NewSearchParameters(WithIndex("i")).
		AddNumericRefinement("b", OpGte, 1).
		AddNumericRefinement("a", OpLte, 2)
	b := NewSearchParameters(WithIndex("i")).
		AddNumericRefinement("a", OpLte, 2).
		AddNumericRefinement("b", OpGte, 1)

	if mustKey(t, a) != mustKey(t, b) {
		t.Errorf("Expected equal keys, got %s and %s", mustKey(t, a), mustKey(t, b))
	}
	if mustKey(t, a) == mustKey(t, a.SetPage(1)) {
		t.Error("Expected page to change the key")
	}

	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		p := NewSearchParameters(WithIndex("i")).AddNumericRefinement("price", OpGte, v)
		if key, err := p.Key(); err == nil {
			t.Errorf("Expected error for %v, got key %q", v, key)
		}
	}
}

func mustKey(t *testing.T, p SearchParameters) string {
	t.Helper()
	key, err := p.Key()
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	return key
}
