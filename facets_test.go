package connectx

import (
	"reflect"
	"testing"
)

func categoryCounts() map[string]map[string]int {
	return map[string]map[string]int{
		"lvl0": {"A": 10, "B": 5},
		"lvl1": {"A > X": 6, "A > Y": 4, "B > Z": 5},
		"lvl2": {"A > X > 1": 6},
	}
}

func hierarchyOf(t *testing.T, facet HierarchicalFacet, refinement string) HierarchicalFacetValue {
	t.Helper()
	params := NewSearchParameters().AddHierarchicalFacet(facet)
	if refinement != "" {
		params = params.ToggleHierarchicalFacetRefinement(facet.Name, refinement)
	}
	var r Response
	r.SetFacets(params, RawFacets{Counts: categoryCounts()})
	if !r.FacetByName(facet.Name) {
		t.Fatalf("Expected facet %s to be present", facet.Name)
	}
	return r.HierarchicalFacetValues(facet.Name)
}

func TestBuildHierarchy(t *testing.T) {
	t.Run("NoRefinement", func(t *testing.T) {
		tree := hierarchyOf(t, categoryFacet(), "")
		want := []HierarchicalFacetValue{
			{Name: "A", Path: "A", Count: 10},
			{Name: "B", Path: "B", Count: 5},
		}
		if !reflect.DeepEqual(tree.Data, want) {
			t.Errorf("Expected %+v, got %+v", want, tree.Data)
		}
	})

	t.Run("RefinedWithParentLevel", func(t *testing.T) {
		facet := categoryFacet()
		facet.ShowParentLevel = true
		tree := hierarchyOf(t, facet, "A > X")
		want := []HierarchicalFacetValue{
			{
				Name: "A", Path: "A", Count: 10, IsRefined: true,
				Data: []HierarchicalFacetValue{
					{
						Name: "X", Path: "A > X", Count: 6, IsRefined: true,
						Data: []HierarchicalFacetValue{{Name: "1", Path: "A > X > 1", Count: 6}},
					},
					{Name: "Y", Path: "A > Y", Count: 4},
				},
			},
			{Name: "B", Path: "B", Count: 5},
		}
		if !reflect.DeepEqual(tree.Data, want) {
			t.Errorf("Expected %+v, got %+v", want, tree.Data)
		}
	})

	t.Run("RefinedWithoutParentLevel", func(t *testing.T) {
		tree := hierarchyOf(t, categoryFacet(), "A > X")
		if len(tree.Data) != 2 {
			t.Fatalf("Expected both root values, got %+v", tree.Data)
		}
		children := tree.Data[0].Data
		if len(children) != 1 || children[0].Path != "A > X" {
			t.Fatalf("Expected only the refined child, got %+v", children)
		}
		if len(children[0].Data) != 1 || children[0].Data[0].Path != "A > X > 1" {
			t.Errorf("Expected children of the refined value, got %+v", children[0].Data)
		}
	})

	t.Run("RootPath", func(t *testing.T) {
		facet := categoryFacet()
		facet.RootPath = "A"
		tree := hierarchyOf(t, facet, "")
		if tree.Path != "A" {
			t.Errorf("Expected root path A, got %q", tree.Path)
		}
		want := []HierarchicalFacetValue{
			{Name: "X", Path: "A > X", Count: 6},
			{Name: "Y", Path: "A > Y", Count: 4},
		}
		if !reflect.DeepEqual(tree.Data, want) {
			t.Errorf("Expected %+v, got %+v", want, tree.Data)
		}
	})

	t.Run("MissingFacet", func(t *testing.T) {
		params := NewSearchParameters().AddHierarchicalFacet(categoryFacet())
		var r Response
		r.SetFacets(params, RawFacets{Counts: map[string]map[string]int{"price": {"10": 1}}})
		if r.FacetByName("lvl0") {
			t.Error("Expected hierarchical facet to be absent")
		}
		if !r.FacetByName("price") {
			t.Error("Expected flat facet to be present")
		}
	})
}

func TestFlatValues(t *testing.T) {
	got := flatValues(map[string]int{"b": 2, "a": 2, "c": 5})
	want := []FacetValue{{"c", 5}, {"a", 2}, {"b", 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestMergeDisjunctive(t *testing.T) {
	params := NewSearchParameters().
		AddHierarchicalFacet(categoryFacet()).
		ToggleHierarchicalFacetRefinement("lvl0", "A").
		AddNumericRefinement("price", OpGte, 10)

	main := RawFacets{
		Counts: map[string]map[string]int{
			"lvl0":  {"A": 10},
			"lvl1":  {"A > X": 6},
			"brand": {"acme": 3},
		},
		Stats: map[string]FacetStats{"price": {Min: 10, Max: 20}},
	}
	perFacet := map[string]RawFacets{
		"lvl0": {Counts: map[string]map[string]int{
			"lvl0":  {"A": 10, "B": 5},
			"lvl1":  {"A > X": 6, "B > Z": 5},
			"brand": {"other": 99},
		}},
		"price": {Stats: map[string]FacetStats{"price": {Min: 1, Max: 20}}},
	}

	merged := MergeDisjunctive(params, main, perFacet)
	if !reflect.DeepEqual(merged.Counts["lvl0"], map[string]int{"A": 10, "B": 5}) {
		t.Errorf("Expected disjunctive lvl0 counts, got %v", merged.Counts["lvl0"])
	}
	if !reflect.DeepEqual(merged.Counts["brand"], map[string]int{"acme": 3}) {
		t.Errorf("Expected brand counts from the main query, got %v", merged.Counts["brand"])
	}
	if merged.Stats["price"].Min != 1 {
		t.Errorf("Expected disjunctive price stats, got %+v", merged.Stats["price"])
	}
	if len(main.Counts["lvl0"]) != 1 {
		t.Error("MergeDisjunctive modified the main facets")
	}
}
