package connectx

import (
	"sort"
	"strings"
)

// RawFacets is the facet data an engine reports for one query.
type RawFacets struct {
	// Counts maps attribute -> facet value -> number of hits.
	Counts map[string]map[string]int
	// Stats maps attribute -> numeric statistics.
	Stats map[string]FacetStats
}

// MergeDisjunctive overlays the facet data of the per-facet queries onto
// the data of the main query. perFacet is keyed by the names returned by
// params.RefinedFacets(); each entry comes from a query run without that
// facet's own refinements, so the other values of a refined facet stay
// visible.
func MergeDisjunctive(params SearchParameters, main RawFacets, perFacet map[string]RawFacets) RawFacets {
	out := RawFacets{
		Counts: make(map[string]map[string]int, len(main.Counts)),
		Stats:  make(map[string]FacetStats, len(main.Stats)),
	}
	for attr, counts := range main.Counts {
		out.Counts[attr] = counts
	}
	for attr, stats := range main.Stats {
		out.Stats[attr] = stats
	}

	for name, raw := range perFacet {
		for _, attr := range params.AttributesOf(name) {
			if counts, ok := raw.Counts[attr]; ok {
				out.Counts[attr] = counts
			}
			if stats, ok := raw.Stats[attr]; ok {
				out.Stats[attr] = stats
			}
		}
	}
	return out
}

// SetFacets fills the facet accessors of r from raw engine data.
func (r *Response) SetFacets(params SearchParameters, raw RawFacets) {
	r.Facets = make(map[string][]FacetValue, len(raw.Counts))
	for attr, counts := range raw.Counts {
		r.Facets[attr] = flatValues(counts)
	}

	r.Stats = make(map[string]FacetStats, len(raw.Stats))
	for attr, stats := range raw.Stats {
		r.Stats[attr] = stats
	}

	r.Hierarchical = make(map[string]HierarchicalFacetValue, len(params.HierarchicalFacets))
	for _, facet := range params.HierarchicalFacets {
		if len(facet.Attributes) == 0 {
			continue
		}
		if _, ok := raw.Counts[facet.Attributes[0]]; !ok {
			continue
		}
		var refinement string
		if refs := params.HierarchicalRefs[facet.Name]; len(refs) > 0 {
			refinement = refs[0]
		}
		r.Hierarchical[facet.Name] = buildHierarchy(facet, refinement, raw.Counts)
	}
}

// flatValues sorts facet values by count, then name.
func flatValues(counts map[string]int) []FacetValue {
	values := make([]FacetValue, 0, len(counts))
	for name, count := range counts {
		values = append(values, FacetValue{Name: name, Count: count})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Name < values[j].Name
	})
	return values
}

// buildHierarchy assembles the tree of a hierarchical facet from the counts
// of each level attribute. Only the refined branch is expanded.
func buildHierarchy(facet HierarchicalFacet, refinement string, counts map[string]map[string]int) HierarchicalFacetValue {
	sep := facet.separator()
	start := 0
	if facet.RootPath != "" {
		start = strings.Count(facet.RootPath, sep) + 1
	}

	b := hierarchyBuilder{
		facet:      facet,
		sep:        sep,
		start:      start,
		refinement: refinement,
		depth:      strings.Count(refinement, sep),
		counts:     counts,
	}
	return HierarchicalFacetValue{
		Name:      facet.RootPath,
		Path:      facet.RootPath,
		IsRefined: true,
		Data:      b.level(start, facet.RootPath),
	}
}

type hierarchyBuilder struct {
	facet      HierarchicalFacet
	sep        string
	start      int
	refinement string
	depth      int
	counts     map[string]map[string]int
}

// isRefined reports whether path is the refinement or one of its ancestors.
func (b hierarchyBuilder) isRefined(path string) bool {
	if b.refinement == "" {
		return false
	}
	return b.refinement == path || strings.HasPrefix(b.refinement, path+b.sep)
}

func (b hierarchyBuilder) level(level int, parent string) []HierarchicalFacetValue {
	if level >= len(b.facet.Attributes) {
		return nil
	}

	// Without ShowParentLevel the siblings of the refined branch are hidden
	// on every level the refinement passes through, except the first.
	onlyRefined := !b.facet.ShowParentLevel && b.refinement != "" &&
		level > b.start && level <= b.depth

	var values []HierarchicalFacetValue
	for path, count := range b.counts[b.facet.Attributes[level]] {
		name := path
		if parent != "" {
			if !strings.HasPrefix(path, parent+b.sep) {
				continue
			}
			name = path[len(parent)+len(b.sep):]
		}
		if name == "" || strings.Contains(name, b.sep) {
			continue
		}

		refined := b.isRefined(path)
		if onlyRefined && !refined {
			continue
		}

		value := HierarchicalFacetValue{
			Name:      name,
			Path:      path,
			Count:     count,
			IsRefined: refined,
		}
		if refined {
			value.Data = b.level(level+1, path)
		}
		values = append(values, value)
	}

	sort.Slice(values, func(i, j int) bool {
		return values[i].Name < values[j].Name
	})
	return values
}
