package connectx

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultSeparator separates the levels of a hierarchical facet value.
const DefaultSeparator = " > "

// HierarchicalFacet declares a facet whose values are paths across several
// attributes, one attribute per level.
type HierarchicalFacet struct {
	Name            string   `json:"name"`
	Attributes      []string `json:"attributes"`
	Separator       string   `json:"separator"`
	RootPath        string   `json:"rootPath,omitempty"`
	ShowParentLevel bool     `json:"showParentLevel"`
}

func (f HierarchicalFacet) separator() string {
	if f.Separator == "" {
		return DefaultSeparator
	}
	return f.Separator
}

// depthOf returns the attribute level a refinement path filters on.
func (f HierarchicalFacet) depthOf(path string) int {
	depth := strings.Count(path, f.separator())
	if depth >= len(f.Attributes) {
		depth = len(f.Attributes) - 1
	}
	return depth
}

// SearchParameters describes one query against one index. It is immutable:
// every method returns a new value and never shares maps or slices with the
// receiver.
type SearchParameters struct {
	Index              string                            `json:"index,omitempty"`
	Query              string                            `json:"query,omitempty"`
	Page               int                               `json:"page,omitempty"`
	HitsPerPage        int                               `json:"hitsPerPage,omitempty"`
	MaxValuesPerFacet  int                               `json:"maxValuesPerFacet,omitempty"`
	Facets             []string                          `json:"facets,omitempty"`
	HierarchicalFacets []HierarchicalFacet               `json:"hierarchicalFacets,omitempty"`
	HierarchicalRefs   map[string][]string               `json:"hierarchicalFacetsRefinements,omitempty"`
	NumericRefs        map[string]map[Operator][]float64 `json:"numericRefinements,omitempty"`
}

// NewSearchParameters creates search parameters configured by opts.
func NewSearchParameters(opts ...Option) SearchParameters {
	var p SearchParameters
	for _, opt := range opts {
		opt.Apply(&p)
	}
	return p
}

// clone returns a deep copy of p.
func (p SearchParameters) clone() SearchParameters {
	out := p
	out.Facets = slices.Clone(p.Facets)
	if p.HierarchicalFacets != nil {
		out.HierarchicalFacets = make([]HierarchicalFacet, len(p.HierarchicalFacets))
		for i, f := range p.HierarchicalFacets {
			f.Attributes = slices.Clone(f.Attributes)
			out.HierarchicalFacets[i] = f
		}
	}
	if p.HierarchicalRefs != nil {
		out.HierarchicalRefs = make(map[string][]string, len(p.HierarchicalRefs))
		for name, values := range p.HierarchicalRefs {
			out.HierarchicalRefs[name] = slices.Clone(values)
		}
	}
	if p.NumericRefs != nil {
		out.NumericRefs = make(map[string]map[Operator][]float64, len(p.NumericRefs))
		for attr, ops := range p.NumericRefs {
			out.NumericRefs[attr] = cloneOps(ops)
		}
	}
	return out
}

func cloneOps(ops map[Operator][]float64) map[Operator][]float64 {
	out := make(map[Operator][]float64, len(ops))
	for op, values := range ops {
		out[op] = slices.Clone(values)
	}
	return out
}

// SetQuery returns parameters searching for query.
func (p SearchParameters) SetQuery(query string) SearchParameters {
	out := p.clone()
	out.Query = query
	return out
}

// SetPage returns parameters for the zero-based page.
func (p SearchParameters) SetPage(page int) SearchParameters {
	out := p.clone()
	out.Page = page
	return out
}

// SetHitsPerPage returns parameters requesting n hits per page.
func (p SearchParameters) SetHitsPerPage(n int) SearchParameters {
	out := p.clone()
	out.HitsPerPage = n
	return out
}

// SetMaxValuesPerFacet returns parameters requesting at most n values per facet.
func (p SearchParameters) SetMaxValuesPerFacet(n int) SearchParameters {
	out := p.clone()
	out.MaxValuesPerFacet = n
	return out
}

// AddFacet declares attribute as a facet. Declaring it twice is a no-op.
func (p SearchParameters) AddFacet(attribute string) SearchParameters {
	if slices.Contains(p.Facets, attribute) {
		return p
	}
	out := p.clone()
	out.Facets = append(out.Facets, attribute)
	return out
}

// HierarchicalFacet returns the declared hierarchical facet called name.
func (p SearchParameters) HierarchicalFacet(name string) (HierarchicalFacet, bool) {
	for _, f := range p.HierarchicalFacets {
		if f.Name == name {
			return f, true
		}
	}
	return HierarchicalFacet{}, false
}

// AddHierarchicalFacet declares facet. Parameters that already declare a
// facet with the same name are returned unchanged.
func (p SearchParameters) AddHierarchicalFacet(facet HierarchicalFacet) SearchParameters {
	if _, ok := p.HierarchicalFacet(facet.Name); ok {
		return p
	}
	facet.Attributes = slices.Clone(facet.Attributes)
	facet.Separator = facet.separator()
	out := p.clone()
	out.HierarchicalFacets = append(out.HierarchicalFacets, facet)
	return out
}

// HierarchicalRefinement returns the refined path(s) of the hierarchical
// facet called name.
func (p SearchParameters) HierarchicalRefinement(name string) []string {
	return slices.Clone(p.HierarchicalRefs[name])
}

// ToggleHierarchicalFacetRefinement toggles value on the hierarchical facet
// called name. When value is the refined path, or one of its ancestors, the
// refinement moves up to the parent of value; a root value clears the
// refinement. Any other value replaces the refinement. Undeclared facets are
// left untouched.
func (p SearchParameters) ToggleHierarchicalFacetRefinement(name, value string) SearchParameters {
	facet, ok := p.HierarchicalFacet(name)
	if !ok {
		return p
	}
	sep := facet.separator()

	out := p.clone()
	if out.HierarchicalRefs == nil {
		out.HierarchicalRefs = make(map[string][]string)
	}

	current := p.HierarchicalRefs[name]
	upOneLevel := len(current) > 0 &&
		(current[0] == value || strings.HasPrefix(current[0], value+sep))
	if !upOneLevel {
		out.HierarchicalRefs[name] = []string{value}
		return out
	}

	if i := strings.LastIndex(value, sep); i >= 0 {
		out.HierarchicalRefs[name] = []string{value[:i]}
	} else {
		delete(out.HierarchicalRefs, name)
	}
	return out
}

// AddNumericRefinement adds "attribute op value" to the parameters.
func (p SearchParameters) AddNumericRefinement(attribute string, op Operator, value float64) SearchParameters {
	if slices.Contains(p.NumericRefs[attribute][op], value) {
		return p
	}
	out := p.clone()
	if out.NumericRefs == nil {
		out.NumericRefs = make(map[string]map[Operator][]float64)
	}
	if out.NumericRefs[attribute] == nil {
		out.NumericRefs[attribute] = make(map[Operator][]float64)
	}
	out.NumericRefs[attribute][op] = append(out.NumericRefs[attribute][op], value)
	return out
}

// NumericRefinements returns the numeric refinements of attribute keyed by
// operator.
func (p SearchParameters) NumericRefinements(attribute string) map[Operator][]float64 {
	return cloneOps(p.NumericRefs[attribute])
}

// RefinedFacets returns the hierarchical facet names and numeric attributes
// that carry at least one refinement, sorted.
func (p SearchParameters) RefinedFacets() []string {
	var names []string
	for name, values := range p.HierarchicalRefs {
		if len(values) > 0 && values[0] != "" {
			names = append(names, name)
		}
	}
	for attr, ops := range p.NumericRefs {
		for _, values := range ops {
			if len(values) > 0 {
				names = append(names, attr)
				break
			}
		}
	}
	sort.Strings(names)
	return slices.Compact(names)
}

// WithoutRefinements returns parameters without the refinements of the
// hierarchical facet or numeric attribute called name.
func (p SearchParameters) WithoutRefinements(name string) SearchParameters {
	out := p.clone()
	delete(out.HierarchicalRefs, name)
	delete(out.NumericRefs, name)
	return out
}

// AttributesOf returns the record attributes behind a facet name: every
// level of a hierarchical facet, or the name itself.
func (p SearchParameters) AttributesOf(name string) []string {
	if facet, ok := p.HierarchicalFacet(name); ok {
		return slices.Clone(facet.Attributes)
	}
	return []string{name}
}

// FacetAttributes returns every attribute the engine has to aggregate, in
// declaration order.
func (p SearchParameters) FacetAttributes() []string {
	var attrs []string
	seen := make(map[string]bool)
	add := func(attr string) {
		if attr == "" || seen[attr] {
			return
		}
		seen[attr] = true
		attrs = append(attrs, attr)
	}
	for _, attr := range p.Facets {
		add(attr)
	}
	for _, facet := range p.HierarchicalFacets {
		for _, attr := range facet.Attributes {
			add(attr)
		}
	}
	return attrs
}

// Filters compiles the refinements into expressions: one equality per
// refined hierarchical facet on the attribute of the refined level, then
// the numeric refinements by attribute and operator.
func (p SearchParameters) Filters() []Expression {
	var filters []Expression
	for _, facet := range p.HierarchicalFacets {
		values := p.HierarchicalRefs[facet.Name]
		if len(values) == 0 || values[0] == "" || len(facet.Attributes) == 0 {
			continue
		}
		filters = append(filters, Eq(facet.Attributes[facet.depthOf(values[0])], values[0]))
	}

	attrs := make([]string, 0, len(p.NumericRefs))
	for attr := range p.NumericRefs {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		for _, op := range operatorOrder {
			for _, v := range p.NumericRefs[attr][op] {
				filters = append(filters, Compare(attr, op, v))
			}
		}
	}
	return filters
}

// Key returns a stable string identifying the parameters, suitable as a
// cache key. It fails when a numeric refinement is NaN or infinite.
func (p SearchParameters) Key() (string, error) {
	// encoding/json sorts map keys, which makes the output deterministic.
	data, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "failed to build parameters key")
	}
	return string(data), nil
}
