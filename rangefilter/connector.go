// Package rangefilter connects a numeric range widget (slider, min/max
// inputs) to the search state.
package rangefilter

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/connectx"
)

// Namespace is the search state key the connector stores refinements under.
const Namespace = "range"

// Params configures a range widget.
type Params struct {
	// Attribute is the numeric attribute to filter on. It is the widget id.
	Attribute string
	// Min and Max bound the range. Unset sides come from the facet stats.
	Min *float64
	Max *float64
	// DefaultRefinement applies while the state holds no refinement.
	DefaultRefinement *Refinement
}

// Refinement is a range selection. A nil side is open.
type Refinement struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsZero reports whether both sides are open.
func (r Refinement) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// ValueCount is one facet value of the attribute and its number of hits.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Props are the props provided to the range component. When the bounds
// cannot be resolved only CanRefine is set: true when the facet exists
// without stats.
type Props struct {
	Min               *float64     `json:"min,omitempty"`
	Max               *float64     `json:"max,omitempty"`
	CurrentRefinement *Refinement  `json:"currentRefinement,omitempty"`
	Count             []ValueCount `json:"count"`
	CanRefine         bool         `json:"canRefine"`
}

// Connector implements the range connector.
type Connector struct {
	params Params
}

var _ connectx.Widget = (*Connector)(nil)

// New creates a range connector.
func New(params Params) (*Connector, error) {
	if params.Attribute == "" {
		return nil, errors.Wrap(connectx.ErrInvalidWidget, "range needs an attribute")
	}
	bounds := []*float64{params.Min, params.Max}
	if def := params.DefaultRefinement; def != nil {
		bounds = append(bounds, def.Min, def.Max)
	}
	for _, v := range bounds {
		if v != nil && !finite(*v) {
			return nil, errors.Wrapf(connectx.ErrNonFiniteRange, "range %s bounds", params.Attribute)
		}
	}
	return &Connector{params: params}, nil
}

// ID returns the attribute.
func (c *Connector) ID() string {
	return c.params.Attribute
}

// stateRefinement reads the refinement stored in state. Numeric strings are
// accepted on either side.
func (c *Connector) stateRefinement(ictx connectx.IndexContext, state connectx.SearchState) (Refinement, bool) {
	v, ok := state.Value(ictx, Namespace, c.ID())
	if !ok {
		return Refinement{}, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		if s, isState := v.(connectx.SearchState); isState {
			m, ok = s, true
		}
	}
	if !ok {
		return Refinement{}, false
	}

	var r Refinement
	if f, ok := connectx.ParseNumber(m["min"]); ok {
		r.Min = &f
	}
	if f, ok := connectx.ParseNumber(m["max"]); ok {
		r.Max = &f
	}
	return r, true
}

// currentRefinement resolves each side from the state, then the default
// refinement.
func (c *Connector) currentRefinement(ictx connectx.IndexContext, state connectx.SearchState) Refinement {
	r, _ := c.stateRefinement(ictx, state)
	if def := c.params.DefaultRefinement; def != nil {
		if r.Min == nil {
			r.Min = def.Min
		}
		if r.Max == nil {
			r.Max = def.Max
		}
	}
	return r
}

// ProvidedProps returns the props of the range component.
func (c *Connector) ProvidedProps(ictx connectx.IndexContext, state connectx.SearchState, results connectx.SearchResults) Props {
	res := results.For(ictx)
	hasFacet := res != nil && res.FacetByName(c.ID())
	if res != nil && !hasFacet {
		return Props{}
	}

	lo, hi := c.params.Min, c.params.Max
	if hasFacet {
		if stats, ok := res.FacetStats(c.ID()); ok {
			if lo == nil {
				lo = &stats.Min
			}
			if hi == nil {
				hi = &stats.Max
			}
		}
	}
	if lo == nil || hi == nil {
		return Props{CanRefine: hasFacet}
	}

	current := c.currentRefinement(ictx, state)
	if current.Min == nil {
		current.Min = lo
	}
	if current.Max == nil {
		current.Max = hi
	}

	count := []ValueCount{}
	if hasFacet {
		for _, v := range res.FacetValues(c.ID()) {
			count = append(count, ValueCount{Value: v.Name, Count: v.Count})
		}
	}

	return Props{
		Min:               lo,
		Max:               hi,
		CurrentRefinement: &current,
		Count:             count,
		CanRefine:         hasFacet,
	}
}

// Refine returns state with the range selected and the page reset. Both
// sides are required; a missing or non finite side is rejected with
// ErrNonFiniteRange.
func (c *Connector) Refine(ictx connectx.IndexContext, state connectx.SearchState, r Refinement) (connectx.SearchState, error) {
	if r.Min == nil || r.Max == nil || !finite(*r.Min) || !finite(*r.Max) {
		return nil, errors.Wrapf(connectx.ErrNonFiniteRange, "refine %s", c.ID())
	}
	value := map[string]any{"min": *r.Min, "max": *r.Max}
	return state.Refine(ictx, Namespace, c.ID(), value), nil
}

// SearchParameters declares the attribute as a facet and filters on the
// current refinement.
func (c *Connector) SearchParameters(ictx connectx.IndexContext, base connectx.SearchParameters, state connectx.SearchState) connectx.SearchParameters {
	params := base.AddFacet(c.ID())
	current := c.currentRefinement(ictx, state)
	if current.Min != nil {
		params = params.AddNumericRefinement(c.ID(), connectx.OpGte, *current.Min)
	}
	if current.Max != nil {
		params = params.AddNumericRefinement(c.ID(), connectx.OpLte, *current.Max)
	}
	return params
}

// Metadata describes the selected range, if any.
func (c *Connector) Metadata(ictx connectx.IndexContext, state connectx.SearchState) connectx.Metadata {
	md := connectx.Metadata{
		ID:    c.ID(),
		Index: ictx.Index(),
		Items: []connectx.MetadataItem{},
	}
	current := c.currentRefinement(ictx, state)
	if current.IsZero() {
		return md
	}

	label := c.ID()
	if current.Min != nil {
		label = formatNumber(*current.Min) + " <= " + label
	}
	if current.Max != nil {
		label = label + " <= " + formatNumber(*current.Max)
	}
	md.Items = append(md.Items, connectx.MetadataItem{
		Label:             label,
		AttributeName:     c.ID(),
		CurrentRefinement: current,
		Value: connectx.ClearAction{
			Context:   ictx,
			Namespace: Namespace,
			Attribute: c.ID(),
			Mode:      connectx.ClearRemove,
		},
	})
	return md
}

// CleanUp drops the widget's entry from state.
func (c *Connector) CleanUp(ictx connectx.IndexContext, state connectx.SearchState) connectx.SearchState {
	return state.Without(ictx, Namespace, c.ID())
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
