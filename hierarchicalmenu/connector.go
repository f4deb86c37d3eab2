// Package hierarchicalmenu connects a hierarchical menu widget to the search
// state: a tree of category paths ("Electronics > Phones") where only the
// refined branch is expanded.
package hierarchicalmenu

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/connectx"
)

// Namespace is the search state key the connector stores refinements under.
const Namespace = "hierarchicalMenu"

// Params configures a hierarchical menu.
type Params struct {
	// Attributes lists one attribute per level, root level first. The first
	// attribute is the widget id.
	Attributes []string
	// Separator splits a path into levels. Defaults to " > ".
	Separator string
	// RootPath restricts the menu to the children of this path.
	RootPath string
	// ShowParentLevel keeps the siblings of refined parents visible.
	ShowParentLevel bool
	// ShowMore selects LimitMax instead of LimitMin.
	ShowMore bool
	// LimitMin caps each level when ShowMore is false. 0 means no cap.
	LimitMin int
	// LimitMax caps each level when ShowMore is true. 0 means no cap.
	LimitMax int
	// TransformItems, when set, rewrites the items before they are provided.
	TransformItems func([]Item) []Item
}

// Item is a node of the menu.
type Item struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Count int    `json:"count"`
	Items []Item `json:"items,omitempty"`
}

// Props are the props provided to the menu component.
type Props struct {
	Items             []Item  `json:"items"`
	CurrentRefinement *string `json:"currentRefinement"`
	CanRefine         bool    `json:"canRefine"`
}

// Connector implements the hierarchical menu connector.
type Connector struct {
	params Params
}

var _ connectx.Widget = (*Connector)(nil)

// New creates a hierarchical menu connector.
func New(params Params) (*Connector, error) {
	if len(params.Attributes) == 0 || params.Attributes[0] == "" {
		return nil, errors.Wrap(connectx.ErrInvalidWidget, "hierarchical menu needs at least one attribute")
	}
	params.Attributes = append([]string(nil), params.Attributes...)
	if params.Separator == "" {
		params.Separator = connectx.DefaultSeparator
	}
	return &Connector{params: params}, nil
}

// ID returns the first attribute.
func (c *Connector) ID() string {
	return c.params.Attributes[0]
}

func (c *Connector) facet() connectx.HierarchicalFacet {
	return connectx.HierarchicalFacet{
		Name:            c.ID(),
		Attributes:      c.params.Attributes,
		Separator:       c.params.Separator,
		RootPath:        c.params.RootPath,
		ShowParentLevel: c.params.ShowParentLevel,
	}
}

func (c *Connector) limit() int {
	if c.params.ShowMore {
		return c.params.LimitMax
	}
	return c.params.LimitMin
}

// currentRefinement returns the refined path; an empty path counts as no
// refinement.
func (c *Connector) currentRefinement(ictx connectx.IndexContext, state connectx.SearchState) (string, bool) {
	v, ok := state.Value(ictx, Namespace, c.ID())
	if !ok || v == nil {
		return "", false
	}
	path, ok := v.(string)
	if !ok {
		path = fmt.Sprint(v)
	}
	if path == "" {
		return "", false
	}
	return path, true
}

// ProvidedProps returns the props of the menu component.
func (c *Connector) ProvidedProps(ictx connectx.IndexContext, state connectx.SearchState, results connectx.SearchResults) Props {
	props := Props{Items: []Item{}}
	current, refined := c.currentRefinement(ictx, state)
	if refined {
		props.CurrentRefinement = &current
	}

	res := results.For(ictx)
	if res == nil || !res.FacetByName(c.ID()) {
		return props
	}

	tree := res.HierarchicalFacetValues(c.ID())
	items := c.transform(tree.Data)
	props.CanRefine = len(items) > 0
	if c.params.TransformItems != nil {
		items = c.params.TransformItems(items)
	}
	props.Items = items
	return props
}

// transform maps facet values into items, truncating every level. An item's
// value is its full path.
func (c *Connector) transform(values []connectx.HierarchicalFacetValue) []Item {
	if limit := c.limit(); limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	items := make([]Item, 0, len(values))
	for _, v := range values {
		item := Item{
			Label: v.Name,
			Value: v.Path,
			Count: v.Count,
		}
		if v.Data != nil {
			item.Items = c.transform(v.Data)
		}
		items = append(items, item)
	}
	return items
}

// Refine returns state with path selected and the page reset.
func (c *Connector) Refine(ictx connectx.IndexContext, state connectx.SearchState, path string) connectx.SearchState {
	return state.Refine(ictx, Namespace, c.ID(), path)
}

// SearchParameters declares the hierarchical facet, raises
// maxValuesPerFacet to the display limit and applies the refinement.
func (c *Connector) SearchParameters(ictx connectx.IndexContext, base connectx.SearchParameters, state connectx.SearchState) connectx.SearchParameters {
	params := base.AddHierarchicalFacet(c.facet()).
		SetMaxValuesPerFacet(max(base.MaxValuesPerFacet, c.limit()))
	if current, ok := c.currentRefinement(ictx, state); ok {
		params = params.ToggleHierarchicalFacetRefinement(c.ID(), current)
	}
	return params
}

// Metadata describes the refined path, if any.
func (c *Connector) Metadata(ictx connectx.IndexContext, state connectx.SearchState) connectx.Metadata {
	md := connectx.Metadata{
		ID:    c.ID(),
		Index: ictx.Index(),
		Items: []connectx.MetadataItem{},
	}
	current, ok := c.currentRefinement(ictx, state)
	if !ok {
		return md
	}
	md.Items = append(md.Items, connectx.MetadataItem{
		Label:             c.ID() + ": " + current,
		AttributeName:     c.ID(),
		CurrentRefinement: current,
		Value: connectx.ClearAction{
			Context:   ictx,
			Namespace: Namespace,
			Attribute: c.ID(),
			Mode:      connectx.ClearReset,
		},
	})
	return md
}

// CleanUp drops the widget's entry from state.
func (c *Connector) CleanUp(ictx connectx.IndexContext, state connectx.SearchState) connectx.SearchState {
	return state.Without(ictx, Namespace, c.ID())
}

// Levels expands a category path into the per-level values hierarchical
// facets are built from: ["A", "B"] gives {"lvl0": "A", "lvl1": "A > B"}.
func Levels(path []string, separator string) map[string]any {
	if separator == "" {
		separator = connectx.DefaultSeparator
	}
	levels := make(map[string]any, len(path))
	for i := range path {
		levels[fmt.Sprintf("lvl%d", i)] = strings.Join(path[:i+1], separator)
	}
	return levels
}
