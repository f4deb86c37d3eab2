package connectx

import (
	"context"
	"math"
	"slices"

	"github.com/cockroachdb/errors"
)

// Widget is the part of the connector contract that does not depend on the
// widget's value type. Every connector implements it.
type Widget interface {
	// ID identifies the widget within its namespace.
	ID() string
	// SearchParameters applies the widget's refinements to base.
	SearchParameters(ictx IndexContext, base SearchParameters, state SearchState) SearchParameters
	// Metadata describes the widget's active refinements.
	Metadata(ictx IndexContext, state SearchState) Metadata
	// CleanUp removes the widget's entry from state.
	CleanUp(ictx IndexContext, state SearchState) SearchState
}

// Metadata describes the active refinements of one widget.
type Metadata struct {
	ID    string         `json:"id"`
	Index string         `json:"index"`
	Items []MetadataItem `json:"items"`
}

// MetadataItem is one active refinement. Value clears it from a state.
type MetadataItem struct {
	Label             string      `json:"label"`
	AttributeName     string      `json:"attributeName"`
	CurrentRefinement any         `json:"currentRefinement"`
	Value             ClearAction `json:"-"`
}

// Mounted is a widget together with the context it was mounted in.
type Mounted struct {
	Context IndexContext
	Widget  Widget
}

// Host mounts widgets on indices, derives per-index search parameters from a
// search state, runs the searches and routes the results back. A Host is not
// safe for concurrent mounting; searching is.
type Host struct {
	mainIndex string
	searcher  Searcher
	widgets   []Mounted
}

// NewHost creates a host whose top-level search targets mainIndex.
func NewHost(mainIndex string, searcher Searcher) *Host {
	return &Host{
		mainIndex: mainIndex,
		searcher:  searcher,
	}
}

// MainIndex returns the index of the top-level search.
func (h *Host) MainIndex() string {
	return h.mainIndex
}

// Mount registers w in the given context.
func (h *Host) Mount(ictx IndexContext, w Widget) {
	h.widgets = append(h.widgets, Mounted{Context: ictx, Widget: w})
}

// Mounted returns the mounted widgets in mount order.
func (h *Host) Mounted() []Mounted {
	return slices.Clone(h.widgets)
}

// Unmount removes w and returns state without w's refinement.
func (h *Host) Unmount(w Widget, state SearchState) SearchState {
	kept := h.widgets[:0]
	for _, m := range h.widgets {
		if m.Widget == w {
			state = w.CleanUp(m.Context, state)
			continue
		}
		kept = append(kept, m)
	}
	h.widgets = kept
	return state
}

// indices returns the searched indices, main index first.
func (h *Host) indices() []string {
	indices := []string{h.mainIndex}
	for _, m := range h.widgets {
		if idx := m.Context.Index(); !slices.Contains(indices, idx) {
			indices = append(indices, idx)
		}
	}
	return indices
}

// SearchParameters returns the parameters of every searched index.
func (h *Host) SearchParameters(state SearchState) map[string]SearchParameters {
	out := make(map[string]SearchParameters)
	for _, idx := range h.indices() {
		out[idx] = h.baseParameters(idx, state)
	}
	for _, m := range h.widgets {
		idx := m.Context.Index()
		out[idx] = m.Widget.SearchParameters(m.Context, out[idx], state)
	}
	return out
}

// baseParameters reads query and page from the scope of idx.
func (h *Host) baseParameters(idx string, state SearchState) SearchParameters {
	ictx := SingleIndex(h.mainIndex)
	if idx != h.mainIndex {
		ictx = MultiIndex(h.mainIndex, idx)
	}
	scoped := state.Scoped(ictx)

	opts := []Option{WithIndex(idx)}
	if q, ok := scoped[queryKey].(string); ok {
		opts = append(opts, WithQuery(q))
	}
	if page, ok := ParseNumber(scoped[pageKey]); ok && page >= 1 {
		opts = append(opts, WithPage(int(math.Floor(page))-1))
	}
	return NewSearchParameters(opts...)
}

// Search runs one search per index and returns results ready for the
// connectors' ProvidedProps.
func (h *Host) Search(ctx context.Context, state SearchState) (SearchResults, error) {
	params := h.SearchParameters(state)
	results := SearchResults{Indices: make(map[string]Results, len(params))}
	for _, idx := range h.indices() {
		res, err := h.searcher.Search(ctx, params[idx])
		if err != nil {
			return SearchResults{}, errors.Wrapf(err, "search index %s", idx)
		}
		if res == nil {
			continue
		}
		results.Indices[idx] = res
		if idx == h.mainIndex {
			results.Single = res
		}
	}
	return results, nil
}

// Metadata returns the metadata of every mounted widget.
func (h *Host) Metadata(state SearchState) []Metadata {
	out := make([]Metadata, 0, len(h.widgets))
	for _, m := range h.widgets {
		out = append(out, m.Widget.Metadata(m.Context, state))
	}
	return out
}

// ClearRefinements applies the clear action of every active refinement.
func (h *Host) ClearRefinements(state SearchState) SearchState {
	for _, md := range h.Metadata(state) {
		for _, item := range md.Items {
			state = item.Value.Apply(state)
		}
	}
	return state
}
