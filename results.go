package connectx

// Result represents a single search hit.
type Result struct {
	// ID is the unique identifier of the result.
	ID string `json:"id"`

	// Score represents the relevance score of this result.
	Score float64 `json:"score"`

	// Fields contains the document fields as key-value pairs.
	Fields map[string]interface{} `json:"fields"`
}

// FacetValue is one value of a flat facet and the number of hits carrying it.
type FacetValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HierarchicalFacetValue is a node of a hierarchical facet tree. The root
// node only carries Data.
type HierarchicalFacetValue struct {
	Name      string                   `json:"name"`
	Path      string                   `json:"path"`
	Count     int                      `json:"count"`
	IsRefined bool                     `json:"isRefined"`
	Data      []HierarchicalFacetValue `json:"data,omitempty"`
}

// FacetStats holds the numeric statistics of a facet.
type FacetStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	Sum float64 `json:"sum"`
}

// Results is the read-only view connectors have on the outcome of a search
// against one index.
type Results interface {
	// Index is the name of the index that was searched.
	Index() string
	// Hits returns the hits of the requested page.
	Hits() []Result
	// FacetByName reports whether the engine returned data for the facet.
	FacetByName(attribute string) bool
	// FacetValues returns the values of a flat facet.
	FacetValues(attribute string) []FacetValue
	// HierarchicalFacetValues returns the tree of a hierarchical facet.
	HierarchicalFacetValues(name string) HierarchicalFacetValue
	// FacetStats returns min/max/avg/sum of a numeric facet.
	FacetStats(attribute string) (FacetStats, bool)
}

// Response is the result of one search, as returned by a Searcher.
type Response struct {
	// IndexName is the index that was searched.
	IndexName string `json:"index"`

	// Items contains the individual search results.
	Items []Result `json:"items"`

	// Total is the total number of matching documents.
	Total int64 `json:"total"`

	// Took is the time taken to execute the search in milliseconds.
	Took int64 `json:"took_ms"`

	// MaxScore is the maximum relevance score across all results.
	MaxScore float64 `json:"max_score"`

	// Query is the original query string for reference.
	Query string `json:"query"`

	// Page is the zero-based page returned.
	Page int `json:"page"`

	// NbPages is the number of pages available.
	NbPages int `json:"nb_pages"`

	// NextOffset can be used for pagination.
	NextOffset *int `json:"next_offset,omitempty"`

	// Facets holds flat facet values by attribute.
	Facets map[string][]FacetValue `json:"facets,omitempty"`

	// Hierarchical holds hierarchical facet trees by facet name.
	Hierarchical map[string]HierarchicalFacetValue `json:"hierarchical_facets,omitempty"`

	// Stats holds numeric facet statistics by attribute.
	Stats map[string]FacetStats `json:"facets_stats,omitempty"`
}

var _ Results = (*Response)(nil)

// Index implements Results.
func (r *Response) Index() string {
	return r.IndexName
}

// Hits implements Results.
func (r *Response) Hits() []Result {
	return r.Items
}

// FacetByName implements Results.
func (r *Response) FacetByName(attribute string) bool {
	if _, ok := r.Hierarchical[attribute]; ok {
		return true
	}
	_, ok := r.Facets[attribute]
	return ok
}

// FacetValues implements Results.
func (r *Response) FacetValues(attribute string) []FacetValue {
	return r.Facets[attribute]
}

// HierarchicalFacetValues implements Results.
func (r *Response) HierarchicalFacetValues(name string) HierarchicalFacetValue {
	return r.Hierarchical[name]
}

// FacetStats implements Results.
func (r *Response) FacetStats(attribute string) (FacetStats, bool) {
	stats, ok := r.Stats[attribute]
	return stats, ok
}

// SearchResults carries the results a connector may read: the results of the
// main index for single-index widgets and per-index results for multi-index
// widgets.
type SearchResults struct {
	Single  Results
	Indices map[string]Results
}

// For returns the results ictx routes to, or nil when there are none.
func (r SearchResults) For(ictx IndexContext) Results {
	if !ictx.IsMultiIndex() {
		return r.Single
	}
	return r.Indices[ictx.Index()]
}
