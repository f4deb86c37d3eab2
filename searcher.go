package connectx

import "context"

// Searcher runs search parameters against a search engine.
type Searcher interface {
	// Search executes a search described by params.
	Search(ctx context.Context, params SearchParameters) (*Response, error)
}

// SearcherFunc is a function type that implements the Searcher interface.
// This allows using a function as a Searcher, similar to http.HandlerFunc.
type SearcherFunc func(context.Context, SearchParameters) (*Response, error)

// Search implements the Searcher interface for SearcherFunc.
func (f SearcherFunc) Search(ctx context.Context, params SearchParameters) (*Response, error) {
	return f(ctx, params)
}
