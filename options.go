package connectx

// Option configures search parameters at construction time.
type Option interface {
	Apply(*SearchParameters)
}

// optionFunc is a function that implements Option.
type optionFunc func(*SearchParameters)

// Apply implements the Option interface for optionFunc.
func (f optionFunc) Apply(p *SearchParameters) {
	f(p)
}

// WithIndex sets the index the parameters are run against.
func WithIndex(index string) Option {
	return optionFunc(func(p *SearchParameters) {
		p.Index = index
	})
}

// WithQuery sets the full-text query.
func WithQuery(query string) Option {
	return optionFunc(func(p *SearchParameters) {
		p.Query = query
	})
}

// WithPage sets the zero-based page to return.
func WithPage(page int) Option {
	return optionFunc(func(p *SearchParameters) {
		p.Page = page
	})
}

// WithHitsPerPage sets the maximum number of hits per page.
func WithHitsPerPage(n int) Option {
	return optionFunc(func(p *SearchParameters) {
		p.HitsPerPage = n
	})
}

// WithMaxValuesPerFacet sets the maximum number of values returned per facet.
func WithMaxValuesPerFacet(n int) Option {
	return optionFunc(func(p *SearchParameters) {
		p.MaxValuesPerFacet = n
	})
}
