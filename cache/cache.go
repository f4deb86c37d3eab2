// Package cache memoizes search responses in front of a slower Searcher.
package cache

import (
	"context"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/letmevibethatforyou/connectx"
)

// DefaultSize is the number of responses kept when no size is given.
const DefaultSize = 1024

// Searcher caches responses of the wrapped searcher by parameter key.
// Cached responses are shared between callers and must not be modified.
type Searcher struct {
	next  connectx.Searcher
	cache *lru.Cache[string, *connectx.Response]
}

// New wraps next with an LRU cache holding up to size responses.
func New(next connectx.Searcher, size int) (*Searcher, error) {
	if next == nil {
		return nil, errors.New("cache: searcher is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, *connectx.Response](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create response cache")
	}
	return &Searcher{next: next, cache: c}, nil
}

// Search returns the cached response for params or queries the wrapped
// searcher. Errors are never cached. Parameters without a key bypass the
// cache.
func (s *Searcher) Search(ctx context.Context, params connectx.SearchParameters) (*connectx.Response, error) {
	key, err := params.Key()
	if err != nil {
		return s.next.Search(ctx, params)
	}
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	res, err := s.next.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, res)
	return res, nil
}

// Purge drops every cached response.
func (s *Searcher) Purge() {
	s.cache.Purge()
}

// Len reports the number of cached responses.
func (s *Searcher) Len() int {
	return s.cache.Len()
}
