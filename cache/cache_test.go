package cache

import (
	"context"
	"math"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/connectx"
)

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) Search(_ context.Context, params connectx.SearchParameters) (*connectx.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &connectx.Response{IndexName: params.Index, Query: params.Query}, nil
}

func TestNew(t *testing.T) {
	if _, err := New(nil, 10); err == nil {
		t.Error("Expected error for nil searcher")
	}

	s, err := New(&countingSearcher{}, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", s.Len())
	}
}

func TestSearcherCachesByParameters(t *testing.T) {
	next := &countingSearcher{}
	s, err := New(next, 10)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	ctx := context.Background()

	phones := connectx.NewSearchParameters(connectx.WithIndex("products")).
		AddHierarchicalFacet(connectx.HierarchicalFacet{Name: "lvl0", Attributes: []string{"lvl0", "lvl1"}}).
		ToggleHierarchicalFacetRefinement("lvl0", "Electronics > Phones")

	first, err := s.Search(ctx, phones)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	second, err := s.Search(ctx, phones)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("Expected 1 backend call, got %d", next.calls)
	}
	if first != second {
		t.Error("Expected the cached response to be returned")
	}

	// Equal parameters built separately share the entry.
	rebuilt := connectx.NewSearchParameters(connectx.WithIndex("products")).
		AddHierarchicalFacet(connectx.HierarchicalFacet{Name: "lvl0", Attributes: []string{"lvl0", "lvl1"}}).
		ToggleHierarchicalFacetRefinement("lvl0", "Electronics > Phones")
	if _, err := s.Search(ctx, rebuilt); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("Expected rebuilt parameters to hit the cache, got %d calls", next.calls)
	}

	if _, err := s.Search(ctx, phones.SetPage(1)); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("Expected a new page to miss the cache, got %d calls", next.calls)
	}

	s.Purge()
	if s.Len() != 0 {
		t.Errorf("Expected empty cache after purge, got %d", s.Len())
	}
	if _, err := s.Search(ctx, phones); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if next.calls != 3 {
		t.Errorf("Expected a miss after purge, got %d calls", next.calls)
	}
}

func TestSearcherEviction(t *testing.T) {
	next := &countingSearcher{}
	s, err := New(next, 2)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		if _, err := s.Search(ctx, connectx.NewSearchParameters(connectx.WithQuery(q))); err != nil {
			t.Fatalf("Search failed: %v", err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("Expected 2 cached entries, got %d", s.Len())
	}

	if _, err := s.Search(ctx, connectx.NewSearchParameters(connectx.WithQuery("a"))); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if next.calls != 4 {
		t.Errorf("Expected the oldest entry to be evicted, got %d calls", next.calls)
	}
}

func TestSearcherDoesNotCacheErrors(t *testing.T) {
	next := &countingSearcher{err: connectx.ErrBackendUnavailable}
	s, err := New(next, 10)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	params := connectx.NewSearchParameters(connectx.WithQuery("q"))

	for i := 0; i < 2; i++ {
		if _, err := s.Search(context.Background(), params); !errors.Is(err, connectx.ErrBackendUnavailable) {
			t.Errorf("Expected ErrBackendUnavailable, got %v", err)
		}
	}
	if next.calls != 2 || s.Len() != 0 {
		t.Errorf("Expected errors to bypass the cache, got %d calls and %d entries", next.calls, s.Len())
	}
}

func TestSearcherBypassesUnkeyedParameters(t *testing.T) {
	next := &countingSearcher{}
	s, err := New(next, 10)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	ctx := context.Background()

	for _, q := range []string{"a", "b"} {
		params := connectx.NewSearchParameters(connectx.WithQuery(q)).
			AddNumericRefinement("price", connectx.OpGte, math.NaN())
		res, err := s.Search(ctx, params)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if res.Query != q {
			t.Errorf("Expected response for %q, got %q", q, res.Query)
		}
	}
	if next.calls != 2 || s.Len() != 0 {
		t.Errorf("Expected both searches to bypass the cache, got %d calls and %d entries", next.calls, s.Len())
	}
}
