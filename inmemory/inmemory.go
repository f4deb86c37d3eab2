package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/connectx"
)

// defaultHitsPerPage applies when the parameters leave HitsPerPage unset.
const defaultHitsPerPage = 10

// Document represents a JSON document in the in-memory database.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"objectID"`
	// Fields contains the document's data as key-value pairs.
	Fields map[string]interface{} `json:"fields"`
}

// collection holds the documents of one index in insertion order.
type collection struct {
	documents []Document
	idIndex   map[string]int // maps document ID to index in documents slice
}

// Searcher implements the connectx.Searcher interface using an in-memory
// store of named indices.
type Searcher struct {
	mu      sync.RWMutex
	indices map[string]*collection
}

var _ connectx.Searcher = (*Searcher)(nil)

// New creates a new in-memory searcher.
// The searcher is ready to use and is safe for concurrent operations.
func New() *Searcher {
	return &Searcher{
		indices: make(map[string]*collection),
	}
}

// AddDocument adds a document to index. A document with the same ID is
// replaced.
func (s *Searcher) AddDocument(index string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.indices[index]
	if !ok {
		c = &collection{idIndex: make(map[string]int)}
		s.indices[index] = c
	}

	if idx, exists := c.idIndex[doc.ID]; exists {
		c.documents[idx] = doc
	} else {
		c.idIndex[doc.ID] = len(c.documents)
		c.documents = append(c.documents, doc)
	}
}

// AddJSON parses jsonData and adds it to index under id.
func (s *Searcher) AddJSON(index, id string, jsonData []byte) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(jsonData, &fields); err != nil {
		return errors.Wrap(err, "failed to unmarshal JSON")
	}

	s.AddDocument(index, Document{
		ID:     id,
		Fields: fields,
	})
	return nil
}

// LoadJSON adds every document of a JSON array of documents to index and
// returns how many were added.
func (s *Searcher) LoadJSON(index string, data []byte) (int, error) {
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return 0, errors.Wrap(err, "failed to unmarshal documents")
	}
	for i, doc := range docs {
		if doc.ID == "" {
			return i, errors.Newf("document %d has no objectID", i)
		}
		s.AddDocument(index, doc)
	}
	return len(docs), nil
}

// RemoveDocument removes a document by ID from index.
// Returns true if the document was found and removed.
func (s *Searcher) RemoveDocument(index, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.indices[index]
	if !ok {
		return false
	}
	idx, exists := c.idIndex[id]
	if !exists {
		return false
	}

	c.documents = append(c.documents[:idx], c.documents[idx+1:]...)

	delete(c.idIndex, id)
	for i := idx; i < len(c.documents); i++ {
		c.idIndex[c.documents[i].ID] = i
	}

	return true
}

// Clear removes all documents from every index.
func (s *Searcher) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indices = make(map[string]*collection)
}

// Size returns the number of documents stored in index.
func (s *Searcher) Size(index string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.indices[index]; ok {
		return len(c.documents)
	}
	return 0
}

// Search implements the connectx.Searcher interface. Facet counts of refined
// facets are computed without their own refinements, like a disjunctive
// query would.
func (s *Searcher) Search(ctx context.Context, params connectx.SearchParameters) (*connectx.Response, error) {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return nil, connectx.ErrCanceled
	default:
	}

	hitsPerPage := params.HitsPerPage
	if hitsPerPage <= 0 {
		hitsPerPage = defaultHitsPerPage
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var documents []Document
	if c, ok := s.indices[params.Index]; ok {
		documents = c.documents
	}

	matches, err := s.match(ctx, documents, params)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	main := countFacets(matches, params.FacetAttributes(), params.MaxValuesPerFacet)
	perFacet := make(map[string]connectx.RawFacets)
	for _, name := range params.RefinedFacets() {
		disjunctive := params.WithoutRefinements(name)
		facetMatches, err := s.match(ctx, documents, disjunctive)
		if err != nil {
			return nil, err
		}
		perFacet[name] = countFacets(facetMatches, disjunctive.AttributesOf(name), params.MaxValuesPerFacet)
	}

	start := params.Page * hitsPerPage
	if start > len(matches) || start < 0 {
		start = len(matches)
	}
	end := start + hitsPerPage
	if end > len(matches) {
		end = len(matches)
	}

	results := &connectx.Response{
		IndexName: params.Index,
		Items:     make([]connectx.Result, 0, end-start),
		Total:     int64(len(matches)),
		Query:     params.Query,
		Page:      params.Page,
		NbPages:   (len(matches) + hitsPerPage - 1) / hitsPerPage,
	}

	for _, match := range matches[start:end] {
		if match.score > results.MaxScore {
			results.MaxScore = match.score
		}
		results.Items = append(results.Items, connectx.Result{
			ID:     match.document.ID,
			Score:  match.score,
			Fields: match.document.Fields,
		})
	}

	if end < len(matches) {
		nextOffset := end
		results.NextOffset = &nextOffset
	}

	results.SetFacets(params, connectx.MergeDisjunctive(params, main, perFacet))
	results.Took = time.Since(startTime).Milliseconds()
	return results, nil
}

type scoredDocument struct {
	document Document
	score    float64
}

// match returns the documents passing the filters and the query.
func (s *Searcher) match(ctx context.Context, documents []Document, params connectx.SearchParameters) ([]scoredDocument, error) {
	filters := params.Filters()

	var matches []scoredDocument
	for _, doc := range documents {
		select {
		case <-ctx.Done():
			return nil, connectx.ErrCanceled
		default:
		}

		if !s.matchesFilters(doc, filters) {
			continue
		}

		if score := s.scoreDocument(doc, params.Query); score > 0 {
			matches = append(matches, scoredDocument{
				document: doc,
				score:    score,
			})
		}
	}
	return matches, nil
}

// scoreDocument calculates the relevance score for a document based on the query.
func (s *Searcher) scoreDocument(doc Document, query string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 1.0
	}

	score := 0.0
	matchedTerms := 0

	for _, term := range terms {
		termMatched := false
		for _, value := range doc.Fields {
			if s.valueContainsTerm(value, term) {
				termMatched = true
				score += 1.0
			}
		}
		if termMatched {
			matchedTerms++
		}
	}

	if matchedTerms == 0 {
		return 0
	}

	// Documents matching every term rank first.
	if matchedTerms == len(terms) {
		score *= 1.5
	}

	return score
}

// valueContainsTerm checks if a value contains the search term.
func (s *Searcher) valueContainsTerm(value interface{}, term string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), term)
	case []interface{}:
		for _, item := range v {
			if s.valueContainsTerm(item, term) {
				return true
			}
		}
	case map[string]interface{}:
		for _, item := range v {
			if s.valueContainsTerm(item, term) {
				return true
			}
		}
	default:
		str := fmt.Sprintf("%v", v)
		return strings.Contains(strings.ToLower(str), term)
	}
	return false
}
