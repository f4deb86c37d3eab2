package algolia

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/connectx"
)

// defaultHitsPerPage applies when the parameters leave HitsPerPage unset.
const defaultHitsPerPage = 10

// queryRunner runs a single Algolia query. *Client implements it.
type queryRunner interface {
	Search(ctx context.Context, indexName, query string, opts ...interface{}) (search.QueryRes, error)
}

// Searcher implements the connectx.Searcher interface using Algolia.
type Searcher struct {
	client    queryRunner
	indexName string
}

var _ connectx.Searcher = (*Searcher)(nil)

// NewSearcher creates an Algolia searcher. indexName is searched when the
// parameters do not name an index.
func NewSearcher(client *Client, indexName string) *Searcher {
	return &Searcher{
		client:    client,
		indexName: indexName,
	}
}

// Search runs params against Algolia. Besides the main query, one facet-only
// query runs per refined facet so the values a refinement hides from the
// main query can still be offered.
func (s *Searcher) Search(ctx context.Context, params connectx.SearchParameters) (*connectx.Response, error) {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return nil, connectx.ErrCanceled
	default:
	}

	indexName := params.Index
	if indexName == "" {
		indexName = s.indexName
	}

	res, err := s.run(ctx, indexName, params, buildSearchParams(params))
	if err != nil {
		return nil, err
	}
	main := rawFacets(res)

	perFacet := make(map[string]connectx.RawFacets)
	for _, name := range params.RefinedFacets() {
		disjunctive := params.WithoutRefinements(name)
		facetRes, err := s.run(ctx, indexName, disjunctive, buildFacetParams(disjunctive, name))
		if err != nil {
			return nil, errors.Wrapf(err, "disjunctive query for %s", name)
		}
		perFacet[name] = rawFacets(facetRes)
	}

	hitsPerPage := params.HitsPerPage
	if hitsPerPage == 0 {
		hitsPerPage = defaultHitsPerPage
	}

	results := &connectx.Response{
		IndexName: indexName,
		Items:     make([]connectx.Result, 0, len(res.Hits)),
		Total:     int64(res.NbHits),
		Query:     params.Query,
		Page:      res.Page,
		NbPages:   res.NbPages,
	}

	for _, hit := range res.Hits {
		objectID, _ := hit["objectID"].(string)

		// Algolia does not expose scores; rank decides.
		score := calculateScore(len(res.Hits), len(results.Items))
		if score > results.MaxScore {
			results.MaxScore = score
		}

		results.Items = append(results.Items, connectx.Result{
			ID:     objectID,
			Score:  score,
			Fields: hit,
		})
	}

	if nextPage := res.Page + 1; nextPage < res.NbPages {
		nextOffset := nextPage * hitsPerPage
		results.NextOffset = &nextOffset
	}

	results.SetFacets(params, connectx.MergeDisjunctive(params, main, perFacet))
	results.Took = time.Since(startTime).Milliseconds()
	return results, nil
}

// run executes one query and maps failures onto the connectx error codes.
func (s *Searcher) run(ctx context.Context, indexName string, params connectx.SearchParameters, opts []interface{}) (search.QueryRes, error) {
	res, err := s.client.Search(ctx, indexName, params.Query, opts...)
	if err == nil {
		return res, nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return search.QueryRes{}, connectx.ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return search.QueryRes{}, connectx.ErrCanceled
	}
	return search.QueryRes{}, errors.WithSecondaryError(
		connectx.ErrBackendUnavailable,
		errors.Wrapf(err, "Algolia search failed"),
	)
}

// rawFacets extracts the facet data of an Algolia response.
func rawFacets(res search.QueryRes) connectx.RawFacets {
	raw := connectx.RawFacets{
		Counts: res.Facets,
		Stats:  make(map[string]connectx.FacetStats, len(res.FacetsStats)),
	}
	for attr, stats := range res.FacetsStats {
		raw.Stats[attr] = connectx.FacetStats{
			Min: stats.Min,
			Max: stats.Max,
			Avg: stats.Avg,
			Sum: stats.Sum,
		}
	}
	return raw
}

// buildSearchParams converts connectx.SearchParameters to Algolia query options.
func buildSearchParams(params connectx.SearchParameters) []interface{} {
	hitsPerPage := params.HitsPerPage
	if hitsPerPage == 0 {
		hitsPerPage = defaultHitsPerPage
	}

	opts := []interface{}{opt.HitsPerPage(hitsPerPage)}
	if params.Page > 0 {
		opts = append(opts, opt.Page(params.Page))
	}
	if facets := params.FacetAttributes(); len(facets) > 0 {
		opts = append(opts, opt.Facets(facets...))
	}
	if params.MaxValuesPerFacet > 0 {
		opts = append(opts, opt.MaxValuesPerFacet(params.MaxValuesPerFacet))
	}
	if filters := buildFilters(params.Filters()); filters != "" {
		opts = append(opts, opt.Filters(filters))
	}
	return opts
}

// buildFacetParams requests only the facet values of name, without hits.
func buildFacetParams(params connectx.SearchParameters, name string) []interface{} {
	opts := []interface{}{
		opt.HitsPerPage(0),
		opt.Facets(params.AttributesOf(name)...),
	}
	if params.MaxValuesPerFacet > 0 {
		opts = append(opts, opt.MaxValuesPerFacet(params.MaxValuesPerFacet))
	}
	if filters := buildFilters(params.Filters()); filters != "" {
		opts = append(opts, opt.Filters(filters))
	}
	return opts
}

func buildFilters(exprs []connectx.Expression) string {
	filters := make([]string, 0, len(exprs))
	for _, expr := range exprs {
		if filter := convertExpressionToFilter(expr); filter != "" {
			filters = append(filters, filter)
		}
	}
	return strings.Join(filters, " AND ")
}

// calculateScore creates a rank-based score for Algolia results.
func calculateScore(totalResults, position int) float64 {
	if totalResults == 0 {
		return 1.0
	}
	return float64(totalResults-position) / float64(totalResults)
}

// convertExpressionToFilter converts a connectx expression to an Algolia filter string
func convertExpressionToFilter(expr connectx.Expression) string {
	switch e := expr.(type) {
	case connectx.AndExpr:
		return convertAndExpression(e)
	case connectx.CompareExpr:
		return convertCompareExpression(e)
	default:
		return ""
	}
}

// convertAndExpression converts an AND expression to Algolia filter syntax
func convertAndExpression(expr connectx.AndExpr) string {
	filters := make([]string, 0, len(expr.Exprs))
	for _, e := range expr.Exprs {
		if filter := convertExpressionToFilter(e); filter != "" {
			filters = append(filters, "("+filter+")")
		}
	}
	return strings.Join(filters, " AND ")
}

// convertCompareExpression renders facet filters for string equality and
// numeric filters for everything else.
func convertCompareExpression(expr connectx.CompareExpr) string {
	field := escapeField(expr.Field)
	_, isString := expr.Value.(string)

	switch expr.Op {
	case connectx.OpEq:
		if isString || expr.Value == nil {
			return fmt.Sprintf("%s:%s", field, escapeValue(expr.Value))
		}
		return fmt.Sprintf("%s = %s", field, escapeNumericValue(expr.Value))
	case connectx.OpNe:
		if isString || expr.Value == nil {
			return fmt.Sprintf("NOT %s:%s", field, escapeValue(expr.Value))
		}
		return fmt.Sprintf("%s != %s", field, escapeNumericValue(expr.Value))
	case connectx.OpGt, connectx.OpGte, connectx.OpLt, connectx.OpLte:
		return fmt.Sprintf("%s %s %s", field, expr.Op, escapeNumericValue(expr.Value))
	default:
		return ""
	}
}

// escapeField escapes field names for Algolia filters
func escapeField(field string) string {
	if strings.ContainsAny(field, " :-()") {
		return fmt.Sprintf(`"%s"`, field)
	}
	return field
}

// escapeValue escapes string values for Algolia filters
func escapeValue(value interface{}) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case string:
		escaped := strings.ReplaceAll(v, `"`, `\"`)
		return fmt.Sprintf(`"%s"`, escaped)
	case bool:
		return fmt.Sprintf(`"%s"`, strconv.FormatBool(v))
	default:
		return fmt.Sprintf(`"%v"`, value)
	}
}

// escapeNumericValue escapes numeric values for Algolia filters
func escapeNumericValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "0"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	default:
		if f, ok := connectx.ParseNumber(value); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return escapeValue(value)
	}
}
