package inmemory

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/letmevibethatforyou/connectx"
)

// countFacets aggregates the values of attributes over matches. Array
// values count once per element. Numeric values also feed the stats. With
// maxValues > 0 only the most frequent values of each attribute are kept.
func countFacets(matches []scoredDocument, attributes []string, maxValues int) connectx.RawFacets {
	raw := connectx.RawFacets{
		Counts: make(map[string]map[string]int, len(attributes)),
		Stats:  make(map[string]connectx.FacetStats),
	}

	for _, attr := range attributes {
		counts := make(map[string]int)
		var stats connectx.FacetStats
		numeric := 0

		for _, match := range matches {
			value, ok := lookup(match.document.Fields, attr)
			if !ok || value == nil {
				continue
			}
			values := []interface{}{value}
			if items, ok := value.([]interface{}); ok {
				values = items
			}
			for _, v := range values {
				if v == nil {
					continue
				}
				counts[facetKey(v)]++

				f, ok := toFloat64(v)
				if !ok {
					continue
				}
				if numeric == 0 || f < stats.Min {
					stats.Min = f
				}
				if numeric == 0 || f > stats.Max {
					stats.Max = f
				}
				stats.Sum += f
				numeric++
			}
		}

		raw.Counts[attr] = topValues(counts, maxValues)
		if numeric > 0 {
			stats.Avg = stats.Sum / float64(numeric)
			raw.Stats[attr] = stats
		}
	}
	return raw
}

// facetKey renders a value the way engines report facet values.
func facetKey(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	}
	if f, ok := toFloat64(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

// topValues keeps the n most frequent values, ties broken by name.
func topValues(counts map[string]int, n int) map[string]int {
	if n <= 0 || len(counts) <= n {
		return counts
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	top := make(map[string]int, n)
	for _, name := range names[:n] {
		top[name] = counts[name]
	}
	return top
}
