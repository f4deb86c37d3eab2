package inmemory

import (
	"fmt"
	"strings"

	"github.com/letmevibethatforyou/connectx"
)

// matchesFilters checks if a document matches all the filter expressions.
func (s *Searcher) matchesFilters(doc Document, filters []connectx.Expression) bool {
	for _, filter := range filters {
		if !s.evaluateExpression(doc, filter) {
			return false
		}
	}
	return true
}

// evaluateExpression evaluates a single expression against a document.
func (s *Searcher) evaluateExpression(doc Document, expr connectx.Expression) bool {
	switch e := expr.(type) {
	case connectx.AndExpr:
		for _, inner := range e.Exprs {
			if !s.evaluateExpression(doc, inner) {
				return false
			}
		}
		return true
	case connectx.CompareExpr:
		return s.evaluateCompare(doc, e)
	default:
		// Unknown expression type, return true to not filter out
		return true
	}
}

// evaluateCompare evaluates a comparison. Array fields match when any
// element does, except for OpNe which requires every element to differ.
func (s *Searcher) evaluateCompare(doc Document, expr connectx.CompareExpr) bool {
	docValue, exists := lookup(doc.Fields, expr.Field)
	if !exists {
		return expr.Op == connectx.OpNe && expr.Value != nil
	}

	values := []interface{}{docValue}
	if items, ok := docValue.([]interface{}); ok {
		values = items
	}

	if expr.Op == connectx.OpNe {
		for _, v := range values {
			if s.compareEqual(v, expr.Value) {
				return false
			}
		}
		return true
	}

	for _, v := range values {
		if s.compareOp(v, expr.Op, expr.Value) {
			return true
		}
	}
	return false
}

func (s *Searcher) compareOp(docValue interface{}, op connectx.Operator, value interface{}) bool {
	switch op {
	case connectx.OpEq:
		return s.compareEqual(docValue, value)
	case connectx.OpGt:
		return s.compareValues(docValue, value) > 0
	case connectx.OpGte:
		return s.compareValues(docValue, value) >= 0
	case connectx.OpLt:
		return s.compareValues(docValue, value) < 0
	case connectx.OpLte:
		return s.compareValues(docValue, value) <= 0
	default:
		return false
	}
}

// lookup resolves a dotted path ("categories.lvl0") inside fields. A field
// whose name contains the dots wins over nested maps.
func lookup(fields map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := fields[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	nested, ok := fields[head].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return lookup(nested, rest)
}

// compareEqual checks if two values are equal.
func (s *Searcher) compareEqual(v1, v2 interface{}) bool {
	if v1 == nil || v2 == nil {
		return v1 == v2
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			return f1 == f2
		}
	}

	return fmt.Sprintf("%v", v1) == fmt.Sprintf("%v", v2)
}

// compareValues orders two values, numerically when both are numbers.
func (s *Searcher) compareValues(v1, v2 interface{}) int {
	if v1 == nil && v2 == nil {
		return 0
	}
	if v1 == nil {
		return -1
	}
	if v2 == nil {
		return 1
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			switch {
			case f1 < f2:
				return -1
			case f1 > f2:
				return 1
			}
			return 0
		}
	}

	return strings.Compare(fmt.Sprintf("%v", v1), fmt.Sprintf("%v", v2))
}

// toFloat64 attempts to convert a value to float64. Strings never convert,
// so "10" and 10 compare as text.
func toFloat64(v interface{}) (float64, bool) {
	if _, ok := v.(string); ok {
		return 0, false
	}
	return connectx.ParseNumber(v)
}
