package connectx

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ClearMode selects how a ClearAction removes a refinement.
type ClearMode int

const (
	// ClearReset writes an empty value and sends the user back to page 1.
	ClearReset ClearMode = iota + 1
	// ClearRemove drops the attribute's entry from its namespace.
	ClearRemove
)

// ClearAction removes one refinement from a search state. It is a plain
// value so metadata can be compared, logged and applied to any state, not
// only the one it was derived from.
type ClearAction struct {
	Context   IndexContext
	Namespace string
	Attribute string
	Mode      ClearMode
}

// Apply returns state without the refinement the action targets.
func (a ClearAction) Apply(state SearchState) SearchState {
	if a.Mode == ClearReset {
		return state.Refine(a.Context, a.Namespace, a.Attribute, "")
	}
	return state.Without(a.Context, a.Namespace, a.Attribute)
}

// ParseNumber converts the numeric shapes a search state may hold into a
// float64. Strings are accepted so states decoded from a URL behave like
// states built in code. Non finite results are rejected.
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int8:
		f = float64(val)
	case int16:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
