package connectx

import "fmt"

const (
	indicesKey = "indices"
	pageKey    = "page"
	queryKey   = "query"
)

// SearchState is the serializable, namespaced state of every mounted widget.
//
// Top-level keys are widget namespaces ("hierarchicalMenu", "range") or
// shared keys ("page", "query"). In multi-index setups each index keeps its
// own state under indices[<index>]. Nested values are map[string]any so a
// state decoded from JSON can be used as is.
//
// SearchState values are treated as immutable: every method returns a new
// state and leaves the receiver untouched.
type SearchState map[string]any

// IndexContext tells a connector which part of the search state it owns.
type IndexContext struct {
	mainIndex   string
	targetIndex string
	multi       bool
}

// SingleIndex returns the context of a widget in a single-index setup.
// State is read and written at the top level of the search state.
func SingleIndex(mainIndex string) IndexContext {
	return IndexContext{mainIndex: mainIndex}
}

// MultiIndex returns the context of a widget targeting targetIndex in a
// multi-index setup. State is read and written under indices[targetIndex].
func MultiIndex(mainIndex, targetIndex string) IndexContext {
	return IndexContext{mainIndex: mainIndex, targetIndex: targetIndex, multi: true}
}

// IsMultiIndex reports whether state is routed under indices.
func (c IndexContext) IsMultiIndex() bool {
	return c.multi
}

// MainIndex returns the index of the top-level search.
func (c IndexContext) MainIndex() string {
	return c.mainIndex
}

// Index returns the index the widget operates against.
func (c IndexContext) Index() string {
	if c.multi {
		return c.targetIndex
	}
	return c.mainIndex
}

func (c IndexContext) String() string {
	if c.multi {
		return fmt.Sprintf("multi(%s -> %s)", c.mainIndex, c.targetIndex)
	}
	return fmt.Sprintf("single(%s)", c.mainIndex)
}

// Scoped returns the part of the state the context routes to. The returned
// map must not be modified; it is nil when the targeted index has no state.
func (s SearchState) Scoped(ictx IndexContext) map[string]any {
	if !ictx.IsMultiIndex() {
		return s
	}
	indices, ok := asMap(s[indicesKey])
	if !ok {
		return nil
	}
	scoped, _ := asMap(indices[ictx.Index()])
	return scoped
}

// Value returns state[namespace][attribute] in the scope of ictx.
func (s SearchState) Value(ictx IndexContext, namespace, attribute string) (any, bool) {
	ns, ok := asMap(s.Scoped(ictx)[namespace])
	if !ok {
		return nil, false
	}
	v, ok := ns[attribute]
	return v, ok
}

// Refine returns a copy of the state with namespace.attribute set to value
// and the page reset to 1. In multi-index mode the targeted index entry is
// created when missing.
func (s SearchState) Refine(ictx IndexContext, namespace, attribute string, value any) SearchState {
	return s.update(ictx, true, func(scoped map[string]any) {
		current, _ := asMap(scoped[namespace])
		ns := cloneMap(current)
		ns[attribute] = value
		scoped[namespace] = ns
		scoped[pageKey] = 1
	})
}

// Without returns a copy of the state with namespace.attribute removed. The
// namespace map itself is kept even when it ends up empty. Nothing is
// created when the namespace does not exist.
func (s SearchState) Without(ictx IndexContext, namespace, attribute string) SearchState {
	return s.update(ictx, false, func(scoped map[string]any) {
		current, ok := asMap(scoped[namespace])
		if !ok {
			return
		}
		ns := cloneMap(current)
		delete(ns, attribute)
		scoped[namespace] = ns
	})
}

// update copies the path from the root down to the routed scope and lets fn
// modify the copy.
func (s SearchState) update(ictx IndexContext, create bool, fn func(scoped map[string]any)) SearchState {
	out := cloneMap(s)
	if !ictx.IsMultiIndex() {
		fn(out)
		return out
	}

	current, ok := asMap(s[indicesKey])
	if !ok && !create {
		return out
	}
	indices := cloneMap(current)

	target, ok := asMap(indices[ictx.Index()])
	if !ok && !create {
		return out
	}
	scoped := cloneMap(target)
	fn(scoped)

	indices[ictx.Index()] = scoped
	out[indicesKey] = indices
	return out
}

// asMap returns v as a plain map when it is one of the map shapes a search
// state may carry.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case SearchState:
		return m, true
	default:
		return nil, false
	}
}

// cloneMap returns a shallow copy of m; the copy is never nil.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
