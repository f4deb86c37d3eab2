// Package urlstate serializes a search state to and from a URL query string
// using the bracket syntax, for example
// "range[price][min]=10&hierarchicalMenu[categories.lvl0]=Books".
package urlstate

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/connectx"
)

// Encode renders state as a query string. Keys are sorted, slices use the
// "key[]" form and empty maps are dropped.
func Encode(state connectx.SearchState) string {
	var pairs []string
	encodeValue(&pairs, nil, map[string]any(state))
	return strings.Join(pairs, "&")
}

func encodeValue(pairs *[]string, path []string, v any) {
	switch val := v.(type) {
	case nil:
	case connectx.SearchState:
		encodeValue(pairs, path, map[string]any(val))
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeValue(pairs, append(path[:len(path):len(path)], k), val[k])
		}
	case []any:
		for _, item := range val {
			encodeValue(pairs, append(path[:len(path):len(path)], ""), item)
		}
	case []string:
		for _, item := range val {
			encodeValue(pairs, append(path[:len(path):len(path)], ""), item)
		}
	default:
		if len(path) == 0 {
			return
		}
		*pairs = append(*pairs, encodeKey(path)+"="+url.QueryEscape(scalar(val)))
	}
}

func encodeKey(path []string) string {
	var b strings.Builder
	b.WriteString(url.QueryEscape(path[0]))
	for _, seg := range path[1:] {
		b.WriteByte('[')
		b.WriteString(url.QueryEscape(seg))
		b.WriteByte(']')
	}
	return b.String()
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	}
	if f, ok := connectx.ParseNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// Decode parses a query string produced by Encode, or typed by hand. A
// leading "?" is ignored. Every leaf decodes as a string; connectors coerce
// numbers themselves.
func Decode(query string) (connectx.SearchState, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return nil, errors.WithSecondaryError(connectx.ErrInvalidState, errors.Wrap(err, "failed to parse query string"))
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	state := connectx.SearchState{}
	for _, key := range keys {
		path, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		if err := insert(state, key, path, values[key]); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// splitKey turns "a[b][c]" into [a b c]. An empty trailing segment marks a
// list.
func splitKey(key string) ([]string, error) {
	head, rest, found := strings.Cut(key, "[")
	if head == "" {
		return nil, errors.Wrapf(connectx.ErrInvalidState, "empty key in %q", key)
	}
	path := []string{head}
	if !found {
		return path, nil
	}

	rest = "[" + rest
	for rest != "" {
		if rest[0] != '[' {
			return nil, errors.Wrapf(connectx.ErrInvalidState, "malformed key %q", key)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, errors.Wrapf(connectx.ErrInvalidState, "unterminated bracket in %q", key)
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	for _, seg := range path[1 : len(path)-1] {
		if seg == "" {
			return nil, errors.Wrapf(connectx.ErrInvalidState, "list marker must be last in %q", key)
		}
	}
	return path, nil
}

func insert(node map[string]any, key string, path []string, values []string) error {
	for i, seg := range path {
		last := i == len(path)-1
		next := ""
		if !last {
			next = path[i+1]
		}

		switch {
		case last:
			if _, exists := node[seg]; exists {
				return errors.Wrapf(connectx.ErrInvalidState, "conflicting values for %q", key)
			}
			node[seg] = values[len(values)-1]
			return nil
		case next == "" && i+1 == len(path)-1:
			if _, exists := node[seg]; exists {
				return errors.Wrapf(connectx.ErrInvalidState, "conflicting values for %q", key)
			}
			list := make([]any, len(values))
			for j, v := range values {
				list[j] = v
			}
			node[seg] = list
			return nil
		default:
			child, exists := node[seg]
			if !exists {
				child = map[string]any{}
				node[seg] = child
			}
			m, ok := child.(map[string]any)
			if !ok {
				return errors.Wrapf(connectx.ErrInvalidState, "conflicting values for %q", key)
			}
			node = m
		}
	}
	return nil
}
