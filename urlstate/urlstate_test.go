package urlstate

import (
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/connectx"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		state connectx.SearchState
		want  string
	}{
		{
			name:  "empty",
			state: connectx.SearchState{},
			want:  "",
		},
		{
			name: "single index",
			state: connectx.SearchState{
				"page":  1,
				"query": "red shoes",
				"range": map[string]any{
					"price": map[string]any{"min": float64(10), "max": 99.5},
				},
				"hierarchicalMenu": map[string]any{"categories.lvl0": "Books > Science"},
			},
			want: "hierarchicalMenu[categories.lvl0]=Books+%3E+Science&page=1&query=red+shoes&range[price][max]=99.5&range[price][min]=10",
		},
		{
			name: "multi index",
			state: connectx.SearchState{
				"indices": map[string]any{
					"second": map[string]any{"range": map[string]any{"price": map[string]any{"min": "3"}}},
				},
			},
			want: "indices[second][range][price][min]=3",
		},
		{
			name:  "lists and cleared values",
			state: connectx.SearchState{"refinementList": map[string]any{"brand": []any{"Apple", "Google"}}, "hierarchicalMenu": map[string]any{"lvl0": ""}, "range": map[string]any{}},
			want:  "hierarchicalMenu[lvl0]=&refinementList[brand][]=Apple&refinementList[brand][]=Google",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.state); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  connectx.SearchState
	}{
		{
			name:  "empty",
			query: "",
			want:  connectx.SearchState{},
		},
		{
			name:  "leading question mark",
			query: "?query=shoes&page=2",
			want:  connectx.SearchState{"query": "shoes", "page": "2"},
		},
		{
			name:  "nested",
			query: "range[price][min]=6&range[price][max]=9&hierarchicalMenu[categories.lvl0]=Books+%3E+Science",
			want: connectx.SearchState{
				"range":            map[string]any{"price": map[string]any{"min": "6", "max": "9"}},
				"hierarchicalMenu": map[string]any{"categories.lvl0": "Books > Science"},
			},
		},
		{
			name:  "escaped brackets",
			query: "range%5Bprice%5D%5Bmin%5D=1",
			want:  connectx.SearchState{"range": map[string]any{"price": map[string]any{"min": "1"}}},
		},
		{
			name:  "list",
			query: "refinementList[brand][]=Apple&refinementList[brand][]=Google",
			want:  connectx.SearchState{"refinementList": map[string]any{"brand": []any{"Apple", "Google"}}},
		},
		{
			name:  "cleared value",
			query: "hierarchicalMenu[lvl0]=",
			want:  connectx.SearchState{"hierarchicalMenu": map[string]any{"lvl0": ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.query)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"empty_head":      "[price]=1",
		"unterminated":    "range[price=1",
		"garbage_after":   "range[price]x=1",
		"inner_list":      "range[][min]=1",
		"scalar_then_map": "range=1&range[price]=2",
		"bad_escape":      "range=%zz",
	}

	for name, query := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(query)
			if !errors.Is(err, connectx.ErrInvalidState) {
				t.Errorf("Expected ErrInvalidState, got %v", err)
			}
		})
	}
}

func TestRoundTripDrivesConnectorState(t *testing.T) {
	ictx := connectx.MultiIndex("first", "second")
	state := connectx.SearchState{}.
		Refine(ictx, "range", "price", map[string]any{"min": float64(3), "max": float64(5)})

	decoded, err := Decode(Encode(state))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	value, ok := decoded.Value(ictx, "range", "price")
	if !ok {
		t.Fatal("Expected the range refinement to survive the round trip")
	}
	want := map[string]any{"min": "3", "max": "5"}
	if !reflect.DeepEqual(value, want) {
		t.Errorf("Expected %v, got %v", want, value)
	}
}
