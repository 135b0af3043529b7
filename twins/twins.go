// Package twins implements the deterministic in-memory service simulations
// behind the router: browser, mail, slack, docs, calendar, tickets, crm,
// erp, database, identity and service desk. Every twin exposes plain
// map-shaped results, shares the uniform pagination contract and accepts bus
// deliveries through Deliver.
package twins

import (
	"fmt"
	"sort"
	"strings"

	"goa.design/vei/apitypes"
	"goa.design/vei/bus"
)

// Session gives twins access to the logical clock, the scheduler and the
// session RNG. The bus satisfies it; twins never advance time themselves.
type Session interface {
	ClockMS() int64
	Schedule(dtMS int64, target string, payload map[string]any)
	RNG() *bus.RNG
}

// sortRows orders rows in place by field with a stable tiebreak on the
// original position. Values compare numerically when both sides are numeric,
// lexically otherwise.
func sortRows(rows []map[string]any, field string, asc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		less := compareValues(rows[i][field], rows[j][field]) < 0
		if asc {
			return less
		}
		return compareValues(rows[i][field], rows[j][field]) > 0
	})
}

func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(stringify(a), stringify(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// argString pulls a string argument, tolerating absent keys.
func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// argInt pulls an integer argument from JSON-decoded payloads.
func argInt(args map[string]any, key string, def int) int {
	switch n := args[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func argInt64(args map[string]any, key string, def int64) int64 {
	switch n := args[key].(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return def
}

func argFloat(args map[string]any, key string, def float64) float64 {
	switch n := args[key].(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return def
}

func argBool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func argStrings(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func argMaps(args map[string]any, key string) []map[string]any {
	raw, _ := args[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// pageRequest assembles the uniform pagination request from tool args. The
// legacy flag is set either explicitly or by the caller when every
// pagination argument was omitted.
func pageRequest(args map[string]any) apitypes.PageRequest {
	req := apitypes.PageRequest{
		Query:   argString(args, "query"),
		SortBy:  argString(args, "sort_by"),
		SortDir: argString(args, "sort_dir"),
		Limit:   argInt(args, "limit", 0),
		Cursor:  argString(args, "cursor"),
		Legacy:  argBool(args, "legacy"),
	}
	return req
}

// hasPagingArgs reports whether any pagination or filter argument is
// present; list handlers use it to gate the legacy plain-array shape.
func hasPagingArgs(args map[string]any, extra ...string) bool {
	keys := append([]string{"query", "sort_by", "sort_dir", "limit", "cursor"}, extra...)
	for _, key := range keys {
		if _, ok := args[key]; ok {
			return true
		}
	}
	return false
}
