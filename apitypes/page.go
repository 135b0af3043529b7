package apitypes

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultPageLimit is applied when a list call omits limit.
	DefaultPageLimit = 25
	// MaxPageLimit caps any requested limit.
	MaxPageLimit = 200
)

type (
	// PageRequest captures the uniform pagination and filtering arguments
	// accepted by every list-style tool.
	PageRequest struct {
		// Query is an optional substring filter; interpretation is per twin.
		Query string
		// SortBy names the sort field; twins fall back to their default when
		// the field is not sortable.
		SortBy string
		// SortDir is "asc" or "desc"; anything else means "desc".
		SortDir string
		// Limit is clamped to [1, MaxPageLimit]; zero means DefaultPageLimit.
		Limit int
		// Cursor is an opaque "ofs:<int>" continuation token.
		Cursor string
		// Legacy requests the pre-pagination plain-array response shape.
		Legacy bool
	}

	// Page is the uniform paginated response envelope. Rows holds the slice
	// under the twin's row key when serialized.
	Page struct {
		// Rows are the page contents.
		Rows []map[string]any
		// Count is len(Rows).
		Count int
		// Total is the number of rows matching the filter before slicing.
		Total int
		// NextCursor continues the walk, empty when exhausted.
		NextCursor string
		// HasMore reports whether NextCursor is set.
		HasMore bool
	}
)

// Ascending reports whether the request asks for ascending order.
func (r PageRequest) Ascending() bool {
	return strings.EqualFold(strings.TrimSpace(r.SortDir), "asc")
}

// EffectiveLimit clamps the requested limit into [1, MaxPageLimit], using
// def when the request leaves it unset. A non-positive def falls back to
// DefaultPageLimit.
func (r PageRequest) EffectiveLimit(def int) int {
	if def <= 0 {
		def = DefaultPageLimit
	}
	switch {
	case r.Limit == 0:
		return def
	case r.Limit < 1:
		return 1
	case r.Limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return r.Limit
	}
}

// DecodeCursor parses an "ofs:<int>" cursor into a non-negative offset.
// Empty cursors decode to zero. Malformed cursors return errCode so each
// twin surfaces its own scoped invalid_cursor error.
func DecodeCursor(cursor, errCode string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	rest, ok := strings.CutPrefix(cursor, "ofs:")
	if !ok {
		return 0, Errorf(errCode, "invalid cursor: %s", cursor)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, Errorf(errCode, "invalid cursor: %s", cursor)
	}
	return n, nil
}

// EncodeCursor renders an offset as an opaque continuation token.
func EncodeCursor(offset int) string {
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf("ofs:%d", offset)
}

// Paginate slices rows at the decoded cursor offset and builds the response
// envelope. rows must already be filtered and sorted.
func Paginate(rows []map[string]any, offset, limit int) Page {
	total := len(rows)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := Page{
		Rows:  rows[offset:end],
		Count: end - offset,
		Total: total,
	}
	if end < total {
		page.NextCursor = EncodeCursor(end)
		page.HasMore = true
	}
	return page
}

// Envelope renders the page under the twin's row key, matching the uniform
// wire shape {rowsKey, count, total, next_cursor, has_more}.
func (p Page) Envelope(rowsKey string) map[string]any {
	rows := p.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	out := map[string]any{
		rowsKey:    rows,
		"count":    p.Count,
		"total":    p.Total,
		"has_more": p.HasMore,
	}
	if p.HasMore {
		out["next_cursor"] = p.NextCursor
	} else {
		out["next_cursor"] = nil
	}
	return out
}
