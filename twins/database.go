package twins

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"goa.design/vei/apitypes"
	"goa.design/vei/world"
)

// Database is the query-style twin used by audit and reporting workflows.
// Tables are ordered row slices keyed by name; rows are loose maps.
type Database struct {
	tables map[string][]map[string]any
}

// defaultTables seeds the twin when the scenario supplies no tables.
func defaultTables() map[string][]map[string]any {
	return map[string][]map[string]any{
		"procurement_orders": {
			{
				"id":          "PO-1001",
				"vendor":      "MacroCompute",
				"amount_usd":  3199,
				"status":      "PENDING_APPROVAL",
				"cost_center": "IT-OPS",
			},
			{
				"id":          "PO-1002",
				"vendor":      "Dell Business",
				"amount_usd":  2799,
				"status":      "APPROVED",
				"cost_center": "ENG-PLATFORM",
			},
		},
		"crm_pipeline": {
			{
				"id":         "OPP-901",
				"account":    "MacroCompute",
				"stage":      "qualification",
				"amount_usd": 12000,
				"owner":      "sam@macrocompute.example",
			},
		},
		"approval_audit": {
			{
				"id":          "APR-1",
				"entity_type": "purchase_order",
				"entity_id":   "PO-1001",
				"status":      "PENDING",
				"approver":    "finance@macrocompute.example",
			},
		},
	}
}

// NewDatabase seeds the twin from the scenario.
func NewDatabase(s world.Scenario) *Database {
	seeded := s.DatabaseTables
	if seeded == nil {
		seeded = defaultTables()
	}
	tables := make(map[string][]map[string]any, len(seeded))
	for name, rows := range seeded {
		copied := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			copied = append(copied, cloneRow(row))
		}
		tables[name] = copied
	}
	return &Database{tables: tables}
}

// ListTables returns table summaries. Legacy shape (no args) is a plain
// array of {table, row_count}.
func (d *Database) ListTables(args map[string]any) (any, error) {
	req := pageRequest(args)
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	needle := strings.ToLower(strings.TrimSpace(req.Query))
	rows := make([]map[string]any, 0, len(names))
	for _, name := range names {
		if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		rows = append(rows, map[string]any{"table": name, "row_count": len(d.tables[name])})
	}
	sortField := req.SortBy
	if sortField != "table" && sortField != "row_count" {
		sortField = "table"
	}
	sortRows(rows, sortField, req.Ascending())

	if req.Legacy || !hasPagingArgs(args) {
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "db.invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("tables"), nil
}

// DescribeTable returns the union of column names across rows.
func (d *Database) DescribeTable(table string) (map[string]any, error) {
	rows, err := d.table(table)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			seen[col] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return map[string]any{"table": table, "columns": columns, "row_count": len(rows)}, nil
}

// Query filters, sorts, projects and paginates a table. The result always
// carries the full page envelope including the resolved offset.
func (d *Database) Query(table string, filters map[string]any, columns []string, limit, offset int, cursor, sortBy string, descending bool) (map[string]any, error) {
	src, err := d.table(table)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(src))
	for _, row := range src {
		if filters != nil && !matchesFilters(row, filters) {
			continue
		}
		rows = append(rows, cloneRow(row))
	}
	if sortBy != "" {
		sortRows(rows, sortBy, !descending)
	}
	total := len(rows)
	start := offset
	if start < 0 {
		start = 0
	}
	if cursor != "" {
		start, err = apitypes.DecodeCursor(cursor, "db.invalid_cursor")
		if err != nil {
			return nil, err
		}
	}
	if limit <= 0 {
		limit = 20
	} else if limit > apitypes.MaxPageLimit {
		limit = apitypes.MaxPageLimit
	}
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	sliced := rows[start:end]
	if len(columns) > 0 {
		keep := make(map[string]bool, len(columns))
		for _, col := range columns {
			keep[col] = true
		}
		projected := make([]map[string]any, 0, len(sliced))
		for _, row := range sliced {
			out := make(map[string]any, len(keep))
			for k, v := range row {
				if keep[k] {
					out[k] = v
				}
			}
			projected = append(projected, out)
		}
		sliced = projected
	}
	var nextCursor any
	hasMore := start+limit < total
	if hasMore {
		nextCursor = apitypes.EncodeCursor(start + limit)
	}
	return map[string]any{
		"table":       table,
		"rows":        sliced,
		"count":       len(sliced),
		"total":       total,
		"offset":      start,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	}, nil
}

// Upsert merges a row by key, synthesizing an id when the row omits it.
// The table is created on first write.
func (d *Database) Upsert(table string, row map[string]any, key string) (map[string]any, error) {
	if row == nil {
		return nil, apitypes.NewError("db.invalid_row", "db.upsert requires row object")
	}
	if key == "" {
		key = "id"
	}
	rows := d.tables[table]
	copied := cloneRow(row)
	if _, ok := copied[key]; !ok {
		copied[key] = strings.ToUpper(table) + "-" + strconv.Itoa(len(rows)+1)
	}
	rowID := copied[key]
	updated := false
	for i, existing := range rows {
		if reflect.DeepEqual(existing[key], rowID) || stringify(existing[key]) == stringify(rowID) {
			merged := cloneRow(existing)
			for k, v := range copied {
				merged[k] = v
			}
			rows[i] = merged
			updated = true
			break
		}
	}
	if !updated {
		rows = append(rows, copied)
	}
	d.tables[table] = rows
	return map[string]any{
		"ok":      true,
		"table":   table,
		"key":     key,
		"id":      rowID,
		"updated": updated,
	}, nil
}

// Deliver applies a scheduled database event; op is upsert or query.
func (d *Database) Deliver(payload map[string]any) (map[string]any, error) {
	op := strings.ToLower(argString(payload, "op"))
	if op == "" {
		op = "upsert"
	}
	switch op {
	case "upsert":
		table := argString(payload, "table")
		if table == "" {
			table = "events"
		}
		row, ok := payload["row"].(map[string]any)
		if !ok {
			return nil, apitypes.NewError("db.invalid_event", "database upsert delivery requires row")
		}
		return d.Upsert(table, row, argString(payload, "key"))
	case "query":
		filters, _ := payload["filters"].(map[string]any)
		return d.Query(
			argString(payload, "table"),
			filters,
			argStrings(payload, "columns"),
			argInt(payload, "limit", 20),
			argInt(payload, "offset", 0),
			argString(payload, "cursor"),
			argString(payload, "sort_by"),
			argBool(payload, "descending"),
		)
	}
	return nil, apitypes.Errorf("db.invalid_event", "unsupported database delivery op: %s", op)
}

func (d *Database) table(name string) ([]map[string]any, error) {
	rows, ok := d.tables[name]
	if !ok {
		return nil, apitypes.Errorf("db.table_not_found", "Unknown table: %s", name)
	}
	return rows, nil
}

// matchesFilters evaluates the small filter DSL: a scalar means equality; a
// map supports eq/neq/contains/starts_with/gt/gte/lt/lte/in.
func matchesFilters(row, filters map[string]any) bool {
	for field, expected := range filters {
		value := row[field]
		cond, ok := expected.(map[string]any)
		if !ok {
			if !looseEqual(value, expected) {
				return false
			}
			continue
		}
		if want, has := cond["eq"]; has && !looseEqual(value, want) {
			return false
		}
		if want, has := cond["neq"]; has && looseEqual(value, want) {
			return false
		}
		if want, has := cond["contains"]; has {
			if !strings.Contains(strings.ToLower(stringify(value)), strings.ToLower(stringify(want))) {
				return false
			}
		}
		if want, has := cond["starts_with"]; has {
			if !strings.HasPrefix(strings.ToLower(stringify(value)), strings.ToLower(stringify(want))) {
				return false
			}
		}
		if want, has := cond["gt"]; has && !compareNumeric(value, want, "gt") {
			return false
		}
		if want, has := cond["gte"]; has && !compareNumeric(value, want, "gte") {
			return false
		}
		if want, has := cond["lt"]; has && !compareNumeric(value, want, "lt") {
			return false
		}
		if want, has := cond["lte"]; has && !compareNumeric(value, want, "lte") {
			return false
		}
		if want, has := cond["in"]; has {
			items, isList := want.([]any)
			if isList {
				found := false
				for _, item := range items {
					if looseEqual(value, item) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
		}
	}
	return true
}

// looseEqual treats numerically equal values as equal regardless of the
// decoded Go type, matching JSON round-trip behavior.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func compareNumeric(actual, expected any, op string) bool {
	left, lok := toFloat(actual)
	right, rok := toFloat(expected)
	if !lok || !rok {
		return false
	}
	switch op {
	case "gt":
		return left > right
	case "gte":
		return left >= right
	case "lt":
		return left < right
	case "lte":
		return left <= right
	}
	return false
}

func cloneRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
