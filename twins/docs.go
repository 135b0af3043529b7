package twins

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"goa.design/vei/apitypes"
	"goa.design/vei/world"
)

type (
	// Doc is one document with its enterprise metadata.
	Doc struct {
		DocID     string
		Title     string
		Body      string
		Tags      []string
		Owner     string
		Status    string
		Version   int
		CreatedMS int64
		UpdatedMS int64
	}

	// Docs is the document store twin.
	Docs struct {
		docs    map[string]*Doc
		order   []string
		clockMS int64
		seq     int
	}
)

var docStatuses = map[string]bool{"DRAFT": true, "ACTIVE": true, "ARCHIVED": true}

// docsClockBase anchors document metadata timestamps; the value is a fixed
// epoch so sessions are reproducible independent of the bus clock.
const docsClockBase = 1_700_000_000_000

// NewDocs seeds the twin from the scenario.
func NewDocs(s world.Scenario) *Docs {
	d := &Docs{
		docs:    make(map[string]*Doc),
		clockMS: docsClockBase,
		seq:     1,
	}
	ids := make([]string, 0, len(s.Documents))
	for id := range s.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		seed := s.Documents[id]
		created := d.clockMS + int64(i) + 1
		d.docs[id] = &Doc{
			DocID:     id,
			Title:     seed.Title,
			Body:      seed.Body,
			Tags:      append([]string(nil), seed.Tags...),
			Owner:     "system",
			Status:    "ACTIVE",
			Version:   1,
			CreatedMS: created,
			UpdatedMS: created,
		}
		d.order = append(d.order, id)
		if n, ok := strings.CutPrefix(id, "DOC-"); ok {
			if v, err := strconv.Atoi(n); err == nil && v >= d.seq {
				d.seq = v + 1
			}
		}
	}
	return d
}

// List filters, sorts and paginates documents. Legacy shape (no args) is a
// plain array of {doc_id, title, tags}.
func (d *Docs) List(args map[string]any) (any, error) {
	req := pageRequest(args)
	includeBody := argBool(args, "include_body")
	tag := strings.ToLower(strings.TrimSpace(argString(args, "tag")))
	status := strings.ToUpper(strings.TrimSpace(argString(args, "status")))
	owner := strings.ToLower(strings.TrimSpace(argString(args, "owner")))

	var rows []map[string]any
	for _, id := range d.order {
		doc := d.docs[id]
		if req.Query != "" {
			needle := strings.ToLower(req.Query)
			if !strings.Contains(strings.ToLower(doc.Title), needle) &&
				!strings.Contains(strings.ToLower(doc.Body), needle) {
				continue
			}
		}
		if tag != "" && !hasTag(doc.Tags, tag) {
			continue
		}
		if status != "" && doc.Status != status {
			continue
		}
		if owner != "" && strings.ToLower(doc.Owner) != owner {
			continue
		}
		rows = append(rows, d.payload(doc, includeBody))
	}

	sortField := req.SortBy
	if sortField != "title" && sortField != "created_ms" && sortField != "updated_ms" {
		sortField = "updated_ms"
	}
	sortRows(rows, sortField, req.Ascending())

	if req.Legacy || !hasPagingArgs(args, "tag", "status", "owner", "include_body") {
		out := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			out = append(out, map[string]any{
				"doc_id": row["doc_id"],
				"title":  row["title"],
				"tags":   row["tags"],
			})
		}
		return out, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("documents"), nil
}

// Read returns the full document.
func (d *Docs) Read(docID string) (map[string]any, error) {
	doc, ok := d.docs[docID]
	if !ok {
		return nil, apitypes.Errorf("unknown_document", "unknown document: %s", docID)
	}
	return d.payload(doc, true), nil
}

// Create adds a document.
func (d *Docs) Create(title, body string, tags []string, owner, status string) (map[string]any, error) {
	normalized := "DRAFT"
	if status != "" {
		normalized = strings.ToUpper(strings.TrimSpace(status))
	}
	if !docStatuses[normalized] {
		return nil, apitypes.Errorf("invalid_status", "invalid docs status: %s", status)
	}
	if owner == "" {
		owner = "agent"
	}
	id := fmt.Sprintf("DOC-%d", d.seq)
	d.seq++
	now := d.now()
	d.docs[id] = &Doc{
		DocID:     id,
		Title:     title,
		Body:      body,
		Tags:      append([]string(nil), tags...),
		Owner:     owner,
		Status:    normalized,
		Version:   1,
		CreatedMS: now,
		UpdatedMS: now,
	}
	d.order = append(d.order, id)
	return map[string]any{"doc_id": id, "title": title, "status": normalized, "version": 1}, nil
}

// Update mutates a document; any change bumps version and updated_ms.
func (d *Docs) Update(docID string, title, body *string, tags []string, status *string) (map[string]any, error) {
	doc, ok := d.docs[docID]
	if !ok {
		return nil, apitypes.Errorf("unknown_document", "unknown document: %s", docID)
	}
	changed := false
	if title != nil {
		doc.Title = *title
		changed = true
	}
	if body != nil {
		doc.Body = *body
		changed = true
	}
	if tags != nil {
		doc.Tags = append([]string(nil), tags...)
		changed = true
	}
	if status != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*status))
		if !docStatuses[normalized] {
			return nil, apitypes.Errorf("invalid_status", "invalid docs status: %s", *status)
		}
		if doc.Status != normalized {
			doc.Status = normalized
			changed = true
		}
	}
	if changed {
		doc.Version++
		doc.UpdatedMS = d.now()
	}
	return map[string]any{"doc_id": doc.DocID, "title": doc.Title, "status": doc.Status, "version": doc.Version}, nil
}

// Search ranks documents by substring hit in title or body, sorted by
// title. Legacy shape applies when limit and cursor are both omitted.
func (d *Docs) Search(args map[string]any) (any, error) {
	query := strings.ToLower(strings.TrimSpace(argString(args, "query")))
	if query == "" {
		return []map[string]any{}, nil
	}
	var hits []map[string]any
	for _, id := range d.order {
		doc := d.docs[id]
		if strings.Contains(strings.ToLower(doc.Title), query) ||
			strings.Contains(strings.ToLower(doc.Body), query) {
			hits = append(hits, map[string]any{
				"doc_id": doc.DocID,
				"title":  doc.Title,
				"status": doc.Status,
				"tags":   tagList(doc.Tags),
			})
		}
	}
	sortRows(hits, "title", true)

	req := pageRequest(args)
	_, hasLimit := args["limit"]
	if req.Legacy || (!hasLimit && req.Cursor == "") {
		limit := req.EffectiveLimit(20)
		if len(hits) > limit {
			hits = hits[:limit]
		}
		if hits == nil {
			hits = []map[string]any{}
		}
		return hits, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(hits, offset, req.EffectiveLimit(20)).Envelope("documents"), nil
}

// Deliver applies a scheduled docs event: update when op says so or the
// payload names a known document, create otherwise.
func (d *Docs) Deliver(payload map[string]any) (map[string]any, error) {
	op := strings.ToLower(argString(payload, "op"))
	docID := argString(payload, "doc_id")
	_, known := d.docs[docID]
	if op == "update" || known {
		if docID == "" {
			return nil, apitypes.NewError("invalid_args", "docs update delivery requires doc_id")
		}
		var title, body, status *string
		if s, ok := payload["title"].(string); ok {
			title = &s
		}
		if s, ok := payload["body"].(string); ok {
			body = &s
		}
		if s, ok := payload["status"].(string); ok {
			status = &s
		}
		return d.Update(docID, title, body, argStrings(payload, "tags"), status)
	}
	title, okT := payload["title"].(string)
	body, okB := payload["body"].(string)
	if !okT || !okB {
		return nil, apitypes.NewError("invalid_args", "docs delivery requires title/body for create")
	}
	status := argString(payload, "status")
	if status == "" {
		status = "DRAFT"
	}
	return d.Create(title, body, argStrings(payload, "tags"), argString(payload, "owner"), status)
}

func (d *Docs) now() int64 {
	d.clockMS++
	return d.clockMS
}

func (d *Docs) payload(doc *Doc, includeBody bool) map[string]any {
	out := map[string]any{
		"doc_id":     doc.DocID,
		"title":      doc.Title,
		"tags":       tagList(doc.Tags),
		"owner":      doc.Owner,
		"status":     doc.Status,
		"version":    doc.Version,
		"created_ms": doc.CreatedMS,
		"updated_ms": doc.UpdatedMS,
	}
	if includeBody {
		out["body"] = doc.Body
	}
	return out
}

func hasTag(tags []string, wanted string) bool {
	for _, tag := range tags {
		if strings.ToLower(tag) == wanted {
			return true
		}
	}
	return false
}

func tagList(tags []string) []any {
	out := make([]any, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag)
	}
	return out
}
