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
	// Ticket is one work item. History is append-only; Comments carry
	// synthesized CMT ids.
	Ticket struct {
		TicketID    string
		Title       string
		Description string
		Assignee    string
		Status      string
		Priority    string
		Severity    string
		Labels      []string
		Comments    []map[string]any
		History     []map[string]any
		CreatedMS   int64
		UpdatedMS   int64
	}

	// Tickets is the ticketing twin.
	Tickets struct {
		tickets map[string]*Ticket
		order   []string
		clockMS int64
		seq     int
	}
)

var (
	ticketPriorities = map[string]bool{"P1": true, "P2": true, "P3": true, "P4": true}
	ticketStatuses   = map[string]bool{"open": true, "in_progress": true, "blocked": true, "resolved": true, "closed": true}

	// ticketTransitions is the full lifecycle table; any pair not listed is
	// rejected with invalid_transition.
	ticketTransitions = map[string][]string{
		"open":        {"in_progress", "blocked", "resolved", "closed"},
		"in_progress": {"blocked", "resolved", "closed"},
		"blocked":     {"open", "in_progress", "resolved", "closed"},
		"resolved":    {"closed", "open", "in_progress"},
		"closed":      {"open"},
	}
)

const ticketsClockBase = 1_700_000_200_000

// NewTickets seeds the twin from the scenario.
func NewTickets(s world.Scenario) *Tickets {
	t := &Tickets{
		tickets: make(map[string]*Ticket),
		clockMS: ticketsClockBase,
		seq:     1,
	}
	ids := make([]string, 0, len(s.Tickets))
	for id := range s.Tickets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		seed := s.Tickets[id]
		created := t.clockMS + int64(i) + 1
		status := seed.Status
		if status == "" {
			status = "open"
		}
		priority := strings.ToUpper(strings.TrimSpace(seed.Priority))
		if !ticketPriorities[priority] {
			priority = "P3"
		}
		severity := seed.Severity
		if severity == "" {
			severity = "medium"
		}
		t.tickets[id] = &Ticket{
			TicketID:    id,
			Title:       seed.Title,
			Description: seed.Description,
			Assignee:    seed.Assignee,
			Status:      status,
			Priority:    priority,
			Severity:    severity,
			Labels:      append([]string(nil), seed.Labels...),
			History:     []map[string]any{{"status": status}},
			CreatedMS:   created,
			UpdatedMS:   created,
		}
		t.order = append(t.order, id)
		if n, ok := strings.CutPrefix(id, "TCK-"); ok {
			if v, err := strconv.Atoi(n); err == nil && v >= t.seq {
				t.seq = v + 1
			}
		}
	}
	return t
}

// List filters tickets by status, assignee, priority, label and free-text
// query. Default order is updated_ms descending; that default with no other
// argument yields the legacy plain array.
func (t *Tickets) List(args map[string]any) (any, error) {
	status := strings.ToLower(strings.TrimSpace(argString(args, "status")))
	assignee := strings.ToLower(strings.TrimSpace(argString(args, "assignee")))
	priority := strings.ToUpper(strings.TrimSpace(argString(args, "priority")))
	label := strings.ToLower(strings.TrimSpace(argString(args, "label")))
	req := pageRequest(args)
	needle := strings.ToLower(strings.TrimSpace(req.Query))

	var rows []map[string]any
	for _, id := range t.order {
		tck := t.tickets[id]
		if status != "" && tck.Status != status {
			continue
		}
		if assignee != "" && strings.ToLower(strings.TrimSpace(tck.Assignee)) != assignee {
			continue
		}
		if priority != "" && tck.Priority != priority {
			continue
		}
		if label != "" && !hasTag(tck.Labels, label) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(tck.Title), needle) &&
			!strings.Contains(strings.ToLower(tck.Description), needle) {
			continue
		}
		rows = append(rows, t.payload(tck))
	}

	sortField := req.SortBy
	switch sortField {
	case "updated_ms", "created_ms", "priority", "status", "title":
	default:
		sortField = "updated_ms"
	}
	asc := strings.EqualFold(req.SortDir, "asc")
	sortRows(rows, sortField, asc)

	if req.Legacy || !hasPagingArgs(args, "status", "assignee", "priority", "label") {
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("tickets"), nil
}

// Get returns the full ticket.
func (t *Tickets) Get(ticketID string) (map[string]any, error) {
	tck, ok := t.tickets[ticketID]
	if !ok {
		return nil, apitypes.Errorf("unknown_ticket", "unknown ticket: %s", ticketID)
	}
	return t.payload(tck), nil
}

// Create opens a new ticket.
func (t *Tickets) Create(title, description, assignee, priority, severity string, labels []string) (map[string]any, error) {
	normalized := "P3"
	if priority != "" {
		normalized = strings.ToUpper(strings.TrimSpace(priority))
	}
	if !ticketPriorities[normalized] {
		return nil, apitypes.Errorf("invalid_priority", "invalid ticket priority: %s", priority)
	}
	if severity == "" {
		severity = "medium"
	}
	id := fmt.Sprintf("TCK-%d", t.seq)
	t.seq++
	now := t.now()
	t.tickets[id] = &Ticket{
		TicketID:    id,
		Title:       title,
		Description: description,
		Assignee:    assignee,
		Status:      "open",
		Priority:    normalized,
		Severity:    severity,
		Labels:      append([]string(nil), labels...),
		History:     []map[string]any{{"status": "open"}},
		CreatedMS:   now,
		UpdatedMS:   now,
	}
	t.order = append(t.order, id)
	return map[string]any{"ticket_id": id, "status": "open", "priority": normalized}, nil
}

// Update mutates ticket fields without changing status. Every update appends
// a history entry even when no field changed.
func (t *Tickets) Update(ticketID string, description, assignee, priority, severity *string, labels []string) (map[string]any, error) {
	tck, ok := t.tickets[ticketID]
	if !ok {
		return nil, apitypes.Errorf("unknown_ticket", "unknown ticket: %s", ticketID)
	}
	changed := false
	if description != nil {
		tck.Description = *description
		changed = true
	}
	if assignee != nil {
		tck.Assignee = *assignee
		changed = true
	}
	if priority != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*priority))
		if !ticketPriorities[normalized] {
			return nil, apitypes.Errorf("invalid_priority", "invalid ticket priority: %s", *priority)
		}
		if tck.Priority != normalized {
			tck.Priority = normalized
			changed = true
		}
	}
	if severity != nil && tck.Severity != *severity {
		tck.Severity = *severity
		changed = true
	}
	if labels != nil {
		tck.Labels = append([]string(nil), labels...)
		changed = true
	}
	tck.History = append(tck.History, map[string]any{"status": tck.Status, "update": "fields"})
	if changed {
		tck.UpdatedMS = t.now()
	}
	return map[string]any{"ticket_id": ticketID, "status": tck.Status, "priority": tck.Priority}, nil
}

// Transition moves a ticket through the lifecycle table.
func (t *Tickets) Transition(ticketID, status string) (map[string]any, error) {
	tck, ok := t.tickets[ticketID]
	if !ok {
		return nil, apitypes.Errorf("unknown_ticket", "unknown ticket: %s", ticketID)
	}
	target := strings.ToLower(strings.TrimSpace(status))
	if !ticketStatuses[target] {
		return nil, apitypes.Errorf("invalid_status", "invalid ticket status: %s", status)
	}
	current := tck.Status
	if target != current && !allowedTransition(current, target) {
		return nil, apitypes.Errorf("invalid_transition", "invalid transition %s -> %s", current, target)
	}
	tck.Status = target
	tck.History = append(tck.History, map[string]any{"status": target})
	tck.UpdatedMS = t.now()
	return map[string]any{"ticket_id": ticketID, "status": target}, nil
}

// AddComment appends a comment with a synthesized CMT id.
func (t *Tickets) AddComment(ticketID, body, author string) (map[string]any, error) {
	tck, ok := t.tickets[ticketID]
	if !ok {
		return nil, apitypes.Errorf("unknown_ticket", "unknown ticket: %s", ticketID)
	}
	if strings.TrimSpace(body) == "" {
		return nil, apitypes.NewError("invalid_args", "ticket comment body cannot be empty")
	}
	if author == "" {
		author = "agent"
	}
	commentID := fmt.Sprintf("CMT-%04d", len(tck.Comments)+1)
	created := t.now()
	tck.Comments = append(tck.Comments, map[string]any{
		"comment_id": commentID,
		"author":     author,
		"body":       body,
		"created_ms": created,
	})
	tck.UpdatedMS = created
	tck.History = append(tck.History, map[string]any{"status": tck.Status, "comment": commentID})
	return map[string]any{"ticket_id": ticketID, "comment_id": commentID, "author": author}, nil
}

// Deliver applies a scheduled ticket event: a known ticket_id routes to
// transition, comment or field update; anything else creates.
func (t *Tickets) Deliver(payload map[string]any) (map[string]any, error) {
	ticketID := argString(payload, "ticket_id")
	if _, known := t.tickets[ticketID]; known {
		if status, ok := payload["status"].(string); ok {
			return t.Transition(ticketID, status)
		}
		if comment, ok := payload["comment"].(string); ok {
			author := argString(payload, "author")
			if author == "" {
				author = "agent"
			}
			return t.AddComment(ticketID, comment, author)
		}
		var description, assignee, priority, severity *string
		if s, ok := payload["description"].(string); ok {
			description = &s
		}
		if s, ok := payload["assignee"].(string); ok {
			assignee = &s
		}
		if s, ok := payload["priority"].(string); ok {
			priority = &s
		}
		if s, ok := payload["severity"].(string); ok {
			severity = &s
		}
		return t.Update(ticketID, description, assignee, priority, severity, argStrings(payload, "labels"))
	}
	title, ok := payload["title"].(string)
	if !ok {
		return nil, apitypes.NewError("invalid_args", "tickets delivery requires title for create")
	}
	priority := argString(payload, "priority")
	if priority == "" {
		priority = "P3"
	}
	severity := argString(payload, "severity")
	if severity == "" {
		severity = "medium"
	}
	return t.Create(title, argString(payload, "description"), argString(payload, "assignee"), priority, severity, argStrings(payload, "labels"))
}

func allowedTransition(current, target string) bool {
	for _, allowed := range ticketTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (t *Tickets) now() int64 {
	t.clockMS++
	return t.clockMS
}

func (t *Tickets) payload(tck *Ticket) map[string]any {
	labels := make([]any, 0, len(tck.Labels))
	for _, l := range tck.Labels {
		labels = append(labels, l)
	}
	history := make([]map[string]any, len(tck.History))
	copy(history, tck.History)
	return map[string]any{
		"ticket_id":     tck.TicketID,
		"title":         tck.Title,
		"status":        tck.Status,
		"assignee":      tck.Assignee,
		"description":   tck.Description,
		"history":       history,
		"priority":      tck.Priority,
		"severity":      tck.Severity,
		"labels":        labels,
		"comment_count": len(tck.Comments),
		"created_ms":    tck.CreatedMS,
		"updated_ms":    tck.UpdatedMS,
	}
}
