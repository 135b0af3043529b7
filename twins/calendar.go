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
	// CalendarEvent is one meeting with its lifecycle metadata. Responses
	// map attendee address to "accepted" or "declined".
	CalendarEvent struct {
		EventID      string
		Title        string
		StartMS      int64
		EndMS        int64
		Attendees    []string
		Location     string
		Description  string
		Status       string
		Organizer    string
		Version      int
		CreatedMS    int64
		UpdatedMS    int64
		CancelReason string
		Responses    map[string]string
	}

	// Calendar is the scheduling twin.
	Calendar struct {
		events  map[string]*CalendarEvent
		order   []string
		clockMS int64
		seq     int
	}
)

var eventStatuses = map[string]bool{"CONFIRMED": true, "TENTATIVE": true, "CANCELED": true}

const calendarClockBase = 1_700_000_100_000

// NewCalendar seeds the twin from the scenario.
func NewCalendar(s world.Scenario) *Calendar {
	c := &Calendar{
		events:  make(map[string]*CalendarEvent),
		clockMS: calendarClockBase,
		seq:     1,
	}
	ids := make([]string, 0, len(s.CalendarEvents))
	for id := range s.CalendarEvents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		seed := s.CalendarEvents[id]
		created := c.clockMS + int64(i) + 1
		status := strings.ToUpper(strings.TrimSpace(seed.Status))
		if !eventStatuses[status] {
			status = "CONFIRMED"
		}
		organizer := seed.Organizer
		if organizer == "" {
			organizer = "system"
		}
		c.events[id] = &CalendarEvent{
			EventID:     id,
			Title:       seed.Title,
			StartMS:     seed.StartMS,
			EndMS:       seed.EndMS,
			Attendees:   append([]string(nil), seed.Attendees...),
			Location:    seed.Location,
			Description: seed.Description,
			Status:      status,
			Organizer:   organizer,
			Version:     1,
			CreatedMS:   created,
			UpdatedMS:   created,
			Responses:   map[string]string{},
		}
		c.order = append(c.order, id)
		if n, ok := strings.CutPrefix(id, "EVT-"); ok {
			if v, err := strconv.Atoi(n); err == nil && v >= c.seq {
				c.seq = v + 1
			}
		}
	}
	return c
}

// List filters events by attendee, status and time window, sorted by
// start_ms. The legacy plain array applies when every argument is omitted.
func (c *Calendar) List(args map[string]any) (any, error) {
	attendee := strings.ToLower(strings.TrimSpace(argString(args, "attendee")))
	status := strings.ToUpper(strings.TrimSpace(argString(args, "status")))
	_, hasStart := args["starts_after_ms"]
	_, hasEnd := args["ends_before_ms"]
	startMin := argInt64(args, "starts_after_ms", 0)
	endMax := argInt64(args, "ends_before_ms", 0)

	var rows []map[string]any
	for _, id := range c.order {
		evt := c.events[id]
		if attendee != "" && !hasAttendee(evt.Attendees, attendee) {
			continue
		}
		if status != "" && evt.Status != status {
			continue
		}
		if hasStart && evt.StartMS < startMin {
			continue
		}
		if hasEnd && evt.EndMS > endMax {
			continue
		}
		rows = append(rows, c.payload(evt))
	}
	req := pageRequest(args)
	sortRows(rows, "start_ms", req.Ascending())

	if req.Legacy || !hasPagingArgs(args, "attendee", "status", "starts_after_ms", "ends_before_ms") {
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("events"), nil
}

// Create adds an event.
func (c *Calendar) Create(args map[string]any) (map[string]any, error) {
	title := argString(args, "title")
	if title == "" {
		return nil, apitypes.NewError("invalid_args", "calendar.create_event requires title")
	}
	status := "CONFIRMED"
	if s := strings.ToUpper(strings.TrimSpace(argString(args, "status"))); s != "" {
		status = s
	}
	if !eventStatuses[status] {
		return nil, apitypes.Errorf("invalid_status", "invalid event status: %s", argString(args, "status"))
	}
	organizer := argString(args, "organizer")
	if organizer == "" {
		organizer = "agent"
	}
	id := fmt.Sprintf("EVT-%d", c.seq)
	c.seq++
	now := c.now()
	c.events[id] = &CalendarEvent{
		EventID:     id,
		Title:       title,
		StartMS:     argInt64(args, "start_ms", 0),
		EndMS:       argInt64(args, "end_ms", 0),
		Attendees:   argStrings(args, "attendees"),
		Location:    argString(args, "location"),
		Description: argString(args, "description"),
		Status:      status,
		Organizer:   organizer,
		Version:     1,
		CreatedMS:   now,
		UpdatedMS:   now,
		Responses:   map[string]string{},
	}
	c.order = append(c.order, id)
	return map[string]any{"event_id": id, "status": status}, nil
}

// Update mutates an event; canceled events reject every write.
func (c *Calendar) Update(eventID string, args map[string]any) (map[string]any, error) {
	evt, ok := c.events[eventID]
	if !ok {
		return nil, apitypes.Errorf("unknown_event", "unknown event: %s", eventID)
	}
	if evt.Status == "CANCELED" {
		return nil, apitypes.Errorf("event_canceled", "cannot update canceled event: %s", eventID)
	}
	changed := false
	if title, ok := args["title"].(string); ok {
		evt.Title = title
		changed = true
	}
	if _, ok := args["start_ms"]; ok {
		evt.StartMS = argInt64(args, "start_ms", evt.StartMS)
		changed = true
	}
	if _, ok := args["end_ms"]; ok {
		evt.EndMS = argInt64(args, "end_ms", evt.EndMS)
		changed = true
	}
	if _, ok := args["attendees"]; ok {
		evt.Attendees = argStrings(args, "attendees")
		changed = true
	}
	if loc, ok := args["location"].(string); ok {
		evt.Location = loc
		changed = true
	}
	if desc, ok := args["description"].(string); ok {
		evt.Description = desc
		changed = true
	}
	if raw, ok := args["status"].(string); ok {
		status := strings.ToUpper(strings.TrimSpace(raw))
		if !eventStatuses[status] {
			return nil, apitypes.Errorf("invalid_status", "invalid event status: %s", raw)
		}
		if evt.Status != status {
			evt.Status = status
			changed = true
		}
	}
	if changed {
		evt.Version++
		evt.UpdatedMS = c.now()
	}
	return c.payload(evt), nil
}

// Cancel marks an event CANCELED; cancelling twice is a no-op.
func (c *Calendar) Cancel(eventID, reason string) (map[string]any, error) {
	evt, ok := c.events[eventID]
	if !ok {
		return nil, apitypes.Errorf("unknown_event", "unknown event: %s", eventID)
	}
	if evt.Status == "CANCELED" {
		return map[string]any{"event_id": eventID, "status": "CANCELED", "changed": false}, nil
	}
	if reason == "" {
		reason = "manual_cancel"
	}
	evt.Status = "CANCELED"
	evt.CancelReason = reason
	evt.Version++
	evt.UpdatedMS = c.now()
	return map[string]any{"event_id": eventID, "status": "CANCELED", "changed": true}, nil
}

// Accept records an attendee acceptance.
func (c *Calendar) Accept(eventID, attendee string) (map[string]any, error) {
	return c.respond(eventID, attendee, "accepted")
}

// Decline records an attendee decline.
func (c *Calendar) Decline(eventID, attendee string) (map[string]any, error) {
	return c.respond(eventID, attendee, "declined")
}

func (c *Calendar) respond(eventID, attendee, status string) (map[string]any, error) {
	evt, ok := c.events[eventID]
	if !ok {
		return nil, apitypes.Errorf("unknown_event", "unknown event: %s", eventID)
	}
	if evt.Status == "CANCELED" {
		return nil, apitypes.Errorf("event_canceled", "cannot respond to canceled event: %s", eventID)
	}
	if attendee != "" && len(evt.Attendees) > 0 && !hasAttendee(evt.Attendees, strings.ToLower(attendee)) {
		return nil, apitypes.Errorf("attendee_not_invited", "attendee %s not on event %s", attendee, eventID)
	}
	evt.Responses[attendee] = status
	return map[string]any{"event_id": eventID, "attendee": attendee, "status": status}, nil
}

// Deliver applies a scheduled calendar event. An explicit op is
// authoritative; create is the default.
func (c *Calendar) Deliver(payload map[string]any) (map[string]any, error) {
	op := strings.ToLower(argString(payload, "op"))
	switch op {
	case "update":
		eventID := argString(payload, "event_id")
		if eventID == "" {
			return nil, apitypes.NewError("invalid_args", "calendar update delivery requires event_id")
		}
		return c.Update(eventID, payload)
	case "cancel":
		eventID := argString(payload, "event_id")
		if eventID == "" {
			return nil, apitypes.NewError("invalid_args", "calendar cancel delivery requires event_id")
		}
		return c.Cancel(eventID, argString(payload, "reason"))
	}
	if argString(payload, "title") == "" {
		return nil, apitypes.NewError("invalid_args", "calendar delivery requires title")
	}
	if _, ok := payload["start_ms"]; !ok {
		return nil, apitypes.NewError("invalid_args", "calendar delivery requires start_ms/end_ms")
	}
	return c.Create(payload)
}

func (c *Calendar) now() int64 {
	c.clockMS++
	return c.clockMS
}

func (c *Calendar) payload(evt *CalendarEvent) map[string]any {
	attendees := make([]any, 0, len(evt.Attendees))
	for _, a := range evt.Attendees {
		attendees = append(attendees, a)
	}
	responses := make(map[string]any, len(evt.Responses))
	for k, v := range evt.Responses {
		responses[k] = v
	}
	out := map[string]any{
		"event_id":    evt.EventID,
		"title":       evt.Title,
		"start_ms":    evt.StartMS,
		"end_ms":      evt.EndMS,
		"attendees":   attendees,
		"location":    evt.Location,
		"description": evt.Description,
		"status":      evt.Status,
		"organizer":   evt.Organizer,
		"version":     evt.Version,
		"created_ms":  evt.CreatedMS,
		"updated_ms":  evt.UpdatedMS,
		"responses":   responses,
	}
	if evt.CancelReason != "" {
		out["cancel_reason"] = evt.CancelReason
	}
	return out
}

func hasAttendee(attendees []string, wanted string) bool {
	for _, a := range attendees {
		if strings.ToLower(a) == wanted {
			return true
		}
	}
	return false
}

// EventIDs lists event ids in seed-then-creation order.
func (c *Calendar) EventIDs() []string {
	out := append([]string(nil), c.order...)
	sort.Strings(out)
	return out
}
