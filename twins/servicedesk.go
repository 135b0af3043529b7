package twins

import (
	"sort"
	"strconv"
	"strings"

	"goa.design/vei/apitypes"
	"goa.design/vei/world"
)

type (
	// Incident is one service incident with an append-only worklog.
	Incident struct {
		IncidentID  string
		Title       string
		Description string
		Severity    string
		Status      string
		Assignee    string
		Service     string
		Worklog     []map[string]any
		CreatedMS   int64
		UpdatedMS   int64
	}

	// ServiceRequest is one access or fulfillment request moving through an
	// approval stage.
	ServiceRequest struct {
		RequestID      string
		Title          string
		Description    string
		Requester      string
		Status         string
		ApprovalStage  string
		ApprovalStatus string
		Worklog        []map[string]any
		CreatedMS      int64
		UpdatedMS      int64
	}

	// ServiceDesk is the ITSM twin.
	ServiceDesk struct {
		incidents map[string]*Incident
		requests  map[string]*ServiceRequest
		incOrder  []string
		reqOrder  []string
		clockMS   int64
	}
)

var (
	incidentStatuses = map[string]bool{
		"NEW": true, "IN_PROGRESS": true, "MITIGATED": true, "RESOLVED": true, "CLOSED": true,
	}
	requestStatuses = map[string]bool{
		"PENDING_APPROVAL": true, "APPROVED": true, "REJECTED": true, "FULFILLED": true, "CLOSED": true,
	}
)

const serviceDeskClockBase = 1_700_000_300_000

// NewServiceDesk seeds the twin from the scenario.
func NewServiceDesk(s world.Scenario) *ServiceDesk {
	d := &ServiceDesk{
		incidents: make(map[string]*Incident),
		requests:  make(map[string]*ServiceRequest),
		clockMS:   serviceDeskClockBase,
	}
	incIDs := make([]string, 0, len(s.ServiceIncidents))
	for id := range s.ServiceIncidents {
		incIDs = append(incIDs, id)
	}
	sort.Strings(incIDs)
	for i, id := range incIDs {
		seed := s.ServiceIncidents[id]
		created := d.clockMS + int64(i) + 1
		status := strings.ToUpper(seed.Status)
		if status == "" {
			status = "NEW"
		}
		severity := seed.Severity
		if severity == "" {
			severity = "medium"
		}
		d.incidents[id] = &Incident{
			IncidentID:  id,
			Title:       seed.Title,
			Description: seed.Description,
			Severity:    severity,
			Status:      status,
			Assignee:    seed.Assignee,
			Service:     seed.Service,
			CreatedMS:   created,
			UpdatedMS:   created,
		}
		d.incOrder = append(d.incOrder, id)
	}
	reqIDs := make([]string, 0, len(s.ServiceRequests))
	for id := range s.ServiceRequests {
		reqIDs = append(reqIDs, id)
	}
	sort.Strings(reqIDs)
	for i, id := range reqIDs {
		seed := s.ServiceRequests[id]
		created := d.clockMS + int64(i) + 1
		status := strings.ToUpper(seed.Status)
		if status == "" {
			status = "PENDING_APPROVAL"
		}
		d.requests[id] = &ServiceRequest{
			RequestID:      id,
			Title:          seed.Title,
			Description:    seed.Description,
			Requester:      seed.Requester,
			Status:         status,
			ApprovalStage:  seed.ApprovalStage,
			ApprovalStatus: seed.ApprovalStatus,
			CreatedMS:      created,
			UpdatedMS:      created,
		}
		d.reqOrder = append(d.reqOrder, id)
	}
	return d
}

// ListIncidents filters by status, severity, assignee and free-text query.
// Service desk lists always return the paginated envelope.
func (d *ServiceDesk) ListIncidents(args map[string]any) (map[string]any, error) {
	status := strings.ToUpper(strings.TrimSpace(argString(args, "status")))
	severity := strings.ToLower(strings.TrimSpace(argString(args, "priority")))
	if severity == "" {
		severity = strings.ToLower(strings.TrimSpace(argString(args, "severity")))
	}
	assignee := strings.ToLower(strings.TrimSpace(argString(args, "assignee")))
	req := pageRequest(args)
	needle := strings.ToLower(strings.TrimSpace(req.Query))

	var rows []map[string]any
	for _, id := range d.incOrder {
		inc := d.incidents[id]
		if status != "" && inc.Status != status {
			continue
		}
		if severity != "" && strings.ToLower(inc.Severity) != severity {
			continue
		}
		if assignee != "" && strings.ToLower(inc.Assignee) != assignee {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(inc.Title), needle) &&
			!strings.Contains(strings.ToLower(inc.Description), needle) {
			continue
		}
		rows = append(rows, d.incidentPayload(inc))
	}
	sortField := req.SortBy
	switch sortField {
	case "id", "status", "severity", "updated_ms", "created_ms":
	default:
		sortField = "id"
	}
	sortRows(rows, sortField, req.Ascending())
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("incidents"), nil
}

// GetIncident returns the full incident.
func (d *ServiceDesk) GetIncident(incidentID string) (map[string]any, error) {
	inc, ok := d.incidents[incidentID]
	if !ok {
		return nil, apitypes.Errorf("unknown_incident", "Unknown incident: %s", incidentID)
	}
	return d.incidentPayload(inc), nil
}

// UpdateIncident changes status or assignee and appends a worklog entry.
func (d *ServiceDesk) UpdateIncident(incidentID string, args map[string]any) (map[string]any, error) {
	inc, ok := d.incidents[incidentID]
	if !ok {
		return nil, apitypes.Errorf("unknown_incident", "Unknown incident: %s", incidentID)
	}
	entry := map[string]any{}
	if raw, has := args["status"].(string); has {
		status := strings.ToUpper(strings.TrimSpace(raw))
		if !incidentStatuses[status] {
			return nil, apitypes.Errorf("invalid_status", "invalid incident status: %s", raw)
		}
		inc.Status = status
		entry["status"] = status
	}
	if assignee, has := args["assignee"].(string); has {
		inc.Assignee = assignee
		entry["assignee"] = assignee
	}
	if comment, has := args["comment"].(string); has && comment != "" {
		entry["comment"] = comment
	}
	now := d.now()
	entry["time_ms"] = now
	inc.Worklog = append(inc.Worklog, entry)
	inc.UpdatedMS = now
	return map[string]any{"incident_id": incidentID, "status": inc.Status, "assignee": inc.Assignee}, nil
}

// ListRequests filters by status, requester and free-text query.
func (d *ServiceDesk) ListRequests(args map[string]any) (map[string]any, error) {
	status := strings.ToUpper(strings.TrimSpace(argString(args, "status")))
	requester := strings.ToLower(strings.TrimSpace(argString(args, "requester")))
	req := pageRequest(args)
	needle := strings.ToLower(strings.TrimSpace(req.Query))

	var rows []map[string]any
	for _, id := range d.reqOrder {
		r := d.requests[id]
		if status != "" && r.Status != status {
			continue
		}
		if requester != "" && strings.ToLower(r.Requester) != requester {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(r.Description), needle) {
			continue
		}
		rows = append(rows, d.requestPayload(r))
	}
	sortField := req.SortBy
	switch sortField {
	case "id", "status", "updated_ms", "created_ms":
	default:
		sortField = "id"
	}
	sortRows(rows, sortField, req.Ascending())
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("requests"), nil
}

// GetRequest returns the full request.
func (d *ServiceDesk) GetRequest(requestID string) (map[string]any, error) {
	r, ok := d.requests[requestID]
	if !ok {
		return nil, apitypes.Errorf("unknown_request", "Unknown request: %s", requestID)
	}
	return d.requestPayload(r), nil
}

// UpdateRequest changes status or approval fields and appends a worklog
// entry.
func (d *ServiceDesk) UpdateRequest(requestID string, args map[string]any) (map[string]any, error) {
	r, ok := d.requests[requestID]
	if !ok {
		return nil, apitypes.Errorf("unknown_request", "Unknown request: %s", requestID)
	}
	entry := map[string]any{}
	if raw, has := args["status"].(string); has {
		status := strings.ToUpper(strings.TrimSpace(raw))
		if !requestStatuses[status] {
			return nil, apitypes.Errorf("invalid_status", "invalid request status: %s", raw)
		}
		r.Status = status
		entry["status"] = status
	}
	if stage, has := args["approval_stage"].(string); has {
		r.ApprovalStage = stage
		entry["approval_stage"] = stage
	}
	if approval, has := args["approval_status"].(string); has {
		r.ApprovalStatus = approval
		entry["approval_status"] = approval
	}
	if comment, has := args["comment"].(string); has && comment != "" {
		entry["comment"] = comment
	}
	now := d.now()
	entry["time_ms"] = now
	r.Worklog = append(r.Worklog, entry)
	r.UpdatedMS = now
	return map[string]any{
		"request_id":      requestID,
		"status":          r.Status,
		"approval_stage":  r.ApprovalStage,
		"approval_status": r.ApprovalStatus,
	}, nil
}

// Deliver applies a scheduled service desk event: known ids route to the
// matching update, unknown payloads open a new incident.
func (d *ServiceDesk) Deliver(payload map[string]any) (map[string]any, error) {
	if incidentID := argString(payload, "incident_id"); incidentID != "" {
		if _, known := d.incidents[incidentID]; known {
			return d.UpdateIncident(incidentID, payload)
		}
	}
	if requestID := argString(payload, "request_id"); requestID != "" {
		if _, known := d.requests[requestID]; known {
			return d.UpdateRequest(requestID, payload)
		}
	}
	title := argString(payload, "title")
	if title == "" {
		return nil, apitypes.NewError("invalid_args", "servicedesk delivery requires title or a known id")
	}
	id := argString(payload, "incident_id")
	if id == "" {
		id = "INC-" + strconv.Itoa(3000+len(d.incOrder)+1)
	}
	severity := argString(payload, "severity")
	if severity == "" {
		severity = "medium"
	}
	now := d.now()
	d.incidents[id] = &Incident{
		IncidentID:  id,
		Title:       title,
		Description: argString(payload, "description"),
		Severity:    severity,
		Status:      "NEW",
		Assignee:    argString(payload, "assignee"),
		Service:     argString(payload, "service"),
		CreatedMS:   now,
		UpdatedMS:   now,
	}
	d.incOrder = append(d.incOrder, id)
	return map[string]any{"incident_id": id, "status": "NEW"}, nil
}

func (d *ServiceDesk) now() int64 {
	d.clockMS++
	return d.clockMS
}

func (d *ServiceDesk) incidentPayload(inc *Incident) map[string]any {
	worklog := make([]map[string]any, len(inc.Worklog))
	copy(worklog, inc.Worklog)
	return map[string]any{
		"id":          inc.IncidentID,
		"title":       inc.Title,
		"description": inc.Description,
		"severity":    inc.Severity,
		"status":      inc.Status,
		"assignee":    inc.Assignee,
		"service":     inc.Service,
		"worklog":     worklog,
		"created_ms":  inc.CreatedMS,
		"updated_ms":  inc.UpdatedMS,
	}
}

func (d *ServiceDesk) requestPayload(r *ServiceRequest) map[string]any {
	worklog := make([]map[string]any, len(r.Worklog))
	copy(worklog, r.Worklog)
	return map[string]any{
		"id":              r.RequestID,
		"title":           r.Title,
		"description":     r.Description,
		"requester":       r.Requester,
		"status":          r.Status,
		"approval_stage":  r.ApprovalStage,
		"approval_status": r.ApprovalStatus,
		"worklog":         worklog,
		"created_ms":      r.CreatedMS,
		"updated_ms":      r.UpdatedMS,
	}
}
