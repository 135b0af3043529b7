package twins

import (
	"fmt"
	"strings"

	"goa.design/vei/apitypes"
)

type (
	// CRMContact is a person record; email is the uniqueness key.
	CRMContact struct {
		ID           string
		Email        string
		FirstName    string
		LastName     string
		DoNotContact bool
		CompanyID    string
		CreatedMS    int64
	}

	// CRMCompany is an account record; domain is the uniqueness key.
	CRMCompany struct {
		ID        string
		Name      string
		Domain    string
		CreatedMS int64
	}

	// CRMDeal is an opportunity. Stage values are the closed set from
	// crmStages; closed deals never leave their stage.
	CRMDeal struct {
		ID           string
		Name         string
		Amount       float64
		Stage        string
		ContactID    string
		CompanyID    string
		CloseDate    string
		CreatedMS    int64
		UpdatedMS    int64
		StageHistory []map[string]any
	}

	// CRM is the sales twin: contacts, companies, deals and the activity
	// log the monitors read.
	CRM struct {
		session    Session
		errorRate  float64
		contacts   map[string]*CRMContact
		companies  map[string]*CRMCompany
		deals      map[string]*CRMDeal
		activities []map[string]any
		cSeq       int
		coSeq      int
		dSeq       int
		aSeq       int
		// contactOrder/companyOrder/dealOrder preserve creation order for
		// deterministic listings.
		contactOrder []string
		companyOrder []string
		dealOrder    []string
	}
)

// crmStages normalizes loose stage spellings to the canonical closed set.
var crmStages = map[string]string{
	"new":           "New",
	"prospecting":   "Prospecting",
	"qualification": "Qualification",
	"proposal":      "Proposal",
	"negotiation":   "Negotiation",
	"closed won":    "Closed Won",
	"closed lost":   "Closed Lost",
	"closed_won":    "Closed Won",
	"closed_lost":   "Closed Lost",
}

var activityKinds = map[string]bool{
	"note":           true,
	"email_outreach": true,
	"call":           true,
	"meeting":        true,
	"task":           true,
	"system_event":   true,
}

// NewCRM builds the twin. errorRate drives consent_violation draws on
// outreach to do-not-contact contacts.
func NewCRM(session Session, errorRate float64) *CRM {
	return &CRM{
		session:   session,
		errorRate: errorRate,
		contacts:  make(map[string]*CRMContact),
		companies: make(map[string]*CRMCompany),
		deals:     make(map[string]*CRMDeal),
		cSeq:      1,
		coSeq:     1,
		dSeq:      1,
		aSeq:      1,
	}
}

// CreateContact adds a contact; email must be unique case-insensitively.
func (c *CRM) CreateContact(email, firstName, lastName string, doNotContact bool) (map[string]any, error) {
	for _, existing := range c.contacts {
		if strings.EqualFold(existing.Email, email) {
			return nil, apitypes.Errorf("conflict.contact_exists", "Contact already exists: %s", email)
		}
	}
	id := fmt.Sprintf("C-%d", c.cSeq)
	c.cSeq++
	c.contacts[id] = &CRMContact{
		ID:           id,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		DoNotContact: doNotContact,
		CreatedMS:    c.session.ClockMS(),
	}
	c.contactOrder = append(c.contactOrder, id)
	return map[string]any{"id": id}, nil
}

// GetContact returns the contact record.
func (c *CRM) GetContact(id string) (map[string]any, error) {
	contact, ok := c.contacts[id]
	if !ok {
		return nil, apitypes.Errorf("unknown_contact", "Unknown contact: %s", id)
	}
	return c.contactPayload(contact), nil
}

// ListContacts filters by query, company and DNC flag.
func (c *CRM) ListContacts(args map[string]any) (any, error) {
	req := pageRequest(args)
	needle := strings.ToLower(strings.TrimSpace(req.Query))
	companyID := argString(args, "company_id")
	dncRaw, hasDNC := args["do_not_contact"]
	wantDNC, _ := dncRaw.(bool)

	var rows []map[string]any
	for _, id := range c.contactOrder {
		contact := c.contacts[id]
		if needle != "" &&
			!strings.Contains(strings.ToLower(contact.Email), needle) &&
			!strings.Contains(strings.ToLower(contact.FirstName), needle) &&
			!strings.Contains(strings.ToLower(contact.LastName), needle) {
			continue
		}
		if companyID != "" && contact.CompanyID != companyID {
			continue
		}
		if hasDNC && contact.DoNotContact != wantDNC {
			continue
		}
		rows = append(rows, c.contactPayload(contact))
	}
	sortField := req.SortBy
	switch sortField {
	case "created_ms", "email", "last_name":
	default:
		sortField = "created_ms"
	}
	sortRows(rows, sortField, req.Ascending())

	if req.Legacy || !hasPagingArgs(args, "company_id", "do_not_contact") {
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("contacts"), nil
}

// CreateCompany adds a company; domain must be unique case-insensitively.
func (c *CRM) CreateCompany(name, domain string) (map[string]any, error) {
	wanted := strings.ToLower(strings.TrimSpace(domain))
	if wanted != "" {
		for _, existing := range c.companies {
			if strings.ToLower(strings.TrimSpace(existing.Domain)) == wanted {
				return nil, apitypes.Errorf("conflict.company_exists", "Company already exists: %s", domain)
			}
		}
	}
	id := fmt.Sprintf("CO-%d", c.coSeq)
	c.coSeq++
	c.companies[id] = &CRMCompany{
		ID:        id,
		Name:      name,
		Domain:    domain,
		CreatedMS: c.session.ClockMS(),
	}
	c.companyOrder = append(c.companyOrder, id)
	return map[string]any{"id": id}, nil
}

// GetCompany returns the company record.
func (c *CRM) GetCompany(id string) (map[string]any, error) {
	company, ok := c.companies[id]
	if !ok {
		return nil, apitypes.Errorf("unknown_company", "Unknown company: %s", id)
	}
	return c.companyPayload(company), nil
}

// ListCompanies filters by query and exact domain, sorted by name.
func (c *CRM) ListCompanies(args map[string]any) (any, error) {
	req := pageRequest(args)
	needle := strings.ToLower(strings.TrimSpace(req.Query))
	domain := strings.ToLower(strings.TrimSpace(argString(args, "domain")))

	var rows []map[string]any
	for _, id := range c.companyOrder {
		company := c.companies[id]
		if needle != "" &&
			!strings.Contains(strings.ToLower(company.Name), needle) &&
			!strings.Contains(strings.ToLower(company.Domain), needle) {
			continue
		}
		if domain != "" && strings.ToLower(strings.TrimSpace(company.Domain)) != domain {
			continue
		}
		rows = append(rows, c.companyPayload(company))
	}
	sortField := req.SortBy
	switch sortField {
	case "name", "domain", "created_ms":
	default:
		sortField = "name"
	}
	sortRows(rows, sortField, req.Ascending())

	if req.Legacy || !hasPagingArgs(args, "domain") {
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("companies"), nil
}

// AssociateContactCompany links a contact to a company.
func (c *CRM) AssociateContactCompany(contactID, companyID string) (map[string]any, error) {
	contact, ok := c.contacts[contactID]
	if !ok {
		return nil, apitypes.Errorf("unknown_contact", "Unknown contact: %s", contactID)
	}
	if _, ok := c.companies[companyID]; !ok {
		return nil, apitypes.Errorf("unknown_company", "Unknown company: %s", companyID)
	}
	contact.CompanyID = companyID
	return map[string]any{"ok": true}, nil
}

// CreateDeal opens a deal in the given stage.
func (c *CRM) CreateDeal(name string, amount float64, stage, contactID, companyID, closeDate string) (map[string]any, error) {
	if stage == "" {
		stage = "New"
	}
	stageName, err := normalizeStage(stage)
	if err != nil {
		return nil, err
	}
	if contactID != "" {
		if _, ok := c.contacts[contactID]; !ok {
			return nil, apitypes.Errorf("unknown_contact", "Unknown contact: %s", contactID)
		}
	}
	if companyID != "" {
		if _, ok := c.companies[companyID]; !ok {
			return nil, apitypes.Errorf("unknown_company", "Unknown company: %s", companyID)
		}
	}
	id := fmt.Sprintf("D-%d", c.dSeq)
	c.dSeq++
	now := c.session.ClockMS()
	c.deals[id] = &CRMDeal{
		ID:           id,
		Name:         name,
		Amount:       amount,
		Stage:        stageName,
		ContactID:    contactID,
		CompanyID:    companyID,
		CloseDate:    closeDate,
		CreatedMS:    now,
		UpdatedMS:    now,
		StageHistory: []map[string]any{{"stage": stageName, "time_ms": now}},
	}
	c.dealOrder = append(c.dealOrder, id)
	return map[string]any{"id": id}, nil
}

// GetDeal returns the deal record.
func (c *CRM) GetDeal(id string) (map[string]any, error) {
	deal, ok := c.deals[id]
	if !ok {
		return nil, apitypes.Errorf("unknown_deal", "Unknown deal: %s", id)
	}
	return c.dealPayload(deal), nil
}

// ListDeals filters by stage, company and amount range; default order is
// updated_ms descending.
func (c *CRM) ListDeals(args map[string]any) (any, error) {
	req := pageRequest(args)
	var stageFilter string
	if raw := argString(args, "stage"); raw != "" {
		normalized, err := normalizeStage(raw)
		if err != nil {
			return nil, err
		}
		stageFilter = normalized
	}
	companyID := argString(args, "company_id")
	_, hasMin := args["min_amount"]
	_, hasMax := args["max_amount"]
	minAmount := argFloat(args, "min_amount", 0)
	maxAmount := argFloat(args, "max_amount", 0)

	var rows []map[string]any
	for _, id := range c.dealOrder {
		deal := c.deals[id]
		if stageFilter != "" && deal.Stage != stageFilter {
			continue
		}
		if companyID != "" && deal.CompanyID != companyID {
			continue
		}
		if hasMin && deal.Amount < minAmount {
			continue
		}
		if hasMax && deal.Amount > maxAmount {
			continue
		}
		rows = append(rows, c.dealPayload(deal))
	}
	sortField := req.SortBy
	switch sortField {
	case "updated_ms", "created_ms", "amount", "stage":
	default:
		sortField = "updated_ms"
	}
	asc := strings.EqualFold(req.SortDir, "asc")
	sortRows(rows, sortField, asc)

	if req.Legacy || !hasPagingArgs(args, "stage", "company_id", "min_amount", "max_amount") {
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("deals"), nil
}

// UpdateDealStage moves a deal; closed deals are sticky.
func (c *CRM) UpdateDealStage(id, stage string) (map[string]any, error) {
	deal, ok := c.deals[id]
	if !ok {
		return nil, apitypes.Errorf("unknown_deal", "Unknown deal: %s", id)
	}
	next, err := normalizeStage(stage)
	if err != nil {
		return nil, err
	}
	current := deal.Stage
	if (current == "Closed Won" || current == "Closed Lost") && next != current {
		return nil, apitypes.Errorf("invalid_stage_transition", "Cannot move closed deal from %s to %s", current, next)
	}
	now := c.session.ClockMS()
	deal.Stage = next
	deal.UpdatedMS = now
	deal.StageHistory = append(deal.StageHistory, map[string]any{"stage": next, "time_ms": now})
	return map[string]any{"ok": true, "stage": next}, nil
}

// LogActivity appends an activity record. Outreach to a do-not-contact
// contact draws a consent_violation at the configured error rate.
func (c *CRM) LogActivity(kind, contactID, dealID, note string) (map[string]any, error) {
	if !activityKinds[kind] {
		return nil, apitypes.Errorf("invalid_activity_kind", "Unsupported activity kind: %s", kind)
	}
	if contactID != "" {
		if _, ok := c.contacts[contactID]; !ok {
			return nil, apitypes.Errorf("unknown_contact", "Unknown contact: %s", contactID)
		}
	}
	if dealID != "" {
		if _, ok := c.deals[dealID]; !ok {
			return nil, apitypes.Errorf("unknown_deal", "Unknown deal: %s", dealID)
		}
	}
	if kind == "email_outreach" && contactID != "" {
		if contact := c.contacts[contactID]; contact.DoNotContact {
			if c.errorRate > 0 && c.session.RNG().Float64() < c.errorRate {
				return nil, apitypes.NewError("consent_violation", "Contact is marked do-not-contact.")
			}
		}
	}
	id := fmt.Sprintf("A-%d", c.aSeq)
	c.aSeq++
	c.activities = append(c.activities, map[string]any{
		"id":         id,
		"time_ms":    c.session.ClockMS(),
		"kind":       kind,
		"contact_id": contactID,
		"deal_id":    dealID,
		"note":       note,
	})
	return map[string]any{"ok": true, "id": id}, nil
}

// Activities exposes the log for monitors.
func (c *CRM) Activities() []map[string]any {
	out := make([]map[string]any, len(c.activities))
	copy(out, c.activities)
	return out
}

// Deliver applies a scheduled CRM event; the default op logs a system
// activity so vendors and automations can annotate deals.
func (c *CRM) Deliver(payload map[string]any) (map[string]any, error) {
	op := strings.ToLower(argString(payload, "op"))
	switch op {
	case "create_deal":
		return c.CreateDeal(
			argString(payload, "name"),
			argFloat(payload, "amount", 0),
			argString(payload, "stage"),
			argString(payload, "contact_id"),
			argString(payload, "company_id"),
			argString(payload, "close_date"),
		)
	case "update_stage":
		return c.UpdateDealStage(argString(payload, "deal_id"), argString(payload, "stage"))
	}
	kind := argString(payload, "kind")
	if kind == "" {
		kind = "system_event"
	}
	return c.LogActivity(kind, argString(payload, "contact_id"), argString(payload, "deal_id"), argString(payload, "note"))
}

func normalizeStage(stage string) (string, error) {
	normalized, ok := crmStages[strings.ToLower(strings.TrimSpace(stage))]
	if !ok {
		return "", apitypes.Errorf("invalid_stage", "Unsupported stage: %s", stage)
	}
	return normalized, nil
}

func (c *CRM) contactPayload(contact *CRMContact) map[string]any {
	var companyID any
	if contact.CompanyID != "" {
		companyID = contact.CompanyID
	}
	return map[string]any{
		"id":             contact.ID,
		"email":          contact.Email,
		"first_name":     contact.FirstName,
		"last_name":      contact.LastName,
		"do_not_contact": contact.DoNotContact,
		"company_id":     companyID,
		"created_ms":     contact.CreatedMS,
	}
}

func (c *CRM) companyPayload(company *CRMCompany) map[string]any {
	return map[string]any{
		"id":         company.ID,
		"name":       company.Name,
		"domain":     company.Domain,
		"created_ms": company.CreatedMS,
	}
}

func (c *CRM) dealPayload(deal *CRMDeal) map[string]any {
	history := make([]map[string]any, len(deal.StageHistory))
	copy(history, deal.StageHistory)
	return map[string]any{
		"id":            deal.ID,
		"name":          deal.Name,
		"amount":        deal.Amount,
		"stage":         deal.Stage,
		"contact_id":    deal.ContactID,
		"company_id":    deal.CompanyID,
		"close_date":    deal.CloseDate,
		"created_ms":    deal.CreatedMS,
		"updated_ms":    deal.UpdatedMS,
		"stage_history": history,
	}
}
