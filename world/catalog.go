package world

import (
	"sort"
	"strings"

	"goa.design/vei/apitypes"
)

// Catalog builders. Each entry returns a fresh Scenario so sessions never
// share seed state.
var catalog = map[string]func() Scenario{
	"procurement":   Procurement,
	"multi_channel": MultiChannel,
}

// GetScenario returns the named catalog scenario. Names are matched
// case-insensitively.
func GetScenario(name string) (Scenario, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	build, ok := catalog[key]
	if !ok {
		return Scenario{}, apitypes.Errorf("unknown_scenario", "unknown catalog scenario: %s", name)
	}
	return build(), nil
}

// ListScenarios returns the catalog keyed by name.
func ListScenarios() map[string]Scenario {
	out := make(map[string]Scenario, len(catalog))
	for name, build := range catalog {
		out[name] = build()
	}
	return out
}

// ScenarioNames returns the sorted catalog names.
func ScenarioNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the scenario used when a router is constructed without one.
func Default() Scenario {
	return Procurement()
}

// Procurement is the classic laptop-quote world: a vendor catalog behind the
// browser, a responsive sales address and a procurement channel.
func Procurement() Scenario {
	return Scenario{
		Metadata: map[string]any{
			"scenario_type":  "core",
			"difficulty":     "standard",
			"expected_steps": []any{5, 12},
			"tags":           []any{"procurement", "email"},
		},
		BudgetCapUSD:        3500,
		SlackInitialMessage: "Welcome to #procurement. Request a MacroBook Pro 16 quote, confirm budget, and secure approval before purchase.",
		VendorReplyVariants: map[string][]ReplyVariant{
			"sales@macrocompute.example": {
				{BodyText: "Thanks for reaching out. MacroBook Pro 16 is $3199 per unit, ETA 5-7 business days. Let us know the approved budget."},
				{BodyText: "Quote attached: MacroBook Pro 16 at $3249 USD, delivery within 6 business days of PO."},
			},
		},
		BrowserNodes: procurementNodes(),
	}
}

// MultiChannel seeds every twin family so enterprise workflows have
// something to read before they write.
func MultiChannel() Scenario {
	s := Procurement()
	s.Metadata = map[string]any{
		"scenario_type":  "enterprise",
		"difficulty":     "standard",
		"expected_steps": []any{6, 16},
		"tags":           []any{"procurement", "identity", "servicedesk"},
	}
	s.Documents = map[string]Document{
		"DOC-1": {
			DocID: "DOC-1",
			Title: "Procurement Policy",
			Body:  "Purchases above $1000 require finance approval with citation. Budget caps apply per cost center.",
			Tags:  []string{"policy", "finance"},
		},
		"DOC-2": {
			DocID: "DOC-2",
			Title: "Vendor Shortlist Q3",
			Body:  "Approved vendors: MacroCompute, Dell Business, HP Enterprise.",
			Tags:  []string{"vendors"},
		},
	}
	s.Tickets = map[string]TicketSeed{
		"TCK-100": {
			TicketID:    "TCK-100",
			Title:       "Laptop refresh procurement",
			Description: "Coordinate the MacroBook fleet refresh with finance.",
			Assignee:    "ops.agent",
			Status:      "open",
			Priority:    "P2",
			Labels:      []string{"procurement"},
		},
	}
	s.CalendarEvents = map[string]CalendarEventSeed{
		"EVT-100": {
			EventID:   "EVT-100",
			Title:     "Weekly procurement sync",
			StartMS:   3_600_000,
			EndMS:     5_400_000,
			Attendees: []string{"finance@macrocompute.example", "ops@macrocompute.example"},
			Organizer: "ops@macrocompute.example",
			Status:    "CONFIRMED",
		},
	}
	s.IdentityUsers = map[string]IdentityUserSeed{
		"USR-2001": {
			UserID: "USR-2001", Email: "amy@macrocompute.example", Login: "amy",
			FirstName: "Amy", LastName: "Nguyen", Title: "Procurement Analyst",
			Department: "Procurement", Groups: []string{"GRP-procurement"},
			Applications: []string{"APP-sso"},
		},
		"USR-2002": {
			UserID: "USR-2002", Email: "raj@macrocompute.example", Login: "raj",
			FirstName: "Raj", LastName: "Patel", Title: "Finance Manager",
			Department: "Finance", Groups: []string{"GRP-finance"},
			Applications: []string{"APP-sso"},
		},
	}
	s.IdentityGroups = map[string]IdentityGroupSeed{
		"GRP-procurement": {GroupID: "GRP-procurement", Name: "Procurement Ops", Members: []string{"USR-2001"}},
		"GRP-finance":     {GroupID: "GRP-finance", Name: "Finance Approvers", Members: []string{"USR-2002"}},
	}
	s.IdentityApplications = map[string]IdentityApplicationSeed{
		"APP-sso": {AppID: "APP-sso", Label: "Macro SSO", Description: "Corporate identity provider", Assignments: []string{"USR-2001", "USR-2002"}},
	}
	s.ServiceIncidents = map[string]IncidentSeed{
		"INC-3001": {
			IncidentID: "INC-3001", Title: "Procurement portal degraded",
			Description: "Vendor catalog intermittently slow.", Severity: "medium",
			Status: "IN_PROGRESS", Assignee: "ops.agent", Service: "procurement-portal",
		},
	}
	s.ServiceRequests = map[string]RequestSeed{
		"REQ-8801": {
			RequestID: "REQ-8801", Title: "Temporary catalog admin access",
			Description: "Grant USR-2001 elevated access for the refresh project.",
			Requester:   "amy@macrocompute.example", Status: "PENDING_APPROVAL",
			ApprovalStage: "security", ApprovalStatus: "PENDING",
		},
	}
	s.DatabaseTables = map[string][]map[string]any{
		"procurement_orders": {
			{"id": "PO-1001", "vendor": "MacroCompute", "amount_usd": 3200, "status": "PENDING_APPROVAL", "cost_center": "IT-OPS"},
			{"id": "PO-1002", "vendor": "Dell Business", "amount_usd": 1850, "status": "APPROVED", "cost_center": "FIN-OPS"},
		},
		"crm_pipeline": {
			{"id": "OPP-901", "account": "MacroCompute", "stage": "Negotiation", "amount_usd": 48_000, "owner": "sales.lead"},
		},
		"approval_audit": {
			{"id": "APR-1", "entity_type": "purchase_order", "entity_id": "PO-1001", "status": "PENDING", "approver": "finance@macrocompute.example"},
		},
	}
	return s
}

func procurementNodes() map[string]BrowserNode {
	return map[string]BrowserNode{
		"home": {
			URL:     "https://vweb.local/home",
			Title:   "MacroCompute - Enterprise Store",
			Excerpt: "MacroBook Pro 16 now available for business fleets.",
			Affordances: []Affordance{
				{Tool: "browser.click", Args: map[string]any{"node_id": "CLICK:open_pdp#0"}},
			},
			Next: map[string]string{"CLICK:open_pdp#0": "pdp"},
		},
		"pdp": {
			URL:     "https://vweb.local/macrobook-pro-16",
			Title:   "MacroBook Pro 16 - Product",
			Excerpt: "MacroBook Pro 16: $3199 MSRP, volume pricing on request, ETA 5-7 business days.",
			Affordances: []Affordance{
				{Tool: "browser.click", Args: map[string]any{"node_id": "CLICK:open_specs#0"}},
				{Tool: "browser.back", Args: map[string]any{}},
			},
			Next: map[string]string{"CLICK:open_specs#0": "specs", "BACK": "home"},
		},
		"specs": {
			URL:     "https://vweb.local/macrobook-pro-16/specs",
			Title:   "MacroBook Pro 16 - Specifications",
			Excerpt: "16-core CPU, 64GB RAM, 2TB SSD. Enterprise warranty included.",
			Affordances: []Affordance{
				{Tool: "browser.back", Args: map[string]any{}},
			},
			Next: map[string]string{"BACK": "pdp"},
		},
	}
}
