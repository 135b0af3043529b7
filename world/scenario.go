// Package world defines the seeded state a router session starts from: the
// scenario value type, the built-in catalog, the template generator used by
// the corpus, and scenario manifests.
package world

type (
	// Scenario is the complete seed for a session: every twin reads its
	// initial entities from here. Scenarios are plain values; the router
	// copies what it needs at construction and never writes back.
	Scenario struct {
		// Metadata carries free-form descriptors (scenario_type, difficulty,
		// expected_steps, tags) surfaced through manifests.
		Metadata map[string]any
		// BudgetCapUSD bounds approvals in procurement-style scenarios.
		BudgetCapUSD int
		// SlackInitialMessage seeds #procurement at session start.
		SlackInitialMessage string
		// VendorReplyVariants keys reply templates by recipient address; a
		// mail.compose to a key schedules one variant back into the inbox.
		VendorReplyVariants map[string][]ReplyVariant
		// BrowserNodes is the finite navigation graph keyed by node name;
		// the node named "home" is the entry point.
		BrowserNodes map[string]BrowserNode
		// Documents seeds the docs twin.
		Documents map[string]Document
		// Tickets seeds the tickets twin.
		Tickets map[string]TicketSeed
		// CalendarEvents seeds the calendar twin.
		CalendarEvents map[string]CalendarEventSeed
		// IdentityUsers, IdentityGroups and IdentityApplications seed the
		// identity twin; empty maps fall back to the twin's defaults.
		IdentityUsers        map[string]IdentityUserSeed
		IdentityGroups       map[string]IdentityGroupSeed
		IdentityApplications map[string]IdentityApplicationSeed
		// ServiceIncidents and ServiceRequests seed the service desk twin.
		ServiceIncidents map[string]IncidentSeed
		// ServiceRequests seed request queue entries.
		ServiceRequests map[string]RequestSeed
		// DatabaseTables seeds the relational twin; empty falls back to the
		// twin's default audit tables.
		DatabaseTables map[string][]map[string]any
		// DerailEvents are pre-scheduled bus deliveries (distractions).
		DerailEvents []DerailEvent
		// DerailProb is the per-step probability of sampling a distraction.
		DerailProb float64
	}

	// ReplyVariant is one candidate vendor reply.
	ReplyVariant struct {
		// Subj is the reply subject; "Re: " plus the original subject when
		// empty.
		Subj string
		// BodyText is the reply body.
		BodyText string
		// DelayMS overrides the reply delay; zero draws 10-15s.
		DelayMS int64
	}

	// BrowserNode is one vertex of the navigation graph.
	BrowserNode struct {
		URL      string
		Title    string
		Excerpt  string
		// Affordances are the tool suggestions shown in the action menu.
		Affordances []Affordance
		// Next maps click node ids to the destination node key; the
		// reserved key "BACK" names the back edge.
		Next map[string]string
	}

	// Affordance is a suggested tool invocation at a browser node.
	Affordance struct {
		Tool string
		Args map[string]any
	}

	// Document seeds one doc.
	Document struct {
		DocID string
		Title string
		Body  string
		Tags  []string
	}

	// TicketSeed seeds one ticket.
	TicketSeed struct {
		TicketID    string
		Title       string
		Description string
		Assignee    string
		Status      string
		Priority    string
		Severity    string
		Labels      []string
	}

	// CalendarEventSeed seeds one calendar event.
	CalendarEventSeed struct {
		EventID     string
		Title       string
		StartMS     int64
		EndMS       int64
		Attendees   []string
		Location    string
		Description string
		Organizer   string
		Status      string
	}

	// IdentityUserSeed seeds one identity user.
	IdentityUserSeed struct {
		UserID       string
		Email        string
		Login        string
		FirstName    string
		LastName     string
		Title        string
		Department   string
		Status       string
		Groups       []string
		Applications []string
	}

	// IdentityGroupSeed seeds one identity group.
	IdentityGroupSeed struct {
		GroupID     string
		Name        string
		Description string
		Members     []string
	}

	// IdentityApplicationSeed seeds one identity application.
	IdentityApplicationSeed struct {
		AppID       string
		Label       string
		Description string
		Assignments []string
	}

	// IncidentSeed seeds one service desk incident.
	IncidentSeed struct {
		IncidentID  string
		Title       string
		Description string
		Severity    string
		Status      string
		Assignee    string
		Service     string
	}

	// RequestSeed seeds one service desk request.
	RequestSeed struct {
		RequestID      string
		Title          string
		Description    string
		Requester      string
		Status         string
		ApprovalStage  string
		ApprovalStatus string
	}

	// DerailEvent is a pre-scheduled bus delivery.
	DerailEvent struct {
		DtMS    int64
		Target  string
		Payload map[string]any
	}
)
