package twins

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"goa.design/vei/apitypes"
	"goa.design/vei/bus"
	"goa.design/vei/world"
)

func newSession(t *testing.T) *bus.Bus {
	t.Helper()
	return bus.New(42042)
}

func TestDocsLifecycle(t *testing.T) {
	docs := NewDocs(world.Scenario{})

	created, err := docs.Create("Quote Notes", "Vendor quoted $3199, ETA 5 days", []string{"procurement"}, "", "")
	require.NoError(t, err)
	require.Equal(t, "DOC-1", created["doc_id"])
	require.Equal(t, "DRAFT", created["status"])
	require.Equal(t, 1, created["version"])

	body := "Vendor quoted $3249, ETA 4 days"
	updated, err := docs.Update("DOC-1", nil, &body, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, updated["version"])

	full, err := docs.Read("DOC-1")
	require.NoError(t, err)
	require.Equal(t, body, full["body"])
	require.Greater(t, full["updated_ms"].(int64), full["created_ms"].(int64))

	_, err = docs.Read("DOC-404")
	require.Equal(t, "unknown_document", apitypes.ErrorCode(err))
}

func TestDocsListLegacyAndEnvelope(t *testing.T) {
	docs := NewDocs(world.Scenario{})
	for i := 0; i < 3; i++ {
		_, err := docs.Create("Runbook", "steps", nil, "", "ACTIVE")
		require.NoError(t, err)
	}

	legacy, err := docs.List(map[string]any{})
	require.NoError(t, err)
	rows, ok := legacy.([]map[string]any)
	require.True(t, ok)
	require.Len(t, rows, 3)

	paged, err := docs.List(map[string]any{"limit": 2})
	require.NoError(t, err)
	env, ok := paged.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 2, env["count"])
	require.Equal(t, 3, env["total"])
	require.Equal(t, true, env["has_more"])
	require.Equal(t, "ofs:2", env["next_cursor"])

	_, err = docs.List(map[string]any{"cursor": "bogus"})
	require.Equal(t, "invalid_cursor", apitypes.ErrorCode(err))
}

func TestCalendarCanceledRejectsWrites(t *testing.T) {
	cal := NewCalendar(world.Scenario{})
	created, err := cal.Create(map[string]any{
		"title":     "Procurement review",
		"start_ms":  int64(1000),
		"end_ms":    int64(2000),
		"attendees": []any{"amy@macrocompute.example"},
	})
	require.NoError(t, err)
	eventID := created["event_id"].(string)

	canceled, err := cal.Cancel(eventID, "")
	require.NoError(t, err)
	require.Equal(t, true, canceled["changed"])

	again, err := cal.Cancel(eventID, "")
	require.NoError(t, err)
	require.Equal(t, false, again["changed"])

	_, err = cal.Update(eventID, map[string]any{"title": "nope"})
	require.Equal(t, "event_canceled", apitypes.ErrorCode(err))
	_, err = cal.Accept(eventID, "amy@macrocompute.example")
	require.Equal(t, "event_canceled", apitypes.ErrorCode(err))
}

func TestCalendarResponsesCheckMembership(t *testing.T) {
	cal := NewCalendar(world.Scenario{})
	created, err := cal.Create(map[string]any{
		"title":     "Standup",
		"start_ms":  int64(0),
		"end_ms":    int64(1),
		"attendees": []any{"amy@macrocompute.example"},
	})
	require.NoError(t, err)
	eventID := created["event_id"].(string)

	accepted, err := cal.Accept(eventID, "amy@macrocompute.example")
	require.NoError(t, err)
	require.Equal(t, "accepted", accepted["status"])

	_, err = cal.Decline(eventID, "stranger@example.com")
	require.Equal(t, "attendee_not_invited", apitypes.ErrorCode(err))
}

func TestCalendarSeedsKeepScenarioFields(t *testing.T) {
	cal := NewCalendar(world.MultiChannel())
	listed, err := cal.List(map[string]any{})
	require.NoError(t, err)
	rows := listed.([]map[string]any)
	require.Len(t, rows, 1)
	require.Equal(t, "EVT-100", rows[0]["event_id"])
	require.Equal(t, "ops@macrocompute.example", rows[0]["organizer"])
	require.Equal(t, "CONFIRMED", rows[0]["status"])
	require.ElementsMatch(t,
		[]any{"finance@macrocompute.example", "ops@macrocompute.example"},
		rows[0]["attendees"])

	// Blank seed fields fall back; unknown statuses normalize to CONFIRMED.
	// Seeded ids get monotonic created_ms in id order.
	cal = NewCalendar(world.Scenario{CalendarEvents: map[string]world.CalendarEventSeed{
		"EVT-2": {EventID: "EVT-2", Title: "Budget review", StartMS: 100, EndMS: 200, Status: "tentative"},
		"EVT-1": {EventID: "EVT-1", Title: "Kickoff", StartMS: 50, EndMS: 60, Organizer: "amy@macrocompute.example"},
	}})
	require.Equal(t, []string{"EVT-1", "EVT-2"}, cal.EventIDs())
	listed, err = cal.List(map[string]any{})
	require.NoError(t, err)
	byID := map[string]map[string]any{}
	for _, row := range listed.([]map[string]any) {
		byID[row["event_id"].(string)] = row
	}
	require.Equal(t, "amy@macrocompute.example", byID["EVT-1"]["organizer"])
	require.Equal(t, "CONFIRMED", byID["EVT-1"]["status"])
	require.Equal(t, "system", byID["EVT-2"]["organizer"])
	require.Equal(t, "TENTATIVE", byID["EVT-2"]["status"])
	require.Less(t, byID["EVT-1"]["created_ms"].(int64), byID["EVT-2"]["created_ms"].(int64))
}

func TestTicketTransitionsFollowTable(t *testing.T) {
	tickets := NewTickets(world.Scenario{})
	created, err := tickets.Create("Laptop order", "", "", "", "", nil)
	require.NoError(t, err)
	id := created["ticket_id"].(string)

	for _, status := range []string{"in_progress", "blocked", "resolved", "closed", "open"} {
		res, err := tickets.Transition(id, status)
		require.NoError(t, err, "transition to %s", status)
		require.Equal(t, status, res["status"])
	}

	_, err = tickets.Transition(id, "closed")
	require.NoError(t, err)
	_, err = tickets.Transition(id, "resolved")
	require.Equal(t, "invalid_transition", apitypes.ErrorCode(err))
}

func TestTicketCommentsAndHistory(t *testing.T) {
	tickets := NewTickets(world.Scenario{})
	created, err := tickets.Create("Audit", "check approvals", "", "P2", "high", []string{"finance"})
	require.NoError(t, err)
	id := created["ticket_id"].(string)

	comment, err := tickets.AddComment(id, "Checked with finance.", "")
	require.NoError(t, err)
	require.Equal(t, "CMT-0001", comment["comment_id"])

	_, err = tickets.AddComment(id, "   ", "")
	require.Equal(t, "invalid_args", apitypes.ErrorCode(err))

	full, err := tickets.Get(id)
	require.NoError(t, err)
	require.Equal(t, 1, full["comment_count"])
	history := full["history"].([]map[string]any)
	require.Equal(t, "CMT-0001", history[len(history)-1]["comment"])
}

func TestTicketSeedsKeepScenarioFields(t *testing.T) {
	tickets := NewTickets(world.MultiChannel())
	full, err := tickets.Get("TCK-100")
	require.NoError(t, err)
	require.Equal(t, "P2", full["priority"])
	require.Equal(t, "medium", full["severity"])
	require.Equal(t, []any{"procurement"}, full["labels"])
	require.Equal(t, "ops.agent", full["assignee"])
	require.Equal(t, "open", full["status"])

	// Invalid seed priority falls back; seeded ids advance the sequence.
	tickets = NewTickets(world.Scenario{Tickets: map[string]world.TicketSeed{
		"TCK-7": {TicketID: "TCK-7", Title: "Legacy import", Priority: "urgent"},
	}})
	full, err = tickets.Get("TCK-7")
	require.NoError(t, err)
	require.Equal(t, "P3", full["priority"])
	require.Equal(t, "medium", full["severity"])
	created, err := tickets.Create("Fleet refresh follow-up", "", "", "", "", nil)
	require.NoError(t, err)
	require.Equal(t, "TCK-8", created["ticket_id"])
}

func TestTicketTransitionProperty(t *testing.T) {
	statuses := []string{"open", "in_progress", "blocked", "resolved", "closed"}
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	properties.Property("transition accepted iff listed in the table", prop.ForAll(
		func(path []int) bool {
			tickets := NewTickets(world.Scenario{})
			created, err := tickets.Create("prop", "", "", "", "", nil)
			if err != nil {
				return false
			}
			id := created["ticket_id"].(string)
			current := "open"
			for _, pick := range path {
				target := statuses[pick%len(statuses)]
				_, err := tickets.Transition(id, target)
				legal := target == current || allowedTransition(current, target)
				if legal != (err == nil) {
					return false
				}
				if err == nil {
					current = target
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 4)),
	))
	properties.TestingRun(t)
}

func TestCRMConflictsAndStickyStages(t *testing.T) {
	crm := NewCRM(newSession(t), 0)

	_, err := crm.CreateContact("amy@macrocompute.example", "Amy", "Nguyen", false)
	require.NoError(t, err)
	_, err = crm.CreateContact("AMY@macrocompute.example", "Amy", "N", false)
	require.Equal(t, "conflict.contact_exists", apitypes.ErrorCode(err))

	_, err = crm.CreateCompany("MacroCompute", "macrocompute.example")
	require.NoError(t, err)
	_, err = crm.CreateCompany("Macro Compute Inc", "MACROCOMPUTE.example")
	require.Equal(t, "conflict.company_exists", apitypes.ErrorCode(err))

	deal, err := crm.CreateDeal("Laptop refresh", 3199, "closed_won", "", "", "")
	require.NoError(t, err)
	dealID := deal["id"].(string)

	_, err = crm.UpdateDealStage(dealID, "negotiation")
	require.Equal(t, "invalid_stage_transition", apitypes.ErrorCode(err))
	same, err := crm.UpdateDealStage(dealID, "Closed Won")
	require.NoError(t, err)
	require.Equal(t, "Closed Won", same["stage"])
}

func TestCRMActivityKindsAndAssociations(t *testing.T) {
	crm := NewCRM(newSession(t), 0)
	contact, err := crm.CreateContact("raj@macrocompute.example", "Raj", "Patel", true)
	require.NoError(t, err)
	contactID := contact["id"].(string)
	company, err := crm.CreateCompany("Northwind", "northwind.example")
	require.NoError(t, err)

	_, err = crm.AssociateContactCompany(contactID, company["id"].(string))
	require.NoError(t, err)
	got, err := crm.GetContact(contactID)
	require.NoError(t, err)
	require.Equal(t, company["id"], got["company_id"])

	_, err = crm.LogActivity("carrier_pigeon", contactID, "", "")
	require.Equal(t, "invalid_activity_kind", apitypes.ErrorCode(err))

	// Zero error rate: outreach to a DNC contact still succeeds.
	logged, err := crm.LogActivity("email_outreach", contactID, "", "checking in")
	require.NoError(t, err)
	require.Equal(t, "A-1", logged["id"])
}

func TestERPProcureToPayMatch(t *testing.T) {
	erp := NewERP(newSession(t), 0)
	po, err := erp.CreatePO("MacroCompute", "USD", []map[string]any{
		{"item_id": "LAPTOP-15", "desc": "laptops", "qty": 2, "unit_price": 1000},
	})
	require.NoError(t, err)
	poID := po["id"].(string)
	require.Equal(t, 2000.0, po["amount"])

	receipt, err := erp.ReceiveGoods(poID, []map[string]any{{"item_id": "LAPTOP-15", "qty": 2}})
	require.NoError(t, err)
	require.Equal(t, "RECEIVED", receipt["po_status"])

	invoice, err := erp.SubmitInvoice("MacroCompute", poID, []map[string]any{
		{"item_id": "LAPTOP-15", "qty": 2, "unit_price": 1000},
	})
	require.NoError(t, err)

	match, err := erp.MatchThreeWay(poID, invoice["id"].(string), receipt["id"].(string))
	require.NoError(t, err)
	require.Equal(t, "MATCH", match["status"])

	paid, err := erp.PostPayment(invoice["id"].(string), 2500)
	require.NoError(t, err)
	require.Equal(t, "PAID", paid["status"])
	require.Equal(t, 2000.0, paid["paid_amount"])
}

func TestERPGuards(t *testing.T) {
	erp := NewERP(newSession(t), 0)
	po, err := erp.CreatePO("MacroCompute", "", []map[string]any{
		{"item_id": "LAPTOP-15", "qty": 2, "unit_price": 1599.50},
	})
	require.NoError(t, err)
	poID := po["id"].(string)
	require.Equal(t, "USD", po["currency"])

	_, err = erp.ReceiveGoods(poID, []map[string]any{{"item_id": "MOUSE-1", "qty": 1}})
	require.Equal(t, "unknown_item", apitypes.ErrorCode(err))
	_, err = erp.ReceiveGoods(poID, []map[string]any{{"item_id": "LAPTOP-15", "qty": 3}})
	require.Equal(t, "qty_exceeds_po", apitypes.ErrorCode(err))

	_, err = erp.SubmitInvoice("Dell Business", poID, nil)
	require.Equal(t, "vendor_mismatch", apitypes.ErrorCode(err))
	_, err = erp.SubmitInvoice("MacroCompute", "PO-404", nil)
	require.Equal(t, "unknown_po", apitypes.ErrorCode(err))
}

func TestERPCentsProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	properties.Property("PO amount equals qty*unit in cents", prop.ForAll(
		func(qty int, unitCents int) bool {
			erp := NewERP(bus.New(7), 0)
			po, err := erp.CreatePO("V", "USD", []map[string]any{
				{"item_id": "X", "qty": qty, "unit_price": float64(unitCents) / 100},
			})
			if err != nil {
				return false
			}
			return po["amount"] == CentsToMoney(qty*unitCents)
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 500_000),
	))
	properties.TestingRun(t)
}

func TestDatabaseQueryFiltersAndCursor(t *testing.T) {
	db := NewDatabase(world.Scenario{})

	res, err := db.Query("procurement_orders", map[string]any{
		"amount_usd": map[string]any{"gte": 3000},
	}, nil, 20, 0, "", "", false)
	require.NoError(t, err)
	require.Equal(t, 1, res["count"])
	require.Equal(t, "PO-1001", res["rows"].([]map[string]any)[0]["id"])

	res, err = db.Query("procurement_orders", map[string]any{
		"status": map[string]any{"in": []any{"APPROVED", "REJECTED"}},
	}, []string{"id", "status"}, 20, 0, "", "", false)
	require.NoError(t, err)
	row := res["rows"].([]map[string]any)[0]
	require.Equal(t, "PO-1002", row["id"])
	require.NotContains(t, row, "vendor")

	paged, err := db.Query("procurement_orders", nil, nil, 1, 0, "", "id", false)
	require.NoError(t, err)
	require.Equal(t, true, paged["has_more"])
	next := paged["next_cursor"].(string)
	rest, err := db.Query("procurement_orders", nil, nil, 1, 0, next, "id", false)
	require.NoError(t, err)
	require.Equal(t, 1, rest["offset"])
	require.Equal(t, false, rest["has_more"])

	_, err = db.Query("missing", nil, nil, 20, 0, "", "", false)
	require.Equal(t, "db.table_not_found", apitypes.ErrorCode(err))
	_, err = db.Query("procurement_orders", nil, nil, 20, 0, "page2", "", false)
	require.Equal(t, "db.invalid_cursor", apitypes.ErrorCode(err))
}

func TestDatabaseUpsertMergesByKey(t *testing.T) {
	db := NewDatabase(world.Scenario{})

	res, err := db.Upsert("approval_audit", map[string]any{"id": "APR-1", "status": "APPROVED"}, "")
	require.NoError(t, err)
	require.Equal(t, true, res["updated"])

	q, err := db.Query("approval_audit", map[string]any{"id": "APR-1"}, nil, 20, 0, "", "", false)
	require.NoError(t, err)
	merged := q["rows"].([]map[string]any)[0]
	require.Equal(t, "APPROVED", merged["status"])
	require.Equal(t, "purchase_order", merged["entity_type"])

	res, err = db.Upsert("audit_log", map[string]any{"note": "synth id"}, "")
	require.NoError(t, err)
	require.Equal(t, false, res["updated"])
	require.Equal(t, "AUDIT_LOG-1", res["id"])
}

func TestIdentityDefaultsAndStateMachine(t *testing.T) {
	id := NewIdentity(world.Scenario{})

	users, err := id.ListUsers(map[string]any{"limit": 1, "sort_by": "email"})
	require.NoError(t, err)
	require.Equal(t, 1, users["count"])
	require.Equal(t, 2, users["total"])

	jane, err := id.GetUser("USR-9001")
	require.NoError(t, err)
	require.Equal(t, "Jane Castillo", jane["display_name"])
	require.Contains(t, jane["groups"], any("GRP-security"))

	// Mike is seeded SUSPENDED; unsuspend then suspend again.
	res, err := id.UnsuspendUser("USR-9002")
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", res["status"])
	_, err = id.UnsuspendUser("USR-9002")
	require.Equal(t, "okta.invalid_state", apitypes.ErrorCode(err))

	res, err = id.SuspendUser("USR-9002", "")
	require.NoError(t, err)
	require.Equal(t, true, res["changed"])
	res, err = id.SuspendUser("USR-9002", "")
	require.NoError(t, err)
	require.Equal(t, false, res["changed"])

	_, err = id.DeactivateUser("USR-9002", "offboarding")
	require.NoError(t, err)
	_, err = id.ActivateUser("USR-9002")
	require.Equal(t, "okta.invalid_state", apitypes.ErrorCode(err))
	_, err = id.ResetPassword("USR-9002")
	require.Equal(t, "okta.invalid_state", apitypes.ErrorCode(err))
}

func TestIdentityAssignmentsStayConsistent(t *testing.T) {
	id := NewIdentity(world.Scenario{})

	res, err := id.AssignGroup("USR-9001", "GRP-it")
	require.NoError(t, err)
	require.Equal(t, 2, res["members"])
	jane, err := id.GetUser("USR-9001")
	require.NoError(t, err)
	require.Contains(t, jane["groups"], any("GRP-it"))

	res, err = id.UnassignGroup("USR-9001", "GRP-it")
	require.NoError(t, err)
	require.Equal(t, 1, res["members"])

	token1, err := id.ResetPassword("USR-9001")
	require.NoError(t, err)
	require.Equal(t, "RST-0001-USR-9001", token1["reset_token"])
	token2, err := id.ResetPassword("USR-9001")
	require.NoError(t, err)
	require.Equal(t, "RST-0002-USR-9001", token2["reset_token"])
}

func TestServiceDeskUpdatesAppendWorklog(t *testing.T) {
	desk := NewServiceDesk(world.Scenario{
		ServiceIncidents: map[string]world.IncidentSeed{
			"INC-3001": {IncidentID: "INC-3001", Title: "VPN outage", Severity: "high"},
		},
		ServiceRequests: map[string]world.RequestSeed{
			"REQ-8801": {
				RequestID:     "REQ-8801",
				Title:         "Access to finance dashboard",
				Requester:     "amy@macrocompute.example",
				ApprovalStage: "security",
			},
		},
	})

	incidents, err := desk.ListIncidents(map[string]any{"status": "NEW"})
	require.NoError(t, err)
	require.Equal(t, 1, incidents["count"])

	updated, err := desk.UpdateIncident("INC-3001", map[string]any{
		"status": "in_progress", "assignee": "oncall", "comment": "mitigating",
	})
	require.NoError(t, err)
	require.Equal(t, "IN_PROGRESS", updated["status"])

	full, err := desk.GetIncident("INC-3001")
	require.NoError(t, err)
	worklog := full["worklog"].([]map[string]any)
	require.Len(t, worklog, 1)
	require.Equal(t, "mitigating", worklog[0]["comment"])

	pending, err := desk.ListRequests(map[string]any{"status": "PENDING_APPROVAL", "limit": 5})
	require.NoError(t, err)
	require.Equal(t, 1, pending["count"])

	approved, err := desk.UpdateRequest("REQ-8801", map[string]any{
		"status": "APPROVED", "approval_status": "granted",
	})
	require.NoError(t, err)
	require.Equal(t, "APPROVED", approved["status"])

	_, err = desk.UpdateRequest("REQ-404", map[string]any{"status": "APPROVED"})
	require.Equal(t, "unknown_request", apitypes.ErrorCode(err))
}

func TestMailComposeSchedulesVendorReply(t *testing.T) {
	session := newSession(t)
	scenario := world.Scenario{
		VendorReplyVariants: map[string][]world.ReplyVariant{
			"sales@macrocompute.example": {
				{BodyText: "Quote: $3199, ETA 5 business days", DelayMS: 12_000},
			},
		},
	}
	mail := NewMail(scenario, session)
	session.RegisterTarget("mail", mail)

	sent, err := mail.Compose("sales@macrocompute.example", "Quote request", "Need 2 laptops")
	require.NoError(t, err)
	require.Equal(t, "m1", sent["id"])

	pending := session.Pending()
	require.Equal(t, 1, pending["mail"])

	summary := session.Tick(12_000)
	require.Equal(t, 1, summary.Delivered["mail"])

	unread := mail.Unread(3)
	require.Len(t, unread, 1)
	opened, err := mail.Open(unread[0])
	require.NoError(t, err)
	require.Contains(t, opened["body_text"], "$3199")
	require.Empty(t, mail.Unread(3))
}

func TestSlackThreadsAndReactions(t *testing.T) {
	session := newSession(t)
	slack := NewSlack(world.Scenario{SlackInitialMessage: "Need a laptop under budget."}, session)

	opened, err := slack.OpenChannel("#procurement", 0)
	require.NoError(t, err)
	msgs := opened["messages"].([]map[string]any)
	require.Len(t, msgs, 1)
	rootTS := msgs[0]["ts"].(string)

	reply, err := slack.SendMessage("#procurement", "Approved :white_check_mark: $3199", rootTS)
	require.NoError(t, err)
	_, err = slack.React("#procurement", reply["ts"].(string), "thumbsup")
	require.NoError(t, err)

	thread, err := slack.FetchThread("#procurement", rootTS)
	require.NoError(t, err)
	require.Len(t, thread["messages"].([]map[string]any), 2)

	_, err = slack.OpenChannel("#missing", 0)
	require.Equal(t, "unknown_channel", apitypes.ErrorCode(err))
	_, err = slack.SendMessage("#procurement", "", "")
	require.Equal(t, "invalid_args", apitypes.ErrorCode(err))
}

func TestBrowserNavigation(t *testing.T) {
	b := NewBrowser(world.Procurement())

	node := b.Read()
	require.Equal(t, "home", node["node_id"])

	pdp, err := b.Click("CLICK:open_pdp#0")
	require.NoError(t, err)
	require.Equal(t, "pdp", pdp["node_id"])

	_, err = b.Click("missing_edge")
	require.Equal(t, "unknown_node", apitypes.ErrorCode(err))

	back := b.Back()
	require.Equal(t, "home", back["node_id"])

	hits := b.Find("laptop", 5)
	require.NotEmpty(t, hits)
}

func TestPaginationEnvelopeProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	properties.Property("pages tile the row set exactly once", prop.ForAll(
		func(total int, limit int) bool {
			docs := NewDocs(world.Scenario{})
			for i := 0; i < total; i++ {
				if _, err := docs.Create("Doc", "body", nil, "", "ACTIVE"); err != nil {
					return false
				}
			}
			seen := 0
			cursor := ""
			for {
				args := map[string]any{"limit": limit}
				if cursor != "" {
					args["cursor"] = cursor
				}
				res, err := docs.List(args)
				if err != nil {
					return false
				}
				env := res.(map[string]any)
				if env["total"] != total {
					return false
				}
				seen += env["count"].(int)
				if env["has_more"] != (env["next_cursor"] != nil) {
					return false
				}
				next, ok := env["next_cursor"].(string)
				if !ok {
					break
				}
				cursor = next
			}
			return seen == total
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 7),
	))
	properties.TestingRun(t)
}
