package router

import (
	"goa.design/vei/connectors"
)

// builtinTool pairs a registered spec with its dispatch handler.
type builtinTool struct {
	spec    ToolSpec
	handler connectors.Handler
}

// builtinTools enumerates every twin-backed tool with its latency envelope.
// Reads are cheaper than writes; risky writes carry the highest cost.
func builtinTools(r *Router) []builtinTool {
	return []builtinTool{
		// Browser: local rendering, fast.
		{
			spec: ToolSpec{
				Name:             "browser.read",
				Description:      "Read the current browser node: url, title, excerpt and affordances.",
				Permissions:      []string{"web:read"},
				DefaultLatencyMS: 60,
				LatencyJitterMS:  20,
				NominalCost:      1,
				Returns:          "{url, title, excerpt, affordances[]}",
			},
			handler: func(map[string]any) (any, error) { return r.Browser.Read(), nil },
		},
		{
			spec: ToolSpec{
				Name:             "browser.open",
				Description:      "Navigate to a url known to the site graph.",
				Permissions:      []string{"web:read"},
				DefaultLatencyMS: 120,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Browser.Open(argString(args, "url"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "browser.click",
				Description:      "Follow the affordance edge named by node_id.",
				Permissions:      []string{"web:read"},
				DefaultLatencyMS: 100,
				LatencyJitterMS:  30,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Browser.Click(argString(args, "node_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "browser.back",
				Description:      "Pop the browser history stack.",
				Permissions:      []string{"web:read"},
				DefaultLatencyMS: 50,
				LatencyJitterMS:  15,
				NominalCost:      1,
			},
			handler: func(map[string]any) (any, error) { return r.Browser.Back(), nil },
		},
		{
			spec: ToolSpec{
				Name:             "browser.type",
				Description:      "Type text into a named field on the current node.",
				Permissions:      []string{"web:read"},
				DefaultLatencyMS: 70,
				LatencyJitterMS:  20,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Browser.Type(argString(args, "node_id"), argString(args, "text")), nil
			},
		},
		{
			spec: ToolSpec{
				Name:             "browser.submit",
				Description:      "Submit the typed fields on the current node.",
				Permissions:      []string{"web:read"},
				DefaultLatencyMS: 110,
				LatencyJitterMS:  30,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Browser.Submit(argString(args, "node_id")), nil
			},
		},
		{
			spec: ToolSpec{
				Name:             "browser.find",
				Description:      "Score site nodes against a query and return the top matches.",
				Permissions:      []string{"web:read"},
				DefaultLatencyMS: 90,
				LatencyJitterMS:  30,
				NominalCost:      1,
				Returns:          "[{node_id, url, title, excerpt, score}]",
			},
			handler: func(args map[string]any) (any, error) {
				return r.Browser.Find(argString(args, "query"), argInt(args, "top_k", 5)), nil
			},
		},

		// Mail.
		{
			spec: ToolSpec{
				Name:             "mail.list",
				Description:      "List mail headers for a folder, INBOX by default.",
				Permissions:      []string{"mail:read"},
				DefaultLatencyMS: 140,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.Mail.List(args) },
		},
		{
			spec: ToolSpec{
				Name:             "mail.open",
				Description:      "Open a message and return its full body.",
				Permissions:      []string{"mail:read"},
				DefaultLatencyMS: 120,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Mail.Open(argString(args, "id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "mail.compose",
				Description:      "Send an outbound message; vendor addresses schedule a reply.",
				Permissions:      []string{"mail:write"},
				SideEffects:      []string{"mail_outbound"},
				DefaultLatencyMS: 220,
				LatencyJitterMS:  80,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Mail.Compose(argString(args, "to"), argString(args, "subj"), argString(args, "body_text"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "mail.reply",
				Description:      "Reply to a message in the inbox.",
				Permissions:      []string{"mail:write"},
				SideEffects:      []string{"mail_outbound"},
				DefaultLatencyMS: 200,
				LatencyJitterMS:  70,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Mail.Reply(argString(args, "id"), argString(args, "body_text"))
			},
		},

		// Slack.
		{
			spec: ToolSpec{
				Name:             "slack.list_channels",
				Description:      "List channel names visible to the workspace.",
				Permissions:      []string{"chat:read"},
				DefaultLatencyMS: 110,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.Slack.ListChannels(args) },
		},
		{
			spec: ToolSpec{
				Name:             "slack.open_channel",
				Description:      "Open a channel and return its recent messages.",
				Permissions:      []string{"chat:read"},
				DefaultLatencyMS: 130,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Slack.OpenChannel(argString(args, "channel"), argInt(args, "limit", 0))
			},
		},
		{
			spec: ToolSpec{
				Name:             "slack.send_message",
				Description:      "Post a message to a channel, optionally threading on thread_ts.",
				Permissions:      []string{"chat:write"},
				SideEffects:      []string{"chat_post"},
				DefaultLatencyMS: 160,
				LatencyJitterMS:  60,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Slack.SendMessage(argString(args, "channel"), argString(args, "text"), argString(args, "thread_ts"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "slack.react",
				Description:      "Add an emoji reaction to a message ts.",
				Permissions:      []string{"chat:write"},
				SideEffects:      []string{"chat_post"},
				DefaultLatencyMS: 120,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Slack.React(argString(args, "channel"), argString(args, "ts"), argString(args, "emoji"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "slack.fetch_thread",
				Description:      "Fetch the messages of a thread by thread_ts.",
				Permissions:      []string{"chat:read"},
				DefaultLatencyMS: 130,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Slack.FetchThread(argString(args, "channel"), argString(args, "thread_ts"))
			},
		},

		// Docs.
		{
			spec: ToolSpec{
				Name:             "docs.list",
				Description:      "List documents filtered by query, tag, status or owner.",
				Permissions:      []string{"docs:read"},
				DefaultLatencyMS: 140,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.Docs.List(args) },
		},
		{
			spec: ToolSpec{
				Name:             "docs.read",
				Description:      "Read a document including its body and version.",
				Permissions:      []string{"docs:read"},
				DefaultLatencyMS: 120,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Docs.Read(argString(args, "doc_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "docs.create",
				Description:      "Create a document with title, body and optional tags.",
				Permissions:      []string{"docs:write"},
				SideEffects:      []string{"docs_mutation"},
				DefaultLatencyMS: 200,
				LatencyJitterMS:  70,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Docs.Create(
					argString(args, "title"),
					argString(args, "body"),
					argStrings(args, "tags"),
					argString(args, "owner"),
					argString(args, "status"),
				)
			},
		},
		{
			spec: ToolSpec{
				Name:             "docs.update",
				Description:      "Update a document's title, body, tags or status; bumps version.",
				Permissions:      []string{"docs:write"},
				SideEffects:      []string{"docs_mutation"},
				DefaultLatencyMS: 190,
				LatencyJitterMS:  70,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Docs.Update(
					argString(args, "doc_id"),
					optString(args, "title"),
					optString(args, "body"),
					argStrings(args, "tags"),
					optString(args, "status"),
				)
			},
		},
		{
			spec: ToolSpec{
				Name:             "docs.search",
				Description:      "Rank documents by token hits over title and body.",
				Permissions:      []string{"docs:read"},
				DefaultLatencyMS: 150,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.Docs.Search(args) },
		},

		// Calendar.
		{
			spec: ToolSpec{
				Name:             "calendar.list_events",
				Description:      "List events filtered by attendee, status or time window.",
				Permissions:      []string{"calendar:read"},
				DefaultLatencyMS: 130,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.Calendar.List(args) },
		},
		{
			spec: ToolSpec{
				Name:             "calendar.create_event",
				Description:      "Create an event with title, start_ms and attendees.",
				Permissions:      []string{"calendar:write"},
				SideEffects:      []string{"calendar_mutation"},
				DefaultLatencyMS: 210,
				LatencyJitterMS:  70,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) { return r.Calendar.Create(args) },
		},
		{
			spec: ToolSpec{
				Name:             "calendar.update_event",
				Description:      "Update an event; canceled events reject writes.",
				Permissions:      []string{"calendar:write"},
				SideEffects:      []string{"calendar_mutation"},
				DefaultLatencyMS: 190,
				LatencyJitterMS:  60,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Calendar.Update(argString(args, "event_id"), args)
			},
		},
		{
			spec: ToolSpec{
				Name:             "calendar.cancel_event",
				Description:      "Cancel an event; idempotent on already-canceled events.",
				Permissions:      []string{"calendar:write"},
				SideEffects:      []string{"calendar_mutation"},
				DefaultLatencyMS: 200,
				LatencyJitterMS:  60,
				NominalCost:      3,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Calendar.Cancel(argString(args, "event_id"), argString(args, "reason"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "calendar.accept",
				Description:      "Record an attendee's acceptance of an event.",
				Permissions:      []string{"calendar:write"},
				SideEffects:      []string{"calendar_mutation"},
				DefaultLatencyMS: 150,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Calendar.Accept(argString(args, "event_id"), argString(args, "attendee"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "calendar.decline",
				Description:      "Record an attendee's decline of an event.",
				Permissions:      []string{"calendar:write"},
				SideEffects:      []string{"calendar_mutation"},
				DefaultLatencyMS: 150,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Calendar.Decline(argString(args, "event_id"), argString(args, "attendee"))
			},
		},

		// Tickets.
		{
			spec: ToolSpec{
				Name:             "tickets.list",
				Description:      "List tickets filtered by status, assignee, priority or label.",
				Permissions:      []string{"tickets:read"},
				DefaultLatencyMS: 140,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.Tickets.List(args) },
		},
		{
			spec: ToolSpec{
				Name:             "tickets.get",
				Description:      "Fetch a ticket including comments and history.",
				Permissions:      []string{"tickets:read"},
				DefaultLatencyMS: 120,
				LatencyJitterMS:  40,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Tickets.Get(argString(args, "ticket_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "tickets.create",
				Description:      "Create a ticket; priority defaults to P3.",
				Permissions:      []string{"tickets:write"},
				SideEffects:      []string{"tickets_mutation"},
				DefaultLatencyMS: 210,
				LatencyJitterMS:  70,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Tickets.Create(
					argString(args, "title"),
					argString(args, "description"),
					argString(args, "assignee"),
					argString(args, "priority"),
					argString(args, "severity"),
					argStrings(args, "labels"),
				)
			},
		},
		{
			spec: ToolSpec{
				Name:             "tickets.update",
				Description:      "Update ticket fields; every update appends to history.",
				Permissions:      []string{"tickets:write"},
				SideEffects:      []string{"tickets_mutation"},
				DefaultLatencyMS: 190,
				LatencyJitterMS:  60,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Tickets.Update(
					argString(args, "ticket_id"),
					optString(args, "description"),
					optString(args, "assignee"),
					optString(args, "priority"),
					optString(args, "severity"),
					argStrings(args, "labels"),
				)
			},
		},
		{
			spec: ToolSpec{
				Name:             "tickets.transition",
				Description:      "Move a ticket along the status transition table.",
				Permissions:      []string{"tickets:write"},
				SideEffects:      []string{"tickets_mutation"},
				DefaultLatencyMS: 200,
				LatencyJitterMS:  60,
				NominalCost:      3,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Tickets.Transition(argString(args, "ticket_id"), argString(args, "status"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "tickets.add_comment",
				Description:      "Append a comment to a ticket.",
				Permissions:      []string{"tickets:write"},
				SideEffects:      []string{"tickets_mutation"},
				DefaultLatencyMS: 160,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Tickets.AddComment(argString(args, "ticket_id"), argString(args, "body"), argString(args, "author"))
			},
		},

		// Database.
		{
			spec: ToolSpec{
				Name:             "db.list_tables",
				Description:      "List tables with their row counts.",
				Permissions:      []string{"db:read"},
				DefaultLatencyMS: 100,
				LatencyJitterMS:  30,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.DB.ListTables(args) },
		},
		{
			spec: ToolSpec{
				Name:             "db.describe_table",
				Description:      "Describe the column union of a table.",
				Permissions:      []string{"db:read"},
				DefaultLatencyMS: 100,
				LatencyJitterMS:  30,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.DB.DescribeTable(argString(args, "table"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "db.query",
				Description:      "Filter, sort, project and paginate a table with the filter DSL.",
				Permissions:      []string{"db:read"},
				DefaultLatencyMS: 160,
				LatencyJitterMS:  60,
				NominalCost:      1,
				Returns:          "{table, rows, count, total, offset, next_cursor, has_more}",
			},
			handler: func(args map[string]any) (any, error) {
				filters, _ := args["filters"].(map[string]any)
				return r.DB.Query(
					argString(args, "table"),
					filters,
					argStrings(args, "columns"),
					argInt(args, "limit", 0),
					argInt(args, "offset", 0),
					argString(args, "cursor"),
					argString(args, "sort_by"),
					argBool(args, "descending"),
				)
			},
		},
		{
			spec: ToolSpec{
				Name:             "db.upsert",
				Description:      "Merge a row by key, creating the table on first write.",
				Permissions:      []string{"db:write"},
				SideEffects:      []string{"db_mutation"},
				DefaultLatencyMS: 180,
				LatencyJitterMS:  60,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				row, _ := args["row"].(map[string]any)
				return r.DB.Upsert(argString(args, "table"), row, argString(args, "key"))
			},
		},

		// ERP.
		{
			spec: ToolSpec{
				Name:             "erp.create_po",
				Description:      "Create a purchase order from vendor and line items.",
				Permissions:      []string{"erp:write"},
				SideEffects:      []string{"erp_mutation"},
				DefaultLatencyMS: 260,
				LatencyJitterMS:  90,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.ERP.CreatePO(argString(args, "vendor"), argString(args, "currency"), argMaps(args, "lines"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "erp.get_po",
				Description:      "Fetch a purchase order.",
				Permissions:      []string{"erp:read"},
				DefaultLatencyMS: 150,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.ERP.GetPO(argString(args, "po_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "erp.list_pos",
				Description:      "List purchase orders filtered by vendor, status or currency.",
				Permissions:      []string{"erp:read"},
				DefaultLatencyMS: 170,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.ERP.ListPOs(args) },
		},
		{
			spec: ToolSpec{
				Name:             "erp.receive_goods",
				Description:      "Record a goods receipt against a purchase order.",
				Permissions:      []string{"erp:write"},
				SideEffects:      []string{"erp_mutation"},
				DefaultLatencyMS: 240,
				LatencyJitterMS:  80,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.ERP.ReceiveGoods(argString(args, "po_id"), argMaps(args, "lines"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "erp.submit_invoice",
				Description:      "Submit a vendor invoice against a purchase order.",
				Permissions:      []string{"erp:write"},
				SideEffects:      []string{"erp_mutation"},
				DefaultLatencyMS: 250,
				LatencyJitterMS:  90,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.ERP.SubmitInvoice(argString(args, "vendor"), argString(args, "po_id"), argMaps(args, "lines"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "erp.get_invoice",
				Description:      "Fetch an invoice.",
				Permissions:      []string{"erp:read"},
				DefaultLatencyMS: 150,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.ERP.GetInvoice(argString(args, "invoice_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "erp.list_invoices",
				Description:      "List invoices filtered by vendor or status.",
				Permissions:      []string{"erp:read"},
				DefaultLatencyMS: 170,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.ERP.ListInvoices(args) },
		},
		{
			spec: ToolSpec{
				Name:             "erp.match_three_way",
				Description:      "Run the PO / invoice / receipt three-way match.",
				Permissions:      []string{"erp:write"},
				SideEffects:      []string{"erp_mutation"},
				DefaultLatencyMS: 280,
				LatencyJitterMS:  100,
				NominalCost:      2,
				Returns:          "{status, mismatches[]}",
			},
			handler: func(args map[string]any) (any, error) {
				return r.ERP.MatchThreeWay(argString(args, "po_id"), argString(args, "invoice_id"), argString(args, "receipt_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "erp.post_payment",
				Description:      "Post a payment against an invoice; overpayment is clamped.",
				Permissions:      []string{"erp:write"},
				SideEffects:      []string{"erp_mutation", "funds_movement"},
				DefaultLatencyMS: 320,
				LatencyJitterMS:  120,
				NominalCost:      3,
			},
			handler: func(args map[string]any) (any, error) {
				return r.ERP.PostPayment(argString(args, "invoice_id"), argFloat(args, "amount", 0))
			},
		},

		// CRM.
		{
			spec: ToolSpec{
				Name:             "crm.create_contact",
				Description:      "Create a contact; email is unique case-insensitively.",
				Permissions:      []string{"crm:write"},
				SideEffects:      []string{"crm_mutation"},
				DefaultLatencyMS: 220,
				LatencyJitterMS:  80,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.CreateContact(
					argString(args, "email"),
					argString(args, "first_name"),
					argString(args, "last_name"),
					argBool(args, "do_not_contact"),
				)
			},
		},
		{
			spec: ToolSpec{
				Name:             "crm.get_contact",
				Description:      "Fetch a contact.",
				Permissions:      []string{"crm:read"},
				DefaultLatencyMS: 140,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.GetContact(argString(args, "contact_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "crm.list_contacts",
				Description:      "List contacts filtered by query, company or consent flag.",
				Permissions:      []string{"crm:read"},
				DefaultLatencyMS: 160,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.CRM.ListContacts(args) },
		},
		{
			spec: ToolSpec{
				Name:             "crm.create_company",
				Description:      "Create a company; domain is unique.",
				Permissions:      []string{"crm:write"},
				SideEffects:      []string{"crm_mutation"},
				DefaultLatencyMS: 220,
				LatencyJitterMS:  80,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.CreateCompany(argString(args, "name"), argString(args, "domain"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "crm.get_company",
				Description:      "Fetch a company.",
				Permissions:      []string{"crm:read"},
				DefaultLatencyMS: 140,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.GetCompany(argString(args, "company_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "crm.list_companies",
				Description:      "List companies.",
				Permissions:      []string{"crm:read"},
				DefaultLatencyMS: 160,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.CRM.ListCompanies(args) },
		},
		{
			spec: ToolSpec{
				Name:             "crm.associate_contact_company",
				Description:      "Link a contact to a company.",
				Permissions:      []string{"crm:write"},
				SideEffects:      []string{"crm_mutation"},
				DefaultLatencyMS: 180,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.AssociateContactCompany(argString(args, "contact_id"), argString(args, "company_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "crm.create_deal",
				Description:      "Create a deal in a pipeline stage.",
				Permissions:      []string{"crm:write"},
				SideEffects:      []string{"crm_mutation"},
				DefaultLatencyMS: 240,
				LatencyJitterMS:  80,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.CreateDeal(
					argString(args, "name"),
					argFloat(args, "amount", 0),
					argString(args, "stage"),
					argString(args, "contact_id"),
					argString(args, "company_id"),
					argString(args, "close_date"),
				)
			},
		},
		{
			spec: ToolSpec{
				Name:             "crm.get_deal",
				Description:      "Fetch a deal including its stage history.",
				Permissions:      []string{"crm:read"},
				DefaultLatencyMS: 140,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.GetDeal(argString(args, "deal_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "crm.list_deals",
				Description:      "List deals filtered by stage, company or amount range.",
				Permissions:      []string{"crm:read"},
				DefaultLatencyMS: 160,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.CRM.ListDeals(args) },
		},
		{
			spec: ToolSpec{
				Name:             "crm.update_deal_stage",
				Description:      "Move a deal to a new stage; closed deals are final.",
				Permissions:      []string{"crm:write"},
				SideEffects:      []string{"crm_mutation"},
				DefaultLatencyMS: 200,
				LatencyJitterMS:  70,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.UpdateDealStage(argString(args, "deal_id"), argString(args, "stage"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "crm.log_activity",
				Description:      "Log an activity against a contact or deal.",
				Permissions:      []string{"crm:write"},
				SideEffects:      []string{"crm_mutation"},
				DefaultLatencyMS: 180,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.CRM.LogActivity(
					argString(args, "kind"),
					argString(args, "contact_id"),
					argString(args, "deal_id"),
					argString(args, "note"),
				)
			},
		},

		// Service desk.
		{
			spec: ToolSpec{
				Name:             "servicedesk.list_incidents",
				Description:      "List incidents filtered by status, severity, assignee or query.",
				Permissions:      []string{"servicedesk:read"},
				DefaultLatencyMS: 170,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.Desk.ListIncidents(args) },
		},
		{
			spec: ToolSpec{
				Name:             "servicedesk.get_incident",
				Description:      "Fetch an incident including its worklog.",
				Permissions:      []string{"servicedesk:read"},
				DefaultLatencyMS: 140,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Desk.GetIncident(argString(args, "incident_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "servicedesk.update_incident",
				Description:      "Update incident status or assignee; appends a worklog entry.",
				Permissions:      []string{"servicedesk:write"},
				SideEffects:      []string{"servicedesk_mutation"},
				DefaultLatencyMS: 220,
				LatencyJitterMS:  80,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Desk.UpdateIncident(argString(args, "incident_id"), args)
			},
		},
		{
			spec: ToolSpec{
				Name:             "servicedesk.list_requests",
				Description:      "List service requests filtered by status or requester.",
				Permissions:      []string{"servicedesk:read"},
				DefaultLatencyMS: 170,
				LatencyJitterMS:  60,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) { return r.Desk.ListRequests(args) },
		},
		{
			spec: ToolSpec{
				Name:             "servicedesk.get_request",
				Description:      "Fetch a service request including its worklog.",
				Permissions:      []string{"servicedesk:read"},
				DefaultLatencyMS: 140,
				LatencyJitterMS:  50,
				NominalCost:      1,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Desk.GetRequest(argString(args, "request_id"))
			},
		},
		{
			spec: ToolSpec{
				Name:             "servicedesk.update_request",
				Description:      "Update request status or approval fields; appends a worklog entry.",
				Permissions:      []string{"servicedesk:write"},
				SideEffects:      []string{"servicedesk_mutation"},
				DefaultLatencyMS: 220,
				LatencyJitterMS:  80,
				NominalCost:      2,
			},
			handler: func(args map[string]any) (any, error) {
				return r.Desk.UpdateRequest(argString(args, "request_id"), args)
			},
		},
	}
}
