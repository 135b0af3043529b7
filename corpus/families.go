package corpus

import (
	"fmt"

	"goa.design/vei/workflow"
)

// stepInputs carries the per-workflow values the family templates splice in.
type stepInputs struct {
	Family       string
	ScenarioID   string
	OrgName      string
	QuoteTo      string
	Approver     string
	Budget       int
	POID         string
	DealTool     string
	ActivityTool string
}

func familyObjective(family string) string {
	switch family {
	case "db_audit":
		return "Validate procurement records in DB and route finance approval artifacts."
	case "sales_pipeline":
		return "Open a sales pipeline artifact tied to procurement execution evidence."
	case "calendar_review":
		return "Schedule review operations and sync approvals across calendar/mail/db."
	case "risk_escalation":
		return "Escalate procurement risk with CRM logging and cross-channel notifications."
	case "identity_access_review":
		return "Process an enterprise access request through identity and service-desk controls."
	case "procure_to_pay":
		return "Execute procure-to-pay lifecycle with ERP and approval audit updates."
	}
	return "Collect vendor evidence, email quote request, and route approval execution."
}

func familySuccess(family string) []string {
	switch family {
	case "db_audit":
		return []string{
			"Approval audit table inspected",
			"Finance escalation email sent",
			"Approval audit row upserted",
		}
	case "sales_pipeline":
		return []string{
			"CRM pipeline opportunity created",
			"Quote summary captured in docs",
			"Approval context announced in Slack",
		}
	case "calendar_review":
		return []string{
			"Review meeting scheduled",
			"Procurement order status updated",
			"Action ticket opened",
		}
	case "risk_escalation":
		return []string{
			"Risk signal captured in CRM activity",
			"Escalation email sent",
			"Escalation posted in Slack",
		}
	case "identity_access_review":
		return []string{
			"Pending request reviewed in ServiceDesk",
			"Identity group assignment updated in Okta",
			"Approval status posted in Slack",
		}
	case "procure_to_pay":
		return []string{
			"Purchase order created in ERP",
			"Invoice matched and payment posted",
			"Audit log row persisted in database",
		}
	}
	return []string{
		"Vendor quote requested via mail",
		"Approval request posted in Slack with budget",
		"Execution ticket created",
	}
}

func familySteps(in stepInputs) []workflow.Step {
	switch in.Family {
	case "db_audit":
		return dbAuditSteps(in)
	case "sales_pipeline":
		return salesPipelineSteps(in)
	case "calendar_review":
		return calendarReviewSteps(in)
	case "risk_escalation":
		return riskEscalationSteps(in)
	case "identity_access_review":
		return identityAccessSteps(in)
	case "procure_to_pay":
		return procureToPaySteps(in)
	}
	return procurementQuoteSteps(in)
}

func dbAuditSteps(in stepInputs) []workflow.Step {
	return []workflow.Step{
		{
			StepID:      "query_audit",
			Description: "Read approval audit rows from the DB.",
			Tool:        "db.query",
			Args:        map[string]any{"table": "approval_audit", "limit": 10},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "table", Contains: "approval_audit"},
			},
		},
		{
			StepID:      "escalate_finance",
			Description: "Email finance for approval confirmation.",
			Tool:        "mail.compose",
			Args: map[string]any{
				"to":        in.Approver,
				"subj":      in.ScenarioID + " approval confirmation",
				"body_text": fmt.Sprintf("Please confirm approval for %s budget $%d.", in.ScenarioID, in.Budget),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "m"},
			},
		},
		{
			StepID:      "post_approval",
			Description: "Post approval request in procurement Slack channel.",
			Tool:        "slack.send_message",
			Args: map[string]any{
				"channel": "#procurement",
				"text":    fmt.Sprintf("Approval needed for %s. Budget $%d. DB audit row checked.", in.ScenarioID, in.Budget),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ts", Contains: ""},
			},
		},
		{
			StepID:      "write_audit",
			Description: "Write approval workflow state into audit DB.",
			Tool:        "db.upsert",
			Args: map[string]any{
				"table": "approval_audit",
				"row": map[string]any{
					"id":          "APR-" + in.ScenarioID,
					"entity_type": "purchase_order",
					"entity_id":   in.POID,
					"status":      "REQUESTED",
					"approver":    in.Approver,
				},
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "APR-"},
			},
		},
		{
			StepID:      "create_ticket",
			Description: "Open ticket for approval follow-up.",
			Tool:        "tickets.create",
			Args: map[string]any{
				"title":       in.ScenarioID + " approval follow-up",
				"description": "Track finance approval progress and audit linkage.",
				"assignee":    "agent",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ticket_id", Contains: "TCK-"},
			},
		},
	}
}

func salesPipelineSteps(in stepInputs) []workflow.Step {
	return []workflow.Step{
		{
			StepID:      "create_opportunity",
			Description: "Create pipeline opportunity for this procurement plan.",
			Tool:        in.DealTool,
			Args: map[string]any{
				"name":   fmt.Sprintf("%s %s renewal", in.OrgName, in.ScenarioID),
				"amount": in.Budget,
				"stage":  "Qualification",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "D-"},
			},
		},
		{
			StepID:      "capture_quote_doc",
			Description: "Write quote summary into docs for reviewer context.",
			Tool:        "docs.create",
			Args: map[string]any{
				"title": in.ScenarioID + " quote summary",
				"body":  fmt.Sprintf("Scenario %s: budget $%d, approver %s.", in.ScenarioID, in.Budget, in.Approver),
				"tags":  []any{"quote", "approval", "generated"},
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "doc_id", Contains: "DOC-"},
			},
		},
		{
			StepID:      "request_vendor_quote",
			Description: "Send quote request to vendor contact.",
			Tool:        "mail.compose",
			Args: map[string]any{
				"to":        in.QuoteTo,
				"subj":      fmt.Sprintf("%s quote request (%s)", in.OrgName, in.ScenarioID),
				"body_text": "Please confirm total amount, ETA, and contract validity window.",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "m"},
			},
		},
		{
			StepID:      "post_approval",
			Description: "Post finance approval context in Slack.",
			Tool:        "slack.send_message",
			Args: map[string]any{
				"channel": "#procurement",
				"text": fmt.Sprintf(
					"Approval request %s: budget $%d, CRM opportunity opened, docs summary captured.",
					in.ScenarioID, in.Budget),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ts", Contains: ""},
			},
		},
		{
			StepID:      "log_activity",
			Description: "Log final approval context in CRM activity stream.",
			Tool:        in.ActivityTool,
			Args: map[string]any{
				"kind": "note",
				"note": fmt.Sprintf("Scenario %s submitted for finance approval at budget $%d.", in.ScenarioID, in.Budget),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ok", Contains: "true"},
			},
		},
	}
}

func calendarReviewSteps(in stepInputs) []workflow.Step {
	return []workflow.Step{
		{
			StepID:      "schedule_review",
			Description: "Schedule a finance review call.",
			Tool:        "calendar.create_event",
			Args: map[string]any{
				"title":     in.ScenarioID + " finance approval review",
				"start_ms":  3600000,
				"end_ms":    4200000,
				"attendees": []any{in.Approver},
				"location":  "Virtual",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "event_id", Contains: "EVT-"},
			},
		},
		{
			StepID:      "mail_review_context",
			Description: "Email review context and expected decision.",
			Tool:        "mail.compose",
			Args: map[string]any{
				"to":        in.Approver,
				"subj":      in.ScenarioID + " review agenda",
				"body_text": fmt.Sprintf("Agenda: approve procurement plan %s for $%d.", in.ScenarioID, in.Budget),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "m"},
			},
		},
		{
			StepID:      "mark_order",
			Description: "Update procurement order state in DB.",
			Tool:        "db.upsert",
			Args: map[string]any{
				"table": "procurement_orders",
				"row": map[string]any{
					"id":          in.POID,
					"vendor":      in.OrgName,
					"amount_usd":  in.Budget,
					"status":      "REVIEW_SCHEDULED",
					"cost_center": "FIN-OPS",
				},
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "PO-"},
			},
		},
		{
			StepID:      "announce_channel",
			Description: "Post approval workflow status to Slack.",
			Tool:        "slack.send_message",
			Args: map[string]any{
				"channel": "#procurement",
				"text": fmt.Sprintf(
					"Scheduled finance review for %s. Order %s marked REVIEW_SCHEDULED.",
					in.ScenarioID, in.POID),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ts", Contains: ""},
			},
		},
		{
			StepID:      "create_ticket",
			Description: "Create an execution ticket for operational follow-up.",
			Tool:        "tickets.create",
			Args: map[string]any{
				"title":       in.ScenarioID + " operations follow-up",
				"description": "Coordinate finance review outcome and next actions.",
				"assignee":    "agent",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ticket_id", Contains: "TCK-"},
			},
		},
	}
}

func riskEscalationSteps(in stepInputs) []workflow.Step {
	return []workflow.Step{
		{
			StepID:      "inspect_catalog",
			Description: "Review procurement browser context for anomalies.",
			Tool:        "browser.read",
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "title", Contains: ""},
			},
		},
		{
			StepID:      "query_orders",
			Description: "Read current procurement order states from DB.",
			Tool:        "db.query",
			Args:        map[string]any{"table": "procurement_orders", "limit": 10},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "table", Contains: "procurement_orders"},
			},
		},
		{
			StepID:      "log_crm_risk",
			Description: "Record risk context in CRM activity log.",
			Tool:        in.ActivityTool,
			Args: map[string]any{
				"kind": "note",
				"note": fmt.Sprintf("Potential delivery risk for %s; escalate pending approval.", in.ScenarioID),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ok", Contains: "true"},
			},
		},
		{
			StepID:      "mail_escalation",
			Description: "Escalate approval request by email.",
			Tool:        "mail.compose",
			Args: map[string]any{
				"to":        in.Approver,
				"subj":      in.ScenarioID + " risk escalation",
				"body_text": "Delivery risk identified. Please approve mitigation budget and timeline.",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "m"},
			},
		},
		{
			StepID:      "post_approval",
			Description: "Post approval escalation context in Slack.",
			Tool:        "slack.send_message",
			Args: map[string]any{
				"channel": "#procurement",
				"text":    fmt.Sprintf("Escalation: %s needs finance approval for risk mitigation.", in.ScenarioID),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ts", Contains: ""},
			},
		},
	}
}

func identityAccessSteps(in stepInputs) []workflow.Step {
	return []workflow.Step{
		{
			StepID:      "list_pending_requests",
			Description: "Review pending access requests in ServiceDesk.",
			Tool:        "servicedesk.list_requests",
			Args:        map[string]any{"status": "PENDING_APPROVAL", "limit": 10},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "requests", Contains: "REQ-"},
			},
		},
		{
			StepID:      "inspect_identity",
			Description: "Inspect user state in Okta before assignment.",
			Tool:        "okta.get_user",
			Args:        map[string]any{"user_id": "USR-9001"},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "email", Contains: "example.com"},
			},
		},
		{
			StepID:      "assign_group",
			Description: "Assign user to IT support group for temporary access.",
			Tool:        "okta.assign_group",
			Args:        map[string]any{"user_id": "USR-9001", "group_id": "GRP-it"},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "group_id", Contains: "GRP-"},
			},
		},
		{
			StepID:      "approve_request",
			Description: "Update service request approval stage.",
			Tool:        "servicedesk.update_request",
			Args: map[string]any{
				"request_id":      "REQ-8801",
				"status":          "APPROVED",
				"approval_stage":  "security",
				"approval_status": "APPROVED",
				"comment":         "Okta group assignment completed and validated.",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "status", Contains: "APPROVED"},
			},
		},
		{
			StepID:      "announce_access",
			Description: "Announce access completion in Slack.",
			Tool:        "slack.send_message",
			Args: map[string]any{
				"channel": "#procurement",
				"text":    fmt.Sprintf("Access request %s approved; identity assignment applied for review.", in.ScenarioID),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ts", Contains: ""},
			},
		},
	}
}

func procureToPaySteps(in stepInputs) []workflow.Step {
	unitPrice := float64(in.Budget) / 5
	return []workflow.Step{
		{
			StepID:      "create_po",
			Description: "Create ERP purchase order for procurement plan.",
			Tool:        "erp.create_po",
			Args: map[string]any{
				"vendor":   "MacroCompute",
				"currency": "USD",
				"lines": []any{map[string]any{
					"item_id":    "LAPTOP-15",
					"desc":       "Laptop fleet refresh",
					"qty":        5,
					"unit_price": unitPrice,
				}},
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "PO-"},
			},
		},
		{
			StepID:      "receive_goods",
			Description: "Receive goods against the ERP purchase order.",
			Tool:        "erp.receive_goods",
			Args: map[string]any{
				"po_id": "PO-1",
				"lines": []any{map[string]any{"item_id": "LAPTOP-15", "qty": 5}},
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "RCPT-"},
			},
		},
		{
			StepID:      "submit_invoice",
			Description: "Submit invoice for the received order.",
			Tool:        "erp.submit_invoice",
			Args: map[string]any{
				"vendor": "MacroCompute",
				"po_id":  "PO-1",
				"lines": []any{map[string]any{
					"item_id":    "LAPTOP-15",
					"qty":        5,
					"unit_price": unitPrice,
				}},
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "INV-"},
			},
		},
		{
			StepID:      "match_three_way",
			Description: "Run ERP three-way match.",
			Tool:        "erp.match_three_way",
			Args: map[string]any{
				"po_id":      "PO-1",
				"invoice_id": "INV-1",
				"receipt_id": "RCPT-1",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "status", Contains: "MATCH"},
			},
		},
		{
			StepID:      "post_payment",
			Description: "Post invoice payment after successful match.",
			Tool:        "erp.post_payment",
			Args:        map[string]any{"invoice_id": "INV-1", "amount": float64(in.Budget)},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "status", Contains: "PAID"},
			},
		},
		{
			StepID:      "write_audit",
			Description: "Write procure-to-pay completion row to audit DB.",
			Tool:        "db.upsert",
			Args: map[string]any{
				"table": "approval_audit",
				"row": map[string]any{
					"id":          "APR-" + in.ScenarioID,
					"entity_type": "purchase_order",
					"entity_id":   "PO-1",
					"status":      "PAID",
					"approver":    in.Approver,
				},
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "APR-"},
			},
		},
	}
}

func procurementQuoteSteps(in stepInputs) []workflow.Step {
	return []workflow.Step{
		{
			StepID:      "read_browser",
			Description: "Open procurement catalog context.",
			Tool:        "browser.read",
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "title", Contains: ""},
			},
		},
		{
			StepID:      "search_docs",
			Description: "Search policy docs for procurement guidance.",
			Tool:        "docs.search",
			Args:        map[string]any{"query": "policy"},
		},
		{
			StepID:      "request_quote",
			Description: "Send quote request email to the assigned vendor contact.",
			Tool:        "mail.compose",
			Args: map[string]any{
				"to":   in.QuoteTo,
				"subj": in.OrgName + " procurement quote request",
				"body_text": fmt.Sprintf(
					"Please share quote and ETA for laptop batch (%s). Include total amount and delivery timeline.",
					in.ScenarioID),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "id", Contains: "m"},
			},
		},
		{
			StepID:      "post_approval",
			Description: "Post approval request in procurement Slack channel.",
			Tool:        "slack.send_message",
			Args: map[string]any{
				"channel": "#procurement",
				"text": fmt.Sprintf(
					"Request approval for %s. Budget $%d. Evidence reviewed in browser/docs.",
					in.ScenarioID, in.Budget),
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ts", Contains: ""},
			},
		},
		{
			StepID:      "create_ticket",
			Description: "Create ticket with workflow completion note.",
			Tool:        "tickets.create",
			Args: map[string]any{
				"title":       in.ScenarioID + " execution summary",
				"description": fmt.Sprintf("%s executed: quote requested and approval posted.", in.ScenarioID),
				"assignee":    "agent",
			},
			Expect: []workflow.Assertion{
				{Kind: "result_contains", Field: "ticket_id", Contains: "TCK-"},
			},
		},
	}
}

func familyFailurePaths(family string) []workflow.FailurePath {
	switch family {
	case "db_audit":
		return []workflow.FailurePath{{
			Name:          "audit_write_retry",
			TriggerStep:   "write_audit",
			RecoverySteps: []string{"post_approval"},
			Notes:         "If DB write fails, keep approval thread updated.",
		}}
	case "sales_pipeline":
		return []workflow.FailurePath{{
			Name:          "crm_activity_retry",
			TriggerStep:   "log_activity",
			RecoverySteps: []string{"post_approval"},
			Notes:         "If CRM logging fails, continue with approval channel artifacts.",
		}}
	case "calendar_review":
		return []workflow.FailurePath{{
			Name:          "calendar_recover",
			TriggerStep:   "schedule_review",
			RecoverySteps: []string{"mail_review_context", "announce_channel"},
			Notes:         "If event creation fails, preserve approval context over mail/slack.",
		}}
	case "risk_escalation":
		return []workflow.FailurePath{{
			Name:          "escalation_continue",
			TriggerStep:   "log_crm_risk",
			RecoverySteps: []string{"mail_escalation", "post_approval"},
			Notes:         "Escalate even if CRM activity logging is unavailable.",
		}}
	case "identity_access_review":
		return []workflow.FailurePath{{
			Name:          "identity_assign_retry",
			TriggerStep:   "assign_group",
			RecoverySteps: []string{"approve_request", "announce_access"},
			Notes:         "If identity assignment fails, continue request progression with explicit comment.",
		}}
	case "procure_to_pay":
		return []workflow.FailurePath{{
			Name:          "three_way_mismatch_recovery",
			TriggerStep:   "match_three_way",
			RecoverySteps: []string{"write_audit"},
			Notes:         "Persist mismatch details to audit table for AP investigation.",
		}}
	}
	return []workflow.FailurePath{{
		Name:          "ticket_recover",
		TriggerStep:   "create_ticket",
		RecoverySteps: []string{"post_approval"},
		Notes:         "Proceed if ticket service is unavailable.",
	}}
}
