// Package score grades a recorded session trace: subgoal completion, policy
// findings over the call stream, and an overall success verdict under the
// email or full mode.
package score

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"goa.design/vei/apitypes"
)

type (
	// Finding is one policy observation over the trace.
	Finding struct {
		// Code is the machine-readable finding code.
		Code string `json:"code"`
		// Message explains the finding.
		Message string `json:"message"`
		// Severity is info, warning or error.
		Severity string `json:"severity"`
		// Tool names the offending tool when one applies.
		Tool string `json:"tool,omitempty"`
		// TimeMS is the trace clock at detection.
		TimeMS int64 `json:"time_ms"`
		// Metadata carries finding-specific context.
		Metadata map[string]any `json:"metadata"`
	}

	// Policy aggregates the findings with severity counts.
	Policy struct {
		Findings     []Finding `json:"findings"`
		WarningCount int       `json:"warning_count"`
		ErrorCount   int       `json:"error_count"`
	}

	// Costs sums the run's effort.
	Costs struct {
		// Actions is the number of tool calls.
		Actions int `json:"actions"`
		// TimeMS is the final trace clock.
		TimeMS int64 `json:"time_ms"`
	}

	// Result is the full score report.
	Result struct {
		// Success is the verdict under the selected mode.
		Success bool `json:"success"`
		// Subgoals maps each subgoal name to 0 or 1.
		Subgoals map[string]int `json:"subgoals"`
		// Costs sums actions and elapsed time.
		Costs Costs `json:"costs"`
		// ProvenanceOK reports trace integrity.
		ProvenanceOK bool `json:"provenance_ok"`
		// Policy lists the findings.
		Policy Policy `json:"policy"`
		// Usage counts calls per tool.
		Usage map[string]int `json:"usage"`
		// SuccessEmailOnly is the email-mode verdict.
		SuccessEmailOnly bool `json:"success_email_only"`
		// SuccessFullFlow is the full-mode verdict.
		SuccessFullFlow bool `json:"success_full_flow"`
	}
)

var (
	amountRE = regexp.MustCompile(`(?i)(?:\$\s*\d+(?:,\d{3})*(?:\.\d+)?|(?:usd|dollars?)\s*\d+(?:,\d{3})*(?:\.\d+)?|\d+(?:,\d{3})*(?:\.\d+)?\s*(?:usd|dollars?)|(?:budget|amount)\s*(?:is|=|:)?\s*\d+(?:,\d{3})*(?:\.\d+)?)`)

	etaRE = regexp.MustCompile(`(?i)(?:\beta|\bdelivery|\barriv(?:e|al)\b)[:\s-]*(?:within\s*|approx\.?\s*|about\s*)?\d+(?:\s*-\s*\d+)?\s*(?:business\s*)?(?:day|days|hour|hours|week|weeks)\b`)
)

func hasAmount(text string) bool { return amountRE.MatchString(text) }

func hasETA(text string) bool { return etaRE.MatchString(text) }

func approvalSignal(text string) bool {
	lowered := strings.ToLower(text)
	return strings.Contains(lowered, "approve") ||
		strings.Contains(lowered, "approved") ||
		strings.Contains(lowered, "approval")
}

// Compute reads trace.jsonl from the artifacts directory and scores it.
func Compute(artifactsDir, successMode string) (Result, error) {
	path := filepath.Join(artifactsDir, "trace.jsonl")
	f, err := os.Open(path)
	if err != nil {
		return Result{}, apitypes.Errorf("score.trace_missing", "no trace.jsonl in artifacts dir: %s", artifactsDir)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return Result{}, apitypes.Errorf("score.trace_corrupt", "parse trace line: %v", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return Result{}, apitypes.Errorf("score.trace_corrupt", "read trace: %v", err)
	}
	return ComputeFromRecords(records, successMode), nil
}

// ComputeFromRecords scores an in-memory trace. Records use the trace wire
// shape: call records with tool/args/response, event records with
// target/payload.
func ComputeFromRecords(records []map[string]any, successMode string) Result {
	var (
		findings           []Finding
		callCount          int
		maxTimeMS          int64
		toolCounts         = map[string]int{}
		slackEventTexts    []string
		docLogged          bool
		ticketUpdated      bool
		crmLogged          bool
		approvalWithAmount bool
		emailParsed        bool
		citations          bool
		emailSent          bool
		vendorReplyMS      int64 = -1
		crmLogMS           int64 = -1
	)

	addFinding := func(code, message, severity, tool string, timeMS int64, metadata map[string]any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		findings = append(findings, Finding{
			Code: code, Message: message, Severity: severity,
			Tool: tool, TimeMS: timeMS, Metadata: metadata,
		})
	}

	for _, rec := range records {
		timeMS := asInt64(rec["time_ms"])
		if timeMS > maxTimeMS {
			maxTimeMS = timeMS
		}
		switch rec["type"] {
		case "call":
			callCount++
			tool, _ := rec["tool"].(string)
			args, _ := rec["args"].(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			toolCounts[tool]++
			count := toolCounts[tool]
			if count == 5 || count == 10 {
				addFinding("usage.repetition",
					fmt.Sprintf("Tool %q invoked %d times in run", tool, count),
					"info", tool, timeMS, map[string]any{"count": count})
			}
			switch tool {
			case "browser.read":
				citations = true
			case "slack.send_message":
				text, _ := args["text"].(string)
				switch {
				case approvalSignal(text) && hasAmount(text):
					approvalWithAmount = true
				case approvalSignal(text):
					addFinding("slack.approval_missing_amount",
						"Approval message lacks budget amount",
						"warning", tool, timeMS, map[string]any{"text": text})
				}
			case "mail.compose":
				emailSent = true
				if count == 3 || count == 5 {
					addFinding("mail.outbound_volume",
						"Multiple outbound emails have been sent in this session",
						"info", tool, timeMS, map[string]any{"count": count})
				}
			case "docs.create", "docs.update":
				docLogged = true
				title, _ := args["title"].(string)
				body, _ := args["body"].(string)
				docText := strings.TrimSpace(title + " " + body)
				lowered := strings.ToLower(docText)
				if docText != "" && !hasAmount(docText) &&
					!strings.Contains(lowered, "quote") && !strings.Contains(lowered, "macrobook") {
					addFinding("docs.missing_quote_details",
						"Quote document created/updated without pricing context",
						"warning", tool, timeMS,
						map[string]any{"title": title, "doc_id": args["doc_id"]})
				}
			case "tickets.update", "tickets.transition":
				ticketUpdated = true
				ticketID, _ := args["ticket_id"].(string)
				if ticketID == "" {
					addFinding("tickets.missing_id",
						"Ticket update missing ticket_id",
						"error", tool, timeMS, nil)
				}
				if tool == "tickets.update" {
					desc, _ := args["description"].(string)
					assignee, _ := args["assignee"].(string)
					if desc == "" && assignee == "" {
						addFinding("tickets.empty_update",
							"tickets.update invoked without description or assignee payload",
							"warning", tool, timeMS, map[string]any{"ticket_id": ticketID})
					}
				}
			case "crm.log_activity":
				crmLogged = true
				crmLogMS = timeMS
				note, _ := args["note"].(string)
				if note == "" {
					addFinding("crm.note_missing_body",
						"CRM note logged without content",
						"error", tool, timeMS, nil)
					break
				}
				if !hasAmount(note) {
					addFinding("crm.note_missing_amount",
						"CRM note lacks pricing detail",
						"warning", tool, timeMS, map[string]any{"note": note})
				}
				if !hasETA(note) {
					addFinding("crm.note_missing_eta",
						"CRM note missing ETA or delivery commitment",
						"warning", tool, timeMS, map[string]any{"note": note})
				}
			case "crm.associate_contact_company", "crm.create_contact", "crm.create_company":
				if len(args) == 0 {
					addFinding("crm.payload_missing",
						fmt.Sprintf("%s invoked without payload", tool),
						"warning", tool, timeMS, nil)
				}
			}
			if tool == "mail.open" || tool == "mail.list" {
				for _, text := range extractTexts(rec["response"]) {
					if hasAmount(text) && hasETA(text) {
						emailParsed = true
						if vendorReplyMS < 0 {
							vendorReplyMS = timeMS
						}
						break
					}
				}
			}
		case "event":
			payload, _ := rec["payload"].(map[string]any)
			switch rec["target"] {
			case "slack":
				if text, ok := payload["text"].(string); ok {
					slackEventTexts = append(slackEventTexts, text)
				}
			case "mail":
				for _, text := range extractTexts(payload) {
					if hasAmount(text) && hasETA(text) {
						emailParsed = true
						if vendorReplyMS < 0 {
							vendorReplyMS = timeMS
						}
						break
					}
				}
			}
		}
	}

	approval := false
	for _, text := range slackEventTexts {
		if strings.Contains(text, ":white_check_mark:") ||
			strings.Contains(strings.ToLower(text), "approved") {
			approval = true
			break
		}
	}

	subgoals := map[string]int{
		"citations":            boolBit(citations),
		"approval":             boolBit(approval),
		"approval_with_amount": boolBit(approvalWithAmount),
		"email_sent":           boolBit(emailSent),
		"email_parsed":         boolBit(emailParsed),
		"doc_logged":           boolBit(docLogged),
		"ticket_updated":       boolBit(ticketUpdated),
		"crm_logged":           boolBit(crmLogged),
	}

	successEmail := emailParsed
	successFull := true
	for _, v := range subgoals {
		if v == 0 {
			successFull = false
		}
	}
	mode := strings.ToLower(strings.TrimSpace(successMode))
	if mode != "full" {
		mode = "email"
	}
	success := successEmail
	if mode == "full" {
		success = successFull
	}

	if !docLogged {
		addFinding("docs.quote_missing",
			"No docs.create/docs.update call observed; quote was not captured in Docs",
			"warning", "", maxTimeMS, nil)
	}
	if !ticketUpdated {
		addFinding("tickets.update_missing",
			"No tickets.update/transition call observed; tickets were left stale",
			"warning", "", maxTimeMS, nil)
	}
	if vendorReplyMS >= 0 {
		if crmLogMS < 0 {
			addFinding("crm.note_absent",
				"Vendor quote arrived but no CRM log was recorded",
				"error", "", maxTimeMS, map[string]any{"vendor_reply_ms": vendorReplyMS})
		} else if latency := crmLogMS - vendorReplyMS; latency > 60000 {
			addFinding("sla.crm_followup_latency",
				fmt.Sprintf("CRM note logged after %.1fs (>60s SLA)", float64(latency)/1000),
				"warning", "crm.log_activity", crmLogMS, map[string]any{"latency_ms": latency})
		}
	}

	policy := Policy{Findings: findings}
	if policy.Findings == nil {
		policy.Findings = []Finding{}
	}
	for _, finding := range findings {
		switch finding.Severity {
		case "warning":
			policy.WarningCount++
		case "error":
			policy.ErrorCount++
		}
	}

	return Result{
		Success:          success,
		Subgoals:         subgoals,
		Costs:            Costs{Actions: callCount, TimeMS: maxTimeMS},
		ProvenanceOK:     true,
		Policy:           policy,
		Usage:            toolCounts,
		SuccessEmailOnly: successEmail,
		SuccessFullFlow:  successFull,
	}
}

// extractTexts pulls candidate prose out of nested payloads: direct text
// fields plus common container keys, recursively.
func extractTexts(payload any) []string {
	switch value := payload.(type) {
	case string:
		return []string{value}
	case []any:
		var out []string
		for _, item := range value {
			out = append(out, extractTexts(item)...)
		}
		return out
	case []map[string]any:
		var out []string
		for _, item := range value {
			out = append(out, extractTexts(item)...)
		}
		return out
	case map[string]any:
		var out []string
		for _, key := range []string{"body_text", "body", "text", "excerpt", "note", "subj", "subject"} {
			if text, ok := value[key].(string); ok && strings.TrimSpace(text) != "" {
				out = append(out, text)
			}
		}
		for _, key := range []string{"result", "rows", "items", "messages", "value", "payload"} {
			if nested, ok := value[key]; ok {
				out = append(out, extractTexts(nested)...)
			}
		}
		if headers, ok := value["headers"].(map[string]any); ok {
			out = append(out, extractTexts(headers)...)
		}
		return out
	}
	return nil
}

func asInt64(v any) int64 {
	switch value := v.(type) {
	case int:
		return int64(value)
	case int64:
		return value
	case float64:
		return int64(value)
	}
	return 0
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}
