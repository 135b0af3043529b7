package score

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/vei/apitypes"
	"goa.design/vei/router"
)

func call(timeMS int64, tool string, args map[string]any, response any) map[string]any {
	return map[string]any{
		"type": "call", "time_ms": timeMS, "tool": tool,
		"args": args, "response": response, "latency_ms": int64(150),
	}
}

func event(timeMS int64, target string, payload map[string]any) map[string]any {
	return map[string]any{
		"type": "event", "time_ms": timeMS, "target": target, "payload": payload,
	}
}

func TestComputeMissingTraceErrors(t *testing.T) {
	_, err := Compute(t.TempDir(), "email")
	require.Error(t, err)
	require.Equal(t, "score.trace_missing", apitypes.ErrorCode(err))
}

func TestComputeFromRecordsFullFlow(t *testing.T) {
	records := []map[string]any{
		call(0, "browser.read", map[string]any{"node_id": "home"}, map[string]any{"title": "Store"}),
		call(200, "mail.compose", map[string]any{"to": "sales@vendor.example", "subj": "Quote request"}, map[string]any{"id": "m1"}),
		event(1200, "mail", map[string]any{
			"body_text": "Quoted price is $3,200 USD. ETA 3-5 business days.",
		}),
		event(1400, "slack", map[string]any{"text": ":white_check_mark: approved by finance"}),
		call(1600, "slack.send_message", map[string]any{
			"channel": "#procurement", "text": "Approved: budget $3,200 confirmed",
		}, map[string]any{"ts": "1"}),
		call(1800, "docs.create", map[string]any{
			"title": "MacroBook quote", "body": "Final price $3,200, ETA 3-5 days.",
		}, map[string]any{"doc_id": "DOC-1"}),
		call(2000, "tickets.update", map[string]any{
			"ticket_id": "TCK-1", "description": "quote attached",
		}, map[string]any{"ok": true}),
		call(2200, "crm.log_activity", map[string]any{
			"note": "Vendor quoted $3,200, ETA 3-5 business days.",
		}, map[string]any{"ok": true}),
	}

	result := ComputeFromRecords(records, "full")
	require.True(t, result.Success)
	require.True(t, result.SuccessFullFlow)
	require.True(t, result.SuccessEmailOnly)
	for name, v := range result.Subgoals {
		require.Equal(t, 1, v, "subgoal %s", name)
	}
	require.Equal(t, 6, result.Costs.Actions)
	require.Equal(t, int64(2200), result.Costs.TimeMS)
	require.True(t, result.ProvenanceOK)
	require.Zero(t, result.Policy.ErrorCount)
	require.Zero(t, result.Policy.WarningCount)
	require.Equal(t, 1, result.Usage["crm.log_activity"])
}

func TestComputeEmailModeToleratesMissingRecordKeeping(t *testing.T) {
	records := []map[string]any{
		call(500, "mail.open", map[string]any{"id": "m1"}, map[string]any{
			"messages": []any{
				map[string]any{"body_text": "Price: 3200 USD, delivery within 4 days."},
			},
		}),
	}

	result := ComputeFromRecords(records, "email")
	require.True(t, result.Success)
	require.True(t, result.SuccessEmailOnly)
	require.False(t, result.SuccessFullFlow)
	require.Equal(t, 1, result.Subgoals["email_parsed"])
	require.Equal(t, 0, result.Subgoals["crm_logged"])

	codes := findingCodes(result)
	require.Contains(t, codes, "docs.quote_missing")
	require.Contains(t, codes, "tickets.update_missing")
	require.Contains(t, codes, "crm.note_absent")
	require.Equal(t, 1, result.Policy.ErrorCount)
	require.Equal(t, 2, result.Policy.WarningCount)
}

func TestComputeDetectsCRMFollowupLatency(t *testing.T) {
	records := []map[string]any{
		event(1000, "mail", map[string]any{"body_text": "$2,000 quote, ETA 2 days"}),
		call(70000, "crm.log_activity", map[string]any{
			"note": "Quote $2,000, ETA 2 days",
		}, map[string]any{"ok": true}),
		call(70200, "docs.create", map[string]any{"title": "Quote record", "body": "$2,000"}, nil),
		call(70400, "tickets.transition", map[string]any{"ticket_id": "TCK-1", "status": "done"}, nil),
	}

	result := ComputeFromRecords(records, "email")
	var sla *Finding
	for i := range result.Policy.Findings {
		if result.Policy.Findings[i].Code == "sla.crm_followup_latency" {
			sla = &result.Policy.Findings[i]
		}
	}
	require.NotNil(t, sla)
	require.Equal(t, "warning", sla.Severity)
	require.Equal(t, "crm.log_activity", sla.Tool)
	require.Equal(t, int64(69000), sla.Metadata["latency_ms"])
}

func TestComputeFlagsSparseCallPayloads(t *testing.T) {
	records := []map[string]any{
		call(100, "slack.send_message", map[string]any{"text": "please approve this"}, nil),
		call(200, "tickets.update", map[string]any{}, nil),
		call(300, "crm.log_activity", map[string]any{"note": ""}, nil),
		call(400, "docs.create", map[string]any{"title": "meeting notes", "body": ""}, nil),
		call(500, "crm.create_contact", map[string]any{}, nil),
	}

	result := ComputeFromRecords(records, "email")
	codes := findingCodes(result)
	require.Contains(t, codes, "slack.approval_missing_amount")
	require.Contains(t, codes, "tickets.missing_id")
	require.Contains(t, codes, "tickets.empty_update")
	require.Contains(t, codes, "crm.note_missing_body")
	require.Contains(t, codes, "docs.missing_quote_details")
	require.Contains(t, codes, "crm.payload_missing")
	require.Equal(t, 2, result.Policy.ErrorCount)
}

func TestComputeRepetitionAndVolumeFindings(t *testing.T) {
	var records []map[string]any
	for i := 0; i < 5; i++ {
		records = append(records, call(int64(i*100), "browser.read", map[string]any{}, nil))
	}
	for i := 0; i < 3; i++ {
		records = append(records, call(int64(1000+i*100), "mail.compose", map[string]any{"subj": "q"}, nil))
	}

	result := ComputeFromRecords(records, "email")
	require.Equal(t, 5, result.Usage["browser.read"])
	require.Equal(t, 3, result.Usage["mail.compose"])

	var repetition, volume int
	for _, finding := range result.Policy.Findings {
		switch finding.Code {
		case "usage.repetition":
			repetition++
			require.Equal(t, "info", finding.Severity)
			require.Equal(t, 5, finding.Metadata["count"])
		case "mail.outbound_volume":
			volume++
			require.Equal(t, 3, finding.Metadata["count"])
		}
	}
	require.Equal(t, 1, repetition)
	require.Equal(t, 1, volume)
}

func TestAmountAndETADetection(t *testing.T) {
	for _, text := range []string{
		"$3,200", "usd 1999.50", "3200 dollars", "budget is 4000", "amount: 2,500",
	} {
		require.True(t, hasAmount(text), text)
	}
	require.False(t, hasAmount("no numbers that count here"))

	for _, text := range []string{
		"ETA 3-5 business days", "eta: about 2 weeks", "delivery within 4 days", "arrival 1 week",
	} {
		require.True(t, hasETA(text), text)
	}
	require.False(t, hasETA("ships eventually"))
}

func TestComputeScoresRouterArtifacts(t *testing.T) {
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce")
	dir := t.TempDir()

	r := router.New(router.Config{Seed: 42042, ArtifactsDir: dir})
	_, err := r.CallAndStep("browser.read", map[string]any{})
	require.NoError(t, err)
	_, err = r.CallAndStep("mail.compose", map[string]any{
		"to": "sales@macrocompute.example", "subj": "Quote request",
		"body_text": "Please quote 5 MacroBook Pro units.",
	})
	require.NoError(t, err)
	require.NoError(t, r.Trace.Flush())

	result, err := Compute(dir, "email")
	require.NoError(t, err)
	require.Equal(t, 2, result.Costs.Actions)
	require.Equal(t, 1, result.Subgoals["citations"])
	require.Equal(t, 1, result.Subgoals["email_sent"])
	require.True(t, result.ProvenanceOK)
	require.Positive(t, result.Costs.TimeMS)
	require.LessOrEqual(t, result.Costs.TimeMS, r.Bus.ClockMS())
}

func findingCodes(result Result) []string {
	codes := make([]string, 0, len(result.Policy.Findings))
	for _, finding := range result.Policy.Findings {
		codes = append(codes, finding.Code)
	}
	return codes
}
