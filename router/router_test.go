package router

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"goa.design/vei/apitypes"
	"goa.design/vei/telemetry"
)

func newTestRouter(t *testing.T, seed int64) *Router {
	t.Helper()
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce")
	return New(Config{Seed: seed})
}

type echoTarget struct{ delivered int }

func (e *echoTarget) Deliver(payload map[string]any) (map[string]any, error) {
	e.delivered++
	return map[string]any{"ok": true}, nil
}

func TestCallAndStepAdvancesClockAndTraces(t *testing.T) {
	r := newTestRouter(t, 7)
	require.Equal(t, int64(0), r.Bus.ClockMS())
	head := r.Trace.Head()

	result, err := r.CallAndStep("browser.read", nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Greater(t, r.Bus.ClockMS(), int64(0))
	require.Equal(t, 1, r.Trace.Len())
	require.NotEqual(t, head, r.Trace.Head())

	records := r.Trace.Tail(1)
	require.Len(t, records, 1)
	require.Equal(t, "call", records[0]["type"])
	require.Equal(t, "browser.read", records[0]["tool"])
	require.Equal(t, int64(0), records[0]["time_ms"])
	require.Greater(t, records[0]["latency_ms"].(int64), int64(0))
}

func TestCallAndStepUnknownTool(t *testing.T) {
	r := newTestRouter(t, 7)
	_, err := r.CallAndStep("mail.delete_everything", nil)
	require.Equal(t, "unknown_tool", apitypes.ErrorCode(err))
	require.Equal(t, int64(0), r.Bus.ClockMS())
	require.Equal(t, 0, r.Trace.Len())
}

func TestActAndObserveReturnsResultAndObservation(t *testing.T) {
	r := newTestRouter(t, 7)
	out, err := r.ActAndObserve("browser.read", nil)
	require.NoError(t, err)
	require.Contains(t, out, "result")

	obs, ok := out["observation"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "browser", obs["focus"])
	require.Contains(t, obs, "summary")
	require.Contains(t, obs, "pending_events")
	menu, ok := obs["action_menu"].([]map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, menu)
	for _, item := range menu {
		require.Contains(t, item, "tool")
		require.Contains(t, item, "args")
	}
}

func TestObserveGroupsFocusFirst(t *testing.T) {
	r := newTestRouter(t, 7)
	obs := r.Observe("slack")
	require.NotEmpty(t, obs.ActionMenu)
	require.True(t, strings.HasPrefix(obs.ActionMenu[0].Tool, "slack."))
	// After the slack group the ordering falls back to alphabetical.
	var rest []string
	seenOther := false
	for _, item := range obs.ActionMenu {
		if !strings.HasPrefix(item.Tool, "slack.") {
			seenOther = true
			rest = append(rest, item.Tool)
		} else {
			require.False(t, seenOther, "slack items must precede the rest")
		}
	}
	_ = rest
}

func TestAliasDispatchResolvesToCanonicalTool(t *testing.T) {
	r := newTestRouter(t, 7)
	lines := []map[string]any{{"item_id": "SKU-1", "qty": 2, "unit_price": 100.0}}

	po, err := r.CallAndStep("erp.create_po", map[string]any{
		"vendor": "MacroCompute", "currency": "USD", "lines": lines,
	})
	require.NoError(t, err)
	poID := po.(map[string]any)["id"].(string)

	inv, err := r.CallAndStep("xero.invoices.create", map[string]any{
		"vendor": "MacroCompute", "po_id": poID, "lines": lines,
	})
	require.NoError(t, err)
	require.Equal(t, "INV-1", inv.(map[string]any)["id"])

	// Trace and receipts both record the canonical tool, not the alias.
	records := r.Trace.Tail(1)
	require.Equal(t, "erp.submit_invoice", records[0]["tool"])
	receipt := r.Connectors.LastReceipt()
	require.Equal(t, "erp", receipt["service"])
	require.Equal(t, "submit_invoice", receipt["operation"])
}

func TestAliasSpecInheritsBase(t *testing.T) {
	r := newTestRouter(t, 7)
	alias, ok := r.Registry.Get("xero.payments.create")
	require.True(t, ok)
	base, ok := r.Registry.Get("erp.post_payment")
	require.True(t, ok)
	require.Equal(t, "Alias -> erp.post_payment. "+base.Description, alias.Description)
	require.Equal(t, base.DefaultLatencyMS, alias.DefaultLatencyMS)
	require.Equal(t, base.SideEffects, alias.SideEffects)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := newTestRouter(t, 7)
	err := r.Registry.Register(ToolSpec{Name: "browser.read", Description: "dup"})
	require.Equal(t, "registry.duplicate", apitypes.ErrorCode(err))
}

func TestSearchToolsRanking(t *testing.T) {
	r := newTestRouter(t, 7)
	hits := r.SearchTools("erp.submit", 5)
	require.NotEmpty(t, hits)
	require.Equal(t, "erp.submit_invoice", hits[0]["name"])

	hits = r.SearchTools("invoice", 10)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		name := hit["name"].(string)
		desc := hit["description"].(string)
		require.True(t,
			strings.Contains(name, "invoice") || strings.Contains(strings.ToLower(desc), "invoice"),
			"hit %s does not mention invoice", name)
	}
	require.Nil(t, r.SearchTools("anything", 0))
}

type recordedSpan struct {
	name   string
	status codes.Code
	detail string
	errs   int
	ended  bool
}

func (s *recordedSpan) End(...trace.SpanEndOption)               { s.ended = true }
func (s *recordedSpan) AddEvent(string, ...any)                  {}
func (s *recordedSpan) SetStatus(code codes.Code, detail string) { s.status = code; s.detail = detail }
func (s *recordedSpan) RecordError(error, ...trace.EventOption)  { s.errs++ }

type recordingTracer struct{ spans []*recordedSpan }

func (tr *recordingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, telemetry.Span) {
	span := &recordedSpan{name: name}
	tr.spans = append(tr.spans, span)
	return ctx, span
}

func (tr *recordingTracer) Span(context.Context) telemetry.Span {
	if len(tr.spans) == 0 {
		return &recordedSpan{}
	}
	return tr.spans[len(tr.spans)-1]
}

func TestCallAndStepEmitsSpans(t *testing.T) {
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce")
	tracer := &recordingTracer{}
	sink := telemetry.Noop()
	sink.Tracer = tracer
	r := New(Config{Seed: 7, Telemetry: sink})

	_, err := r.CallAndStep("browser.read", nil)
	require.NoError(t, err)
	require.NotEmpty(t, tracer.spans)
	call := tracer.spans[0]
	require.Equal(t, "vei.call", call.name)
	require.Equal(t, codes.Ok, call.status)
	require.True(t, call.ended)

	// Connector-managed tools open a nested runtime span.
	tracer.spans = nil
	_, err = r.CallAndStep("tickets.list", nil)
	require.NoError(t, err)
	var names []string
	for _, span := range tracer.spans {
		names = append(names, span.name)
	}
	require.Contains(t, names, "vei.call")
	require.Contains(t, names, "connector.tickets.list")

	// Faults close the call span with an error status.
	tracer.spans = nil
	r.SetFaultOverride("browser.read", 1.0)
	_, err = r.CallAndStep("browser.read", nil)
	require.Error(t, err)
	fault := tracer.spans[0]
	require.Equal(t, codes.Error, fault.status)
	require.Equal(t, "tool_unavailable", fault.detail)
	require.Equal(t, 1, fault.errs)
	require.True(t, fault.ended)
}

func TestFaultOverrideForcesUnavailable(t *testing.T) {
	r := newTestRouter(t, 7)
	r.SetFaultOverride("browser.read", 1.0)
	_, err := r.CallAndStep("browser.read", nil)
	require.Equal(t, "tool_unavailable", apitypes.ErrorCode(err))
	// Faulted calls are traced with zero latency and do not advance the clock.
	require.Equal(t, int64(0), r.Bus.ClockMS())
	require.Equal(t, 1, r.Trace.Len())

	r.SetFaultOverride("browser.read", 0)
	_, err = r.CallAndStep("browser.read", nil)
	require.NoError(t, err)
}

func TestTickDeliversScheduledEvents(t *testing.T) {
	r := newTestRouter(t, 7)
	target := &echoTarget{}
	r.Bus.RegisterTarget("custom", target)
	r.Bus.Schedule(500, "custom", map[string]any{"kind": "probe"})

	pending := r.Pending()
	require.Equal(t, 1, pending["custom"])
	require.GreaterOrEqual(t, pending["total"], 1)

	out := r.Tick(1000)
	delivered := out["delivered"].(map[string]int)
	require.Equal(t, 1, delivered["custom"])
	require.Equal(t, 1, target.delivered)
	require.Equal(t, 0, r.Pending()["custom"])

	// The delivery lands in the trace as an event record.
	var seen bool
	for _, record := range r.Trace.Tail(0) {
		if record["type"] == "event" && record["target"] == "custom" {
			seen = true
		}
	}
	require.True(t, seen)
}

func TestUnknownBusTargetIsTraced(t *testing.T) {
	r := newTestRouter(t, 7)
	r.Bus.Schedule(100, "nope", map[string]any{})
	r.Tick(500)
	var seen bool
	for _, record := range r.Trace.Tail(0) {
		if record["type"] == "error" && record["code"] == "bus.unknown_target" {
			seen = true
		}
	}
	require.True(t, seen)
}

func TestStateSnapshotShape(t *testing.T) {
	r := newTestRouter(t, 7)
	_, err := r.CallAndStep("browser.read", nil)
	require.NoError(t, err)
	_, err = r.CallAndStep("tickets.list", nil)
	require.NoError(t, err)

	snap := r.StateSnapshot(true, 1, true)
	require.Equal(t, r.Bus.ClockMS(), snap["time_ms"])
	require.Equal(t, r.SessionID(), snap["session_id"])
	require.Equal(t, r.Trace.Head(), snap["state_head"])
	require.Equal(t, 2, snap["trace_len"])

	tail := snap["tool_tail"].([]map[string]any)
	require.Len(t, tail, 1)
	require.Equal(t, "tickets.list", tail[0]["tool"])
	require.Contains(t, snap, "receipts")

	state := snap["state"].(map[string]any)
	require.Contains(t, state, "browser")
	require.Contains(t, state, "pending")
}

func TestResetRebuildsSession(t *testing.T) {
	r := newTestRouter(t, 7)
	_, err := r.CallAndStep("browser.read", nil)
	require.NoError(t, err)

	fresh := r.Reset(99)
	require.Equal(t, int64(0), fresh.Bus.ClockMS())
	require.Equal(t, 0, fresh.Trace.Len())
	require.NotEqual(t, r.SessionID(), fresh.SessionID())
}

func TestSameSeedProducesSameTrace(t *testing.T) {
	run := func() (string, int64) {
		r := newTestRouter(t, 11)
		_, err := r.CallAndStep("browser.read", nil)
		require.NoError(t, err)
		_, err = r.CallAndStep("erp.create_po", map[string]any{
			"vendor": "Northwind",
			"lines":  []map[string]any{{"item_id": "SKU-9", "qty": 1, "unit_price": 42.5}},
		})
		require.NoError(t, err)
		_, err = r.CallAndStep("slack.list_channels", nil)
		require.NoError(t, err)
		return r.Trace.Head(), r.Bus.ClockMS()
	}
	head1, clock1 := run()
	head2, clock2 := run()
	require.Equal(t, head1, head2)
	require.Equal(t, clock1, clock2)
}

func TestSessionIDDeterministicPerSeed(t *testing.T) {
	a := newTestRouter(t, 5)
	b := newTestRouter(t, 5)
	c := newTestRouter(t, 6)
	require.Equal(t, a.SessionID(), b.SessionID())
	require.NotEqual(t, a.SessionID(), c.SessionID())
}

func TestOktaCallsProduceReceipts(t *testing.T) {
	r := newTestRouter(t, 7)
	result, err := r.CallAndStep("okta.list_users", nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	receipt := r.Connectors.LastReceipt()
	require.NotNil(t, receipt)
	require.Equal(t, "okta", receipt["service"])
	require.Equal(t, "list_users", receipt["operation"])
	require.Equal(t, "allow", receipt["policy_action"])
}

func TestTraceFlushWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot")
	r := New(Config{Seed: 3, ArtifactsDir: dir})

	_, err := r.CallAndStep("browser.read", nil)
	require.NoError(t, err)
	require.NoError(t, r.Trace.Flush())

	raw, err := os.ReadFile(filepath.Join(dir, "trace.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], `"tool":"browser.read"`)
}

func TestHelpPayload(t *testing.T) {
	r := newTestRouter(t, 7)
	help := r.HelpPayload()
	require.Contains(t, help["reserved"].([]string), "vei.observe")
	require.Contains(t, help["tools"].([]string), "mail.compose")
	require.Equal(t, "sim", help["connector_mode"])
}
