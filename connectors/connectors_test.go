package connectors

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"goa.design/vei/apitypes"
	"goa.design/vei/telemetry"
)

func TestRedactionMasksSensitiveStrings(t *testing.T) {
	text := "contact sam@macrocompute.example or +1 415-555-0134, key sk_live12345678"
	out := RedactText(text)
	require.Contains(t, out, "[REDACTED_EMAIL]")
	require.Contains(t, out, "[REDACTED_PHONE]")
	require.Contains(t, out, "[REDACTED_KEY]")
	require.NotContains(t, out, "macrocompute.example")

	payload := map[string]any{
		"to":    "ap@vendor.example",
		"lines": []any{map[string]any{"note": "call 212-555-0100"}},
		"qty":   3,
	}
	redacted := RedactMap(payload)
	require.Equal(t, "[REDACTED_EMAIL]", redacted["to"])
	require.Equal(t, 3, redacted["qty"])
	nested := redacted["lines"].([]any)[0].(map[string]any)
	require.Equal(t, "call [REDACTED_PHONE]", nested["note"])
	require.Equal(t, "ap@vendor.example", payload["to"], "input must not be mutated")
}

func TestDefaultPolicyGateDecisions(t *testing.T) {
	gate := &DefaultPolicyGate{}
	read := Request{Service: ServiceTickets, Operation: "list", Class: ClassRead}
	safe := Request{Service: ServiceTickets, Operation: "create", Class: ClassWriteSafe}
	risky := Request{Service: ServiceERP, Operation: "post_payment", Class: ClassWriteRisky}

	require.Equal(t, ActionAllow, gate.Evaluate(risky, ModeSim).Action)
	require.Equal(t, ActionAllow, gate.Evaluate(risky, ModeReplay).Action)
	require.Equal(t, ActionAllow, gate.Evaluate(read, ModeLive).Action)
	require.Equal(t, ActionRequireApproval, gate.Evaluate(safe, ModeLive).Action)
	require.Equal(t, ActionDeny, gate.Evaluate(risky, ModeLive).Action)

	permissive := &DefaultPolicyGate{LiveAllowWriteSafe: true, LiveAllowWriteRisky: true}
	require.Equal(t, ActionAllow, permissive.Evaluate(safe, ModeLive).Action)
	require.Equal(t, ActionAllow, permissive.Evaluate(risky, ModeLive).Action)

	blocked := &DefaultPolicyGate{BlockedOperations: map[string]bool{"tickets.list": true}}
	require.Equal(t, ActionDeny, blocked.Evaluate(read, ModeSim).Action)
}

func TestGateFromEnv(t *testing.T) {
	t.Setenv("VEI_LIVE_ALLOW_WRITE_SAFE", "true")
	t.Setenv("VEI_LIVE_ALLOW_WRITE_RISKY", "")
	t.Setenv("VEI_LIVE_BLOCK_OPS", "erp.post_payment, okta.deactivate_user")
	gate := GateFromEnv()
	require.True(t, gate.LiveAllowWriteSafe)
	require.False(t, gate.LiveAllowWriteRisky)
	require.True(t, gate.BlockedOperations["erp.post_payment"])
	require.True(t, gate.BlockedOperations["okta.deactivate_user"])
}

func newTicketsRuntime(t *testing.T, mode Mode, gate PolicyGate, calls *int) *Runtime {
	t.Helper()
	handlers := map[Service]map[string]Handler{
		ServiceTickets: {
			"get": func(args map[string]any) (any, error) {
				*calls++
				id, _ := args["ticket_id"].(string)
				if id == "" {
					return nil, apitypes.NewError("unknown_ticket", "missing ticket_id")
				}
				return map[string]any{"id": id, "status": "open", "assignee": "it@macrocompute.example"}, nil
			},
			"transition": func(args map[string]any) (any, error) {
				*calls++
				return map[string]any{"id": args["ticket_id"], "status": args["status"]}, nil
			},
		},
	}
	return NewRuntime(mode, handlers, gate, "", telemetry.Noop())
}

func TestRuntimeInvokeRecordsRedactedReceipts(t *testing.T) {
	calls := 0
	rt := newTicketsRuntime(t, ModeSim, &DefaultPolicyGate{}, &calls)

	out, err := rt.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-1"}, 1234)
	require.NoError(t, err)
	require.Equal(t, "TCK-1", out.(map[string]any)["id"])
	require.Equal(t, 1, calls)

	receipt := rt.LastReceipt()
	require.Equal(t, "tickets-000001", receipt["request_id"])
	require.Equal(t, "sim", receipt["mode"])
	require.Equal(t, "read", receipt["operation_class"])
	require.Equal(t, "allow", receipt["policy_action"])
	require.Equal(t, int64(1234), receipt["time_ms"])
	response := receipt["response_payload"].(map[string]any)
	ticket := response["ticket"].(map[string]any)
	require.Equal(t, "[REDACTED_EMAIL]", ticket["assignee"])

	_, err = rt.InvokeTool("tickets.get", nil, 2000)
	require.Equal(t, "unknown_ticket", apitypes.ErrorCode(err))
	failed := rt.LastReceipt()
	require.Equal(t, "tickets-000002", failed["request_id"])
	require.Equal(t, false, failed["ok"])

	_, err = rt.InvokeTool("nosuch.tool", nil, 0)
	require.Equal(t, "unknown_tool", apitypes.ErrorCode(err))
	_, err = rt.InvokeTool("mail.list", nil, 0)
	require.Equal(t, "service_unavailable", apitypes.ErrorCode(err))
}

func TestRuntimePolicyDenialStillWritesReceipt(t *testing.T) {
	calls := 0
	rt := newTicketsRuntime(t, ModeLive, &DefaultPolicyGate{}, &calls)

	_, err := rt.InvokeTool("tickets.transition", map[string]any{"ticket_id": "TCK-1", "status": "closed"}, 10)
	require.Equal(t, "policy.denied", apitypes.ErrorCode(err))
	require.Zero(t, calls, "denied calls must not reach the handler")

	receipt := rt.LastReceipt()
	require.Equal(t, "deny", receipt["policy_action"])
	require.Equal(t, "live risky-write blocked", receipt["metadata"].(map[string]any)["policy_reason"])
}

func TestReplayModeMemoizesByCanonicalRequest(t *testing.T) {
	calls := 0
	rt := newTicketsRuntime(t, ModeReplay, &DefaultPolicyGate{}, &calls)

	first, err := rt.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-1"}, 0)
	require.NoError(t, err)
	second, err := rt.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-1"}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, calls, "identical request replays from memo")
	require.Equal(t, first, second)

	_, err = rt.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-2"}, 0)
	require.NoError(t, err)
	require.Equal(t, 2, calls, "different payload misses the memo")
}

func TestReceiptJSONLFlush(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipts.jsonl")
	calls := 0
	handlers := map[Service]map[string]Handler{
		ServiceTickets: {
			"get": func(args map[string]any) (any, error) {
				calls++
				return map[string]any{"id": args["ticket_id"]}, nil
			},
		},
	}
	rt := NewRuntime(ModeSim, handlers, &DefaultPolicyGate{}, path, telemetry.Noop())

	_, err := rt.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-1"}, 5)
	require.NoError(t, err)
	_, err = rt.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-2"}, 6)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"request_id":"tickets-000001"`)
	require.Contains(t, lines[1], `"request_id":"tickets-000002"`)
}

func TestReceiptRingBounded(t *testing.T) {
	calls := 0
	rt := newTicketsRuntime(t, ModeSim, &DefaultPolicyGate{}, &calls)
	for i := 0; i < receiptRingSize+25; i++ {
		_, err := rt.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-1"}, int64(i))
		require.NoError(t, err)
	}
	receipts := rt.Receipts(0)
	require.Len(t, receipts, receiptRingSize)
	require.Equal(t, "tickets-000225", receipts[len(receipts)-1]["request_id"])
}

type countingMetrics struct{ counters map[string]float64 }

func (m *countingMetrics) IncCounter(name string, value float64, _ ...string) { m.counters[name] += value }
func (m *countingMetrics) RecordTimer(string, time.Duration, ...string)       {}
func (m *countingMetrics) RecordGauge(string, float64, ...string)             {}

func TestRuntimeTelemetryCountsGatedCalls(t *testing.T) {
	metrics := &countingMetrics{counters: map[string]float64{}}
	sink := telemetry.Noop()
	sink.Metrics = metrics
	handlers := map[Service]map[string]Handler{
		ServiceTickets: {"get": func(args map[string]any) (any, error) {
			return map[string]any{"id": args["ticket_id"]}, nil
		}},
	}
	rt := NewRuntime(ModeSim, handlers, &DefaultPolicyGate{}, "", sink)

	_, err := rt.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-1"}, 1)
	require.NoError(t, err)
	require.Equal(t, float64(1), metrics.counters["vei.connector_calls"])

	gate := &DefaultPolicyGate{BlockedOperations: map[string]bool{"tickets.get": true}}
	blocked := NewRuntime(ModeSim, handlers, gate, "", sink)
	_, err = blocked.InvokeTool("tickets.get", map[string]any{"ticket_id": "TCK-1"}, 2)
	require.Equal(t, "policy.denied", apitypes.ErrorCode(err))
	require.Equal(t, float64(1), metrics.counters["vei.connector_calls"], "denied calls are not counted")
}

func TestPolicyGateProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	modes := gen.OneConstOf(ModeSim, ModeReplay, ModeLive)
	classes := gen.OneConstOf(ClassRead, ClassWriteSafe, ClassWriteRisky)

	properties.Property("write safety dominates the verdict", prop.ForAll(
		func(mode Mode, class OperationClass, allowSafe, allowRisky bool) bool {
			gate := &DefaultPolicyGate{
				LiveAllowWriteSafe:  allowSafe,
				LiveAllowWriteRisky: allowRisky,
			}
			req := Request{Service: ServiceTickets, Operation: "create", Class: class}
			decision := gate.Evaluate(req, mode)
			if mode != ModeLive {
				return decision.Action == ActionAllow
			}
			switch class {
			case ClassRead:
				return decision.Action == ActionAllow
			case ClassWriteSafe:
				if allowSafe {
					return decision.Action == ActionAllow
				}
				return decision.Action == ActionRequireApproval
			default:
				if allowRisky {
					return decision.Action == ActionAllow
				}
				return decision.Action == ActionDeny
			}
		},
		modes, classes, gen.Bool(), gen.Bool(),
	))

	properties.Property("blocked operations deny in every mode", prop.ForAll(
		func(mode Mode, class OperationClass) bool {
			gate := &DefaultPolicyGate{
				LiveAllowWriteSafe:  true,
				LiveAllowWriteRisky: true,
				BlockedOperations:   map[string]bool{"tickets.create": true},
			}
			req := Request{Service: ServiceTickets, Operation: "create", Class: class}
			return gate.Evaluate(req, mode).Action == ActionDeny
		},
		modes, classes,
	))

	properties.TestingRun(t)
}
