package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/codes"

	"goa.design/vei/apitypes"
	"goa.design/vei/telemetry"
)

// receiptRingSize bounds the in-memory receipt ring.
const receiptRingSize = 200

// Runtime dispatches classified tool calls through the policy gate and the
// adapter triplet for the owning service, recording a redacted receipt for
// every attempt including denials.
type Runtime struct {
	mode         Mode
	adapters     map[Service]*Triplet
	gate         PolicyGate
	receiptsPath string
	tel          telemetry.Sink
	seq          int
	receipts     []Receipt
}

// NewRuntime builds a runtime from per-service handler tables. A nil gate
// falls back to the environment-configured default. An empty receiptsPath
// disables the JSONL flush. A zero sink discards telemetry.
func NewRuntime(mode Mode, services map[Service]map[string]Handler, gate PolicyGate, receiptsPath string, tel telemetry.Sink) *Runtime {
	if gate == nil {
		gate = GateFromEnv()
	}
	if tel.Logger == nil {
		tel = telemetry.Noop()
	}
	adapters := make(map[Service]*Triplet, len(services))
	for service, handlers := range services {
		adapters[service] = NewTriplet(NewSimAdapter(service, handlers, canonicalFor(service)))
	}
	return &Runtime{
		mode:         mode,
		adapters:     adapters,
		gate:         gate,
		receiptsPath: receiptsPath,
		tel:          tel,
	}
}

// Mode reports the runtime's adapter mode.
func (r *Runtime) Mode() Mode { return r.mode }

// ManagedTool reports whether the tool routes through this runtime.
func (r *Runtime) ManagedTool(tool string) bool {
	route, ok := ToolRoutes[tool]
	if !ok {
		return false
	}
	_, ok = r.adapters[route.Service]
	return ok
}

// LastReceipt returns the most recent receipt as a loose map, or nil.
func (r *Runtime) LastReceipt() map[string]any {
	if len(r.receipts) == 0 {
		return nil
	}
	return r.receipts[len(r.receipts)-1].Map()
}

// Receipts returns up to n most recent receipts, oldest first.
func (r *Runtime) Receipts(n int) []map[string]any {
	if n <= 0 || n > len(r.receipts) {
		n = len(r.receipts)
	}
	out := make([]map[string]any, 0, n)
	for _, receipt := range r.receipts[len(r.receipts)-n:] {
		out = append(out, receipt.Map())
	}
	return out
}

// InvokeTool gates and executes one managed tool call at the given bus time.
// Denials and adapter failures surface as errors after their receipt is
// recorded.
func (r *Runtime) InvokeTool(tool string, args map[string]any, timeMS int64) (any, error) {
	route, ok := ToolRoutes[tool]
	if !ok {
		return nil, apitypes.Errorf("unknown_tool", "unsupported connector tool: %s", tool)
	}
	triplet, ok := r.adapters[route.Service]
	if !ok {
		return nil, apitypes.Errorf("service_unavailable", "no adapter registered for service: %s", route.Service)
	}
	if args == nil {
		args = map[string]any{}
	}
	r.seq++
	req := Request{
		RequestID: fmt.Sprintf("%s-%06d", route.Service, r.seq),
		Service:   route.Service,
		Operation: route.Operation,
		Class:     route.Class,
		Payload:   args,
		Actor:     "agent",
		Metadata:  map[string]any{},
	}

	ctx := context.Background()
	_, span := r.tel.Tracer.Start(ctx, fmt.Sprintf("connector.%s.%s", route.Service, route.Operation))
	defer span.End()

	decision := r.gate.Evaluate(req, r.mode)
	switch decision.Action {
	case ActionDeny:
		r.record(req, decision, nil, timeMS)
		r.tel.Logger.Warn(ctx, "connector call denied", "tool", tool, "reason", decision.Reason)
		span.SetStatus(codes.Error, "policy.denied")
		return nil, apitypes.NewError("policy.denied", reasonOr(decision.Reason, "operation denied by policy gate")).
			WithDetail("tool", tool)
	case ActionRequireApproval:
		r.record(req, decision, nil, timeMS)
		r.tel.Logger.Warn(ctx, "connector call held for approval", "tool", tool, "reason", decision.Reason)
		span.SetStatus(codes.Error, "policy.approval_required")
		return nil, apitypes.NewError("policy.approval_required", reasonOr(decision.Reason, "operation requires human approval")).
			WithDetail("tool", tool)
	}

	result := triplet.ForMode(r.mode).Execute(req)
	r.record(req, decision, &result, timeMS)
	r.tel.Metrics.IncCounter("vei.connector_calls", 1,
		"service", string(route.Service), "policy_action", string(decision.Action))
	if !result.OK {
		err := result.Err
		if err == nil {
			err = apitypes.Errorf("connector.failed", "adapter call failed for %s", tool)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, apitypes.ErrorCode(err))
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return result.Data, nil
}

func (r *Runtime) record(req Request, decision Decision, result *Result, timeMS int64) {
	receipt := Receipt{
		RequestID:      req.RequestID,
		Mode:           r.mode,
		Service:        req.Service,
		Operation:      req.Operation,
		Class:          req.Class,
		PolicyAction:   decision.Action,
		OK:             true,
		StatusCode:     200,
		RequestPayload: RedactMap(req.Payload),
		ResponsePayload: RedactMap(map[string]any{
			"policy": string(decision.Action),
		}),
		TimeMS:   timeMS,
		Metadata: map[string]any{"policy_reason": decision.Reason},
	}
	if result != nil {
		receipt.OK = result.OK
		receipt.StatusCode = result.StatusCode
		receipt.LatencyMS = result.LatencyMS
		if result.Raw != nil {
			receipt.ResponsePayload = RedactMap(result.Raw)
		} else {
			receipt.ResponsePayload = map[string]any{}
		}
	}
	r.receipts = append(r.receipts, receipt)
	if len(r.receipts) > receiptRingSize {
		r.receipts = r.receipts[len(r.receipts)-receiptRingSize:]
	}
	r.flush(receipt)
}

// flush appends the receipt as one JSON line; map keys marshal sorted.
func (r *Runtime) flush(receipt Receipt) {
	if r.receiptsPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.receiptsPath), 0o755); err != nil {
		return
	}
	line, err := json.Marshal(receipt.Map())
	if err != nil {
		return
	}
	f, err := os.OpenFile(r.receiptsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(line, '\n'))
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}
