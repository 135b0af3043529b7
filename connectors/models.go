// Package connectors wraps each service twin in a sim/replay/live adapter
// triplet behind a policy gate. Every invocation is classified by operation
// class, gated, executed, and recorded as a redacted receipt.
package connectors

// Mode selects which adapter of a triplet serves a request.
type Mode string

const (
	// ModeSim executes against the in-process twin.
	ModeSim Mode = "sim"
	// ModeReplay memoizes sim responses keyed by canonical request.
	ModeReplay Mode = "replay"
	// ModeLive is the live shell; it delegates to sim until a real
	// backend is wired in, stamping live_backend metadata.
	ModeLive Mode = "live"
)

// ParseMode normalizes a mode string, defaulting to sim.
func ParseMode(raw string) Mode {
	switch Mode(raw) {
	case ModeReplay:
		return ModeReplay
	case ModeLive:
		return ModeLive
	}
	return ModeSim
}

// OperationClass buckets operations by write safety for policy decisions.
type OperationClass string

const (
	// ClassRead never mutates twin state.
	ClassRead OperationClass = "read"
	// ClassWriteSafe mutates state reversibly.
	ClassWriteSafe OperationClass = "write_safe"
	// ClassWriteRisky mutates state in ways that are hard to undo.
	ClassWriteRisky OperationClass = "write_risky"
)

// Service names the connector-managed backends.
type Service string

const (
	ServiceSlack       Service = "slack"
	ServiceMail        Service = "mail"
	ServiceCalendar    Service = "calendar"
	ServiceDocs        Service = "docs"
	ServiceTickets     Service = "tickets"
	ServiceDB          Service = "db"
	ServiceERP         Service = "erp"
	ServiceCRM         Service = "crm"
	ServiceOkta        Service = "okta"
	ServiceServiceDesk Service = "servicedesk"
)

// PolicyAction is the gate verdict for a request.
type PolicyAction string

const (
	ActionAllow           PolicyAction = "allow"
	ActionDeny            PolicyAction = "deny"
	ActionRequireApproval PolicyAction = "require_approval"
)

type (
	// Request is one classified connector invocation.
	Request struct {
		RequestID string
		Service   Service
		Operation string
		Class     OperationClass
		Payload   map[string]any
		Actor     string
		Metadata  map[string]any
	}

	// Decision is the gate verdict with its reason.
	Decision struct {
		Action   PolicyAction
		Reason   string
		Metadata map[string]any
	}

	// Result is the adapter outcome before receipt recording.
	Result struct {
		OK         bool
		StatusCode int
		Data       any
		Raw        map[string]any
		Err        error
		LatencyMS  int64
		Metadata   map[string]any
	}

	// Receipt is the redacted append-once record of a gated invocation.
	Receipt struct {
		RequestID       string
		Mode            Mode
		Service         Service
		Operation       string
		Class           OperationClass
		PolicyAction    PolicyAction
		OK              bool
		StatusCode      int
		RequestPayload  map[string]any
		ResponsePayload map[string]any
		LatencyMS       int64
		TimeMS          int64
		Metadata        map[string]any
	}

	// Handler executes one twin operation from loose JSON-shaped args.
	Handler func(args map[string]any) (any, error)
)

// Map renders the receipt as a loose map for snapshots and JSONL flushes.
func (r Receipt) Map() map[string]any {
	return map[string]any{
		"request_id":       r.RequestID,
		"mode":             string(r.Mode),
		"service":          string(r.Service),
		"operation":        r.Operation,
		"operation_class":  string(r.Class),
		"policy_action":    string(r.PolicyAction),
		"ok":               r.OK,
		"status_code":      r.StatusCode,
		"request_payload":  r.RequestPayload,
		"response_payload": r.ResponsePayload,
		"latency_ms":       r.LatencyMS,
		"time_ms":          r.TimeMS,
		"metadata":         r.Metadata,
	}
}
