package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"goa.design/vei/apitypes"
)

type (
	// Adapter executes one classified request against a backend.
	Adapter interface {
		Execute(req Request) Result
	}

	// CanonicalBuilder renders the handler response into the provider-shaped
	// payload stored in receipts and replay memos.
	CanonicalBuilder func(req Request, response any) map[string]any

	// SimAdapter dispatches to in-process twin handlers.
	SimAdapter struct {
		service   Service
		handlers  map[string]Handler
		canonical CanonicalBuilder
	}

	// ReplayAdapter memoizes delegate responses keyed by the canonical
	// request so repeated identical calls are byte-for-byte stable.
	ReplayAdapter struct {
		delegate Adapter
		memo     map[string]Result
	}

	// LiveAdapter is the live shell. It rate-limits and delegates to sim,
	// stamping live_backend metadata until a real backend is attached.
	LiveAdapter struct {
		delegate Adapter
		limiter  *rate.Limiter
	}

	// Triplet groups the three adapters for one service.
	Triplet struct {
		Sim    Adapter
		Replay Adapter
		Live   Adapter
	}
)

// liveRateLimit bounds live-mode calls per service to 10/s with small bursts.
const (
	liveRatePerSec = 10
	liveRateBurst  = 5
)

// NewSimAdapter builds the sim adapter for a service from its handler table.
func NewSimAdapter(service Service, handlers map[string]Handler, canonical CanonicalBuilder) *SimAdapter {
	return &SimAdapter{service: service, handlers: handlers, canonical: canonical}
}

// NewTriplet derives the replay and live adapters from the sim adapter.
func NewTriplet(sim Adapter) *Triplet {
	return &Triplet{
		Sim:    sim,
		Replay: &ReplayAdapter{delegate: sim, memo: make(map[string]Result)},
		Live:   &LiveAdapter{delegate: sim, limiter: rate.NewLimiter(rate.Limit(liveRatePerSec), liveRateBurst)},
	}
}

// ForMode selects the adapter serving the given mode.
func (t *Triplet) ForMode(mode Mode) Adapter {
	switch mode {
	case ModeReplay:
		return t.Replay
	case ModeLive:
		return t.Live
	}
	return t.Sim
}

// Execute dispatches to the named handler and wraps the outcome.
func (a *SimAdapter) Execute(req Request) Result {
	started := time.Now()
	handler, ok := a.handlers[req.Operation]
	if !ok {
		return Result{
			OK:         false,
			StatusCode: 404,
			Err:        apitypes.Errorf("unknown_operation", "unsupported operation for %s: %s", a.service, req.Operation),
			Metadata:   map[string]any{"adapter": "sim"},
		}
	}
	response, err := handler(req.Payload)
	latency := time.Since(started).Milliseconds()
	if err != nil {
		return Result{
			OK:         false,
			StatusCode: 400,
			Err:        err,
			LatencyMS:  latency,
			Metadata:   map[string]any{"adapter": "sim"},
		}
	}
	raw := map[string]any{"ok": true, "result": response}
	if a.canonical != nil {
		raw = a.canonical(req, response)
	}
	return Result{
		OK:         true,
		StatusCode: 200,
		Data:       response,
		Raw:        raw,
		LatencyMS:  latency,
		Metadata:   map[string]any{"adapter": "sim"},
	}
}

// Execute serves memoized results when the canonical request was seen before.
func (a *ReplayAdapter) Execute(req Request) Result {
	key := requestKey(req)
	if cached, ok := a.memo[key]; ok {
		out := cloneResult(cached)
		out.Metadata["adapter"] = "replay"
		out.Metadata["cache_hit"] = true
		return out
	}
	result := a.delegate.Execute(req)
	a.memo[key] = cloneResult(result)
	out := cloneResult(result)
	out.Metadata["adapter"] = "replay"
	out.Metadata["cache_hit"] = false
	return out
}

// Execute waits on the service rate limiter then delegates.
func (a *LiveAdapter) Execute(req Request) Result {
	if err := a.limiter.Wait(context.Background()); err != nil {
		return Result{
			OK:         false,
			StatusCode: 429,
			Err:        apitypes.NewError("rate_limited", "live rate limiter interrupted"),
			Metadata:   map[string]any{"adapter": "live"},
		}
	}
	result := a.delegate.Execute(req)
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["adapter"] = "live"
	result.Metadata["live_backend"] = "simulated"
	if result.Raw == nil {
		result.Raw = map[string]any{}
	}
	result.Raw["live_backend"] = "simulated"
	return result
}

// requestKey canonicalizes the payload with sorted keys so replay memo hits
// are independent of map iteration order.
func requestKey(req Request) string {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	return fmt.Sprintf("%s:%s:%s", req.Service, req.Operation, payload)
}

func cloneResult(r Result) Result {
	out := r
	out.Data = cloneAny(r.Data)
	if r.Raw != nil {
		out.Raw = cloneAny(r.Raw).(map[string]any)
	}
	out.Metadata = make(map[string]any, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		out.Metadata[k] = v
	}
	return out
}

func cloneAny(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneAny(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneAny(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i] = cloneAny(item).(map[string]any)
		}
		return out
	}
	return value
}
