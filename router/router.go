package router

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"goa.design/vei/apitypes"
	"goa.design/vei/bus"
	"goa.design/vei/connectors"
	"goa.design/vei/telemetry"
	"goa.design/vei/twins"
	"goa.design/vei/world"
)

// DefaultSeed is used when no seed is configured.
const DefaultSeed = 42042

type (
	// Config assembles one router session. Zero values fall back to the
	// default scenario, seed, sim connector mode and noop telemetry.
	Config struct {
		// Seed drives the session RNG; zero means DefaultSeed.
		Seed int64
		// ArtifactsDir receives trace.jsonl and receipts.jsonl; empty keeps
		// both in memory.
		ArtifactsDir string
		// Scenario seeds the twins; nil uses world.Default.
		Scenario *world.Scenario
		// ConnectorMode selects sim, replay or live.
		ConnectorMode string
		// ERPErrorRate injects erp validation and payment faults.
		ERPErrorRate float64
		// CRMErrorRate injects crm consent faults.
		CRMErrorRate float64
		// PolicyGate overrides the environment-configured gate.
		PolicyGate connectors.PolicyGate
		// Telemetry receives structured logs and metrics.
		Telemetry telemetry.Sink
	}

	// Router is the session actor: the tool registry, the dispatcher, the
	// twins, the event bus and the trace. It is single-threaded by design;
	// callers serialize access per session.
	Router struct {
		Registry   *Registry
		Bus        *bus.Bus
		Trace      *Trace
		Connectors *connectors.Runtime

		Browser  *twins.Browser
		Mail     *twins.Mail
		Slack    *twins.Slack
		Docs     *twins.Docs
		Calendar *twins.Calendar
		Tickets  *twins.Tickets
		CRM      *twins.CRM
		ERP      *twins.ERP
		DB       *twins.Database
		Identity *twins.Identity
		Desk     *twins.ServiceDesk

		cfg            Config
		scenario       world.Scenario
		sessionID      string
		aliases        map[string]string
		handlers       map[string]connectors.Handler
		providers      []ToolProvider
		faultOverrides map[string]float64
		tel            telemetry.Sink
	}

	// busObserver mirrors bus activity into the trace.
	busObserver struct {
		trace *Trace
		tel   telemetry.Sink
	}
)

// EventDelivered appends an event record for every drained delivery.
func (o busObserver) EventDelivered(ev bus.Event, _ map[string]any, err error) {
	o.trace.AppendEvent(ev.TimeMS, ev.Target, ev.Payload)
	if err != nil {
		o.trace.AppendError(ev.TimeMS, apitypes.ErrorCode(err), map[string]any{"target": ev.Target})
	}
}

// UnknownTarget records the structural failure without failing the schedule.
func (o busObserver) UnknownTarget(ev bus.Event) {
	o.trace.AppendError(ev.TimeMS, "bus.unknown_target", map[string]any{"target": ev.Target})
	o.tel.Logger.Warn(context.Background(), "bus schedule to unknown target", "target", ev.Target)
}

// New assembles a router session: twins seeded from the scenario, the tool
// registry with builtin specs, the okta provider, the connector runtime and
// the configured alias packs.
func New(cfg Config) *Router {
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	if cfg.Telemetry.Logger == nil {
		cfg.Telemetry = telemetry.Noop()
	}
	scenario := world.Default()
	if cfg.Scenario != nil {
		scenario = *cfg.Scenario
	}

	session := bus.New(cfg.Seed)
	r := &Router{
		Registry:       NewRegistry(),
		Bus:            session,
		Trace:          NewTrace(cfg.ArtifactsDir),
		cfg:            cfg,
		scenario:       scenario,
		aliases:        make(map[string]string),
		handlers:       make(map[string]connectors.Handler),
		faultOverrides: make(map[string]float64),
		tel:            cfg.Telemetry,
	}
	// Deterministic session id: the same seed names the same session.
	r.sessionID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("vei-session-%d", cfg.Seed))).String()
	session.SetObserver(busObserver{trace: r.Trace, tel: r.tel})

	r.Browser = twins.NewBrowser(scenario)
	r.Mail = twins.NewMail(scenario, session)
	r.Slack = twins.NewSlack(scenario, session)
	r.Docs = twins.NewDocs(scenario)
	r.Calendar = twins.NewCalendar(scenario)
	r.Tickets = twins.NewTickets(scenario)
	r.CRM = twins.NewCRM(session, cfg.CRMErrorRate)
	r.ERP = twins.NewERP(session, cfg.ERPErrorRate)
	r.DB = twins.NewDatabase(scenario)
	r.Identity = twins.NewIdentity(scenario)
	r.Desk = twins.NewServiceDesk(scenario)

	session.RegisterTarget("browser", r.Browser)
	session.RegisterTarget("mail", r.Mail)
	session.RegisterTarget("slack", r.Slack)
	session.RegisterTarget("docs", r.Docs)
	session.RegisterTarget("calendar", r.Calendar)
	session.RegisterTarget("tickets", r.Tickets)
	session.RegisterTarget("crm", r.CRM)
	session.RegisterTarget("erp", r.ERP)
	session.RegisterTarget("db", r.DB)
	session.RegisterTarget("okta", r.Identity)
	session.RegisterTarget("servicedesk", r.Desk)

	// Scenario distractions are queued up front and surface as the clock
	// passes their due time.
	for _, ev := range scenario.DerailEvents {
		session.Schedule(ev.DtMS, ev.Target, ev.Payload)
	}

	for _, tool := range builtinTools(r) {
		if err := r.Registry.Register(tool.spec); err != nil {
			continue
		}
		r.handlers[tool.spec.Name] = tool.handler
	}
	if err := r.RegisterToolProvider(NewOktaProvider(r.Identity)); err != nil {
		r.tel.Logger.Error(context.Background(), "okta provider registration failed", "err", err)
	}

	receiptsPath := ""
	if cfg.ArtifactsDir != "" {
		receiptsPath = filepath.Join(cfg.ArtifactsDir, "receipts.jsonl")
	}
	r.Connectors = connectors.NewRuntime(
		connectors.ParseMode(cfg.ConnectorMode),
		r.connectorServices(),
		cfg.PolicyGate,
		receiptsPath,
		r.tel,
	)

	r.registerAliasPacks()
	r.tel.Logger.Info(context.Background(), "router session ready",
		"seed", cfg.Seed, "session_id", r.sessionID, "tools", len(r.Registry.order))
	return r
}

// connectorServices groups the dispatch handlers by service for the
// connector runtime, keyed by route operation.
func (r *Router) connectorServices() map[connectors.Service]map[string]connectors.Handler {
	services := make(map[connectors.Service]map[string]connectors.Handler)
	for tool, route := range connectors.ToolRoutes {
		handler := r.handlerFor(tool)
		if handler == nil {
			continue
		}
		if services[route.Service] == nil {
			services[route.Service] = make(map[string]connectors.Handler)
		}
		services[route.Service][route.Operation] = handler
	}
	return services
}

// handlerFor resolves the raw handler for a tool name: the builtin table
// first, then any provider claiming the prefix.
func (r *Router) handlerFor(tool string) connectors.Handler {
	if handler, ok := r.handlers[tool]; ok {
		return handler
	}
	for _, provider := range r.providers {
		if providerHandles(provider, tool) {
			p := provider
			return func(args map[string]any) (any, error) { return p.Call(tool, args) }
		}
	}
	return nil
}

func providerHandles(p ToolProvider, tool string) bool {
	for _, prefix := range p.Prefixes() {
		if strings.HasPrefix(tool, prefix) {
			return true
		}
	}
	return false
}

// SessionID returns the deterministic session identifier derived from the
// seed.
func (r *Router) SessionID() string { return r.sessionID }

// Scenario returns the scenario the session was seeded from.
func (r *Router) Scenario() world.Scenario { return r.scenario }

// RegisterToolProvider registers every spec from the provider and routes
// calls under its prefixes to the provider.
func (r *Router) RegisterToolProvider(p ToolProvider) error {
	for _, spec := range p.Specs() {
		if err := r.Registry.Register(spec); err != nil {
			return err
		}
	}
	r.providers = append(r.providers, p)
	return nil
}

// SetFaultOverride pins a tool's fault probability, overriding its spec.
// Tests use this to force or silence transient faults.
func (r *Router) SetFaultOverride(tool string, probability float64) {
	r.faultOverrides[tool] = probability
}

// CallAndStep dispatches one tool call, appends the trace record, then
// advances the clock by a deterministic jittered latency. Events whose due
// time falls inside the latency window deliver during the advance.
func (r *Router) CallAndStep(tool string, args map[string]any) (any, error) {
	if base, ok := r.aliases[tool]; ok {
		tool = base
	}
	spec, ok := r.Registry.Get(tool)
	if !ok {
		return nil, apitypes.Errorf("unknown_tool", "no such tool: %s", tool)
	}
	if args == nil {
		args = map[string]any{}
	}
	start := r.Bus.ClockMS()

	ctx, span := r.tel.Tracer.Start(context.Background(), "vei.call",
		trace.WithAttributes(attribute.String("tool", tool)))
	defer span.End()

	fault := spec.FaultProbability
	if override, ok := r.faultOverrides[tool]; ok {
		fault = override
	}
	if fault > 0 && r.Bus.RNG().Float64() < fault {
		err := apitypes.Errorf("tool_unavailable", "transient fault calling %s", tool).WithDetail("tool", tool)
		r.Trace.AppendCall(start, tool, args, errorPayload(err), 0)
		r.tel.Logger.Warn(ctx, "fault injected", "tool", tool)
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool_unavailable")
		return nil, err
	}

	var (
		response any
		err      error
	)
	switch {
	case r.Connectors.ManagedTool(tool):
		response, err = r.Connectors.InvokeTool(tool, args, start)
	default:
		if handler := r.handlerFor(tool); handler != nil {
			response, err = handler(args)
		} else {
			err = apitypes.Errorf("unknown_tool", "no handler for tool: %s", tool)
		}
	}

	latency := r.Bus.RNG().Jitter(spec.DefaultLatencyMS, spec.LatencyJitterMS)
	if err != nil {
		r.Trace.AppendCall(start, tool, args, errorPayload(err), latency)
		r.Bus.Tick(latency)
		span.RecordError(err)
		span.SetStatus(codes.Error, apitypes.ErrorCode(err))
		return nil, err
	}
	r.Trace.AppendCall(start, tool, args, response, latency)
	r.Bus.Tick(latency)
	r.tel.Metrics.IncCounter("vei.tool_calls", 1, "tool", tool)
	span.SetStatus(codes.Ok, "")
	return response, nil
}

// ActAndObserve runs CallAndStep then observes with the focus derived from
// the tool prefix. The result and the observation come back together.
func (r *Router) ActAndObserve(tool string, args map[string]any) (map[string]any, error) {
	result, err := r.CallAndStep(tool, args)
	if err != nil {
		return nil, err
	}
	obs := r.Observe(focusForTool(tool))
	return map[string]any{"result": result, "observation": obs.Map()}, nil
}

// Tick advances the bus and reports the drain in the wire shape.
func (r *Router) Tick(dtMS int64) map[string]any {
	summary := r.Bus.Tick(dtMS)
	return map[string]any{"delivered": summary.Delivered, "pending": summary.Pending}
}

// Pending proxies the bus pending counts.
func (r *Router) Pending() map[string]int { return r.Bus.Pending() }

// SearchTools ranks registered tools against the query. A non-positive topK
// asks for nothing and returns nil.
func (r *Router) SearchTools(query string, topK int) []map[string]any {
	if topK <= 0 {
		return nil
	}
	hits := r.Registry.Search(query, topK)
	out := make([]map[string]any, 0, len(hits))
	for _, hit := range hits {
		out = append(out, map[string]any{
			"name":        hit.Name,
			"description": hit.Description,
			"score":       hit.Score,
		})
	}
	return out
}

// Ping reports liveness and the logical clock.
func (r *Router) Ping() map[string]any {
	return map[string]any{"ok": true, "time_ms": r.Bus.ClockMS()}
}

// StateSnapshot returns the state head, the call-record tail, the last
// connector receipts and, when asked, a twin state digest.
func (r *Router) StateSnapshot(includeState bool, toolTail int, includeReceipts bool) map[string]any {
	if toolTail <= 0 {
		toolTail = 20
	}
	var calls []map[string]any
	for _, record := range r.Trace.Tail(0) {
		if record["type"] == "call" {
			calls = append(calls, record)
		}
	}
	if len(calls) > toolTail {
		calls = calls[len(calls)-toolTail:]
	}
	out := map[string]any{
		"time_ms":    r.Bus.ClockMS(),
		"session_id": r.sessionID,
		"state_head": r.Trace.Head(),
		"trace_len":  r.Trace.Len(),
		"tool_tail":  calls,
	}
	if includeReceipts {
		out["receipts"] = r.Connectors.Receipts(20)
	}
	if includeState {
		out["state"] = map[string]any{
			"browser": r.Browser.Read(),
			"pending": r.Bus.Pending(),
			"tools":   len(r.Registry.order),
		}
	}
	return out
}

// Reset flushes the trace and rebuilds the session with the new seed,
// preserving the scenario, artifacts directory and connector mode.
func (r *Router) Reset(seed int64) *Router {
	if err := r.Trace.Flush(); err != nil {
		r.tel.Logger.Error(context.Background(), "trace flush on reset failed", "err", err)
	}
	cfg := r.cfg
	cfg.Seed = seed
	return New(cfg)
}

// HelpPayload describes the reserved operations and registered tools.
func (r *Router) HelpPayload() map[string]any {
	return map[string]any{
		"reserved": []string{
			"vei.observe", "vei.ping", "vei.reset", "vei.act_and_observe",
			"vei.call", "vei.tools.search", "vei.tick", "vei.pending",
			"vei.state", "vei.help",
		},
		"tools":          r.Registry.Names(),
		"connector_mode": string(r.Connectors.Mode()),
		"session_id":     r.sessionID,
		"time_ms":        r.Bus.ClockMS(),
	}
}

func errorPayload(err error) map[string]any {
	structured := apitypes.AsError(err)
	return map[string]any{
		"error": map[string]any{
			"code":    structured.Code,
			"message": structured.Message,
		},
	}
}
