// Package sdk is the stable embedding surface: a high-level session over the
// router plus one-call wrappers for workflow compilation, validation and
// execution, corpus generation and quality filtering.
package sdk

import (
	"goa.design/vei/corpus"
	"goa.design/vei/quality"
	"goa.design/vei/router"
	"goa.design/vei/workflow"
	"goa.design/vei/world"
)

type (
	// Config parameterizes a session. Zero values pick the defaults: seed
	// 42042, sim connector mode and the multi_channel catalog scenario.
	Config struct {
		// Seed drives the deterministic run.
		Seed int64
		// ArtifactsDir receives trace.jsonl and receipts.jsonl when set.
		ArtifactsDir string
		// ConnectorMode selects sim, record or replay connectors.
		ConnectorMode string
		// ScenarioName names a catalog scenario; ignored when Scenario is set.
		ScenarioName string
		// Scenario overrides the catalog lookup with an explicit world.
		Scenario *world.Scenario
	}

	// Hook observes tool calls made through the session. Hooks receive copies
	// of the argument map so they cannot mutate the dispatched call.
	Hook interface {
		BeforeCall(tool string, args map[string]any)
		AfterCall(tool string, args map[string]any, result any)
	}

	// Session is the high-level embedding API over one router instance.
	Session struct {
		cfg    Config
		router *router.Router
		hooks  []Hook
	}
)

// NewSession builds a session, resolving the scenario from the catalog when
// none is supplied.
func NewSession(cfg Config) (*Session, error) {
	if cfg.ConnectorMode == "" {
		cfg.ConnectorMode = "sim"
	}
	scenario := cfg.Scenario
	if scenario == nil {
		name := cfg.ScenarioName
		if name == "" {
			name = "multi_channel"
		}
		s, err := world.GetScenario(name)
		if err != nil {
			return nil, err
		}
		scenario = &s
	}
	r := router.New(router.Config{
		Seed:          cfg.Seed,
		ArtifactsDir:  cfg.ArtifactsDir,
		Scenario:      scenario,
		ConnectorMode: cfg.ConnectorMode,
	})
	return &Session{cfg: cfg, router: r}, nil
}

// Router exposes the underlying router for advanced embedding.
func (s *Session) Router() *router.Router { return s.router }

// Observe returns the current observation, optionally focused on a service.
func (s *Session) Observe(focusHint string) map[string]any {
	return s.router.Observe(focusHint).Map()
}

// CallTool dispatches one tool call and advances the simulated clock.
func (s *Session) CallTool(tool string, args map[string]any) (any, error) {
	payload := cloneArgs(args)
	s.runBeforeHooks(tool, payload)
	result, err := s.router.CallAndStep(tool, payload)
	if err != nil {
		return nil, err
	}
	s.runAfterHooks(tool, payload, result)
	return result, nil
}

// ActAndObserve dispatches one tool call and bundles the result with a fresh
// observation.
func (s *Session) ActAndObserve(tool string, args map[string]any) (map[string]any, error) {
	payload := cloneArgs(args)
	s.runBeforeHooks(tool, payload)
	result, err := s.router.ActAndObserve(tool, payload)
	if err != nil {
		return nil, err
	}
	s.runAfterHooks(tool, payload, result)
	return result, nil
}

// Pending reports undelivered bus events per target.
func (s *Session) Pending() map[string]int { return s.router.Pending() }

// RegisterToolProvider adds an external tool provider to the session router.
func (s *Session) RegisterToolProvider(p router.ToolProvider) error {
	return s.router.RegisterToolProvider(p)
}

// RegisterHook appends a call hook. Hooks run in registration order.
func (s *Session) RegisterHook(hook Hook) {
	s.hooks = append(s.hooks, hook)
}

// Close flushes the session trace to the artifacts directory.
func (s *Session) Close() error {
	return s.router.Trace.Flush()
}

func (s *Session) runBeforeHooks(tool string, args map[string]any) {
	for _, hook := range s.hooks {
		hook.BeforeCall(tool, cloneArgs(args))
	}
}

func (s *Session) runAfterHooks(tool string, args map[string]any, result any) {
	for _, hook := range s.hooks {
		hook.AfterCall(tool, cloneArgs(args), result)
	}
}

// CompileWorkflowSpec compiles a workflow spec against its world.
func CompileWorkflowSpec(spec workflow.Spec, seed int64) (workflow.CompiledWorkflow, error) {
	return workflow.Compile(spec, seedOrDefault(seed))
}

// ValidateWorkflowSpec compiles the spec and runs static validation. A nil
// tool list skips tool availability checks.
func ValidateWorkflowSpec(spec workflow.Spec, seed int64, availableTools []string) (workflow.Report, error) {
	compiled, err := workflow.Compile(spec, seedOrDefault(seed))
	if err != nil {
		return workflow.Report{}, err
	}
	return workflow.StaticValidate(compiled, availableTools), nil
}

// RunWorkflowSpec compiles and executes the spec end to end.
func RunWorkflowSpec(spec workflow.Spec, opts workflow.RunOptions) (workflow.RunResult, error) {
	opts.Seed = seedOrDefault(opts.Seed)
	compiled, err := workflow.Compile(spec, opts.Seed)
	if err != nil {
		return workflow.RunResult{}, err
	}
	return workflow.Run(compiled, opts), nil
}

// GenerateEnterpriseCorpus produces a deterministic corpus bundle. Zero
// counts default to ten environments with ten scenarios each.
func GenerateEnterpriseCorpus(opts corpus.Options) corpus.Bundle {
	if opts.EnvironmentCount <= 0 {
		opts.EnvironmentCount = 10
	}
	if opts.ScenariosPerEnvironment <= 0 {
		opts.ScenariosPerEnvironment = 10
	}
	return corpus.Generate(opts)
}

// FilterEnterpriseCorpus applies the quality filter to a generated bundle. A
// non-positive threshold uses the default realism bar.
func FilterEnterpriseCorpus(bundle corpus.Bundle, realismThreshold float64) quality.Report {
	return quality.Filter(bundle.Workflows, realismThreshold)
}

// GetScenarioManifest returns the manifest for a catalog scenario.
func GetScenarioManifest(name string) (world.ScenarioManifest, error) {
	return world.GetManifest(name)
}

// ListScenarioManifests returns manifests for every catalog scenario.
func ListScenarioManifests() []world.ScenarioManifest {
	return world.ListManifests()
}

func seedOrDefault(seed int64) int64 {
	if seed == 0 {
		return router.DefaultSeed
	}
	return seed
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
