package workflow

import (
	"os"
	"strings"

	"goa.design/vei/router"
)

// RunOptions configure one workflow execution.
type RunOptions struct {
	// Seed drives the session RNG; zero uses the router default.
	Seed int64
	// ArtifactsDir receives trace.jsonl and receipts.jsonl when set.
	ArtifactsDir string
	// ConnectorMode is sim, replay or live; empty means sim.
	ConnectorMode string
}

// Run executes the compiled workflow against a fresh router session. Static
// validation failures short-circuit before any step runs. Step assertion
// failures and step errors follow the step's on_failure behavior; the loop
// guard caps execution at three times the step count.
func Run(w CompiledWorkflow, opts RunOptions) RunResult {
	if opts.ArtifactsDir != "" {
		if err := os.MkdirAll(opts.ArtifactsDir, 0o755); err != nil {
			return RunResult{
				OK:                false,
				WorkflowName:      w.Spec.Name,
				StaticValidation:  reportFrom(nil),
				DynamicValidation: reportFrom([]Issue{errorIssue("runner.artifacts_dir", err.Error(), "")}),
				Steps:             []StepExecution{},
				Metadata:          map[string]any{"reason": "artifacts dir unavailable"},
			}
		}
	}

	scenario := w.Scenario
	r := router.New(router.Config{
		Seed:          opts.Seed,
		ArtifactsDir:  opts.ArtifactsDir,
		Scenario:      &scenario,
		ConnectorMode: opts.ConnectorMode,
	})
	defer func() { _ = r.Trace.Flush() }()

	static := StaticValidate(w, r.Registry.Names())
	if !static.OK {
		return RunResult{
			OK:                false,
			WorkflowName:      w.Spec.Name,
			StaticValidation:  static,
			DynamicValidation: Report{OK: false, Issues: []Issue{}},
			Steps:             []StepExecution{},
			ArtifactsDir:      opts.ArtifactsDir,
			Metadata:          map[string]any{"reason": "static validation failed"},
		}
	}

	var (
		executions    []StepExecution
		dynamicIssues []Issue
	)
	index := 0
	guard := 0
	maxGuard := len(w.Steps) * 3
	if maxGuard < 1 {
		maxGuard = 1
	}

	for index < len(w.Steps) {
		guard++
		if guard > maxGuard {
			dynamicIssues = append(dynamicIssues, errorIssue(
				"runner.loop_guard", "workflow execution exceeded loop guard budget", ""))
			break
		}

		step := w.Steps[index]
		result, err := r.CallAndStep(step.Tool, cloneArgs(step.Args))
		if err != nil {
			executions = append(executions, StepExecution{
				StepID:            step.StepID,
				Tool:              step.Tool,
				OK:                false,
				Result:            map[string]any{"error": err.Error()},
				Observation:       map[string]any{},
				AssertionFailures: []string{err.Error()},
				TimeMS:            r.Bus.ClockMS(),
			})
			dynamicIssues = append(dynamicIssues, errorIssue("step.exception", err.Error(), step.StepID))
			next, ok := failureTarget(w, step.OnFailure, index)
			if !ok {
				break
			}
			index = next
			continue
		}

		observation := r.Observe(stepFocus(step.Tool)).Map()
		pending := r.Pending()
		failures := EvaluateAssertions(step.Expect, result, observation, pending)
		executions = append(executions, StepExecution{
			StepID:            step.StepID,
			Tool:              step.Tool,
			OK:                len(failures) == 0,
			Result:            result,
			Observation:       observation,
			AssertionFailures: failures,
			TimeMS:            r.Bus.ClockMS(),
		})
		if len(failures) > 0 {
			dynamicIssues = append(dynamicIssues, errorIssue(
				"assertion.failed", strings.Join(failures, "; "), step.StepID))
			next, ok := failureTarget(w, step.OnFailure, index)
			if !ok {
				break
			}
			index = next
			continue
		}
		index++
	}

	finalObservation := r.Observe("browser").Map()
	finalPending := r.Pending()
	if len(w.Spec.SuccessAssertions) > 0 {
		var lastResult any = map[string]any{}
		if len(executions) > 0 {
			lastResult = executions[len(executions)-1].Result
		}
		for _, failure := range EvaluateAssertions(
			w.Spec.SuccessAssertions, lastResult, finalObservation, finalPending) {
			dynamicIssues = append(dynamicIssues, errorIssue("success_assertion.failed", failure, ""))
		}
	}

	dynamic := reportFrom(dynamicIssues)
	if executions == nil {
		executions = []StepExecution{}
	}
	return RunResult{
		OK:                static.OK && dynamic.OK,
		WorkflowName:      w.Spec.Name,
		StaticValidation:  static,
		DynamicValidation: dynamic,
		Steps:             executions,
		ArtifactsDir:      opts.ArtifactsDir,
		Metadata: map[string]any{
			"connector_mode":         string(r.Connectors.Mode()),
			"state_head":             r.Trace.Head(),
			"time_ms":                r.Bus.ClockMS(),
			"connector_last_receipt": r.Connectors.LastReceipt(),
		},
	}
}

// failureTarget resolves the next step index after a failure. The second
// return is false when execution must stop.
func failureTarget(w CompiledWorkflow, onFailure string, current int) (int, bool) {
	behavior := strings.ToLower(strings.TrimSpace(onFailure))
	if behavior == "" {
		behavior = "fail"
	}
	switch {
	case behavior == "continue" || behavior == "skip":
		return current + 1, true
	case strings.HasPrefix(behavior, "jump:"):
		stepID := strings.TrimPrefix(behavior, "jump:")
		if target, ok := w.StepLookup[stepID]; ok {
			next := target.Index - 1
			if next < 0 {
				next = 0
			}
			return next, true
		}
	}
	return 0, false
}

// stepFocus maps a tool name onto the observation focus, vendor alias
// prefixes included.
func stepFocus(tool string) string {
	for _, prefix := range []string{
		"slack", "mail", "docs", "calendar", "tickets", "erp", "crm",
		"db", "browser", "okta", "servicedesk",
	} {
		if strings.HasPrefix(tool, prefix+".") {
			return prefix
		}
	}
	switch {
	case strings.HasPrefix(tool, "salesforce.") || strings.HasPrefix(tool, "hubspot."):
		return "crm"
	case strings.HasPrefix(tool, "xero.") || strings.HasPrefix(tool, "netsuite.") ||
		strings.HasPrefix(tool, "dynamics.") || strings.HasPrefix(tool, "quickbooks."):
		return "erp"
	}
	return "browser"
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
