package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// StaticValidate checks the compiled workflow without executing it: every
// step tool must be registered (when a tool set is given), failure paths must
// reference existing steps, and declared approvals should map to at least one
// approval-like step.
func StaticValidate(w CompiledWorkflow, availableTools []string) Report {
	var issues []Issue
	toolSet := make(map[string]bool, len(availableTools))
	for _, tool := range availableTools {
		toolSet[tool] = true
	}

	for _, step := range w.Steps {
		if len(toolSet) > 0 && !toolSet[step.Tool] {
			issues = append(issues, errorIssue(
				"tool.unavailable",
				fmt.Sprintf("step %s uses unavailable tool: %s", step.StepID, step.Tool),
				step.StepID,
			))
		}
	}

	for _, path := range w.Spec.FailurePaths {
		if _, ok := w.StepLookup[path.TriggerStep]; !ok {
			issues = append(issues, errorIssue(
				"failure_path.trigger_missing",
				fmt.Sprintf("failure path %q references unknown trigger step %s", path.Name, path.TriggerStep),
				path.TriggerStep,
			))
		}
		for _, recovery := range path.RecoverySteps {
			if _, ok := w.StepLookup[recovery]; !ok {
				issues = append(issues, errorIssue(
					"failure_path.recovery_missing",
					fmt.Sprintf("failure path %q references unknown recovery step %s", path.Name, recovery),
					recovery,
				))
			}
		}
	}

	if len(w.Spec.Approvals) > 0 && !hasApprovalStep(w.Steps) {
		issues = append(issues, warningIssue(
			"approval.unmapped",
			"workflow declares approvals but no approval-like step exists",
		))
	}

	return reportFrom(issues)
}

func hasApprovalStep(steps []CompiledStep) bool {
	for _, step := range steps {
		if strings.Contains(strings.ToLower(step.Description), "approve") ||
			strings.Contains(step.Tool, "approve") {
			return true
		}
	}
	return false
}

// EvaluateAssertions runs each assertion against the step result, the
// observation and the pending counts, returning one failure message per
// unsatisfied assertion.
func EvaluateAssertions(assertions []Assertion, result any, observation map[string]any, pending map[string]int) []string {
	var failures []string
	for _, assertion := range assertions {
		if msg := assertionFailure(assertion, result, observation, pending); msg != "" {
			failures = append(failures, msg)
		}
	}
	return failures
}

func assertionFailure(a Assertion, result any, observation map[string]any, pending map[string]int) string {
	switch a.Kind {
	case "result_contains":
		value := resolveField(result, a.Field)
		if !strings.Contains(stringify(value), a.Contains) {
			return fmt.Sprintf("expected result field %q to contain %q", a.Field, a.Contains)
		}
	case "result_equals":
		value := resolveField(result, a.Field)
		if stringify(value) != a.Equals {
			return fmt.Sprintf("expected result field %q == %q, got %q", a.Field, a.Equals, stringify(value))
		}
	case "observation_contains":
		focus := a.Focus
		if focus == "" {
			focus = "summary"
		}
		value := resolveField(observation, focus)
		if !strings.Contains(stringify(value), a.Contains) {
			return fmt.Sprintf("expected observation %q to contain %q", focus, a.Contains)
		}
	case "pending_max":
		field := a.Field
		if field == "" {
			field = "total"
		}
		value := pending[field]
		if value > a.MaxValue {
			return fmt.Sprintf("expected pending %q <= %d, got %d", field, a.MaxValue, value)
		}
	default:
		return fmt.Sprintf("unknown assertion kind: %s", a.Kind)
	}
	return ""
}

// resolveField walks a dotted path through nested maps. A missing key or a
// non-map intermediate resolves to nil.
func resolveField(payload any, field string) any {
	if field == "" {
		return payload
	}
	current := payload
	for _, key := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
