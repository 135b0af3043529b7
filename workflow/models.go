// Package workflow compiles, validates and runs declarative enterprise
// scenarios against a router session. A workflow names an objective, a world
// reference, ordered tool-call steps with expectations, and the failure
// paths and approvals a grader cares about.
package workflow

type (
	// Actor is a named participant in the scenario.
	Actor struct {
		// ActorID is the stable identifier referenced by approvals.
		ActorID string `json:"actor_id"`
		// Role is a free-form role label such as procurement_operator.
		Role string `json:"role"`
		// Email is the actor's mail address, when relevant.
		Email string `json:"email,omitempty"`
		// Slack is the actor's handle, when relevant.
		Slack string `json:"slack,omitempty"`
	}

	// Constraint is a rule the execution must honor.
	Constraint struct {
		// Name identifies the constraint, e.g. budget_cap.
		Name string `json:"name"`
		// Description states the rule in prose.
		Description string `json:"description"`
		// Required marks the constraint as binding.
		Required bool `json:"required"`
	}

	// Approval declares a human sign-off stage.
	Approval struct {
		// Stage names the approval stage, e.g. finance.
		Stage string `json:"stage"`
		// Approver references an actor id.
		Approver string `json:"approver"`
		// Required marks the approval as binding.
		Required bool `json:"required"`
		// Evidence describes what the approver must see.
		Evidence string `json:"evidence,omitempty"`
	}

	// Assertion checks a step result, an observation or the pending queue.
	Assertion struct {
		// Kind selects the check: result_contains, result_equals,
		// observation_contains or pending_max.
		Kind string `json:"kind"`
		// Field is a dotted path into the checked payload.
		Field string `json:"field,omitempty"`
		// Contains is the required substring for *_contains kinds.
		Contains string `json:"contains,omitempty"`
		// Equals is the required value for result_equals.
		Equals string `json:"equals,omitempty"`
		// Focus is the observation path for observation_contains,
		// defaulting to summary.
		Focus string `json:"focus,omitempty"`
		// MaxValue bounds pending_max; a missing value means zero.
		MaxValue int `json:"max_value,omitempty"`
		// Description annotates the assertion for reports.
		Description string `json:"description,omitempty"`
	}

	// Step is one tool call in the workflow.
	Step struct {
		// StepID is unique within the workflow.
		StepID string `json:"step_id"`
		// Description states what the step accomplishes.
		Description string `json:"description"`
		// Tool is the registered tool name, alias names included.
		Tool string `json:"tool"`
		// Args is the tool argument payload.
		Args map[string]any `json:"args,omitempty"`
		// Expect lists per-step assertions.
		Expect []Assertion `json:"expect,omitempty"`
		// OnFailure is fail, continue, skip or jump:<step_id>;
		// empty means fail.
		OnFailure string `json:"on_failure,omitempty"`
	}

	// FailurePath links a trigger step to its recovery steps.
	FailurePath struct {
		// Name labels the path.
		Name string `json:"name"`
		// TriggerStep is the step id that starts the path.
		TriggerStep string `json:"trigger_step"`
		// RecoverySteps list the step ids that recover from it.
		RecoverySteps []string `json:"recovery_steps,omitempty"`
		// Notes annotate the path.
		Notes string `json:"notes,omitempty"`
	}

	// Objective states what success means.
	Objective struct {
		// Statement is the goal in prose.
		Statement string `json:"statement"`
		// Success lists observable success criteria.
		Success []string `json:"success,omitempty"`
	}

	// Spec is the declarative workflow document.
	Spec struct {
		// Name identifies the workflow.
		Name string `json:"name"`
		// Objective states the goal.
		Objective Objective `json:"objective"`
		// World references the scenario: {catalog: name}, an inline
		// template, or empty for the default world.
		World map[string]any `json:"world,omitempty"`
		// Actors lists the participants.
		Actors []Actor `json:"actors,omitempty"`
		// Constraints lists binding rules.
		Constraints []Constraint `json:"constraints,omitempty"`
		// Approvals lists sign-off stages.
		Approvals []Approval `json:"approvals,omitempty"`
		// Steps is the ordered call sequence.
		Steps []Step `json:"steps,omitempty"`
		// SuccessAssertions run against the final state.
		SuccessAssertions []Assertion `json:"success_assertions,omitempty"`
		// FailurePaths describe recoveries.
		FailurePaths []FailurePath `json:"failure_paths,omitempty"`
		// Tags label the workflow for filtering.
		Tags []string `json:"tags,omitempty"`
		// Metadata carries generator provenance.
		Metadata map[string]any `json:"metadata,omitempty"`
	}

	// Issue is one validation finding.
	Issue struct {
		// Code is the machine-readable finding code.
		Code string `json:"code"`
		// Message explains the finding.
		Message string `json:"message"`
		// StepID names the offending step, when one exists.
		StepID string `json:"step_id,omitempty"`
		// Severity is error or warning.
		Severity string `json:"severity"`
	}

	// Report aggregates validation findings. OK is false only when an
	// error-severity issue exists.
	Report struct {
		OK     bool    `json:"ok"`
		Issues []Issue `json:"issues"`
	}

	// StepExecution records one executed step.
	StepExecution struct {
		StepID            string         `json:"step_id"`
		Tool              string         `json:"tool"`
		OK                bool           `json:"ok"`
		Result            any            `json:"result"`
		Observation       map[string]any `json:"observation"`
		AssertionFailures []string       `json:"assertion_failures,omitempty"`
		TimeMS            int64          `json:"time_ms"`
	}

	// RunResult is the full outcome of a workflow run.
	RunResult struct {
		OK                bool            `json:"ok"`
		WorkflowName      string          `json:"workflow_name"`
		StaticValidation  Report          `json:"static_validation"`
		DynamicValidation Report          `json:"dynamic_validation"`
		Steps             []StepExecution `json:"steps"`
		ArtifactsDir      string          `json:"artifacts_dir,omitempty"`
		Metadata          map[string]any  `json:"metadata"`
	}
)

func errorIssue(code, message, stepID string) Issue {
	return Issue{Code: code, Message: message, StepID: stepID, Severity: "error"}
}

func warningIssue(code, message string) Issue {
	return Issue{Code: code, Message: message, Severity: "warning"}
}

func reportFrom(issues []Issue) Report {
	ok := true
	for _, issue := range issues {
		if issue.Severity == "error" {
			ok = false
		}
	}
	if issues == nil {
		issues = []Issue{}
	}
	return Report{OK: ok, Issues: issues}
}
