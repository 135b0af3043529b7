package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/vei/apitypes"
)

func testSpec() Spec {
	return Spec{
		Name: "workflow-runner-test",
		Objective: Objective{
			Statement: "Request quote and post approval",
			Success:   []string{"mail sent", "approval posted"},
		},
		World: map[string]any{"catalog": "multi_channel"},
		Actors: []Actor{
			{ActorID: "agent", Role: "procurement_operator"},
			{ActorID: "approver", Role: "finance_manager"},
		},
		Constraints: []Constraint{
			{Name: "budget", Description: "budget must be included", Required: true},
		},
		Approvals: []Approval{
			{Stage: "finance", Approver: "approver", Required: true},
		},
		Steps: []Step{
			{
				StepID:      "read",
				Description: "Read browser",
				Tool:        "browser.read",
			},
			{
				StepID:      "mail",
				Description: "Send quote email",
				Tool:        "mail.compose",
				Args: map[string]any{
					"to":        "sales@macrocompute.example",
					"subj":      "Quote request",
					"body_text": "Please share quote and ETA.",
				},
				Expect: []Assertion{
					{Kind: "result_contains", Field: "id", Contains: "m"},
				},
			},
			{
				StepID:      "approve",
				Description: "Post approval message",
				Tool:        "slack.send_message",
				Args: map[string]any{
					"channel": "#procurement",
					"text":    "Please approve budget $2400 with quote evidence.",
				},
				Expect: []Assertion{
					{Kind: "result_contains", Field: "ts", Contains: ""},
				},
			},
		},
		SuccessAssertions: []Assertion{
			{Kind: "pending_max", Field: "total", MaxValue: 20},
		},
		Tags: []string{"unit-test"},
	}
}

func TestCompileAndRunWorkflow(t *testing.T) {
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce")
	compiled, err := Compile(testSpec(), 99)
	require.NoError(t, err)
	require.Len(t, compiled.Steps, 3)
	require.Equal(t, "workflow-runner-test", compiled.Scenario.Metadata["workflow_name"])

	result := Run(compiled, RunOptions{Seed: 99})
	require.True(t, result.StaticValidation.OK)
	require.True(t, result.DynamicValidation.OK, "issues: %v", result.DynamicValidation.Issues)
	require.True(t, result.OK)
	require.Len(t, result.Steps, 3)
	for _, step := range result.Steps {
		require.True(t, step.OK, "step %s failed: %v", step.StepID, step.AssertionFailures)
	}
	require.Equal(t, "sim", result.Metadata["connector_mode"])
	require.NotEmpty(t, result.Metadata["state_head"])
}

func TestCompileRejectsDuplicateStepIDs(t *testing.T) {
	spec := testSpec()
	spec.Steps = append(spec.Steps, Step{StepID: "read", Description: "again", Tool: "browser.read"})
	_, err := Compile(spec, 1)
	require.Equal(t, "workflow.duplicate_step", apitypes.ErrorCode(err))
}

func TestStaticValidateFlagsUnknownTool(t *testing.T) {
	spec := testSpec()
	spec.Steps[1].Tool = "mail.unknown_operation"
	compiled, err := Compile(spec, 1)
	require.NoError(t, err)

	report := StaticValidate(compiled, []string{"browser.read", "mail.compose"})
	require.False(t, report.OK)
	var codes []string
	for _, issue := range report.Issues {
		codes = append(codes, issue.Code)
	}
	require.Contains(t, codes, "tool.unavailable")
}

func TestStaticValidateFlagsBrokenFailurePaths(t *testing.T) {
	spec := testSpec()
	spec.FailurePaths = []FailurePath{
		{Name: "quote-missing", TriggerStep: "nope", RecoverySteps: []string{"also-nope"}},
	}
	compiled, err := Compile(spec, 1)
	require.NoError(t, err)

	report := StaticValidate(compiled, nil)
	require.False(t, report.OK)
	var codes []string
	for _, issue := range report.Issues {
		codes = append(codes, issue.Code)
	}
	require.Contains(t, codes, "failure_path.trigger_missing")
	require.Contains(t, codes, "failure_path.recovery_missing")
}

func TestStaticValidateWarnsUnmappedApprovals(t *testing.T) {
	spec := testSpec()
	// Remove the approval-like step but keep the declared approval stage.
	spec.Steps = spec.Steps[:2]
	compiled, err := Compile(spec, 1)
	require.NoError(t, err)

	report := StaticValidate(compiled, nil)
	// Warnings do not fail the report.
	require.True(t, report.OK)
	require.Len(t, report.Issues, 1)
	require.Equal(t, "approval.unmapped", report.Issues[0].Code)
	require.Equal(t, "warning", report.Issues[0].Severity)
}

func TestRunEnforcesSuccessAssertions(t *testing.T) {
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce")
	spec := testSpec()
	spec.SuccessAssertions = []Assertion{
		{Kind: "pending_max", Field: "total", MaxValue: -1},
	}
	compiled, err := Compile(spec, 88)
	require.NoError(t, err)

	result := Run(compiled, RunOptions{Seed: 88})
	require.False(t, result.OK)
	var codes []string
	for _, issue := range result.DynamicValidation.Issues {
		codes = append(codes, issue.Code)
	}
	require.Contains(t, codes, "success_assertion.failed")
}

func TestRunSupportsAliasAndDatabaseSteps(t *testing.T) {
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "salesforce")
	spec := Spec{
		Name: "workflow-salesforce-db",
		Objective: Objective{
			Statement: "Create opportunity and verify db audit records.",
			Success:   []string{"opportunity created", "db queried"},
		},
		World:  map[string]any{"catalog": "multi_channel"},
		Actors: []Actor{{ActorID: "agent", Role: "procurement_operator"}},
		Steps: []Step{
			{
				StepID:      "create_opp",
				Description: "Create Salesforce opportunity",
				Tool:        "salesforce.opportunity.create",
				Args:        map[string]any{"name": "Renewal FY27", "amount": 100000},
				Expect: []Assertion{
					{Kind: "result_contains", Field: "id", Contains: "D-"},
				},
			},
			{
				StepID:      "query_db",
				Description: "Query approval audit table",
				Tool:        "db.query",
				Args:        map[string]any{"table": "approval_audit", "limit": 5},
				Expect: []Assertion{
					{Kind: "result_contains", Field: "table", Contains: "approval_audit"},
				},
			},
		},
		SuccessAssertions: []Assertion{
			{Kind: "pending_max", Field: "total", MaxValue: 20},
		},
	}
	compiled, err := Compile(spec, 99)
	require.NoError(t, err)

	result := Run(compiled, RunOptions{Seed: 99})
	require.True(t, result.OK, "issues: %v", result.DynamicValidation.Issues)
	for _, step := range result.Steps {
		require.True(t, step.OK, "step %s failed: %v", step.StepID, step.AssertionFailures)
	}
}

func TestRunStepFailureBehaviors(t *testing.T) {
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot")
	spec := Spec{
		Name:      "workflow-failure-paths",
		Objective: Objective{Statement: "Exercise failure handling."},
		Steps: []Step{
			{
				StepID:      "bad",
				Description: "Fetch a ticket that does not exist",
				Tool:        "tickets.get",
				Args:        map[string]any{"ticket_id": "TCK-9999"},
				OnFailure:   "continue",
			},
			{
				StepID:      "good",
				Description: "Read browser",
				Tool:        "browser.read",
			},
		},
	}
	compiled, err := Compile(spec, 5)
	require.NoError(t, err)

	result := Run(compiled, RunOptions{Seed: 5})
	require.Len(t, result.Steps, 2)
	require.False(t, result.Steps[0].OK)
	require.True(t, result.Steps[1].OK)
	// The step error is an error-severity issue, so the run is not ok even
	// though execution continued.
	require.False(t, result.OK)

	// on_failure fail stops at the broken step.
	spec.Steps[0].OnFailure = "fail"
	compiled, err = Compile(spec, 5)
	require.NoError(t, err)
	result = Run(compiled, RunOptions{Seed: 5})
	require.Len(t, result.Steps, 1)
}

func TestRunLoopGuardStopsJumpCycles(t *testing.T) {
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot")
	spec := Spec{
		Name:      "workflow-loop",
		Objective: Objective{Statement: "Loop until the guard trips."},
		Steps: []Step{
			{
				StepID:      "spin",
				Description: "Fetch a ticket that does not exist",
				Tool:        "tickets.get",
				Args:        map[string]any{"ticket_id": "TCK-9999"},
				OnFailure:   "jump:spin",
			},
		},
	}
	compiled, err := Compile(spec, 5)
	require.NoError(t, err)

	result := Run(compiled, RunOptions{Seed: 5})
	require.False(t, result.OK)
	var codes []string
	for _, issue := range result.DynamicValidation.Issues {
		codes = append(codes, issue.Code)
	}
	require.Contains(t, codes, "runner.loop_guard")
	require.Len(t, result.Steps, 3)
}

func TestParseSpecSchemaValidation(t *testing.T) {
	spec := testSpec()
	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	parsed, err := ParseSpec(raw)
	require.NoError(t, err)
	require.Equal(t, spec.Name, parsed.Name)
	require.Len(t, parsed.Steps, 3)

	for _, bad := range []string{
		`{}`,
		`{"name":"x"}`,
		`{"name":"x","objective":{"statement":"y"},"steps":[{"step_id":"a"}]}`,
		`{"name":"x","objective":{"statement":"y"},"steps":[{"step_id":"a","description":"d","tool":"t","expect":[{"kind":"nope"}]}]}`,
		`not json`,
	} {
		_, err := ParseSpec([]byte(bad))
		require.Equal(t, "workflow.invalid_spec", apitypes.ErrorCode(err), "payload: %s", bad)
	}
}

func TestEvaluateAssertionsDottedPaths(t *testing.T) {
	result := map[string]any{"ticket": map[string]any{"id": "TCK-1001", "status": "OPEN"}}
	observation := map[string]any{"summary": "t=0ms focus=tickets"}
	pending := map[string]int{"total": 2, "mail": 1}

	failures := EvaluateAssertions([]Assertion{
		{Kind: "result_contains", Field: "ticket.id", Contains: "TCK-"},
		{Kind: "result_equals", Field: "ticket.status", Equals: "OPEN"},
		{Kind: "observation_contains", Contains: "focus=tickets"},
		{Kind: "pending_max", Field: "total", MaxValue: 5},
	}, result, observation, pending)
	require.Empty(t, failures)

	failures = EvaluateAssertions([]Assertion{
		{Kind: "result_contains", Field: "ticket.missing", Contains: "x"},
		{Kind: "result_equals", Field: "ticket.status", Equals: "CLOSED"},
		{Kind: "pending_max", Field: "mail", MaxValue: 0},
		{Kind: "made_up"},
	}, result, observation, pending)
	require.Len(t, failures, 4)
}
