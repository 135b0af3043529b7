package sdk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/vei/corpus"
	"goa.design/vei/workflow"
)

type recordingHook struct {
	before []string
	after  []string
}

func (h *recordingHook) BeforeCall(tool string, args map[string]any) {
	h.before = append(h.before, tool)
	// Hooks get a copy; mutations must not leak into the dispatched call.
	args["mutated"] = true
}

func (h *recordingHook) AfterCall(tool string, args map[string]any, result any) {
	h.after = append(h.after, tool)
}

func smokeSpec() workflow.Spec {
	return workflow.Spec{
		Name:      "sdk-smoke",
		Objective: workflow.Objective{Statement: "read the store and request a vendor quote"},
		World:     map[string]any{"catalog": "multi_channel"},
		Steps: []workflow.Step{
			{StepID: "read", Description: "read the store page", Tool: "browser.read"},
			{
				StepID:      "mail",
				Description: "request a quote",
				Tool:        "mail.compose",
				Args: map[string]any{
					"to":        "sales@macrocompute.example",
					"subj":      "Quote request",
					"body_text": "Please quote 5 units.",
				},
				Expect: []workflow.Assertion{
					{Kind: "result_contains", Field: "id", Contains: "m"},
				},
			},
		},
	}
}

func TestNewSessionDefaultsToCatalogScenario(t *testing.T) {
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce")

	session, err := NewSession(Config{})
	require.NoError(t, err)
	require.NotNil(t, session.Router())

	result, err := session.CallTool("browser.read", nil)
	require.NoError(t, err)
	require.IsType(t, map[string]any{}, result)
	require.Equal(t, "sim", string(session.Router().Connectors.Mode()))
}

func TestNewSessionRejectsUnknownScenario(t *testing.T) {
	_, err := NewSession(Config{ScenarioName: "no_such_world"})
	require.Error(t, err)
}

func TestSessionHooksRunInOrderOnCopies(t *testing.T) {
	session, err := NewSession(Config{Seed: 7})
	require.NoError(t, err)

	first := &recordingHook{}
	second := &recordingHook{}
	session.RegisterHook(first)
	session.RegisterHook(second)

	args := map[string]any{"node_id": "home"}
	_, err = session.CallTool("browser.read", args)
	require.NoError(t, err)
	require.Equal(t, []string{"browser.read"}, first.before)
	require.Equal(t, []string{"browser.read"}, second.before)
	require.Equal(t, []string{"browser.read"}, first.after)
	require.NotContains(t, args, "mutated")

	payload, err := session.ActAndObserve("browser.read", nil)
	require.NoError(t, err)
	require.Contains(t, payload, "result")
	require.Contains(t, payload, "observation")
	require.Len(t, first.before, 2)
}

func TestSessionCallToolSurfacesErrors(t *testing.T) {
	session, err := NewSession(Config{Seed: 11})
	require.NoError(t, err)

	hook := &recordingHook{}
	session.RegisterHook(hook)
	_, err = session.CallTool("no.such_tool", nil)
	require.Error(t, err)
	// After hooks are skipped on failure, before hooks still fire.
	require.Len(t, hook.before, 1)
	require.Empty(t, hook.after)
}

func TestWorkflowSpecWrappers(t *testing.T) {
	spec := smokeSpec()

	compiled, err := CompileWorkflowSpec(spec, 0)
	require.NoError(t, err)
	require.Len(t, compiled.Steps, 2)

	report, err := ValidateWorkflowSpec(spec, 0, nil)
	require.NoError(t, err)
	require.True(t, report.OK)

	report, err = ValidateWorkflowSpec(spec, 0, []string{"browser.read"})
	require.NoError(t, err)
	require.False(t, report.OK)

	result, err := RunWorkflowSpec(spec, workflow.RunOptions{ArtifactsDir: t.TempDir()})
	require.NoError(t, err)
	require.True(t, result.OK, "%+v", result.DynamicValidation.Issues)
	require.Len(t, result.Steps, 2)
}

func TestCorpusWrappers(t *testing.T) {
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce")
	bundle := GenerateEnterpriseCorpus(corpus.Options{Seed: 5, EnvironmentCount: 1, ScenariosPerEnvironment: 2})
	require.Len(t, bundle.Workflows, 2)

	report := FilterEnterpriseCorpus(bundle, 0)
	require.Len(t, report.Accepted, 2)
	require.Empty(t, report.Rejected)
}

func TestScenarioManifestLookups(t *testing.T) {
	manifest, err := GetScenarioManifest("multi_channel")
	require.NoError(t, err)
	require.Equal(t, "multi_channel", manifest.Name)

	manifests := ListScenarioManifests()
	require.NotEmpty(t, manifests)

	_, err = GetScenarioManifest("missing")
	require.Error(t, err)
}
