package world

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/vei/apitypes"
)

func TestCatalogLookup(t *testing.T) {
	s, err := GetScenario("multi_channel")
	require.NoError(t, err)
	require.NotEmpty(t, s.IdentityUsers)
	require.Contains(t, s.ServiceRequests, "REQ-8801")
	require.Contains(t, s.DatabaseTables, "approval_audit")

	_, err = GetScenario("nope")
	require.Equal(t, "unknown_scenario", apitypes.ErrorCode(err))
}

func TestGenerateScenarioIsDeterministic(t *testing.T) {
	template := map[string]any{
		"budget_cap_usd":        3200,
		"slack_initial_message": "Procurement run.",
		"vendors": []any{
			map[string]any{"name": "MacroCompute", "price": []any{3000, 3400}, "eta_days": []any{4, 8}},
			map[string]any{"name": "Dell Business", "price": []any{2800, 3100}, "eta_days": []any{3, 6}},
		},
		"database_tables": map[string]any{
			"approval_audit": []any{map[string]any{"id": "APR-1", "status": "PENDING"}},
		},
		"derail_events": []any{
			map[string]any{"dt_ms": 5000, "target": "mail", "payload": map[string]any{"subj": "noise"}},
		},
	}
	a := GenerateScenario(template, 99)
	b := GenerateScenario(template, 99)
	require.True(t, reflect.DeepEqual(a, b))

	require.Equal(t, 3200, a.BudgetCapUSD)
	require.Contains(t, a.VendorReplyVariants, "sales@macrocompute.example")
	require.Contains(t, a.VendorReplyVariants, "sales@dellbusiness.example")
	require.Len(t, a.DerailEvents, 1)
	require.Equal(t, int64(5000), a.DerailEvents[0].DtMS)
}

func TestResolveCatalogReference(t *testing.T) {
	s, err := Resolve(map[string]any{"catalog": "procurement"}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, s.BrowserNodes)

	def, err := Resolve(nil, 1)
	require.NoError(t, err)
	require.NotEmpty(t, def.VendorReplyVariants)
}

func TestManifestSummarizesFamilies(t *testing.T) {
	m, err := GetManifest("multi_channel")
	require.NoError(t, err)
	require.Equal(t, "enterprise", m.ScenarioType)
	require.Equal(t, []string{"browser", "calendar", "db", "docs", "mail", "okta", "servicedesk", "slack", "tickets"}, m.ToolFamilies)
	require.Equal(t, 2, m.DocsCount)
	require.Equal(t, 1, m.ServiceRequestsCount)

	all := ListManifests()
	require.Len(t, all, 2)
	require.Equal(t, "multi_channel", all[0].Name)
}
