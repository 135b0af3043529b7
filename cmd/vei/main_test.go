package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/vei/router"
)

func newTestServer(t *testing.T, seed int64) *server {
	t.Helper()
	t.Setenv("VEI_ALIAS_PACKS", "xero")
	t.Setenv("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce")
	return &server{router: router.New(router.Config{Seed: seed})}
}

func TestHandleLineReservedCall(t *testing.T) {
	srv := newTestServer(t, 7)

	resp := srv.handleLine([]byte(`{"jsonrpc":"2.0","id":1,"method":"mcp.call","params":{"tool":"vei.ping"}}`))
	require.Nil(t, resp.Error)
	require.Equal(t, float64(1), resp.ID)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, result["ok"])
}

func TestHandleLineToolErrorsCarryStringCodes(t *testing.T) {
	srv := newTestServer(t, 7)

	resp := srv.handleLine([]byte(`{"jsonrpc":"2.0","id":2,"method":"mcp.call","params":{"tool":"no.such_tool"}}`))
	require.NotNil(t, resp.Error)
	require.Equal(t, "unknown_tool", resp.Error.Code)
}

func TestHandleLineUnknownMethod(t *testing.T) {
	srv := newTestServer(t, 7)

	resp := srv.handleLine([]byte(`{"jsonrpc":"2.0","id":3,"method":"mcp.subscribe"}`))
	require.NotNil(t, resp.Error)
	require.Equal(t, -32601, resp.Error.Code)
}

func TestHandleLineListTools(t *testing.T) {
	srv := newTestServer(t, 7)

	resp := srv.handleLine([]byte(`{"jsonrpc":"2.0","id":4,"method":"mcp.list_tools"}`))
	require.Nil(t, resp.Error)
	names, ok := resp.Result.([]string)
	require.True(t, ok)
	require.Contains(t, names, "browser.read")
	require.Contains(t, names, "erp.create_po")
}

func TestDispatchReservedSurface(t *testing.T) {
	srv := newTestServer(t, 11)

	obs, err := srv.dispatch("vei.observe", map[string]any{"focus": "slack"})
	require.NoError(t, err)
	require.Contains(t, obs.(map[string]any), "action_menu")

	_, err = srv.dispatch("vei.tick", map[string]any{"dt_ms": float64(500)})
	require.NoError(t, err)
	require.Equal(t, int64(500), srv.router.Bus.ClockMS())

	nested, err := srv.dispatch("vei.call", map[string]any{
		"tool": "browser.read", "args": map[string]any{},
	})
	require.NoError(t, err)
	require.Contains(t, nested.(map[string]any), "title")

	help, err := srv.dispatch("vei.help", nil)
	require.NoError(t, err)
	require.Contains(t, help.(map[string]any), "reserved")

	state, err := srv.dispatch("vei.state", map[string]any{"include_state": true})
	require.NoError(t, err)
	require.Contains(t, state.(map[string]any), "state")
}

func TestDispatchResetSwapsRouter(t *testing.T) {
	srv := newTestServer(t, 11)

	_, err := srv.dispatch("browser.read", map[string]any{})
	require.NoError(t, err)
	require.Positive(t, srv.router.Bus.ClockMS())

	result, err := srv.dispatch("vei.reset", map[string]any{"seed": float64(9)})
	require.NoError(t, err)
	payload := result.(map[string]any)
	require.Equal(t, true, payload["ok"])
	require.Equal(t, int64(9), payload["seed"])
	require.Equal(t, int64(0), srv.router.Bus.ClockMS())
}

func TestLoopWritesOneResponsePerLine(t *testing.T) {
	srv := newTestServer(t, 5)

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"mcp.call","params":{"tool":"vei.ping"}}`,
		``,
		`not-json`,
		`{"jsonrpc":"2.0","id":2,"method":"mcp.call","params":{"tool":"browser.read","args":{}}}`,
	}, "\n"))
	var out bytes.Buffer
	srv.loop(in, &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		require.Equal(t, "2.0", resp["jsonrpc"])
	}

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	require.Contains(t, last["result"].(map[string]any), "title")
}
