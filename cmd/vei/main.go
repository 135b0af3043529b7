// Command vei runs the virtual enterprise router as a line-delimited JSON-RPC
// server over stdio, and bundles the corpus and score pipelines as
// subcommands.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"goa.design/clue/log"

	"goa.design/vei/apitypes"
	"goa.design/vei/corpus"
	"goa.design/vei/quality"
	"goa.design/vei/router"
	"goa.design/vei/score"
	"goa.design/vei/telemetry"
	"goa.design/vei/world"
)

type (
	rpcRequest struct {
		JSONRPC string         `json:"jsonrpc"`
		ID      any            `json:"id"`
		Method  string         `json:"method"`
		Params  map[string]any `json:"params"`
	}

	rpcError struct {
		// Code is an integer for protocol errors and a string code for
		// tool-level failures.
		Code    any    `json:"code"`
		Message string `json:"message"`
	}

	rpcResponse struct {
		JSONRPC string    `json:"jsonrpc"`
		ID      any       `json:"id"`
		Result  any       `json:"result,omitempty"`
		Error   *rpcError `json:"error,omitempty"`
	}

	// server owns the session router; vei.reset swaps it out in place.
	server struct {
		router *router.Router
	}
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "corpus":
			os.Exit(corpusMain(args[1:]))
		case "score":
			os.Exit(scoreMain(args[1:]))
		case "serve":
			args = args[1:]
		}
	}
	os.Exit(serveMain(args))
}

func serveMain(args []string) int {
	fs := flag.NewFlagSet("vei serve", flag.ExitOnError)
	dbgF := fs.Bool("debug", false, "Enable debug logs")
	_ = fs.Parse(args)

	// Stdout carries JSON-RPC responses only; logs go to stderr.
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(),
		log.WithFormat(format), log.WithOutput(os.Stderr))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	r := newRouterFromEnv()
	log.Print(ctx, log.KV{K: "msg", V: "vei server ready"},
		log.KV{K: "session_id", V: r.SessionID()},
		log.KV{K: "connector_mode", V: string(r.Connectors.Mode())})

	srv := &server{router: r}
	defer func() { _ = srv.router.Trace.Flush() }()
	srv.loop(os.Stdin, os.Stdout)
	return 0
}

func newRouterFromEnv() *router.Router {
	var scenario *world.Scenario
	if name := os.Getenv("VEI_SCENARIO"); name != "" {
		s, err := world.GetScenario(name)
		if err != nil {
			s, err = world.LoadScenarioFile(name, envInt64("VEI_SEED", router.DefaultSeed))
		}
		if err == nil {
			scenario = &s
		}
	}
	return router.New(router.Config{
		Seed:          envInt64("VEI_SEED", router.DefaultSeed),
		ArtifactsDir:  os.Getenv("VEI_ARTIFACTS_DIR"),
		Scenario:      scenario,
		ConnectorMode: os.Getenv("VEI_CONNECTOR_MODE"),
		ERPErrorRate:  envFloat("VEI_ERP_ERROR_RATE"),
		CRMErrorRate:  envFloat("VEI_CRM_ERROR_RATE"),
		Telemetry:     telemetry.Clue(),
	})
}

func (s *server) loop(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(out)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp := s.handleLine([]byte(line))
		payload, err := json.Marshal(resp)
		if err != nil {
			payload = []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32000,"message":"marshal failure"}}`)
		}
		_, _ = writer.Write(append(payload, '\n'))
		_ = writer.Flush()
	}
}

func (s *server) handleLine(line []byte) rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32000, Message: err.Error()}}
	}
	switch req.Method {
	case "mcp.call":
		tool, _ := req.Params["tool"].(string)
		args := asMapArg(req.Params["args"])
		result, err := s.dispatch(tool, args)
		if err != nil {
			te := apitypes.AsError(err)
			return rpcResponse{JSONRPC: "2.0", ID: req.ID,
				Error: &rpcError{Code: te.Code, Message: te.Message}}
		}
		return rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
	case "mcp.list_tools":
		return rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: s.router.Registry.Names()}
	default:
		return rpcResponse{JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: -32601, Message: "Method not found"}}
	}
}

// dispatch resolves the reserved vei.* surface before falling through to the
// session router.
func (s *server) dispatch(tool string, args map[string]any) (any, error) {
	switch tool {
	case "vei.observe":
		return s.router.Observe(asStringArg(args["focus"])).Map(), nil
	case "vei.ping":
		return s.router.Ping(), nil
	case "vei.tick":
		return s.router.Tick(int64(asIntArg(args["dt_ms"], 1000))), nil
	case "vei.pending":
		return s.router.Pending(), nil
	case "vei.act_and_observe":
		return s.router.ActAndObserve(asStringArg(args["tool"]), asMapArg(args["args"]))
	case "vei.call":
		return s.dispatch(asStringArg(args["tool"]), asMapArg(args["args"]))
	case "vei.tools.search":
		return s.router.SearchTools(asStringArg(args["query"]), asIntArg(args["top_k"], 8)), nil
	case "vei.reset":
		seed := envInt64("VEI_SEED", router.DefaultSeed)
		if raw, ok := args["seed"]; ok {
			seed = int64(asIntArg(raw, int(seed)))
		}
		s.router = s.router.Reset(seed)
		return map[string]any{"ok": true, "seed": seed, "time_ms": s.router.Bus.ClockMS()}, nil
	case "vei.state":
		includeState := asBoolArg(args["include_state"], false)
		toolTail := asIntArg(args["tool_tail"], 20)
		includeReceipts := asBoolArg(args["include_receipts"], true)
		return s.router.StateSnapshot(includeState, toolTail, includeReceipts), nil
	case "vei.help":
		return s.router.HelpPayload(), nil
	}
	return s.router.CallAndStep(tool, args)
}

func corpusMain(args []string) int {
	fs := flag.NewFlagSet("vei corpus", flag.ExitOnError)
	seedF := fs.Int64("seed", router.DefaultSeed, "Generation seed")
	envsF := fs.Int("environments", 10, "Number of environments")
	scenariosF := fs.Int("scenarios", 10, "Scenarios per environment")
	filterF := fs.Bool("filter", true, "Run the quality filter over the bundle")
	realismF := fs.Float64("realism", quality.DefaultRealismThreshold, "Realism accept threshold")
	outF := fs.String("out", "", "Output file, defaults to stdout")
	_ = fs.Parse(args)

	bundle := corpus.Generate(corpus.Options{
		Seed:                    *seedF,
		EnvironmentCount:        *envsF,
		ScenariosPerEnvironment: *scenariosF,
	})
	payload := map[string]any{"bundle": bundle}
	if *filterF {
		payload["quality"] = quality.Filter(bundle.Workflows, *realismF)
	}
	return emitJSON(payload, *outF)
}

func scoreMain(args []string) int {
	fs := flag.NewFlagSet("vei score", flag.ExitOnError)
	artifactsF := fs.String("artifacts", "", "Artifacts directory containing trace.jsonl")
	modeF := fs.String("mode", "email", "Success mode: email or full")
	outF := fs.String("out", "", "Output file, defaults to stdout")
	_ = fs.Parse(args)

	dir := *artifactsF
	if dir == "" && fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	if dir == "" {
		dir = os.Getenv("VEI_ARTIFACTS_DIR")
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "vei score: artifacts directory required")
		return 2
	}
	result, err := score.Compute(dir, *modeF)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vei score: %s\n", err)
		return 1
	}
	return emitJSON(result, *outF)
}

func emitJSON(payload any, outPath string) int {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "vei: encode output: %s\n", err)
		return 1
	}
	data = append(data, '\n')
	if outPath == "" {
		_, _ = os.Stdout.Write(data)
		return 0
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "vei: write output: %s\n", err)
		return 1
	}
	return 0
}

func envInt64(key string, def int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return v
}

func asMapArg(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asStringArg(v any) string {
	s, _ := v.(string)
	return s
}

func asIntArg(v any, def int) int {
	switch value := v.(type) {
	case float64:
		return int(value)
	case int:
		return value
	case int64:
		return int(value)
	case string:
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return def
}

func asBoolArg(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}
