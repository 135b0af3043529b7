package connectors

import (
	"fmt"
	"os"
	"strings"
)

// PolicyGate decides whether a classified request may execute in the given
// mode. Gates run before any adapter touches the request.
type PolicyGate interface {
	Evaluate(req Request, mode Mode) Decision
}

// DefaultPolicyGate is the stock write-safety gate: non-live modes always
// pass, live reads pass, live safe writes need an opt-in or approval, live
// risky writes need an explicit opt-in or are denied.
type DefaultPolicyGate struct {
	// LiveAllowWriteSafe permits write_safe operations in live mode.
	LiveAllowWriteSafe bool
	// LiveAllowWriteRisky permits write_risky operations in live mode.
	LiveAllowWriteRisky bool
	// BlockedOperations denies "service.operation" ids in every mode.
	BlockedOperations map[string]bool
}

// GateFromEnv builds the default gate from VEI_LIVE_ALLOW_WRITE_SAFE,
// VEI_LIVE_ALLOW_WRITE_RISKY and VEI_LIVE_BLOCK_OPS.
func GateFromEnv() *DefaultPolicyGate {
	return &DefaultPolicyGate{
		LiveAllowWriteSafe:  parseBool(os.Getenv("VEI_LIVE_ALLOW_WRITE_SAFE")),
		LiveAllowWriteRisky: parseBool(os.Getenv("VEI_LIVE_ALLOW_WRITE_RISKY")),
		BlockedOperations:   parseBlockedOps(os.Getenv("VEI_LIVE_BLOCK_OPS")),
	}
}

// Evaluate applies the write-safety rules to one request.
func (g *DefaultPolicyGate) Evaluate(req Request, mode Mode) Decision {
	operationID := fmt.Sprintf("%s.%s", req.Service, req.Operation)
	if g.BlockedOperations[operationID] {
		return Decision{Action: ActionDeny, Reason: "blocked operation: " + operationID}
	}
	if mode != ModeLive {
		return Decision{Action: ActionAllow, Reason: "non-live mode"}
	}
	switch req.Class {
	case ClassRead:
		return Decision{Action: ActionAllow, Reason: "live read allowed"}
	case ClassWriteSafe:
		if g.LiveAllowWriteSafe {
			return Decision{Action: ActionAllow, Reason: "live safe-write allowed"}
		}
		return Decision{Action: ActionRequireApproval, Reason: "live safe-write requires approval"}
	case ClassWriteRisky:
		if g.LiveAllowWriteRisky {
			return Decision{Action: ActionAllow, Reason: "live risky-write allowed"}
		}
		return Decision{Action: ActionDeny, Reason: "live risky-write blocked"}
	}
	return Decision{Action: ActionAllow, Reason: "fallback allow"}
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseBlockedOps(raw string) map[string]bool {
	out := make(map[string]bool)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}
