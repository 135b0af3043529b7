// Package quality scores and filters generated workflow corpora. A workflow
// is accepted when it is structurally novel, realistic per a fixed rubric,
// statically runnable and not a fingerprint duplicate of an earlier accept.
package quality

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"goa.design/vei/corpus"
	"goa.design/vei/workflow"
)

// DefaultRealismThreshold is the accept bar for the realism rubric.
const DefaultRealismThreshold = 0.55

type (
	// Score is the quality verdict for one workflow.
	Score struct {
		// ScenarioID identifies the scored workflow.
		ScenarioID string `json:"scenario_id"`
		// Fingerprint is the sha256 of the canonical spec.
		Fingerprint string `json:"fingerprint"`
		// RealismScore is the rubric total in [0,1].
		RealismScore float64 `json:"realism_score"`
		// NoveltyScore is 1/occurrences of the structure key.
		NoveltyScore float64 `json:"novelty_score"`
		// RunnabilityScore is 1 when compile plus static validation pass.
		RunnabilityScore float64 `json:"runnability_score"`
		// Accepted reports the overall verdict.
		Accepted bool `json:"accepted"`
		// Reasons lists every rejection reason.
		Reasons []string `json:"reasons,omitempty"`
	}

	// Report splits the corpus into accepted and rejected workflows.
	Report struct {
		Accepted []Score `json:"accepted"`
		Rejected []Score `json:"rejected"`
	}
)

// Filter scores each workflow in order. Fingerprints of accepted workflows
// suppress later duplicates; structure keys are counted across the whole
// input so repeated shapes decay in novelty.
func Filter(workflows []corpus.GeneratedWorkflow, realismThreshold float64) Report {
	if realismThreshold <= 0 {
		realismThreshold = DefaultRealismThreshold
	}
	seen := make(map[string]bool)
	structures := make(map[string]int)
	report := Report{Accepted: []Score{}, Rejected: []Score{}}

	for _, wf := range workflows {
		fingerprint := Fingerprint(wf.Spec)
		structure := structureKey(wf.Spec)
		structures[structure]++
		novelty := 1 / float64(structures[structure])
		realism := RealismScore(wf.Spec)
		runnability := RunnabilityScore(wf.Spec)

		var reasons []string
		if seen[fingerprint] {
			reasons = append(reasons, "duplicate_fingerprint")
		}
		if realism < realismThreshold {
			reasons = append(reasons, fmt.Sprintf("realism_below_threshold:%.3f", realism))
		}
		if runnability < 1 {
			reasons = append(reasons, "static_runnability_failed")
		}
		if novelty < 0.2 {
			reasons = append(reasons, fmt.Sprintf("low_structural_novelty:%.3f", novelty))
		}

		score := Score{
			ScenarioID:       wf.ScenarioID,
			Fingerprint:      fingerprint,
			RealismScore:     realism,
			NoveltyScore:     novelty,
			RunnabilityScore: runnability,
			Accepted:         len(reasons) == 0,
			Reasons:          reasons,
		}
		if score.Accepted {
			seen[fingerprint] = true
			report.Accepted = append(report.Accepted, score)
		} else {
			report.Rejected = append(report.Rejected, score)
		}
	}
	return report
}

// Fingerprint hashes the canonical JSON of the spec with the scenario seed
// stripped, so re-seeded copies of the same content collide.
func Fingerprint(spec workflow.Spec) string {
	normalized := specAsMap(spec)
	if metadata, ok := normalized["metadata"].(map[string]any); ok {
		trimmed := make(map[string]any, len(metadata))
		for k, v := range metadata {
			if k != "scenario_seed" {
				trimmed[k] = v
			}
		}
		normalized["metadata"] = trimmed
	}
	// Map keys marshal sorted, giving a canonical byte stream.
	payload, err := json.Marshal(normalized)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// RealismScore applies the fixed rubric: objective presence, step count,
// service breadth, the browser+mail+slack triad, record-keeping services and
// declared approvals and constraints. The result is clamped to [0,1].
func RealismScore(spec workflow.Spec) float64 {
	score := 0.0
	if spec.Objective.Statement != "" {
		score += 0.2
	}

	count := len(spec.Steps)
	switch {
	case count >= 4 && count <= 12:
		score += 0.2
	case count >= 3:
		score += 0.1
	}

	services := make(map[string]bool)
	for _, step := range spec.Steps {
		if service := toolService(step.Tool); service != "" {
			services[service] = true
		}
	}
	breadth := 0.1 * float64(len(services))
	if breadth > 0.3 {
		breadth = 0.3
	}
	score += breadth
	if services["browser"] && services["mail"] && services["slack"] {
		score += 0.15
	}
	if services["tickets"] || services["docs"] {
		score += 0.1
	}
	for _, service := range []string{"db", "crm", "erp", "okta", "servicedesk"} {
		if services[service] {
			score += 0.05
		}
	}
	if services["okta"] && services["servicedesk"] {
		score += 0.05
	}

	if len(spec.Approvals) > 0 {
		score += 0.05
	}
	if len(spec.Constraints) > 0 {
		score += 0.05
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// RunnabilityScore compiles the spec and runs static validation without a
// tool set; 1 means both passed.
func RunnabilityScore(spec workflow.Spec) float64 {
	compiled, err := workflow.Compile(spec, 42042)
	if err != nil {
		return 0
	}
	if report := workflow.StaticValidate(compiled, nil); !report.OK {
		return 0
	}
	return 1
}

// toolService normalizes a tool name onto its service family; vendor alias
// prefixes collapse onto crm and erp.
func toolService(tool string) string {
	service, _, found := strings.Cut(tool, ".")
	if !found {
		return ""
	}
	switch service {
	case "salesforce", "hubspot":
		return "crm"
	case "xero", "netsuite", "dynamics", "quickbooks":
		return "erp"
	}
	return service
}

func structureKey(spec workflow.Spec) string {
	if len(spec.Steps) == 0 {
		return "none"
	}
	services := make([]string, 0, len(spec.Steps))
	for _, step := range spec.Steps {
		services = append(services, toolService(step.Tool))
	}
	return strings.Join(services, "|")
}

func specAsMap(spec workflow.Spec) map[string]any {
	raw, err := json.Marshal(spec)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
