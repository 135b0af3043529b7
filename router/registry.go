// Package router is the tool-call surface of the virtual enterprise: a
// registry of tool specs, a dispatcher that charges deterministic latency
// per call, an observation composer, and an append-only trace.
package router

import (
	"sort"
	"strings"

	"goa.design/vei/apitypes"
)

type (
	// ToolSpec describes one registered tool. Specs are immutable once
	// registered and names are unique.
	ToolSpec struct {
		// Name is the dotted tool identifier, e.g. "tickets.transition".
		Name string
		// Description feeds tool search and agent prompts.
		Description string
		// Permissions lists the permission scopes the tool requires.
		Permissions []string
		// SideEffects tags the state the tool may mutate.
		SideEffects []string
		// DefaultLatencyMS is the base latency charged after the handler
		// returns.
		DefaultLatencyMS int64
		// LatencyJitterMS bounds the deterministic jitter around the base.
		LatencyJitterMS int64
		// NominalCost is the abstract budget cost of one call.
		NominalCost float64
		// Returns sketches the response shape for help output.
		Returns string
		// FaultProbability injects tool_unavailable at this rate.
		FaultProbability float64
	}

	// Registry maps tool names to specs, preserving insertion order for
	// deterministic menus and search tiebreaks.
	Registry struct {
		specs map[string]ToolSpec
		order []string
	}

	// SearchHit is one ranked tool from Registry.Search.
	SearchHit struct {
		Name        string
		Description string
		Score       float64
	}
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]ToolSpec)}
}

// Register adds a spec; a duplicate name fails with registry.duplicate.
func (r *Registry) Register(spec ToolSpec) error {
	if _, exists := r.specs[spec.Name]; exists {
		return apitypes.Errorf("registry.duplicate", "tool already registered: %s", spec.Name)
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Get looks up a spec by name.
func (r *Registry) Get(name string) (ToolSpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns all registered tool names sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	sort.Strings(out)
	return out
}

// List returns all specs in registration order.
func (r *Registry) List() []ToolSpec {
	out := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

// Search ranks tools by name-prefix match and token overlap against the
// description, with a stable tiebreak on name.
func (r *Registry) Search(query string, topK int) []SearchHit {
	if topK <= 0 {
		return nil
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	tokens := strings.Fields(needle)
	var hits []SearchHit
	for _, name := range r.order {
		spec := r.specs[name]
		score := 0.0
		lowName := strings.ToLower(name)
		if needle != "" && strings.HasPrefix(lowName, needle) {
			score += 2
		} else if needle != "" && strings.Contains(lowName, needle) {
			score += 1
		}
		lowDesc := strings.ToLower(spec.Description)
		for _, tok := range tokens {
			if strings.Contains(lowDesc, tok) {
				score += 0.5
			}
		}
		if score > 0 {
			hits = append(hits, SearchHit{Name: name, Description: spec.Description, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Name < hits[j].Name
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
