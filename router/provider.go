package router

import (
	"strings"

	"goa.design/vei/apitypes"
)

// ToolProvider contributes a pack of tools to the router: the specs it
// registers and the handler serving every name under its prefixes.
type ToolProvider interface {
	// Name identifies the provider in help output.
	Name() string
	// Prefixes lists the dotted name prefixes the provider claims.
	Prefixes() []string
	// Specs returns the tool specs to register.
	Specs() []ToolSpec
	// Call dispatches one tool invocation.
	Call(tool string, args map[string]any) (any, error)
}

// PrefixProvider is the reusable prefix-claiming base: a name, the claimed
// prefixes, and a handler table keyed by full tool name.
type PrefixProvider struct {
	name     string
	prefixes []string
	specs    []ToolSpec
	handlers map[string]func(args map[string]any) (any, error)
}

// NewPrefixProvider builds a provider from a spec list and handler table.
func NewPrefixProvider(name string, prefixes []string, specs []ToolSpec, handlers map[string]func(args map[string]any) (any, error)) *PrefixProvider {
	return &PrefixProvider{name: name, prefixes: prefixes, specs: specs, handlers: handlers}
}

func (p *PrefixProvider) Name() string       { return p.name }
func (p *PrefixProvider) Prefixes() []string { return p.prefixes }
func (p *PrefixProvider) Specs() []ToolSpec  { return p.specs }

// Handles reports whether the tool name falls under a claimed prefix.
func (p *PrefixProvider) Handles(tool string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(tool, prefix) {
			return true
		}
	}
	return false
}

// Call dispatches to the handler table.
func (p *PrefixProvider) Call(tool string, args map[string]any) (any, error) {
	handler, ok := p.handlers[tool]
	if !ok {
		return nil, apitypes.Errorf("unknown_tool", "no such tool: %s", tool)
	}
	if args == nil {
		args = map[string]any{}
	}
	return handler(args)
}
