package workflow

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/vei/apitypes"
	"goa.design/vei/world"
)

// specSchema is the JSON Schema every workflow document must satisfy before
// it is decoded. Structural errors surface as workflow.invalid_spec with the
// validator's message attached.
const specSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "objective"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "objective": {
      "type": "object",
      "required": ["statement"],
      "properties": {
        "statement": {"type": "string", "minLength": 1},
        "success": {"type": "array", "items": {"type": "string"}}
      }
    },
    "world": {"type": "object"},
    "actors": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["actor_id", "role"],
        "properties": {
          "actor_id": {"type": "string"},
          "role": {"type": "string"},
          "email": {"type": "string"},
          "slack": {"type": "string"}
        }
      }
    },
    "constraints": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "description"],
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string"},
          "required": {"type": "boolean"}
        }
      }
    },
    "approvals": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["stage", "approver"],
        "properties": {
          "stage": {"type": "string"},
          "approver": {"type": "string"},
          "required": {"type": "boolean"},
          "evidence": {"type": "string"}
        }
      }
    },
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["step_id", "description", "tool"],
        "properties": {
          "step_id": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "tool": {"type": "string", "minLength": 1},
          "args": {"type": "object"},
          "expect": {"type": "array", "items": {"$ref": "#/$defs/assertion"}},
          "on_failure": {"type": "string"}
        }
      }
    },
    "success_assertions": {
      "type": "array",
      "items": {"$ref": "#/$defs/assertion"}
    },
    "failure_paths": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "trigger_step"],
        "properties": {
          "name": {"type": "string"},
          "trigger_step": {"type": "string"},
          "recovery_steps": {"type": "array", "items": {"type": "string"}},
          "notes": {"type": "string"}
        }
      }
    },
    "tags": {"type": "array", "items": {"type": "string"}},
    "metadata": {"type": "object"}
  },
  "$defs": {
    "assertion": {
      "type": "object",
      "required": ["kind"],
      "properties": {
        "kind": {
          "enum": [
            "result_contains",
            "result_equals",
            "observation_contains",
            "pending_max"
          ]
        },
        "field": {"type": "string"},
        "contains": {"type": "string"},
        "equals": {"type": "string"},
        "focus": {"type": "string"},
        "max_value": {"type": "integer"},
        "description": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc any
		if schemaErr = json.Unmarshal([]byte(specSchema), &doc); schemaErr != nil {
			return
		}
		c := jsonschema.NewCompiler()
		if schemaErr = c.AddResource("workflow.schema.json", doc); schemaErr != nil {
			return
		}
		schema, schemaErr = c.Compile("workflow.schema.json")
	})
	return schema, schemaErr
}

type (
	// CompiledStep is one step with its position resolved.
	CompiledStep struct {
		// Index is the 1-based position in the workflow.
		Index int
		// StepID is the step's unique id.
		StepID string
		// Description states what the step accomplishes.
		Description string
		// Tool is the registered tool name.
		Tool string
		// Args is the call payload.
		Args map[string]any
		// Expect lists the per-step assertions.
		Expect []Assertion
		// OnFailure is the resolved failure behavior.
		OnFailure string
	}

	// CompiledWorkflow binds the spec to a resolved scenario and indexed
	// steps.
	CompiledWorkflow struct {
		// Spec is the validated source document.
		Spec Spec
		// Scenario is the resolved world, metadata merged with the
		// workflow's provenance.
		Scenario world.Scenario
		// Steps are the indexed steps in order.
		Steps []CompiledStep
		// StepLookup maps step id to its compiled step.
		StepLookup map[string]CompiledStep
	}
)

// ParseSpec validates raw JSON against the workflow schema and decodes it.
func ParseSpec(raw []byte) (Spec, error) {
	s, err := compiledSchema()
	if err != nil {
		return Spec{}, apitypes.Errorf("workflow.invalid_spec", "compile workflow schema: %v", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Spec{}, apitypes.Errorf("workflow.invalid_spec", "parse workflow JSON: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		return Spec{}, apitypes.Errorf("workflow.invalid_spec", "workflow schema violation: %v", err)
	}
	var spec Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return Spec{}, apitypes.Errorf("workflow.invalid_spec", "decode workflow: %v", err)
	}
	return spec, nil
}

// LoadSpecFile reads and parses a workflow JSON document from disk.
func LoadSpecFile(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, apitypes.Errorf("workflow.invalid_spec", "read workflow file: %v", err)
	}
	return ParseSpec(raw)
}

// Compile resolves the workflow's world into a scenario, merges provenance
// into the scenario metadata and indexes the steps. Duplicate step ids are a
// compile error.
func Compile(spec Spec, seed int64) (CompiledWorkflow, error) {
	seen := make(map[string]bool, len(spec.Steps))
	for _, step := range spec.Steps {
		if seen[step.StepID] {
			return CompiledWorkflow{}, apitypes.Errorf(
				"workflow.duplicate_step", "duplicate step_id: %s", step.StepID)
		}
		seen[step.StepID] = true
	}

	scenario, err := world.Resolve(spec.World, seed)
	if err != nil {
		return CompiledWorkflow{}, err
	}
	metadata := make(map[string]any, len(scenario.Metadata)+6)
	for k, v := range scenario.Metadata {
		metadata[k] = v
	}
	metadata["workflow_name"] = spec.Name
	metadata["workflow_objective"] = spec.Objective.Statement
	metadata["workflow_success"] = append([]string(nil), spec.Objective.Success...)
	metadata["workflow_actors"] = spec.Actors
	metadata["workflow_constraints"] = spec.Constraints
	metadata["workflow_approvals"] = spec.Approvals
	metadata["workflow_tags"] = append([]string(nil), spec.Tags...)
	scenario.Metadata = metadata

	steps := make([]CompiledStep, 0, len(spec.Steps))
	lookup := make(map[string]CompiledStep, len(spec.Steps))
	for i, step := range spec.Steps {
		args := step.Args
		if args == nil {
			args = map[string]any{}
		}
		onFailure := step.OnFailure
		if onFailure == "" {
			onFailure = "fail"
		}
		compiled := CompiledStep{
			Index:       i + 1,
			StepID:      step.StepID,
			Description: step.Description,
			Tool:        step.Tool,
			Args:        args,
			Expect:      step.Expect,
			OnFailure:   onFailure,
		}
		steps = append(steps, compiled)
		lookup[step.StepID] = compiled
	}
	return CompiledWorkflow{
		Spec:       spec,
		Scenario:   scenario,
		Steps:      steps,
		StepLookup: lookup,
	}, nil
}
