package models

// WorkflowConfig is the external configuration document consumed by the graph
// builder. Either canvas_name or workflow_name may carry the display name.
type WorkflowConfig struct {
	CanvasName    string         `json:"canvas_name,omitempty"    yaml:"canvas_name,omitempty"`
	WorkflowName  string         `json:"workflow_name,omitempty"  yaml:"workflow_name,omitempty"`
	Modules       *ModuleSet     `json:"modules"                  yaml:"modules"                  validate:"required"`
	OutputControl *OutputControl `json:"output_control,omitempty" yaml:"output_control,omitempty"`
}

const defaultWorkflowName = "default_workflow"

// Name returns the workflow display name, preferring canvas_name.
func (c *WorkflowConfig) Name() string {
	if c.CanvasName != "" {
		return c.CanvasName
	}

	if c.WorkflowName != "" {
		return c.WorkflowName
	}

	return defaultWorkflowName
}

// OutputControl declares which final fields a run surfaces. Each output value
// is itself a reference expression resolved against the final state.
type OutputControl struct {
	Outputs map[string]any `json:"outputs" yaml:"outputs"`
}

// WorkflowDefinition is a validated module set plus a deterministic execution
// order and the dependency edges the builder extracted.
type WorkflowDefinition struct {
	Name           string     `json:"name"`
	Modules        *ModuleSet `json:"modules"`
	ExecutionOrder []string   `json:"execution_order"`
	// DependencyEdges maps a module id to the ids of the modules it
	// references (its direct predecessors).
	DependencyEdges map[string][]string `json:"dependency_edges"`
	Outputs         map[string]any      `json:"outputs,omitempty"`
}

// Predecessors returns the direct predecessor set of a module.
func (d *WorkflowDefinition) Predecessors(id string) []string {
	return d.DependencyEdges[id]
}
