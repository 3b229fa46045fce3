// Package graph builds validated, deterministically ordered workflow
// definitions from module configuration documents.
package graph

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/reference"
	"github.com/canvasflow/canvasflow/pkg/registry"
)

// Builder scans module configurations, extracts dependency edges, validates
// the graph, and produces a topological execution order. It is stateless over
// its inputs.
type Builder struct {
	registry *registry.Registry
	logger   *slog.Logger
	validate *validator.Validate
}

func NewBuilder(reg *registry.Registry, logger *slog.Logger) *Builder {
	return &Builder{
		registry: reg,
		logger:   logger.With("module", "graph_builder"),
		validate: validator.New(),
	}
}

// Build validates a configuration document and returns its workflow
// definition. All configuration errors surface here, before any module
// executes; a failed build never partially succeeds.
func (b *Builder) Build(config *models.WorkflowConfig) (*models.WorkflowDefinition, error) {
	if config.Modules == nil || config.Modules.Len() == 0 {
		return nil, ErrNoModules
	}

	modules := config.Modules

	for _, module := range modules.All() {
		if err := b.validate.Struct(module); err != nil {
			return nil, fmt.Errorf("module %q is invalid: %w", module.ID, err)
		}
	}

	edges, err := b.extractEdges(modules)
	if err != nil {
		return nil, err
	}

	if err := b.validateHandlers(modules); err != nil {
		return nil, err
	}

	if path := findCycle(modules.Order(), edges); path != nil {
		return nil, &CycleError{Path: path}
	}

	order := topologicalOrder(modules.Order(), edges)

	b.logger.Debug("Built workflow definition",
		"workflow", config.Name(),
		"modules", modules.Len(),
		"execution_order", order,
	)

	definition := &models.WorkflowDefinition{
		Name:            config.Name(),
		Modules:         modules,
		ExecutionOrder:  order,
		DependencyEdges: edges,
	}

	if config.OutputControl != nil {
		definition.Outputs = config.OutputControl.Outputs
	}

	return definition, nil
}

// extractEdges detects each module's direct predecessor set and validates
// every referenced module exists.
func (b *Builder) extractEdges(modules *models.ModuleSet) (map[string][]string, error) {
	edges := make(map[string][]string, modules.Len())

	for _, module := range modules.All() {
		deps := reference.Detect(module.UserConfig)

		for _, dep := range deps {
			if _, ok := modules.Get(dep); !ok {
				return nil, &UnknownModuleError{ModuleID: module.ID, ReferencedID: dep}
			}
		}

		edges[module.ID] = deps
	}

	return edges, nil
}

// validateHandlers checks every identifier resolves to a registered factory
// and that schema-required user_config fields are present. Only field
// presence is enforced here: values may still be unresolved references, so
// type checks belong to the handler at execution time.
func (b *Builder) validateHandlers(modules *models.ModuleSet) error {
	for _, module := range modules.All() {
		factory, err := b.registry.HandlerFactory(module.Identifier)
		if err != nil {
			return &UnknownHandlerError{ModuleID: module.ID, Identifier: module.Identifier}
		}

		required := requiredFields(factory.Schema())
		if len(required) == 0 {
			continue
		}

		presence := map[string]any{"type": "object", "required": required}

		config := module.UserConfig
		if config == nil {
			config = map[string]any{}
		}

		result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(presence), gojsonschema.NewGoLoader(config))
		if err != nil {
			return fmt.Errorf("failed to validate config of module %q: %w", module.ID, err)
		}

		if !result.Valid() {
			missing := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				if property, ok := desc.Details()["property"].(string); ok {
					missing = append(missing, property)
				}
			}

			return &MissingFieldError{ModuleID: module.ID, Fields: missing}
		}
	}

	return nil
}

func requiredFields(schema map[string]any) []string {
	if schema == nil {
		return nil
	}

	var fields []string

	switch required := schema["required"].(type) {
	case []string:
		fields = append(fields, required...)
	case []any:
		for _, field := range required {
			if name, ok := field.(string); ok {
				fields = append(fields, name)
			}
		}
	}

	return fields
}

const (
	colorWhite = iota
	colorGray
	colorBlack
)

// findCycle runs a three-color depth-first traversal over the dependency
// edges and returns the full cycle path if one exists, oriented so that each
// consecutive pair (m, n) means n references m.
func findCycle(order []string, edges map[string][]string) []string {
	colors := make(map[string]int, len(order))

	var stack []string

	var visit func(id string) []string

	visit = func(id string) []string {
		colors[id] = colorGray
		stack = append(stack, id)

		for _, dep := range edges[id] {
			switch colors[dep] {
			case colorGray:
				return closeCycle(stack, dep)
			case colorWhite:
				if path := visit(dep); path != nil {
					return path
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = colorBlack

		return nil
	}

	for _, id := range order {
		if colors[id] == colorWhite {
			if path := visit(id); path != nil {
				return path
			}
		}
	}

	return nil
}

// closeCycle slices the traversal stack from the revisited gray node and
// closes the loop. The stack walks referencing module -> referenced module,
// so the slice is reversed to report dependency edges in m -> n order.
func closeCycle(stack []string, start string) []string {
	var from int

	for i, id := range stack {
		if id == start {
			from = i

			break
		}
	}

	segment := stack[from:]
	path := make([]string, 0, len(segment)+1)

	for i := len(segment) - 1; i >= 0; i-- {
		path = append(path, segment[i])
	}

	path = append(path, segment[len(segment)-1])

	return path
}

// topologicalOrder runs Kahn's algorithm, breaking ties by the original
// insertion order of module ids so the result is reproducible across runs
// with identical input. Assumes the graph is acyclic.
func topologicalOrder(order []string, edges map[string][]string) []string {
	indegree := make(map[string]int, len(order))
	for _, id := range order {
		indegree[id] = len(edges[id])
	}

	result := make([]string, 0, len(order))
	placed := make(map[string]bool, len(order))

	for len(result) < len(order) {
		for _, id := range order {
			if placed[id] || indegree[id] != 0 {
				continue
			}

			placed[id] = true
			result = append(result, id)

			for _, other := range order {
				for _, dep := range edges[other] {
					if dep == id {
						indegree[other]--
					}
				}
			}

			break
		}
	}

	return result
}
