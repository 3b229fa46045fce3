package graph_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasflow/canvasflow/pkg/graph"
	"github.com/canvasflow/canvasflow/pkg/handlers/echo"
	loghandler "github.com/canvasflow/canvasflow/pkg/handlers/log"
	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/registry"
)

func newTestBuilder(t *testing.T) *graph.Builder {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.NewRegistry(logger)
	reg.RegisterHandler(echo.NewFactory())
	reg.RegisterHandler(loghandler.NewFactory())

	return graph.NewBuilder(reg, logger)
}

func newConfig(modules ...*models.Module) *models.WorkflowConfig {
	set := models.NewModuleSet()
	for _, module := range modules {
		set.Add(module)
	}

	return &models.WorkflowConfig{WorkflowName: "test", Modules: set}
}

func ref(moduleID, outputKey string) map[string]any {
	return map[string]any{"module_id": moduleID, "output_key": outputKey}
}

func TestBuildOrdersDiamond(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	config := newConfig(
		&models.Module{ID: "a", Identifier: "echo", UserConfig: map[string]any{"v": 1}},
		&models.Module{ID: "b", Identifier: "echo", UserConfig: map[string]any{"in": ref("a", "v")}},
		&models.Module{ID: "c", Identifier: "echo", UserConfig: map[string]any{"in": "${a.output.v}"}},
		&models.Module{ID: "d", Identifier: "echo", UserConfig: map[string]any{
			"left":  ref("b", "in"),
			"right": ref("c", "in"),
		}},
	)

	definition, err := builder.Build(config)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, definition.ExecutionOrder)
	assert.ElementsMatch(t, []string{"b", "c"}, definition.Predecessors("d"))
	assert.Empty(t, definition.Predecessors("a"))
}

func TestBuildOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	// c is declared first but depends on a, so a still runs first; among
	// ready modules the declaration order breaks the tie.
	config := newConfig(
		&models.Module{ID: "c", Identifier: "echo", UserConfig: map[string]any{"in": ref("a", "v")}},
		&models.Module{ID: "a", Identifier: "echo", UserConfig: map[string]any{"v": 1}},
		&models.Module{ID: "b", Identifier: "echo", UserConfig: map[string]any{"in": ref("a", "v")}},
	)

	for range 5 {
		definition, err := builder.Build(config)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "b"}, definition.ExecutionOrder)
	}
}

func TestBuildEndToEndScenarioOrder(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	config := newConfig(
		&models.Module{ID: "s3", Identifier: "echo", UserConfig: map[string]any{"content": "file bytes"}},
		&models.Module{ID: "proc", Identifier: "echo", UserConfig: map[string]any{
			"input_content": ref("s3", "content"),
		}},
	)

	definition, err := builder.Build(config)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "proc"}, definition.ExecutionOrder)
}

func TestBuildRejectsUnknownModuleReference(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	config := newConfig(
		&models.Module{ID: "a", Identifier: "echo", UserConfig: map[string]any{"in": ref("ghost", "x")}},
	)

	_, err := builder.Build(config)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrUnknownModuleReference)

	var unknownErr *graph.UnknownModuleError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "a", unknownErr.ModuleID)
	assert.Equal(t, "ghost", unknownErr.ReferencedID)
}

func TestBuildRejectsCycle(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	config := newConfig(
		&models.Module{ID: "a", Identifier: "echo", UserConfig: map[string]any{"in": ref("c", "x")}},
		&models.Module{ID: "b", Identifier: "echo", UserConfig: map[string]any{"in": ref("a", "x")}},
		&models.Module{ID: "c", Identifier: "echo", UserConfig: map[string]any{"in": ref("b", "x")}},
	)

	_, err := builder.Build(config)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrCircularDependency)

	var cycleErr *graph.CycleError
	require.ErrorAs(t, err, &cycleErr)

	path := cycleErr.Path
	require.Len(t, path, 4)
	assert.Equal(t, path[0], path[len(path)-1])
	assert.ElementsMatch(t, []string{"a", "b", "c"}, path[:3])
}

func TestBuildRejectsUnknownHandler(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	config := newConfig(
		&models.Module{ID: "a", Identifier: "no_such_handler"},
	)

	_, err := builder.Build(config)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrUnknownHandlerType)
}

func TestBuildRejectsMissingRequiredField(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	config := newConfig(
		&models.Module{ID: "a", Identifier: "log", UserConfig: map[string]any{"level": "info"}},
	)

	_, err := builder.Build(config)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrMissingRequiredField)

	var missingErr *graph.MissingFieldError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "a", missingErr.ModuleID)
	assert.Contains(t, missingErr.Fields, "message")
}

func TestBuildAllowsReferenceAsRequiredField(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	// A required field satisfied by an unresolved reference must pass the
	// build; its value is only known at execution time.
	config := newConfig(
		&models.Module{ID: "a", Identifier: "echo", UserConfig: map[string]any{"v": "hi"}},
		&models.Module{ID: "b", Identifier: "log", UserConfig: map[string]any{"message": ref("a", "v")}},
	)

	_, err := builder.Build(config)
	require.NoError(t, err)
}

func TestBuildRejectsEmptyWorkflow(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	_, err := builder.Build(&models.WorkflowConfig{WorkflowName: "empty", Modules: models.NewModuleSet()})
	assert.ErrorIs(t, err, graph.ErrNoModules)

	_, err = builder.Build(&models.WorkflowConfig{WorkflowName: "nil"})
	assert.ErrorIs(t, err, graph.ErrNoModules)
}

func TestBuildRejectsInvalidModule(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	config := newConfig(&models.Module{ID: "a"})

	_, err := builder.Build(config)
	require.Error(t, err)
	assert.False(t, errors.Is(err, graph.ErrUnknownModuleReference))
}

func TestBuildCarriesOutputControl(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)

	config := newConfig(
		&models.Module{ID: "a", Identifier: "echo", UserConfig: map[string]any{"v": 1}},
	)
	config.OutputControl = &models.OutputControl{
		Outputs: map[string]any{"result": "${a.output.v}"},
	}

	definition, err := builder.Build(config)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "${a.output.v}"}, definition.Outputs)
}
