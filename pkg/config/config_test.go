package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasflow/canvasflow/pkg/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadWorkflowJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "workflow.json", `{
		"canvas_name": "demo",
		"modules": {
			"s3":   {"identifier": "echo", "user_config": {"content": "bytes"}},
			"proc": {"identifier": "echo", "user_config": {"in": "${s3.output.content}"}}
		},
		"output_control": {"outputs": {"result": "${proc.output.in}"}}
	}`)

	workflow, err := config.LoadWorkflow(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", workflow.Name())
	assert.Equal(t, []string{"s3", "proc"}, workflow.Modules.Order())
	require.NotNil(t, workflow.OutputControl)
	assert.Equal(t, "${proc.output.in}", workflow.OutputControl.Outputs["result"])
}

func TestLoadWorkflowYAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "workflow.yaml", `
workflow_name: demo-yaml
modules:
  s3:
    identifier: echo
    user_config:
      content: bytes
  proc:
    identifier: echo
    user_config:
      in: ${s3.output.content}
`)

	workflow, err := config.LoadWorkflow(path)
	require.NoError(t, err)

	assert.Equal(t, "demo-yaml", workflow.Name())
	assert.Equal(t, []string{"s3", "proc"}, workflow.Modules.Order())

	module, ok := workflow.Modules.Get("proc")
	require.True(t, ok)
	assert.Equal(t, "${s3.output.content}", module.UserConfig["in"])
}

func TestLoadWorkflowErrors(t *testing.T) {
	t.Parallel()

	_, err := config.LoadWorkflow(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := writeFile(t, "broken.json", `{not json`)
	_, err = config.LoadWorkflow(path)
	require.Error(t, err)

	path = writeFile(t, "broken.yaml", "modules: [not: a: mapping")
	_, err = config.LoadWorkflow(path)
	require.Error(t, err)
}
