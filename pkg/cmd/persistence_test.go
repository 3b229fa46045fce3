package cmd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canvasflow/canvasflow/pkg/cmd"
	"github.com/canvasflow/canvasflow/pkg/persistence/memory"
)

func TestNewRunRepositoryDefaultsToMemory(t *testing.T) {
	t.Parallel()

	repo := cmd.NewRunRepository("")
	assert.IsType(t, &memory.Repository{}, repo)

	repo = cmd.NewRunRepository("file:///tmp/runs")
	assert.IsType(t, &memory.Repository{}, repo)
}
