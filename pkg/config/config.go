// Package config loads workflow configuration documents from JSON or YAML
// files. Module declaration order is preserved so execution order stays
// deterministic across loads.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/canvasflow/canvasflow/pkg/models"
)

// LoadWorkflow reads a workflow configuration document. The format is picked
// from the file extension; anything that is not .yaml or .yml is parsed as
// JSON.
func LoadWorkflow(path string) (*models.WorkflowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	var config models.WorkflowConfig

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse workflow YAML %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse workflow JSON %s: %w", path, err)
		}
	}

	return &config, nil
}
