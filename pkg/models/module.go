// Package models contains the core workflow data structures.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Module is one task node of a workflow. ID is the caller-assigned unique
// key, Identifier names the handler type, and UserConfig holds literals and
// references to upstream outputs. Modules are immutable once a run starts.
type Module struct {
	ID         string         `json:"module_id"             validate:"required"`
	Identifier string         `json:"identifier"            validate:"required"`
	UserConfig map[string]any `json:"user_config,omitempty"`
}

// ModuleSet is an insertion-ordered collection of modules keyed by id. The
// declaration order of the source document is preserved, which keeps
// execution-order tie-breaking reproducible.
type ModuleSet struct {
	order   []string
	modules map[string]*Module
}

func NewModuleSet() *ModuleSet {
	return &ModuleSet{modules: make(map[string]*Module)}
}

// Add inserts a module. Re-adding an existing id replaces the module without
// changing its position.
func (s *ModuleSet) Add(module *Module) {
	if _, ok := s.modules[module.ID]; !ok {
		s.order = append(s.order, module.ID)
	}

	s.modules[module.ID] = module
}

func (s *ModuleSet) Get(id string) (*Module, bool) {
	module, ok := s.modules[id]

	return module, ok
}

func (s *ModuleSet) Len() int {
	return len(s.order)
}

// Order returns the module ids in declaration order.
func (s *ModuleSet) Order() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)

	return ids
}

// All returns the modules in declaration order.
func (s *ModuleSet) All() []*Module {
	modules := make([]*Module, 0, len(s.order))
	for _, id := range s.order {
		modules = append(modules, s.modules[id])
	}

	return modules
}

// UnmarshalJSON decodes a {"<module_id>": {"identifier": ..., ...}} mapping.
// The standard map decoding would lose key order, so the object is walked
// token by token.
func (s *ModuleSet) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("modules must be a JSON object, got %v", token)
	}

	s.order = nil
	s.modules = make(map[string]*Module)

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}

		id, ok := token.(string)
		if !ok {
			return fmt.Errorf("module key must be a string, got %v", token)
		}

		var module Module
		if err := decoder.Decode(&module); err != nil {
			return fmt.Errorf("failed to decode module %q: %w", id, err)
		}

		module.ID = id
		s.Add(&module)
	}

	// Consume the closing brace.
	if _, err := decoder.Token(); err != nil {
		return err
	}

	return nil
}

// MarshalJSON encodes the set as an ordered {"<module_id>": {...}} object.
func (s *ModuleSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, id := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}

		module := s.modules[id]

		value, err := json.Marshal(moduleBody{Identifier: module.Identifier, UserConfig: module.UserConfig})
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// moduleBody is the document form of a module, without the id key.
type moduleBody struct {
	Identifier string         `json:"identifier"            yaml:"identifier"`
	UserConfig map[string]any `json:"user_config,omitempty" yaml:"user_config,omitempty"`
}

// UnmarshalYAML decodes the same mapping from YAML, preserving key order via
// the node's content pairs.
func (s *ModuleSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("modules must be a YAML mapping, got %v", node.Kind)
	}

	s.order = nil
	s.modules = make(map[string]*Module)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		var body moduleBody
		if err := valueNode.Decode(&body); err != nil {
			return fmt.Errorf("failed to decode module %q: %w", keyNode.Value, err)
		}

		s.Add(&Module{
			ID:         keyNode.Value,
			Identifier: body.Identifier,
			UserConfig: body.UserConfig,
		})
	}

	return nil
}
