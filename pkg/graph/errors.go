package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/canvasflow/canvasflow/pkg/registry"
)

// Standard configuration error types, all detected before any module runs.
var (
	// ErrUnknownModuleReference indicates a config references a module id
	// that does not exist in the module set.
	ErrUnknownModuleReference = errors.New("unknown module reference")

	// ErrCircularDependency indicates the module graph contains a cycle.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrMissingRequiredField indicates a module's user_config lacks a
	// field its handler schema requires.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrNoModules indicates an empty module set.
	ErrNoModules = errors.New("no modules defined in configuration")
)

// UnknownModuleError names the dangling reference and the module that made it.
type UnknownModuleError struct {
	ModuleID     string // the referencing module
	ReferencedID string // the dangling id
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("module %q references non-existent module %q", e.ModuleID, e.ReferencedID)
}

func (e *UnknownModuleError) Unwrap() error {
	return ErrUnknownModuleReference
}

// UnknownHandlerError names a module whose identifier has no registered
// handler factory.
type UnknownHandlerError struct {
	ModuleID   string
	Identifier string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("module %q has unrecognized identifier %q", e.ModuleID, e.Identifier)
}

func (e *UnknownHandlerError) Unwrap() error {
	return registry.ErrUnknownHandlerType
}

// MissingFieldError names the required user_config fields a module lacks.
type MissingFieldError struct {
	ModuleID string
	Fields   []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("module %q is missing required fields: %s", e.ModuleID, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingRequiredField
}

// CycleError reports the full cycle path: an ordered list of module ids that
// starts and ends on the same id, where each consecutive pair is a dependency
// edge.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCircularDependency
}
