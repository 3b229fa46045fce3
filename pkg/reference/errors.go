package reference

import (
	"errors"
	"fmt"
)

// Standard resolution error types.
var (
	// ErrUnresolvedDependency indicates a reference names a module with no
	// recorded output (not yet executed, or failed).
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrMissingOutputKey indicates the referenced module has output, but
	// the output lacks the requested key.
	ErrMissingOutputKey = errors.New("missing output key")

	// ErrInvalidReferenceSyntax indicates a reference template embedded in a
	// larger string; partial string interpolation is not supported.
	ErrInvalidReferenceSyntax = errors.New("invalid reference syntax")
)

// ResolutionError wraps a resolution failure with the reference site.
type ResolutionError struct {
	ModuleID  string
	OutputKey string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve reference %s.output.%s: %v", e.ModuleID, e.OutputKey, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// SyntaxError reports a reference pattern embedded in a longer string.
type SyntaxError struct {
	Value string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("partial string interpolation is not supported: %q", e.Value)
}

func (e *SyntaxError) Unwrap() error {
	return ErrInvalidReferenceSyntax
}
