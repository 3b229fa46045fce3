package engine

// Policy decides what happens to the rest of a run after a module fails.
type Policy int

const (
	// ContinueIndependent skips modules that transitively depend on a
	// failed module and keeps executing branches that do not. This is the
	// default.
	ContinueIndependent Policy = iota

	// AbortAll cancels every remaining module after the first failure.
	AbortAll
)

func (p Policy) String() string {
	switch p {
	case AbortAll:
		return "abort_all"
	default:
		return "continue_independent"
	}
}
