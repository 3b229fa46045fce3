package models

// Handler result statuses on the capability boundary.
const (
	HandlerStatusCompleted = "COMPLETED"
	HandlerStatusFailed    = "FAILED"
)

// HandlerInput is the fully resolved input passed to a task handler. The
// module_id and identifier fields are carried through verbatim alongside the
// recursively resolved user_config.
type HandlerInput struct {
	ModuleID   string         `json:"module_id"`
	Identifier string         `json:"identifier"`
	UserConfig map[string]any `json:"user_config"`
}

// HandlerResult is what a task handler returns. A FAILED result carries a
// human-readable message under the "error" output key.
type HandlerResult struct {
	Status string         `json:"status"`
	Output map[string]any `json:"output"`
}

func (r HandlerResult) Failed() bool {
	return r.Status == HandlerStatusFailed
}

// ErrorMessage extracts the error message from a FAILED result.
func (r HandlerResult) ErrorMessage() string {
	if msg, ok := r.Output["error"].(string); ok && msg != "" {
		return msg
	}

	return "unknown error"
}
