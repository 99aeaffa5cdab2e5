package domain

// ValidationError reports a user-correctable problem with a file selection.
// Path names the offending file when one is known.
type ValidationError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}
