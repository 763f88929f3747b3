package macro

import "fmt"

// ValidationCode identifies the kind of schema check a candidate
// configuration failed.
type ValidationCode string

const (
	CodeMissingField   ValidationCode = "missing_field"
	CodeUnknownMacro   ValidationCode = "unknown_macro"
	CodeMissingKwarg   ValidationCode = "missing_kwarg"
	CodeMalformedShape ValidationCode = "malformed_shape"
)

// ValidationError reports the first schema violation found in a candidate
// configuration. Field locates the offending invocation within the document,
// e.g. "full_name.inner_macro_list[0]".
type ValidationError struct {
	Code    ValidationCode
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s at %q: %s", e.Code, e.Field, e.Message)
}

// ResolutionError reports a structurally broken invocation hit at resolve
// time. Missing sample data is not an error; it degrades to nil or an empty
// string, so this only fires on shapes the validator would have rejected.
type ResolutionError struct {
	Kind    string
	Message string
}

func (e *ResolutionError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("cannot resolve macro: %s", e.Message)
	}
	return fmt.Sprintf("cannot resolve %s: %s", e.Kind, e.Message)
}
