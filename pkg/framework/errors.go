package framework

import "strings"

// AggregatedError collects the errors of stopped Runnables.
type AggregatedError struct {
	Errors []error
}

// Error implements error.
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return ""
	case 1:
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("Multiple errors:")
	for _, err := range e.Errors {
		sb.WriteByte('\n')
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *AggregatedError) Unwrap() []error {
	return e.Errors
}

// Add adds errors to be aggregated. nil is skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns nil if nothing was collected.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
