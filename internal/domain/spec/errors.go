package spec

import "fmt"

// ValidationError describes the first invariant a SnapApp violates.
type ValidationError struct {
	// App is the id of the app being validated (may be empty when Id itself is missing).
	App string
	// Field is the path of the offending field, e.g. "Channels[1].Name".
	Field string
	// Message says what is wrong with the field.
	Message string
}

// Error implements error.
func (e *ValidationError) Error() string {
	app := e.App
	if app == "" {
		app = "<unnamed>"
	}

	return fmt.Sprintf("app %s: %s: %s", app, e.Field, e.Message)
}

func invalid(app *SnapApp, field, format string, args ...any) error {
	return &ValidationError{
		App:     app.ID,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
