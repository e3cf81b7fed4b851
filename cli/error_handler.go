package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/nudge/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message for err based on its code and returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	ne := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "Error: %s\n", ne.Message)
		fmt.Fprintln(h.Out, "Create a nudge.yml or run 'nudge config schema' to see the available settings.")

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(h.Out, "Error: %s\n", ne.Message)
		if cause := ne.Cause; cause != nil {
			fmt.Fprintf(h.Out, "  %v\n", cause)
		}
		if sources, ok := ne.Details["sources"]; ok {
			fmt.Fprintf(h.Out, "  merged from: %v\n", sources)
		}

	case errors.ErrCodeDaemonUnavailable:
		fmt.Fprintln(h.Out, "Error: nudge daemon is not running")
		fmt.Fprintln(h.Out, "Start it with 'nudge daemon start'.")

	case errors.ErrCodeInvalidTransition:
		fmt.Fprintf(h.Out, "Error: event '%v' is not allowed in state '%v'\n", ne.Details["event"], ne.Details["state"])

	case errors.ErrCodePauseActive:
		fmt.Fprintf(h.Out, "Error: %s\n", ne.Message)
		fmt.Fprintln(h.Out, "Run 'nudge resume' to lift the pause.")

	default:
		fmt.Fprintf(h.Out, "Error: %v\n", err)
	}

	if h.Verbose && ne != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", ne.ToJSON())
	}
	return err
}
