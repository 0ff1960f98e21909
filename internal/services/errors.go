package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrPrerequisite  = errors.New("prerequisite error")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
	ErrFatalStep     = errors.New("release step failed")
	ErrTolerableStep = errors.New("release step failed (tolerated)")
	ErrCancelled     = errors.New("release cancelled")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrFatalStep
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification label for err, used in logs and in the
// CLI failure summary.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrPrerequisite):
		return "prerequisite"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTolerableStep):
		return "tolerated"
	case errors.Is(err, ErrFatalStep):
		return "step"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unknown"
	}
}

// Hint returns the operator guidance printed after a failed run.
func Hint(err error) string {
	switch Kind(err) {
	case "validation":
		return "Fix the reported input or repository state and rerun; nothing was changed"
	case "prerequisite":
		return "Install the missing tool and rerun; nothing was changed"
	case "configuration":
		return "Edit the configuration (see `shipwright config validate`) and rerun"
	case "cancelled":
		return "Release cancelled before any change was made"
	case "step", "external_tool":
		return "Fix the cause and rerun with the same version; completed steps will be skipped"
	default:
		return ""
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "release failure"
	}
	return strings.Join(parts, ": ")
}
