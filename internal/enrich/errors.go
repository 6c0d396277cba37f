package enrich

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrNotFound           = errors.New("not found")
	ErrModelCall          = errors.New("model call failed")
	ErrModelOutputInvalid = errors.New("model output invalid")
	ErrInvalidOverride    = errors.New("invalid category override")
	ErrOverrideActive     = errors.New("category override active")
)

// wrap tags err with marker so callers can classify it with errors.Is while
// keeping operation context in the message.
func wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "enrichment failure"
	}
	return strings.Join(parts, ": ")
}
