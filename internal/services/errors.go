package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDeviceAccess marks denied permissions or missing capture hardware.
	ErrDeviceAccess = errors.New("device access error")
	// ErrUnsupportedFormat marks a runtime without a usable encoder format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrInvalidState marks an operation attempted outside its valid session state.
	ErrInvalidState = errors.New("invalid state")
	// ErrCompression marks an internal encode/decode failure.
	ErrCompression = errors.New("compression error")
	// ErrStorage marks a local persistence failure.
	ErrStorage = errors.New("storage error")
	// ErrSync marks a network or server rejection during a sync pass.
	ErrSync = errors.New("sync error")
	// ErrValidation marks malformed input or configuration supplied by a caller.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration values.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures worth retrying without classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserRecoverable reports whether the failure can be resolved by user action,
// such as granting device permission and retrying.
func UserRecoverable(err error) bool {
	return errors.Is(err, ErrDeviceAccess)
}

// Fatal reports whether the failure means durable offline operation is
// impossible and must be surfaced to the user immediately.
func Fatal(err error) bool {
	return errors.Is(err, ErrStorage)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
