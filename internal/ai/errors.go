package ai

import (
	"errors"
	"fmt"
)

// ErrTimeout marks a ServiceError caused by the generation call exceeding its
// deadline. Test with errors.Is.
var ErrTimeout = errors.New("generation request timed out")

// ConfigurationError means no usable service credential is configured. It is
// raised before any network attempt.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return "ai: " + e.Reason
	}
	return "ai: generation service credential not configured"
}

// ServiceError wraps a failed call to the external generative-text service.
// Status is the upstream HTTP status when known, zero otherwise.
type ServiceError struct {
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	status := "unknown"
	if e.Status != 0 {
		status = fmt.Sprintf("%d", e.Status)
	}
	return fmt.Sprintf("ai: service error (%s): %s", status, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ContentQualityError reports which quality rule the generated text violated.
// The offending text is never surfaced to callers.
type ContentQualityError struct {
	Rule   string
	Detail string
}

func (e *ContentQualityError) Error() string {
	return fmt.Sprintf("ai: content validation failed: %s", e.Detail)
}
