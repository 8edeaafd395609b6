package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Class buckets a failure for retry and reporting decisions.
type Class string

const (
	ClassValidation Class = "validation"
	ClassNotFound   Class = "not_found"
	ClassPermission Class = "permission"
	ClassNetwork    Class = "network"
	ClassStorage    Class = "storage"
	ClassSystem     Class = "system"
	ClassUnknown    Class = "unknown"
)

// Retryable reports whether failures of this class are worth retrying.
func (c Class) Retryable() bool {
	switch c {
	case ClassNetwork, ClassStorage, ClassSystem:
		return true
	default:
		return false
	}
}

// Error is a classified failure with a message suitable for direct display.
type Error struct {
	Class   Class
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error.
func E(class Class, op, message string, err error) *Error {
	return &Error{Class: class, Op: op, Message: message, Err: err}
}

// Validation builds a validation failure rejected before any state change.
func Validation(op, message string) *Error {
	return &Error{Class: ClassValidation, Op: op, Message: message}
}

// NotFound builds a missing-aggregate failure.
func NotFound(op, id string) *Error {
	return &Error{Class: ClassNotFound, Op: op, Message: fmt.Sprintf("record %s not found", id)}
}

// Classify inspects an error and assigns it a class. Wrapped *Error values
// keep their class; everything else is matched on content, the same way the
// database layer matches driver error strings.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Class
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "network"):
		return ClassNetwork
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "403"):
		return ClassPermission
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "disk full"),
		strings.Contains(msg, "no space left"):
		return ClassStorage
	case strings.Contains(msg, "duplicate key value violates unique constraint"),
		strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "validation"):
		return ClassValidation
	case strings.Contains(msg, "not found"):
		return ClassNotFound
	case strings.Contains(msg, "internal"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "too many"):
		return ClassSystem
	default:
		return ClassUnknown
	}
}

// IsValidation reports whether err classifies as a validation failure.
func IsValidation(err error) bool {
	return Classify(err) == ClassValidation
}

// IsNotFound reports whether err classifies as a missing-aggregate failure.
func IsNotFound(err error) bool {
	return Classify(err) == ClassNotFound
}
