// Package errors provides structured error handling for the Ripple runtime.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindUsage indicates a violated API contract (programmer error).
	KindUsage
	// KindRender indicates a failure raised from a component body.
	KindRender
	// KindHook indicates a failure inside a mount or unmount hook.
	KindHook
	// KindDispatch indicates a callback dispatch failure.
	KindDispatch
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindRender:
		return "render"
	case KindHook:
		return "hook"
	case KindDispatch:
		return "dispatch"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// RippleError represents a structured error in the Ripple runtime.
type RippleError struct {
	// Op is the operation that failed (e.g., "core.Session.Flush").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Node is the id of the element involved, if applicable.
	Node string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *RippleError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s [%s] node=%s: %v", e.Op, e.Kind, e.Node, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *RippleError) Unwrap() error {
	return e.Err
}

// UsageError reports a violated API contract. Usage errors are programmer
// errors: they are raised synchronously, by panic, at the call site that
// violated the contract.
type UsageError struct {
	// Op is the operation that was misused (e.g., "core.Place").
	Op string
	// Detail describes the violation, naming the offending attribute or type.
	Detail string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// Usage panics with a UsageError. It never returns.
func Usage(op, format string, args ...any) {
	panic(&UsageError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// RenderError represents a failure raised while executing a component body.
// It propagates out of the render pass to its caller; the session itself
// remains valid for the next render attempt.
type RenderError struct {
	// Component is the name of the component whose body failed.
	Component string
	// Node is the id of the element being executed.
	Node string
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the underlying error (nil for panics).
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *RenderError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic rendering %s (node %s): %v", e.Component, e.Node, e.Recovered)
	}
	return fmt.Sprintf("error rendering %s (node %s): %v", e.Component, e.Node, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// HookError represents a failure inside a mount or unmount hook. Hook errors
// are recoverable: they are reported and the render pass continues.
type HookError struct {
	// Node is the id of the element whose hook failed.
	Node string
	// Phase is "mount" or "unmount".
	Phase string
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the underlying error (nil for panics).
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *HookError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s hook of node %s: %v", e.Phase, e.Node, e.Recovered)
	}
	return fmt.Sprintf("error in %s hook of node %s: %v", e.Phase, e.Node, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked.
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by the Ripple runtime.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *RippleError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
	// HandleHookError is called when a lifecycle hook fails.
	HandleHookError(err *HookError)
}
