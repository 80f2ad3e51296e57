package service

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/pkg/errors"
)

// Diagnostic describes a failed approval for the admin report.
type Diagnostic struct {
	Kind    string
	Message string
	Trace   string
}

// PanicError carries a value recovered during approval.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func recoverPanic(v interface{}) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// wrapperKinds are error types that only carry a message, a stack or a
// wrapped cause. They never name the failure.
var wrapperKinds = map[string]bool{
	"*errors.fundamental": true,
	"*errors.withStack":   true,
	"*errors.withMessage": true,
	"*errors.errorString": true,
	"*errors.joinError":   true,
	"*fmt.wrapError":      true,
	"*fmt.wrapErrors":     true,
}

// NewDiagnostic extracts kind, message and trace from err. Kind is the
// outermost named error type in the chain, or "error" when the chain holds
// only message wrappers. Traces come from the recovered stack for panics or
// the deepest pkg/errors frame set.
func NewDiagnostic(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}
	d := Diagnostic{Message: err.Error()}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		d.Kind = "panic"
		d.Trace = string(panicErr.Stack)
		return d
	}

	d.Kind = "error"
	named := false
	var deepest stackTracer
	for e := err; e != nil; e = unwrap(e) {
		if kind := fmt.Sprintf("%T", e); !named && !wrapperKinds[kind] {
			d.Kind = kind
			named = true
		}
		if st, ok := e.(stackTracer); ok {
			deepest = st
		}
	}
	if deepest != nil {
		d.Trace = strings.TrimLeft(fmt.Sprintf("%+v", deepest.StackTrace()), "\n")
	}
	return d
}

func unwrap(err error) error {
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}
	if c, ok := err.(interface{ Cause() error }); ok {
		return c.Cause()
	}
	return nil
}

// Body renders the private message sent to admins.
func (d Diagnostic) Body(requestID uint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bulk Update Request #%d failed\n\n", requestID)
	fmt.Fprintf(&b, "Exception: %s\n\n", d.Kind)
	fmt.Fprintf(&b, "Message: %s\n\n", d.Message)
	b.WriteString("Stack trace:\n")
	if d.Trace != "" {
		b.WriteString(d.Trace)
		if !strings.HasSuffix(d.Trace, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}
