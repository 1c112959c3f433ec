// Package errs is the single structured error channel shared by the domain,
// the application layer and the adapters.
//
// Expected rule violations are returned as values of this package; panics are
// reserved for programming errors.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure for callers that need to react to it (HTTP status,
// retries, logging level).
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error is one structured failure. Field is empty for failures that are not
// tied to an input field.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Field != "" {
		b.WriteString(" [")
		b.WriteString(e.Field)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Validation builds a field-level validation failure.
func Validation(field, code, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: message}
}

// Internal wraps an infrastructure fault.
func Internal(code string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: "internal error", Cause: cause}
}

// List is a collected set of failures reported together.
type List []*Error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	parts := make([]string, 0, len(l))
	for _, e := range l {
		parts = append(parts, e.Error())
	}
	return fmt.Sprintf("%d errors: %s", len(l), strings.Join(parts, "; "))
}

// Unwrap exposes the members to errors.Is / errors.As.
func (l List) Unwrap() []error {
	out := make([]error, 0, len(l))
	for _, e := range l {
		out = append(out, e)
	}
	return out
}

// Collector accumulates failures from several independent checks.
type Collector struct {
	list List
}

// Add records err. *Error and List values are flattened; any other error is
// wrapped as internal. Nil is ignored.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	var list List
	if errors.As(err, &list) {
		c.list = append(c.list, list...)
		return
	}
	var e *Error
	if errors.As(err, &e) {
		c.list = append(c.list, e)
		return
	}
	c.list = append(c.list, Internal("Internal.Unexpected", err))
}

func (c *Collector) Len() int { return len(c.list) }

// Err returns nil when nothing was collected, so callers never see a typed nil.
func (c *Collector) Err() error {
	if len(c.list) == 0 {
		return nil
	}
	out := make(List, len(c.list))
	copy(out, c.list)
	return out
}

// Flatten returns every structured failure carried by err.
func Flatten(err error) List {
	if err == nil {
		return nil
	}
	var list List
	if errors.As(err, &list) {
		return list
	}
	var e *Error
	if errors.As(err, &e) {
		return List{e}
	}
	return List{Internal("Internal.Unexpected", err)}
}

// KindOf reports the kind of err. A list takes the kind of its first member;
// unstructured errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	list := Flatten(err)
	if len(list) == 0 {
		return KindInternal
	}
	return list[0].Kind
}

// Codes lists the codes carried by err in order.
func Codes(err error) []string {
	list := Flatten(err)
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Code)
	}
	return out
}

// HasCode reports whether any failure carried by err has the given code.
func HasCode(err error, code string) bool {
	for _, c := range Codes(err) {
		if c == code {
			return true
		}
	}
	return false
}
