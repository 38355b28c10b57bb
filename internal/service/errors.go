// Package service holds what every external service adapter shares: the
// error kinds surfaced to the menus and a JSON-over-HTTP client.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for the menus
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindNotConfigured
	KindUnavailable
	KindRetryable
	KindTimeout
	KindRejected
	KindSuperseded
	KindExpired
)

var kindNames = map[Kind]string{
	KindInternal:      "internal",
	KindUnauthorized:  "unauthorized",
	KindNotConfigured: "not configured",
	KindUnavailable:   "unavailable",
	KindRetryable:     "retryable",
	KindTimeout:       "timeout",
	KindRejected:      "rejected",
	KindSuperseded:    "superseded",
	KindExpired:       "expired",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is matching on kind alone
var (
	ErrInternal      = &Error{Kind: KindInternal}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrNotConfigured = &Error{Kind: KindNotConfigured}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
	ErrRetryable     = &Error{Kind: KindRetryable}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrRejected      = &Error{Kind: KindRejected}
	ErrSuperseded    = &Error{Kind: KindSuperseded}
	ErrExpired       = &Error{Kind: KindExpired}
)

// Error is a classified failure of an operation on a service
type Error struct {
	Kind    Kind
	Service string
	Op      string
	Status  int    // HTTP status, when there was a response
	Reason  string // Sanitized, user-visible reason
	Err     error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Service != "" {
		sb.WriteString(e.Service)
		sb.WriteString(" ")
	}
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.Status)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Service == "" && t.Op == ""
}

// KindOf classifies err. Unclassified errors are internal, except
// deadline expiry which is a timeout.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// ReasonOf returns the user-visible reason carried by err, if any
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// ServiceOf returns the service err originated from, if any
func ServiceOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Service
	}
	return ""
}

// NotConfigured reports a service without configuration
func NotConfigured(service string) error {
	return &Error{Kind: KindNotConfigured, Service: service}
}

// Unavailable reports a configured service that failed its health probe
func Unavailable(service string, err error) error {
	return &Error{Kind: KindUnavailable, Service: service, Op: "health", Err: err}
}

// Rejected reports a service refusing an operation
func Rejected(service, op string, status int, reason string) error {
	return &Error{Kind: KindRejected, Service: service, Op: op, Status: status, Reason: reason}
}
