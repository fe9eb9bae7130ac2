// Package huberrors provides sentinel and custom error types for the delegation hub.
package huberrors

import "fmt"

// Kind classifies an Error for HTTP status mapping.
type Kind uint8

const (
	KindNotFound Kind = iota + 1
	KindInvalid
	KindConflict
)

// Error describes a failure tied to a stored record or a request field.
// Two Errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind Kind
	// Resource is the record type: person, task, agent.
	Resource string
	// Key identifies the record, usually its external id.
	Key string
	// Field names the offending input for KindInvalid.
	Field   string
	Message string
}

// Sentinels for errors.Is. They carry only a kind.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrValidation = &Error{Kind: KindInvalid}
	ErrConflict   = &Error{Kind: KindConflict}
)

// NotFound reports that no resource is stored under key.
func NotFound(resource, key string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, Key: key}
}

// Invalid reports a rejected input field.
func Invalid(field, message string) *Error {
	return &Error{Kind: KindInvalid, Field: field, Message: message}
}

// Conflict reports that a resource with key is already stored.
func Conflict(resource, key string) *Error {
	return &Error{Kind: KindConflict, Resource: resource, Key: key}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}

	subject := e.Resource
	if subject == "" {
		subject = "record"
	}

	if e.Key != "" {
		subject = fmt.Sprintf("%s %q", subject, e.Key)
	}

	switch e.Kind {
	case KindNotFound:
		return subject + " not found"
	case KindConflict:
		return subject + " already exists"
	case KindInvalid:
		if e.Field != "" {
			return "invalid " + e.Field
		}

		return "invalid input"
	default:
		return subject + ": unknown error"
	}
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.Kind == e.Kind
}
