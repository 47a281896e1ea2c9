package db

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindNetwork is a transport or connection failure.
	KindNetwork Kind = "network"
	// KindTimeout is a request that exceeded its configured duration.
	KindTimeout Kind = "timeout"
	// KindQuery is a query the backend rejected.
	KindQuery Kind = "query"
	// KindParse is a response body that did not have the expected shape.
	KindParse Kind = "parse"
	// KindConfig is a profile that could not be decoded.
	KindConfig Kind = "config"
	// KindValidation is malformed caller input.
	KindValidation Kind = "validation"
	// KindNotFound is an unknown connection or entity.
	KindNotFound Kind = "not_found"
)

// Error wraps an error with its kind and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var ErrConnectionNotFound = NewError(KindNotFound, "Connection not found")
