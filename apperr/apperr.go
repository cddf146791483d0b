// Package apperr classifies awslate failures.
//
// Every error that crosses a package boundary is either a plain wrapped
// error or an *Error carrying a Kind. The Kind decides how far a failure
// propagates: service failures stay at the leaf, structural and I/O
// failures abort one language, configuration failures abort the run.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes errors.
type Kind string

const (
	KindStructural Kind = "structural"
	KindService    Kind = "service"
	KindIO         Kind = "io"
	KindConfig     Kind = "config"
)

// Sentinel errors for conditions that have no better wrapped cause.
var (
	ErrEmptyInput    = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON   = errors.New("invalid JSON")
	ErrTrailingData  = errors.New("trailing data after top-level JSON value")
	ErrMissingResult = errors.New("no result for string leaf")
	ErrExtraResult   = errors.New("result does not match any string leaf")
)

// Error is an awslate error with context.
type Error struct {
	Kind    Kind
	Lang    string // target language, if the failure belongs to one
	Path    string // rendered JSON path, if the failure belongs to one leaf
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Lang != "" {
		prefix += " [" + e.Lang + "]"
	}
	if e.Path != "" {
		prefix += " " + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Structural creates an error for malformed input or a broken
// walk/rebuild invariant.
func Structural(message string, err error) *Error {
	return &Error{Kind: KindStructural, Message: message, Err: err}
}

// Service creates an error for a failed translation call.
func Service(message string, err error) *Error {
	return &Error{Kind: KindService, Message: message, Err: err}
}

// IO creates an error for a failed read or write.
func IO(message string, err error) *Error {
	return &Error{Kind: KindIO, Message: message, Err: err}
}

// Config creates an error for invalid configuration.
func Config(message string, err error) *Error {
	return &Error{Kind: KindConfig, Message: message, Err: err}
}

// WithLang returns a copy of e bound to a target language.
func (e *Error) WithLang(lang string) *Error {
	c := *e
	c.Lang = lang
	return &c
}

// WithPath returns a copy of e bound to a leaf path.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return errors.Is(err, &Error{Kind: k})
}
