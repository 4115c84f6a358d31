package png

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindInvalidTag       Kind = "InvalidTag"
	KindTruncatedInput   Kind = "TruncatedInput"
	KindChecksumMismatch Kind = "ChecksumMismatch"
	KindInvalidSignature Kind = "InvalidSignature"
	KindChunkNotFound    Kind = "ChunkNotFound"
	KindInvalidUTF8      Kind = "InvalidUtf8"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g., PNG-TAG-001, PNG-CRC-001) that names
// the violated format rule. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func newErrorf(kind Kind, ruleID, format string, args ...any) error {
	return newError(kind, ruleID, fmt.Sprintf(format, args...))
}

// locate prefixes a chunk-level error with its position in the stream while
// keeping Kind and RuleID intact.
func locate(err error, index, offset int) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	return &Error{
		Kind:    e.Kind,
		RuleID:  e.RuleID,
		Message: fmt.Sprintf("chunk %d at offset %d: %s", index, offset, e.Message),
		Cause:   err,
	}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
