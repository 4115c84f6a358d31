package snapshot

import "errors"

var (
	ErrNotFound    = errors.New("snapshot: not found")
	ErrInvalidCID  = errors.New("snapshot: invalid cid")
	ErrCIDMismatch = errors.New("snapshot: cid mismatch")
	ErrImmutable   = errors.New("snapshot: immutable object mismatch")
	ErrNotPNG      = errors.New("snapshot: not a png")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
