package db

import "errors"

// ErrKeyNotFound is returned when a key or hash field does not exist.
var ErrKeyNotFound = errors.New("db: key not found")

// Operation names carried by Error.
const (
	OpHGet     = "HGET"
	OpHGetAll  = "HGETALL"
	OpHSetNX   = "HSETNX"
	OpHReplace = "HREPLACE"
	OpHDel     = "HDEL"
	OpGet      = "GET"
	OpSet      = "SET"
)

// Error attaches the failed operation to a driver error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
