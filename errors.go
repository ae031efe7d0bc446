package tdb

import (
	"errors"
	"fmt"

	"git.tcp.direct/tcp.direct/tdb/driver"
)

// Code is the closed taxonomy of failure classes. Every error returned by
// this package carries one, alongside the operation that failed; callers
// should match with [errors.Is] against the sentinel values below rather
// than inspecting codes directly.
type Code = driver.Code

const (
	CodeCorrupt       = driver.CodeCorrupt
	CodeIO            = driver.CodeIO
	CodeLock          = driver.CodeLock
	CodeOOM           = driver.CodeOOM
	CodeExists        = driver.CodeExists
	CodeNoLock        = driver.CodeNoLock
	CodeLockTimeout   = driver.CodeLockTimeout
	CodeReadOnly      = driver.CodeReadOnly
	CodeNoExist       = driver.CodeNoExist
	CodeInvalid       = driver.CodeInvalid
	CodeNesting       = driver.CodeNesting
	CodeUseAfterClose = driver.CodeUseAfterClose
)

// Sentinels for [errors.Is] matching. They are never returned directly;
// every failure surfaces as an [*Error] whose Is method maps its Code to
// the matching sentinel.
var (
	ErrCorrupt       = errors.New("database is corrupt")
	ErrIO            = errors.New("i/o failure")
	ErrLock          = errors.New("locking failure")
	ErrKeyExists     = errors.New("key already exists")
	ErrReadOnly      = errors.New("database is read-only")
	ErrNoExist       = errors.New("no such key")
	ErrInvalid       = errors.New("invalid argument")
	ErrNesting       = errors.New("transaction nesting not allowed")
	ErrUseAfterClose = errors.New("handle is closed")
	ErrNoTransaction = errors.New("no transaction in progress")
)

// Error is the error type returned by every operation in this package. Op
// names the failed operation ("open", "store", ...), Path the database (or
// ":memory:"), Code the failure class, and Err the underlying engine error
// when there is one.
type Error struct {
	Op   string
	Path string
	Code Code
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("tdb: %s %s: %s", e.Op, e.Path, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps the error's Code onto the package sentinels so callers can use
// errors.Is without caring which engine produced the failure.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrCorrupt:
		return e.Code == CodeCorrupt
	case ErrIO:
		return e.Code == CodeIO
	case ErrLock:
		return e.Code == CodeLock || e.Code == CodeNoLock || e.Code == CodeLockTimeout
	case ErrKeyExists:
		return e.Code == CodeExists
	case ErrReadOnly:
		return e.Code == CodeReadOnly
	case ErrNoExist:
		return e.Code == CodeNoExist
	case ErrInvalid:
		return e.Code == CodeInvalid
	case ErrNesting:
		return e.Code == CodeNesting
	case ErrUseAfterClose:
		return e.Code == CodeUseAfterClose
	}
	return false
}

// opErr wraps an engine error with operation context, lifting out the
// engine's code. Errors that already are *Error pass through untouched so
// binding-level failures keep their original Op.
func opErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	code := driver.CodeOf(err)
	var de *driver.Error
	if errors.As(err, &de) && de.Err != nil {
		err = de.Err
	}
	return &Error{Op: op, Path: path, Code: code, Err: err}
}

// codeErr builds a binding-level error with no engine error underneath.
func codeErr(op, path string, code Code) error {
	return &Error{Op: op, Path: path, Code: code}
}

func errorCodeIsNoExist(err error) bool {
	return driver.CodeOf(err) == driver.CodeNoExist
}
