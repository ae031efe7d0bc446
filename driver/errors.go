package driver

import "fmt"

// Code identifies a failure class in the closed error space shared by the
// binding layer and the engines. The values mirror the error codes of the
// trivial-database lineage this library descends from.
type Code int

const (
	CodeOK Code = iota
	CodeCorrupt
	CodeIO
	CodeLock
	CodeOOM
	CodeExists
	CodeNoLock
	CodeLockTimeout
	CodeReadOnly
	CodeNoExist
	CodeInvalid
	CodeNesting
	// CodeUseAfterClose is produced by the binding layer only; engines
	// never see a call after Close.
	CodeUseAfterClose
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeCorrupt:
		return "corrupt"
	case CodeIO:
		return "io"
	case CodeLock:
		return "lock"
	case CodeOOM:
		return "oom"
	case CodeExists:
		return "exists"
	case CodeNoLock:
		return "nolock"
	case CodeLockTimeout:
		return "lock timeout"
	case CodeReadOnly:
		return "read-only"
	case CodeNoExist:
		return "no exist"
	case CodeInvalid:
		return "invalid"
	case CodeNesting:
		return "nesting"
	case CodeUseAfterClose:
		return "use after close"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Error is the coded error engines hand back across the ABI. The binding
// layer wraps it with operation and path context before it reaches callers.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds a coded error with a formatted message.
func Errf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a code to an underlying engine error. A nil err yields a
// bare coded error.
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the Code from err, walking wrapped errors. Errors that do
// not carry a code come back as CodeIO, the catch-all for engine failures.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for err != nil {
		if de, ok := err.(*Error); ok {
			return de.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeIO
}
