package mmarinus

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Unit is the ownership payload of an error raised before any resource
// existed.
type Unit struct{}

// Error is returned by every operation that manipulates a mapping.
//
// Besides the cause, it carries back the resource the failed operation
// would otherwise have consumed: the Unit value when nothing existed yet, or
// the original *Map when a remap, reprotect, split or resize failed. The
// returned Map is still live and still owned by the caller.
type Error[M any] struct {
	Op  string
	Map M
	Err error
}

func (e *Error[M]) Error() string {
	if e.Err != nil {
		return "mmarinus: " + e.Op + ": " + e.Err.Error()
	}
	return "mmarinus: " + e.Op
}

// Unwrap returns the underlying OS error.
func (e *Error[M]) Unwrap() error {
	return e.Err
}

// NewError wraps err with no ownership payload.
func NewError(op string, err error) *Error[Unit] {
	return &Error[Unit]{Op: op, Err: err}
}

// FromErrno wraps a symbolic OS error with no ownership payload.
func FromErrno(op string, errno unix.Errno) *Error[Unit] {
	return NewError(op, errno)
}

// Recover extracts the ownership payload of err. It reports false when err
// is not an *Error[M].
func Recover[M any](err error) (M, bool) {
	var e *Error[M]
	if errors.As(err, &e) {
		return e.Map, true
	}
	var zero M
	return zero, false
}

// Common errors
var (
	// ErrInvalidArgument reports parameters rejected before any system call.
	ErrInvalidArgument error = unix.EINVAL

	ErrInvalidData = errors.New("invalid data: length does not fit a mapping")
	ErrEmptyFile   = errors.New("empty file")
	ErrConsumed    = errors.New("mapping already consumed")
	ErrNotReadable = errors.New("mapping is not readable")
	ErrNotWritable = errors.New("mapping is not writable")
	ErrUnsafeKind  = errors.New("mapping kind does not allow direct access")
)

// IsInvalidArgument returns true if err is a parameter-consistency failure
// or an EINVAL reported by the kernel.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, unix.EINVAL)
}

// IsConsumed returns true if err was raised on a handle whose mapping had
// already been transferred or released.
func IsConsumed(err error) bool {
	return errors.Is(err, ErrConsumed)
}
