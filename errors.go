package appleargs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned on platforms whose kernel doesn't provide
	// apple arguments.
	ErrUnsupported = errors.New(`appleargs: unsupported platform`)

	// ErrNotLocated is returned when the platform is supported but the
	// vector couldn't be found: the startup hook didn't run (cgo disabled,
	// library loaded in a running process) or the captured pointers didn't
	// walk to a terminated vector. In the latter case the locator error is
	// wrapped as well.
	ErrNotLocated = errors.New(`appleargs: vector not located`)

	// ErrOutOfRange is matched by every RangeError.
	ErrOutOfRange = errors.New(`appleargs: index out of range`)

	// ErrNotPresent is returned by Var when no entry has the given key.
	ErrNotPresent = errors.New(`appleargs: variable not present`)
)

// RangeError is returned when an entry is requested at an index outside of
// [0, Count).
type RangeError struct {
	Index int
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf(`appleargs: index %d out of range [0:%d)`, e.Index, e.Count)
}

// Is makes errors.Is(err, ErrOutOfRange) true for every RangeError.
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// NotUnicodeError is returned by Var when the value of the variable isn't
// valid UTF-8. Value aliases the vector memory.
type NotUnicodeError struct {
	Key   string
	Value []byte
}

func (e *NotUnicodeError) Error() string {
	return fmt.Sprintf(`appleargs: value of %q is not valid UTF-8: %q`, e.Key, e.Value)
}
