// Package appleargs gives access to the apple arguments of the current
// process: an undocumented vector of strings that Darwin's kernel places in
// the startup image of every new process, right after the environment.
//
// The entries are exposed as-is. Their content and format change between OS
// releases and aren't part of any public contract, so nothing here tries to
// interpret them. Entries alias the startup image: they are never copied,
// stay valid for the life of the process, and must not be modified.
//
// The vector is found by a C initializer that captures the startup pointers
// before the Go runtime runs, which requires cgo. Without it, or on another
// operating system, every query reports why the vector is absent instead.
package appleargs

import (
	"fmt"
	"iter"
	"sync"
	"unsafe"

	"github.com/elwinar/appleargs/internal/startup"
	"github.com/elwinar/appleargs/pkg/vector"
)

// Vector is the apple vector of a process, or the reason it is absent.
type Vector struct {
	supported bool
	v         vector.Vector
	err       error
}

func newVector(supported bool, c startup.Capture, captured bool) *Vector {
	if !supported {
		return &Vector{err: ErrUnsupported}
	}

	if !captured {
		return &Vector{supported: true, err: ErrNotLocated}
	}

	v, err := vector.Locate(c.Argc, c.Argv, c.Envp)
	if err != nil {
		return &Vector{supported: true, err: fmt.Errorf(`%w: %w`, ErrNotLocated, err)}
	}

	return &Vector{supported: true, v: v}
}

// Locate returns the vector of the startup image described by argc, argv
// and envp, as if they had been captured at startup. argv may be nil. The
// image must outlive the returned vector.
func Locate(argc int, argv, envp unsafe.Pointer) *Vector {
	return newVector(true, startup.Capture{Argc: argc, Argv: argv, Envp: envp}, true)
}

var process = sync.OnceValue(func() *Vector {
	c, ok := startup.Get()
	return newVector(startup.Supported, c, ok)
})

// unsetenv(3), which os.Unsetenv calls when cgo is enabled, shifts the
// environment block in place. Locating the vector here means it is done
// before any importing package runs.
func init() {
	process()
}

// Process returns the vector of the current process. It is located on the
// first call and never changes afterwards.
func Process() *Vector {
	return process()
}

// Supported reports whether the platform provides apple arguments.
func (v *Vector) Supported() bool {
	return v.supported
}

// Present reports whether the vector was located. A present vector may be
// empty.
func (v *Vector) Present() bool {
	return v.err == nil
}

// Err returns the reason the vector is absent, or nil if it is present.
func (v *Vector) Err() error {
	return v.err
}

// Count returns the number of entries, 0 if the vector is absent or empty.
func (v *Vector) Count() int {
	return v.v.Len()
}

// At returns the entry at index i. It returns Err if the vector is absent,
// and a *RangeError if i isn't in [0, Count).
func (v *Vector) At(i int) ([]byte, error) {
	if v.err != nil {
		return nil, v.err
	}

	b, ok := v.v.At(i)
	if !ok {
		return nil, &RangeError{Index: i, Count: v.v.Len()}
	}
	return b, nil
}

// StringAt is like At, but returns a string sharing the entry's memory.
func (v *Vector) StringAt(i int) (string, error) {
	b, err := v.At(i)
	if err != nil {
		return "", err
	}
	return unsafeString(b), nil
}

// All yields the entries in the order the kernel laid them out. It yields
// nothing if the vector is absent, and can be ranged over any number of
// times.
func (v *Vector) All() iter.Seq[[]byte] {
	return v.v.All()
}

// Backward is like All, from the last entry to the first one.
func (v *Vector) Backward() iter.Seq[[]byte] {
	return v.v.Backward()
}

// Strings is like All, but yields strings sharing the entries' memory.
func (v *Vector) Strings() iter.Seq[string] {
	return func(yield func(string) bool) {
		for b := range v.v.All() {
			if !yield(unsafeString(b)) {
				return
			}
		}
	}
}

func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// IsSupported reports whether the platform provides apple arguments.
func IsSupported() bool {
	return startup.Supported
}

// IsPresent reports whether the vector of the current process was located.
func IsPresent() bool {
	return Process().Present()
}

// Err returns the reason the vector of the current process is absent, or nil.
func Err() error {
	return Process().Err()
}

// Count returns the number of entries of the current process' vector.
func Count() int {
	return Process().Count()
}

// At returns the entry of the current process' vector at index i.
func At(i int) ([]byte, error) {
	return Process().At(i)
}

// StringAt returns the entry of the current process' vector at index i.
func StringAt(i int) (string, error) {
	return Process().StringAt(i)
}

// All yields the entries of the current process' vector.
func All() iter.Seq[[]byte] {
	return Process().All()
}

// Backward yields the entries of the current process' vector, last first.
func Backward() iter.Seq[[]byte] {
	return Process().Backward()
}

// Strings yields the entries of the current process' vector as strings.
func Strings() iter.Seq[string] {
	return Process().Strings()
}
