// Package vector locates the apple vector in a process' startup image, i.e
// the nil-terminated list of strings Darwin's kernel places right after the
// terminator of the environment vector, and exposes its entries as byte
// slices aliasing that memory.
//
// The vector has no documented location nor length, so the only way to find
// it is to walk past the environment vector and then count until the next
// nil pointer. Every walk is bounded by the Locator limits.
package vector

import (
	"errors"
	"fmt"
	"iter"
	"unsafe"
)

var (
	// ErrNoEnviron is returned when there is no environment vector to walk
	// past.
	ErrNoEnviron = errors.New(`no environment vector`)

	// ErrBadArgc is returned when the argument vector isn't terminated right
	// at the argument count, which means the pointers don't describe a
	// startup image.
	ErrBadArgc = errors.New(`argument vector doesn't match argument count`)

	// ErrUnterminated is returned when no nil slot was found within the
	// locator's MaxSlots.
	ErrUnterminated = errors.New(`vector isn't terminated`)
)

const ptrSize = unsafe.Sizeof(unsafe.Pointer(nil))

// Locator finds the apple vector. A vector that isn't terminated within
// MaxSlots pointers is rejected, and an entry whose NUL byte isn't found
// within MaxEntryLen bytes is cut there. Zero limits use the DefaultLocator
// ones.
type Locator struct {
	MaxSlots    int
	MaxEntryLen int
}

// DefaultLocator limits are derived from Darwin's ARG_MAX (1MiB), which
// bounds everything the kernel copies on the initial stack.
var DefaultLocator = Locator{
	MaxSlots:    1 << 17,
	MaxEntryLen: 1 << 20,
}

// Locate is a shorthand for DefaultLocator.Locate.
func Locate(argc int, argv, envp unsafe.Pointer) (Vector, error) {
	return DefaultLocator.Locate(argc, argv, envp)
}

// Locate finds the apple vector from the pointers given to the process at
// startup. The vector starts at the slot following the environment's nil
// terminator and ends at the next nil slot, which isn't part of it. argv may
// be nil, in which case only envp is used; if it isn't, it must have exactly
// argc non-nil slots before its terminator.
func (l Locator) Locate(argc int, argv, envp unsafe.Pointer) (Vector, error) {
	if l.MaxSlots <= 0 {
		l.MaxSlots = DefaultLocator.MaxSlots
	}
	if l.MaxEntryLen <= 0 {
		l.MaxEntryLen = DefaultLocator.MaxEntryLen
	}

	if argc < 0 {
		return Vector{}, fmt.Errorf(`%w: argc=%d`, ErrBadArgc, argc)
	}

	if envp == nil {
		return Vector{}, ErrNoEnviron
	}

	if argv != nil {
		n, err := l.span(argv)
		if err != nil {
			return Vector{}, fmt.Errorf(`walking argument vector: %w`, err)
		}
		if n != argc {
			return Vector{}, fmt.Errorf(`%w: argc=%d, found %d`, ErrBadArgc, argc, n)
		}
	}

	n, err := l.span(envp)
	if err != nil {
		return Vector{}, fmt.Errorf(`walking environment vector: %w`, err)
	}

	base := unsafe.Add(envp, uintptr(n+1)*ptrSize)
	n, err = l.span(base)
	if err != nil {
		return Vector{}, fmt.Errorf(`walking apple vector: %w`, err)
	}

	return Vector{
		base:        base,
		n:           n,
		maxEntryLen: l.MaxEntryLen,
	}, nil
}

// span counts the non-nil slots from p to the first nil one. It never reads
// more than MaxSlots slots.
func (l Locator) span(p unsafe.Pointer) (int, error) {
	for i := 0; i < l.MaxSlots; i++ {
		if slot(p, i) == nil {
			return i, nil
		}
	}
	return 0, ErrUnterminated
}

func slot(p unsafe.Pointer, i int) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Add(p, uintptr(i)*ptrSize))
}

// Vector is a located apple vector. The zero value is an empty vector.
//
// Entries alias the startup image: they stay valid for the whole life of the
// process and must not be modified.
type Vector struct {
	base        unsafe.Pointer
	n           int
	maxEntryLen int
}

// Len returns the number of entries, terminator excluded.
func (v Vector) Len() int {
	return v.n
}

// At returns the entry at index i, and false if i is out of range.
func (v Vector) At(i int) ([]byte, bool) {
	if i < 0 || i >= v.n {
		return nil, false
	}
	return v.entry(i), true
}

// All yields the entries in the order the kernel laid them out.
func (v Vector) All() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for i := 0; i < v.n; i++ {
			if !yield(v.entry(i)) {
				return
			}
		}
	}
}

// Backward yields the entries from the last one to the first one.
func (v Vector) Backward() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for i := v.n - 1; i >= 0; i-- {
			if !yield(v.entry(i)) {
				return
			}
		}
	}
}

// entry returns a view of the NUL-terminated string pointed by the i-th slot,
// without its NUL byte.
func (v Vector) entry(i int) []byte {
	p := slot(v.base, i)

	n := 0
	for n < v.maxEntryLen && *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return unsafe.Slice((*byte)(p), n)
}
