// Package startup holds the pointers the kernel hands to a new process, as
// captured by a platform hook before the Go runtime starts.
package startup

import (
	"sync"
	"unsafe"
)

// Capture is the argument count and the argument and environment vectors as
// they were given to the process' initializers. Both vectors point into the
// initial stack image, which is never freed.
type Capture struct {
	Argc int
	Argv unsafe.Pointer
	Envp unsafe.Pointer
}

var captured = sync.OnceValues(capture)

// Get returns the capture of the current process, and false if no hook ran
// for this build (unsupported platform, cgo disabled, or a library loaded
// into a process that was already running).
func Get() (Capture, bool) {
	return captured()
}
