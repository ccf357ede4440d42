//go:build !darwin || !cgo

package startup

// Without cgo there is no initializer to receive the startup pointers, and
// other kernels don't provide an apple vector at all.
func capture() (Capture, bool) {
	return Capture{}, false
}
