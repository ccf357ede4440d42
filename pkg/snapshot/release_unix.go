//go:build unix

package snapshot

import (
	"bytes"

	"golang.org/x/sys/unix"
)

// osRelease returns the kernel release, e.g "23.4.0" on macOS 14.4.
func osRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	release, _, _ := bytes.Cut(uts.Release[:], []byte{0})
	return string(release)
}
