//go:build !unix

package snapshot

func osRelease() string {
	return ""
}
