package testingx

import (
	"unsafe"
)

// Image is a fabricated startup image: the argument, environment and apple
// vectors laid out one after the other in a single block of pointer slots,
// each followed by a nil slot, like the kernel lays them out on the initial
// stack of a process. Every slot points to a NUL-terminated copy of its
// string.
type Image struct {
	Argc   int
	Argv   unsafe.Pointer
	Envp   unsafe.Pointer
	Applep unsafe.Pointer

	// slots keeps the strings reachable for as long as the image is.
	slots []unsafe.Pointer
}

// NewImage lays out the given vectors. Strings containing a NUL byte are
// seen cut at that byte by anything walking the image, like C would.
func NewImage(args, env, apple []string) *Image {
	img := &Image{
		Argc:  len(args),
		slots: make([]unsafe.Pointer, 0, len(args)+len(env)+len(apple)+3),
	}

	for _, vector := range [][]string{args, env, apple} {
		for _, s := range vector {
			img.slots = append(img.slots, cstring(s))
		}
		img.slots = append(img.slots, nil)
	}

	img.Argv = unsafe.Pointer(&img.slots[0])
	img.Envp = unsafe.Pointer(&img.slots[len(args)+1])
	img.Applep = unsafe.Pointer(&img.slots[len(args)+len(env)+2])
	return img
}

// Len returns the total number of slots of the image, terminators included.
func (img *Image) Len() int {
	return len(img.slots)
}

func cstring(s string) unsafe.Pointer {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return unsafe.Pointer(&b[0])
}
