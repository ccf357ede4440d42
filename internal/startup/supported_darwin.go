package startup

// Supported reports whether the kernel provides an apple vector.
const Supported = true
