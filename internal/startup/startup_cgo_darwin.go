//go:build darwin && cgo

package startup

/*
static int startup_captured;
static int startup_argc;
static char **startup_argv;
static char **startup_envp;

// dyld calls the initializers of an image with argc, argv, envp and the apple
// vector, before the entry point and thus before the Go runtime.
__attribute__((constructor, used))
static void startup_capture(int argc, char **argv, char **envp) {
	if (startup_captured) {
		return;
	}
	startup_argc = argc;
	startup_argv = argv;
	startup_envp = envp;
	startup_captured = 1;
}

static int startup_get(int *argc, char ***argv, char ***envp) {
	*argc = startup_argc;
	*argv = startup_argv;
	*envp = startup_envp;
	return startup_captured;
}
*/
import "C"

import "unsafe"

func capture() (Capture, bool) {
	var (
		argc C.int
		argv **C.char
		envp **C.char
	)
	if C.startup_get(&argc, &argv, &envp) == 0 {
		return Capture{}, false
	}

	return Capture{
		Argc: int(argc),
		Argv: unsafe.Pointer(argv),
		Envp: unsafe.Pointer(envp),
	}, true
}
