// testingx contains testing helpers meant to simplify unit testing. Most of
// the helpers are simple wrapper for other libraries functions with a few
// tweaks meant to simplify the unit tests:
// - they don't return an error and instead fail the test,
// - relative filepath are prefixed by testdata/,
// - startup images are fabricated in Go memory so they can be walked on any
// platform.
package testingx

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

// updateGolden indicates tests to update their golden files with the
// expected output. This flag is controled by the -updategolden flag and will
// apply to every call to GoldenXXX, one is expected to use the -run flag to
// limit to specific tests.
var updateGolden bool

func init() {
	flag.BoolVar(&updateGolden, "updategolden", false, "update the golden files")
}

func path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(`testdata`, p)
}

// ReadFile returns the content of the file at path. See os.ReadFile.
func ReadFile(t testing.TB, p string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path(p))
	if err != nil {
		t.Fatalf(`reading file %q: %s`, p, err)
	}
	return raw
}

// WriteFile set the content of the file at path. See os.WriteFile.
func WriteFile(t testing.TB, p string, raw []byte) {
	t.Helper()
	err := os.WriteFile(path(p), raw, 0644)
	if err != nil {
		t.Fatalf(`writing file %q: %s`, p, err)
	}
}

// UnmarshalJSON parse the JSON raw string into dest. See json.Unmarshal.
func UnmarshalJSON(t testing.TB, raw []byte, dest interface{}) {
	t.Helper()
	err := json.Unmarshal(raw, dest)
	if err != nil {
		t.Fatalf(`unmarshaling: %s`, err)
	}
}

// MarshalJSON encode src into an indented JSON string. See json.MarshalIndent.
func MarshalJSON(t testing.TB, src interface{}) []byte {
	t.Helper()
	raw, err := json.MarshalIndent(src, "", "\t")
	if err != nil {
		t.Fatalf(`marshaling %#v: %s`, src, err)
	}
	return raw
}

// Golden returns the content of the file at path, eventually changing them to
// out beforehand if the -updategolden flag was set to true on the command
// line. See ReadFile and WriteFile.
func Golden(t testing.TB, p string, out []byte) []byte {
	t.Helper()
	if updateGolden {
		WriteFile(t, p, out)
	}
	return ReadFile(t, p)
}

// GoldenJSON is like Golden, but keep a JSON representation of the given
// structs into the file at path.
func GoldenJSON(t testing.TB, p string, out, dest interface{}) {
	t.Helper()
	if updateGolden {
		WriteFile(t, p, MarshalJSON(t, out))
	}
	UnmarshalJSON(t, ReadFile(t, p), dest)
}
