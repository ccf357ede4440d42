//go:build darwin && cgo

package appleargs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dyld always passes the path of the main executable in the vector.
func TestProcess_Darwin(t *testing.T) {
	require.True(t, IsPresent(), "vector not located: %v", Err())
	assert.NotZero(t, Count())

	found := false
	for s := range Strings() {
		if strings.HasPrefix(s, "executable_path=") {
			found = true
		}
	}
	assert.True(t, found, "no executable_path entry")

	path, err := Var("executable_path")
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}
