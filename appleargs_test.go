package appleargs

import (
	"errors"
	"runtime"
	"testing"

	"github.com/elwinar/appleargs/internal/startup"
	"github.com/elwinar/appleargs/pkg/testingx"
	"github.com/elwinar/appleargs/pkg/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromImage(img *testingx.Image) *Vector {
	return Locate(img.Argc, img.Argv, img.Envp)
}

func entries(v *Vector) []string {
	var out []string
	for s := range v.Strings() {
		out = append(out, s)
	}
	return out
}

func TestVector_Entries(t *testing.T) {
	img := testingx.NewImage(nil, []string{"A=1", "B=2"}, []string{"foo=1", "bar=2"})
	v := fromImage(img)

	require.True(t, v.Present())
	assert.True(t, v.Supported())
	assert.NoError(t, v.Err())
	assert.Equal(t, 2, v.Count())
	assert.Equal(t, []string{"foo=1", "bar=2"}, entries(v))

	_, err := v.At(2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	var rangeErr *RangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, RangeError{Index: 2, Count: 2}, *rangeErr)
}

func TestVector_Empty(t *testing.T) {
	img := testingx.NewImage(nil, nil, nil)
	v := fromImage(img)

	assert.True(t, v.Present())
	assert.Equal(t, 0, v.Count())
	assert.Nil(t, entries(v))

	_, err := v.At(0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestVector_Consistency(t *testing.T) {
	apple := []string{"executable_path=/bin/ls", "", "ptr_munge=", "main_stack=0x1,0x2", "x"}
	img := testingx.NewImage([]string{"/bin/ls"}, []string{"HOME=/"}, apple)
	v := fromImage(img)

	i := 0
	for b := range v.All() {
		got, err := v.At(i)
		require.NoError(t, err, "index %d", i)
		assert.Equal(t, b, got, "index %d", i)

		s, err := v.StringAt(i)
		require.NoError(t, err, "index %d", i)
		assert.Equal(t, apple[i], s, "index %d", i)
		i++
	}
	assert.Equal(t, v.Count(), i)

	for _, i := range []int{-1, v.Count(), v.Count() + 10} {
		_, err := v.At(i)
		assert.ErrorIs(t, err, ErrOutOfRange, "index %d", i)
		_, err = v.StringAt(i)
		assert.ErrorIs(t, err, ErrOutOfRange, "index %d", i)
	}

	var backward []string
	for b := range v.Backward() {
		backward = append(backward, string(b))
	}
	assert.Equal(t, []string{"x", "main_stack=0x1,0x2", "ptr_munge=", "", "executable_path=/bin/ls"}, backward)

	// Iterating again yields the same entries.
	assert.Equal(t, apple, entries(v))
	assert.Equal(t, apple, entries(v))
}

func TestVector_Absent(t *testing.T) {
	type testcase struct {
		v         *Vector
		supported bool
		want      error
	}

	for n, c := range map[string]testcase{
		"unsupported": {
			v:    newVector(false, startup.Capture{}, false),
			want: ErrUnsupported,
		},
		"not captured": {
			v:         newVector(true, startup.Capture{}, false),
			supported: true,
			want:      ErrNotLocated,
		},
		"no environment": {
			v:         newVector(true, startup.Capture{Argc: 0}, true),
			supported: true,
			want:      vector.ErrNoEnviron,
		},
	} {
		t.Run(n, func(t *testing.T) {
			assert.Equal(t, c.supported, c.v.Supported())
			assert.False(t, c.v.Present())
			assert.False(t, c.v.Present(), "presence changed between calls")
			assert.ErrorIs(t, c.v.Err(), c.want)
			assert.Equal(t, 0, c.v.Count())
			assert.Nil(t, entries(c.v))

			_, err := c.v.At(0)
			assert.ErrorIs(t, err, c.want)
			assert.NotErrorIs(t, err, ErrOutOfRange)

			_, err = c.v.StringAt(0)
			assert.ErrorIs(t, err, c.want)

			_, err = c.v.Var("foo")
			assert.ErrorIs(t, err, c.want)

			_, ok := c.v.LookupVar("foo")
			assert.False(t, ok)
		})
	}
}

func TestVector_LocatorFailureIsNotLocated(t *testing.T) {
	img := testingx.NewImage([]string{"prog"}, []string{"A=1"}, []string{"foo=1"})
	v := newVector(true, startup.Capture{Argc: 2, Argv: img.Argv, Envp: img.Envp}, true)

	assert.ErrorIs(t, v.Err(), ErrNotLocated)
	assert.ErrorIs(t, v.Err(), vector.ErrBadArgc)
}

func TestProcess(t *testing.T) {
	darwin := runtime.GOOS == "darwin" || runtime.GOOS == "ios"
	assert.Equal(t, darwin, IsSupported())

	assert.Same(t, Process(), Process())
	assert.Equal(t, IsPresent(), IsPresent())
	assert.Equal(t, IsPresent(), Err() == nil)

	n := 0
	for range All() {
		n++
	}
	assert.Equal(t, Count(), n)

	_, err := At(Count())
	if IsPresent() {
		assert.ErrorIs(t, err, ErrOutOfRange)
	} else {
		assert.ErrorIs(t, err, Err())
	}

	if !darwin {
		assert.ErrorIs(t, Err(), ErrUnsupported)
		_, err := StringAt(0)
		assert.ErrorIs(t, err, ErrUnsupported)
	}
}
