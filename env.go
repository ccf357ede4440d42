package appleargs

import (
	"bytes"
	"iter"
	"unicode/utf8"
	"unsafe"
)

// The entries are in practice written like environment variables, i.e
// "key=value". The functions below read the vector as such a
// pseudo-environment. Entries without a '=' are skipped, so they keep working
// if some release starts passing entries of another shape.

func split(entry []byte) (key, value []byte, ok bool) {
	i := bytes.IndexByte(entry, '=')
	if i < 0 {
		return nil, nil, false
	}
	return entry[:i], entry[i+1:], true
}

// Vars yields the key and value of every entry containing a '=', split on the
// first one, in the vector order. Duplicate keys are yielded as many times as
// they appear.
func (v *Vector) Vars() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for entry := range v.v.All() {
			key, value, ok := split(entry)
			if !ok {
				continue
			}
			if !yield(unsafeString(key), unsafeString(value)) {
				return
			}
		}
	}
}

// LookupVar returns the value of the first entry with the given key.
func (v *Vector) LookupVar(key string) (string, bool) {
	for k, value := range v.Vars() {
		if k == key {
			return value, true
		}
	}
	return "", false
}

// Var returns the value of the first entry with the given key. It returns Err
// if the vector is absent, ErrNotPresent if there is no such entry, and a
// *NotUnicodeError if the value isn't valid UTF-8.
func (v *Vector) Var(key string) (string, error) {
	if v.err != nil {
		return "", v.err
	}

	value, ok := v.LookupVar(key)
	if !ok {
		return "", ErrNotPresent
	}

	if !utf8.ValidString(value) {
		return "", &NotUnicodeError{
			Key:   key,
			Value: unsafe.Slice(unsafe.StringData(value), len(value)),
		}
	}
	return value, nil
}

// Vars yields the pseudo-environment of the current process' vector.
func Vars() iter.Seq2[string, string] {
	return Process().Vars()
}

// LookupVar returns a variable of the current process' pseudo-environment.
func LookupVar(key string) (string, bool) {
	return Process().LookupVar(key)
}

// Var returns a variable of the current process' pseudo-environment.
func Var(key string) (string, error) {
	return Process().Var(key)
}
