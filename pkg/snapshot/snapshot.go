// Package snapshot takes serializable copies of an apple argument vector,
// together with a few facts about the host that produced it.
package snapshot

import (
	"bytes"
	"encoding/base64"
	"iter"
	"os"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/c2h5oh/datasize"
	"github.com/rs/xid"
)

// Source is what a snapshot is taken from. *appleargs.Vector implements it.
type Source interface {
	Supported() bool
	Present() bool
	Err() error
	All() iter.Seq[[]byte]
}

// Snapshot of a vector as it was seen at Date.
type Snapshot struct {
	UID       string            `json:"uid" yaml:"uid"`
	Date      time.Time         `json:"date" yaml:"date"`
	Hostname  string            `json:"hostname" yaml:"hostname"`
	OS        string            `json:"os" yaml:"os"`
	Arch      string            `json:"arch" yaml:"arch"`
	OSRelease string            `json:"os_release,omitempty" yaml:"os_release,omitempty"`
	Supported bool              `json:"supported" yaml:"supported"`
	Present   bool              `json:"present" yaml:"present"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
	Count     int               `json:"count" yaml:"count"`
	Size      int64             `json:"size" yaml:"size"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Entries   []Entry           `json:"entries" yaml:"entries"`
}

// Entry of the vector. Key and Value are only set when the entry contains a
// '=' sign, in which case it is split on the first one.
//
// Entries are bytes, not text. JSON can only carry valid UTF-8 and replaces
// anything else with U+FFFD, so an entry that isn't valid UTF-8 has ValidUTF8
// false and its exact bytes in RawBase64.
type Entry struct {
	Index     int    `json:"index" yaml:"index"`
	Raw       string `json:"raw" yaml:"raw"`
	Key       string `json:"key" yaml:"key"`
	Value     string `json:"value" yaml:"value"`
	HasValue  bool   `json:"has_value" yaml:"has_value"`
	Truncated bool   `json:"truncated" yaml:"truncated"`
	ValidUTF8 bool   `json:"valid_utf8" yaml:"valid_utf8"`
	RawBase64 string `json:"raw_base64" yaml:"raw_base64"`
}

// Options of Take.
type Options struct {
	// Labels are copied as-is into the snapshot.
	Labels map[string]string
	// Truncate entries longer than this. Zero means no limit. Size
	// always accounts for the full entries.
	Truncate datasize.ByteSize
	// Now defaults to time.Now.
	Now func() time.Time
}

// Take a snapshot of the given source. An absent vector still gives a
// snapshot, with Present false and Error set to the reason.
func Take(src Source, opts Options) Snapshot {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	// The zero value is fine if the hostname can't be found.
	hostname, _ := os.Hostname()

	s := Snapshot{
		UID:       xid.New().String(),
		Date:      now(),
		Hostname:  hostname,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		OSRelease: osRelease(),
		Supported: src.Supported(),
		Present:   src.Present(),
		Labels:    opts.Labels,
		Entries:   []Entry{},
	}

	if err := src.Err(); err != nil {
		s.Error = err.Error()
	}

	for raw := range src.All() {
		s.Size += int64(len(raw))
		s.Entries = append(s.Entries, newEntry(s.Count, raw, int(opts.Truncate)))
		s.Count++
	}

	return s
}

func newEntry(index int, raw []byte, limit int) Entry {
	e := Entry{
		Index: index,
	}

	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
		e.Truncated = true
	}
	e.Raw = string(raw)

	e.ValidUTF8 = utf8.Valid(raw)
	if !e.ValidUTF8 {
		e.RawBase64 = base64.StdEncoding.EncodeToString(raw)
	}

	key, value, ok := bytes.Cut(raw, []byte("="))
	if ok {
		e.Key = string(key)
		e.Value = string(value)
		e.HasValue = true
	}

	return e
}

// Select returns a copy of the snapshot keeping only the entries that match.
// Count and Size still describe the whole vector, and entries keep their
// original index.
func (s Snapshot) Select(match func(Entry) (bool, error)) (Snapshot, error) {
	entries := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		ok, err := match(e)
		if err != nil {
			return s, err
		}
		if ok {
			entries = append(entries, e)
		}
	}
	s.Entries = entries
	return s, nil
}

// TotalSize is Size as a datasize.ByteSize.
func (s Snapshot) TotalSize() datasize.ByteSize {
	return datasize.ByteSize(s.Size)
}
