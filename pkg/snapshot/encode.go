package snapshot

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

// Format of an encoded snapshot. It implements flag.Value.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func (f *Format) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

func (f *Format) Set(raw string) error {
	switch Format(raw) {
	case FormatText, FormatJSON, FormatYAML:
		*f = Format(raw)
		return nil
	default:
		return fmt.Errorf("unknown format %q", raw)
	}
}

// Encode the snapshot into w.
func (s Snapshot) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatText:
		return s.encodeText(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "\t")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		err := enc.Encode(s)
		if err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func (s Snapshot) encodeText(w io.Writer) error {
	var err error
	printf := func(format string, args ...interface{}) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, args...)
	}

	if !s.Present {
		printf("No apple arguments found (unsupported target?)\n")
		if s.Error != "" {
			printf("reason: %s\n", s.Error)
		}
		return err
	}

	printf("%d apple arguments given to this process:\n", s.Count)
	for _, e := range s.Entries {
		printf("[%d]: %q\n", e.Index, e.Raw)
	}
	printf("total size: %s\n", s.TotalSize().HR())
	return err
}
