package conf

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Parse the given FlagSet using the command line, the environment, and the
// file pointed by the conf flag value.
//
// A flag named "log.level" is read from the environment variable
// PREFIX_LOG_LEVEL, i.e the prefix, an underscore, then the upper-cased name
// with dots and dashes replaced by underscores. An empty prefix disables the
// environment, and the flags named in skip are never read from it.
//
// The file parser ignore empty lines and lines that start with a #.
// Lines without a = sign will be considered as a boolean flag and the value
// will default to true.
//
// The priority order is command line, environment, conf file, then default
// value.
func Parse(fs *flag.FlagSet, conf, prefix string, skip ...string) {
	err := parse(fs, os.Args[1:], conf, prefix, os.LookupEnv, skip...)
	if err == nil {
		return
	}

	fmt.Fprintln(fs.Output(), err)
	fs.Usage()
	switch fs.ErrorHandling() {
	case flag.ContinueOnError:
		return
	case flag.ExitOnError:
		os.Exit(2)
	case flag.PanicOnError:
		panic(err)
	}
}

func parse(fs *flag.FlagSet, args []string, conf, prefix string, lookup func(string) (string, bool), skip ...string) error {
	// Can't work on an empty flagset.
	if fs == nil {
		return errors.New(`nil flagset`)
	}

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	// The flag package doesn't provide a view of which flags have been
	// set. The Visit method, however, is iterating on the
	// flag.FlagSet.actual map, which allow us to get this information.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	if prefix != "" {
		var err error
		fs.VisitAll(func(f *flag.Flag) {
			if err != nil || set[f.Name] || slices.Contains(skip, f.Name) {
				return
			}

			val, ok := lookup(EnvName(prefix, f.Name))
			if !ok {
				return
			}

			err = fs.Set(f.Name, val)
			if err != nil {
				err = fmt.Errorf("setting flag %q from environment to %q: %w", f.Name, val, err)
				return
			}
			set[f.Name] = true
		})
		if err != nil {
			return err
		}
	}

	// If there is no configuration flag given, there is nothing to do.
	if conf == "" {
		return nil
	}

	f := fs.Lookup(conf)
	if f == nil {
		return fmt.Errorf("configuration flag %q not found", conf)
	}

	path, ok := f.Value.(flag.Getter).Get().(string)
	if !ok {
		return fmt.Errorf("non-string configuration flag %q given", conf)
	}

	file, err := os.Open(path)

	// If the conf flag wasn't set by hand and it doesn't exist, ignore the
	// error.
	if errors.Is(err, os.ErrNotExist) && !set[conf] {
		return nil
	}

	if err != nil {
		return fmt.Errorf("opening configuration file: %w", err)
	}
	defer file.Close()

	// Parse the configuration file line by line. Only set the flags that
	// weren't set by the command line or the environment.
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		// Ignore dashes at the start of lines.
		line = strings.TrimLeft(line, "-")

		key, val, found := strings.Cut(line, "=")
		if !found {
			val = "true"
		}

		key = strings.TrimSpace(key)
		if set[key] {
			continue
		}

		val = strings.TrimSpace(val)
		if len(val) != 0 && val[0] == '"' {
			val, err = strconv.Unquote(val)
			if err != nil {
				return fmt.Errorf("unquoting value %q for key %q: %w", val, key, err)
			}
		}

		err := fs.Set(key, val)
		if err != nil {
			return fmt.Errorf("setting flag %q to %q: %w", key, val, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading configuration file: %w", err)
	}

	return nil
}

// EnvName returns the name of the environment variable for the given flag.
func EnvName(prefix, name string) string {
	name = strings.NewReplacer(".", "_", "-", "_").Replace(name)
	return strings.ToUpper(prefix + "_" + name)
}

// MapFlag returns a flag.Value that will be parsed into the given map.  Raw
// flag value is split on ';' to separate multiple key-value pairs, and on the
// first '=' to separate the key from the value. Quoted values aren't handled
// specifically because there is already a layer of unquoting done either by
// the command-line or the configuration file parsing. The parsing doesn't
// support any kind of escaping either for simplicity reasons.
func MapFlag(m *map[string]string) *mapFlag {
	if *m == nil {
		*m = make(map[string]string)
	}
	return &mapFlag{
		m: *m,
	}
}

type mapFlag struct {
	m map[string]string
}

// String return the textual representation for this map's content, sorted by
// key.
func (f *mapFlag) String() string {
	if f == nil || len(f.m) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, k := range slices.Sorted(maps.Keys(f.m)) {
		if i > 0 {
			buf.WriteByte(';')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(f.m[k])
	}
	return buf.String()
}

// Set values in the map from the raw string given.
func (f *mapFlag) Set(raw string) error {
	for _, value := range strings.Split(raw, ";") {
		if value == "" {
			continue
		}
		key, val, _ := strings.Cut(value, "=")
		f.m[key] = val
	}
	return nil
}
